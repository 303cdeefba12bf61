package model

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the authenticated principal as carried by a platform access token.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	AccessToken  string         `json:"-"`
}

// AuthClaims holds derived authorization attributes. Role is "admin" iff IsAdmin.
type AuthClaims struct {
	IsAdmin bool   `json:"is_admin"`
	Role    string `json:"role"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
}

func NewAuthClaims(user *User, isAdmin bool) AuthClaims {
	claims := AuthClaims{IsAdmin: isAdmin, Role: RoleUser}
	if isAdmin {
		claims.Role = RoleAdmin
	}
	if user != nil {
		claims.UserID = user.ID
		claims.Email = user.Email
	}
	return claims
}

type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	TotalXP     int       `json:"total_xp"`
	Level       int       `json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session is the credential bundle issued by the platform auth service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

func (s *Session) Expiry() time.Time {
	if s == nil {
		return time.Time{}
	}
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	if s.ExpiresIn > 0 && !s.ObtainedAt.IsZero() {
		return s.ObtainedAt.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

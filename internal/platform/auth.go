package platform

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go-lms/internal/model"
)

func (c *Client) SignInWithPassword(ctx context.Context, email string, password string) (*model.Session, error) {
	var session model.Session
	query := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token", query, "", body, &session); err != nil {
		return nil, err
	}
	return stamp(&session), nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	var session model.Session
	query := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token", query, "", body, &session); err != nil {
		return nil, err
	}
	return stamp(&session), nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken, nil, &user); err != nil {
		return nil, err
	}
	user.AccessToken = accessToken
	return &user, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken, nil, nil)
}

// UpdateUserMetadata merges data into the user_metadata of the token's owner.
func (c *Client) UpdateUserMetadata(ctx context.Context, accessToken string, data map[string]any) (*model.User, error) {
	var user model.User
	body := map[string]any{"data": data}
	if err := c.doJSON(ctx, http.MethodPut, "/auth/v1/user", nil, accessToken, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyRecovery exchanges the token hash from a recovery link for a session.
func (c *Client) VerifyRecovery(ctx context.Context, tokenHash string) (*model.Session, error) {
	var session model.Session
	body := map[string]string{"type": "recovery", "token_hash": tokenHash}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/verify", nil, "", body, &session); err != nil {
		return nil, err
	}
	return stamp(&session), nil
}

func stamp(s *model.Session) *model.Session {
	s.ObtainedAt = time.Now().UTC()
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = s.ObtainedAt.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	return s
}

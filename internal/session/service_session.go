package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go-lms/internal/autherr"
	"go-lms/internal/model"
)

// AuthAPI is the slice of the platform auth service the session needs.
type AuthAPI interface {
	SignInWithPassword(ctx context.Context, email string, password string) (*model.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) configured() bool {
	return strings.TrimSpace(c.Email) != "" && c.Password != ""
}

func StorageKey(projectRef string) string {
	return "sb-" + projectRef + "-auth-token"
}

// ServiceSession is the one platform session this process signs in with.
// It is persisted as JSON through Storage.
type ServiceSession struct {
	auth    AuthAPI
	storage Storage
	key     string
	creds   Credentials
	now     func() time.Time

	mu sync.Mutex
}

func NewServiceSession(auth AuthAPI, storage Storage, projectRef string, creds Credentials) *ServiceSession {
	return &ServiceSession{
		auth:    auth,
		storage: storage,
		key:     StorageKey(projectRef),
		creds:   creds,
		now:     time.Now,
	}
}

func (s *ServiceSession) Configured() bool {
	return s.creds.configured()
}

// StoredSession returns the persisted session without any network call.
func (s *ServiceSession) StoredSession() *model.Session {
	raw, ok := s.storage.GetItem(s.key)
	if !ok {
		return nil
	}

	var stored model.Session
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		slog.Warn("discarding unreadable stored session", "error", err)
		s.storage.RemoveItem(s.key)
		return nil
	}
	return &stored
}

// CurrentSession returns the stored session, signing in when there is none
// and refreshing one that has already expired.
func (s *ServiceSession) CurrentSession(ctx context.Context) (*model.Session, error) {
	current := s.StoredSession()
	if current == nil {
		return s.signIn(ctx)
	}

	if expiry := s.expiry(current); !expiry.IsZero() && !expiry.After(s.now()) {
		return s.Refresh(ctx)
	}
	return current, nil
}

func (s *ServiceSession) AccessToken(ctx context.Context) (string, error) {
	current, err := s.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	return current.AccessToken, nil
}

func (s *ServiceSession) Refresh(ctx context.Context) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.StoredSession()
	if current == nil || current.RefreshToken == "" {
		return s.signInLocked(ctx)
	}

	renewed, err := s.auth.RefreshSession(ctx, current.RefreshToken)
	if err != nil {
		if autherr.IsAuthError(err) {
			s.storage.RemoveItem(s.key)
		}
		return nil, fmt.Errorf("refresh service session: %w", err)
	}

	s.save(renewed)
	return renewed, nil
}

// SignOut ends the session with the platform and forgets it locally. The local
// copy is removed even when the platform call fails.
func (s *ServiceSession) SignOut(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.StoredSession()
	s.storage.RemoveItem(s.key)
	if current == nil || current.AccessToken == "" {
		return
	}

	if err := s.auth.SignOut(ctx, current.AccessToken); err != nil {
		slog.Warn("platform sign-out failed", "error", err)
	}
	slog.Info("service session signed out")
}

func (s *ServiceSession) signIn(ctx context.Context) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have signed in while we waited.
	if current := s.StoredSession(); current != nil {
		return current, nil
	}
	return s.signInLocked(ctx)
}

func (s *ServiceSession) signInLocked(ctx context.Context) (*model.Session, error) {
	if !s.creds.configured() {
		return nil, model.ErrSessionUnavailable
	}

	created, err := s.auth.SignInWithPassword(ctx, s.creds.Email, s.creds.Password)
	if err != nil {
		return nil, fmt.Errorf("sign in service account: %w", err)
	}

	s.save(created)
	slog.Info("service session established", "user_id", created.UserID(), "expires_at", s.expiry(created))
	return created, nil
}

func (s *ServiceSession) save(session *model.Session) {
	payload, err := json.Marshal(session)
	if err != nil {
		slog.Error("encode service session", "error", err)
		return
	}
	s.storage.SetItem(s.key, string(payload))
}

func (s *ServiceSession) expiry(session *model.Session) time.Time {
	if expiry := session.Expiry(); !expiry.IsZero() {
		return expiry
	}
	return tokenExpiry(session.AccessToken)
}

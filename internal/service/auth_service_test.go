package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-lms/internal/model"
	"go-lms/pkg/apierror"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

type stubRecovery struct {
	session *model.Session
	err     error
}

func (s stubRecovery) VerifyRecovery(context.Context, string) (*model.Session, error) {
	return s.session, s.err
}

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthServiceValidateToken(t *testing.T) {
	t.Parallel()

	svc, err := NewAuthService(testSecret, stubRecovery{})
	require.NoError(t, err)

	t.Run("valid platform token", func(t *testing.T) {
		token := signTestToken(t, testSecret, jwt.MapClaims{
			"sub":           "user-1",
			"email":         "learner@example.com",
			"aud":           "authenticated",
			"role":          "authenticated",
			"exp":           time.Now().Add(time.Hour).Unix(),
			"user_metadata": map[string]any{"is_admin": true},
			"app_metadata":  map[string]any{"provider": "email"},
		})

		user, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "learner@example.com", user.Email)
		assert.Equal(t, true, user.UserMetadata["is_admin"])
		assert.Equal(t, token, user.AccessToken)
	})

	tests := []struct {
		name     string
		secret   string
		claims   jwt.MapClaims
		wantCode string
	}{
		{
			name:     "expired",
			secret:   testSecret,
			claims:   jwt.MapClaims{"sub": "u", "aud": "authenticated", "exp": time.Now().Add(-time.Minute).Unix()},
			wantCode: "TOKEN_EXPIRED",
		},
		{
			name:     "wrong secret",
			secret:   "another-secret",
			claims:   jwt.MapClaims{"sub": "u", "aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()},
			wantCode: "UNAUTHORIZED",
		},
		{
			name:     "wrong audience",
			secret:   testSecret,
			claims:   jwt.MapClaims{"sub": "u", "aud": "anon", "exp": time.Now().Add(time.Hour).Unix()},
			wantCode: "UNAUTHORIZED",
		},
		{
			name:     "missing subject",
			secret:   testSecret,
			claims:   jwt.MapClaims{"aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()},
			wantCode: "UNAUTHORIZED",
		},
		{
			name:     "missing expiry",
			secret:   testSecret,
			claims:   jwt.MapClaims{"sub": "u", "aud": "authenticated"},
			wantCode: "UNAUTHORIZED",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ValidateToken(signTestToken(t, tc.secret, tc.claims))
			require.Error(t, err)

			var apiErr *apierror.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.wantCode, apiErr.Code)
			assert.Equal(t, 401, apiErr.HTTPStatus)
		})
	}
}

func TestAuthServiceExchangeRecovery(t *testing.T) {
	t.Parallel()

	svc, err := NewAuthService(testSecret, stubRecovery{session: &model.Session{AccessToken: "at"}})
	require.NoError(t, err)

	_, err = svc.ExchangeRecovery(context.Background(), "")
	require.ErrorIs(t, err, model.ErrInvalidInput)

	session, err := svc.ExchangeRecovery(context.Background(), "hash")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)

	failing, err := NewAuthService(testSecret, stubRecovery{err: errors.New("otp expired")})
	require.NoError(t, err)
	_, err = failing.ExchangeRecovery(context.Background(), "hash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify recovery link")
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewAuthService("", nil)
	require.Error(t, err)
}

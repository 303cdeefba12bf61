package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"go-lms/internal/model"
	"go-lms/pkg/apierror"
)

const platformAudience = "authenticated"

type recoveryVerifier interface {
	VerifyRecovery(ctx context.Context, tokenHash string) (*model.Session, error)
}

// AuthService validates platform-issued access tokens locally with the shared
// JWT secret and exchanges recovery links for sessions.
type AuthService struct {
	jwtSecret []byte
	parser    *jwt.Parser
	recovery  recoveryVerifier
}

func NewAuthService(jwtSecret string, recovery recoveryVerifier) (*AuthService, error) {
	if jwtSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &AuthService{
		jwtSecret: []byte(jwtSecret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(platformAudience),
			jwt.WithExpirationRequired(),
		),
		recovery: recovery,
	}, nil
}

type platformClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateToken(tokenString string) (*model.User, error) {
	var claims platformClaims
	parsed, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierror.TokenExpired("access token has expired")
		}
		return nil, apierror.Unauthorized("invalid token")
	}

	if claims.Subject == "" {
		return nil, apierror.Unauthorized("invalid token subject")
	}

	return &model.User{
		ID:           claims.Subject,
		Email:        claims.Email,
		UserMetadata: claims.UserMetadata,
		AppMetadata:  claims.AppMetadata,
		AccessToken:  tokenString,
	}, nil
}

// ExchangeRecovery trades the token hash from a password-recovery link for a
// session.
func (s *AuthService) ExchangeRecovery(ctx context.Context, tokenHash string) (*model.Session, error) {
	if tokenHash == "" {
		return nil, fmt.Errorf("%w: token_hash is required", model.ErrInvalidInput)
	}
	session, err := s.recovery.VerifyRecovery(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("verify recovery link: %w", err)
	}
	return session, nil
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-lms/internal/claims"
	"go-lms/internal/model"
	"go-lms/internal/session"
	"go-lms/pkg/apierror"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*model.User, error)
}

type contextKey string

const (
	userContextKey   contextKey = "auth_user"
	claimsContextKey contextKey = "auth_claims"
)

type AuthMiddleware struct {
	validator tokenValidator
	resolver  claims.Checker
}

func NewAuthMiddleware(validator tokenValidator, resolver claims.Checker) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, resolver: resolver}
}

// RequireAuth validates the platform access token and attaches the user to
// the request context. The raw token is kept so data access runs as the user.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		token := strings.TrimSpace(header[7:])
		user, err := m.validator.ValidateToken(token)
		if err != nil {
			var apiErr *apierror.APIError
			if errors.As(err, &apiErr) && apiErr.Code == "TOKEN_EXPIRED" {
				writeAuthError(w, http.StatusUnauthorized, apiErr.Code, apiErr.Message)
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}
		user.AccessToken = token

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = session.WithUserToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin resolves claims for the authenticated user and rejects
// non-admins with 403. Resolved claims are cached on the context.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		checker := &recordingChecker{Checker: m.resolver}
		resolved, err := claims.WithAdminCheck(r.Context(), checker, user, func(context.Context) (model.AuthClaims, error) {
			return checker.last, nil
		})
		switch {
		case errors.Is(err, model.ErrUnauthenticated):
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		case err != nil:
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "admin access required")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, resolved)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recordingChecker keeps the claims of the last resolution so the guard
// resolves once per request.
type recordingChecker struct {
	claims.Checker
	last model.AuthClaims
}

func (c *recordingChecker) Resolve(ctx context.Context, user *model.User) model.AuthClaims {
	c.last = c.Checker.Resolve(ctx, user)
	return c.last
}

func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

func ClaimsFromContext(ctx context.Context) (model.AuthClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(model.AuthClaims)
	return claims, ok
}

// WithUser is used by tests and internal callers that authenticate out of band.
func WithUser(ctx context.Context, user *model.User) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	if user != nil && user.AccessToken != "" {
		ctx = session.WithUserToken(ctx, user.AccessToken)
	}
	return ctx
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	writeErrorJSON(w, status, code, message)
}

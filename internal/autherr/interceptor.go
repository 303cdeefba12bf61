// Package autherr classifies data-access failures as authentication failures
// and routes them to the process-wide sign-out handler.
package autherr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"go-lms/internal/model"
)

// ErrSignedOut is matched by every HandledError.
var ErrSignedOut = errors.New("session signed out after authentication failure")

const (
	// insufficientPrivilege is the SQLSTATE raised for row-level security violations.
	insufficientPrivilege = "42501"
	// invalidAuthorizationClass covers role and password failures (28000, 28P01).
	invalidAuthorizationClass = "28"
)

var authPatterns = []string{
	"jwt",
	"expired",
	"invalid",
	"unauthorized",
	"pgrst301",
	"rls",
	"policy",
}

type statusCoder interface {
	StatusCode() int
}

type httpStatuser interface {
	HTTPStatusCode() int
}

// IsAuthError reports whether err looks like an authentication failure: a 401
// status anywhere in the chain, or a message matching a known pattern. A 500
// status alone never qualifies. Rejected caller input never qualifies, and
// Postgres errors are judged by SQLSTATE alone.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, model.ErrInvalidInput) || errors.Is(err, model.ErrValidation) {
		return false
	}

	if status, ok := statusOf(err); ok && status == http.StatusUnauthorized {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == insufficientPrivilege || strings.HasPrefix(pgErr.Code, invalidAuthorizationClass)
	}

	message := strings.ToLower(err.Error())
	for _, pattern := range authPatterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}

	return false
}

func statusOf(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	var hs httpStatuser
	if errors.As(err, &hs) {
		return hs.HTTPStatusCode(), true
	}
	return 0, false
}

// Handler is invoked once per intercepted authentication failure and is
// expected to force a sign-out.
type Handler func(ctx context.Context, err error, operation string)

// Interceptor holds at most one registered Handler; the last registration wins.
type Interceptor struct {
	mu      sync.RWMutex
	handler Handler
}

func New() *Interceptor {
	return &Interceptor{}
}

func (i *Interceptor) SetHandler(h Handler) {
	i.mu.Lock()
	i.handler = h
	i.mu.Unlock()
}

// Handle invokes the registered handler when err is an authentication failure
// and reports whether it did so.
func (i *Interceptor) Handle(ctx context.Context, err error, operation string) bool {
	if !IsAuthError(err) {
		return false
	}

	slog.Warn("authentication failure intercepted", "operation", operation, "error", err)

	i.mu.RLock()
	handler := i.handler
	i.mu.RUnlock()

	if handler == nil {
		slog.Warn("no auth error handler registered", "operation", operation)
		return true
	}

	handler(ctx, err, operation)
	return true
}

// HandledError replaces an authentication failure that already triggered a
// sign-out. It unwraps to the original error.
type HandledError struct {
	Operation string
	Err       error
}

func (e *HandledError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, ErrSignedOut)
}

func (e *HandledError) Unwrap() error {
	return e.Err
}

func (e *HandledError) Is(target error) bool {
	return target == ErrSignedOut
}

// SafeQuery runs fn and routes its error through the interceptor. Handled
// failures come back as the zero value and a *HandledError; all other errors
// are returned unchanged.
func SafeQuery[T any](ctx context.Context, i *Interceptor, operation string, fn func(context.Context) (T, error)) (T, error) {
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	var zero T
	if i != nil && i.Handle(ctx, err, operation) {
		return zero, &HandledError{Operation: operation, Err: err}
	}

	return result, err
}

// SafeExec is SafeQuery for operations without a result.
func SafeExec(ctx context.Context, i *Interceptor, operation string, fn func(context.Context) error) error {
	_, err := SafeQuery(ctx, i, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

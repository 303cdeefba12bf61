package autherr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-lms/internal/model"
	"go-lms/internal/platform"
	"go-lms/pkg/apierror"
)

func TestIsAuthError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "status 401", err: &platform.Error{Status: 401, Message: "nope"}, want: true},
		{name: "wrapped status 401", err: fmt.Errorf("fetch: %w", &platform.Error{Status: 401}), want: true},
		{name: "api error 401", err: apierror.Unauthorized("who are you"), want: true},
		{name: "status 500 plain", err: &platform.Error{Status: 500, Message: "database is down"}, want: false},
		{name: "status 404 plain", err: &platform.Error{Status: 404, Message: "row not found"}, want: false},
		{name: "jwt message", err: errors.New("JWT malformed"), want: true},
		{name: "expired message", err: errors.New("token has Expired"), want: true},
		{name: "postgrest code", err: errors.New("pgrst301: something"), want: true},
		{name: "rls message", err: errors.New("blocked by RLS"), want: true},
		{name: "policy message", err: &platform.Error{Status: 500, Message: "violates row-level security policy"}, want: true},
		{name: "pg insufficient privilege", err: &pgconn.PgError{Code: "42501", Message: "permission denied for table courses"}, want: true},
		{name: "pg invalid password", err: &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, want: true},
		{name: "pg bad encoding", err: fmt.Errorf("query courses: %w", &pgconn.PgError{Code: "22021", Message: `invalid byte sequence for encoding "UTF8": 0xff`}), want: false},
		{name: "pg invalid text", err: &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}, want: false},
		{name: "rejected input", err: fmt.Errorf("%w: page range -5--1", model.ErrInvalidInput), want: false},
		{name: "invalid upstream row", err: fmt.Errorf("%w: course \"c1\": title is required", model.ErrValidation), want: false},
		{name: "unrelated", err: errors.New("connection reset by peer"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsAuthError(tc.err))
		})
	}
}

func TestInterceptorHandle(t *testing.T) {
	t.Parallel()

	t.Run("invokes handler for auth failures", func(t *testing.T) {
		i := New()
		var calls []string
		i.SetHandler(func(_ context.Context, _ error, operation string) {
			calls = append(calls, operation)
		})

		handled := i.Handle(context.Background(), &platform.Error{Status: 401}, "courses.list")
		assert.True(t, handled)
		assert.Equal(t, []string{"courses.list"}, calls)
	})

	t.Run("ignores other failures", func(t *testing.T) {
		i := New()
		called := false
		i.SetHandler(func(context.Context, error, string) { called = true })

		handled := i.Handle(context.Background(), errors.New("timeout"), "courses.list")
		assert.False(t, handled)
		assert.False(t, called)
	})

	t.Run("last registration wins", func(t *testing.T) {
		i := New()
		first, second := 0, 0
		i.SetHandler(func(context.Context, error, string) { first++ })
		i.SetHandler(func(context.Context, error, string) { second++ })

		i.Handle(context.Background(), errors.New("JWT expired"), "op")
		assert.Equal(t, 0, first)
		assert.Equal(t, 1, second)
	})
}

func TestSafeQuery(t *testing.T) {
	t.Parallel()

	t.Run("passes results through", func(t *testing.T) {
		got, err := SafeQuery(context.Background(), New(), "op", func(context.Context) (int, error) {
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})

	t.Run("suppresses handled auth errors", func(t *testing.T) {
		i := New()
		signOuts := 0
		i.SetHandler(func(context.Context, error, string) { signOuts++ })
		original := &platform.Error{Status: 401, Code: "bad_jwt"}

		got, err := SafeQuery(context.Background(), i, "profile.get", func(context.Context) (*string, error) {
			v := "data"
			return &v, original
		})

		assert.Nil(t, got)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSignedOut))
		assert.ErrorIs(t, err, original)
		assert.Equal(t, 1, signOuts)
	})

	t.Run("propagates unhandled errors unchanged", func(t *testing.T) {
		original := errors.New("connection refused")
		_, err := SafeQuery(context.Background(), New(), "op", func(context.Context) (int, error) {
			return 0, original
		})
		assert.Same(t, original, err)
	})

	t.Run("exec variant", func(t *testing.T) {
		err := SafeExec(context.Background(), New(), "op", func(context.Context) error {
			return errors.New("policy violation")
		})
		assert.ErrorIs(t, err, ErrSignedOut)
	})
}

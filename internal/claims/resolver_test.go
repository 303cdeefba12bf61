package claims

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-lms/internal/model"
)

type MockProfileLookup struct {
	mock.Mock
}

func (m *MockProfileLookup) IsAdmin(ctx context.Context, user *model.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

type MockMetadataWriter struct {
	mock.Mock
}

func (m *MockMetadataWriter) UpdateUserMetadata(ctx context.Context, accessToken string, data map[string]any) (*model.User, error) {
	args := m.Called(ctx, accessToken, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("explicit false in user metadata skips the database", func(t *testing.T) {
		lookup := new(MockProfileLookup)
		writer := new(MockMetadataWriter)
		r := NewResolver(lookup, writer)
		user := &model.User{ID: "u1", Email: "a@example.com", UserMetadata: map[string]any{"is_admin": false}}

		claims := r.Resolve(context.Background(), user)

		assert.Equal(t, model.AuthClaims{IsAdmin: false, Role: "user", UserID: "u1", Email: "a@example.com"}, claims)
		lookup.AssertNumberOfCalls(t, "IsAdmin", 0)
		writer.AssertNumberOfCalls(t, "UpdateUserMetadata", 0)
	})

	t.Run("app metadata admin role skips the database", func(t *testing.T) {
		lookup := new(MockProfileLookup)
		r := NewResolver(lookup, nil)
		user := &model.User{ID: "u1", AppMetadata: map[string]any{"role": "admin"}}

		claims := r.Resolve(context.Background(), user)

		assert.True(t, claims.IsAdmin)
		assert.Equal(t, "admin", claims.Role)
		lookup.AssertNumberOfCalls(t, "IsAdmin", 0)
	})

	t.Run("database answer is synced back once", func(t *testing.T) {
		lookup := new(MockProfileLookup)
		writer := new(MockMetadataWriter)
		r := NewResolver(lookup, writer)
		user := &model.User{ID: "u1", AccessToken: "user-at", AppMetadata: map[string]any{"role": "authenticated"}}

		lookup.On("IsAdmin", mock.Anything, user).Return(true, nil).Once()
		writer.On("UpdateUserMetadata", mock.Anything, "user-at", map[string]any{"is_admin": true, "role": "admin"}).
			Return(&model.User{ID: "u1"}, nil).Once()

		claims := r.Resolve(context.Background(), user)
		r.Wait()

		assert.True(t, claims.IsAdmin)
		lookup.AssertExpectations(t)
		writer.AssertExpectations(t)
		writer.AssertNumberOfCalls(t, "UpdateUserMetadata", 1)
	})

	t.Run("sync failure does not change the result", func(t *testing.T) {
		lookup := new(MockProfileLookup)
		writer := new(MockMetadataWriter)
		r := NewResolver(lookup, writer)
		user := &model.User{ID: "u1", AccessToken: "user-at"}

		lookup.On("IsAdmin", mock.Anything, user).Return(false, nil).Once()
		writer.On("UpdateUserMetadata", mock.Anything, "user-at", mock.Anything).Return(nil, errors.New("rate limited")).Once()

		claims := r.Resolve(context.Background(), user)
		r.Wait()

		assert.False(t, claims.IsAdmin)
		assert.Equal(t, "user", claims.Role)
		writer.AssertExpectations(t)
	})

	t.Run("lookup failure fails closed", func(t *testing.T) {
		lookup := new(MockProfileLookup)
		writer := new(MockMetadataWriter)
		r := NewResolver(lookup, writer)
		user := &model.User{ID: "u1", AccessToken: "user-at"}

		lookup.On("IsAdmin", mock.Anything, user).Return(false, errors.New("connection refused")).Once()

		claims := r.Resolve(context.Background(), user)
		r.Wait()

		assert.False(t, claims.IsAdmin)
		writer.AssertNumberOfCalls(t, "UpdateUserMetadata", 0)
	})
}

func TestIsUserAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user *model.User
		want bool
	}{
		{name: "nil user", user: nil, want: false},
		{name: "no metadata", user: &model.User{ID: "u1"}, want: false},
		{name: "user metadata true", user: &model.User{UserMetadata: map[string]any{"is_admin": true}}, want: true},
		{name: "user metadata string", user: &model.User{UserMetadata: map[string]any{"is_admin": "true"}}, want: true},
		{name: "user metadata false wins over app role", user: &model.User{
			UserMetadata: map[string]any{"is_admin": false},
			AppMetadata:  map[string]any{"role": "admin"},
		}, want: false},
		{name: "app metadata admin", user: &model.User{AppMetadata: map[string]any{"role": "admin"}}, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUserAdmin(tc.user))
		})
	}
}

func TestWithAdminCheck(t *testing.T) {
	t.Parallel()

	r := NewResolver(new(MockProfileLookup), nil)

	t.Run("nil user never runs op", func(t *testing.T) {
		called := false
		_, err := WithAdminCheck(context.Background(), r, nil, func(context.Context) (string, error) {
			called = true
			return "ok", nil
		})
		require.ErrorIs(t, err, model.ErrUnauthenticated)
		assert.False(t, called)
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		user := &model.User{ID: "u1", UserMetadata: map[string]any{"is_admin": false}}
		_, err := WithAdminCheck(context.Background(), r, user, func(context.Context) (string, error) {
			return "ok", nil
		})
		require.ErrorIs(t, err, model.ErrAdminRequired)
	})

	t.Run("admin runs op", func(t *testing.T) {
		user := &model.User{ID: "u1", UserMetadata: map[string]any{"is_admin": true}}
		got, err := WithAdminCheck(context.Background(), r, user, func(context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	})

	t.Run("accepts any checker", func(t *testing.T) {
		user := &model.User{ID: "u1"}
		got, err := WithAdminCheck(context.Background(), fixedChecker{admin: true}, user, func(context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)

		_, err = WithAdminCheck(context.Background(), fixedChecker{}, user, func(context.Context) (string, error) {
			return "ok", nil
		})
		require.ErrorIs(t, err, model.ErrAdminRequired)
	})
}

type fixedChecker struct{ admin bool }

func (f fixedChecker) Resolve(_ context.Context, user *model.User) model.AuthClaims {
	return model.NewAuthClaims(user, f.admin)
}

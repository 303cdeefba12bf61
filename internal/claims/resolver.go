// Package claims derives authorization claims for a user from the cheapest
// source that can answer: embedded user metadata, embedded app metadata and
// finally the profiles table.
package claims

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go-lms/internal/model"
)

const defaultSyncTimeout = 10 * time.Second

// ProfileLookup reads the authoritative admin flag.
type ProfileLookup interface {
	IsAdmin(ctx context.Context, user *model.User) (bool, error)
}

// MetadataWriter stores claims back into the user's platform metadata.
type MetadataWriter interface {
	UpdateUserMetadata(ctx context.Context, accessToken string, data map[string]any) (*model.User, error)
}

// Strategy reports claims for user, or ok=false when the source has no answer.
type Strategy func(ctx context.Context, user *model.User) (claims model.AuthClaims, ok bool)

// FirstSuccess runs strategies in order and returns the first answer.
func FirstSuccess(strategies ...Strategy) Strategy {
	return func(ctx context.Context, user *model.User) (model.AuthClaims, bool) {
		for _, strategy := range strategies {
			if claims, ok := strategy(ctx, user); ok {
				return claims, true
			}
		}
		return model.AuthClaims{}, false
	}
}

// FromUserMetadata answers whenever user_metadata carries is_admin, including false.
func FromUserMetadata(_ context.Context, user *model.User) (model.AuthClaims, bool) {
	isAdmin, ok := metadataFlag(user.UserMetadata, "is_admin")
	if !ok {
		return model.AuthClaims{}, false
	}
	return model.NewAuthClaims(user, isAdmin), true
}

// FromAppMetadata answers only for an explicit admin role.
func FromAppMetadata(_ context.Context, user *model.User) (model.AuthClaims, bool) {
	role, _ := user.AppMetadata["role"].(string)
	if !strings.EqualFold(role, model.RoleAdmin) {
		return model.AuthClaims{}, false
	}
	return model.NewAuthClaims(user, true), true
}

type Resolver struct {
	lookup      ProfileLookup
	writer      MetadataWriter
	resolve     Strategy
	syncTimeout time.Duration

	pending sync.WaitGroup
}

func NewResolver(lookup ProfileLookup, writer MetadataWriter) *Resolver {
	r := &Resolver{
		lookup:      lookup,
		writer:      writer,
		syncTimeout: defaultSyncTimeout,
	}
	r.resolve = FirstSuccess(FromUserMetadata, FromAppMetadata, r.fromDatabase)
	return r
}

// Resolve returns claims for user. It never fails: a database error yields
// non-admin claims.
func (r *Resolver) Resolve(ctx context.Context, user *model.User) model.AuthClaims {
	if user == nil {
		return model.NewAuthClaims(nil, false)
	}
	claims, ok := r.resolve(ctx, user)
	if !ok {
		return model.NewAuthClaims(user, false)
	}
	return claims
}

// Wait blocks until background metadata syncs have finished.
func (r *Resolver) Wait() {
	r.pending.Wait()
}

func (r *Resolver) fromDatabase(ctx context.Context, user *model.User) (model.AuthClaims, bool) {
	if r.lookup == nil {
		return model.NewAuthClaims(user, false), true
	}

	isAdmin, err := r.lookup.IsAdmin(ctx, user)
	if err != nil {
		slog.Warn("admin lookup failed, defaulting to non-admin", "user_id", user.ID, "error", err)
		return model.NewAuthClaims(user, false), true
	}

	claims := model.NewAuthClaims(user, isAdmin)
	r.syncUserClaims(ctx, user, claims)
	return claims, true
}

// syncUserClaims writes claims into user metadata in the background so later
// resolutions stop at the first strategy.
func (r *Resolver) syncUserClaims(ctx context.Context, user *model.User, claims model.AuthClaims) {
	if r.writer == nil || user.AccessToken == "" {
		return
	}

	syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.syncTimeout)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		defer cancel()
		defer func() {
			if recovered := recover(); recovered != nil {
				slog.Error("claims sync panicked", "user_id", user.ID, "error", fmt.Sprintf("%v", recovered))
			}
		}()

		data := map[string]any{"is_admin": claims.IsAdmin, "role": claims.Role}
		if _, err := r.writer.UpdateUserMetadata(syncCtx, user.AccessToken, data); err != nil {
			slog.Error("failed to sync user claims", "user_id", user.ID, "error", err)
			return
		}
		slog.Debug("user claims synced", "user_id", user.ID, "is_admin", claims.IsAdmin)
	}()
}

// IsUserAdmin checks embedded metadata only. It performs no I/O.
func IsUserAdmin(user *model.User) bool {
	if user == nil {
		return false
	}
	if claims, ok := FromUserMetadata(context.Background(), user); ok {
		return claims.IsAdmin
	}
	_, ok := FromAppMetadata(context.Background(), user)
	return ok
}

// Checker resolves claims for a user. *Resolver satisfies it.
type Checker interface {
	Resolve(ctx context.Context, user *model.User) model.AuthClaims
}

// WithAdminCheck runs op only for a fully resolved admin.
func WithAdminCheck[T any](ctx context.Context, r Checker, user *model.User, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if user == nil {
		return zero, model.ErrUnauthenticated
	}
	if !r.Resolve(ctx, user).IsAdmin {
		return zero, model.ErrAdminRequired
	}
	return op(ctx)
}

func metadataFlag(metadata map[string]any, key string) (bool, bool) {
	raw, ok := metadata[key]
	if !ok || raw == nil {
		return false, false
	}
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

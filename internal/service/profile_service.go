package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go-lms/internal/autherr"
	"go-lms/internal/claims"
	"go-lms/internal/model"
	"go-lms/pkg/apierror"
)

const maxDisplayNameLength = 80

type ProfileStore interface {
	Profile(ctx context.Context, user *model.User) (model.Profile, error)
	UpdateDisplayName(ctx context.Context, user *model.User, displayName string) (model.Profile, error)
}

type ProfileService struct {
	store       ProfileStore
	resolver    *claims.Resolver
	interceptor *autherr.Interceptor
}

func NewProfileService(store ProfileStore, resolver *claims.Resolver, interceptor *autherr.Interceptor) *ProfileService {
	return &ProfileService{store: store, resolver: resolver, interceptor: interceptor}
}

func (s *ProfileService) GetProfile(ctx context.Context, user *model.User) (model.Profile, error) {
	if user == nil {
		return model.Profile{}, model.ErrUnauthenticated
	}
	profile, err := autherr.SafeQuery(ctx, s.interceptor, "load profile", func(ctx context.Context) (model.Profile, error) {
		return s.store.Profile(ctx, user)
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	profile.Level = LevelFor(profile.TotalXP).Level
	return profile, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, user *model.User, req model.UpdateProfileRequest) (model.Profile, error) {
	if user == nil {
		return model.Profile{}, model.ErrUnauthenticated
	}

	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return model.Profile{}, apierror.BadRequest("display_name is required", "")
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return model.Profile{}, apierror.BadRequest("display_name is too long", fmt.Sprintf("max %d characters", maxDisplayNameLength))
	}

	profile, err := autherr.SafeQuery(ctx, s.interceptor, "update profile", func(ctx context.Context) (model.Profile, error) {
		return s.store.UpdateDisplayName(ctx, user, name)
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	profile.Level = LevelFor(profile.TotalXP).Level
	return profile, nil
}

func (s *ProfileService) Claims(ctx context.Context, user *model.User) (model.AuthClaims, error) {
	if user == nil {
		return model.AuthClaims{}, model.ErrUnauthenticated
	}
	return s.resolver.Resolve(ctx, user), nil
}

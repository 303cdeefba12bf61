package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"

	"go-lms/internal/autherr"
	"go-lms/internal/model"
	"go-lms/internal/session"
)

const (
	permissionsRPC        = "get_user_permissions"
	tokenAttachmentBudget = 2000 * time.Millisecond
)

// BasePermissions is what every signed-in member holds, and what callers get
// when the role lookup cannot be completed.
var BasePermissions = []string{"courses:read", "profile:write", "progress:write"}

type rpcCaller interface {
	CallRPC(ctx context.Context, accessToken string, fn string, params any, out any) error
}

type serviceTokenSource interface {
	session.Stored
	AccessToken(ctx context.Context) (string, error)
}

type PermissionService struct {
	rpc         rpcCaller
	tokens      serviceTokenSource
	interceptor *autherr.Interceptor
	budget      time.Duration
}

func NewPermissionService(rpc rpcCaller, tokens serviceTokenSource, interceptor *autherr.Interceptor) *PermissionService {
	return &PermissionService{rpc: rpc, tokens: tokens, interceptor: interceptor, budget: tokenAttachmentBudget}
}

// Permissions never fails: any lookup problem yields BasePermissions.
func (s *PermissionService) Permissions(ctx context.Context, user *model.User) []string {
	if user == nil {
		return nil
	}

	if !session.WaitForTokenAttachment(ctx, s.tokens, s.budget) {
		slog.Warn("service session not ready, using base permissions", "user_id", user.ID)
		return base()
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		slog.Warn("service token unavailable, using base permissions", "user_id", user.ID, "error", err)
		return base()
	}

	granted, err := autherr.SafeQuery(session.AsService(ctx), s.interceptor, "load permissions", func(ctx context.Context) ([]string, error) {
		var out []string
		err := s.rpc.CallRPC(ctx, token, permissionsRPC, map[string]string{"p_user_id": user.ID}, &out)
		return out, err
	})
	if err != nil {
		slog.Warn("permission lookup failed, using base permissions", "user_id", user.ID, "error", err)
		return base()
	}

	merged := lo.Union(BasePermissions, lo.Compact(granted))
	slices.Sort(merged)
	return merged
}

func base() []string {
	return slices.Clone(BasePermissions)
}

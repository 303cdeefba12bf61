package session

import (
	"context"
	"log/slog"
	"time"

	"go-lms/internal/autherr"
)

type contextKey string

const userTokenKey contextKey = "user_access_token"

// WithUserToken marks ctx as acting on behalf of an end user.
func WithUserToken(ctx context.Context, accessToken string) context.Context {
	return context.WithValue(ctx, userTokenKey, accessToken)
}

// AsService marks ctx as acting with the service session, hiding any user
// token set further up.
func AsService(ctx context.Context) context.Context {
	return context.WithValue(ctx, userTokenKey, "")
}

func UserTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(userTokenKey).(string)
	return token, ok && token != ""
}

// SignOutObserver receives "user" or "service" for every forced sign-out.
type SignOutObserver func(scope string)

// Lifecycle owns the process's single auth-error handler registration and the
// single token monitor. Start and Stop bracket the server run.
type Lifecycle struct {
	interceptor *autherr.Interceptor
	monitor     *Monitor
	service     *ServiceSession
	auth        AuthAPI
	observe     SignOutObserver
}

func NewLifecycle(interceptor *autherr.Interceptor, monitor *Monitor, service *ServiceSession, auth AuthAPI, observe SignOutObserver) *Lifecycle {
	if observe == nil {
		observe = func(string) {}
	}
	return &Lifecycle{
		interceptor: interceptor,
		monitor:     monitor,
		service:     service,
		auth:        auth,
		observe:     observe,
	}
}

func (l *Lifecycle) Start(ctx context.Context) {
	l.interceptor.SetHandler(l.forceSignOut)

	if !l.service.Configured() {
		slog.Warn("service credentials not configured; storage and RPC features are disabled")
		return
	}

	l.monitor.Start(ctx)
	go func() {
		if _, err := l.service.CurrentSession(ctx); err != nil {
			slog.Error("initial service sign-in failed", "error", err)
		}
	}()
}

func (l *Lifecycle) Stop() {
	l.monitor.Stop()
	l.interceptor.SetHandler(nil)
}

// forceSignOut revokes the end user's session when the failure happened on
// their behalf, and the service session otherwise.
func (l *Lifecycle) forceSignOut(ctx context.Context, err error, operation string) {
	signOutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if token, ok := UserTokenFrom(ctx); ok {
		if signOutErr := l.auth.SignOut(signOutCtx, token); signOutErr != nil {
			slog.Warn("user sign-out failed", "operation", operation, "error", signOutErr)
		}
		slog.Info("user session revoked after auth failure", "operation", operation, "cause", err)
		l.observe("user")
		return
	}

	l.service.SignOut(signOutCtx)
	slog.Info("service session reset after auth failure", "operation", operation, "cause", err)
	l.observe("service")
}

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-lms/internal/model"
)

const (
	DefaultCheckInterval    = 5 * time.Minute
	DefaultRefreshThreshold = 300 * time.Second
	attachPollInterval      = 100 * time.Millisecond
)

// Source is what the monitor inspects and refreshes.
type Source interface {
	CurrentSession(ctx context.Context) (*model.Session, error)
	Refresh(ctx context.Context) (*model.Session, error)
}

// RefreshObserver receives "success", "failure" or "skipped" for every tick.
type RefreshObserver func(result string)

// Monitor proactively refreshes the session shortly before it expires. It is
// best-effort: failures are logged and the next tick tries again.
type Monitor struct {
	source    Source
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	observe   RefreshObserver

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type MonitorOption func(*Monitor)

func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithThreshold(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.threshold = d
		}
	}
}

func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.now = now
	}
}

func WithRefreshObserver(fn RefreshObserver) MonitorOption {
	return func(m *Monitor) {
		m.observe = fn
	}
}

func NewMonitor(source Source, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		source:    source,
		interval:  DefaultCheckInterval,
		threshold: DefaultRefreshThreshold,
		now:       time.Now,
		observe:   func(string) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins periodic checks. Starting an already running monitor replaces
// the previous timer.
func (m *Monitor) Start(ctx context.Context) {
	m.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go m.run(runCtx, done)
	slog.Info("token monitor started", "interval", m.interval, "threshold", m.threshold)
}

// Stop cancels the timer. It is safe to call when the monitor is not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("token monitor stopped")
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one tick: refresh when the session expires within the threshold.
func (m *Monitor) Check(ctx context.Context) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Error("token monitor tick panicked", "error", fmt.Sprintf("%v", recovered))
			m.observe("failure")
		}
	}()

	current, err := m.source.CurrentSession(ctx)
	if err != nil {
		slog.Warn("token monitor could not read session", "error", err)
		m.observe("skipped")
		return
	}
	if current == nil {
		slog.Debug("token monitor found no session")
		m.observe("skipped")
		return
	}

	expiry := current.Expiry()
	if expiry.IsZero() {
		expiry = tokenExpiry(current.AccessToken)
	}
	if expiry.IsZero() || expiry.Sub(m.now()) > m.threshold {
		return
	}

	slog.Info("session expiring soon, refreshing", "expires_at", expiry)
	if _, err := m.source.Refresh(ctx); err != nil {
		slog.Error("token refresh failed", "error", err)
		m.observe("failure")
		return
	}

	slog.Info("token refreshed")
	m.observe("success")
}

// Stored is implemented by sources that can report their session without I/O.
type Stored interface {
	StoredSession() *model.Session
}

// WaitForTokenAttachment polls every 100ms until src holds a session with an
// access token. It gives up and returns false once budget or ctx runs out.
func WaitForTokenAttachment(ctx context.Context, src Stored, budget time.Duration) bool {
	if hasToken(src.StoredSession()) {
		return true
	}

	deadline := time.NewTimer(budget)
	defer deadline.Stop()
	ticker := time.NewTicker(attachPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
			if hasToken(src.StoredSession()) {
				return true
			}
		}
	}
}

func hasToken(s *model.Session) bool {
	return s != nil && s.AccessToken != ""
}

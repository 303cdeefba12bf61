package session

import (
	"log/slog"
	"strconv"
)

// RememberMeKey holds the persisted remember-me preference in the durable backend.
const RememberMeKey = "lms-remember-me"

// Storage is the synchronous key-value surface the session code stores into.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key string, value string)
	RemoveItem(key string)
	Clear()
	Key(index int) (string, bool)
	Length() int
}

// Adapter places items in the durable backend when remember-me is on and in
// the session-scoped backend otherwise. Backend failures are swallowed.
type Adapter struct {
	durable  Backend
	volatile Backend
}

func NewAdapter(durable Backend, volatile Backend) *Adapter {
	return &Adapter{durable: durable, volatile: volatile}
}

// RememberMe defaults to true when the preference is absent or unreadable.
func (a *Adapter) RememberMe() bool {
	raw, ok, err := a.durable.Get(RememberMeKey)
	if err != nil || !ok {
		return true
	}
	remember, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return remember
}

func (a *Adapter) SetRememberMe(remember bool) {
	if err := a.durable.Set(RememberMeKey, strconv.FormatBool(remember)); err != nil {
		slog.Debug("remember-me preference not persisted", "error", err)
	}
}

func (a *Adapter) backends() (preferred Backend, other Backend) {
	if a.RememberMe() {
		return a.durable, a.volatile
	}
	return a.volatile, a.durable
}

// GetItem falls back to the non-preferred backend so a preference change
// during a running session still finds the stored value.
func (a *Adapter) GetItem(key string) (string, bool) {
	preferred, other := a.backends()

	if v, ok, err := preferred.Get(key); err == nil && ok {
		return v, true
	} else if err != nil {
		slog.Debug("storage read failed", "key", key, "error", err)
	}

	if v, ok, err := other.Get(key); err == nil && ok {
		return v, true
	} else if err != nil {
		slog.Debug("storage read failed", "key", key, "error", err)
	}

	return "", false
}

func (a *Adapter) SetItem(key string, value string) {
	preferred, other := a.backends()

	if err := preferred.Set(key, value); err != nil {
		slog.Debug("storage write failed", "key", key, "error", err)
	}
	if err := other.Delete(key); err != nil {
		slog.Debug("storage cleanup failed", "key", key, "error", err)
	}
}

func (a *Adapter) RemoveItem(key string) {
	for _, b := range []Backend{a.durable, a.volatile} {
		if err := b.Delete(key); err != nil {
			slog.Debug("storage delete failed", "key", key, "error", err)
		}
	}
}

// Clear removes every item from both backends except the remember-me preference.
func (a *Adapter) Clear() {
	for _, b := range []Backend{a.durable, a.volatile} {
		keys, err := b.Keys()
		if err != nil {
			slog.Debug("storage clear failed", "error", err)
			continue
		}
		for _, k := range keys {
			if k == RememberMeKey {
				continue
			}
			_ = b.Delete(k)
		}
	}
}

func (a *Adapter) Key(index int) (string, bool) {
	keys := a.visibleKeys()
	if index < 0 || index >= len(keys) {
		return "", false
	}
	return keys[index], true
}

func (a *Adapter) Length() int {
	return len(a.visibleKeys())
}

func (a *Adapter) visibleKeys() []string {
	preferred, _ := a.backends()
	keys, err := preferred.Keys()
	if err != nil {
		return nil
	}

	out := keys[:0]
	for _, k := range keys {
		if k != RememberMeKey {
			out = append(out, k)
		}
	}
	return out
}

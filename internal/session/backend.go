// Package session keeps the service's platform session: where it is stored,
// how it is refreshed, and how it is torn down after authentication failures.
package session

import (
	"sort"
	"sync"
)

// Backend is a string key-value store. Durable backends survive a process
// restart; session-scoped backends live as long as the process.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key string, value string) error
	Delete(key string) error
	Keys() ([]string, error)
	Clear() error
}

// MemoryBackend is the session-scoped backend.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: map[string]string{}}
}

func (b *MemoryBackend) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.items[key]
	return v, ok, nil
}

func (b *MemoryBackend) Set(key string, value string) error {
	b.mu.Lock()
	b.items[key] = value
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Keys() ([]string, error) {
	b.mu.RLock()
	keys := make([]string, 0, len(b.items))
	for k := range b.items {
		keys = append(keys, k)
	}
	b.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

func (b *MemoryBackend) Clear() error {
	b.mu.Lock()
	b.items = map[string]string{}
	b.mu.Unlock()
	return nil
}

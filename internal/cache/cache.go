package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache defines a generic keyed cache
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Len() int
}

// Cleaner is implemented by caches whose entries expire
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup for a set of caches
type Manager struct {
	caches []Cleaner
	done   chan struct{}
}

func NewManager(caches ...Cleaner) *Manager {
	return &Manager{caches: caches}
}

// Register adds a cache to the manager. Call before Start.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Start cleans expired entries every interval until ctx is cancelled.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.CleanAll(); n > 0 {
					slog.DebugContext(ctx, "Cleaned expired cache entries", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Wait blocks until the cleanup goroutine started by Start has returned.
func (m *Manager) Wait() {
	if m.done != nil {
		<-m.done
	}
}

// CleanAll removes expired entries from every registered cache.
func (m *Manager) CleanAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

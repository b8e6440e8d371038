package storage

import (
	"context"
	"sync"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Useful for testing and development.
type MemoryStore struct {
	mu      sync.RWMutex
	threads comment.Threads
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(comment.Threads),
	}
}

// Load returns a copy of the stored mapping.
func (m *MemoryStore) Load(_ context.Context) (comment.Threads, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.threads.Clone(), nil
}

// Save replaces the stored mapping with a copy of threads.
func (m *MemoryStore) Save(_ context.Context, threads comment.Threads) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if threads == nil {
		threads = comment.Threads{}
	}

	m.threads = threads.Clone()

	return nil
}

// Append adds c to its node's thread.
func (m *MemoryStore) Append(_ context.Context, c comment.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.threads.Append(c.Clone())

	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

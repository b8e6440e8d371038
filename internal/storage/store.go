package storage

import (
	"context"
	"errors"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
)

// Common errors.
var (
	ErrRead          = errors.New("comment store read failed")
	ErrWrite         = errors.New("comment store write failed")
	ErrCorrupt       = errors.New("comment store is corrupt")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Store defines the interface for persisting comment threads.
// Implementations can use a JSON file, SQLite, Redis, or memory.
type Store interface {
	// Load returns the full node-to-comments mapping.
	// An empty store yields an empty mapping and no error.
	// Failures wrap ErrRead.
	Load(ctx context.Context) (comment.Threads, error)

	// Save replaces the full mapping.
	// Failures wrap ErrWrite.
	Save(ctx context.Context, threads comment.Threads) error

	// Append adds a top-level comment to the end of its node's thread.
	// Failures wrap ErrRead or ErrWrite depending on the step that failed.
	Append(ctx context.Context, c comment.Comment) error

	// Close releases any resources held by the store.
	Close() error
}

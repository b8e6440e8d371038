package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
)

// FileStore keeps the whole mapping in a single JSON document.
// Every Load reads the file in full and every Save rewrites it in full.
// FileStore does no locking of its own: Append is an unsynchronized
// read-modify-write cycle, so concurrent writers must be serialized by the caller.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the JSON file at path.
// The file and its directory are created on the first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the backing file.
// A missing or empty file yields an empty mapping.
func (f *FileStore) Load(ctx context.Context) (comment.Threads, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return comment.Threads{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	return decodeThreads(data)
}

// Save encodes threads and atomically replaces the backing file.
func (f *FileStore) Save(ctx context.Context, threads comment.Threads) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	if threads == nil {
		threads = comment.Threads{}
	}

	data, err := json.MarshalIndent(threads, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWrite, err)
	}

	if err := writeFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

// Append loads the mapping, adds c, and saves the mapping back.
func (f *FileStore) Append(ctx context.Context, c comment.Comment) error {
	threads, err := f.Load(ctx)
	if err != nil {
		return err
	}

	threads.Append(c)

	return f.Save(ctx, threads)
}

// Close is a no-op.
func (f *FileStore) Close() error {
	return nil
}

func decodeThreads(data []byte) (comment.Threads, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return comment.Threads{}, nil
	}

	var threads comment.Threads
	if err := json.Unmarshal(data, &threads); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrRead, ErrCorrupt, err)
	}

	if threads == nil {
		threads = comment.Threads{}
	}

	if err := threads.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrRead, ErrCorrupt, err)
	}

	return threads, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	_ = tmp.Chmod(0o644)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("replace file: %w", err)
	}

	return nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

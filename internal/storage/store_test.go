package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"github.com/Keekuun/nexus-studio-sub001/internal/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

// backends returns a constructor for every Store implementation.
func backends() map[string]func(t *testing.T) storage.Store {
	return map[string]func(t *testing.T) storage.Store{
		"memory": func(_ *testing.T) storage.Store {
			return storage.NewMemoryStore()
		},
		"file": func(t *testing.T) storage.Store {
			return storage.NewFileStore(filepath.Join(t.TempDir(), "comments.json"))
		},
		"sqlite": func(t *testing.T) storage.Store {
			s, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "comments.db"))
			require.NoError(t, err)

			return s
		},
		"redis": func(t *testing.T) storage.Store {
			mr := miniredis.RunT(t)

			s, err := storage.NewRedisStore("redis://" + mr.Addr())
			require.NoError(t, err)

			return s
		},
	}
}

func newComment(t *testing.T, nodeID, content string) comment.Comment {
	t.Helper()

	c, err := comment.New(nodeID, content, nil, time.Now())
	require.NoError(t, err)

	return c
}

func TestStore_Contract(t *testing.T) {
	t.Parallel()

	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			t.Run("empty store loads empty mapping", func(t *testing.T) {
				t.Parallel()

				store := open(t)
				defer store.Close()

				threads, err := store.Load(context.Background())
				require.NoError(t, err)
				require.NotNil(t, threads)
				require.Empty(t, threads)
			})

			t.Run("append preserves insertion order", func(t *testing.T) {
				t.Parallel()

				store := open(t)
				defer store.Close()

				ctx := context.Background()
				first := newComment(t, "n1", "first")
				second := newComment(t, "n1", "second")
				other := newComment(t, "n2", "other")

				require.NoError(t, store.Append(ctx, first))
				require.NoError(t, store.Append(ctx, other))
				require.NoError(t, store.Append(ctx, second))

				threads, err := store.Load(ctx)
				require.NoError(t, err)
				require.Equal(t, []comment.Comment{first, second}, threads["n1"])
				require.Equal(t, []comment.Comment{other}, threads["n2"])
			})

			t.Run("save and load round-trip", func(t *testing.T) {
				t.Parallel()

				store := open(t)
				defer store.Close()

				ctx := context.Background()
				root := newComment(t, "n1", "root")
				root.Replies = []comment.Comment{newComment(t, "n1", "nested reply")}
				root.Author = comment.Author{ID: "u1", Name: "Ada", Avatar: "a.png"}

				want := comment.Threads{
					"n1": {root, newComment(t, "n1", "second")},
					"n2": {newComment(t, "n2", "third")},
				}

				require.NoError(t, store.Save(ctx, want))

				got, err := store.Load(ctx)
				require.NoError(t, err)
				require.Equal(t, want, got)
			})

			t.Run("save keeps nodes without comments", func(t *testing.T) {
				t.Parallel()

				store := open(t)
				defer store.Close()

				ctx := context.Background()
				kept := newComment(t, "n2", "kept")
				want := comment.Threads{"n1": {}, "n2": {kept}}

				require.NoError(t, store.Save(ctx, want))

				got, err := store.Load(ctx)
				require.NoError(t, err)
				require.Equal(t, want, got)
				require.NotNil(t, got["n1"])

				require.NoError(t, store.Append(ctx, newComment(t, "n1", "first")))

				got, err = store.Load(ctx)
				require.NoError(t, err)
				require.Len(t, got["n1"], 1)
			})

			t.Run("save replaces previous state", func(t *testing.T) {
				t.Parallel()

				store := open(t)
				defer store.Close()

				ctx := context.Background()
				require.NoError(t, store.Append(ctx, newComment(t, "old", "gone")))

				keep := newComment(t, "new", "kept")
				require.NoError(t, store.Save(ctx, comment.Threads{"new": {keep}}))

				got, err := store.Load(ctx)
				require.NoError(t, err)
				require.Equal(t, comment.Threads{"new": {keep}}, got)
			})

			t.Run("load returns an independent copy", func(t *testing.T) {
				t.Parallel()

				store := open(t)
				defer store.Close()

				ctx := context.Background()
				require.NoError(t, store.Append(ctx, newComment(t, "n1", "hello")))

				first, err := store.Load(ctx)
				require.NoError(t, err)

				first["n1"][0].Content = "mutated"

				second, err := store.Load(ctx)
				require.NoError(t, err)
				require.Equal(t, "hello", second["n1"][0].Content)
			})
		})
	}
}

package storage_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"github.com/Keekuun/nexus-studio-sub001/internal/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSQLiteStore_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "comments.db"))
	require.NoError(t, err)

	defer store.Close()

	ctx := context.Background()

	const writers = 20

	var wg sync.WaitGroup

	for range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := store.Append(ctx, newComment(t, "n1", "hello")); err != nil {
				t.Error(err)
			}
		}()
	}

	wg.Wait()

	threads, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, threads["n1"], writers)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "comments.db")
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(dsn)
	require.NoError(t, err)

	c := newComment(t, "n1", "durable")
	require.NoError(t, store.Append(ctx, c))
	require.NoError(t, store.Close())

	reopened, err := storage.NewSQLiteStore(dsn)
	require.NoError(t, err)

	defer reopened.Close()

	threads, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []comment.Comment{c}, threads["n1"])
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	store, err := storage.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)

	defer store.Close()

	_, err = mr.SAdd("comments:nodes", "n1")
	require.NoError(t, err)

	_, err = mr.Push("comments:node:n1", "{not json")
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.ErrorIs(t, err, storage.ErrRead)
	require.ErrorIs(t, err, storage.ErrCorrupt)
}

func TestRedisStore_Unreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()

	store, err := storage.NewRedisStore("redis://" + addr)
	require.NoError(t, err)

	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))

	mr.Close()

	_, err = store.Load(context.Background())
	require.ErrorIs(t, err, storage.ErrRead)

	err = store.Append(context.Background(), newComment(t, "n1", "lost"))
	require.ErrorIs(t, err, storage.ErrWrite)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	t.Parallel()

	_, err := storage.NewRedisStore("not-a-url://")
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("file is the default driver", func(t *testing.T) {
		t.Parallel()

		store, err := storage.Open(storage.Options{Path: filepath.Join(t.TempDir(), "c.json")})
		require.NoError(t, err)
		require.IsType(t, &storage.FileStore{}, store)
	})

	t.Run("memory", func(t *testing.T) {
		t.Parallel()

		store, err := storage.Open(storage.Options{Driver: storage.DriverMemory})
		require.NoError(t, err)
		require.IsType(t, &storage.MemoryStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()

		store, err := storage.Open(storage.Options{
			Driver: storage.DriverSQLite,
			DSN:    filepath.Join(t.TempDir(), "c.db"),
		})
		require.NoError(t, err)

		defer store.Close()

		require.IsType(t, &storage.SQLiteStore{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)

		store, err := storage.Open(storage.Options{Driver: storage.DriverRedis, RedisURL: "redis://" + mr.Addr()})
		require.NoError(t, err)

		defer store.Close()

		require.IsType(t, &storage.RedisStore{}, store)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()

		_, err := storage.Open(storage.Options{Driver: "mongo"})
		if !errors.Is(err, storage.ErrUnknownDriver) {
			t.Errorf("expected ErrUnknownDriver, got %v", err)
		}
	})
}

func TestExport(t *testing.T) {
	t.Parallel()

	threads := comment.Threads{"n1": {newComment(t, "n1", "hello")}}

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, storage.Export(&buf, threads, storage.FormatJSON))
		require.Contains(t, buf.String(), `"nodeId": "n1"`)
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, storage.Export(&buf, threads, storage.FormatYAML))

		var doc map[string][]map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
		require.Equal(t, "hello", doc["n1"][0]["content"])
		require.Equal(t, "n1", doc["n1"][0]["nodeId"])
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		require.Error(t, storage.Export(&bytes.Buffer{}, threads, "xml"))
	})
}

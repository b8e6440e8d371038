package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "comments:"

// RedisStore keeps one list per node plus a set of known node IDs.
// A node in the set without a list has no comments.
// Appends are a single MULTI/EXEC, so concurrent writers do not lose updates.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis server at redisURL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: defaultRedisPrefix,
	}
}

func (s *RedisStore) nodesKey() string {
	return s.prefix + "nodes"
}

func (s *RedisStore) nodeKey(nodeID string) string {
	return s.prefix + "node:" + nodeID
}

// Load reads every node list.
func (s *RedisStore) Load(ctx context.Context) (comment.Threads, error) {
	nodes, err := s.client.SMembers(ctx, s.nodesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	threads := comment.Threads{}
	if len(nodes) == 0 {
		return threads, nil
	}

	cmds := make(map[string]*redis.StringSliceCmd, len(nodes))

	if _, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, nodeID := range nodes {
			cmds[nodeID] = pipe.LRange(ctx, s.nodeKey(nodeID), 0, -1)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	for nodeID, cmd := range cmds {
		items, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}

		threads[nodeID] = make([]comment.Comment, 0, len(items))

		for _, item := range items {
			var c comment.Comment
			if err := json.Unmarshal([]byte(item), &c); err != nil {
				return nil, fmt.Errorf("%w: %w: %w", ErrRead, ErrCorrupt, err)
			}

			threads[nodeID] = append(threads[nodeID], c)
		}
	}

	if err := threads.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrRead, ErrCorrupt, err)
	}

	return threads, nil
}

// Save replaces every node list in one transaction.
func (s *RedisStore) Save(ctx context.Context, threads comment.Threads) error {
	existing, err := s.client.SMembers(ctx, s.nodesKey()).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	encoded := make(map[string][]any, len(threads))

	for nodeID, comments := range threads {
		items := make([]any, 0, len(comments))

		for _, c := range comments {
			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("%w: encode: %w", ErrWrite, err)
			}

			items = append(items, string(data))
		}

		encoded[nodeID] = items
	}

	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, nodeID := range existing {
			pipe.Del(ctx, s.nodeKey(nodeID))
		}

		pipe.Del(ctx, s.nodesKey())

		for nodeID, items := range encoded {
			if len(items) > 0 {
				pipe.RPush(ctx, s.nodeKey(nodeID), items...)
			}

			pipe.SAdd(ctx, s.nodesKey(), nodeID)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

// Append pushes c onto its node list.
func (s *RedisStore) Append(ctx context.Context, c comment.Comment) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWrite, err)
	}

	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.nodeKey(c.NodeID), string(data))
		pipe.SAdd(ctx, s.nodesKey(), c.NodeID)

		return nil
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

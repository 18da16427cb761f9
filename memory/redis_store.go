package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/config"
	"github.com/BaSui01/crewflow/types"
)

// defaultScanWindow 语义检索时从索引加载的最近候选条数
const defaultScanWindow = 256

// RedisStore is the Redis long-term backend. Entries are stored as JSON
// values keyed by ID, with a sorted set indexing them by write time so
// search only loads a recent window of candidates.
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	scanWindow int
	logger     *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "crewflow:memory:"
	}

	return &RedisStore{
		client:     client,
		keyPrefix:  keyPrefix,
		scanWindow: defaultScanWindow,
		logger:     logger.With(zap.String("component", "memory.redis")),
	}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests and
// callers that manage their own connection pool.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "crewflow:memory:"
	}
	return &RedisStore{
		client:     client,
		keyPrefix:  keyPrefix,
		scanWindow: defaultScanWindow,
		logger:     logger.With(zap.String("component", "memory.redis")),
	}
}

func (s *RedisStore) entryKey(id string) string {
	return s.keyPrefix + "entry:" + id
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "index"
}

// Append persists one entry and indexes it by creation time.
func (s *RedisStore) Append(ctx context.Context, entry *types.MemoryEntry) error {
	if entry == nil || entry.ID == "" {
		return types.NewInvalidRequestError("memory entry has no ID")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.entryKey(entry.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(entry.CreatedAt.UnixNano()),
		Member: entry.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// Search loads the most recent candidates and ranks them in process by
// cosine similarity.
func (s *RedisStore) Search(ctx context.Context, embedding []float64, topK int) ([]*types.MemoryEntry, error) {
	if topK <= 0 {
		return nil, nil
	}

	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, int64(s.scanWindow-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	gets := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		gets[i] = pipe.Get(ctx, s.entryKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	type scored struct {
		entry *types.MemoryEntry
		score float64
	}
	var candidates []scored
	for i, cmd := range gets {
		data, err := cmd.Bytes()
		if err == redis.Nil {
			// Index entry outlived its value; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		var entry types.MemoryEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			s.logger.Warn("skipping undecodable memory entry",
				zap.String("id", ids[i]),
				zap.Error(err))
			continue
		}
		if len(entry.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{entry: &entry, score: Cosine(embedding, entry.Embedding)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.CreatedAt.After(candidates[j].entry.CreatedAt)
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out := make([]*types.MemoryEntry, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.entry)
	}
	return out, nil
}

// Ping checks backend health.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ LongTermStore = (*RedisStore)(nil)

package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/types"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("memory: entry not found")

// DefaultTopK 语义检索默认返回条数
const DefaultTopK = 5

// LongTermStore persists memory entries across runs. Implementations must
// be safe for concurrent use.
type LongTermStore interface {
	// Append persists one entry.
	Append(ctx context.Context, entry *types.MemoryEntry) error

	// Search returns up to topK entries ranked by cosine similarity
	// against the query embedding, most similar first. Entries without
	// an embedding are never returned.
	Search(ctx context.Context, embedding []float64, topK int) ([]*types.MemoryEntry, error)

	// Close releases backend resources.
	Close() error
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// LongTerm is the persistent backend. Nil disables long-term memory.
	LongTerm LongTermStore

	// Embedder produces vectors for entries and queries. Nil disables
	// semantic recall; entries are still kept short-term.
	Embedder Embedder

	// TopK bounds semantic search results. <=0 means DefaultTopK.
	TopK int

	Logger *zap.Logger

	// Now is injectable for tests.
	Now func() time.Time
}

// Store 是一次团队运行面对的统一记忆入口:写入同时落短期与长期,
// 语义检索走长期层,RecallRecent 读短期层
type Store struct {
	shortTerm []*types.MemoryEntry
	longTerm  LongTermStore
	embedder  Embedder
	topK      int
	logger    *zap.Logger
	now       func() time.Time
}

// NewStore creates a memory store.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		longTerm: cfg.LongTerm,
		embedder: cfg.Embedder,
		topK:     topK,
		logger:   logger.With(zap.String("component", "memory")),
		now:      now,
	}
}

// Remember records one entry. The entry always lands in short-term memory;
// long-term scoped entries are also persisted, embedded first when an
// embedder is configured. A long-term write failure is returned wrapped,
// the short-term copy is kept either way.
func (s *Store) Remember(ctx context.Context, entry *types.MemoryEntry) error {
	if entry == nil {
		return types.NewInvalidRequestError("memory entry is nil")
	}
	stored := entry.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.Scope == "" {
		stored.Scope = types.ScopeShortTerm
	}

	s.shortTerm = append(s.shortTerm, stored)

	if stored.Scope != types.ScopeLongTerm || s.longTerm == nil {
		return nil
	}

	if s.embedder != nil && len(stored.Embedding) == 0 {
		vec, err := s.embedder.Embed(ctx, stored.Content)
		if err != nil {
			return types.NewError(types.ErrCodeMemoryStore, "embed entry").WithCause(err)
		}
		stored.Embedding = vec
	}
	if err := s.longTerm.Append(ctx, stored.Clone()); err != nil {
		return types.NewError(types.ErrCodeMemoryStore, "append long-term entry").WithCause(err)
	}
	return nil
}

// RecallRecent returns the last n short-term entries in insertion order,
// oldest first. n<=0 returns all of them.
func (s *Store) RecallRecent(n int) []*types.MemoryEntry {
	entries := s.shortTerm
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]*types.MemoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Clone())
	}
	return out
}

// Search runs semantic recall against long-term memory. It returns nil
// without error when long-term memory or the embedder is absent.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]*types.MemoryEntry, error) {
	if s.longTerm == nil || s.embedder == nil {
		return nil, nil
	}
	if topK <= 0 {
		topK = s.topK
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, types.NewError(types.ErrCodeMemoryStore, "embed query").WithCause(err)
	}
	entries, err := s.longTerm.Search(ctx, vec, topK)
	if err != nil {
		return nil, types.NewError(types.ErrCodeMemoryStore, "search long-term memory").WithCause(err)
	}
	return entries, nil
}

// ResetShortTerm 清空短期记忆,每次运行结束时调用
func (s *Store) ResetShortTerm() {
	s.shortTerm = nil
}

// ShortTermLen returns the number of short-term entries.
func (s *Store) ShortTermLen() int {
	return len(s.shortTerm)
}

// HasLongTerm reports whether a persistent backend is configured.
func (s *Store) HasLongTerm() bool {
	return s.longTerm != nil
}

// Close releases the long-term backend.
func (s *Store) Close() error {
	if s.longTerm == nil {
		return nil
	}
	return s.longTerm.Close()
}

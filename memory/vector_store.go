package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/BaSui01/crewflow/types"
)

// DefaultMaxEntries bounds the in-process store before the oldest entries
// are evicted.
const DefaultMaxEntries = 1024

// VectorStore is the in-process long-term backend: a bounded slice scanned
// with cosine similarity. The default when no external backend is
// configured.
type VectorStore struct {
	mu         sync.RWMutex
	entries    []*types.MemoryEntry
	maxEntries int
}

// NewVectorStore creates an in-process store. maxEntries<=0 means
// DefaultMaxEntries.
func NewVectorStore(maxEntries int) *VectorStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &VectorStore{maxEntries: maxEntries}
}

// Append stores a copy of the entry, evicting the oldest beyond capacity.
func (s *VectorStore) Append(_ context.Context, entry *types.MemoryEntry) error {
	if entry == nil {
		return types.NewInvalidRequestError("memory entry is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry.Clone())
	if overflow := len(s.entries) - s.maxEntries; overflow > 0 {
		s.entries = append([]*types.MemoryEntry(nil), s.entries[overflow:]...)
	}
	return nil
}

// Search ranks stored entries by cosine similarity, most similar first.
// Ties break toward the newer entry.
func (s *VectorStore) Search(_ context.Context, embedding []float64, topK int) ([]*types.MemoryEntry, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry *types.MemoryEntry
		score float64
	}
	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if len(e.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{entry: e, score: Cosine(embedding, e.Embedding)})
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
		out = append(out, c.entry.Clone())
	}
	return out, nil
}

// Len returns the number of stored entries.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the in-process store.
func (s *VectorStore) Close() error {
	return nil
}

// Cosine computes cosine similarity between two vectors. Mismatched or
// zero-length vectors score zero.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ LongTermStore = (*VectorStore)(nil)

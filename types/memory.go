package types

import "time"

// MemoryScope selects which memory layer an operation targets.
type MemoryScope string

const (
	// ScopeShortTerm holds recent task outputs for the current run;
	// cleared when the run ends.
	ScopeShortTerm MemoryScope = "short_term"

	// ScopeLongTerm holds embedded entries retrieved by similarity;
	// survives across runs of the same crew.
	ScopeLongTerm MemoryScope = "long_term"
)

// Valid reports whether s is a known scope.
func (s MemoryScope) Valid() bool {
	return s == ScopeShortTerm || s == ScopeLongTerm
}

// MemoryEntry is one remembered fact. Embedding is populated for long-term
// entries; short-term recall works on recency alone.
type MemoryEntry struct {
	ID         string         `json:"id"`
	Scope      MemoryScope    `json:"scope"`
	Content    string         `json:"content"`
	ProducedBy string         `json:"produced_by,omitempty"`
	AgentID    string         `json:"agent_id,omitempty"`
	Embedding  []float64      `json:"embedding,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Clone returns a deep copy so stores can hand out entries without
// aliasing their internal state. Nil-safe.
func (e *MemoryEntry) Clone() *MemoryEntry {
	if e == nil {
		return nil
	}
	out := *e
	out.Embedding = cloneFloats(e.Embedding)
	out.Metadata = cloneMap(e.Metadata)
	return &out
}

func cloneFloats(src []float64) []float64 {
	if src == nil {
		return nil
	}
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

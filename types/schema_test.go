package types

import (
	"strings"
	"testing"
)

func TestOutputSchemaBuilder(t *testing.T) {
	t.Parallel()

	s := NewOutputSchema("Content").
		AddField("topic", FieldString, true, "what the piece is about").
		AddField("tags", FieldStringList, true, "").
		AddField("score", FieldNumber, false, "")

	if len(s.Fields) != 3 {
		t.Fatalf("Fields = %d", len(s.Fields))
	}

	f, ok := s.Field("tags")
	if !ok || f.Type != FieldStringList || !f.Required {
		t.Fatalf("Field(tags) = %+v %v", f, ok)
	}
	if _, ok := s.Field("missing"); ok {
		t.Fatal("Field(missing) should not resolve")
	}
}

func TestOutputSchemaPromptHint(t *testing.T) {
	t.Parallel()

	s := NewOutputSchema("Content").
		AddField("topic", FieldString, true, "what the piece is about").
		AddField("tags", FieldStringList, false, "")

	hint := s.PromptHint()
	for _, want := range []string{"Content", "topic (string, required)", "what the piece is about", "tags (list<string>)"} {
		if !strings.Contains(hint, want) {
			t.Fatalf("hint missing %q:\n%s", want, hint)
		}
	}

	var nilSchema *OutputSchema
	if nilSchema.PromptHint() != "" {
		t.Fatal("nil schema should render an empty hint")
	}
}

func TestFieldTypeValid(t *testing.T) {
	t.Parallel()

	for _, ft := range []FieldType{FieldString, FieldNumber, FieldInteger, FieldBoolean, FieldStringList} {
		if !ft.Valid() {
			t.Fatalf("%q should be valid", ft)
		}
	}
	if FieldType("object").Valid() {
		t.Fatal("nested objects are not supported")
	}
}

func TestMemoryEntryClone(t *testing.T) {
	t.Parallel()

	entry := MemoryEntry{
		ID:        "m1",
		Scope:     ScopeLongTerm,
		Content:   "solar adoption rose 40%",
		Embedding: []float64{0.1, 0.2},
		Metadata:  map[string]any{"source": "research_task"},
	}

	clone := entry.Clone()
	clone.Embedding[0] = 9.9
	clone.Metadata["source"] = "other"

	if entry.Embedding[0] != 0.1 {
		t.Fatal("clone must not alias the embedding")
	}
	if entry.Metadata["source"] != "research_task" {
		t.Fatal("clone must not alias the metadata")
	}
}

package types

import (
	"fmt"
	"strings"
)

// FieldType enumerates the value types a structured output may declare.
type FieldType string

const (
	FieldString     FieldType = "string"
	FieldNumber     FieldType = "number"
	FieldInteger    FieldType = "integer"
	FieldBoolean    FieldType = "boolean"
	FieldStringList FieldType = "list<string>"
)

// Valid reports whether t is a supported field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldNumber, FieldInteger, FieldBoolean, FieldStringList:
		return true
	}
	return false
}

// SchemaField declares one expected field of a structured output.
type SchemaField struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// OutputSchema is a flat structural contract for a task's output: field
// presence and primitive types only. Validation lives in the schema
// package.
type OutputSchema struct {
	Name   string        `json:"name,omitempty"`
	Fields []SchemaField `json:"fields"`
}

// NewOutputSchema creates an empty schema.
func NewOutputSchema(name string) *OutputSchema {
	return &OutputSchema{Name: name}
}

// AddField appends a field declaration and returns the schema for chaining.
func (s *OutputSchema) AddField(name string, typ FieldType, required bool, description string) *OutputSchema {
	s.Fields = append(s.Fields, SchemaField{
		Name:        name,
		Type:        typ,
		Required:    required,
		Description: description,
	})
	return s
}

// Field looks up a declaration by name.
func (s *OutputSchema) Field(name string) (SchemaField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return SchemaField{}, false
}

// PromptHint renders the schema as provider-facing instructions.
func (s *OutputSchema) PromptHint() string {
	if s == nil || len(s.Fields) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Respond with a single JSON object")
	if s.Name != "" {
		fmt.Fprintf(&b, " (%s)", s.Name)
	}
	b.WriteString(" with these fields:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "- %s (%s", f.Name, f.Type)
		if f.Required {
			b.WriteString(", required")
		}
		b.WriteString(")")
		if f.Description != "" {
			b.WriteString(": ")
			b.WriteString(f.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

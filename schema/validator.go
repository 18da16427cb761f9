// Package schema validates structured task outputs against flat field
// contracts: field presence and primitive types, not nested documents.
// Raw provider replies pass through Extract first, since models tend to
// wrap JSON in markdown fences or surrounding prose.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/BaSui01/crewflow/types"
)

// Violation describes one failed field check.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Reason
}

// Extract returns the JSON payload candidate inside raw: it strips
// ``` / ```json fences, or falls back to the outermost brace pair when the
// reply embeds the object in prose. Raw text without either comes back
// trimmed and lets the JSON decoder report the failure.
func Extract(raw string) string {
	text := strings.TrimSpace(raw)

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		// Tolerate a language tag on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			tag := strings.TrimSpace(rest[:nl])
			if tag == "" || strings.EqualFold(tag, "json") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		text = strings.TrimSpace(rest)
	}

	if !strings.HasPrefix(text, "{") {
		start := strings.IndexByte(text, '{')
		end := strings.LastIndexByte(text, '}')
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}
	return text
}

// Validate extracts the JSON payload from raw, decodes it, and checks it
// against s. On success it returns the decoded object.
func Validate(raw string, s *types.OutputSchema) (map[string]any, error) {
	payload := Extract(raw)

	var value map[string]any
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return nil, types.NewError(types.ErrCodeSchemaViolation, "output is not a JSON object").WithCause(err)
	}
	return ValidateValue(value, s)
}

// ValidateValue checks an already-decoded object against s. All failing
// fields are reported in one error. The value is never mutated, so
// validating the same object twice yields the same verdict.
func ValidateValue(value map[string]any, s *types.OutputSchema) (map[string]any, error) {
	if s == nil {
		return value, nil
	}

	var violations []Violation
	for _, f := range s.Fields {
		raw, present := value[f.Name]
		if !present {
			if f.Required {
				violations = append(violations, Violation{Field: f.Name, Reason: "required field is missing"})
			}
			continue
		}
		if reason, ok := checkType(raw, f.Type); !ok {
			violations = append(violations, Violation{Field: f.Name, Reason: reason})
		}
	}

	if len(violations) > 0 {
		return nil, newViolationError(violations)
	}
	return value, nil
}

// Strings extracts a validated list<string> field. Missing or mistyped
// fields yield nil, so callers can use it on already-validated objects
// without re-checking.
func Strings(value map[string]any, field string) []string {
	list, ok := value[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func newViolationError(violations []Violation) *types.Error {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return types.NewError(types.ErrCodeSchemaViolation, strings.Join(parts, "; ")).
		WithField(violations[0].Field)
}

// checkType reports whether a decoded JSON value satisfies the declared
// field type. Numbers arrive as float64 from encoding/json; integers are
// numbers without a fractional part.
func checkType(v any, t types.FieldType) (string, bool) {
	switch t {
	case types.FieldString:
		if _, ok := v.(string); !ok {
			return "expected string, got " + jsonTypeName(v), false
		}
	case types.FieldNumber:
		if _, ok := v.(float64); !ok {
			return "expected number, got " + jsonTypeName(v), false
		}
	case types.FieldInteger:
		f, ok := v.(float64)
		if !ok {
			return "expected integer, got " + jsonTypeName(v), false
		}
		if f != math.Trunc(f) {
			return "expected integer, got fractional number", false
		}
	case types.FieldBoolean:
		if _, ok := v.(bool); !ok {
			return "expected boolean, got " + jsonTypeName(v), false
		}
	case types.FieldStringList:
		list, ok := v.([]any)
		if !ok {
			return "expected list of strings, got " + jsonTypeName(v), false
		}
		for i, item := range list {
			if _, ok := item.(string); !ok {
				return fmt.Sprintf("expected list of strings, element %d is %s", i, jsonTypeName(item)), false
			}
		}
	default:
		return fmt.Sprintf("unsupported field type %q", t), false
	}
	return "", true
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Package interpolate renders {placeholder} tokens in task descriptions,
// agent goals, and backstories from kickoff inputs.
package interpolate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern matches {name} tokens where name is a letter or
// underscore followed by letters, digits, or underscores. Braces that do
// not form a token (JSON examples, empty braces) are left untouched.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Placeholders returns the distinct placeholder names in s, in first-seen
// order.
func Placeholders(s string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Render substitutes every placeholder in s from inputs. A single missing
// key fails the whole render; the error lists every missing name so the
// caller can report them at once.
func Render(s string, inputs map[string]string) (string, error) {
	var missing []string
	seen := make(map[string]struct{})

	out := placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := token[1 : len(token)-1]
		if value, ok := inputs[name]; ok {
			return value
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			missing = append(missing, name)
		}
		return token
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("unresolved placeholders: {%s}", strings.Join(missing, "}, {"))
	}
	return out, nil
}

package interpolate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRender(t *testing.T) {
	out, err := Render("Research {topic} for {audience}.", map[string]string{
		"topic":    "EV charging",
		"audience": "city planners",
	})
	require.NoError(t, err)
	assert.Equal(t, "Research EV charging for city planners.", out)
}

func TestRenderRepeatedPlaceholder(t *testing.T) {
	out, err := Render("{topic}, more {topic}", map[string]string{"topic": "solar"})
	require.NoError(t, err)
	assert.Equal(t, "solar, more solar", out)
}

func TestRenderMissingInputs(t *testing.T) {
	_, err := Render("Write about {topic} in {tone} for {topic}.", map[string]string{})
	require.Error(t, err)
	// Each missing name reported once, sorted.
	assert.Equal(t, "unresolved placeholders: {tone}, {topic}", err.Error())
}

func TestRenderLeavesNonTokensAlone(t *testing.T) {
	in := `Return {"key": "value"} and {} and {123} literally.`
	out, err := Render(in, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRenderEmptyString(t *testing.T) {
	out, err := Render("", map[string]string{"topic": "x"})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestPlaceholders(t *testing.T) {
	names := Placeholders("{a} then {b} then {a} again")
	assert.Equal(t, []string{"a", "b"}, names)

	assert.Empty(t, Placeholders("no tokens here"))
}

// Property: rendering a template built from known names substitutes every
// token, leaves no braces behind, and Placeholders reports exactly those
// names.
func TestProperty_RenderCompleteness(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "n")

		inputs := make(map[string]string)
		var b strings.Builder
		var names []string
		seen := make(map[string]struct{})
		for i := 0; i < n; i++ {
			name := rapid.StringMatching(`[a-z_][a-z0-9_]{0,8}`).Draw(rt, "name")
			value := rapid.StringMatching(`[a-zA-Z0-9 .,-]{0,20}`).Draw(rt, "value")
			inputs[name] = value
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
			filler := rapid.StringMatching(`[a-zA-Z .,]{0,10}`).Draw(rt, "filler")
			b.WriteString(filler)
			b.WriteString("{" + name + "}")
		}
		template := b.String()

		assert.ElementsMatch(rt, names, Placeholders(template))

		out, err := Render(template, inputs)
		require.NoError(rt, err)
		assert.NotContains(rt, out, "{", "all tokens should be substituted")
		for name, value := range inputs {
			if value != "" {
				assert.Contains(rt, out, value, "value for %q should appear", name)
			}
		}
	})
}

// Property: a template with a name absent from inputs always fails, and the
// error names it.
func TestProperty_RenderMissingDetection(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.StringMatching(`[a-z_][a-z0-9_]{0,8}`).Draw(rt, "name")
		prefix := rapid.StringMatching(`[a-zA-Z .,]{0,15}`).Draw(rt, "prefix")

		_, err := Render(prefix+"{"+name+"}", map[string]string{})
		require.Error(rt, err)
		assert.Contains(rt, err.Error(), "{"+name+"}")
	})
}

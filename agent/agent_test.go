package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/crewflow/types"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	a, err := New(Config{Role: "Researcher", Goal: "Find facts"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Researcher", a.Role)
	assert.Equal(t, "Find facts", a.Goal)
	assert.Equal(t, DefaultMaxIterations, a.Policy.MaxIterations)
	assert.Zero(t, a.Policy.MaxRequestsPerMinute)
	assert.False(t, a.Policy.AllowDelegation)
	assert.False(t, a.Policy.InjectCurrentDate)
}

func TestNewKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	a, err := New(Config{
		ID:                   "researcher-1",
		Role:                 "  Researcher  ",
		Goal:                 "Find facts",
		Backstory:            "Twenty years in the field.",
		Capabilities:         []types.ToolRef{{Name: "web_search"}},
		MaxIterations:        3,
		MaxRequestsPerMinute: 12,
		AllowDelegation:      true,
		InjectCurrentDate:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "researcher-1", a.ID)
	assert.Equal(t, "Researcher", a.Role)
	assert.Equal(t, 3, a.Policy.MaxIterations)
	assert.Equal(t, 12, a.Policy.MaxRequestsPerMinute)
	assert.True(t, a.Policy.AllowDelegation)
	assert.True(t, a.Policy.InjectCurrentDate)
	require.Len(t, a.Capabilities, 1)
	assert.Equal(t, "web_search", a.Capabilities[0].Name)
}

func TestNewRejectsMissingRoleOrGoal(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Goal: "Find facts"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidRequest, types.GetErrorCode(err))

	_, err = New(Config{Role: "Researcher", Goal: "   "})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidRequest, types.GetErrorCode(err))
}

func TestNewGeneratesUniqueIDs(t *testing.T) {
	t.Parallel()

	a, err := New(Config{Role: "Researcher", Goal: "g"})
	require.NoError(t, err)
	b, err := New(Config{Role: "Researcher", Goal: "g"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewCopiesCapabilities(t *testing.T) {
	t.Parallel()

	caps := []types.ToolRef{{Name: "web_search"}}
	a, err := New(Config{Role: "Researcher", Goal: "g", Capabilities: caps})
	require.NoError(t, err)

	caps[0].Name = "mutated"
	assert.Equal(t, "web_search", a.Capabilities[0].Name)
}

func TestFromDefinition(t *testing.T) {
	t.Parallel()

	a, err := FromDefinition("researcher", types.AgentDefinition{
		Goal:      "Uncover developments in {topic}",
		Backstory: "A seasoned analyst.",
	})
	require.NoError(t, err)
	assert.Equal(t, "researcher", a.Role)
	assert.Equal(t, "Uncover developments in {topic}", a.Goal)
	assert.Equal(t, "A seasoned analyst.", a.Backstory)

	// An explicit role in the definition wins over the map key.
	b, err := FromDefinition("researcher", types.AgentDefinition{
		Role: "Senior Researcher",
		Goal: "g",
	})
	require.NoError(t, err)
	assert.Equal(t, "Senior Researcher", b.Role)
}

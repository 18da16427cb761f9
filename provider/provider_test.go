package provider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/crewflow/types"
)

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     *Request
		wantErr bool
	}{
		{
			name:    "valid",
			req:     &Request{Role: "Researcher", Description: "Find sources."},
			wantErr: false,
		},
		{
			name:    "nil request",
			req:     nil,
			wantErr: true,
		},
		{
			name:    "missing role",
			req:     &Request{Description: "Find sources."},
			wantErr: true,
		},
		{
			name:    "blank description",
			req:     &Request{Role: "Researcher", Description: "   "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, types.ErrCodeInvalidRequest, types.GetErrorCode(err))
		})
	}
}

func TestRequestPromptIncludesAllSections(t *testing.T) {
	t.Parallel()

	schema := types.NewOutputSchema("report").
		AddField("title", types.FieldString, true, "")

	req := &Request{
		Role:      "Senior Researcher",
		Goal:      "Uncover trends",
		Backstory: "Veteran analyst.",
		Capabilities: []types.ToolRef{
			{Name: "web_search", Description: "search the public web"},
			{Name: "calculator"},
		},
		Description: "Research the topic.",
		Context:     "Prior findings here.",
		Constraints: Constraints{
			ExpectedOutput: "A bullet list.",
			OutputSchema:   schema,
			CurrentDate:    "2025-06-01",
		},
	}

	prompt := req.Prompt()

	assert.Contains(t, prompt, "You are Senior Researcher.")
	assert.Contains(t, prompt, "Goal: Uncover trends")
	assert.Contains(t, prompt, "Background: Veteran analyst.")
	assert.Contains(t, prompt, "- web_search: search the public web")
	assert.Contains(t, prompt, "- calculator\n")
	assert.Contains(t, prompt, "Current date: 2025-06-01")
	assert.Contains(t, prompt, "Context:\nPrior findings here.")
	assert.Contains(t, prompt, "Task:\nResearch the topic.")
	assert.Contains(t, prompt, "Expected output: A bullet list.")
	assert.Contains(t, prompt, "- title (string, required)")

	// Context precedes the task, and the task precedes the output contract.
	ctxAt := strings.Index(prompt, "Context:")
	taskAt := strings.Index(prompt, "Task:")
	wantAt := strings.Index(prompt, "Expected output:")
	assert.Less(t, ctxAt, taskAt)
	assert.Less(t, taskAt, wantAt)
}

func TestRequestPromptOmitsEmptySections(t *testing.T) {
	t.Parallel()

	req := &Request{Role: "Writer", Description: "Write the post."}
	prompt := req.Prompt()

	assert.Contains(t, prompt, "You are Writer.")
	assert.Contains(t, prompt, "Task:\nWrite the post.")
	assert.NotContains(t, prompt, "Goal:")
	assert.NotContains(t, prompt, "Background:")
	assert.NotContains(t, prompt, "Capabilities:")
	assert.NotContains(t, prompt, "Context:")
	assert.NotContains(t, prompt, "Expected output:")
	assert.NotContains(t, prompt, "Current date:")
	assert.NotContains(t, prompt, "JSON")
}

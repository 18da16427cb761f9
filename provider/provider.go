// Package provider defines the capability port: the single interface the
// engine dispatches agent work through. Implementations bridge to an LLM
// service, a rules engine, or scripted fixtures in tests; the engine never
// talks to a model vendor directly.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/crewflow/types"
)

// Constraints carries the output contract attached to a dispatch.
type Constraints struct {
	// ExpectedOutput describes the desired result in prose.
	ExpectedOutput string `json:"expected_output,omitempty"`

	// OutputSchema, when set, demands a JSON object reply that the engine
	// will validate structurally.
	OutputSchema *types.OutputSchema `json:"output_schema,omitempty"`

	// CurrentDate (2006-01-02) is injected when the dispatching agent's
	// policy asks for date awareness.
	CurrentDate string `json:"current_date,omitempty"`
}

// Request is one unit of agent work handed to a Provider. The engine fills
// it from the agent profile, the interpolated task, and assembled context.
type Request struct {
	Role         string          `json:"role"`
	Goal         string          `json:"goal,omitempty"`
	Backstory    string          `json:"backstory,omitempty"`
	Capabilities []types.ToolRef `json:"capabilities,omitempty"`

	// Description is the task description after placeholder interpolation
	// and any planner notes.
	Description string `json:"description"`

	// Context carries dependency outputs and recalled memory, already
	// assembled and budgeted by the engine.
	Context string `json:"context,omitempty"`

	Constraints Constraints `json:"constraints"`
}

// Validate reports whether the request is dispatchable.
func (r *Request) Validate() error {
	if r == nil {
		return types.NewInvalidRequestError("request is nil")
	}
	if strings.TrimSpace(r.Role) == "" {
		return types.NewInvalidRequestError("request has no role")
	}
	if strings.TrimSpace(r.Description) == "" {
		return types.NewInvalidRequestError("request has no description")
	}
	return nil
}

// Prompt renders the request as one instruction block, for providers that
// front plain-text models.
func (r *Request) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", r.Role)
	if r.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", r.Goal)
	}
	if r.Backstory != "" {
		fmt.Fprintf(&b, "Background: %s\n", r.Backstory)
	}
	if len(r.Capabilities) > 0 {
		b.WriteString("Capabilities:\n")
		for _, c := range r.Capabilities {
			fmt.Fprintf(&b, "- %s", c.Name)
			if c.Description != "" {
				fmt.Fprintf(&b, ": %s", c.Description)
			}
			b.WriteByte('\n')
		}
	}
	if r.Constraints.CurrentDate != "" {
		fmt.Fprintf(&b, "Current date: %s\n", r.Constraints.CurrentDate)
	}
	if r.Context != "" {
		fmt.Fprintf(&b, "\nContext:\n%s\n", r.Context)
	}
	fmt.Fprintf(&b, "\nTask:\n%s\n", r.Description)
	if r.Constraints.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\nExpected output: %s\n", r.Constraints.ExpectedOutput)
	}
	if hint := r.Constraints.OutputSchema.PromptHint(); hint != "" {
		fmt.Fprintf(&b, "\n%s\n", hint)
	}
	return b.String()
}

// Delegation asks the engine to route a sub-request to another agent
// instead of finalizing.
type Delegation struct {
	// Role identifies the target agent by ID or unique role name.
	Role string `json:"role"`

	// Request is the work description handed to the target.
	Request string `json:"request"`
}

// Completion is a provider's reply to one request.
type Completion struct {
	Text  string           `json:"text"`
	Usage types.TokenUsage `json:"usage"`

	// Delegation, when non-nil, asks for another agent's help. The engine
	// honors it only while the dispatching agent's policy allows
	// delegation and iteration budget remains.
	Delegation *Delegation `json:"delegation,omitempty"`
}

// Provider executes agent work.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Completion, error)
}

// Tool is the execution side of a capability declaration. The engine only
// forwards types.ToolRef declarations; providers that actually run tools
// implement this.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

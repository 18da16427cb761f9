package crew

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/internal/interpolate"
	"github.com/BaSui01/crewflow/types"
	"github.com/BaSui01/crewflow/workflow"
)

// rendered holds every template resolved against one run's inputs.
// Rendering happens once, before any task executes, so placeholder
// problems surface as build errors instead of mid-run surprises.
type rendered struct {
	descriptions map[string]string // task ID -> description
	expected     map[string]string // task ID -> expected output
	goals        map[string]string // agent ID -> goal
	backstories  map[string]string // agent ID -> backstory
}

// renderAll resolves all task and agent templates. Any unresolved
// placeholder fails the run before the first dispatch.
func (c *Crew) renderAll(inputs map[string]string) (*rendered, error) {
	r := &rendered{
		descriptions: make(map[string]string, len(c.tasks)),
		expected:     make(map[string]string, len(c.tasks)),
		goals:        make(map[string]string),
		backstories:  make(map[string]string),
	}

	for _, t := range c.tasks {
		desc, err := interpolate.Render(t.Description, inputs)
		if err != nil {
			return nil, types.NewError(types.ErrCodeMissingPlaceholder,
				fmt.Sprintf("task description: %v", err)).WithTaskID(t.ID)
		}
		r.descriptions[t.ID] = desc

		exp, err := interpolate.Render(t.ExpectedOutput, inputs)
		if err != nil {
			return nil, types.NewError(types.ErrCodeMissingPlaceholder,
				fmt.Sprintf("task expected output: %v", err)).WithTaskID(t.ID)
		}
		r.expected[t.ID] = exp
	}

	for _, a := range c.registry.Agents() {
		goal, err := interpolate.Render(a.Goal, inputs)
		if err != nil {
			return nil, types.NewError(types.ErrCodeMissingPlaceholder,
				fmt.Sprintf("agent %q goal: %v", a.Role, err))
		}
		r.goals[a.ID] = goal

		backstory, err := interpolate.Render(a.Backstory, inputs)
		if err != nil {
			return nil, types.NewError(types.ErrCodeMissingPlaceholder,
				fmt.Sprintf("agent %q backstory: %v", a.Role, err))
		}
		r.backstories[a.ID] = backstory
	}

	return r, nil
}

// assembleContext builds the effective context for one task: dependency
// outputs verbatim in declared order, then recalled long-term memory.
// The token budget only ever trims the memory section, entries dropped
// from the least similar end first.
func (c *Crew) assembleContext(ctx context.Context, graph *workflow.Graph, taskID, renderedDesc string) string {
	var blocks []string
	for _, depID := range graph.Deps(taskID) {
		node, ok := graph.Node(depID)
		if !ok {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Output of task %s:\n%s", depID, node.Output))
	}
	depSection := strings.Join(blocks, "\n\n")

	memSection := c.recallSection(ctx, renderedDesc, depSection)

	return joinSections(depSection, memSection)
}

// recallSection queries long-term memory and renders the hits as a
// bulleted block, trimmed to fit whatever budget the dependency outputs
// left over. Recall failures degrade to no memory, never to a task error.
func (c *Crew) recallSection(ctx context.Context, query, depSection string) string {
	if c.memory == nil {
		return ""
	}

	entries, err := c.memory.Search(ctx, query, c.topK)
	if err != nil {
		c.logger.Warn("memory recall failed, continuing without it", zap.Error(err))
		return ""
	}
	if len(entries) == 0 {
		return ""
	}
	c.metrics.RecordMemoryOp("search", string(types.ScopeLongTerm))

	if c.tokenBudget > 0 {
		remaining := c.tokenBudget - c.tokens.Count(depSection)
		for len(entries) > 0 && c.tokens.Count(memorySection(entries)) > remaining {
			entries = entries[:len(entries)-1]
		}
		if len(entries) == 0 {
			c.logger.Debug("memory section dropped, token budget exhausted by dependency outputs")
			return ""
		}
	}

	return memorySection(entries)
}

func memorySection(entries []*types.MemoryEntry) string {
	var b strings.Builder
	b.WriteString("Relevant memory:")
	for _, e := range entries {
		b.WriteString("\n- ")
		b.WriteString(e.Content)
	}
	return b.String()
}

// joinSections concatenates non-empty sections with a blank line.
func joinSections(sections ...string) string {
	var kept []string
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

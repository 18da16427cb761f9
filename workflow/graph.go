package workflow

import (
	"fmt"
	"strings"

	"github.com/BaSui01/crewflow/types"
)

// TaskNode carries one task's mutable state for a single run. The task
// definition itself is never modified; every run starts from a fresh graph.
type TaskNode struct {
	Task *types.Task

	Status     types.TaskStatus
	Output     string
	Structured map[string]any
	Err        error

	// Attempts counts provider dispatches charged against the task,
	// including validation retries and delegation rounds.
	Attempts int

	// Usage accumulates token usage across all attempts.
	Usage types.TokenUsage
}

// Graph is a validated task DAG plus per-run execution state.
type Graph struct {
	nodes map[string]*TaskNode
	// deps maps a task ID to its deduplicated dependencies, in
	// declaration order.
	deps map[string][]string
	// dependents maps a task ID to the tasks that depend on it.
	dependents map[string][]string
	// order is the execution order: a topological order of all task IDs.
	order []string
}

// Build validates the task list and compiles it into an executable graph.
// It rejects duplicate task IDs, dependencies on unknown tasks, and
// dependency cycles. The resulting execution order is deterministic:
// among tasks whose dependencies are satisfied, the earliest declared
// runs first.
func Build(tasks []*types.Task) (*Graph, error) {
	if len(tasks) == 0 {
		return nil, types.NewInvalidRequestError("task list is empty")
	}

	g := &Graph{
		nodes:      make(map[string]*TaskNode, len(tasks)),
		deps:       make(map[string][]string, len(tasks)),
		dependents: make(map[string][]string),
	}

	for _, t := range tasks {
		if t == nil {
			return nil, types.NewInvalidRequestError("task list contains a nil task")
		}
		if strings.TrimSpace(t.ID) == "" {
			return nil, types.NewInvalidRequestError("task has no ID")
		}
		if _, exists := g.nodes[t.ID]; exists {
			return nil, types.NewInvalidRequestError(fmt.Sprintf("duplicate task ID %q", t.ID))
		}
		g.nodes[t.ID] = &TaskNode{Task: t, Status: types.TaskPending}
	}

	for _, t := range tasks {
		seen := make(map[string]bool, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			if _, exists := g.nodes[dep]; !exists {
				return nil, types.NewError(types.ErrCodeDanglingReference,
					fmt.Sprintf("task %q depends on unknown task %q", t.ID, dep)).
					WithTaskID(t.ID)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			g.deps[t.ID] = append(g.deps[t.ID], dep)
			g.dependents[dep] = append(g.dependents[dep], t.ID)
		}
	}

	if err := detectCycle(tasks, g.deps); err != nil {
		return nil, err
	}
	g.order = stableTopoOrder(tasks, g.deps, g.dependents)
	return g, nil
}

// detectCycle walks the dependency relation depth-first and reports the
// first cycle found, including its full path.
func detectCycle(tasks []*types.Task, deps map[string][]string) error {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // fully explored
	)
	color := make(map[string]int, len(tasks))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		path = append(path, id)
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				start := 0
				for start < len(path) && path[start] != dep {
					start++
				}
				cycle := append(append([]string{}, path[start:]...), dep)
				return types.NewError(types.ErrCodeCycle,
					fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")))
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			if err := visit(t.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// stableTopoOrder produces a topological order where, at every step, the
// earliest declared task among those with all dependencies placed comes
// next. The graph is known acyclic here, so the loop always drains.
func stableTopoOrder(tasks []*types.Task, deps, dependents map[string][]string) []string {
	indegree := make(map[string]int, len(tasks))
	for _, t := range tasks {
		indegree[t.ID] = len(deps[t.ID])
	}

	order := make([]string, 0, len(tasks))
	placed := make(map[string]bool, len(tasks))
	for len(order) < len(tasks) {
		for _, t := range tasks {
			if placed[t.ID] || indegree[t.ID] > 0 {
				continue
			}
			placed[t.ID] = true
			order = append(order, t.ID)
			for _, next := range dependents[t.ID] {
				indegree[next]--
			}
			// Restart the scan: placing a task may free an
			// earlier-declared one.
			break
		}
	}
	return order
}

// Node returns the node for a task ID.
func (g *Graph) Node(id string) (*TaskNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in execution order.
func (g *Graph) Nodes() []*TaskNode {
	out := make([]*TaskNode, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Order returns a copy of the current execution order.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

// Deps returns a task's dependencies, deduplicated, in declaration order.
func (g *Graph) Deps(id string) []string {
	return append([]string(nil), g.deps[id]...)
}

// Dependents returns the tasks that directly depend on the given task.
func (g *Graph) Dependents(id string) []string {
	return append([]string(nil), g.dependents[id]...)
}

// Remaining returns the IDs of tasks still pending, in execution order.
func (g *Graph) Remaining() []string {
	var out []string
	for _, id := range g.order {
		if g.nodes[id].Status == types.TaskPending {
			out = append(out, id)
		}
	}
	return out
}

// NextReady returns pending tasks whose dependencies have all succeeded,
// in execution order. A sequential scheduler dispatches the first entry.
func (g *Graph) NextReady() []*TaskNode {
	var ready []*TaskNode
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Status != types.TaskPending {
			continue
		}
		ok := true
		for _, dep := range g.deps[id] {
			if g.nodes[dep].Status != types.TaskSucceeded {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, n)
		}
	}
	return ready
}

// MarkRunning transitions a pending task to running.
func (g *Graph) MarkRunning(id string) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if n.Status != types.TaskPending {
		return transitionError(id, n.Status, types.TaskRunning)
	}
	n.Status = types.TaskRunning
	return nil
}

// MarkSucceeded transitions a running task to succeeded and records its
// output.
func (g *Graph) MarkSucceeded(id, output string, structured map[string]any) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if n.Status != types.TaskRunning {
		return transitionError(id, n.Status, types.TaskSucceeded)
	}
	n.Status = types.TaskSucceeded
	n.Output = output
	n.Structured = structured
	return nil
}

// MarkFailed transitions a running task to failed and records the cause.
func (g *Graph) MarkFailed(id string, cause error) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if n.Status != types.TaskRunning {
		return transitionError(id, n.Status, types.TaskFailed)
	}
	n.Status = types.TaskFailed
	n.Err = cause
	return nil
}

// SetOrder replaces the execution order. The new order must be a
// permutation of all task IDs and must keep every task after its
// dependencies.
func (g *Graph) SetOrder(ids []string) error {
	if len(ids) != len(g.order) {
		return types.NewInvalidRequestError(
			fmt.Sprintf("order lists %d tasks, graph has %d", len(ids), len(g.order)))
	}
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, exists := g.nodes[id]; !exists {
			return types.NewInvalidRequestError(fmt.Sprintf("order names unknown task %q", id))
		}
		if _, dup := pos[id]; dup {
			return types.NewInvalidRequestError(fmt.Sprintf("order lists task %q twice", id))
		}
		pos[id] = i
	}
	for _, id := range ids {
		for _, dep := range g.deps[id] {
			if pos[dep] > pos[id] {
				return types.NewInvalidRequestError(
					fmt.Sprintf("order places task %q before its dependency %q", id, dep))
			}
		}
	}
	g.order = append([]string(nil), ids...)
	return nil
}

func (g *Graph) node(id string) (*TaskNode, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, types.NewError(types.ErrCodeDanglingReference,
			fmt.Sprintf("unknown task %q", id))
	}
	return n, nil
}

func transitionError(id string, from, to types.TaskStatus) error {
	return types.NewInvalidRequestError(
		fmt.Sprintf("invalid transition %s -> %s", from, to)).WithTaskID(id)
}

package workflow

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/BaSui01/crewflow/types"
)

// randomDAG builds a pseudo-random acyclic task list: edges only point from
// later tasks to earlier ones, so the result is acyclic by construction.
func randomDAG(n int, seed int64, density float64) []*types.Task {
	rng := rand.New(rand.NewSource(seed))
	tasks := make([]*types.Task, 0, n)
	for i := 0; i < n; i++ {
		t := &types.Task{ID: fmt.Sprintf("task-%d", i), Description: "d", AgentRef: "agent"}
		for j := 0; j < i; j++ {
			if rng.Float64() < density {
				t.DependsOn = append(t.DependsOn, fmt.Sprintf("task-%d", j))
			}
		}
		tasks = append(tasks, t)
	}
	// Shuffle declarations so the builder cannot rely on input order being
	// topological.
	rng.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })
	return tasks
}

// Property: the computed execution order is a permutation of all tasks in
// which every task appears after each of its dependencies.
func TestProperty_OrderRespectsDependencies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("topological order places dependencies first", prop.ForAll(
		func(n int, seed int64) bool {
			tasks := randomDAG(n, seed, 0.4)
			g, err := Build(tasks)
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}

			order := g.Order()
			if len(order) != len(tasks) {
				t.Logf("order length %d, want %d", len(order), len(tasks))
				return false
			}
			pos := make(map[string]int, len(order))
			for i, id := range order {
				if _, dup := pos[id]; dup {
					t.Logf("task %s appears twice", id)
					return false
				}
				pos[id] = i
			}
			for _, task := range tasks {
				for _, dep := range task.DependsOn {
					if pos[dep] >= pos[task.ID] {
						t.Logf("task %s at %d before dependency %s at %d",
							task.ID, pos[task.ID], dep, pos[dep])
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// Property: repeatedly dispatching the first ready task and marking it
// succeeded drains every graph completely. No acyclic graph deadlocks.
func TestProperty_ReadyDispatchDrainsGraph(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("sequential ready dispatch completes all tasks", prop.ForAll(
		func(n int, seed int64) bool {
			tasks := randomDAG(n, seed, 0.3)
			g, err := Build(tasks)
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}

			steps := 0
			for {
				ready := g.NextReady()
				if len(ready) == 0 {
					break
				}
				id := ready[0].Task.ID
				if err := g.MarkRunning(id); err != nil {
					t.Logf("MarkRunning(%s): %v", id, err)
					return false
				}
				if err := g.MarkSucceeded(id, "out", nil); err != nil {
					t.Logf("MarkSucceeded(%s): %v", id, err)
					return false
				}
				steps++
				if steps > len(tasks) {
					t.Logf("more dispatches than tasks")
					return false
				}
			}

			if steps != len(tasks) {
				t.Logf("drained %d of %d tasks", steps, len(tasks))
				return false
			}
			return len(g.Remaining()) == 0
		},
		gen.IntRange(1, 12),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// Property: the builder's own order always round-trips through SetOrder,
// and an order that lists a dependent before its dependency never does.
func TestProperty_SetOrderValidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("SetOrder accepts valid orders and rejects violations", prop.ForAll(
		func(n int, seed int64) bool {
			tasks := randomDAG(n, seed, 0.4)
			g, err := Build(tasks)
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}

			order := g.Order()
			if err := g.SetOrder(order); err != nil {
				t.Logf("valid order rejected: %v", err)
				return false
			}

			// Swap a dependency pair: the result must be rejected.
			pos := make(map[string]int, len(order))
			for i, id := range order {
				pos[id] = i
			}
			for _, task := range tasks {
				if len(task.DependsOn) == 0 {
					continue
				}
				dep := task.DependsOn[0]
				bad := append([]string(nil), order...)
				bad[pos[task.ID]], bad[pos[dep]] = bad[pos[dep]], bad[pos[task.ID]]
				if err := g.SetOrder(bad); err == nil {
					t.Logf("order with %s before dependency %s accepted", task.ID, dep)
					return false
				}
				break
			}
			return true
		},
		gen.IntRange(2, 12),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

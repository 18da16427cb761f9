package crew

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/provider"
	"github.com/BaSui01/crewflow/schema"
	"github.com/BaSui01/crewflow/types"
	"github.com/BaSui01/crewflow/workflow"
)

// plannerRole 是规划者派发时使用的固定角色。规划者不是注册代理:
// 它只过团队级限流,不占任何代理的窗口。
const plannerRole = "Planning Coordinator"

// planProposal 是规划者应答的预期负载。
type planProposal struct {
	Order       []string          `json:"order"`
	Refinements map[string]string `json:"refinements"`
}

// plan asks the planner for an execution order plus per-task refinement
// notes, applies the order to the graph when it validates, and returns
// the accepted refinements. Every failure path degrades to the declared
// order; planning never fails a run.
func (c *Crew) plan(ctx context.Context, graph *workflow.Graph, ren *rendered, usage *types.TokenUsage, logger *zap.Logger) map[string]string {
	req := c.plannerRequest(graph, ren, graph.Order(),
		"Plan the execution of the following tasks.")

	completion, err := c.dispatch(ctx, "", req)
	if err != nil {
		logger.Warn("planner dispatch failed, keeping declared order", zap.Error(err))
		return nil
	}
	usage.Add(completion.Usage)

	proposal, err := parseProposal(completion.Text)
	if err != nil {
		logger.Warn("planner proposal unreadable, keeping declared order", zap.Error(err))
		return nil
	}

	if err := graph.SetOrder(proposal.Order); err != nil {
		// 顺序非法时细化说明一并丢弃:无法信任同一份提案的另一半。
		logger.Warn("planner proposal rejected, keeping declared order", zap.Error(err))
		return nil
	}

	logger.Info("planner proposal accepted",
		zap.Strings("order", proposal.Order),
		zap.Int("refinements", len(proposal.Refinements)),
	)
	return proposal.Refinements
}

// reroute gives the planner its single post-failure attempt: a new order
// over the tasks that are still runnable, i.e. pending and not downstream
// of the failure. Reports whether the run may continue.
func (c *Crew) reroute(ctx context.Context, graph *workflow.Graph, failedID string, ren *rendered, usage *types.TokenUsage, logger *zap.Logger) bool {
	blocked := transitiveDependents(graph, failedID)

	var runnable []string
	for _, id := range graph.Remaining() {
		if _, isBlocked := blocked[id]; !isBlocked {
			runnable = append(runnable, id)
		}
	}
	if len(runnable) == 0 {
		logger.Info("no runnable tasks left after failure, halting",
			zap.String("failed_task_id", failedID))
		return false
	}

	req := c.plannerRequest(graph, ren, runnable, fmt.Sprintf(
		"Task %s failed and will not be re-run. Re-plan the remaining runnable tasks listed below. Tasks depending on the failed task are excluded.",
		failedID))

	completion, err := c.dispatch(ctx, "", req)
	if err != nil {
		logger.Warn("re-route dispatch failed, halting", zap.Error(err))
		return false
	}
	usage.Add(completion.Usage)

	proposal, err := parseProposal(completion.Text)
	if err != nil {
		logger.Warn("re-route proposal unreadable, halting", zap.Error(err))
		return false
	}
	if !samePermutation(proposal.Order, runnable) {
		logger.Warn("re-route proposal is not a permutation of the runnable tasks, halting",
			zap.Strings("proposed", proposal.Order),
			zap.Strings("runnable", runnable),
		)
		return false
	}

	// 全序 = 已达终态的任务(按当前顺序)+ 规划者给出的可执行段 +
	// 被失败阻塞的任务(按当前顺序,保持 Pending)。
	newOrder := make([]string, 0, graph.Len())
	for _, id := range graph.Order() {
		node, _ := graph.Node(id)
		if node.Status != types.TaskPending {
			newOrder = append(newOrder, id)
		}
	}
	newOrder = append(newOrder, proposal.Order...)
	for _, id := range graph.Order() {
		if _, isBlocked := blocked[id]; isBlocked {
			newOrder = append(newOrder, id)
		}
	}

	if err := graph.SetOrder(newOrder); err != nil {
		logger.Warn("re-route proposal rejected, halting", zap.Error(err))
		return false
	}

	logger.Info("re-route accepted",
		zap.String("failed_task_id", failedID),
		zap.Strings("order", proposal.Order),
	)
	return true
}

// plannerRequest renders the task listing the planner reasons over.
func (c *Crew) plannerRequest(graph *workflow.Graph, ren *rendered, taskIDs []string, preamble string) *provider.Request {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")
	for _, id := range taskIDs {
		b.WriteString("- id: ")
		b.WriteString(id)
		b.WriteString("\n  description: ")
		b.WriteString(ren.descriptions[id])
		b.WriteString("\n  depends_on: [")
		b.WriteString(strings.Join(graph.Deps(id), ", "))
		b.WriteString("]\n  agent: ")
		b.WriteString(c.assignments[id].Role)
		b.WriteString("\n")
	}
	b.WriteString("\nEvery dependency must appear before its dependents in your order. Add a refinement note only where extra guidance would improve a task's result.")

	return &provider.Request{
		Role:        plannerRole,
		Goal:        "Sequence the crew's tasks for the best final result.",
		Description: b.String(),
		Constraints: provider.Constraints{
			ExpectedOutput: `A JSON object: {"order": ["task-id", ...], "refinements": {"task-id": "guidance"}}`,
		},
	}
}

// parseProposal runs the planner reply through the same fence-stripping
// extraction as task outputs.
func parseProposal(raw string) (*planProposal, error) {
	payload := schema.Extract(raw)
	var p planProposal
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("decode planner proposal: %w", err)
	}
	if len(p.Order) == 0 {
		return nil, errors.New("planner proposal has no order")
	}
	return &p, nil
}

// transitiveDependents collects every task downstream of rootID.
func transitiveDependents(graph *workflow.Graph, rootID string) map[string]struct{} {
	blocked := make(map[string]struct{})
	queue := append([]string(nil), graph.Dependents(rootID)...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := blocked[id]; seen {
			continue
		}
		blocked[id] = struct{}{}
		queue = append(queue, graph.Dependents(id)...)
	}
	return blocked
}

// samePermutation reports whether proposed is a reordering of want.
func samePermutation(proposed, want []string) bool {
	if len(proposed) != len(want) {
		return false
	}
	pending := make(map[string]struct{}, len(want))
	for _, id := range want {
		pending[id] = struct{}{}
	}
	for _, id := range proposed {
		if _, ok := pending[id]; !ok {
			return false
		}
		delete(pending, id)
	}
	return len(pending) == 0
}

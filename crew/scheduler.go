package crew

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/internal/retry"
	"github.com/BaSui01/crewflow/provider"
	"github.com/BaSui01/crewflow/schema"
	"github.com/BaSui01/crewflow/types"
	"github.com/BaSui01/crewflow/workflow"
)

// Kickoff 执行一次完整运行。inputs 填充任务与代理模板里的
// {placeholder};未解析的占位符在任何任务执行前就报错。
//
// 返回的 RunResult 永不为 nil(模板渲染失败除外):运行中途失败时
// 它携带已完成任务的输出,与错误一并返回。
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*RunResult, error) {
	runID := uuid.NewString()
	started := time.Now()

	ctx = types.WithRunID(ctx, runID)
	ctx = types.WithCrewName(ctx, c.name)
	ctx, span := c.tracer.Start(ctx, "crew.kickoff",
		trace.WithAttributes(
			attribute.String("crew.name", c.name),
			attribute.String("run.id", runID),
			attribute.Int("crew.tasks", len(c.tasks)),
		))
	defer span.End()

	logger := c.logger.With(zap.String("run_id", runID))
	logger.Info("kickoff started",
		zap.String("process", string(c.process)),
		zap.Int("tasks", len(c.tasks)),
	)

	// New 已验证过同一份任务表,这里不会失败。
	graph, err := workflow.Build(c.tasks)
	if err != nil {
		return nil, err
	}

	ren, err := c.renderAll(inputs)
	if err != nil {
		logger.Warn("template rendering failed", zap.Error(err))
		return nil, err
	}

	if c.memory != nil {
		defer c.memory.ResetShortTerm()
	}

	var plannerUsage types.TokenUsage
	var refinements map[string]string
	if c.process == ProcessPlanned {
		refinements = c.plan(ctx, graph, ren, &plannerUsage, logger)
	}

	durations := make(map[string]time.Duration, len(c.tasks))
	var runErr error
	rerouted := false

	for {
		if err := ctx.Err(); err != nil {
			if runErr == nil {
				runErr = types.NewError(types.ErrCodeRunCancelled, "run cancelled").WithCause(err)
			}
			logger.Warn("run cancelled, stopping before next task")
			break
		}

		ready := graph.NextReady()
		if len(ready) == 0 {
			break
		}
		node := ready[0]

		taskErr := c.executeTask(ctx, graph, node, ren, refinements, durations, logger)
		if taskErr == nil {
			continue
		}
		if runErr == nil {
			runErr = taskErr
		}

		if c.process == ProcessPlanned && !rerouted {
			rerouted = true
			if c.reroute(ctx, graph, node.Task.ID, ren, &plannerUsage, logger) {
				continue
			}
		}
		break
	}

	result := c.buildResult(runID, graph, durations, plannerUsage, started)
	if runErr != nil {
		span.SetAttributes(attribute.String("error", runErr.Error()))
		logger.Warn("kickoff finished with error",
			zap.Error(runErr),
			zap.Duration("duration", result.Duration()),
		)
		return result, runErr
	}
	logger.Info("kickoff finished",
		zap.Duration("duration", result.Duration()),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)
	return result, nil
}

// executeTask drives one task from running to a terminal status and
// reports the failure, if any. The task callback fires on both outcomes.
func (c *Crew) executeTask(ctx context.Context, graph *workflow.Graph, node *workflow.TaskNode, ren *rendered, refinements map[string]string, durations map[string]time.Duration, logger *zap.Logger) error {
	task := node.Task
	assigned := c.assignments[task.ID]

	ctx = types.WithTaskID(ctx, task.ID)
	ctx, span := c.tracer.Start(ctx, "crew.task",
		trace.WithAttributes(
			attribute.String("task.id", task.ID),
			attribute.String("agent.role", assigned.Role),
		))
	defer span.End()

	taskLogger := logger.With(
		zap.String("task_id", task.ID),
		zap.String("agent_role", assigned.Role),
	)

	if err := graph.MarkRunning(task.ID); err != nil {
		return err
	}
	started := time.Now()
	taskLogger.Info("task started")

	description := ren.descriptions[task.ID]
	if note := refinements[task.ID]; note != "" {
		description = description + "\n\nPlan note: " + note
	}
	baseContext := c.assembleContext(ctx, graph, task.ID, description)

	output, structured, execErr := c.runIterations(ctx, node, assigned, description, ren, baseContext, taskLogger)

	duration := time.Since(started)
	durations[task.ID] = duration

	if execErr != nil {
		_ = graph.MarkFailed(task.ID, execErr)
		c.metrics.RecordTask(c.name, "failed", duration)
		span.SetAttributes(attribute.String("error", execErr.Error()))
		taskLogger.Warn("task failed",
			zap.Error(execErr),
			zap.Int("attempts", node.Attempts),
		)
		c.notify(node, duration)
		return execErr
	}

	_ = graph.MarkSucceeded(task.ID, output, structured)
	c.metrics.RecordTask(c.name, "succeeded", duration)
	taskLogger.Info("task succeeded",
		zap.Int("attempts", node.Attempts),
		zap.Duration("duration", duration),
	)

	c.rememberResult(ctx, task, assigned, description, output, taskLogger)
	c.notify(node, duration)
	return nil
}

// runIterations dispatches until an output is accepted or the agent's
// iteration budget runs out. Validation feedback and delegation replies
// accumulate onto the context between rounds.
func (c *Crew) runIterations(ctx context.Context, node *workflow.TaskNode, assigned *types.Agent, description string, ren *rendered, baseContext string, logger *zap.Logger) (string, map[string]any, error) {
	task := node.Task
	var feedback []string

	for node.Attempts < assigned.Policy.MaxIterations {
		node.Attempts++

		dispatchContext := baseContext
		if len(feedback) > 0 {
			dispatchContext = joinSections(baseContext, strings.Join(feedback, "\n\n"))
		}

		req := c.buildRequest(assigned, ren, task, description, dispatchContext)
		completion, err := c.dispatch(ctx, assigned.ID, req)
		if err != nil {
			return "", nil, types.NewError(types.ErrCodeTaskExecution, "provider dispatch failed").
				WithTaskID(task.ID).WithCause(err)
		}
		node.Usage.Add(completion.Usage)
		c.metrics.RecordTokens(c.name, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

		if completion.Delegation != nil {
			if !assigned.Policy.AllowDelegation {
				logger.Warn("delegation ignored, agent policy forbids it",
					zap.String("target_role", completion.Delegation.Role))
				// 委派被忽略,本次应答文本按原样进入校验。
			} else {
				reply, delErr := c.delegate(ctx, node, assigned, completion.Delegation, ren, logger)
				if delErr != nil {
					logger.Warn("delegation failed, keeping the agent's own answer", zap.Error(delErr))
				} else {
					feedback = append(feedback, reply)
					continue
				}
			}
		}

		if task.OutputSchema == nil {
			return completion.Text, nil, nil
		}
		structured, valErr := schema.Validate(completion.Text, task.OutputSchema)
		if valErr == nil {
			return completion.Text, structured, nil
		}
		c.metrics.RecordValidationFailure(c.name)
		logger.Warn("output failed schema validation",
			zap.Error(valErr),
			zap.Int("attempt", node.Attempts),
		)
		feedback = append(feedback,
			fmt.Sprintf("Your previous output failed validation: %v. Respond again with a corrected JSON object.", valErr))
	}

	return "", nil, types.NewError(types.ErrCodeTaskExecution,
		fmt.Sprintf("max_iterations exhausted after %d attempts", node.Attempts)).
		WithTaskID(task.ID)
}

// delegate performs the nested dispatch for a delegation request. The
// target contributes its profile; the iteration and the rate-limit token
// are both charged to the delegating agent.
func (c *Crew) delegate(ctx context.Context, node *workflow.TaskNode, delegator *types.Agent, d *provider.Delegation, ren *rendered, logger *zap.Logger) (string, error) {
	target, err := c.registry.Resolve(d.Role)
	if err != nil {
		return "", err
	}
	if node.Attempts >= delegator.Policy.MaxIterations {
		return "", types.NewError(types.ErrCodeTaskExecution, "iteration budget exhausted before delegation").
			WithTaskID(node.Task.ID)
	}
	node.Attempts++

	req := &provider.Request{
		Role:         target.Role,
		Goal:         ren.goals[target.ID],
		Backstory:    ren.backstories[target.ID],
		Capabilities: target.Capabilities,
		Description:  d.Request,
	}
	if target.Policy.InjectCurrentDate {
		req.Constraints.CurrentDate = time.Now().Format("2006-01-02")
	}

	completion, err := c.dispatch(ctx, delegator.ID, req)
	if err != nil {
		return "", err
	}
	node.Usage.Add(completion.Usage)
	c.metrics.RecordTokens(c.name, completion.Usage.PromptTokens, completion.Usage.CompletionTokens)

	logger.Info("delegation completed", zap.String("target_role", target.Role))
	return fmt.Sprintf("Answer from %s to your delegated request:\n%s", target.Role, completion.Text), nil
}

// buildRequest assembles the provider request for one dispatch round.
func (c *Crew) buildRequest(assigned *types.Agent, ren *rendered, task *types.Task, description, dispatchContext string) *provider.Request {
	req := &provider.Request{
		Role:         assigned.Role,
		Goal:         ren.goals[assigned.ID],
		Backstory:    ren.backstories[assigned.ID],
		Capabilities: assigned.Capabilities,
		Description:  description,
		Context:      dispatchContext,
		Constraints: provider.Constraints{
			ExpectedOutput: ren.expected[task.ID],
			OutputSchema:   task.OutputSchema,
		},
	}
	if assigned.Policy.InjectCurrentDate {
		req.Constraints.CurrentDate = time.Now().Format("2006-01-02")
	}
	return req
}

// dispatch sends one request through both rate limiters and the retry
// policy. agentID may be empty for dispatches that belong to no agent
// window (the planner); the agent limiter passes unknown keys through.
func (c *Crew) dispatch(ctx context.Context, agentID string, req *provider.Request) (*provider.Completion, error) {
	ctx, span := c.tracer.Start(ctx, "crew.dispatch",
		trace.WithAttributes(attribute.String("agent.role", req.Role)))
	defer span.End()

	started := time.Now()
	calls := 0
	completion, err := retry.DoTyped(c.retryer, ctx, func() (*provider.Completion, error) {
		// 限速令牌按尝试计:重试也占窗口。
		if err := c.agentLimiter.Acquire(ctx, agentID); err != nil {
			return nil, err
		}
		if err := c.crewLimiter.Acquire(ctx); err != nil {
			return nil, err
		}
		calls++
		return c.provider.Complete(ctx, req)
	})
	duration := time.Since(started)

	for i := 1; i < calls; i++ {
		c.metrics.RecordRetry(req.Role)
	}

	if err != nil {
		c.metrics.RecordDispatch(req.Role, "error", duration)
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}
	if completion == nil {
		c.metrics.RecordDispatch(req.Role, "error", duration)
		return nil, types.NewError(types.ErrCodeUnknown, "provider returned a nil completion")
	}
	c.metrics.RecordDispatch(req.Role, "ok", duration)
	return completion, nil
}

// rememberResult writes the accepted output to memory. Failures are
// logged and never fail the task.
func (c *Crew) rememberResult(ctx context.Context, task *types.Task, assigned *types.Agent, description, output string, logger *zap.Logger) {
	if c.memory == nil {
		return
	}
	entry := &types.MemoryEntry{
		Scope:      types.ScopeLongTerm,
		Content:    fmt.Sprintf("Task: %s\nResult: %s", description, output),
		ProducedBy: task.ID,
		AgentID:    assigned.ID,
		Metadata: map[string]any{
			"crew":       c.name,
			"agent_role": assigned.Role,
		},
	}
	if err := c.memory.Remember(ctx, entry); err != nil {
		logger.Warn("memory write failed", zap.Error(err))
		return
	}
	c.metrics.RecordMemoryOp("remember", string(types.ScopeLongTerm))
}

// notify fires the task callback, if configured.
func (c *Crew) notify(node *workflow.TaskNode, duration time.Duration) {
	if c.callback == nil {
		return
	}
	c.callback(c.taskRecord(node, duration))
}

func (c *Crew) taskRecord(node *workflow.TaskNode, duration time.Duration) TaskRecord {
	assigned := c.assignments[node.Task.ID]
	return TaskRecord{
		TaskID:     node.Task.ID,
		AgentID:    assigned.ID,
		AgentRole:  assigned.Role,
		Status:     node.Status,
		Output:     node.Output,
		Structured: node.Structured,
		Err:        node.Err,
		Attempts:   node.Attempts,
		Usage:      node.Usage,
		Duration:   duration,
	}
}

// buildResult snapshots the graph into a RunResult, records in the
// executed order.
func (c *Crew) buildResult(runID string, graph *workflow.Graph, durations map[string]time.Duration, plannerUsage types.TokenUsage, started time.Time) *RunResult {
	result := &RunResult{
		RunID:       runID,
		CrewName:    c.name,
		Order:       graph.Order(),
		TaskRecords: make([]TaskRecord, 0, graph.Len()),
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}

	usage := plannerUsage
	for _, id := range result.Order {
		node, ok := graph.Node(id)
		if !ok {
			continue
		}
		record := c.taskRecord(node, durations[id])
		result.TaskRecords = append(result.TaskRecords, record)
		usage.Add(record.Usage)
	}
	result.Usage = usage
	return result
}

package crew

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/crewflow/provider"
	"github.com/BaSui01/crewflow/testutil/mocks"
	"github.com/BaSui01/crewflow/types"
	"github.com/BaSui01/crewflow/workflow"
)

// pipelineConfig declares three tasks: ingest (researcher), report
// (writer, after ingest) and audit (writer, independent).
func pipelineConfig(t *testing.T, p provider.Provider) Config {
	t.Helper()
	cfg := blogConfig(t, p)
	cfg.Process = ProcessPlanned
	cfg.Tasks = []*types.Task{
		{ID: "ingest", Description: "Collect raw notes on {topic}.", AgentRef: "researcher"},
		{ID: "report", Description: "Summarize the notes on {topic}.", AgentRef: "writer", DependsOn: []string{"ingest"}},
		{ID: "audit", Description: "Check the source list for {topic}.", AgentRef: "writer"},
	}
	return cfg
}

func TestPlannedProcessAppliesProposedOrder(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole, mocks.Response{Text: `{"order": ["audit", "ingest", "report"]}`})

	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	result, err := c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.NoError(t, err)

	assert.Equal(t, []string{"audit", "ingest", "report"}, result.Order)
	assert.True(t, result.Succeeded())

	// 规划者先被调用,随后任务按提案顺序派发。
	calls := p.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, plannerRole, calls[0].Role)
	assert.Contains(t, calls[1].Description, "Check the source list")
	assert.Contains(t, calls[2].Description, "Collect raw notes")
	assert.Contains(t, calls[3].Description, "Summarize the notes")
}

func TestPlannedProcessAppliesRefinements(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole, mocks.Response{
		Text: `{"order": ["ingest", "report", "audit"], "refinements": {"ingest": "prefer primary sources"}}`,
	})

	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.NoError(t, err)

	researcherCalls := p.CallsForRole("Senior Researcher")
	require.Len(t, researcherCalls, 1)
	assert.Contains(t, researcherCalls[0].Description, "Plan note: prefer primary sources")

	// 其它任务不受影响。
	writerCalls := p.CallsForRole("Tech Writer")
	require.Len(t, writerCalls, 2)
	assert.NotContains(t, writerCalls[0].Description, "Plan note")
}

func TestPlannedProcessRejectsOrderViolatingDependencies(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole, mocks.Response{Text: `{"order": ["report", "ingest", "audit"]}`})

	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	result, err := c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.NoError(t, err)

	// 非法提案回退声明顺序,运行照常完成。
	assert.Equal(t, []string{"ingest", "report", "audit"}, result.Order)
	assert.True(t, result.Succeeded())
}

func TestPlannedProcessToleratesUnparseableProposal(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole, mocks.Response{Text: "I would start with the audit, probably."})

	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	result, err := c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ingest", "report", "audit"}, result.Order)
	assert.True(t, result.Succeeded())
}

func TestPlannedProcessToleratesPlannerFailure(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole, mocks.Response{Err: types.NewInvalidRequestError("planner offline")})

	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	result, err := c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.NoError(t, err, "planner trouble never fails a run")
	assert.True(t, result.Succeeded())
	assert.Equal(t, []string{"ingest", "report", "audit"}, result.Order)
}

func TestPlannerPromptListsEveryTask(t *testing.T) {
	p := mocks.NewScriptedProvider()
	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.NoError(t, err)

	calls := p.CallsForRole(plannerRole)
	require.Len(t, calls, 1)
	prompt := calls[0].Description
	assert.Contains(t, prompt, "- id: ingest")
	assert.Contains(t, prompt, "- id: report")
	assert.Contains(t, prompt, "depends_on: [ingest]")
	assert.Contains(t, prompt, "agent: Tech Writer")
	assert.Contains(t, prompt, "Collect raw notes on EVs.", "the planner sees rendered descriptions")
	assert.Contains(t, calls[0].Constraints.ExpectedOutput, `"order"`)
}

func TestRerouteContinuesIndependentTasksAfterFailure(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole,
		mocks.Response{Text: `{"order": ["ingest", "report", "audit"]}`},
		mocks.Response{Text: `{"order": ["audit"]}`},
	)
	p.EnqueueForRole("Senior Researcher", mocks.Response{Err: types.NewInvalidRequestError("source unreachable")})

	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	result, err := c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.Error(t, err, "the first failure stays the run error even after a re-route")
	require.NotNil(t, result)

	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "ingest", te.TaskID)

	ingest, _ := result.Record("ingest")
	assert.Equal(t, types.TaskFailed, ingest.Status)
	audit, _ := result.Record("audit")
	assert.Equal(t, types.TaskSucceeded, audit.Status, "independent work continues after the re-route")
	report, _ := result.Record("report")
	assert.Equal(t, types.TaskPending, report.Status, "tasks blocked by the failure stay pending")

	assert.Equal(t, []string{"ingest", "audit", "report"}, result.Order)
	assert.Len(t, p.CallsForRole(plannerRole), 2)
}

func TestRerouteInvalidProposalHalts(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole,
		mocks.Response{Text: `{"order": ["ingest", "report", "audit"]}`},
		mocks.Response{Text: `{"order": ["report"]}`},
	)
	p.EnqueueForRole("Senior Researcher", mocks.Response{Err: types.NewInvalidRequestError("source unreachable")})

	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	result, err := c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.Error(t, err)

	audit, _ := result.Record("audit")
	assert.Equal(t, types.TaskPending, audit.Status, "a rejected re-route halts the run")
}

func TestRerouteSkippedWhenNothingIsRunnable(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole, mocks.Response{Text: `{"order": ["ingest", "report"]}`})
	p.EnqueueForRole("Senior Researcher", mocks.Response{Err: types.NewInvalidRequestError("source unreachable")})

	cfg := pipelineConfig(t, p)
	cfg.Tasks = cfg.Tasks[:2] // ingest + report only
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.Error(t, err)
	assert.Len(t, p.CallsForRole(plannerRole), 1, "no runnable tasks means no re-route dispatch")
}

func TestRerouteOnlyOncePerRun(t *testing.T) {
	p := mocks.NewScriptedProvider()
	p.EnqueueForRole(plannerRole,
		mocks.Response{Text: `{"order": ["ingest", "report", "audit"]}`},
		mocks.Response{Text: `{"order": ["audit"]}`},
	)
	p.EnqueueForRole("Senior Researcher", mocks.Response{Err: types.NewInvalidRequestError("source unreachable")})
	p.EnqueueForRole("Tech Writer", mocks.Response{Err: types.NewInvalidRequestError("reviewer asleep")})

	c, err := New(pipelineConfig(t, p))
	require.NoError(t, err)

	result, err := c.Kickoff(context.Background(), map[string]string{"topic": "EVs"})
	require.Error(t, err)

	// audit 的失败不再触发第二次改道。
	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "ingest", te.TaskID, "the run error is the first failure")

	audit, _ := result.Record("audit")
	assert.Equal(t, types.TaskFailed, audit.Status)
	assert.Len(t, p.CallsForRole(plannerRole), 2)
}

func TestParseProposal(t *testing.T) {
	proposal, err := parseProposal(`{"order": ["a", "b"], "refinements": {"a": "note"}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, proposal.Order)
	assert.Equal(t, "note", proposal.Refinements["a"])

	proposal, err = parseProposal("```json\n{\"order\": [\"a\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, proposal.Order)

	_, err = parseProposal("let me think about it")
	assert.Error(t, err)

	_, err = parseProposal(`{"refinements": {}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no order")
}

func TestSamePermutation(t *testing.T) {
	assert.True(t, samePermutation([]string{"b", "a"}, []string{"a", "b"}))
	assert.True(t, samePermutation(nil, nil))
	assert.False(t, samePermutation([]string{"a"}, []string{"a", "b"}))
	assert.False(t, samePermutation([]string{"a", "a"}, []string{"a", "b"}))
	assert.False(t, samePermutation([]string{"a", "c"}, []string{"a", "b"}))
}

func TestTransitiveDependents(t *testing.T) {
	graph, err := workflow.Build([]*types.Task{
		{ID: "a", Description: "d", AgentRef: "x"},
		{ID: "b", Description: "d", AgentRef: "x", DependsOn: []string{"a"}},
		{ID: "c", Description: "d", AgentRef: "x", DependsOn: []string{"b"}},
		{ID: "d", Description: "d", AgentRef: "x"},
	})
	require.NoError(t, err)

	blocked := transitiveDependents(graph, "a")
	assert.Len(t, blocked, 2)
	assert.Contains(t, blocked, "b")
	assert.Contains(t, blocked, "c")
	assert.NotContains(t, blocked, "d")
}

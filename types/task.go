package types

// TaskStatus tracks a task through one run.
//
// Legal transitions: pending → running → succeeded | failed. Terminal
// statuses never change; the workflow graph enforces this.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// Task is an immutable unit of work bound to a single agent. Descriptions
// and goals may carry {placeholder} tokens resolved from kickoff inputs.
// Per-run state (status, output, error) lives on the workflow graph, not
// here, so the same task list can back any number of runs.
type Task struct {
	ID             string        `json:"id"`
	Description    string        `json:"description"`
	ExpectedOutput string        `json:"expected_output"`
	AgentRef       string        `json:"agent"`
	DependsOn      []string      `json:"depends_on,omitempty"`
	OutputSchema   *OutputSchema `json:"output_schema,omitempty"`
}

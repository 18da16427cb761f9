package crew

import (
	"time"

	"github.com/BaSui01/crewflow/types"
)

// TaskRecord 是单个任务在一次运行中的最终快照。
type TaskRecord struct {
	TaskID    string           `json:"task_id"`
	AgentID   string           `json:"agent_id"`
	AgentRole string           `json:"agent_role"`
	Status    types.TaskStatus `json:"status"`

	// Output 是被接受的文本输出;带 schema 的任务同时填 Structured。
	Output     string         `json:"output,omitempty"`
	Structured map[string]any `json:"structured,omitempty"`

	// Err 仅在 Status 为 failed 时非空。
	Err error `json:"-"`

	// Attempts 统计该任务消耗的派发迭代数(含校验重试与委派轮次)。
	Attempts int              `json:"attempts"`
	Usage    types.TokenUsage `json:"usage"`
	Duration time.Duration    `json:"duration"`
}

// RunResult 汇总一次 Kickoff。运行失败时它与错误一并返回,已完成
// 任务的输出仍然可用。
type RunResult struct {
	RunID    string `json:"run_id"`
	CrewName string `json:"crew_name"`

	// Order 是本次运行采用的执行顺序(规划者可能改写过声明顺序)。
	Order []string `json:"order"`

	// TaskRecords 与 Order 同序。
	TaskRecords []TaskRecord `json:"task_records"`

	// Usage 聚合所有任务与规划者派发的 token 用量。
	Usage types.TokenUsage `json:"usage"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Record 按任务 ID 取记录。
func (r *RunResult) Record(taskID string) (TaskRecord, bool) {
	for _, rec := range r.TaskRecords {
		if rec.TaskID == taskID {
			return rec, true
		}
	}
	return TaskRecord{}, false
}

// FinalOutput 返回执行顺序里最后一个成功任务的输出,通常就是整次
// 运行的成品。没有成功任务时返回空串。
func (r *RunResult) FinalOutput() string {
	out := ""
	for _, rec := range r.TaskRecords {
		if rec.Status == types.TaskSucceeded {
			out = rec.Output
		}
	}
	return out
}

// Succeeded 报告是否所有任务都成功。
func (r *RunResult) Succeeded() bool {
	for _, rec := range r.TaskRecords {
		if rec.Status != types.TaskSucceeded {
			return false
		}
	}
	return len(r.TaskRecords) > 0
}

// Duration 返回整次运行耗时。
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

package agent

import (
	"strings"

	"github.com/google/uuid"

	"github.com/BaSui01/crewflow/types"
)

// DefaultMaxIterations 单个任务上限内允许的调度轮次（首次调度 + 校验重试 + 委派）
const DefaultMaxIterations = 10

// Config 声明一个代理画像
type Config struct {
	// ID 可选；留空时自动生成 UUID
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	Role      string `json:"role" yaml:"role"`
	Goal      string `json:"goal" yaml:"goal"`
	Backstory string `json:"backstory,omitempty" yaml:"backstory,omitempty"`

	// Capabilities 是能力声明，仅随请求转发给 Provider，引擎不执行工具
	Capabilities []types.ToolRef `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`

	// MaxIterations <=0 时取 DefaultMaxIterations
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`

	// MaxRequestsPerMinute <=0 表示不限速
	MaxRequestsPerMinute int `json:"max_rpm,omitempty" yaml:"max_rpm,omitempty"`

	AllowDelegation   bool `json:"allow_delegation,omitempty" yaml:"allow_delegation,omitempty"`
	InjectCurrentDate bool `json:"inject_current_date,omitempty" yaml:"inject_current_date,omitempty"`
}

// New 构建经过校验的代理画像，应用默认策略。
// Role 与 Goal 为必填项。
func New(cfg Config) (*types.Agent, error) {
	role := strings.TrimSpace(cfg.Role)
	if role == "" {
		return nil, types.NewInvalidRequestError("agent role is required")
	}
	goal := strings.TrimSpace(cfg.Goal)
	if goal == "" {
		return nil, types.NewInvalidRequestError("agent goal is required")
	}

	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		id = uuid.NewString()
	}

	iterations := cfg.MaxIterations
	if iterations <= 0 {
		iterations = DefaultMaxIterations
	}
	rpm := cfg.MaxRequestsPerMinute
	if rpm < 0 {
		rpm = 0
	}

	capabilities := make([]types.ToolRef, len(cfg.Capabilities))
	copy(capabilities, cfg.Capabilities)

	return &types.Agent{
		ID:           id,
		Role:         role,
		Goal:         goal,
		Backstory:    strings.TrimSpace(cfg.Backstory),
		Capabilities: capabilities,
		Policy: types.AgentPolicy{
			MaxIterations:        iterations,
			MaxRequestsPerMinute: rpm,
			AllowDelegation:      cfg.AllowDelegation,
			InjectCurrentDate:    cfg.InjectCurrentDate,
		},
	}, nil
}

// FromDefinition 从声明式定义构建代理。
// key 是定义在 YAML 映射里的键名，定义体未给出 Role 时作为角色名使用。
func FromDefinition(key string, def types.AgentDefinition) (*types.Agent, error) {
	role := strings.TrimSpace(def.Role)
	if role == "" {
		role = key
	}
	return New(Config{
		Role:      role,
		Goal:      def.Goal,
		Backstory: def.Backstory,
	})
}

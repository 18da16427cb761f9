package crew

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/crewflow/agent"
	"github.com/BaSui01/crewflow/config"
	"github.com/BaSui01/crewflow/internal/metrics"
	"github.com/BaSui01/crewflow/internal/ratelimit"
	"github.com/BaSui01/crewflow/internal/retry"
	"github.com/BaSui01/crewflow/internal/tokencount"
	"github.com/BaSui01/crewflow/memory"
	"github.com/BaSui01/crewflow/provider"
	"github.com/BaSui01/crewflow/types"
	"github.com/BaSui01/crewflow/workflow"
)

// Process 选择任务的调度策略。
type Process string

const (
	// ProcessSequential 按声明顺序的稳定拓扑序逐个执行。
	ProcessSequential Process = "sequential"

	// ProcessPlanned 在执行前请规划者提出顺序与任务细化,提案非法时
	// 回退到声明顺序。
	ProcessPlanned Process = "planned"
)

// Config 描述一个团队。零值字段取默认:Process 默认 sequential,
// Name 默认 "crew",重试策略默认有界指数退避。
type Config struct {
	// Name 出现在日志、指标与记忆元数据里。
	Name string

	// Agents 是本团队可调度的全部代理档案。
	Agents []*types.Agent

	// Tasks 按声明顺序列出;依赖引用其它任务的 ID。
	Tasks []*types.Task

	// Process 为空时按 ProcessSequential 处理。
	Process Process

	// Provider 执行实际推理,必填。
	Provider provider.Provider

	// Memory 为 nil 时关闭记忆(不写入、不检索)。
	Memory *memory.Store

	// MemoryTopK 控制每次上下文装配检索多少条长期记忆,
	// 非正值取 memory.DefaultTopK。
	MemoryTopK int

	// MaxRequestsPerMinute 是团队级派发上限(含规划者),叠加在
	// 各代理自己的窗口之下。零表示不限。
	MaxRequestsPerMinute int

	// RateLimitWindow 覆盖滑动窗口长度,仅测试用;零值为一分钟。
	RateLimitWindow time.Duration

	// Retry 覆盖 Provider 派发的退避策略;零值取默认策略。
	Retry config.RetryConfig

	// ContextTokenBudget 限制装配上下文的 token 规模,超出时从
	// 相似度最低的记忆条目开始裁剪,依赖输出永不裁剪。零表示不限。
	ContextTokenBudget int

	// TaskCallback 在每个任务到达终态后被调用(成功或失败都算)。
	TaskCallback func(TaskRecord)

	Logger *zap.Logger
}

// Crew 是一组不可变的代理与任务,可被 Kickoff 多次执行;
// 每次运行持有自己的图与状态,Crew 本身无运行期可变字段。
type Crew struct {
	name        string
	process     Process
	registry    *agent.Registry
	tasks       []*types.Task
	assignments map[string]*types.Agent

	provider provider.Provider
	memory   *memory.Store
	topK     int

	agentLimiter *ratelimit.AgentLimiter
	crewLimiter  *ratelimit.RunLimiter
	retryer      retry.Retryer

	tokenBudget int
	tokens      *tokencount.Counter
	callback    func(TaskRecord)

	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// New 校验配置并装配团队。所有结构性错误(重复 ID、悬空引用、依赖
// 环)都在这里暴露,Kickoff 阶段不再出现。
func New(cfg Config) (*Crew, error) {
	if cfg.Provider == nil {
		return nil, types.NewInvalidRequestError("crew requires a provider")
	}
	if len(cfg.Agents) == 0 {
		return nil, types.NewInvalidRequestError("crew requires at least one agent")
	}
	if len(cfg.Tasks) == 0 {
		return nil, types.NewInvalidRequestError("crew requires at least one task")
	}

	name := cfg.Name
	if name == "" {
		name = "crew"
	}
	process := cfg.Process
	if process == "" {
		process = ProcessSequential
	}
	switch process {
	case ProcessSequential, ProcessPlanned:
	default:
		return nil, types.NewInvalidRequestError(fmt.Sprintf("unknown process %q", process))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("component", "crew"),
		zap.String("crew", name),
	)

	registry := agent.NewRegistry()
	for _, a := range cfg.Agents {
		if err := registry.Add(a); err != nil {
			return nil, err
		}
	}

	// 任务归属在构造期一次性解析,运行期只查表。
	assignments := make(map[string]*types.Agent, len(cfg.Tasks))
	for _, t := range cfg.Tasks {
		if t == nil {
			return nil, types.NewInvalidRequestError("crew tasks must not be nil")
		}
		assigned, err := registry.Resolve(t.AgentRef)
		if err != nil {
			var te *types.Error
			if errors.As(err, &te) {
				te.WithTaskID(t.ID)
			}
			return nil, err
		}
		assignments[t.ID] = assigned
	}

	// 环与重复 ID 现在就查,不等到 Kickoff。
	if _, err := workflow.Build(cfg.Tasks); err != nil {
		return nil, err
	}

	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	collector := metrics.Default(logger)

	agentLimiter := ratelimit.NewAgentLimiter(ratelimit.AgentLimiterConfig{Window: window}, logger)
	for _, a := range cfg.Agents {
		if a.Policy.MaxRequestsPerMinute > 0 {
			agentLimiter.SetLimit(a.ID, a.Policy.MaxRequestsPerMinute)
		}
	}
	agentLimiter.OnWait(func(key string, wait time.Duration) {
		collector.RecordRateLimitWait("agent")
	})

	var crewLimiter *ratelimit.RunLimiter
	if cfg.MaxRequestsPerMinute > 0 {
		crewLimiter = ratelimit.NewRunLimiter(cfg.MaxRequestsPerMinute, window)
	}

	topK := cfg.MemoryTopK
	if topK <= 0 {
		topK = memory.DefaultTopK
	}

	c := &Crew{
		name:         name,
		process:      process,
		registry:     registry,
		tasks:        cfg.Tasks,
		assignments:  assignments,
		provider:     cfg.Provider,
		memory:       cfg.Memory,
		topK:         topK,
		agentLimiter: agentLimiter,
		crewLimiter:  crewLimiter,
		retryer:      retry.NewBackoffRetryer(buildRetryPolicy(cfg.Retry), logger),
		tokenBudget:  cfg.ContextTokenBudget,
		tokens:       tokencount.NewCounter(logger),
		callback:     cfg.TaskCallback,
		logger:       logger,
		metrics:      collector,
		tracer:       otel.Tracer("crewflow/crew"),
	}
	return c, nil
}

// Name 返回团队名。
func (c *Crew) Name() string { return c.name }

// Process 返回调度策略。
func (c *Crew) Process() Process { return c.process }

// Agents 按注册顺序返回代理档案。
func (c *Crew) Agents() []*types.Agent { return c.registry.Agents() }

// Tasks 按声明顺序返回任务列表副本。
func (c *Crew) Tasks() []*types.Task {
	out := make([]*types.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// buildRetryPolicy 把配置映射到退避策略。零值配置取默认策略,
// 任何字段被设置后按原样使用(MaxRetries 为零即不重试)。
func buildRetryPolicy(rc config.RetryConfig) *retry.Policy {
	if rc == (config.RetryConfig{}) {
		p := retry.DefaultPolicy()
		p.RetryIf = retryableError
		return p
	}
	return &retry.Policy{
		MaxRetries:   rc.MaxRetries,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.Multiplier,
		Jitter:       rc.Jitter,
		RetryIf:      retryableError,
	}
}

// retryableError 决定派发错误是否值得重试:带类型码的错误看
// Retryable 标记,其余(网络层等未分类错误)一律重试。
func retryableError(err error) bool {
	var te *types.Error
	if errors.As(err, &te) {
		return te.Retryable
	}
	return true
}

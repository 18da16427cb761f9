package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// DefaultNamespace 默认指标命名空间
const DefaultNamespace = "crewflow"

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 任务指标
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec

	// 能力调度指标
	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	tokensUsed       *prometheus.CounterVec

	// 重试与校验指标
	retriesTotal       *prometheus.CounterVec
	validationFailures *prometheus.CounterVec

	// 记忆指标
	memoryOps *prometheus.CounterVec

	// 限流指标
	rateLimitWaits *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建注册在默认 Registry 上的指标收集器。
// 进程内只应调用一次,重复注册会 panic;通常直接使用 Default()。
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWith 在指定 Registerer 上创建指标收集器,测试中配合
// prometheus.NewRegistry() 使用。
func NewCollectorWith(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 任务指标
	c.tasksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of task executions",
		},
		[]string{"crew", "status"},
	)

	c.taskDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"crew"},
	)

	// 能力调度指标
	c.dispatchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Total number of provider dispatches",
		},
		[]string{"role", "status"},
	)

	c.dispatchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Provider dispatch duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"role"},
	)

	c.tokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total number of tokens consumed",
		},
		[]string{"crew", "type"}, // type: prompt, completion
	)

	// 重试与校验指标
	c.retriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_retries_total",
			Help:      "Total number of dispatch retries",
		},
		[]string{"role"},
	)

	c.validationFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Total number of structured output validation failures",
		},
		[]string{"crew"},
	)

	// 记忆指标
	c.memoryOps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_operations_total",
			Help:      "Total number of memory operations",
		},
		[]string{"operation", "scope"}, // operation: remember, search
	)

	// 限流指标
	c.rateLimitWaits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_waits_total",
			Help:      "Total number of blocking rate limit waits",
		},
		[]string{"scope"}, // scope: agent, crew
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default 返回注册在默认 Registry 上的单例收集器。
func Default(logger *zap.Logger) *Collector {
	defaultOnce.Do(func() {
		defaultCollector = NewCollector(DefaultNamespace, logger)
	})
	return defaultCollector
}

// =============================================================================
// 🎯 任务指标记录
// =============================================================================

// RecordTask 记录一次任务执行
func (c *Collector) RecordTask(crew, status string, duration time.Duration) {
	c.tasksTotal.WithLabelValues(crew, status).Inc()
	c.taskDuration.WithLabelValues(crew).Observe(duration.Seconds())
}

// =============================================================================
// 🤖 能力调度指标记录
// =============================================================================

// RecordDispatch 记录一次能力调度
func (c *Collector) RecordDispatch(role, status string, duration time.Duration) {
	c.dispatchesTotal.WithLabelValues(role, status).Inc()
	c.dispatchDuration.WithLabelValues(role).Observe(duration.Seconds())
}

// RecordTokens 记录令牌消耗
func (c *Collector) RecordTokens(crew string, promptTokens, completionTokens int) {
	c.tokensUsed.WithLabelValues(crew, "prompt").Add(float64(promptTokens))
	c.tokensUsed.WithLabelValues(crew, "completion").Add(float64(completionTokens))
}

// RecordRetry 记录一次调度重试
func (c *Collector) RecordRetry(role string) {
	c.retriesTotal.WithLabelValues(role).Inc()
}

// RecordValidationFailure 记录一次结构化输出校验失败
func (c *Collector) RecordValidationFailure(crew string) {
	c.validationFailures.WithLabelValues(crew).Inc()
}

// =============================================================================
// 🧠 记忆指标记录
// =============================================================================

// RecordMemoryOp 记录一次记忆读写
func (c *Collector) RecordMemoryOp(operation, scope string) {
	c.memoryOps.WithLabelValues(operation, scope).Inc()
}

// =============================================================================
// ⏳ 限流指标记录
// =============================================================================

// RecordRateLimitWait 记录一次限流阻塞等待
func (c *Collector) RecordRateLimitWait(scope string) {
	c.rateLimitWaits.WithLabelValues(scope).Inc()
}

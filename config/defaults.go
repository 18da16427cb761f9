// =============================================================================
// 📦 CrewFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Memory:    DefaultMemoryConfig(),
		Retry:     DefaultRetryConfig(),
		Limits:    DefaultLimitsConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "crewflow",
		SampleRate:   0.1,
	}
}

// DefaultMemoryConfig 返回默认记忆后端配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Backend: "memory",
		TopK:    3,
		Redis:   DefaultRedisConfig(),
		SQL:     DefaultSQLConfig(),
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		KeyPrefix:    "crewflow:memory:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultSQLConfig 返回默认 SQL 配置
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		Driver: "sqlite",
		DSN:    "crewflow.db",
	}
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// DefaultLimitsConfig 返回默认限额配置
func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		MaxRPM:             0,
		ContextTokenBudget: 0,
		RateLimitWindow:    time.Minute,
		MaxIterations:      10,
	}
}

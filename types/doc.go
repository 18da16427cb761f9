// Copyright (c) CrewFlow Authors.
// Licensed under the MIT License.

// Package types 定义 CrewFlow 各包共享的核心数据模型与错误码。
//
// # 概述
//
// types 是最底层的叶子包,不依赖本模块的任何其他包。Agent、Task、
// OutputSchema、MemoryEntry 等均为纯数据定义,由上层包(agent、workflow、
// memory、crew)负责构建、校验与执行。
//
// # 核心模型
//
//   - Agent / AgentPolicy / ToolRef:代理画像、调度策略与能力声明
//   - Task / TaskStatus:任务定义与生命周期状态
//   - OutputSchema / SchemaField:结构化输出的字段契约
//   - MemoryEntry / MemoryScope:记忆条目与短期/长期作用域
//   - TokenUsage:跨调度聚合的令牌用量
//   - AgentDefinition / TaskDefinition:声明式 YAML 配置形态
//
// # 错误处理
//
// Error 是全引擎统一的结构化错误,携带 ErrorCode、TaskID、Field、
// Retryable 标记与底层 Cause,兼容 errors.Is / errors.As 链式检查,
// 并提供 IsRetryable、GetErrorCode 等辅助函数供重试与调度层分类。
package types

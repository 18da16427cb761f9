// Copyright (c) CrewFlow Authors.
// Licensed under the MIT License.

// Package metrics 提供引擎内部的 Prometheus 指标收集。
//
// # 概述
//
// Collector 聚合任务执行、能力调度、重试、结构化输出校验、记忆读写与
// 限流等待等维度的计数器与直方图。默认通过 Default() 获取注册在
// prometheus.DefaultRegisterer 上的单例;测试中可用 NewCollectorWith
// 搭配独立 Registry,避免重复注册。
//
// 本包为 internal 包,不应被外部项目导入。
package metrics

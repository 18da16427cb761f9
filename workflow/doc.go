// Copyright (c) CrewFlow Authors.
// Licensed under the MIT License.

// Package workflow 把任务定义编译为带执行状态的有向无环图。
//
// Build 在构建期完成全部结构校验:重复任务 ID、悬空依赖引用、依赖环
// (环检测报告完整路径)。校验通过后按"声明顺序优先"的稳定拓扑排序
// 生成执行顺序:依赖满足的任务中,先声明者先执行,同一任务列表的
// 排序结果完全确定。
//
// 每个 TaskNode 持有该任务在一次运行中的可变状态(状态机、产出、
// 令牌用量)。状态迁移只允许 pending→running→succeeded/failed,
// 由 Mark* 方法强制执行。SetOrder 允许规划器在运行前重排执行顺序,
// 重排必须是全量任务的置换且不得违反依赖先后关系。
//
// Graph 面向单线程的顺序调度器,不做内部加锁。
package workflow

// Copyright (c) CrewFlow Authors.
// Licensed under the MIT License.

// Package agent 构建与索引代理画像。
//
// New 从 Config 构建经过校验的 types.Agent(填充默认策略与自动 ID),
// FromDefinition 支持声明式 YAML 档案。Registry 按 ID 与角色名双重索引,
// 供编排层把任务上的 agent 引用解析为唯一代理:先按 ID 精确匹配,
// 再按角色名匹配;角色名命中多个代理时视为歧义错误,要求改用 ID 引用。
package agent

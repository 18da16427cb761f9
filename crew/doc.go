// Copyright (c) CrewFlow Authors.
// Licensed under the MIT License.

// Package crew 把代理、任务和能力提供者装配成一次可执行的运行。
//
// Crew 在构造时完成全部静态校验:注册代理、解析每个任务的代理引用、
// 构建依赖图(查环、查悬空引用)。Kickoff 则按拓扑顺序逐个调度就绪
// 任务,单线程推进;每次派发前先过代理级滑动窗口限速和团队级令牌桶,
// 再经有界退避重试送达 Provider。
//
// 任务上下文 = 依赖任务的输出(按声明顺序原文拼接)+ 长期记忆检索
// 片段(可被 token 预算裁剪,依赖输出永不裁剪)。带 output_schema 的
// 任务在校验失败后携带错误反馈重新派发,直到 max_iterations 耗尽。
//
// Planned 流程在执行前请规划者(固定内部角色,不注册为代理)给出
// 执行顺序与任务细化说明;提案经过与声明图相同的依赖校验,不合法时
// 回退声明顺序。任务失败后规划者有且仅有一次改道机会。
//
// 运行结束(无论成败)都会返回 RunResult:逐任务记录、执行顺序与
// 聚合 token 用量;失败时错误与部分结果一并返回。
package crew

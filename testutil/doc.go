// Copyright (c) CrewFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 CrewFlow 测试的共享工具。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext,
    自动注册 Cleanup 防止泄漏
  - 数据工具: MustJSON,简化测试数据构造

# 子包

  - testutil/mocks: ScriptedProvider(脚本化 Provider,支持按角色排队
    响应、错误注入与调用记录)、HashEmbedder(确定性词袋嵌入器)
  - testutil/fixtures: 预置的代理画像与任务清单样例

# 使用示例

	ctx := testutil.TestContext(t)
	p := mocks.NewScriptedProvider().EnqueueText("research notes")
	out, err := p.Complete(ctx, req)
*/
package testutil

// ScriptedProvider 的脚本化 Provider 测试实现。
//
// 支持全局与按角色的响应队列、错误注入与调用记录。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/crewflow/provider"
	"github.com/BaSui01/crewflow/types"
)

// Response 是一条脚本化的回复。Err 非空时该次调用直接失败。
type Response struct {
	Text       string
	Usage      types.TokenUsage
	Delegation *provider.Delegation
	Err        error
}

// defaultUsage 未显式指定用量时的统一值,便于测试断言聚合结果
var defaultUsage = types.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}

// ScriptedProvider 是 provider.Provider 的脚本化实现
type ScriptedProvider struct {
	mu sync.Mutex

	// 响应队列:按角色的队列优先于全局队列
	queue  []Response
	byRole map[string][]Response

	// 队列耗尽后的缺省回复
	defaultText string

	// 调用记录
	calls []provider.Request
}

// NewScriptedProvider creates a provider that answers from scripted queues.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{
		byRole:      make(map[string][]Response),
		defaultText: "ok",
	}
}

// WithDefault sets the reply used once all queues are drained.
func (p *ScriptedProvider) WithDefault(text string) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultText = text
	return p
}

// Enqueue appends responses to the global queue.
func (p *ScriptedProvider) Enqueue(responses ...Response) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, responses...)
	return p
}

// EnqueueText appends plain-text responses to the global queue.
func (p *ScriptedProvider) EnqueueText(texts ...string) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, text := range texts {
		p.queue = append(p.queue, Response{Text: text})
	}
	return p
}

// EnqueueError appends a failing response to the global queue.
func (p *ScriptedProvider) EnqueueError(err error) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, Response{Err: err})
	return p
}

// EnqueueForRole appends responses consumed only by requests with the given
// role. Role queues take precedence over the global queue.
func (p *ScriptedProvider) EnqueueForRole(role string, responses ...Response) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byRole[role] = append(p.byRole[role], responses...)
	return p
}

// Complete pops the next scripted response. Cancellation wins over scripts.
func (p *ScriptedProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls = append(p.calls, copyRequest(req))

	var resp Response
	switch {
	case len(p.byRole[req.Role]) > 0:
		resp = p.byRole[req.Role][0]
		p.byRole[req.Role] = p.byRole[req.Role][1:]
	case len(p.queue) > 0:
		resp = p.queue[0]
		p.queue = p.queue[1:]
	default:
		resp = Response{Text: p.defaultText}
	}
	p.mu.Unlock()

	if resp.Err != nil {
		return nil, resp.Err
	}
	usage := resp.Usage
	if usage.IsZero() {
		usage = defaultUsage
	}
	return &provider.Completion{
		Text:       resp.Text,
		Usage:      usage,
		Delegation: resp.Delegation,
	}, nil
}

// Calls returns copies of every request seen, in order.
func (p *ScriptedProvider) Calls() []provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]provider.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of completed dispatches.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// CallsForRole returns the recorded requests carrying the given role.
func (p *ScriptedProvider) CallsForRole(role string) []provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []provider.Request
	for _, call := range p.calls {
		if call.Role == role {
			out = append(out, call)
		}
	}
	return out
}

func copyRequest(req *provider.Request) provider.Request {
	out := *req
	out.Capabilities = append([]types.ToolRef(nil), req.Capabilities...)
	return out
}

var _ provider.Provider = (*ScriptedProvider)(nil)

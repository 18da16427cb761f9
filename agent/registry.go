package agent

import (
	"fmt"
	"sync"

	"github.com/BaSui01/crewflow/types"
)

// Registry 按 ID 与角色名索引代理，负责把任务上的 agent 引用解析为唯一代理
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*types.Agent
	byRole map[string][]*types.Agent
	order  []*types.Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*types.Agent),
		byRole: make(map[string][]*types.Agent),
	}
}

// Add indexes one agent. Duplicate IDs are rejected; duplicate roles are
// allowed and only surface as an error when a reference names the shared
// role instead of an ID.
func (r *Registry) Add(a *types.Agent) error {
	if a == nil {
		return types.NewInvalidRequestError("agent is nil")
	}
	if a.ID == "" {
		return types.NewInvalidRequestError("agent has no ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID]; exists {
		return types.NewInvalidRequestError(fmt.Sprintf("duplicate agent ID %q", a.ID))
	}
	r.byID[a.ID] = a
	r.byRole[a.Role] = append(r.byRole[a.Role], a)
	r.order = append(r.order, a)
	return nil
}

// Resolve maps an agent reference to exactly one agent. ID matches win;
// otherwise the reference is treated as a role name, which must identify a
// single agent.
func (r *Registry) Resolve(ref string) (*types.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.byID[ref]; ok {
		return a, nil
	}
	matches := r.byRole[ref]
	switch len(matches) {
	case 0:
		return nil, types.NewError(types.ErrCodeDanglingReference,
			fmt.Sprintf("no agent with ID or role %q", ref))
	case 1:
		return matches[0], nil
	default:
		return nil, types.NewInvalidRequestError(
			fmt.Sprintf("role %q matches %d agents, reference one by ID", ref, len(matches)))
	}
}

// Get returns the agent with the given ID, or nil.
func (r *Registry) Get(id string) *types.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Agents returns all registered agents in registration order.
func (r *Registry) Agents() []*types.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.Agent, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

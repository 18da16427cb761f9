package types

// ToolRef declares a capability an agent may exercise. The engine forwards
// declarations to the provider; invoking them is the provider's side of the
// contract.
type ToolRef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AgentPolicy bounds how an agent is dispatched.
type AgentPolicy struct {
	// MaxIterations caps dispatch iterations per task: the initial dispatch
	// plus validation retries and delegation rounds all consume iterations.
	MaxIterations int `json:"max_iterations"`

	// MaxRequestsPerMinute caps dispatches inside a sliding window.
	// Zero means unlimited.
	MaxRequestsPerMinute int `json:"max_requests_per_minute"`

	// AllowDelegation lets the agent route a sub-request to another agent.
	AllowDelegation bool `json:"allow_delegation"`

	// InjectCurrentDate attaches the current date to dispatch constraints.
	InjectCurrentDate bool `json:"inject_current_date"`
}

// Agent is an immutable capability profile. Once registered with a crew it
// is never mutated; construct through the agent package to get validation
// and policy defaults.
type Agent struct {
	ID           string      `json:"id"`
	Role         string      `json:"role"`
	Goal         string      `json:"goal"`
	Backstory    string      `json:"backstory"`
	Capabilities []ToolRef   `json:"capabilities,omitempty"`
	Policy       AgentPolicy `json:"policy"`
}

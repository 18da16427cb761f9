package types

// AgentDefinition is the declarative shape of an agent as loaded from YAML
// configuration. Goal and Backstory may carry {placeholder} tokens.
type AgentDefinition struct {
	Role      string `yaml:"role" json:"role"`
	Goal      string `yaml:"goal" json:"goal"`
	Backstory string `yaml:"backstory" json:"backstory"`
}

// TaskDefinition is the declarative shape of a task as loaded from YAML
// configuration. Wiring (agent binding, dependencies, output schema)
// happens in code.
type TaskDefinition struct {
	Description    string `yaml:"description" json:"description"`
	ExpectedOutput string `yaml:"expected_output" json:"expected_output"`
}

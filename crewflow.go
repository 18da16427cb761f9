// Package crewflow provides the top-level entry points for assembling and
// running multi-agent crews.
//
// Usage:
//
//	import "github.com/BaSui01/crewflow"
//
//	researcher, err := crewflow.NewAgent(crewflow.AgentConfig{
//		Role: "Senior Researcher",
//		Goal: "Uncover the latest developments in {topic}",
//	})
//	writer, err := crewflow.NewAgent(crewflow.AgentConfig{
//		Role: "Tech Writer",
//		Goal: "Turn research into a clear post about {topic}",
//	})
//
//	c, err := crewflow.NewCrew(crewflow.Config{
//		Agents:   []*crewflow.Agent{researcher, writer},
//		Tasks:    []*crewflow.Task{research, write},
//		Provider: myProvider,
//	})
//	result, err := c.Kickoff(ctx, map[string]string{"topic": "EVs"})
//
// This is a thin wrapper over the crew, agent, memory and provider packages;
// use those directly when you need the full surface.
package crewflow

import (
	"github.com/BaSui01/crewflow/agent"
	"github.com/BaSui01/crewflow/crew"
	"github.com/BaSui01/crewflow/memory"
	"github.com/BaSui01/crewflow/provider"
	"github.com/BaSui01/crewflow/types"
)

// Crew assembly surface.
type (
	// Crew is an immutable bundle of agents and tasks, runnable many times.
	Crew = crew.Crew

	// Config describes a crew; see [NewCrew].
	Config = crew.Config

	// Process selects the scheduling strategy.
	Process = crew.Process

	// RunResult is the outcome of one [Crew.Kickoff].
	RunResult = crew.RunResult

	// TaskRecord is one task's final snapshot inside a [RunResult].
	TaskRecord = crew.TaskRecord
)

const (
	// ProcessSequential executes tasks in declaration-stable topological order.
	ProcessSequential = crew.ProcessSequential

	// ProcessPlanned lets a planner propose order and refinements first.
	ProcessPlanned = crew.ProcessPlanned
)

// NewCrew validates the configuration and assembles a crew. Structural
// problems (dangling references, dependency cycles, duplicate IDs) are all
// reported here, before anything runs.
func NewCrew(cfg Config) (*Crew, error) {
	return crew.New(cfg)
}

// Agent and task surface.
type (
	// Agent is an immutable capability profile.
	Agent = types.Agent

	// AgentConfig feeds [NewAgent].
	AgentConfig = agent.Config

	// Task is a unit of work bound to a single agent.
	Task = types.Task

	// ToolRef declares a capability an agent may exercise.
	ToolRef = types.ToolRef

	// OutputSchema constrains a task's structured output.
	OutputSchema = types.OutputSchema
)

// NewAgent validates the profile and applies policy defaults.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	return agent.New(cfg)
}

// NewOutputSchema starts a schema; chain AddField to declare fields.
var NewOutputSchema = types.NewOutputSchema

// Provider surface. Implement [Provider] to plug in a reasoning engine.
type (
	Provider   = provider.Provider
	Request    = provider.Request
	Completion = provider.Completion
	Delegation = provider.Delegation
	TokenUsage = types.TokenUsage
)

// Memory surface.
type (
	// MemoryStore is the two-layer run memory; pass one in [Config.Memory].
	MemoryStore = memory.Store

	// MemoryEntry is a single remembered item.
	MemoryEntry = types.MemoryEntry

	// Embedder maps text to vectors for long-term recall.
	Embedder = memory.Embedder

	// LongTermStore is the pluggable persistence behind long-term memory.
	LongTermStore = memory.LongTermStore
)

// NewMemoryStore builds the run memory; see [memory.StoreConfig].
func NewMemoryStore(cfg memory.StoreConfig) *MemoryStore {
	return memory.NewStore(cfg)
}

// NewVectorStore creates the in-process long-term backend.
var NewVectorStore = memory.NewVectorStore

// OpenLongTerm selects a long-term backend from configuration
// (memory, redis or sql).
var OpenLongTerm = memory.OpenLongTerm

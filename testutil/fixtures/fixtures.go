// Package fixtures 提供预置的代理画像与任务清单样例。
package fixtures

import (
	"github.com/BaSui01/crewflow/agent"
	"github.com/BaSui01/crewflow/types"
)

// ResearcherConfig returns a research agent profile with a search
// capability and a modest per-minute budget.
func ResearcherConfig() agent.Config {
	return agent.Config{
		ID:        "researcher",
		Role:      "Senior Researcher",
		Goal:      "Uncover the latest developments in {topic}",
		Backstory: "A veteran analyst known for spotting trends early.",
		Capabilities: []types.ToolRef{
			{Name: "web_search", Description: "search the public web"},
		},
		MaxRequestsPerMinute: 30,
		InjectCurrentDate:    true,
	}
}

// WriterConfig returns a writing agent profile.
func WriterConfig() agent.Config {
	return agent.Config{
		ID:        "writer",
		Role:      "Tech Writer",
		Goal:      "Turn research into a clear, engaging post about {topic}",
		Backstory: "Writes plainly about complicated things.",
	}
}

// ResearchTask returns a research task bound to the researcher profile.
func ResearchTask() *types.Task {
	return &types.Task{
		ID:             "research",
		Description:    "Research the most important recent developments in {topic}.",
		ExpectedOutput: "A bullet list of findings with sources.",
		AgentRef:       "researcher",
	}
}

// WriteTask returns a writing task depending on the research task.
func WriteTask() *types.Task {
	return &types.Task{
		ID:             "write",
		Description:    "Write a short post about {topic} based on the research.",
		ExpectedOutput: "Three paragraphs of publishable prose.",
		AgentRef:       "writer",
		DependsOn:      []string{"research"},
	}
}

// ReviewSchema returns an output schema for structured review tasks.
func ReviewSchema() *types.OutputSchema {
	return types.NewOutputSchema("review").
		AddField("title", types.FieldString, true, "post title").
		AddField("approved", types.FieldBoolean, true, "whether the post can ship").
		AddField("notes", types.FieldStringList, false, "reviewer notes")
}

package flow

import "context"

// AgentConfig carries the model selection and parameters for one agent
// invocation. Parameters are provider-specific and passed through
// opaquely.
type AgentConfig struct {
	Model      string
	Provider   string
	Parameters map[string]any
}

// AgentResult is the outcome of a successful agent invocation.
type AgentResult struct {
	// Text is the accumulated response text.
	Text string

	// ToolCalls counts the tool invocations the agent made while
	// producing the response.
	ToolCalls int
}

// Agent is the external LLM collaborator. The engine treats any
// invocation failure uniformly as a step failure; provider-specific
// error detail travels in the returned error.
type Agent interface {
	Invoke(ctx context.Context, prompt string, cfg AgentConfig) (*AgentResult, error)
}

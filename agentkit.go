package agentkit

import (
	"context"
)

// Tool is the contract for an LLM-callable instrument.
// It is provider-agnostic (no knowledge of OpenAI, Gemini, etc.).
//
// A tool declares exactly one entry operation. Entries returning zero or more
// than one Entry make the tool fail compilation (ErrNoEntry, ErrAmbiguousEntry).
type Tool interface {
	Description() string
	Entries() []Entry
}

// Named is implemented by tools that choose their own exposed name instead of
// the one derived from the Go type name.
type Named interface {
	Name() string
}

// Agent is the invoking agent handed to tools that declare an Agent parameter.
type Agent interface {
	SendRequest(ctx context.Context, request any) (any, error)
}

// InferenceClient is the live client handed to tools that declare an
// InferenceClient parameter, so a tool can ask the model follow-up questions.
type InferenceClient interface {
	CompleteChat(ctx context.Context, message string, opts CompletionOptions, tools []Tool, source Agent) (string, error)
}

// CompletionOptions control a single completion call.
type CompletionOptions struct {
	Temperature float64
	// SaveToHistory appends the user message and the final answer to the
	// conversation context once the call converges.
	SaveToHistory bool
}

// DefaultCompletionOptions returns temperature 0.7 with history saving enabled.
func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{Temperature: 0.7, SaveToHistory: true}
}

// Injection carries the capability values bound into InferenceClient and
// Agent parameters. They are never sourced from model-supplied arguments.
type Injection struct {
	Client InferenceClient
	Agent  Agent
}

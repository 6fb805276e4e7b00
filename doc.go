// Package agentkit lets a reasoning model call plain typed Go functions through a
// structured function-calling protocol.
//
// # Overview
//
// LLMs produce tool calls as JSON. This package derives the parameter schema shown
// to the model from the argument struct of a tool's entry operation, and turns the
// model's JSON back into that struct: bind (defaults, optionals, enums, nested
// structs) → validate → invoke → render the result as snake_case JSON text.
//
// Pipeline: Tool (Description + one Entry) → Compiler.Compile (reflection + schema) →
// CompiledTool → Compiler.Execute (bind, validate, call, format) → tool-result text.
//
// # Key concepts
//
//   - Explicit entry operations: a tool lists its single Entry; none or several is a
//     ToolCompileError for that tool only.
//   - Capability parameters: InferenceClient and Agent fields are injected at bind
//     time and never appear in the schema.
//   - Self-Correction: ClientError carries human-readable messages back to the LLM;
//     SystemError hides internals.
//
// The multi-turn completion loop lives in package inference, conversation
// strategies in package conversation.
//
// # Example
//
//	type WeatherArgs struct {
//	    City  string `json:"city" description:"City name"`
//	    Metric bool  `json:"metric" default:"true"`
//	}
//	type WeatherTool struct{}
//	func (WeatherTool) Description() string { return "Get weather" }
//	func (w WeatherTool) Entries() []agentkit.Entry {
//	    return []agentkit.Entry{agentkit.NewEntry(w.Run)}
//	}
//	func (WeatherTool) Run(_ context.Context, a WeatherArgs) (Out, error) { ... }
//
//	c := agentkit.NewCompiler()
//	ct, err := c.Compile(WeatherTool{}) // ct.Name == "Weather"
//	out, err := c.Execute(ctx, agentkit.Call{ID: "1", Tool: ct, Arguments: []byte(`{"city":"Moscow"}`)})
package agentkit

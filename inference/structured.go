package inference

import (
	"context"
	"fmt"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/chat"
)

// CompleteJSON runs a completion that must answer with a JSON value of type T.
// The schema derived from T is passed to the provider as a strict response
// format and the reply is validated against it before decoding.
func CompleteJSON[T any](
	ctx context.Context,
	c *Client,
	message string,
	opts agentkit.CompletionOptions,
	tools []agentkit.Tool,
	source agentkit.Agent,
) (T, error) {
	var zero T
	extractor, err := agentkit.NewExtractor[T](true)
	if err != nil {
		return zero, fmt.Errorf("response schema: %w", err)
	}
	compiled, _ := c.compiler.CompileAll(tools)
	format := &ResponseFormat{
		Name:   extractor.Name(),
		Schema: extractor.Schema(),
		Strict: true,
	}
	answer, err := c.run(ctx, chat.User(message), opts, compiled, source, format)
	if err != nil {
		return zero, err
	}
	c.summarizeIfNeeded(ctx)
	return extractor.ParseAndValidate([]byte(answer))
}

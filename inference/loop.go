package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/chat"
)

// ErrMaxIterations is returned when a completion needs more provider round-trips
// than the WithMaxIterations cap allows.
var ErrMaxIterations = errors.New("maximum completion iterations exceeded")

// run drives one completion: submit, execute requested tools, resubmit until the
// model answers without tool calls.
func (c *Client) run(
	ctx context.Context,
	message chat.Message,
	opts agentkit.CompletionOptions,
	tools []*agentkit.CompiledTool,
	source agentkit.Agent,
	format *ResponseFormat,
) (answer string, err error) {
	ctx, span := c.tracer.Start(ctx, "agentkit.complete", trace.WithAttributes(
		attribute.Int("agentkit.tools", len(tools)),
		attribute.Bool("agentkit.save_to_history", opts.SaveToHistory),
	))
	defer func() { endSpan(span, err) }()

	messages := chat.Merge(append(c.context.History(), message))
	inj := agentkit.Injection{Client: c, Agent: source}

	for turn := 1; ; turn++ {
		if c.maxIterations > 0 && turn > c.maxIterations {
			return "", fmt.Errorf("%w: %d", ErrMaxIterations, c.maxIterations)
		}
		resp, err := c.turn(ctx, turn, Request{
			Messages:       messages,
			Tools:          tools,
			Temperature:    opts.Temperature,
			ResponseFormat: format,
		})
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			if opts.SaveToHistory {
				c.context.Insert(message, chat.Assistant(resp.Text))
			}
			return resp.Text, nil
		}
		extra, err := c.runTools(ctx, resp.ToolCalls, tools, inj)
		if err != nil {
			return "", err
		}
		messages = append(messages, extra...)
	}
}

func (c *Client) turn(ctx context.Context, n int, req Request) (resp Response, err error) {
	ctx, span := c.tracer.Start(ctx, "agentkit.turn", trace.WithAttributes(
		attribute.Int("agentkit.turn", n),
		attribute.Int("agentkit.messages", len(req.Messages)),
	))
	defer func() {
		span.SetAttributes(attribute.Int("agentkit.tool_calls", len(resp.ToolCalls)))
		endSpan(span, err)
	}()

	c.logger.DebugContext(ctx, "completion turn", "turn", n, "messages", len(req.Messages))
	resp, err = c.provider.Complete(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("provider: %w", err)
	}
	return resp, nil
}

// runTools executes the matched calls sequentially in received order and
// returns the assistant tool-call message followed by one result per call.
// Calls naming no compiled tool are skipped, so a turn of only unknown calls
// adds nothing and the same sequence is submitted again. When every matched
// call fails the joined errors are returned.
func (c *Client) runTools(
	ctx context.Context,
	calls []chat.ToolCall,
	tools []*agentkit.CompiledTool,
	inj agentkit.Injection,
) ([]chat.Message, error) {
	matched := make([]chat.ToolCall, 0, len(calls))
	for _, call := range calls {
		if agentkit.Lookup(tools, call.Name) == nil {
			c.logger.DebugContext(ctx, "unmatched tool call skipped", "tool", call.Name, "call_id", call.ID)
			continue
		}
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		matched = append(matched, call)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	out := make([]chat.Message, 0, len(matched)+1)
	out = append(out, chat.Message{Role: chat.RoleAssistant, ToolCalls: matched})
	var errs []error
	for _, call := range matched {
		result, err := c.callTool(ctx, call, agentkit.Lookup(tools, call.Name), inj)
		if err != nil {
			errs = append(errs, fmt.Errorf("tool %s: %w", call.Name, err))
			result = err.Error()
		}
		out = append(out, chat.ToolResult(call.ID, result))
	}
	if len(errs) == len(matched) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (c *Client) callTool(
	ctx context.Context,
	call chat.ToolCall,
	tool *agentkit.CompiledTool,
	inj agentkit.Injection,
) (result string, err error) {
	ctx, span := c.tracer.Start(ctx, "agentkit.tool", trace.WithAttributes(
		attribute.String("agentkit.tool.name", call.Name),
		attribute.String("agentkit.tool.call_id", call.ID),
	))
	defer func() { endSpan(span, err) }()

	return c.compiler.Execute(ctx, agentkit.Call{
		ID:        call.ID,
		Tool:      tool,
		Arguments: call.Arguments,
		Injection: inj,
	})
}

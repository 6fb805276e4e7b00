package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/skosovsky/agentkit/chat"
	"github.com/skosovsky/agentkit/inference"
)

// ErrScriptExhausted is returned by ScriptedProvider when no step is left.
var ErrScriptExhausted = errors.New("scripted provider: no step left")

type step struct {
	resp inference.Response
	err  error
}

// ScriptedProvider replies with a fixed sequence of responses and records
// every request it receives. It is safe for concurrent use.
type ScriptedProvider struct {
	mu       sync.Mutex
	steps    []step
	requests []inference.Request
	// Limit is reported through MaxContextLength; zero disables summarization.
	Limit int
}

// NewScriptedProvider returns an empty script.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{}
}

// Reply appends a final text answer.
func (p *ScriptedProvider) Reply(text string) *ScriptedProvider {
	return p.push(step{resp: inference.Response{Text: text}})
}

// CallTools appends a turn requesting the given tool calls.
func (p *ScriptedProvider) CallTools(calls ...chat.ToolCall) *ScriptedProvider {
	return p.push(step{resp: inference.Response{ToolCalls: calls}})
}

// Fail appends a turn failing with err.
func (p *ScriptedProvider) Fail(err error) *ScriptedProvider {
	return p.push(step{err: err})
}

func (p *ScriptedProvider) push(s step) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, s)
	return p
}

// Complete pops the next step.
func (p *ScriptedProvider) Complete(ctx context.Context, req inference.Request) (inference.Response, error) {
	if err := ctx.Err(); err != nil {
		return inference.Response{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	req.Messages = append([]chat.Message(nil), req.Messages...)
	p.requests = append(p.requests, req)
	if len(p.steps) == 0 {
		return inference.Response{}, ErrScriptExhausted
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	return s.resp, s.err
}

// Requests returns the requests received so far.
func (p *ScriptedProvider) Requests() []inference.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]inference.Request(nil), p.requests...)
}

// Remaining returns the number of unconsumed steps.
func (p *ScriptedProvider) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps)
}

// MaxContextLength implements inference.ContextLimiter.
func (p *ScriptedProvider) MaxContextLength() int { return p.Limit }

// Call builds a tool call with JSON-encoded arguments. It panics if args cannot be encoded.
func Call(id, name string, args any) chat.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return chat.ToolCall{ID: id, Name: name, Arguments: raw}
}

var _ inference.ContextLimiter = (*ScriptedProvider)(nil)

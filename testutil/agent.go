package testutil

import (
	"context"
	"sync"

	"github.com/skosovsky/agentkit"
)

// RecordingAgent is an Agent that records requests and answers with Reply.
type RecordingAgent struct {
	Reply any
	Err   error

	mu       sync.Mutex
	requests []any
}

// SendRequest records request and returns Reply and Err.
func (a *RecordingAgent) SendRequest(_ context.Context, request any) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, request)
	return a.Reply, a.Err
}

// Requests returns the recorded requests.
func (a *RecordingAgent) Requests() []any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]any(nil), a.requests...)
}

var _ agentkit.Agent = (*RecordingAgent)(nil)

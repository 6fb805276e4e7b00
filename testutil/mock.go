// Package testutil provides test helpers for agentkit (MockTool, ScriptedProvider,
// RecordingAgent).
package testutil

import (
	"context"

	"github.com/skosovsky/agentkit"
)

// MockTool is a configurable Tool implementation for tests. A is the argument
// struct whose fields become the tool parameters.
type MockTool[A any] struct {
	NameVal   string
	DescVal   string
	ExecuteFn func(ctx context.Context, args A) (any, error)
}

// Name returns the tool name.
func (m *MockTool[A]) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool[A]) Description() string {
	return m.DescVal
}

// Entries returns the single entry, which runs ExecuteFn if set and otherwise returns nil.
func (m *MockTool[A]) Entries() []agentkit.Entry {
	return []agentkit.Entry{agentkit.NewEntry(func(ctx context.Context, args A) (any, error) {
		if m.ExecuteFn != nil {
			return m.ExecuteFn(ctx, args)
		}
		return nil, nil
	})}
}

// Ensure MockTool implements Tool and Named.
var (
	_ agentkit.Tool  = (*MockTool[struct{}])(nil)
	_ agentkit.Named = (*MockTool[struct{}])(nil)
)

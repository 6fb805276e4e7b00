package testutil

import (
	"time"

	"github.com/skosovsky/agentkit"
)

// NewTestCompiler returns a Compiler with long timeout, panic recovery and
// argument validation enabled, suitable for tests. opts are applied last.
func NewTestCompiler(opts ...agentkit.CompilerOption) *agentkit.Compiler {
	all := []agentkit.CompilerOption{
		agentkit.WithDefaultTimeout(30 * time.Second),
		agentkit.WithRecoverPanics(true),
		agentkit.WithArgumentValidation(),
	}
	return agentkit.NewCompiler(append(all, opts...)...)
}

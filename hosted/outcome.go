// Package hosted runs agents in the background: a polling loop that publishes
// per-iteration results and a router for proactive events.
package hosted

// Outcome is the result of one iteration: either a published value or a skip.
type Outcome[T any] struct {
	value     T
	published bool
}

// Published returns an outcome carrying v.
func Published[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, published: true}
}

// Skipped returns an outcome that publishes nothing.
func Skipped[T any]() Outcome[T] {
	return Outcome[T]{}
}

// Value returns the published value and true, or the zero value and false for a skip.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.published
}

// IsSkipped reports whether the iteration published nothing.
func (o Outcome[T]) IsSkipped() bool { return !o.published }

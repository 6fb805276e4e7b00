package hosted

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownEvent is returned by Dispatch for an event nobody subscribed to.
var ErrUnknownEvent = errors.New("hosted: unknown event")

// Event is a named proactive result.
type Event[T any] struct {
	Name    string `json:"event"`
	Payload T      `json:"response"`
}

// Router delivers events to the handler subscribed under their name.
type Router[T any] struct {
	mu       sync.RWMutex
	handlers map[string]func(ctx context.Context, payload T) error
}

// NewRouter returns an empty router.
func NewRouter[T any]() *Router[T] {
	return &Router[T]{handlers: make(map[string]func(context.Context, T) error)}
}

// Subscribe registers fn for name, replacing any previous handler.
func (r *Router[T]) Subscribe(name string, fn func(ctx context.Context, payload T) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Len returns the number of subscribed event names.
func (r *Router[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Dispatch calls the handler subscribed for e.Name.
func (r *Router[T]) Dispatch(ctx context.Context, e Event[T]) error {
	r.mu.RLock()
	fn, ok := r.handlers[e.Name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Name)
	}
	return fn(ctx, e.Payload)
}

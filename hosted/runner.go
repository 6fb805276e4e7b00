package hosted

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skosovsky/agentkit"
)

// ErrAlreadyRunning is returned by Run when the runner is already running.
var ErrAlreadyRunning = errors.New("hosted: runner already running")

// ErrSkip is returned by an agent driven through AgentStep to skip an iteration.
var ErrSkip = errors.New("hosted: iteration skipped")

const defaultInterval = time.Second

// Step performs one iteration.
type Step[T any] func(ctx context.Context, iteration int) (Outcome[T], error)

// Request is what AgentStep sends to the agent on every iteration.
type Request struct {
	Iteration int
}

// AgentStep adapts an agent to a Step. The agent receives a Request and must
// answer with a T; returning an error wrapping ErrSkip skips the iteration.
func AgentStep[T any](agent agentkit.Agent) Step[T] {
	return func(ctx context.Context, iteration int) (Outcome[T], error) {
		resp, err := agent.SendRequest(ctx, Request{Iteration: iteration})
		if errors.Is(err, ErrSkip) {
			return Skipped[T](), nil
		}
		if err != nil {
			return Outcome[T]{}, err
		}
		v, ok := resp.(T)
		if !ok {
			return Outcome[T]{}, fmt.Errorf("hosted: unexpected response type %T", resp)
		}
		return Published(v), nil
	}
}

// Runner calls a Step every interval until its context is cancelled.
// Published values go to the publisher (by default an internal queue read with
// Drain); skipped iterations publish nothing; step errors are logged and the
// loop continues.
type Runner[T any] struct {
	step       Step[T]
	interval   time.Duration
	canExecute func(ctx context.Context, iteration int) bool
	publish    func(ctx context.Context, v T) error
	logger     *slog.Logger

	running atomic.Bool
	mu      sync.Mutex
	queue   []T
}

// Option configures a Runner.
type Option[T any] func(*Runner[T])

// WithInterval sets the delay between iterations. Defaults to one second.
func WithInterval[T any](d time.Duration) Option[T] {
	return func(r *Runner[T]) {
		r.interval = d
	}
}

// WithCanExecute gates iterations. A gated-off iteration is not counted and the
// runner waits one interval before asking again.
func WithCanExecute[T any](fn func(ctx context.Context, iteration int) bool) Option[T] {
	return func(r *Runner[T]) {
		r.canExecute = fn
	}
}

// WithPublisher replaces the internal queue with fn.
func WithPublisher[T any](fn func(ctx context.Context, v T) error) Option[T] {
	return func(r *Runner[T]) {
		r.publish = fn
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(r *Runner[T]) {
		r.logger = logger
	}
}

// NewRunner creates a runner for step.
func NewRunner[T any](step Step[T], opts ...Option[T]) *Runner[T] {
	r := &Runner[T]{step: step, interval: defaultInterval, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.publish == nil {
		r.publish = r.enqueue
	}
	return r
}

// Run blocks until ctx is cancelled and returns its error.
func (r *Runner[T]) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	timer := time.NewTimer(0)
	defer timer.Stop()
	iteration := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if r.canExecute == nil || r.canExecute(ctx, iteration) {
			r.iterate(ctx, iteration)
			iteration++
		}
		timer.Reset(r.interval)
	}
}

func (r *Runner[T]) iterate(ctx context.Context, iteration int) {
	out, err := r.step(ctx, iteration)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.WarnContext(ctx, "hosted iteration failed", "iteration", iteration, "error", err)
		}
		return
	}
	v, ok := out.Value()
	if !ok {
		r.logger.DebugContext(ctx, "hosted iteration skipped", "iteration", iteration)
		return
	}
	if err := r.publish(ctx, v); err != nil {
		r.logger.ErrorContext(ctx, "hosted publish failed", "iteration", iteration, "error", err)
	}
}

// Running reports whether Run is in progress.
func (r *Runner[T]) Running() bool { return r.running.Load() }

func (r *Runner[T]) enqueue(_ context.Context, v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, v)
	return nil
}

// Drain returns and clears the values published to the internal queue.
func (r *Runner[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.queue
	r.queue = nil
	return out
}

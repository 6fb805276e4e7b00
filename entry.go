package agentkit

import (
	"context"
	"reflect"
)

// Result is the value delivered by an asynchronous entry operation.
type Result[R any] struct {
	Value R
	Err   error
}

// Entry is the single invocable operation of a Tool. Its argument struct declares
// the tool parameters; the struct fields are walked in declaration order.
// Build entries with NewEntry, NewAsyncEntry or NewVoidEntry.
type Entry struct {
	args  reflect.Type
	async bool
	call  func(ctx context.Context, args reflect.Value) (any, error)
}

// NewEntry declares a synchronous entry operation.
func NewEntry[A any, R any](fn func(ctx context.Context, args A) (R, error)) Entry {
	return Entry{
		args: reflect.TypeFor[A](),
		call: func(ctx context.Context, args reflect.Value) (any, error) {
			res, err := fn(ctx, args.Interface().(A))
			if err != nil {
				return nil, err
			}
			return res, nil
		},
	}
}

// NewAsyncEntry declares an asynchronous entry operation. The invoker awaits the
// first value sent on the returned channel. A channel closed without a value is
// treated as a void result. The wait is not interrupted by ctx; an operation that
// honors cancellation must deliver its own error.
func NewAsyncEntry[A any, R any](fn func(ctx context.Context, args A) <-chan Result[R]) Entry {
	return Entry{
		args:  reflect.TypeFor[A](),
		async: true,
		call: func(ctx context.Context, args reflect.Value) (any, error) {
			ch := fn(ctx, args.Interface().(A))
			if ch == nil {
				return nil, nil
			}
			r, ok := <-ch
			if !ok {
				return nil, nil
			}
			if r.Err != nil {
				return nil, r.Err
			}
			return r.Value, nil
		},
	}
}

// NewVoidEntry declares an entry operation without a result. Its tool result is "null".
func NewVoidEntry[A any](fn func(ctx context.Context, args A) error) Entry {
	return Entry{
		args: reflect.TypeFor[A](),
		call: func(ctx context.Context, args reflect.Value) (any, error) {
			return nil, fn(ctx, args.Interface().(A))
		},
	}
}

// ArgsType returns the argument struct type of the entry.
func (e Entry) ArgsType() reflect.Type { return e.args }

// Async reports whether the entry was declared with NewAsyncEntry.
func (e Entry) Async() bool { return e.async }

// findEntry returns the only entry declared by t.
func findEntry(t Tool) (Entry, error) {
	entries := t.Entries()
	switch len(entries) {
	case 0:
		return Entry{}, ErrNoEntry
	case 1:
	default:
		return Entry{}, ErrAmbiguousEntry
	}
	e := entries[0]
	if e.call == nil || e.args == nil {
		return Entry{}, ErrNoEntry
	}
	return e, nil
}

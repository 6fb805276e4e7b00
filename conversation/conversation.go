// Package conversation owns conversation history and the views of it that are
// submitted to a model: disabled, full, windowed and retrieval-augmented.
//
// A Context is owned by one logical conversation at a time. Reads and writes are
// serialized internally, but interleaving two completions on one Context still
// interleaves their messages; use one Context per agent.
package conversation

import (
	"errors"
	"fmt"

	"github.com/skosovsky/agentkit/chat"
)

// Context stores messages and projects the history submitted to a model.
type Context interface {
	// History returns the view submitted to the model. It may differ from the
	// stored sequence (windowed, augmented with documents).
	History() []chat.Message
	// Insert appends messages to the stored sequence.
	Insert(messages ...chat.Message)
	// Messages returns a copy of the stored sequence.
	Messages() []chat.Message
	// SetMessages replaces the stored sequence (history rewrite after summarization).
	SetMessages(messages []chat.Message)
}

// Kind names a context strategy.
type Kind string

const (
	KindDisabled Kind = "disabled"
	KindLong     Kind = "long"
	KindShort    Kind = "short"
	KindRag      Kind = "rag"
)

// ErrUnknownKind is returned by New for an unrecognized strategy name.
var ErrUnknownKind = errors.New("unknown conversation kind")

// New builds the context strategy named by kind. docs are used by KindRag only.
func New(kind Kind, docs []Document, opts ...Option) (Context, error) {
	switch kind {
	case KindDisabled:
		return NewDisabled(), nil
	case KindLong, "":
		return NewLong(opts...), nil
	case KindShort:
		return NewShort(opts...), nil
	case KindRag:
		return NewRag(docs, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Option configures a context.
type Option func(*options)

type options struct {
	prompt        string
	messages      []chat.Message
	depth         int
	documentDepth int
	threshold     float64
	maxDocuments  int
}

func defaultOptions() options {
	return options{
		depth:         10,
		documentDepth: 2,
		threshold:     0.3,
	}
}

// WithPrompt seeds the stored sequence with a leading system message.
func WithPrompt(prompt string) Option {
	return func(o *options) {
		o.prompt = prompt
	}
}

// WithMessages seeds the stored sequence (after the prompt, if any).
func WithMessages(messages []chat.Message) Option {
	return func(o *options) {
		o.messages = append([]chat.Message(nil), messages...)
	}
}

// WithDepth sets how many trailing stored messages Short and Rag submit. Default 10.
// A depth <= 0 submits no stored messages; it does not mean unbounded.
func WithDepth(n int) Option {
	return func(o *options) {
		o.depth = n
	}
}

// WithDocumentDepth sets how many trailing stored messages form the Rag query. Default 2.
// A depth <= 0 leaves the query empty, so no document is relevant above a
// positive threshold.
func WithDocumentDepth(n int) Option {
	return func(o *options) {
		o.documentDepth = n
	}
}

// WithRelevanceThreshold sets the minimum Jaccard relevance for a Rag document. Default 0.3.
func WithRelevanceThreshold(threshold float64) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// WithMaxDocuments caps how many relevant documents Rag prepends.
// Zero (the default) means no cap.
func WithMaxDocuments(n int) Option {
	return func(o *options) {
		o.maxDocuments = n
	}
}

func seed(o options) []chat.Message {
	var out []chat.Message
	if o.prompt != "" {
		out = append(out, chat.System(o.prompt))
	}
	return append(out, o.messages...)
}

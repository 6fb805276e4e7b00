package conversation

import (
	"sync"

	"github.com/skosovsky/agentkit/chat"
)

// Disabled keeps no history. History is always empty and inserts are dropped.
type Disabled struct{}

// NewDisabled returns a stateless context for one-off calls.
func NewDisabled() *Disabled { return &Disabled{} }

func (*Disabled) History() []chat.Message    { return nil }
func (*Disabled) Insert(...chat.Message)     {}
func (*Disabled) Messages() []chat.Message   { return nil }
func (*Disabled) SetMessages([]chat.Message) {}

// store is the stored sequence shared by Long, Short and Rag.
type store struct {
	mu       sync.RWMutex
	messages []chat.Message
}

func (s *store) Insert(messages ...chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages...)
}

func (s *store) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chat.Message(nil), s.messages...)
}

func (s *store) SetMessages(messages []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]chat.Message(nil), messages...)
}

// last returns a copy of the trailing n stored messages; none when n <= 0.
func (s *store) last(n int) []chat.Message {
	if n <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]chat.Message(nil), msgs...)
}

// Long submits the entire stored sequence.
type Long struct {
	store
}

// NewLong returns a context that submits the full history.
func NewLong(opts ...Option) *Long {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	l := &Long{}
	l.messages = seed(o)
	return l
}

func (l *Long) History() []chat.Message { return l.Messages() }

// Short submits only the last Depth stored messages. The seed prompt is an
// ordinary stored message and leaves the window as the conversation grows.
type Short struct {
	store
	depth int
}

// NewShort returns a windowed context (depth 10 unless WithDepth is given).
func NewShort(opts ...Option) *Short {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Short{depth: o.depth}
	s.messages = seed(o)
	return s
}

func (s *Short) History() []chat.Message { return s.last(s.depth) }

// Depth returns the window size.
func (s *Short) Depth() int { return s.depth }

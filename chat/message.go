// Package chat holds the provider-neutral conversation message model.
package chat

import (
	"encoding/json"
	"strings"
)

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// AttachmentKind discriminates message attachments.
type AttachmentKind int

const (
	KindText AttachmentKind = iota
	KindImage
)

// Attachment is one piece of message content: text or an image reference.
type Attachment struct {
	Kind     AttachmentKind
	Text     string
	URL      string
	MIMEType string
}

// Text returns a text attachment.
func Text(s string) Attachment {
	return Attachment{Kind: KindText, Text: s}
}

// Image returns an image reference attachment. mimeType may be empty.
func Image(url, mimeType string) Attachment {
	return Attachment{Kind: KindImage, URL: url, MIMEType: mimeType}
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one entry of a conversation. Tool-call records (an assistant
// message carrying ToolCalls, or a tool message answering ToolCallID) only
// exist inside a single completion and are never stored in a context.
type Message struct {
	Role       Role
	Content    []Attachment
	Tag        string
	ToolCalls  []ToolCall
	ToolCallID string
}

// System returns a system message with a single text attachment.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: []Attachment{Text(text)}}
}

// User returns a user message with a text attachment followed by extra attachments.
func User(text string, extra ...Attachment) Message {
	content := append([]Attachment{Text(text)}, extra...)
	return Message{Role: RoleUser, Content: content}
}

// Assistant returns an assistant message with a single text attachment.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: []Attachment{Text(text)}}
}

// ToolResult returns the tool message answering the call with the given id.
func ToolResult(callID, text string) Message {
	return Message{Role: RoleTool, Content: []Attachment{Text(text)}, ToolCallID: callID}
}

// Tagged returns a copy of m with the tag set.
func (m Message) Tagged(tag string) Message {
	m.Tag = tag
	return m
}

// Text concatenates the text attachments of m in order.
func (m Message) Text() string {
	var b strings.Builder
	for _, a := range m.Content {
		if a.Kind == KindText {
			b.WriteString(a.Text)
		}
	}
	return b.String()
}

// Images returns the image attachments of m.
func (m Message) Images() []Attachment {
	var out []Attachment
	for _, a := range m.Content {
		if a.Kind == KindImage {
			out = append(out, a)
		}
	}
	return out
}

func (m Message) isToolRecord() bool {
	return len(m.ToolCalls) > 0 || m.ToolCallID != ""
}

// Merge coalesces adjacent messages that share role and tag. Text attachments of
// a merged-in message are prefixed with a line break; other attachments are kept
// as they are. Order is preserved. Tool-call records are never merged.
// The input slice is not modified.
func Merge(messages []Message) []Message {
	if len(messages) <= 1 {
		return append([]Message(nil), messages...)
	}
	out := make([]Message, 0, len(messages))
	cur := clone(messages[0])
	for _, m := range messages[1:] {
		if m.Role != cur.Role || m.Tag != cur.Tag || m.isToolRecord() || cur.isToolRecord() {
			out = append(out, cur)
			cur = clone(m)
			continue
		}
		for _, a := range m.Content {
			if a.Kind == KindText {
				a.Text = "\n" + a.Text
			}
			cur.Content = append(cur.Content, a)
		}
	}
	return append(out, cur)
}

func clone(m Message) Message {
	m.Content = append([]Attachment(nil), m.Content...)
	m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	return m
}

package inference

import (
	"context"
	"fmt"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/chat"
)

const (
	// SummarizedTag marks the recap message at the head of a summarized history.
	SummarizedTag = "Summarized"
	// SummaryPrefix starts the recap message text.
	SummaryPrefix = "Brief summary of the chat: "
	// RecapInstruction is the meta-instruction sent to obtain the recap.
	RecapInstruction = "[Now pause the chat with me and create a short recap of our chat. " +
		"Keep important parts, remove water and unnecessary parts.]\n" +
		"[Just write a short summary, don't talk to me]:"

	recapTemperature = 0.3
)

func (c *Client) summarizeIfNeeded(ctx context.Context) {
	limit := c.maxContextLength
	if limit <= 0 {
		return
	}
	if n := len(c.context.Messages()); n <= limit {
		return
	}
	if err := c.Summarize(ctx); err != nil {
		c.logger.WarnContext(ctx, "summarization failed", "error", err)
	}
}

// Summarize asks the model for a recap of the conversation (not saved to
// history) and rewrites the stored messages to the recap followed by the most
// recent ones, keeping MaxContextLength()/2 messages in total.
func (c *Client) Summarize(ctx context.Context) error {
	recap, err := c.run(ctx, chat.User(RecapInstruction),
		agentkit.CompletionOptions{Temperature: recapTemperature}, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	before := c.context.Messages()
	after := Compact(before, recap, c.maxContextLength/2)
	c.context.SetMessages(after)
	c.logger.InfoContext(ctx, "conversation summarized", "before", len(before), "after", len(after))
	if c.onSummarize != nil {
		c.onSummarize(ctx, recap)
	}
	return nil
}

// Compact drops earlier recaps, keeps the trailing keep-1 messages and puts a
// new system recap tagged SummarizedTag at the head.
func Compact(messages []chat.Message, recap string, keep int) []chat.Message {
	rest := make([]chat.Message, 0, len(messages))
	for _, m := range messages {
		if m.Tag != SummarizedTag {
			rest = append(rest, m)
		}
	}
	n := max(keep-1, 0)
	if len(rest) > n {
		rest = rest[len(rest)-n:]
	}
	out := make([]chat.Message, 0, len(rest)+1)
	out = append(out, chat.System(SummaryPrefix+recap).Tagged(SummarizedTag))
	return append(out, rest...)
}

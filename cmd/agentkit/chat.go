package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/inference"
)

const exitCommand = "/exit"

type chatFlags struct {
	tier    string
	message string
	noTools bool
}

func newChatCmd(a *app) *cobra.Command {
	var f chatFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the configured model",
		Long: `Chat with the configured model.

Without --message, reads one message per line from stdin until EOF or /exit.

Examples:
  agentkit -c agentkit.yaml chat
  agentkit -c agentkit.yaml chat --tier heavy -m "What is 12 * 7?"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.chat(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.tier, "tier", "", "inference tier (light, middle, heavy); defaults to completion.tier")
	cmd.Flags().StringVarP(&f.message, "message", "m", "", "send a single message and exit")
	cmd.Flags().BoolVar(&f.noTools, "no-tools", false, "do not offer the built-in tools")
	return cmd
}

func (a *app) chat(cmd *cobra.Command, f chatFlags) error {
	ctx := cmd.Context()
	tierName := f.tier
	if tierName == "" {
		tierName = a.cfg.Completion.Tier
	}
	tier, err := inference.ParseTier(tierName)
	if err != nil {
		return err
	}
	factory, err := a.newFactory(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	conv, err := a.cfg.NewContext()
	if err != nil {
		return err
	}
	client, err := factory.CreateClient(ctx, tier, conv, inference.OnSummarize(func(ctx context.Context, recap string) {
		a.logger.InfoContext(ctx, "history summarized", "recap_length", len(recap))
	}))
	if err != nil {
		return err
	}

	var tools []agentkit.Tool
	if !f.noTools {
		tools = builtinTools()
	}
	opts := agentkit.CompletionOptions{Temperature: a.cfg.Completion.Temperature, SaveToHistory: true}
	out := cmd.OutOrStdout()

	if f.message != "" {
		answer, err := client.CompleteChat(ctx, f.message, opts, tools, nil)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, answer)
		return err
	}
	return repl(ctx, cmd.InOrStdin(), out, func(line string) (string, error) {
		return client.CompleteChat(ctx, line, opts, tools, nil)
	})
}

// repl answers every non-empty input line until EOF, /exit or cancellation.
// Completion errors are printed and the session continues.
func repl(ctx context.Context, in io.Reader, out io.Writer, answer func(string) (string, error)) error {
	scanner := bufio.NewScanner(in)
	for {
		if _, err := fmt.Fprint(out, "> "); err != nil {
			return err
		}
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case exitCommand:
			return nil
		}
		reply, err := answer(line)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			reply = "error: " + err.Error()
		}
		if _, err := fmt.Fprintln(out, reply); err != nil {
			return err
		}
	}
}

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/skosovsky/agentkit/inference"
	"github.com/skosovsky/agentkit/internal/config"
)

// deps are the collaborators the commands build on; tests replace them.
type deps struct {
	newFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*inference.Factory, error)
}

func defaultDeps() deps {
	return deps{newFactory: buildFactory}
}

// app is the state shared by subcommands after flag parsing.
type app struct {
	deps
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd(d deps) *cobra.Command {
	a := &app{deps: d}
	root := &cobra.Command{
		Use:           "agentkit",
		Short:         "Chat with a tool-using model",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the YAML configuration file")
	root.AddCommand(newChatCmd(a), newToolsCmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

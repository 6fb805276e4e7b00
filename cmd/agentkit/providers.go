package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/skosovsky/agentkit/inference"
	"github.com/skosovsky/agentkit/internal/config"
	"github.com/skosovsky/agentkit/provider/gemini"
	"github.com/skosovsky/agentkit/provider/openai"
)

// buildFactory registers every configured provider under its tier.
func buildFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*inference.Factory, error) {
	factory := inference.NewFactory(logger,
		inference.WithLogger(logger),
		inference.WithMaxIterations(cfg.Completion.MaxIterations),
	)
	for _, pc := range cfg.Providers {
		tier, err := inference.ParseTier(pc.Tier)
		if err != nil {
			return nil, err
		}
		p, err := newProvider(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		// Gemini transport failures are retried by default.
		if pc.Retries > 0 || pc.Kind == config.KindGemini {
			p = inference.WithRetry(p, pc.Retries, pc.RetryDelay, inference.WithRetryLogger(logger))
		}
		factory.Register(tier, p)
		logger.DebugContext(ctx, "provider registered", "name", pc.Name, "kind", pc.Kind, "model", pc.Model, "tier", tier.String())
	}
	return factory, nil
}

func newProvider(ctx context.Context, pc config.Provider) (inference.Provider, error) {
	switch pc.Kind {
	case config.KindOpenAI:
		opts := []openai.Option{openai.WithMaxContextLength(pc.MaxContextLength)}
		if pc.APIKey != "" {
			opts = append(opts, openai.WithAPIKey(pc.APIKey))
		}
		if pc.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pc.BaseURL))
		}
		return openai.New(pc.Model, opts...), nil
	case config.KindAzure:
		opts := []openai.Option{
			openai.WithBaseURL(pc.BaseURL),
			openai.WithMaxContextLength(pc.MaxContextLength),
		}
		if pc.APIKey != "" {
			opts = append(opts, openai.WithAzureAPIKey(pc.APIKey))
		} else {
			cred, err := azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, fmt.Errorf("azure credential: %w", err)
			}
			opts = append(opts, openai.WithAzureCredential(cred))
		}
		return openai.New(pc.Model, opts...), nil
	case config.KindGemini:
		opts := []gemini.Option{gemini.WithMaxContextLength(pc.MaxContextLength)}
		if pc.APIKey != "" {
			opts = append(opts, gemini.WithAPIKey(pc.APIKey))
		}
		if pc.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(pc.BaseURL))
		}
		p, err := gemini.New(ctx, pc.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", pc.Kind)
	}
}

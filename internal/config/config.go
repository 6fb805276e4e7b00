// Package config loads the YAML configuration of the agentkit CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/skosovsky/agentkit/conversation"
	"github.com/skosovsky/agentkit/inference"
)

// Provider kinds. KindAzure is an OpenAI-compatible Azure deployment; without
// api_key it authenticates with the ambient Azure identity.
const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
	KindAzure  = "azure"
)

// Config is the root of the configuration file.
type Config struct {
	LogLevel     string       `yaml:"log_level"`
	Providers    []Provider   `yaml:"providers"`
	Conversation Conversation `yaml:"conversation"`
	Completion   Completion   `yaml:"completion"`

	// dir is the directory of the loaded file; document paths are relative to it.
	dir string
}

// Provider describes one model registered under a tier.
type Provider struct {
	Name             string        `yaml:"name"`
	Kind             string        `yaml:"kind"`
	Model            string        `yaml:"model"`
	Tier             string        `yaml:"tier"`
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	MaxContextLength int           `yaml:"max_context_length"`
	Retries          int           `yaml:"retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
}

// Conversation selects and tunes the conversation strategy.
type Conversation struct {
	Kind               conversation.Kind `yaml:"kind"`
	Prompt             string            `yaml:"prompt"`
	Depth              int               `yaml:"depth"`
	DocumentDepth      int               `yaml:"document_depth"`
	RelevanceThreshold float64           `yaml:"relevance_threshold"`
	MaxDocuments       int               `yaml:"max_documents"`
	Documents          []Document        `yaml:"documents"`
}

// Document is a Rag document given inline or as a file path.
type Document struct {
	Path     string `yaml:"path"`
	Content  string `yaml:"content"`
	Language string `yaml:"language"`
}

// Completion holds per-call defaults.
type Completion struct {
	Tier          string  `yaml:"tier"`
	Temperature   float64 `yaml:"temperature"`
	MaxIterations int     `yaml:"max_iterations"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Conversation: Conversation{
			Kind:               conversation.KindLong,
			Depth:              10,
			DocumentDepth:      2,
			RelevanceThreshold: 0.3,
		},
		Completion: Completion{Tier: inference.TierMiddle.String(), Temperature: 0.7},
	}
}

// Load reads a .env file next to the working directory if present, then the
// YAML file at path. $VAR and ${VAR} references are expanded from the
// environment before parsing; unknown keys are rejected.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes YAML data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks provider and conversation settings.
func (c *Config) Validate() error {
	var errs []error
	names := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		switch p.Kind {
		case KindOpenAI, KindGemini:
		case KindAzure:
			if p.BaseURL == "" {
				errs = append(errs, fmt.Errorf("providers[%d]: base_url is required for %s", i, KindAzure))
			}
		default:
			errs = append(errs, fmt.Errorf("providers[%d]: unknown kind %q", i, p.Kind))
		}
		if p.Model == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: model is required", i))
		}
		if _, err := inference.ParseTier(p.Tier); err != nil {
			errs = append(errs, fmt.Errorf("providers[%d]: %w", i, err))
		}
		if p.Name != "" && names[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		names[p.Name] = true
	}
	if _, err := conversation.New(c.Conversation.Kind, nil); err != nil {
		errs = append(errs, fmt.Errorf("conversation: %w", err))
	}
	switch c.Conversation.Kind {
	case conversation.KindShort, conversation.KindRag:
		if c.Conversation.Depth <= 0 {
			errs = append(errs, fmt.Errorf("conversation: depth must be positive, got %d", c.Conversation.Depth))
		}
	}
	if c.Conversation.Kind == conversation.KindRag && c.Conversation.DocumentDepth <= 0 {
		errs = append(errs, fmt.Errorf("conversation: document_depth must be positive, got %d", c.Conversation.DocumentDepth))
	}
	for i, d := range c.Conversation.Documents {
		if (d.Path == "") == (d.Content == "") {
			errs = append(errs, fmt.Errorf("conversation.documents[%d]: exactly one of path and content is required", i))
		}
	}
	if _, err := inference.ParseTier(c.Completion.Tier); err != nil {
		errs = append(errs, fmt.Errorf("completion: %w", err))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ContextOptions returns the conversation options described by c.
func (c Conversation) ContextOptions() []conversation.Option {
	opts := []conversation.Option{
		conversation.WithDepth(c.Depth),
		conversation.WithDocumentDepth(c.DocumentDepth),
		conversation.WithRelevanceThreshold(c.RelevanceThreshold),
		conversation.WithMaxDocuments(c.MaxDocuments),
	}
	if c.Prompt != "" {
		opts = append(opts, conversation.WithPrompt(c.Prompt))
	}
	return opts
}

// Documents loads the configured documents. Relative paths are resolved
// against the directory of the configuration file.
func (c *Config) Documents() ([]conversation.Document, error) {
	out := make([]conversation.Document, 0, len(c.Conversation.Documents))
	for i, d := range c.Conversation.Documents {
		content := d.Content
		if d.Path != "" {
			path := d.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(c.dir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("conversation.documents[%d]: %w", i, err)
			}
			content = string(data)
		}
		tag := language.Und
		if d.Language != "" {
			var err error
			if tag, err = language.Parse(d.Language); err != nil {
				return nil, fmt.Errorf("conversation.documents[%d]: language %q: %w", i, d.Language, err)
			}
		}
		out = append(out, conversation.Document{Content: content, Language: tag})
	}
	return out, nil
}

// NewContext builds the configured conversation context.
func (c *Config) NewContext() (conversation.Context, error) {
	docs, err := c.Documents()
	if err != nil {
		return nil, err
	}
	return conversation.New(c.Conversation.Kind, docs, c.Conversation.ContextOptions()...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

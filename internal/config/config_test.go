package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/language"

	"github.com/skosovsky/agentkit/conversation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sample = `
log_level: debug
providers:
  - name: fast
    kind: openai
    model: gpt-4o-mini
    tier: light
    api_key: $AGENTKIT_TEST_KEY
    max_context_length: 20
  - name: smart
    kind: gemini
    model: gemini-2.5-pro
    tier: heavy
    api_key: ${AGENTKIT_TEST_KEY}
    retries: 3
    retry_delay: 250ms
conversation:
  kind: rag
  prompt: You are a helpful assistant.
  depth: 6
  documents:
    - path: docs/faq.txt
      language: en
    - content: Inline notes about billing.
completion:
  tier: heavy
  temperature: 0.2
  max_iterations: 8
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "faq.txt"), []byte("Refunds take five days."), 0o600))
	path := filepath.Join(dir, "agentkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("AGENTKIT_TEST_KEY", "secret")
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "secret", cfg.Providers[0].APIKey)
	assert.Equal(t, "secret", cfg.Providers[1].APIKey)
	assert.Equal(t, 20, cfg.Providers[0].MaxContextLength)
	assert.Equal(t, 250*time.Millisecond, cfg.Providers[1].RetryDelay)
	assert.Equal(t, 3, cfg.Providers[1].Retries)

	assert.Equal(t, conversation.KindRag, cfg.Conversation.Kind)
	assert.Equal(t, 6, cfg.Conversation.Depth)
	assert.Equal(t, 2, cfg.Conversation.DocumentDepth, "default kept")
	assert.InDelta(t, 0.3, cfg.Conversation.RelevanceThreshold, 1e-9)
	assert.InDelta(t, 0.2, cfg.Completion.Temperature, 1e-9)
	assert.Equal(t, 8, cfg.Completion.MaxIterations)

	level, err := ParseLevel(cfg.LogLevel)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	docs, err := cfg.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Refunds take five days.", docs[0].Content)
	assert.Equal(t, language.English, docs[0].Language)
	assert.Equal(t, language.Und, docs[1].Language)

	ctx, err := cfg.NewContext()
	require.NoError(t, err)
	rag, ok := ctx.(*conversation.Rag)
	require.True(t, ok)
	require.NotEmpty(t, rag.Messages())
	assert.Equal(t, "You are a helpful assistant.", rag.Messages()[0].Text())
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	ctx, err := cfg.NewContext()
	require.NoError(t, err)
	assert.IsType(t, &conversation.Long{}, ctx)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("providers:\n  - kind: openai\n    model: m\n    tier: light\n    temprature: 1\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	body := `
log_level: loud
providers:
  - name: a
    kind: anthropic
    tier: light
  - name: a
    kind: openai
    model: m
    tier: ultra
conversation:
  kind: forgetful
  documents:
    - {}
completion:
  tier: light
`
	_, err := Parse([]byte(body))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown kind "anthropic"`)
	assert.Contains(t, msg, "model is required")
	assert.Contains(t, msg, `duplicate name "a"`)
	assert.Contains(t, msg, `unknown tier "ultra"`)
	assert.Contains(t, msg, "unknown conversation kind")
	assert.Contains(t, msg, "exactly one of path and content")
	assert.Contains(t, msg, "log_level")

	_, err = Parse([]byte("providers:\n  - kind: azure\n    model: gpt-4o\n    tier: light\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url is required for azure")
}

func TestValidateDepth(t *testing.T) {
	body := `
conversation:
  kind: rag
  depth: 0
  document_depth: -1
`
	_, err := Parse([]byte(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth must be positive, got 0")
	assert.Contains(t, err.Error(), "document_depth must be positive, got -1")

	_, err = Parse([]byte("conversation:\n  kind: long\n  depth: 0\n"))
	require.NoError(t, err)
}

func TestDocumentsErrors(t *testing.T) {
	cfg := Default()
	cfg.Conversation.Documents = []Document{{Path: "missing.txt"}}
	cfg.dir = t.TempDir()
	_, err := cfg.Documents()
	require.Error(t, err)

	cfg.Conversation.Documents = []Document{{Content: "x", Language: "not a tag!"}}
	_, err = cfg.Documents()
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

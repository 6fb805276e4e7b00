package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/inference"
	"github.com/skosovsky/agentkit/internal/config"
	"github.com/skosovsky/agentkit/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func scriptedDeps(p *testutil.ScriptedProvider) deps {
	return deps{newFactory: func(_ context.Context, _ *config.Config, logger *slog.Logger) (*inference.Factory, error) {
		f := inference.NewFactory(logger, inference.WithCompiler(testutil.NewTestCompiler()))
		f.Register(inference.TierMiddle, p)
		return f, nil
	}}
}

func execute(t *testing.T, d deps, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(d)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestToolsCommand(t *testing.T) {
	out, err := execute(t, defaultDeps(), "", "tools")
	require.NoError(t, err)

	var schemas []toolSchema
	require.NoError(t, json.Unmarshal([]byte(out), &schemas))
	require.Len(t, schemas, 2)
	assert.Equal(t, "Calculator", schemas[0].Name)
	assert.Equal(t, "Clock", schemas[1].Name)

	props := schemas[0].Parameters["properties"].(map[string]any)
	op := props["op"].(map[string]any)
	assert.Equal(t, []any{"add", "sub", "mul", "div"}, op["enum"])
	assert.Equal(t, "add", op["default"])
	assert.ElementsMatch(t, []any{"a", "b"}, schemas[0].Parameters["required"])
}

func TestChatSingleMessage(t *testing.T) {
	p := testutil.NewScriptedProvider().
		CallTools(testutil.Call("c1", "Calculator", map[string]any{"op": "mul", "a": 12, "b": 7})).
		Reply("84")

	out, err := execute(t, scriptedDeps(p), "", "chat", "-m", "What is 12 * 7?")
	require.NoError(t, err)
	assert.Equal(t, "84\n", out)

	reqs := p.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Tools, 2)
	assert.JSONEq(t, `{"result":84}`, reqs[1].Messages[2].Text())
}

func TestChatREPL(t *testing.T) {
	p := testutil.NewScriptedProvider().Reply("hello").Fail(errors.New("overloaded")).Reply("bye")

	out, err := execute(t, scriptedDeps(p), "hi\n\nagain\nlast\n/exit\nignored\n", "chat", "--no-tools")
	require.NoError(t, err)
	assert.Equal(t, "> hello\n> > error: provider: overloaded\n> bye\n> ", out)

	reqs := p.Requests()
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[0].Tools)
	// The failed exchange is not stored.
	assert.Len(t, reqs[2].Messages, 3)
}

func TestChatUnknownTier(t *testing.T) {
	_, err := execute(t, scriptedDeps(testutil.NewScriptedProvider()), "", "chat", "--tier", "ultra", "-m", "x")
	require.Error(t, err)
}

func TestChatWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentkit.yaml")
	body := "log_level: warn\nconversation:\n  kind: short\n  prompt: Be terse.\ncompletion:\n  tier: light\n  temperature: 0.1\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	p := testutil.NewScriptedProvider().Reply("ok")
	out, err := execute(t, scriptedDeps(p), "", "-c", path, "chat", "-m", "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	req := p.Requests()[0]
	assert.InDelta(t, 0.1, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "Be terse.", req.Messages[0].Text())
}

func TestBuildFactory(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = []config.Provider{
		{Name: "a", Kind: config.KindOpenAI, Model: "gpt", Tier: "light", APIKey: "k", MaxContextLength: 20},
		{Name: "b", Kind: config.KindGemini, Model: "gemini", Tier: "heavy", APIKey: "k"},
		{Name: "c", Kind: config.KindAzure, Model: "gpt-4o", Tier: "middle", APIKey: "k", BaseURL: "https://example.openai.azure.com/openai/v1"},
	}
	f, err := buildFactory(context.Background(), cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	assert.Equal(t, []inference.Tier{inference.TierLight, inference.TierMiddle, inference.TierHeavy}, f.Tiers())

	c, err := f.CreateClient(context.Background(), inference.TierLight, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, c.MaxContextLength())

	c, err = f.CreateClient(context.Background(), inference.TierHeavy, nil)
	require.NoError(t, err)
	assert.IsType(t, &inference.RetryProvider{}, c.Provider())
}

func TestCalculator(t *testing.T) {
	ctx := context.Background()
	res, err := calculate(ctx, calcArgs{Op: OpSub, A: 5, B: 2})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, res.Result, 1e-9)

	_, err = calculate(ctx, calcArgs{Op: OpDiv, A: 1})
	require.ErrorIs(t, err, errDivisionByZero)
	assert.True(t, agentkit.IsClientError(err))

	_, err = calculate(ctx, calcArgs{Op: "pow"})
	require.Error(t, err)
}

func TestClockTool(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	compiler := testutil.NewTestCompiler()
	ct, err := compiler.Compile(ClockTool{now: func() time.Time { return fixed }})
	require.NoError(t, err)

	out, err := compiler.Execute(context.Background(), agentkit.Call{ID: "1", Tool: ct, Arguments: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"zone":"UTC","time":"2024-03-01T12:00:00Z"}`, out)

	out, err = compiler.Execute(context.Background(), agentkit.Call{ID: "2", Tool: ct, Arguments: json.RawMessage(`{"zone":"Mars/Olympus"}`)})
	require.Error(t, err)
	assert.True(t, agentkit.IsClientError(err))
	assert.Empty(t, out)
}

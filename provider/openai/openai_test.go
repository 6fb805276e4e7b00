package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/agentkit"
	"github.com/skosovsky/agentkit/chat"
	"github.com/skosovsky/agentkit/inference"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type weatherArgs struct {
	City string `json:"city" description:"City name"`
}

type weatherTool struct{}

func (weatherTool) Description() string { return "Current weather" }

func (weatherTool) Entries() []agentkit.Entry {
	return []agentkit.Entry{agentkit.NewEntry(func(_ context.Context, a weatherArgs) (string, error) {
		return "sunny in " + a.City, nil
	})}
}

func compiledWeather(t *testing.T) *agentkit.CompiledTool {
	t.Helper()
	ct, err := agentkit.NewCompiler().Compile(weatherTool{})
	require.NoError(t, err)
	return ct
}

// server answers every chat completion with body and records the last request.
func server(t *testing.T, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, err := io.ReadAll(r.Body)
		if assert.NoError(t, err) {
			assert.NoError(t, json.Unmarshal(raw, &last))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newProvider(srv *httptest.Server) *Provider {
	return New("gpt-test",
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithMaxContextLength(20),
		WithRequestOptions(openaiopt.WithMaxRetries(0)),
	)
}

const textCompletion = `{
  "id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-test",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "It is sunny."}}]
}`

const toolCompletion = `{
  "id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "gpt-test",
  "choices": [{"index": 0, "finish_reason": "tool_calls",
    "message": {"role": "assistant", "content": null, "tool_calls": [
      {"id": "call_1", "type": "function", "function": {"name": "weatherTool", "arguments": "{\"city\":\"Oslo\"}"}},
      {"id": "", "type": "function", "function": {"name": "weatherTool", "arguments": ""}}
    ]}}]
}`

func TestCompleteText(t *testing.T) {
	srv, last := server(t, textCompletion)
	p := newProvider(srv)
	assert.Equal(t, 20, p.MaxContextLength())
	assert.Equal(t, "gpt-test", p.Model())

	resp, err := p.Complete(context.Background(), inference.Request{
		Messages: []chat.Message{
			chat.System("be brief"),
			chat.User("weather?"),
		},
		Tools:       []*agentkit.CompiledTool{compiledWeather(t)},
		Temperature: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", resp.Text)
	assert.Empty(t, resp.ToolCalls)

	sent := *last
	assert.Equal(t, "gpt-test", sent["model"])
	assert.InDelta(t, 0.5, sent["temperature"], 1e-9)
	msgs := sent["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "weather?", msgs[1].(map[string]any)["content"])

	tools := sent["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "weather", fn["name"])
	assert.Equal(t, "Current weather", fn["description"])
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []any{"city"}, params["required"])
}

func TestCompleteToolCalls(t *testing.T) {
	srv, _ := server(t, toolCompletion)
	p := newProvider(srv)

	resp, err := p.Complete(context.Background(), inference.Request{Messages: []chat.Message{chat.User("q")}})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "weatherTool", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"city":"Oslo"}`, string(resp.ToolCalls[0].Arguments))
	assert.NotEmpty(t, resp.ToolCalls[1].ID)
	assert.JSONEq(t, `{}`, string(resp.ToolCalls[1].Arguments))
}

func TestCompleteSendsToolHistoryAndFormat(t *testing.T) {
	srv, last := server(t, textCompletion)
	p := newProvider(srv)

	_, err := p.Complete(context.Background(), inference.Request{
		Messages: []chat.Message{
			chat.User("look", chat.Image("https://example.com/a.png", "image/png")),
			{Role: chat.RoleAssistant, ToolCalls: []chat.ToolCall{{ID: "c1", Name: "weather", Arguments: json.RawMessage(`{"city":"Oslo"}`)}}},
			chat.ToolResult("c1", "sunny"),
		},
		ResponseFormat: &inference.ResponseFormat{
			Name:   "verdict",
			Schema: map[string]any{"type": "object"},
			Strict: true,
		},
	})
	require.NoError(t, err)

	sent := *last
	msgs := sent["messages"].([]any)
	require.Len(t, msgs, 3)

	user := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, user, 2)
	assert.Equal(t, "text", user[0].(map[string]any)["type"])
	assert.Equal(t, "image_url", user[1].(map[string]any)["type"])

	assistant := msgs[1].(map[string]any)
	calls := assistant["tool_calls"].([]any)
	require.Len(t, calls, 1)
	assert.Equal(t, "c1", calls[0].(map[string]any)["id"])

	tool := msgs[2].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "c1", tool["tool_call_id"])
	assert.Equal(t, "sunny", tool["content"])

	format := sent["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "verdict", schema["name"])
	assert.Equal(t, true, schema["strict"])
}

func TestCompleteRefusalAndEmpty(t *testing.T) {
	refused := `{"id":"x","object":"chat.completion","created":1,"model":"m",
	  "choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":null,"refusal":"no"}}]}`
	srv, _ := server(t, refused)
	_, err := newProvider(srv).Complete(context.Background(), inference.Request{Messages: []chat.Message{chat.User("q")}})
	require.ErrorIs(t, err, ErrRefused)

	empty := `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`
	srv2, _ := server(t, empty)
	_, err = newProvider(srv2).Complete(context.Background(), inference.Request{Messages: []chat.Message{chat.User("q")}})
	require.ErrorIs(t, err, ErrNoChoices)
}

func TestConvertMessagesRejectsUnknownRole(t *testing.T) {
	_, err := convertMessages([]chat.Message{{Role: "narrator"}})
	require.Error(t, err)
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	t.Cleanup(srv.Close)

	_, err := newProvider(srv).Complete(context.Background(), inference.Request{Messages: []chat.Message{chat.User("q")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai:")
}

type staticCredential struct {
	token  string
	err    error
	scopes []string
}

func (c *staticCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.scopes = opts.Scopes
	if c.err != nil {
		return azcore.AccessToken{}, c.err
	}
	return azcore.AccessToken{Token: c.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestAzureAuthentication(t *testing.T) {
	var auth, apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		apiKey = r.Header.Get("api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, textCompletion)
	}))
	t.Cleanup(srv.Close)
	req := inference.Request{Messages: []chat.Message{chat.User("hi")}}

	t.Run("credential", func(t *testing.T) {
		cred := &staticCredential{token: "aad-token"}
		p := New("gpt-test", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()),
			WithAzureCredential(cred), WithRequestOptions(openaiopt.WithMaxRetries(0)))

		_, err := p.Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Bearer aad-token", auth)
		assert.Equal(t, []string{AzureScope}, cred.scopes)
	})

	t.Run("api key", func(t *testing.T) {
		p := New("gpt-test", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()),
			WithAzureAPIKey("azure-key"), WithRequestOptions(openaiopt.WithMaxRetries(0)))

		_, err := p.Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "azure-key", apiKey)
	})

	t.Run("token failure", func(t *testing.T) {
		p := New("gpt-test", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()),
			WithAzureCredential(&staticCredential{err: errors.New("denied")}), WithRequestOptions(openaiopt.WithMaxRetries(0)))

		_, err := p.Complete(context.Background(), req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "denied")
	})
}

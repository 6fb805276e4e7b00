// Package gemini implements inference.Provider over the Google Gen AI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/skosovsky/agentkit/chat"
	"github.com/skosovsky/agentkit/inference"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

var (
	// ErrNoCandidates is returned when the API answers without any candidate.
	ErrNoCandidates = errors.New("gemini: response has no candidates")
	// ErrBlocked is returned when the answer was blocked by safety filters.
	ErrBlocked = errors.New("gemini: response blocked")
)

// generator is the part of genai.Models the provider uses.
type generator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Provider sends requests to one Gemini model.
type Provider struct {
	models           generator
	model            string
	maxContextLength int
}

var (
	_ inference.Provider       = (*Provider)(nil)
	_ inference.ContextLimiter = (*Provider)(nil)
)

// Option configures a Provider.
type Option func(*options)

type options struct {
	config           genai.ClientConfig
	maxContextLength int
}

// WithAPIKey sets the Gemini API key. Without it the SDK reads GOOGLE_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.config.APIKey = key
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.config.HTTPOptions.BaseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.config.HTTPClient = c
	}
}

// WithMaxContextLength declares the stored-message limit that triggers summarization.
func WithMaxContextLength(n int) Option {
	return func(o *options) {
		o.maxContextLength = n
	}
}

// New creates a provider for model on the Gemini API backend.
func New(ctx context.Context, model string, opts ...Option) (*Provider, error) {
	o := options{config: genai.ClientConfig{Backend: genai.BackendGeminiAPI}}
	for _, opt := range opts {
		opt(&o)
	}
	client, err := genai.NewClient(ctx, &o.config)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{models: client.Models, model: model, maxContextLength: o.maxContextLength}, nil
}

// Model returns the model name.
func (p *Provider) Model() string { return p.model }

// MaxContextLength implements inference.ContextLimiter.
func (p *Provider) MaxContextLength() int { return p.maxContextLength }

// Complete implements inference.Provider.
func (p *Provider) Complete(ctx context.Context, req inference.Request) (inference.Response, error) {
	contents, cfg, err := buildRequest(req)
	if err != nil {
		return inference.Response{}, err
	}
	resp, err := p.models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return inference.Response{}, fmt.Errorf("gemini: %w", err)
	}
	return parseResponse(resp)
}

func buildRequest(req inference.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.ParametersMap(),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	if f := req.ResponseFormat; f != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = f.Schema
	}

	var (
		system   []*genai.Part
		contents []*genai.Content
		names    = make(map[string]string)
	)
	for _, m := range req.Messages {
		var (
			role  string
			parts []*genai.Part
		)
		switch m.Role {
		case chat.RoleSystem:
			system = append(system, genai.NewPartFromText(m.Text()))
			continue
		case chat.RoleUser:
			role = roleUser
			parts = contentParts(m)
		case chat.RoleAssistant:
			role = roleModel
			if text := m.Text(); text != "" {
				parts = append(parts, genai.NewPartFromText(text))
			}
			for _, tc := range m.ToolCalls {
				names[tc.ID] = tc.Name
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: decodeObject(string(tc.Arguments), "args"),
				}})
			}
		case chat.RoleTool:
			role = roleUser
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     names[m.ToolCallID],
				Response: decodeObject(m.Text(), "output"),
			}})
		default:
			return nil, nil, fmt.Errorf("gemini: unexpected message role %q", m.Role)
		}
		if len(parts) == 0 {
			continue
		}
		// Consecutive messages of one role form a single content.
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}
	return contents, cfg, nil
}

func contentParts(m chat.Message) []*genai.Part {
	parts := make([]*genai.Part, 0, len(m.Content))
	for _, a := range m.Content {
		switch a.Kind {
		case chat.KindText:
			if a.Text != "" {
				parts = append(parts, genai.NewPartFromText(a.Text))
			}
		case chat.KindImage:
			parts = append(parts, genai.NewPartFromURI(a.URL, a.MIMEType))
		}
	}
	return parts
}

// decodeObject parses s as a JSON object or wraps it under key.
func decodeObject(s, key string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return map[string]any{key: s}
	}
	return out
}

func parseResponse(resp *genai.GenerateContentResponse) (inference.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return inference.Response{}, ErrNoCandidates
	}
	c := resp.Candidates[0]
	if c.FinishReason == genai.FinishReasonSafety {
		return inference.Response{}, ErrBlocked
	}
	var (
		out  inference.Response
		text strings.Builder
	)
	if c.Content == nil {
		return out, nil
	}
	for _, part := range c.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return inference.Response{}, fmt.Errorf("gemini: encode call arguments: %w", err)
			}
			if part.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{ID: id, Name: part.FunctionCall.Name, Arguments: args})
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
		}
	}
	out.Text = text.String()
	return out, nil
}

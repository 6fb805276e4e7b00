// Package openai implements inference.Provider over the OpenAI Chat Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/google/uuid"
	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/skosovsky/agentkit/chat"
	"github.com/skosovsky/agentkit/inference"
)

var (
	// ErrNoChoices is returned when the API answers without any choice.
	ErrNoChoices = errors.New("openai: response has no choices")
	// ErrRefused is returned when the model refuses to answer.
	ErrRefused = errors.New("openai: request refused")
)

// AzureScope is the token scope of Azure OpenAI and Azure AI Foundry endpoints.
const AzureScope = "https://cognitiveservices.azure.com/.default"

// Provider sends requests to one OpenAI (or OpenAI-compatible) chat model.
type Provider struct {
	client           openai.Client
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
	apiKey           string
	baseURL          string
	httpClient       *http.Client
	maxContextLength int
	requestOptions   []openaiopt.RequestOption
	azureAPIKey      string
	azureCredential  azcore.TokenCredential
}

// WithAPIKey sets the API key. Without it the SDK reads OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithBaseURL points the provider at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithMaxContextLength declares the stored-message limit that triggers summarization.
func WithMaxContextLength(n int) Option {
	return func(o *options) {
		o.maxContextLength = n
	}
}

// WithAzureAPIKey authenticates against an Azure endpoint with the api-key header.
func WithAzureAPIKey(key string) Option {
	return func(o *options) {
		o.azureAPIKey = key
	}
}

// WithAzureCredential authenticates every request with an Azure AD bearer token
// for AzureScope obtained from cred.
func WithAzureCredential(cred azcore.TokenCredential) Option {
	return func(o *options) {
		o.azureCredential = cred
	}
}

// WithRequestOptions appends raw SDK request options.
func WithRequestOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) {
		o.requestOptions = append(o.requestOptions, opts...)
	}
}

// New creates a provider for model.
func New(model string, opts ...Option) *Provider {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(o.httpClient))
	}
	if o.azureAPIKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithHeader("api-key", o.azureAPIKey))
	}
	if o.azureCredential != nil {
		clientOpts = append(clientOpts, openaiopt.WithMiddleware(azureAuth(o.azureCredential)))
	}
	clientOpts = append(clientOpts, o.requestOptions...)
	return &Provider{
		client:           openai.NewClient(clientOpts...),
		model:            model,
		maxContextLength: o.maxContextLength,
	}
}

func azureAuth(cred azcore.TokenCredential) openaiopt.Middleware {
	return func(req *http.Request, next openaiopt.MiddlewareNext) (*http.Response, error) {
		token, err := cred.GetToken(req.Context(), policy.TokenRequestOptions{Scopes: []string{AzureScope}})
		if err != nil {
			return nil, fmt.Errorf("openai: azure token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.Token)
		return next(req)
	}
}

// Model returns the model name.
func (p *Provider) Model() string { return p.model }

// MaxContextLength implements inference.ContextLimiter.
func (p *Provider) MaxContextLength() int { return p.maxContextLength }

// Complete implements inference.Provider.
func (p *Provider) Complete(ctx context.Context, req inference.Request) (inference.Response, error) {
	params, err := buildParams(p.model, req)
	if err != nil {
		return inference.Response{}, err
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return inference.Response{}, fmt.Errorf("openai: %w", err)
	}
	return parseCompletion(resp)
}

func buildParams(model string, req inference.Request) (openai.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    msgs,
		Tools:       convertTools(req),
		Temperature: param.NewOpt(req.Temperature),
	}
	if f := req.ResponseFormat; f != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   f.Name,
					Schema: f.Schema,
					Strict: openai.Bool(f.Strict),
				},
			},
		}
	}
	return params, nil
}

func convertTools(req inference.Request) []openai.ChatCompletionToolParam {
	if len(req.Tools) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
	for _, t := range req.Tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.ParametersMap()),
			},
		})
	}
	return out
}

func convertMessages(msgs []chat.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(m.Text()))
		case chat.RoleUser:
			out = append(out, convertUserMessage(m))
		case chat.RoleAssistant:
			out = append(out, convertAssistantMessage(m))
		case chat.RoleTool:
			out = append(out, openai.ToolMessage(m.Text(), m.ToolCallID))
		default:
			return nil, fmt.Errorf("openai: unexpected message role %q", m.Role)
		}
	}
	return out, nil
}

func convertUserMessage(m chat.Message) openai.ChatCompletionMessageParamUnion {
	images := m.Images()
	if len(images) == 0 {
		return openai.UserMessage(m.Text())
	}
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	if text := m.Text(); text != "" {
		parts = append(parts, openai.TextContentPart(text))
	}
	for _, img := range images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img.URL,
		}))
	}
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	}
}

func convertAssistantMessage(m chat.Message) openai.ChatCompletionMessageParamUnion {
	msg := &openai.ChatCompletionAssistantMessageParam{}
	if text := m.Text(); text != "" {
		msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text),
		}
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: string(tc.Arguments),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: msg}
}

func parseCompletion(resp *openai.ChatCompletion) (inference.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return inference.Response{}, ErrNoChoices
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return inference.Response{}, fmt.Errorf("%w: %s", ErrRefused, msg.Refusal)
	}
	out := inference.Response{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = uuid.NewString()
		}
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, chat.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: []byte(args),
		})
	}
	return out, nil
}

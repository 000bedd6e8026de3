package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/leofalp/deepresearch/core/parse"
	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/research"
	"github.com/leofalp/deepresearch/providers/observability"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const completionPreviewChars = 300

var (
	// ErrMissingAPIKey is returned by New without an API key.
	ErrMissingAPIKey = errors.New("openai: API key is not set")

	errNoChoices    = errors.New("openai: completion returned no choices")
	errEmptyContent = errors.New("openai: completion returned empty content")
)

// Client summarizes and composes through chat completions. It is safe for
// concurrent use.
type Client struct {
	api         *goopenai.Client
	model       string
	temperature float32
}

var (
	_ research.Summarizer = (*Client)(nil)
	_ research.Composer   = (*Client)(nil)
)

type options struct {
	model       string
	baseURL     string
	temperature float32
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*options)

// WithModel selects the chat model.
func WithModel(model string) Option {
	return func(opts *options) {
		if model != "" {
			opts.model = model
		}
	}
}

// WithBaseURL targets an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithTemperature sets the sampling temperature (default 0).
func WithTemperature(temperature float32) Option {
	return func(opts *options) {
		opts.temperature = temperature
	}
}

// WithHTTPClient replaces the HTTP client of the API client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = httpClient
	}
}

// New creates a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	settings := &options{model: DefaultModel}
	for _, opt := range opts {
		opt(settings)
	}

	apiConfig := goopenai.DefaultConfig(apiKey)
	if settings.baseURL != "" {
		apiConfig.BaseURL = strings.TrimRight(settings.baseURL, "/")
	}
	if settings.httpClient != nil {
		apiConfig.HTTPClient = settings.httpClient
	}

	return &Client{
		api:         goopenai.NewClientWithConfig(apiConfig),
		model:       settings.model,
		temperature: settings.temperature,
	}, nil
}

// Model returns the configured chat model.
func (c *Client) Model() string {
	return c.model
}

// Summarize extracts bullet notes relevant to question from sources.
func (c *Client) Summarize(ctx context.Context, question string, sources []research.Source, priorNotes string) (string, error) {
	content, err := c.complete(ctx, goopenai.ChatCompletionRequest{
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: summarizePrompt(question, sources, priorNotes)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return content, nil
}

type composition struct {
	Draft      string  `json:"draft"`
	Confidence float64 `json:"confidence"`
}

// Compose drafts a cited markdown report and its confidence. The model is
// asked for a JSON object; slightly malformed JSON is repaired.
func (c *Client) Compose(ctx context.Context, question, notes string, sources []research.Source) (research.Composition, error) {
	content, err := c.complete(ctx, goopenai.ChatCompletionRequest{
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: composeSystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: composePrompt(question, notes, sources)},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return research.Composition{}, fmt.Errorf("compose: %w", err)
	}

	parsed, err := parse.JSONAs[composition](content)
	if err != nil {
		if provider := observability.ObserverFromContext(ctx); provider != nil {
			provider.Warn(ctx, "unparseable composition",
				observability.String(observability.AttrLLMModel, c.model),
				observability.String("llm.completion", utils.TruncateString(content, completionPreviewChars)),
			)
		}
		return research.Composition{}, fmt.Errorf("compose: malformed completion: %w", err)
	}

	return research.Composition{Draft: parsed.Draft, Confidence: parsed.Confidence}, nil
}

// complete sends request with the client's model and temperature and returns
// the first choice.
func (c *Client) complete(ctx context.Context, request goopenai.ChatCompletionRequest) (string, error) {
	request.Model = c.model
	request.Temperature = c.temperature
	if request.Temperature == 0 {
		// go-openai omits a zero temperature, which the API reads as 1.
		request.Temperature = math.SmallestNonzeroFloat32
	}

	response, err := c.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", err
	}

	if provider := observability.ObserverFromContext(ctx); provider != nil {
		provider.Debug(ctx, "chat completion received",
			observability.String(observability.AttrLLMModel, c.model),
			observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens),
		)
	}

	if len(response.Choices) == 0 {
		return "", errNoChoices
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyContent
	}
	return content, nil
}

package exa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/leofalp/deepresearch/internal/utils"
)

const (
	defaultBaseURL = "https://api.exa.ai"
	maxResults     = 100
	defaultResults = 10
)

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("exa: API key is not set")

// Client calls the Exa API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(client *Client) {
		client.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

// New creates a client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := &Client{apiKey: apiKey, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search performs a semantic web search.
func (c *Client) Search(ctx context.Context, input SearchInput) (SearchOutput, error) {
	if input.Query == "" {
		return SearchOutput{}, errors.New("exa: query is required")
	}

	request := searchRequest{
		Query:              input.Query,
		Type:               input.Type,
		NumResults:         input.NumResults,
		IncludeDomains:     input.IncludeDomains,
		ExcludeDomains:     input.ExcludeDomains,
		StartPublishedDate: input.StartPublishedDate,
		EndPublishedDate:   input.EndPublishedDate,
		Category:           input.Category,
	}
	if request.Type == "" {
		request.Type = "auto"
	}
	if request.NumResults <= 0 {
		request.NumResults = defaultResults
	}
	request.NumResults = min(request.NumResults, maxResults)

	if input.IncludeText || input.IncludeHighlights {
		request.Contents = &searchContents{Text: input.IncludeText}
		if input.IncludeHighlights {
			request.Contents.Highlights = &highlightOptions{NumSentences: 3, HighlightsPerURL: 3}
		}
	}

	response, err := post[searchResponse](ctx, c, "/search", request)
	if err != nil {
		return SearchOutput{}, err
	}

	return SearchOutput{
		Results:            response.Results,
		ResolvedSearchType: response.ResolvedSearchType,
		RequestID:          response.RequestID,
	}, nil
}

// Answer generates an answer grounded by web citations. Citations come from
// either the "citations" or the "results" field of the response.
func (c *Client) Answer(ctx context.Context, input AnswerInput) (AnswerOutput, error) {
	if input.Query == "" {
		return AnswerOutput{}, errors.New("exa: query is required")
	}

	request := answerRequest{Query: input.Query}
	if input.IncludeText {
		request.Contents = &searchContents{Text: true}
	}

	response, err := post[answerResponse](ctx, c, "/answer", request)
	if err != nil {
		return AnswerOutput{}, err
	}

	citations := response.Citations
	if len(citations) == 0 {
		citations = response.Results
	}

	return AnswerOutput{
		Answer:    response.Answer,
		Citations: citations,
		RequestID: response.RequestID,
	}, nil
}

func post[Output any](ctx context.Context, c *Client, path string, body any) (*Output, error) {
	output, err := utils.DoPostJSON[Output](ctx, c.httpClient, c.baseURL+path, map[string]string{"x-api-key": c.apiKey}, body)
	if err == nil {
		return output, nil
	}

	var httpErr *utils.HTTPError
	if errors.As(err, &httpErr) {
		var decoded apiError
		if json.Unmarshal(httpErr.Body, &decoded) == nil {
			message := decoded.Error
			if message == "" {
				message = decoded.Message
			}
			if message != "" {
				return nil, fmt.Errorf("exa API error (status %d): %s", httpErr.StatusCode, message)
			}
		}
	}
	return nil, fmt.Errorf("exa %s request failed: %w", path, err)
}

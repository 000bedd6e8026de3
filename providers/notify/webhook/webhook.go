// Package webhook delivers research notifications by POSTing them as JSON
// to an HTTP endpoint, such as a mail relay or a chat integration.
//
// The request body is the research.Message:
//
//	{"to": "...", "subject": "...", "body": "...", "link": "..."}
//
// The endpoint may answer with {"id": "..."}; the ID becomes the external
// draft ID of the run. Endpoints that return no ID get a generated one.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/google/uuid"

	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/research"
)

// ErrMissingURL is returned by New without an endpoint.
var ErrMissingURL = errors.New("webhook: URL is not set")

// Notifier posts messages to a webhook. It is safe for concurrent use.
type Notifier struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
}

var _ research.Notifier = (*Notifier)(nil)

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(notifier *Notifier) {
		notifier.httpClient = httpClient
	}
}

// WithHeaders adds headers to every request, e.g. Authorization.
func WithHeaders(headers map[string]string) Option {
	return func(notifier *Notifier) {
		maps.Copy(notifier.headers, headers)
	}
}

// New creates a Notifier for url.
func New(url string, opts ...Option) (*Notifier, error) {
	if url == "" {
		return nil, ErrMissingURL
	}

	notifier := &Notifier{url: url, headers: map[string]string{}}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier, nil
}

type response struct {
	ID string `json:"id"`
}

// Notify posts message and returns the ID assigned by the endpoint.
func (n *Notifier) Notify(ctx context.Context, message research.Message) (research.Notification, error) {
	if message.Recipient == "" {
		return research.Notification{}, errors.New("webhook: message has no recipient")
	}

	output, err := utils.DoPostJSON[response](ctx, n.httpClient, n.url, n.headers, message)
	if err != nil {
		return research.Notification{}, fmt.Errorf("webhook: %w", err)
	}

	id := output.ID
	if id == "" {
		id = uuid.NewString()
	}
	return research.Notification{ExternalID: id}, nil
}

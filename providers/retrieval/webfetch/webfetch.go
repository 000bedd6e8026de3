package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/deepresearch/internal/utils"
)

const (
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent when no other is configured.
	DefaultUserAgent = "deepresearch-webfetch/1.0"
	// MaxBodySize is the largest page accepted (10MB).
	MaxBodySize = 10 * 1024 * 1024

	maxRedirects = 10
)

// ErrBodyTooLarge is returned for pages larger than MaxBodySize.
var ErrBodyTooLarge = errors.New("webfetch: response body too large")

// Input describes one page to fetch.
type Input struct {
	// URL may be partial ("go.dev"); https:// is prepended then.
	URL string
}

// Output is a fetched page.
type Output struct {
	// URL is the final URL after redirects.
	URL      string
	Markdown string
}

// Fetcher downloads pages and converts them to Markdown. It is safe for
// concurrent use.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the tuned default client.
func WithHTTPClient(httpClient *http.Client) FetcherOption {
	return func(fetcher *Fetcher) {
		fetcher.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) FetcherOption {
	return func(fetcher *Fetcher) {
		fetcher.userAgent = userAgent
	}
}

// WithTimeout bounds every fetch.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(fetcher *Fetcher) {
		fetcher.timeout = timeout
	}
}

// NewFetcher creates a Fetcher. The default client limits dial, TLS and
// header waits to 10s and follows at most 10 redirects.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	fetcher := &Fetcher{
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(fetcher)
	}

	if fetcher.httpClient == nil {
		fetcher.httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				ForceAttemptHTTP2:     true,
			},
			CheckRedirect: limitRedirects,
		}
	}
	return fetcher
}

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("too many redirects (>%d)", maxRedirects)
	}
	return nil
}

// Fetch retrieves the page at input.URL and returns it as Markdown. Non-200
// responses, oversized bodies and conversion failures are errors.
func (f *Fetcher) Fetch(ctx context.Context, input Input) (Output, error) {
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return Output{}, errors.New("webfetch: URL cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Output{}, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", f.userAgent)

	response, err := f.httpClient.Do(request)
	if err != nil {
		return Output{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer utils.CloseWithLog(response.Body)

	if response.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("unexpected status code fetching %s: %d", url, response.StatusCode)
	}

	// One byte past the limit tells an exact-size body from an oversized one.
	html, err := io.ReadAll(io.LimitReader(response.Body, MaxBodySize+1))
	if err != nil {
		return Output{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(html) > MaxBodySize {
		return Output{}, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, MaxBodySize)
	}

	markdown, err := htmltomarkdown.ConvertString(string(html))
	if err != nil {
		return Output{}, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	return Output{
		URL:      response.Request.URL.String(),
		Markdown: strings.TrimSpace(markdown),
	}, nil
}

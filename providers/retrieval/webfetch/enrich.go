package webfetch

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/research"
	"github.com/leofalp/deepresearch/providers/observability"
)

const (
	defaultConcurrency     = 4
	defaultMaxContentChars = 4000
	snippetChars           = 200
)

// EnrichOption configures Enrich.
type EnrichOption func(*enricher)

type enricher struct {
	inner           research.Retriever
	fetcher         *Fetcher
	concurrency     int
	maxContentChars int
}

// WithFetcher sets the Fetcher used for missing content.
func WithFetcher(fetcher *Fetcher) EnrichOption {
	return func(e *enricher) {
		e.fetcher = fetcher
	}
}

// WithConcurrency bounds the parallel page fetches of one retrieval.
func WithConcurrency(concurrency int) EnrichOption {
	return func(e *enricher) {
		if concurrency > 0 {
			e.concurrency = concurrency
		}
	}
}

// WithMaxContentChars truncates fetched content.
func WithMaxContentChars(maxChars int) EnrichOption {
	return func(e *enricher) {
		if maxChars > 0 {
			e.maxContentChars = maxChars
		}
	}
}

// Enrich wraps inner so that items with a URL but no content get the page
// text as content. Failed fetches keep the item as it was.
//
// Example:
//
//	search := webfetch.Enrich(exaClient.SearchRetriever(8), webfetch.WithConcurrency(2))
func Enrich(inner research.Retriever, opts ...EnrichOption) research.Retriever {
	e := &enricher{
		inner:           inner,
		concurrency:     defaultConcurrency,
		maxContentChars: defaultMaxContentChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fetcher == nil {
		e.fetcher = NewFetcher()
	}
	return e
}

// Retrieve implements research.Retriever.
func (e *enricher) Retrieve(ctx context.Context, query string) (research.Retrieval, error) {
	retrieval, err := e.inner.Retrieve(ctx, query)
	if err != nil {
		return retrieval, err
	}

	items := slices.Clone(retrieval.Items)
	provider := observability.ObserverFromContext(ctx)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)

	for index := range items {
		if items[index].URL == "" || items[index].Content != "" {
			continue
		}
		group.Go(func() error {
			page, err := e.fetcher.Fetch(groupCtx, Input{URL: items[index].URL})
			if err != nil {
				if provider != nil {
					provider.Warn(groupCtx, "content enrichment failed",
						observability.String(observability.AttrHTTPURL, items[index].URL),
						observability.Error(err),
					)
				}
				return nil
			}

			items[index].Content = utils.Truncate(page.Markdown, e.maxContentChars)
			if items[index].Snippet == "" {
				items[index].Snippet = utils.Truncate(page.Markdown, snippetChars)
			}
			return nil
		})
	}

	// Fetch failures are swallowed above; Wait only joins the goroutines.
	_ = group.Wait()

	retrieval.Items = items
	return retrieval, nil
}

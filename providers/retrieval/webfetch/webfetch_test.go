package webfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/leofalp/deepresearch/patterns/research"
)

const testBody = `<h1>Welcome</h1><p>This is a <strong>test</strong> paragraph.</p>`

const testPage = `<!DOCTYPE html>
<html><head><title>Test Page</title></head>
<body><h1>Welcome</h1><p>This is a <strong>test</strong> paragraph.</p></body></html>`

func TestFetch_ConvertsHTMLToMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("expected custom user agent, got %q", got)
		}
		fmt.Fprint(w, testPage)
	}))
	defer server.Close()

	fetcher := NewFetcher(WithHTTPClient(server.Client()), WithUserAgent("test-agent"))
	output, err := fetcher.Fetch(context.Background(), Input{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if output.URL != server.URL {
		t.Errorf("expected URL %s, got %s", server.URL, output.URL)
	}
	if !strings.Contains(output.Markdown, "# Welcome") || !strings.Contains(output.Markdown, "**test**") {
		t.Errorf("unexpected markdown: %q", output.Markdown)
	}
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	output, err := NewFetcher(WithHTTPClient(server.Client())).Fetch(context.Background(), Input{URL: server.URL + "/old"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if output.URL != server.URL+"/new" {
		t.Errorf("expected final URL after redirect, got %s", output.URL)
	}
}

func TestFetch_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewFetcher(WithHTTPClient(server.Client()))

	if _, err := fetcher.Fetch(context.Background(), Input{URL: "  "}); err == nil {
		t.Error("expected an error for an empty URL")
	}
	if _, err := fetcher.Fetch(context.Background(), Input{URL: server.URL}); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected a status error, got %v", err)
	}
}

func TestEnrich_FillsMissingContent(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, testBody)
	}))
	defer server.Close()

	original := []research.Source{
		{URL: server.URL + "/page", Title: "needs content"},
		{URL: server.URL + "/other", Title: "has content", Content: "kept"},
		{URL: server.URL + "/broken", Title: "unreachable"},
		{Title: "no url"},
	}
	inner := research.RetrieverFunc(func(_ context.Context, _ string) (research.Retrieval, error) {
		return research.Retrieval{Items: original, Notes: "notes"}, nil
	})

	retriever := Enrich(inner,
		WithFetcher(NewFetcher(WithHTTPClient(server.Client()))),
		WithConcurrency(2),
		WithMaxContentChars(9),
	)

	retrieval, err := retriever.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := fetches.Load(); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}
	if retrieval.Items[0].Content != "# Welcome" || retrieval.Items[0].Snippet == "" {
		t.Errorf("expected truncated page content, got %+v", retrieval.Items[0])
	}
	if retrieval.Items[1].Content != "kept" || retrieval.Items[2].Content != "" {
		t.Errorf("unexpected enrichment: %+v", retrieval.Items)
	}
	if original[0].Content != "" {
		t.Error("enrichment must not modify the inner retriever's items")
	}
	if retrieval.Notes != "notes" {
		t.Errorf("notes must pass through, got %q", retrieval.Notes)
	}
}

func TestEnrich_PropagatesInnerError(t *testing.T) {
	failure := errors.New("search down")
	inner := research.RetrieverFunc(func(_ context.Context, _ string) (research.Retrieval, error) {
		return research.Retrieval{}, failure
	})

	if _, err := Enrich(inner).Retrieve(context.Background(), "q"); !errors.Is(err, failure) {
		t.Fatalf("expected inner error, got %v", err)
	}
}

package exa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leofalp/deepresearch/patterns/research"
)

// newTestClient starts a server answering every request with handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New("test-key", WithBaseURL(server.URL+"/"), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestSearch_SendsRequest(t *testing.T) {
	var received searchRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("expected /search, got %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("expected API key header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode error: %v", err)
		}
		fmt.Fprint(w, `{"results":[{"id":"1","title":"Go","url":"https://go.dev","text":"Go is"}],"requestId":"req-1"}`)
	})

	output, err := client.Search(context.Background(), SearchInput{Query: "golang", NumResults: 500, IncludeHighlights: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Type != "auto" || received.NumResults != maxResults {
		t.Errorf("expected defaults applied, got type=%q numResults=%d", received.Type, received.NumResults)
	}
	if received.Contents == nil || received.Contents.Highlights == nil || received.Contents.Text {
		t.Errorf("expected highlights-only contents, got %+v", received.Contents)
	}
	if output.RequestID != "req-1" || len(output.Results) != 1 || output.Results[0].URL != "https://go.dev" {
		t.Errorf("unexpected output: %+v", output)
	}
}

func TestSearch_DecodesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid api key"}`)
	})

	_, err := client.Search(context.Background(), SearchInput{Query: "golang"})
	if err == nil || err.Error() != "exa API error (status 401): invalid api key" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if _, err := client.Search(context.Background(), SearchInput{}); err == nil {
		t.Fatal("expected an error for an empty query")
	}
}

func TestSearchRetriever_MapsResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"id":"https://a.example","title":"","highlights":["key sentence"],"text":"full text"},
			{"id":"2","url":"https://b.example","title":"B","summary":"short summary"},
			{"id":"3","url":"https://c.example","title":"C","text":"c text"}
		]}`)
	})

	retrieval, err := client.SearchRetriever(2).Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []research.Source{
		{URL: "https://a.example", Title: "Untitled Source", Snippet: "key sentence", Content: "full text"},
		{URL: "https://b.example", Title: "B", Snippet: "", Content: "short summary"},
	}
	if diff := cmp.Diff(expected, retrieval.Items); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if retrieval.Notes != "" {
		t.Errorf("search must not produce notes, got %q", retrieval.Notes)
	}
}

func TestAnswerRetriever_UsesCitations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/answer" {
			t.Errorf("expected /answer, got %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"answer":"The answer is 42.","results":[{"id":"1","url":"https://a.example","title":"A"}]}`)
	})

	retrieval, err := client.AnswerRetriever().Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []research.Source{
		{URL: "https://a.example", Title: "A", Snippet: "The answer is 42.", Content: "The answer is 42."},
	}
	if diff := cmp.Diff(expected, retrieval.Items); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if retrieval.Notes != "Exa Answer: The answer is 42." {
		t.Errorf("unexpected notes: %q", retrieval.Notes)
	}
}

func TestAnswerRetriever_AnswerWithoutCitations(t *testing.T) {
	answer := strings.Repeat("a", 600)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"answer":%q}`, answer)
	})

	retrieval, err := client.AnswerRetriever().Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []research.Source{
		{URL: "", Title: "Exa Answer", Snippet: answer[:200], Content: answer},
	}
	if diff := cmp.Diff(expected, retrieval.Items); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if retrieval.Notes != "Exa Answer: "+answer[:500] {
		t.Errorf("notes must hold the first 500 characters, got %d", len(retrieval.Notes))
	}
}

func TestAnswerRetriever_EmptyAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"answer":""}`)
	})

	retrieval, err := client.AnswerRetriever().Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(retrieval.Items) != 0 || retrieval.Notes != "" {
		t.Errorf("expected an empty retrieval, got %+v", retrieval)
	}
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/deepresearch/patterns/research"
)

// chatRequest is the subset of the request body the tests inspect.
type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

// newTestClient serves content as the first choice of every completion and
// hands each decoded request to inspect.
func newTestClient(t *testing.T, content string, inspect func(chatRequest)) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var request chatRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode error: %v", err)
		}
		if inspect != nil {
			inspect(request)
		}

		encoded, _ := json.Marshal(content)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`, encoded)
	}))
	t.Cleanup(server.Close)

	client, err := New("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client
}

var testSources = []research.Source{
	{URL: "https://a.example", Title: "A", Snippet: strings.Repeat("s", 300), Content: strings.Repeat("c", 900)},
	{URL: "https://b.example", Title: "B", Snippet: "short", Content: "body"},
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestSummarize_SendsTruncatedSources(t *testing.T) {
	var captured chatRequest
	client := newTestClient(t, "- fact one\n- fact two", func(request chatRequest) {
		captured = request
	})

	notes, err := client.Summarize(context.Background(), "What?", testSources, "earlier notes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes != "- fact one\n- fact two" {
		t.Errorf("unexpected notes: %q", notes)
	}

	if captured.Model != DefaultModel {
		t.Errorf("expected default model, got %q", captured.Model)
	}
	if captured.Temperature <= 0 || captured.Temperature > 1e-6 {
		t.Errorf("expected an explicit near-zero temperature, got %v", captured.Temperature)
	}
	prompt := captured.Messages[0].Content
	if !strings.Contains(prompt, "Snippet: "+strings.Repeat("s", 200)+"\n") {
		t.Error("snippet must be cut to 200 characters")
	}
	if !strings.Contains(prompt, "Content: "+strings.Repeat("c", 400)+"\n") {
		t.Error("content must be cut to 400 characters")
	}
	if !strings.Contains(prompt, "earlier notes") || !strings.Contains(prompt, "[2] B") {
		t.Errorf("prompt misses notes or numbering: %q", prompt)
	}
}

func TestCompose_ParsesJSONCompletion(t *testing.T) {
	var captured chatRequest
	client := newTestClient(t, `{"draft":"## Answer\nYes [1]","confidence":0.72}`, func(request chatRequest) {
		captured = request
	})

	composition, err := client.Compose(context.Background(), "Is it?", "", testSources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if composition.Draft != "## Answer\nYes [1]" || composition.Confidence != 0.72 {
		t.Errorf("unexpected composition: %+v", composition)
	}

	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", captured.ResponseFormat)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("expected system and user messages, got %+v", captured.Messages)
	}
	user := captured.Messages[1].Content
	if !strings.Contains(user, "Helpful notes:\nN/A") || !strings.Contains(user, "URL: https://b.example") {
		t.Errorf("unexpected user prompt: %q", user)
	}
}

func TestCompose_RepairsMalformedJSON(t *testing.T) {
	client := newTestClient(t, "```json\n{draft: 'report', confidence: 0.5,}\n```", nil)

	composition, err := client.Compose(context.Background(), "q", "n", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if composition.Draft != "report" || composition.Confidence != 0.5 {
		t.Errorf("unexpected composition: %+v", composition)
	}
}

func TestCompose_RejectsProse(t *testing.T) {
	client := newTestClient(t, "I cannot answer that.", nil)

	if _, err := client.Compose(context.Background(), "q", "n", nil); err == nil {
		t.Fatal("expected an error for a completion without JSON")
	}
}

func TestSummarize_EmptyCompletion(t *testing.T) {
	client := newTestClient(t, "   ", nil)

	if _, err := client.Summarize(context.Background(), "q", testSources, ""); !errors.Is(err, errEmptyContent) {
		t.Fatalf("expected errEmptyContent, got %v", err)
	}
}

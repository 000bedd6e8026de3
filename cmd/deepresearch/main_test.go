package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leofalp/deepresearch/patterns/research"
)

// upstream fakes Exa, the chat completions API and the notification
// webhook on one server.
func upstream(t *testing.T, searchStatus int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/search":
			if searchStatus != http.StatusOK {
				w.WriteHeader(searchStatus)
				fmt.Fprint(w, `{"error":"search backend down"}`)
				return
			}
			fmt.Fprint(w, `{"results":[
				{"id":"1","url":"https://go.dev/blog","title":"Go Blog","text":"News about Go."},
				{"id":"2","url":"https://go.dev/doc","title":"Go Docs","text":"Documentation."}]}`)
		case "/answer":
			fmt.Fprint(w, `{"answer":"Go 1.25 shipped.","citations":[
				{"id":"3","url":"https://go.dev/doc/go1.25","title":"Release notes","text":"Go 1.25 release notes."}]}`)
		case "/chat/completions":
			var request struct {
				ResponseFormat *struct{} `json:"response_format"`
			}
			_ = json.NewDecoder(r.Body).Decode(&request)

			content := "- Go 1.25 shipped [3]"
			if request.ResponseFormat != nil {
				content = `{"draft":"## Answer\nGo 1.25 shipped [1].","confidence":0.9}`
			}
			encoded, _ := json.Marshal(content)
			fmt.Fprintf(w, `{"id":"c","object":"chat.completion","model":"gpt-4o-mini",
				"choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, encoded)
		case "/notify":
			fmt.Fprint(w, `{"id":"draft-1"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// setup points every service at server and returns a config file path.
func setup(t *testing.T, server *httptest.Server) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", server.URL)
	t.Setenv("EXA_API_KEY", "exa-test")
	t.Setenv("EXA_BASE_URL", server.URL)
	t.Setenv("DEEPRESEARCH_DB", filepath.Join(dir, "research.db"))
	t.Setenv("DEEPRESEARCH_WEBHOOK_URL", server.URL+"/notify")
	t.Setenv("DEEPRESEARCH_PUBLIC_URL", "https://research.example")
	t.Setenv("DEEPRESEARCH_LOG_LEVEL", "error")

	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte("workflow:\n  initial_backoff: 1ms\n"), 0o600)
	if err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (research.RunState, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())

	var state research.RunState
	if stdout.Len() > 0 {
		if decodeErr := json.Unmarshal(stdout.Bytes(), &state); decodeErr != nil {
			t.Fatalf("stdout is not a JSON state: %v\n%s", decodeErr, stdout.String())
		}
	}
	return state, stderr.String(), err
}

func TestRunCommand_EndToEnd(t *testing.T) {
	configPath := setup(t, upstream(t, http.StatusOK))

	state, progress, err := execute(t, "--config", configPath,
		"run", "What", "changed", "in", "Go 1.25?", "--recipient", "ada@example.com", "--progress")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if state.Status != research.StatusComplete {
		t.Fatalf("expected complete, got %q (%s)", state.Status, state.Error)
	}
	if state.Question != "What changed in Go 1.25?" {
		t.Errorf("unexpected question %q", state.Question)
	}
	if len(state.Sources) != 3 {
		t.Errorf("expected 3 merged sources, got %d", len(state.Sources))
	}
	if !strings.HasPrefix(state.DocURL, "https://research.example/reports/") {
		t.Errorf("unexpected doc URL %q", state.DocURL)
	}
	if state.ExternalDraftID != "draft-1" {
		t.Errorf("expected webhook ID, got %q", state.ExternalDraftID)
	}
	if !strings.Contains(state.Notes, "Exa Answer: Go 1.25 shipped.") {
		t.Errorf("answer notes missing from %q", state.Notes)
	}
	if !strings.Contains(progress, "step 1: search, answer") || !strings.Contains(progress, "done: complete") {
		t.Errorf("unexpected progress output:\n%s", progress)
	}
}

func TestRunCommand_FailureExitsWithError(t *testing.T) {
	configPath := setup(t, upstream(t, http.StatusServiceUnavailable))

	state, _, err := execute(t, "--config", configPath, "run", "q")
	if err == nil {
		t.Fatal("expected an error for a failed run")
	}
	if state.Status != research.StatusError || !strings.HasPrefix(state.Error, "search failed") {
		t.Errorf("unexpected state: status=%q error=%q", state.Status, state.Error)
	}
}

func TestRunCommand_MissingAPIKey(t *testing.T) {
	configPath := setup(t, upstream(t, http.StatusOK))
	t.Setenv("OPENAI_API_KEY", "")

	_, _, err := execute(t, "--config", configPath, "run", "q")
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected a missing key error, got %v", err)
	}
}

func TestRunCommand_RequiresQuestion(t *testing.T) {
	if _, _, err := execute(t, "run"); err == nil {
		t.Fatal("expected an argument error")
	}
}

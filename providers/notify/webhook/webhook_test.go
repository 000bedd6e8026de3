package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/research"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc, opts ...Option) *Notifier {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	notifier, err := New(server.URL, append([]Option{WithHTTPClient(server.Client())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return notifier
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}

func TestNotify_PostsMessage(t *testing.T) {
	message := research.Message{
		Recipient:   "ada@example.com",
		Subject:     "Research Complete: Go",
		Body:        "Hi",
		LocationURL: "https://research.example/reports/1",
	}

	var received research.Message
	notifier := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected configured header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode error: %v", err)
		}
		fmt.Fprint(w, `{"id":"draft-7"}`)
	}, WithHeaders(map[string]string{"Authorization": "Bearer secret"}))

	notification, err := notifier.Notify(context.Background(), message)
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}

	if notification.ExternalID != "draft-7" {
		t.Errorf("expected endpoint ID, got %q", notification.ExternalID)
	}
	if diff := cmp.Diff(message, received); diff != "" {
		t.Errorf("posted message mismatch (-want +got):\n%s", diff)
	}
}

func TestNotify_GeneratesIDWhenMissing(t *testing.T) {
	notifier := newTestNotifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	notification, err := notifier.Notify(context.Background(), research.Message{Recipient: "ada@example.com"})
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if _, err := uuid.Parse(notification.ExternalID); err != nil {
		t.Errorf("expected a generated UUID, got %q", notification.ExternalID)
	}
}

func TestNotify_EndpointFailure(t *testing.T) {
	notifier := newTestNotifier(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "relay down", http.StatusBadGateway)
	})

	_, err := notifier.Notify(context.Background(), research.Message{Recipient: "ada@example.com"})

	var httpErr *utils.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPError 502, got %v", err)
	}
}

func TestNotify_RequiresRecipient(t *testing.T) {
	notifier := newTestNotifier(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})

	if _, err := notifier.Notify(context.Background(), research.Message{}); err == nil {
		t.Fatal("expected an error for a message without recipient")
	}
}

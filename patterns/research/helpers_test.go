package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeCapabilities records how often every capability was called.
type fakeCapabilities struct {
	searchItems []Source
	answerItems []Source
	answerNotes string

	searchErr  error
	answerErr  error
	persistErr error
	notifyErr  error

	// confidences are returned by successive compose calls; the last value
	// repeats.
	confidences []float64

	searchCalls    atomic.Int32
	answerCalls    atomic.Int32
	summarizeCalls atomic.Int32
	composeCalls   atomic.Int32
	persistCalls   atomic.Int32
	notifyCalls    atomic.Int32

	mu       sync.Mutex
	messages []Message
}

func (f *fakeCapabilities) capabilities() Capabilities {
	return Capabilities{
		Search: RetrieverFunc(func(_ context.Context, _ string) (Retrieval, error) {
			f.searchCalls.Add(1)
			if f.searchErr != nil {
				return Retrieval{}, f.searchErr
			}
			return Retrieval{Items: f.searchItems}, nil
		}),
		Answer: RetrieverFunc(func(_ context.Context, _ string) (Retrieval, error) {
			f.answerCalls.Add(1)
			if f.answerErr != nil {
				return Retrieval{}, f.answerErr
			}
			return Retrieval{Items: f.answerItems, Notes: f.answerNotes}, nil
		}),
		Summarizer: SummarizerFunc(func(_ context.Context, _ string, sources []Source, _ string) (string, error) {
			f.summarizeCalls.Add(1)
			return fmt.Sprintf("summary of %d sources", len(sources)), nil
		}),
		Composer: ComposerFunc(func(_ context.Context, question, _ string, _ []Source) (Composition, error) {
			call := int(f.composeCalls.Add(1))
			confidence := 0.9
			if len(f.confidences) > 0 {
				confidence = f.confidences[min(call, len(f.confidences))-1]
			}
			return Composition{Draft: "report on " + question, Confidence: confidence}, nil
		}),
		Persister: PersisterFunc(func(_ context.Context, _, _ string) (Persisted, error) {
			f.persistCalls.Add(1)
			if f.persistErr != nil {
				return Persisted{}, f.persistErr
			}
			return Persisted{LocationURL: "https://docs.example/report-1"}, nil
		}),
		Notifier: NotifierFunc(func(_ context.Context, message Message) (Notification, error) {
			f.notifyCalls.Add(1)
			if f.notifyErr != nil {
				return Notification{}, f.notifyErr
			}
			f.mu.Lock()
			f.messages = append(f.messages, message)
			f.mu.Unlock()
			return Notification{ExternalID: "draft-1"}, nil
		}),
	}
}

func sources(prefix string, count int) []Source {
	items := make([]Source, count)
	for index := range items {
		items[index] = Source{
			URL:     fmt.Sprintf("https://%s.example/%d", prefix, index),
			Title:   fmt.Sprintf("%s %d", prefix, index),
			Snippet: "snippet",
			Content: "content",
		}
	}
	return items
}

// newTestWorkflow builds a workflow with a tiny backoff so retries are fast.
func newTestWorkflow(t *testing.T, capabilities Capabilities, opts ...Option) *Workflow {
	t.Helper()

	workflow, err := New(capabilities, append([]Option{WithInitialBackoff(time.Millisecond)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return workflow
}

var errUnavailable = errors.New("service unavailable")

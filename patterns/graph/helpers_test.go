package graph

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/leofalp/deepresearch/providers/observability"
)

// --- Test state ---

type testState struct {
	Visits  []string `json:"visits"`
	Counter int      `json:"counter"`
}

type testUpdate struct {
	Visit     string
	Increment int
}

func reduceTestState(state testState, update testUpdate) testState {
	visits := slices.Clone(state.Visits)
	if update.Visit != "" {
		visits = append(visits, update.Visit)
	}
	state.Visits = visits
	state.Counter += update.Increment
	return state
}

// visitNode records its ID and increments the counter.
func visitNode(nodeID string) NodeFunc[testState, testUpdate] {
	return func(_ context.Context, _ testState) (testUpdate, error) {
		return testUpdate{Visit: nodeID, Increment: 1}, nil
	}
}

// delayedVisitNode waits before recording its ID.
func delayedVisitNode(nodeID string, delay time.Duration) NodeFunc[testState, testUpdate] {
	return func(ctx context.Context, _ testState) (testUpdate, error) {
		select {
		case <-time.After(delay):
			return testUpdate{Visit: nodeID, Increment: 1}, nil
		case <-ctx.Done():
			return testUpdate{}, ctx.Err()
		}
	}
}

func failingNode(err error) NodeFunc[testState, testUpdate] {
	return func(_ context.Context, _ testState) (testUpdate, error) {
		return testUpdate{}, err
	}
}

// --- Test observer ---

// testObserver implements observability.Provider for verifying observe calls.
type testObserver struct {
	mu      sync.Mutex
	spans   []string
	logs    []string
	metrics map[string]float64
}

var _ observability.Provider = (*testObserver)(nil)

func newTestObserver() *testObserver {
	return &testObserver{metrics: make(map[string]float64)}
}

func (observer *testObserver) StartSpan(ctx context.Context, name string, _ ...observability.Attribute) (context.Context, observability.Span) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.spans = append(observer.spans, name)
	return ctx, &testSpan{}
}

func (observer *testObserver) record(msg string) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.logs = append(observer.logs, msg)
}

func (observer *testObserver) Trace(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.record(msg)
}

func (observer *testObserver) Debug(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.record(msg)
}

func (observer *testObserver) Info(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.record(msg)
}

func (observer *testObserver) Warn(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.record(msg)
}

func (observer *testObserver) Error(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.record(msg)
}

func (observer *testObserver) Counter(name string) observability.Counter {
	return &testCounter{name: name, observer: observer}
}

func (observer *testObserver) Histogram(name string) observability.Histogram {
	return &testHistogram{}
}

func (observer *testObserver) countSpans(name string) int {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	count := 0
	for _, span := range observer.spans {
		if span == name {
			count++
		}
	}
	return count
}

func (observer *testObserver) metric(name string) float64 {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	return observer.metrics[name]
}

func (observer *testObserver) hasLog(msg string) bool {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	return slices.Contains(observer.logs, msg)
}

type testSpan struct{}

func (span *testSpan) End()                                            {}
func (span *testSpan) SetAttributes(_ ...observability.Attribute)      {}
func (span *testSpan) SetStatus(_ observability.StatusCode, _ string)  {}
func (span *testSpan) RecordError(_ error)                             {}
func (span *testSpan) AddEvent(_ string, _ ...observability.Attribute) {}

type testCounter struct {
	name     string
	observer *testObserver
}

func (counter *testCounter) Add(_ context.Context, value int64, _ ...observability.Attribute) {
	counter.observer.mu.Lock()
	defer counter.observer.mu.Unlock()
	counter.observer.metrics[counter.name] += float64(value)
}

type testHistogram struct{}

func (histogram *testHistogram) Record(_ context.Context, _ float64, _ ...observability.Attribute) {}

package graph

import (
	"context"
	"errors"
	"iter"
	"time"
)

// EventType identifies what happened during a run.
type EventType string

const (
	// EventStepStart signals that a superstep begins. Nodes lists the
	// active set.
	EventStepStart EventType = "step_start"

	// EventNodeComplete signals that a node of the current superstep
	// returned an update.
	EventNodeComplete EventType = "node_complete"

	// EventNodeError signals that a node of the current superstep failed.
	// The run fails once the superstep has drained.
	EventNodeError EventType = "node_error"

	// EventStepComplete carries the merged state after a superstep. Nodes
	// lists the next active set.
	EventStepComplete EventType = "step_complete"

	// EventDone carries the final state. A failed run ends with an
	// EventDone paired with the run error.
	EventDone EventType = "done"
)

// Event is a single observation of a run. Node events are published in
// declaration order after the superstep has drained, so consumers see a
// deterministic sequence.
type Event[S any] struct {
	Type EventType `json:"type"`

	RunID string `json:"run_id"`

	// Step is the 1-based superstep that produced the event.
	Step int `json:"step"`

	// NodeID is set for node events.
	NodeID string `json:"node_id,omitempty"`

	// Nodes is the active set (EventStepStart) or the next active set
	// (EventStepComplete).
	Nodes []string `json:"nodes,omitempty"`

	// Duration is the node's wall-clock time for node events.
	Duration time.Duration `json:"duration,omitempty"`

	// State is the merged state for EventStepComplete and EventDone.
	State S `json:"state"`

	// Error describes the node failure for EventNodeError.
	Error string `json:"error,omitempty"`
}

// Stream runs the graph like Invoke but yields an Event at every stage of
// every superstep. The last pair is always an EventDone: with a nil error
// on success, or with the last merged state and the run error on failure.
//
// Breaking out of the range loop stops the run before the next superstep;
// nodes already running are waited for.
//
// Example:
//
//	for event, err := range g.Stream(ctx, initial) {
//	    if err != nil {
//	        log.Printf("run failed: %v", err)
//	        break
//	    }
//	    if event.Type == graph.EventNodeComplete {
//	        fmt.Printf("step %d: %s done in %v\n", event.Step, event.NodeID, event.Duration)
//	    }
//	}
func (g *Graph[S, U]) Stream(ctx context.Context, initial S, opts ...InvokeOption) iter.Seq2[Event[S], error] {
	return func(yield func(Event[S], error) bool) {
		call := newInvocation(opts)

		state, err := g.execute(ctx, initial, call, func(event Event[S]) bool {
			return yield(event, nil)
		})

		if err == nil || errors.Is(err, errConsumerStopped) {
			return
		}

		yield(Event[S]{Type: EventDone, RunID: call.runID, State: state, Error: err.Error()}, err)
	}
}

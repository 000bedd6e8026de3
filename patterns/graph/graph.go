package graph

import (
	"context"
	"time"

	"github.com/leofalp/deepresearch/providers/observability"
)

const (
	// Start is the virtual entry node. Edges from Start select the first
	// active set.
	Start = "__start__"

	// End is the virtual exit node. A run finishes when no node other than
	// End is reachable.
	End = "__end__"
)

// NodeFunc is the processing logic of a node. It receives the merged state
// of the previous superstep and returns a partial update. The state must be
// treated as read-only: sibling nodes of the same superstep share it.
//
// A returned error aborts the whole run. Domain failures that the workflow
// should route around belong in the update instead.
type NodeFunc[S, U any] func(ctx context.Context, state S) (U, error)

// Router picks a route key for a conditional edge from the merged state.
type Router[S any] func(ctx context.Context, state S) (string, error)

// Reducer folds one update into the state. It must not mutate state in place
// and is used both for sequential chaining and for fan-in.
type Reducer[S, U any] func(state S, update U) S

// node is a registered processing step.
type node[S, U any] struct {
	id      string
	fn      NodeFunc[S, U]
	timeout time.Duration
}

// branch is a conditional edge: a router plus its route table.
type branch[S any] struct {
	router Router[S]
	routes map[string][]string
}

// graphConfig holds the configuration for a Graph, populated by Options.
type graphConfig struct {
	// maxSteps bounds the number of supersteps in one run.
	maxSteps int

	// maxConcurrency limits the nodes running at once within a superstep.
	// Zero means unlimited.
	maxConcurrency int

	// executionTimeout is the deadline for an entire run. Zero means none.
	executionTimeout time.Duration

	// observer overrides the provider found on the invocation context.
	observer observability.Provider

	// checkpointer receives the merged state after every superstep.
	checkpointer Checkpointer
}

// Graph is a validated, executable state graph. It is immutable after Build
// and safe for concurrent Invoke and Stream calls.
type Graph[S, U any] struct {
	reducer Reducer[S, U]

	nodes map[string]*node[S, U]

	// nodePosition is the declaration index of every node, used to order
	// active sets and merges deterministically.
	nodePosition map[string]int

	// edges maps a source (node ID or Start) to its static targets.
	edges map[string][]string

	// branches maps a source to its conditional edge.
	branches map[string]*branch[S]

	config *graphConfig
}

// Nodes returns the node IDs in declaration order.
func (g *Graph[S, U]) Nodes() []string {
	ordered := make([]string, len(g.nodePosition))
	for nodeID, position := range g.nodePosition {
		ordered[position] = nodeID
	}
	return ordered
}

package graph

import (
	"errors"
	"fmt"
	"slices"
)

// Builder constructs a validated Graph using a fluent API. Nodes and edges
// are added incrementally; problems are accumulated and reported together
// when Build is called.
//
// The builder enforces the following constraints:
//   - Node IDs must be unique, non-empty and not one of Start or End
//   - Edge endpoints must reference existing nodes (or Start / End)
//   - Start must have at least one outgoing edge
//   - A node routes either through static edges or through one conditional
//     edge, never both
//   - Every node must be reachable from Start
//
// Cycles are allowed.
//
// Example:
//
//	g, err := graph.NewBuilder(reduce).
//	    AddNode("draft", draft).
//	    AddNode("review", review).
//	    AddEdge(graph.Start, "draft").
//	    AddEdge("draft", "review").
//	    AddConditionalEdges("review", verdict, map[string][]string{
//	        "revise": {"draft"},
//	        "accept": {graph.End},
//	    }).
//	    Build()
type Builder[S, U any] struct {
	reducer Reducer[S, U]

	// config holds the graph-level configuration populated from Options.
	config *graphConfig

	nodes map[string]*node[S, U]

	// nodeOrder preserves declaration order; it defines merge order.
	nodeOrder []string

	edges    map[string][]string
	branches map[string]*branch[S]

	// buildErrors accumulates validation errors encountered during
	// AddNode/AddEdge and is reported when Build() is called.
	buildErrors []error
}

// NewBuilder creates a Builder whose graph folds node updates with reducer.
// Graph-level options (WithMaxSteps, WithExecutionTimeout, ...) are applied
// here.
func NewBuilder[S, U any](reducer Reducer[S, U], opts ...Option) *Builder[S, U] {
	config := &graphConfig{
		maxSteps: defaultMaxSteps,
	}

	for _, opt := range opts {
		opt(config)
	}

	builder := &Builder[S, U]{
		reducer:  reducer,
		config:   config,
		nodes:    make(map[string]*node[S, U]),
		edges:    make(map[string][]string),
		branches: make(map[string]*branch[S]),
	}

	if reducer == nil {
		builder.buildErrors = append(builder.buildErrors, errors.New("reducer must not be nil"))
	}

	return builder
}

// AddNode registers a node under a unique ID.
func (builder *Builder[S, U]) AddNode(nodeID string, fn NodeFunc[S, U], opts ...NodeOption) *Builder[S, U] {
	if nodeID == "" {
		builder.buildErrors = append(builder.buildErrors, errors.New("node ID must not be empty"))
		return builder
	}

	if nodeID == Start || nodeID == End {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("node ID %q is reserved", nodeID))
		return builder
	}

	if fn == nil {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("function must not be nil for node %q", nodeID))
		return builder
	}

	if _, exists := builder.nodes[nodeID]; exists {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("duplicate node ID %q", nodeID))
		return builder
	}

	settings := &nodeSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	builder.nodes[nodeID] = &node[S, U]{
		id:      nodeID,
		fn:      fn,
		timeout: settings.timeout,
	}
	builder.nodeOrder = append(builder.nodeOrder, nodeID)

	return builder
}

// AddEdge adds a static edge: whenever from runs, to is active in the next
// superstep. from may be Start and to may be End.
func (builder *Builder[S, U]) AddEdge(from, to string) *Builder[S, U] {
	if from == "" || to == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("edge endpoints must not be empty (from=%q, to=%q)", from, to))
		return builder
	}

	if from == End {
		builder.buildErrors = append(builder.buildErrors, errors.New("edges cannot leave End"))
		return builder
	}

	if to == Start {
		builder.buildErrors = append(builder.buildErrors, errors.New("edges cannot enter Start"))
		return builder
	}

	if slices.Contains(builder.edges[from], to) {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("duplicate edge from %q to %q", from, to))
		return builder
	}

	builder.edges[from] = append(builder.edges[from], to)

	return builder
}

// AddConditionalEdges attaches a router to from. After from runs, router is
// evaluated against the merged state and every destination registered for
// the returned key becomes active. A key may map to several destinations,
// which then run in parallel.
func (builder *Builder[S, U]) AddConditionalEdges(from string, router Router[S], routes map[string][]string) *Builder[S, U] {
	if from == "" || from == End {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("invalid conditional edge source %q", from))
		return builder
	}

	if router == nil {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("router must not be nil for %q", from))
		return builder
	}

	if len(routes) == 0 {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("conditional edge from %q has no routes", from))
		return builder
	}

	if _, exists := builder.branches[from]; exists {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("duplicate conditional edge from %q", from))
		return builder
	}

	copied := make(map[string][]string, len(routes))
	for routeKey, destinations := range routes {
		if len(destinations) == 0 {
			builder.buildErrors = append(builder.buildErrors, fmt.Errorf("route %q from %q has no destinations", routeKey, from))
			continue
		}
		copied[routeKey] = slices.Clone(destinations)
	}

	builder.branches[from] = &branch[S]{router: router, routes: copied}

	return builder
}

// Build validates the graph structure and produces an executable Graph.
func (builder *Builder[S, U]) Build() (*Graph[S, U], error) {
	if len(builder.buildErrors) > 0 {
		return nil, fmt.Errorf("graph build errors: %w", errors.Join(builder.buildErrors...))
	}

	if len(builder.nodes) == 0 {
		return nil, errors.New("graph must contain at least one node")
	}

	if err := builder.validateEdges(); err != nil {
		return nil, err
	}

	if err := builder.validateReachability(); err != nil {
		return nil, err
	}

	nodePosition := make(map[string]int, len(builder.nodeOrder))
	for index, nodeID := range builder.nodeOrder {
		nodePosition[nodeID] = index
	}

	return &Graph[S, U]{
		reducer:      builder.reducer,
		nodes:        builder.nodes,
		nodePosition: nodePosition,
		edges:        builder.edges,
		branches:     builder.branches,
		config:       builder.config,
	}, nil
}

// validateEdges checks that all endpoints exist and that no source mixes
// static and conditional routing.
func (builder *Builder[S, U]) validateEdges() error {
	if len(builder.edges[Start]) == 0 && builder.branches[Start] == nil {
		return errors.New("start has no outgoing edges")
	}

	for from, targets := range builder.edges {
		if err := builder.checkSource(from); err != nil {
			return err
		}
		if _, conditional := builder.branches[from]; conditional {
			return fmt.Errorf("node %q has both static and conditional edges", from)
		}
		for _, to := range targets {
			if err := builder.checkTarget(from, to); err != nil {
				return err
			}
		}
	}

	for from, conditional := range builder.branches {
		if err := builder.checkSource(from); err != nil {
			return err
		}
		for _, destinations := range conditional.routes {
			for _, to := range destinations {
				if err := builder.checkTarget(from, to); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (builder *Builder[S, U]) checkSource(from string) error {
	if from == Start {
		return nil
	}
	if _, exists := builder.nodes[from]; !exists {
		return fmt.Errorf("edge references non-existent source node %q", from)
	}
	return nil
}

func (builder *Builder[S, U]) checkTarget(from, to string) error {
	if to == End {
		return nil
	}
	if _, exists := builder.nodes[to]; !exists {
		return fmt.Errorf("edge from %q references non-existent target node %q", from, to)
	}
	return nil
}

// validateReachability walks every edge and route from Start and reports
// nodes that can never run.
func (builder *Builder[S, U]) validateReachability() error {
	visited := map[string]bool{Start: true}
	frontier := []string{Start}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, to := range builder.targetsOf(current) {
			if to == End || visited[to] {
				continue
			}
			visited[to] = true
			frontier = append(frontier, to)
		}
	}

	var unreachable []string
	for _, nodeID := range builder.nodeOrder {
		if !visited[nodeID] {
			unreachable = append(unreachable, nodeID)
		}
	}

	if len(unreachable) > 0 {
		return fmt.Errorf("nodes not reachable from start: %v", unreachable)
	}
	return nil
}

func (builder *Builder[S, U]) targetsOf(from string) []string {
	targets := slices.Clone(builder.edges[from])
	if conditional, exists := builder.branches[from]; exists {
		for _, destinations := range conditional.routes {
			targets = append(targets, destinations...)
		}
	}
	return targets
}

package graph

import "errors"

var (
	// ErrStepLimit is returned when a run needs more supersteps than
	// allowed by WithMaxSteps.
	ErrStepLimit = errors.New("graph: superstep limit reached")

	// ErrNodePanic wraps a value recovered from a panicking node.
	ErrNodePanic = errors.New("graph: node panicked")

	// ErrUnknownRoute is returned when a router yields a key with no
	// registered destinations.
	ErrUnknownRoute = errors.New("graph: router returned unknown route")
)

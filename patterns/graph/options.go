package graph

import (
	"time"

	"github.com/leofalp/deepresearch/providers/observability"
)

// defaultMaxSteps bounds runs that configure no explicit limit.
const defaultMaxSteps = 25

// Option is a functional option for configuring Graph behavior.
// Options are applied during construction via NewBuilder.
type Option func(*graphConfig)

// NodeOption is a functional option for configuring individual node behavior.
type NodeOption func(*nodeSettings)

type nodeSettings struct {
	timeout time.Duration
}

// InvokeOption customizes a single Invoke or Stream call.
type InvokeOption func(*invocation)

type invocation struct {
	runID string
}

// --- Graph Options ---

// WithMaxSteps bounds the number of supersteps of a run. A run that would
// need more fails with ErrStepLimit. Values below 1 keep the default (25).
//
// Example:
//
//	graph.NewBuilder(reduce, graph.WithMaxSteps(12))
func WithMaxSteps(maxSteps int) Option {
	return func(config *graphConfig) {
		if maxSteps > 0 {
			config.maxSteps = maxSteps
		}
	}
}

// WithMaxConcurrency limits how many nodes of a superstep run at once.
// A value of 0 (default) means all active nodes start together.
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(config *graphConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithExecutionTimeout sets the deadline for an entire run. When it expires
// the context handed to running nodes is canceled and the run fails with
// context.DeadlineExceeded. A value of 0 (default) means no timeout.
//
// Example:
//
//	graph.NewBuilder(reduce, graph.WithExecutionTimeout(10*time.Minute))
func WithExecutionTimeout(timeout time.Duration) Option {
	return func(config *graphConfig) {
		config.executionTimeout = timeout
	}
}

// WithObserver sets the observability provider for every run. Without it the
// provider attached to the invocation context (if any) is used.
func WithObserver(provider observability.Provider) Option {
	return func(config *graphConfig) {
		config.observer = provider
	}
}

// WithCheckpointer persists the merged state after every superstep.
// Checkpoint failures are logged and do not abort the run.
func WithCheckpointer(checkpointer Checkpointer) Option {
	return func(config *graphConfig) {
		config.checkpointer = checkpointer
	}
}

// --- Node Options ---

// WithNodeTimeout bounds a single execution of the node. The graph-level
// execution timeout still applies.
//
// Example:
//
//	builder.AddNode("compose", compose, graph.WithNodeTimeout(90*time.Second))
func WithNodeTimeout(timeout time.Duration) NodeOption {
	return func(settings *nodeSettings) {
		settings.timeout = timeout
	}
}

// --- Invoke Options ---

// WithRunID sets the identifier recorded in checkpoints and telemetry.
// When omitted a random UUID is generated.
func WithRunID(runID string) InvokeOption {
	return func(call *invocation) {
		call.runID = runID
	}
}

package research

import (
	"time"

	"github.com/leofalp/deepresearch/patterns/graph"
	"github.com/leofalp/deepresearch/providers/observability"
)

const (
	// DefaultMaxIterations bounds the number of compose attempts of a run.
	DefaultMaxIterations = 2

	// DefaultMinConfidence is the score a draft needs to skip another
	// retrieval pass.
	DefaultMinConfidence = 0.65

	// DefaultTimeout is the deadline of a whole run.
	DefaultTimeout = 10 * time.Minute

	// DefaultSearchResults is the number of results requested from the
	// primary retriever and kept per pass.
	DefaultSearchResults = 8
)

// RetryPolicy sets how often each kind of capability call is attempted.
// Zero fields keep their defaults.
type RetryPolicy struct {
	SearchAttempts  int
	LLMAttempts     int
	PersistAttempts int
	NotifyAttempts  int

	// InitialBackoff is the wait before the second attempt; it doubles
	// afterwards. MaxBackoff caps it (zero means uncapped).
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns the attempts used when no policy is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		SearchAttempts:  3,
		LLMAttempts:     2,
		PersistAttempts: 3,
		NotifyAttempts:  2,
		InitialBackoff:  500 * time.Millisecond,
	}
}

func (policy RetryPolicy) withDefaults() RetryPolicy {
	defaults := DefaultRetryPolicy()
	if policy.SearchAttempts <= 0 {
		policy.SearchAttempts = defaults.SearchAttempts
	}
	if policy.LLMAttempts <= 0 {
		policy.LLMAttempts = defaults.LLMAttempts
	}
	if policy.PersistAttempts <= 0 {
		policy.PersistAttempts = defaults.PersistAttempts
	}
	if policy.NotifyAttempts <= 0 {
		policy.NotifyAttempts = defaults.NotifyAttempts
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = defaults.InitialBackoff
	}
	return policy
}

// Option is a functional option for configuring a Workflow.
type Option func(*config)

type config struct {
	maxIterations int
	minConfidence float64
	timeout       time.Duration
	maxSteps      int
	stepTimeout   time.Duration
	searchResults int
	retry         RetryPolicy
	observer      observability.Provider
	checkpointer  graph.Checkpointer
}

func newConfig(opts []Option) *config {
	workflowConfig := &config{
		maxIterations: DefaultMaxIterations,
		minConfidence: DefaultMinConfidence,
		timeout:       DefaultTimeout,
		searchResults: DefaultSearchResults,
		retry:         DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(workflowConfig)
	}

	workflowConfig.retry = workflowConfig.retry.withDefaults()

	// One pass is retrieve, summarize and compose; the tail is persist,
	// notify and finalize.
	if workflowConfig.maxSteps <= 0 {
		workflowConfig.maxSteps = max(25, 3*workflowConfig.maxIterations+4)
	}
	return workflowConfig
}

// WithMaxIterations bounds the number of compose attempts. Values below 1
// keep the default (2).
func WithMaxIterations(maxIterations int) Option {
	return func(workflowConfig *config) {
		if maxIterations > 0 {
			workflowConfig.maxIterations = maxIterations
		}
	}
}

// WithMinConfidence sets the confidence a draft needs to be accepted without
// another retrieval pass.
func WithMinConfidence(minConfidence float64) Option {
	return func(workflowConfig *config) {
		workflowConfig.minConfidence = minConfidence
	}
}

// WithTimeout sets the deadline of a whole run. Zero disables it.
//
// Example:
//
//	research.New(caps, research.WithTimeout(3*time.Minute))
func WithTimeout(timeout time.Duration) Option {
	return func(workflowConfig *config) {
		workflowConfig.timeout = timeout
	}
}

// WithMaxSteps overrides the superstep limit of the underlying graph.
func WithMaxSteps(maxSteps int) Option {
	return func(workflowConfig *config) {
		workflowConfig.maxSteps = maxSteps
	}
}

// WithStepTimeout bounds every step that calls a capability, retries
// included.
func WithStepTimeout(timeout time.Duration) Option {
	return func(workflowConfig *config) {
		workflowConfig.stepTimeout = timeout
	}
}

// WithSearchResults caps the items kept from the primary retriever per pass.
func WithSearchResults(numResults int) Option {
	return func(workflowConfig *config) {
		if numResults > 0 {
			workflowConfig.searchResults = numResults
		}
	}
}

// WithRetryPolicy replaces the per-capability attempt counts.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(workflowConfig *config) {
		workflowConfig.retry = policy
	}
}

// WithInitialBackoff changes only the first backoff of every capability.
func WithInitialBackoff(backoff time.Duration) Option {
	return func(workflowConfig *config) {
		workflowConfig.retry.InitialBackoff = backoff
	}
}

// WithObserver enables tracing, metrics and logging for every run.
func WithObserver(provider observability.Provider) Option {
	return func(workflowConfig *config) {
		workflowConfig.observer = provider
	}
}

// WithCheckpointer records the state after every superstep.
func WithCheckpointer(checkpointer graph.Checkpointer) Option {
	return func(workflowConfig *config) {
		workflowConfig.checkpointer = checkpointer
	}
}

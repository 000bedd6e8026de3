package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across the executor, the research steps and the capability adapters.

// --- Research Run Attributes ---

const (
	// AttrRunID is the identifier of a workflow invocation
	AttrRunID = "research.run_id"

	// AttrStep is the name of the research step emitting the record
	AttrStep = "research.step"

	// AttrIteration is the current retrieval/compose iteration
	AttrIteration = "research.iteration"

	// AttrConfidence is the confidence reported by the composer
	AttrConfidence = "research.confidence"

	// AttrSourceCount is the number of accumulated sources
	AttrSourceCount = "research.sources"

	// AttrRoute is the route chosen by a policy router
	AttrRoute = "research.route"

	// AttrQuestion is the (truncated) research question
	AttrQuestion = "research.question"
)

// --- Capability Attributes ---

const (
	// AttrCapability names the external capability (search, answer, summarize, ...)
	AttrCapability = "capability.name"

	// AttrAttempt is the 1-based attempt number of a retried call
	AttrAttempt = "capability.attempt"

	// AttrBackoff is the wait before the next attempt
	AttrBackoff = "capability.backoff"

	// AttrRetrievalItems is the number of items a retriever returned
	AttrRetrievalItems = "retrieval.items"

	// AttrLLMModel is the model identifier
	AttrLLMModel = "llm.model"

	// AttrLLMTokensTotal is the total number of tokens of a completion
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- Not a credential, token refers to LLM tokens
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanCapabilityCall wraps one (possibly retried) external capability call
	SpanCapabilityCall = "capability.call"

	// SpanHTTPRequest wraps an outbound HTTP request
	SpanHTTPRequest = "http.request"
)

// --- Metric Names ---

const (
	// MetricRunCount counts finished workflow runs by status
	MetricRunCount = "deepresearch.run.count"

	// MetricRunDuration records the wall-clock duration of workflow runs
	MetricRunDuration = "deepresearch.run.duration"

	// MetricCapabilityRetries counts retried capability attempts
	MetricCapabilityRetries = "deepresearch.capability.retries"

	// MetricCapabilityFailures counts capability calls that exhausted their retries
	MetricCapabilityFailures = "deepresearch.capability.failures"

	// MetricRetrievalItems records how many items each retrieval returned
	MetricRetrievalItems = "deepresearch.retrieval.items"
)

package research

import "context"

// Retrieval is the result of one retriever call.
type Retrieval struct {
	Items []Source

	// Notes is optional analyst text produced alongside the items, such as
	// a generated answer.
	Notes string
}

// Retriever looks up sources for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (Retrieval, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string) (Retrieval, error)

// Retrieve calls f(ctx, query).
func (f RetrieverFunc) Retrieve(ctx context.Context, query string) (Retrieval, error) {
	return f(ctx, query)
}

// Summarizer condenses sources into analyst notes.
type Summarizer interface {
	Summarize(ctx context.Context, question string, sources []Source, priorNotes string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, question string, sources []Source, priorNotes string) (string, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(ctx context.Context, question string, sources []Source, priorNotes string) (string, error) {
	return f(ctx, question, sources, priorNotes)
}

// Composition is a drafted report with a self-assessed quality score in
// [0, 1].
type Composition struct {
	Draft      string  `json:"draft"`
	Confidence float64 `json:"confidence"`
}

// Composer drafts the report from the question, notes and sources.
type Composer interface {
	Compose(ctx context.Context, question, notes string, sources []Source) (Composition, error)
}

// ComposerFunc adapts a function to Composer.
type ComposerFunc func(ctx context.Context, question, notes string, sources []Source) (Composition, error)

// Compose calls f.
func (f ComposerFunc) Compose(ctx context.Context, question, notes string, sources []Source) (Composition, error) {
	return f(ctx, question, notes, sources)
}

// Persisted locates a stored report.
type Persisted struct {
	LocationURL string `json:"location_url"`
}

// Persister stores the final report.
type Persister interface {
	Persist(ctx context.Context, question, draft string) (Persisted, error)
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, question, draft string) (Persisted, error)

// Persist calls f.
func (f PersisterFunc) Persist(ctx context.Context, question, draft string) (Persisted, error) {
	return f(ctx, question, draft)
}

// Message is what the notify step hands to a Notifier.
type Message struct {
	Recipient   string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	LocationURL string `json:"link"`
}

// Notification identifies the message created by a Notifier, e.g. an
// e-mail draft ID.
type Notification struct {
	ExternalID string `json:"external_id"`
}

// Notifier tells the recipient where the report is.
type Notifier interface {
	Notify(ctx context.Context, message Message) (Notification, error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message Message) (Notification, error)

// Notify calls f(ctx, message).
func (f NotifierFunc) Notify(ctx context.Context, message Message) (Notification, error) {
	return f(ctx, message)
}

// Capabilities bundles the collaborators of a workflow. Answer is optional.
// A nil Persister disables persistence; a nil Notifier fails runs that name
// a recipient.
type Capabilities struct {
	Search     Retriever
	Answer     Retriever
	Summarizer Summarizer
	Composer   Composer
	Persister  Persister
	Notifier   Notifier
}

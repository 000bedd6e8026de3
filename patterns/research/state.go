package research

import (
	"crypto/sha256"
	"encoding/hex"
)

// Status is the lifecycle status of a run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// rank orders statuses for the merge: error dominates complete, complete
// dominates running. Unknown values rank like running.
func (s Status) rank() int {
	switch s {
	case StatusError:
		return 2
	case StatusComplete:
		return 1
	default:
		return 0
	}
}

// Source is one retrieved item.
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Content string `json:"content"`
}

// RunState is the shared record threaded through every step of a run.
// Steps receive a snapshot and return an Update; only Reduce produces new
// states.
type RunState struct {
	// Question and Recipient are inputs and never change during a run.
	Question  string `json:"question"`
	Recipient string `json:"recipient,omitempty"`

	RunID string `json:"run_id,omitempty"`

	Sources []Source `json:"sources"`
	Notes   string   `json:"notes,omitempty"`
	Draft   string   `json:"draft,omitempty"`

	DocURL          string `json:"doc_url,omitempty"`
	ExternalDraftID string `json:"external_draft_id,omitempty"`

	// Iteration counts completed compose attempts.
	Iteration  int     `json:"iteration"`
	Confidence float64 `json:"confidence"`

	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the run reached StatusError.
func (s RunState) Failed() bool {
	return s.Status == StatusError
}

// Update is the partial result of a step. Nil pointers mean "not set".
// Sources and Notes are appended by the reducer rather than replaced.
type Update struct {
	Sources []Source
	Notes   string

	Draft           *string
	DocURL          *string
	ExternalDraftID *string
	Iteration       *int
	Confidence      *float64

	Status *Status
	Error  *string
}

// NewState returns the initial state of a run.
func NewState(input Input) RunState {
	return RunState{
		Question:  input.Question,
		Recipient: input.RecipientEmail,
		Sources:   []Source{},
		Status:    StatusRunning,
	}
}

// Failure returns the update that marks a step as failed.
func Failure(message string) Update {
	status := StatusError
	return Update{Status: &status, Error: &message}
}

// Reduce folds update into prior. It is the single merge function of the
// workflow: fan-in and sequential chaining both go through it. prior is never
// modified.
func Reduce(prior RunState, update Update) RunState {
	next := prior

	next.Sources = mergeSources(prior.Sources, update.Sources)
	next.Notes = appendNotes(prior.Notes, update.Notes)

	if update.Draft != nil {
		next.Draft = *update.Draft
	}
	if update.DocURL != nil {
		next.DocURL = *update.DocURL
	}
	if update.ExternalDraftID != nil {
		next.ExternalDraftID = *update.ExternalDraftID
	}
	if update.Iteration != nil {
		next.Iteration = *update.Iteration
	}
	if update.Confidence != nil {
		next.Confidence = *update.Confidence
	}
	if update.Status != nil {
		next.Status = mergeStatus(prior.Status, *update.Status)
	}
	if update.Error != nil && prior.Error == "" {
		next.Error = *update.Error
	}

	return next
}

func mergeStatus(prior, incoming Status) Status {
	if incoming.rank() > prior.rank() {
		return incoming
	}
	if prior == "" {
		return incoming
	}
	return prior
}

func appendNotes(prior, incoming string) string {
	switch {
	case incoming == "":
		return prior
	case prior == "":
		return incoming
	default:
		return prior + "\n\n" + incoming
	}
}

// mergeSources concatenates prior and incoming, keeping the first occurrence
// of every URL. Items without a URL are keyed by a fingerprint of their title
// and content so repeated passes do not accumulate identical entries.
func mergeSources(prior, incoming []Source) []Source {
	merged := make([]Source, 0, len(prior)+len(incoming))
	seen := make(map[string]bool, len(prior)+len(incoming))

	for _, items := range [][]Source{prior, incoming} {
		for _, item := range items {
			key := sourceKey(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}

	return merged
}

func sourceKey(item Source) string {
	if item.URL != "" {
		return "url:" + item.URL
	}
	sum := sha256.Sum256([]byte(item.Title + "\x00" + item.Content))
	return "sha256:" + hex.EncodeToString(sum[:])
}

package research

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/leofalp/deepresearch/core/retry"
	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/providers/observability"
)

// Node IDs of the research graph.
const (
	NodeSearch    = "search"
	NodeAnswer    = "answer"
	NodeSummarize = "summarize"
	NodeCompose   = "compose"
	NodePersist   = "persist"
	NodeNotify    = "notify"
	NodeFinalize  = "finalize"
)

const subjectQuestionChars = 50

var (
	errEmptyDraft        = errors.New("composer returned an empty draft")
	errInvalidConfidence = errors.New("composer returned a confidence outside [0, 1]")
)

// search queries the primary retriever. Its absence or exhaustion fails the
// run.
func (w *Workflow) search(ctx context.Context, state RunState) (Update, error) {
	if state.Failed() {
		return Update{}, nil
	}

	if w.capabilities.Search == nil {
		return Failure(fmt.Sprintf("retriever %q is not configured", NodeSearch)), nil
	}

	retrieval, err := call(ctx, w, NodeSearch, w.config.retry.SearchAttempts, func(callCtx context.Context) (Retrieval, error) {
		return w.capabilities.Search.Retrieve(callCtx, state.Question)
	})
	if err != nil {
		return Failure("search failed: " + err.Error()), nil
	}

	items := retrieval.Items
	if len(items) > w.config.searchResults {
		items = items[:w.config.searchResults]
	}
	recordRetrieval(ctx, NodeSearch, len(items))

	return Update{Sources: slices.Clone(items), Notes: retrieval.Notes}, nil
}

// answer queries the optional answer retriever. Any problem degrades to an
// empty result.
func (w *Workflow) answer(ctx context.Context, state RunState) (Update, error) {
	if state.Failed() {
		return Update{}, nil
	}

	provider := observability.ObserverFromContext(ctx)

	if w.capabilities.Answer == nil {
		if provider != nil {
			provider.Warn(ctx, "answer retriever not configured, skipping",
				observability.String(observability.AttrStep, NodeAnswer),
			)
		}
		return Update{}, nil
	}

	retrieval, err := call(ctx, w, NodeAnswer, w.config.retry.SearchAttempts, func(callCtx context.Context) (Retrieval, error) {
		return w.capabilities.Answer.Retrieve(callCtx, state.Question)
	})
	if err != nil {
		if provider != nil {
			provider.Warn(ctx, "answer retriever failed, continuing without it",
				observability.String(observability.AttrStep, NodeAnswer),
				observability.Error(err),
			)
		}
		return Update{}, nil
	}

	recordRetrieval(ctx, NodeAnswer, len(retrieval.Items))

	return Update{Sources: slices.Clone(retrieval.Items), Notes: retrieval.Notes}, nil
}

// summarize turns the merged sources into notes. Without sources there is
// nothing to summarize and the step passes.
func (w *Workflow) summarize(ctx context.Context, state RunState) (Update, error) {
	if state.Failed() || len(state.Sources) == 0 {
		return Update{}, nil
	}

	summary, err := call(ctx, w, NodeSummarize, w.config.retry.LLMAttempts, func(callCtx context.Context) (string, error) {
		return w.capabilities.Summarizer.Summarize(callCtx, state.Question, slices.Clone(state.Sources), state.Notes)
	})
	if err != nil {
		return Failure("summarize failed: " + err.Error()), nil
	}

	return Update{Notes: summary}, nil
}

// compose drafts the report and counts the attempt.
func (w *Workflow) compose(ctx context.Context, state RunState) (Update, error) {
	if state.Failed() {
		return Update{}, nil
	}

	composition, err := call(ctx, w, NodeCompose, w.config.retry.LLMAttempts, func(callCtx context.Context) (Composition, error) {
		composition, err := w.capabilities.Composer.Compose(callCtx, state.Question, state.Notes, slices.Clone(state.Sources))
		if err != nil {
			return Composition{}, err
		}
		return composition, validateComposition(composition)
	})
	if err != nil {
		return Failure("compose failed: " + err.Error()), nil
	}

	if provider := observability.ObserverFromContext(ctx); provider != nil {
		provider.Info(ctx, "draft composed",
			observability.Int(observability.AttrIteration, state.Iteration+1),
			observability.Float64(observability.AttrConfidence, composition.Confidence),
			observability.Int(observability.AttrSourceCount, len(state.Sources)),
		)
	}

	return Update{
		Draft:      utils.Ptr(composition.Draft),
		Confidence: utils.Ptr(composition.Confidence),
		Iteration:  utils.Ptr(state.Iteration + 1),
		Status:     utils.Ptr(StatusRunning),
	}, nil
}

func validateComposition(composition Composition) error {
	if composition.Draft == "" {
		return errEmptyDraft
	}
	if math.IsNaN(composition.Confidence) || composition.Confidence < 0 || composition.Confidence > 1 {
		return fmt.Errorf("%w: %v", errInvalidConfidence, composition.Confidence)
	}
	return nil
}

// persist stores the draft. Without a Persister the step passes and DocURL
// stays empty.
func (w *Workflow) persist(ctx context.Context, state RunState) (Update, error) {
	if state.Failed() || w.capabilities.Persister == nil {
		return Update{}, nil
	}

	persisted, err := call(ctx, w, NodePersist, w.config.retry.PersistAttempts, func(callCtx context.Context) (Persisted, error) {
		return w.capabilities.Persister.Persist(callCtx, state.Question, state.Draft)
	})
	if err != nil {
		return Failure("persist failed: " + err.Error()), nil
	}

	return Update{DocURL: utils.Ptr(persisted.LocationURL), Status: utils.Ptr(StatusRunning)}, nil
}

// notify tells the recipient where the report lives.
func (w *Workflow) notify(ctx context.Context, state RunState) (Update, error) {
	if state.Failed() {
		return Update{}, nil
	}

	if state.Recipient == "" {
		return Update{Status: utils.Ptr(StatusComplete)}, nil
	}

	if w.capabilities.Notifier == nil {
		return Failure("notifier is not configured"), nil
	}

	message := NewMessage(state)
	notification, err := call(ctx, w, NodeNotify, w.config.retry.NotifyAttempts, func(callCtx context.Context) (Notification, error) {
		return w.capabilities.Notifier.Notify(callCtx, message)
	})
	if err != nil {
		return Failure("notify failed: " + err.Error()), nil
	}

	return Update{ExternalDraftID: utils.Ptr(notification.ExternalID)}, nil
}

// NewMessage builds the notification for a finished report.
func NewMessage(state RunState) Message {
	return Message{
		Recipient:   state.Recipient,
		Subject:     "Research Complete: " + utils.Truncate(state.Question, subjectQuestionChars),
		Body:        fmt.Sprintf("Hi,\n\nYour research query has been completed: \"%s\"\n\nView the full report here:\n%s\n\nBest regards", state.Question, state.DocURL),
		LocationURL: state.DocURL,
	}
}

// finalize marks the run complete. On a failed run it changes nothing.
func (w *Workflow) finalize(_ context.Context, state RunState) (Update, error) {
	if state.Failed() {
		return Update{}, nil
	}
	return Update{Status: utils.Ptr(StatusComplete)}, nil
}

// call runs one capability through the retry wrapper inside a
// capability span.
func call[T any](ctx context.Context, w *Workflow, capability string, attempts int, operation func(context.Context) (T, error)) (T, error) {
	provider := observability.ObserverFromContext(ctx)
	capabilityAttr := observability.String(observability.AttrCapability, capability)

	var span observability.Span
	if provider != nil {
		ctx, span = provider.StartSpan(ctx, observability.SpanCapabilityCall, capabilityAttr)
		defer span.End()
	}

	value, err := retry.Do(ctx, operation, attempts, w.config.retry.InitialBackoff,
		retry.WithMaxDelay(w.config.retry.MaxBackoff),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			if provider == nil {
				return
			}
			provider.Counter(observability.MetricCapabilityRetries).Add(ctx, 1, capabilityAttr)
			provider.Warn(ctx, "capability call failed, retrying",
				capabilityAttr,
				observability.Int(observability.AttrAttempt, attempt),
				observability.Duration(observability.AttrBackoff, delay),
				observability.Error(err),
			)
		}),
	)

	if span != nil {
		if err != nil {
			provider.Counter(observability.MetricCapabilityFailures).Add(ctx, 1, capabilityAttr)
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "capability call failed")
		} else {
			span.SetStatus(observability.StatusOK, "")
		}
	}

	return value, err
}

func recordRetrieval(ctx context.Context, capability string, items int) {
	provider := observability.ObserverFromContext(ctx)
	if provider == nil {
		return
	}
	provider.Histogram(observability.MetricRetrievalItems).Record(ctx, float64(items),
		observability.String(observability.AttrCapability, capability),
	)
	provider.Debug(ctx, "retrieval completed",
		observability.String(observability.AttrCapability, capability),
		observability.Int(observability.AttrRetrievalItems, items),
	)
}

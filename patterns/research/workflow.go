package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/graph"
	"github.com/leofalp/deepresearch/providers/observability"
)

// ErrNotConfigured is returned by New when a required capability is missing.
var ErrNotConfigured = errors.New("research: capability not configured")

const logQuestionChars = 120

// Input starts a run.
type Input struct {
	Question       string `json:"question"`
	RecipientEmail string `json:"recipientEmail,omitempty"`

	// RunID identifies the run in checkpoints and telemetry. A random UUID
	// is used when empty.
	RunID string `json:"runId,omitempty"`
}

// Workflow is the compiled research graph. It is safe for concurrent use.
type Workflow struct {
	capabilities Capabilities
	config       *config
	policy       Policy
	graph        *graph.Graph[RunState, Update]
}

// New validates the capabilities and compiles the research graph.
//
// Summarizer and Composer are required. A missing Search retriever is not
// rejected here: every run then fails at the search step, which keeps the
// failure visible in the returned state.
func New(capabilities Capabilities, opts ...Option) (*Workflow, error) {
	if capabilities.Summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer", ErrNotConfigured)
	}
	if capabilities.Composer == nil {
		return nil, fmt.Errorf("%w: composer", ErrNotConfigured)
	}

	workflowConfig := newConfig(opts)
	workflow := &Workflow{
		capabilities: capabilities,
		config:       workflowConfig,
		policy: Policy{
			MaxIterations: workflowConfig.maxIterations,
			MinConfidence: workflowConfig.minConfidence,
		},
	}

	graphOptions := []graph.Option{
		graph.WithMaxSteps(workflowConfig.maxSteps),
		graph.WithExecutionTimeout(workflowConfig.timeout),
	}
	if workflowConfig.observer != nil {
		graphOptions = append(graphOptions, graph.WithObserver(workflowConfig.observer))
	}
	if workflowConfig.checkpointer != nil {
		graphOptions = append(graphOptions, graph.WithCheckpointer(workflowConfig.checkpointer))
	}

	var stepOptions []graph.NodeOption
	if workflowConfig.stepTimeout > 0 {
		stepOptions = append(stepOptions, graph.WithNodeTimeout(workflowConfig.stepTimeout))
	}

	compiled, err := graph.NewBuilder(Reduce, graphOptions...).
		AddNode(NodeSearch, workflow.search, stepOptions...).
		AddNode(NodeAnswer, workflow.answer, stepOptions...).
		AddNode(NodeSummarize, workflow.summarize, stepOptions...).
		AddNode(NodeCompose, workflow.compose, stepOptions...).
		AddNode(NodePersist, workflow.persist, stepOptions...).
		AddNode(NodeNotify, workflow.notify, stepOptions...).
		AddNode(NodeFinalize, workflow.finalize).
		AddEdge(graph.Start, NodeSearch).
		AddEdge(graph.Start, NodeAnswer).
		AddEdge(NodeSearch, NodeSummarize).
		AddEdge(NodeAnswer, NodeSummarize).
		AddEdge(NodeSummarize, NodeCompose).
		AddConditionalEdges(NodeCompose, router(NodeCompose, workflow.policy.AfterCompose), map[string][]string{
			RouteRetrieve: {NodeSearch, NodeAnswer},
			RoutePersist:  {NodePersist},
			RouteEnd:      {graph.End},
		}).
		AddConditionalEdges(NodePersist, router(NodePersist, workflow.policy.AfterPersist), map[string][]string{
			RouteNotify:   {NodeNotify},
			RouteFinalize: {NodeFinalize},
		}).
		AddEdge(NodeNotify, NodeFinalize).
		AddEdge(NodeFinalize, graph.End).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build research graph: %w", err)
	}

	workflow.graph = compiled
	return workflow, nil
}

// Policy returns the confidence/iteration gate in effect.
func (w *Workflow) Policy() Policy {
	return w.policy
}

// Run executes the workflow and returns the final state. It never returns
// a partial result: a deadline, cancellation or executor fault is folded
// into the state as StatusError with a message.
func (w *Workflow) Run(ctx context.Context, input Input) RunState {
	runStart := time.Now()
	initial := w.initialState(input)

	state, err := w.graph.Invoke(ctx, initial, graph.WithRunID(initial.RunID))
	if err != nil {
		state = w.abort(ctx, state, err)
	}

	w.observeRun(ctx, state, time.Since(runStart))
	return state
}

// Stream executes the workflow like Run and yields every graph event. The
// final EventDone carries the same state Run would return; when the executor
// failed, the error is passed along with it.
func (w *Workflow) Stream(ctx context.Context, input Input) iter.Seq2[graph.Event[RunState], error] {
	return func(yield func(graph.Event[RunState], error) bool) {
		runStart := time.Now()
		initial := w.initialState(input)

		for event, err := range w.graph.Stream(ctx, initial, graph.WithRunID(initial.RunID)) {
			if event.Type == graph.EventDone {
				if err != nil {
					event.State = w.abort(ctx, event.State, err)
				}
				w.observeRun(ctx, event.State, time.Since(runStart))
			}
			if !yield(event, err) {
				return
			}
		}
	}
}

func (w *Workflow) initialState(input Input) RunState {
	state := NewState(input)
	state.RunID = input.RunID
	if state.RunID == "" {
		state.RunID = uuid.NewString()
	}
	return state
}

// abort folds an executor failure into the state and records it as the
// run's last checkpoint.
func (w *Workflow) abort(ctx context.Context, state RunState, runErr error) RunState {
	message := "workflow aborted: " + runErr.Error()
	if errors.Is(runErr, context.DeadlineExceeded) {
		message = "workflow deadline exceeded: " + runErr.Error()
	}
	state = Reduce(state, Failure(message))

	if w.config.checkpointer == nil {
		return state
	}

	step := 1
	storeCtx := context.WithoutCancel(ctx)
	if latest, err := w.config.checkpointer.Latest(storeCtx, state.RunID); err == nil {
		step = latest.Step + 1
	}

	encoded, err := json.Marshal(state)
	if err == nil {
		err = w.config.checkpointer.Put(storeCtx, graph.Checkpoint{
			RunID:     state.RunID,
			Step:      step,
			State:     encoded,
			CreatedAt: time.Now().UTC(),
		})
	}
	if err != nil {
		if provider := w.provider(ctx); provider != nil {
			provider.Warn(ctx, "final checkpoint write failed",
				observability.String(observability.AttrRunID, state.RunID),
				observability.Error(err),
			)
		}
	}

	return state
}

func (w *Workflow) provider(ctx context.Context) observability.Provider {
	if w.config.observer != nil {
		return w.config.observer
	}
	return observability.ObserverFromContext(ctx)
}

func (w *Workflow) observeRun(ctx context.Context, state RunState, duration time.Duration) {
	provider := w.provider(ctx)
	if provider == nil {
		return
	}

	statusAttr := observability.String(observability.AttrStatus, string(state.Status))
	provider.Counter(observability.MetricRunCount).Add(ctx, 1, statusAttr)
	provider.Histogram(observability.MetricRunDuration).Record(ctx, duration.Seconds(), statusAttr)

	attrs := []observability.Attribute{
		observability.String(observability.AttrRunID, state.RunID),
		observability.String(observability.AttrQuestion, utils.Truncate(state.Question, logQuestionChars)),
		statusAttr,
		observability.Int(observability.AttrIteration, state.Iteration),
		observability.Float64(observability.AttrConfidence, state.Confidence),
		observability.Int(observability.AttrSourceCount, len(state.Sources)),
		observability.Duration(observability.AttrDuration, duration),
	}
	if state.Failed() {
		provider.Error(ctx, "research run failed", append(attrs, observability.String(observability.AttrError, state.Error))...)
		return
	}
	provider.Info(ctx, "research run finished", attrs...)
}

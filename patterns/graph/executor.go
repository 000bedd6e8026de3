package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leofalp/deepresearch/providers/observability"
)

// errConsumerStopped is returned by execute when a Stream consumer breaks out
// of its range loop. It is never surfaced to callers.
var errConsumerStopped = errors.New("stream consumer stopped iteration")

type runIDContextKey struct{}

// RunIDFromContext returns the run ID of the invocation executing the node
// that received ctx, or "" outside a run.
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runIDContextKey{}).(string)
	return runID
}

// Invoke runs the graph from Start until no node other than End is active
// and returns the final merged state.
//
// On failure (a node error or panic, a router error, the step limit, the
// execution deadline or cancellation of ctx) Invoke returns the state merged
// up to the last completed superstep together with the error. Updates of a
// failed superstep are discarded.
func (g *Graph[S, U]) Invoke(ctx context.Context, initial S, opts ...InvokeOption) (S, error) {
	return g.execute(ctx, initial, newInvocation(opts), nil)
}

func newInvocation(opts []InvokeOption) *invocation {
	call := &invocation{}
	for _, opt := range opts {
		opt(call)
	}
	if call.runID == "" {
		call.runID = uuid.NewString()
	}
	return call
}

// nodeOutcome is the result of one node within a superstep.
type nodeOutcome[U any] struct {
	update   U
	duration time.Duration
	err      error
}

// execute is the superstep loop shared by Invoke and Stream. emit may be nil;
// when it returns false the run stops with errConsumerStopped.
func (g *Graph[S, U]) execute(ctx context.Context, initial S, call *invocation, emit func(Event[S]) bool) (S, error) {
	runStart := time.Now()

	obs := &observer{provider: g.config.observer, runID: call.runID}
	if obs.provider == nil {
		obs.provider = observability.ObserverFromContext(ctx)
	}
	obs.observeRunStart(&ctx, len(g.nodes))

	ctx = context.WithValue(ctx, runIDContextKey{}, call.runID)

	if g.config.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.executionTimeout)
		defer cancel()
	}

	publish := func(event Event[S]) bool {
		if emit == nil {
			return true
		}
		event.RunID = call.runID
		return emit(event)
	}

	state := initial
	step := 0

	fail := func(err error) (S, error) {
		if errors.Is(err, errConsumerStopped) {
			obs.observeRunCompleted(ctx, step, time.Since(runStart))
		} else {
			obs.observeRunFailed(ctx, err, step, time.Since(runStart))
		}
		return state, err
	}

	active, err := g.nextActive(ctx, []string{Start}, state, obs)
	if err != nil {
		return fail(err)
	}

	for len(active) > 0 {
		if step >= g.config.maxSteps {
			return fail(fmt.Errorf("%w (%d supersteps, next: %v)", ErrStepLimit, g.config.maxSteps, active))
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(fmt.Errorf("graph run aborted before superstep %d: %w", step+1, ctxErr))
		}

		step++
		obs.observeStepStart(ctx, step, active)
		if !publish(Event[S]{Type: EventStepStart, Step: step, Nodes: slices.Clone(active)}) {
			return fail(errConsumerStopped)
		}

		outcomes, stepErr := g.runSuperstep(ctx, step, active, state, obs)

		for index, nodeID := range active {
			event := Event[S]{Type: EventNodeComplete, Step: step, NodeID: nodeID, Duration: outcomes[index].duration}
			if outcomes[index].err != nil {
				event.Type = EventNodeError
				event.Error = outcomes[index].err.Error()
			}
			if !publish(event) {
				return fail(errConsumerStopped)
			}
		}

		if stepErr != nil {
			return fail(fmt.Errorf("superstep %d: %w", step, stepErr))
		}

		for index := range outcomes {
			state = g.reducer(state, outcomes[index].update)
		}

		executed := active
		active, err = g.nextActive(ctx, executed, state, obs)
		if err != nil {
			return fail(fmt.Errorf("superstep %d: %w", step, err))
		}

		g.checkpoint(ctx, obs, Checkpoint{
			RunID: call.runID,
			Step:  step,
			Nodes: executed,
			Next:  active,
		}, state)

		if !publish(Event[S]{Type: EventStepComplete, Step: step, Nodes: slices.Clone(active), State: state}) {
			return fail(errConsumerStopped)
		}
	}

	obs.observeRunCompleted(ctx, step, time.Since(runStart))
	publish(Event[S]{Type: EventDone, Step: step, State: state})

	return state, nil
}

// runSuperstep executes the active nodes concurrently on the same snapshot
// and waits for all of them. Outcomes are returned in active-set order; the
// error is the first node failure, if any.
func (g *Graph[S, U]) runSuperstep(ctx context.Context, step int, active []string, state S, obs *observer) ([]nodeOutcome[U], error) {
	outcomes := make([]nodeOutcome[U], len(active))

	group, groupCtx := errgroup.WithContext(ctx)
	if g.config.maxConcurrency > 0 {
		group.SetLimit(g.config.maxConcurrency)
	}

	for index, nodeID := range active {
		graphNode := g.nodes[nodeID]
		group.Go(func() error {
			outcome := g.executeNode(groupCtx, graphNode, step, state, obs)
			outcomes[index] = outcome
			if outcome.err != nil {
				return fmt.Errorf("node %q failed: %w", nodeID, outcome.err)
			}
			return nil
		})
	}

	return outcomes, group.Wait()
}

// executeNode runs a single node with its timeout, panic recovery and
// observability.
func (g *Graph[S, U]) executeNode(ctx context.Context, graphNode *node[S, U], step int, state S, obs *observer) nodeOutcome[U] {
	nodeContext := ctx
	obs.observeNodeStart(&nodeContext, graphNode.id, step)

	if graphNode.timeout > 0 {
		var cancel context.CancelFunc
		nodeContext, cancel = context.WithTimeout(nodeContext, graphNode.timeout)
		defer cancel()
	}

	nodeStart := time.Now()
	update, err := callNode(nodeContext, graphNode.fn, state)
	duration := time.Since(nodeStart)

	if err != nil {
		obs.observeNodeFailed(nodeContext, graphNode.id, err, duration)
		return nodeOutcome[U]{duration: duration, err: err}
	}

	obs.observeNodeCompleted(nodeContext, graphNode.id, duration)
	return nodeOutcome[U]{update: update, duration: duration}
}

func callNode[S, U any](ctx context.Context, fn NodeFunc[S, U], state S) (update U, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			var zero U
			update = zero
			err = fmt.Errorf("%w: %v", ErrNodePanic, recovered)
		}
	}()

	return fn(ctx, state)
}

func callRouter[S any](ctx context.Context, router Router[S], state S) (routeKey string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("router panicked: %v", recovered)
		}
	}()

	return router(ctx, state)
}

// nextActive computes the de-duplicated union of the targets of the executed
// nodes, ordered by declaration. End is dropped.
func (g *Graph[S, U]) nextActive(ctx context.Context, executed []string, state S, obs *observer) ([]string, error) {
	seen := make(map[string]bool)
	next := make([]string, 0)

	add := func(targets []string) {
		for _, target := range targets {
			if target == End || seen[target] {
				continue
			}
			seen[target] = true
			next = append(next, target)
		}
	}

	for _, nodeID := range executed {
		conditional, isConditional := g.branches[nodeID]
		if !isConditional {
			add(g.edges[nodeID])
			continue
		}

		routeKey, err := callRouter(ctx, conditional.router, state)
		if err != nil {
			return nil, fmt.Errorf("router of %q failed: %w", nodeID, err)
		}

		destinations, known := conditional.routes[routeKey]
		if !known {
			return nil, fmt.Errorf("%w %q from %q", ErrUnknownRoute, routeKey, nodeID)
		}

		obs.observeRoute(ctx, nodeID, routeKey, destinations)
		add(destinations)
	}

	slices.SortFunc(next, func(left, right string) int {
		return g.nodePosition[left] - g.nodePosition[right]
	})

	return next, nil
}

// checkpoint hands the merged state to the configured Checkpointer. Writes
// outlive the run's deadline so the last state is still recorded.
func (g *Graph[S, U]) checkpoint(ctx context.Context, obs *observer, checkpoint Checkpoint, state S) {
	if g.config.checkpointer == nil {
		return
	}

	encoded, err := json.Marshal(state)
	if err == nil {
		checkpoint.State = encoded
		checkpoint.CreatedAt = time.Now().UTC()
		err = g.config.checkpointer.Put(context.WithoutCancel(ctx), checkpoint)
	}

	if err != nil {
		obs.observeCheckpointFailed(ctx, checkpoint.Step, err)
	}
}

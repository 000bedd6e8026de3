package research

import (
	"context"

	"github.com/leofalp/deepresearch/patterns/graph"
	"github.com/leofalp/deepresearch/providers/observability"
)

// Route keys returned by the policy routers.
const (
	RouteRetrieve = "retrieve"
	RoutePersist  = "persist"
	RouteEnd      = "end"
	RouteNotify   = "notify"
	RouteFinalize = "finalize"
)

// Policy is the confidence/iteration gate of the workflow.
type Policy struct {
	// MaxIterations bounds the number of compose attempts.
	MaxIterations int

	// MinConfidence is the score at which a draft is accepted.
	MinConfidence float64
}

// AfterCompose decides what follows a compose step: a failed run ends, a
// weak draft with iterations left goes back to retrieval, anything else is
// persisted.
func (p Policy) AfterCompose(state RunState) string {
	switch {
	case state.Failed():
		return RouteEnd
	case state.Confidence < p.MinConfidence && state.Iteration < p.MaxIterations:
		return RouteRetrieve
	default:
		return RoutePersist
	}
}

// AfterPersist skips notification for failed runs and runs without a
// recipient.
func (p Policy) AfterPersist(state RunState) string {
	if state.Failed() || state.Recipient == "" {
		return RouteFinalize
	}
	return RouteNotify
}

// router adapts a policy decision to graph.Router and logs the choice.
func router(step string, decide func(RunState) string) graph.Router[RunState] {
	return func(ctx context.Context, state RunState) (string, error) {
		route := decide(state)

		if provider := observability.ObserverFromContext(ctx); provider != nil {
			provider.Debug(ctx, "policy route chosen",
				observability.String(observability.AttrStep, step),
				observability.String(observability.AttrRoute, route),
				observability.Int(observability.AttrIteration, state.Iteration),
				observability.Float64(observability.AttrConfidence, state.Confidence),
			)
		}

		return route, nil
	}
}

package graph

import (
	"context"
	"time"

	"github.com/leofalp/deepresearch/providers/observability"
)

// Semantic conventions for graph observability attributes.
const (
	// spanGraphInvoke is the span name for an entire run.
	spanGraphInvoke = "graph.invoke"

	// spanGraphNodeExecute is the span name for one node execution.
	spanGraphNodeExecute = "graph.node.execute"

	attrGraphRunID      = "graph.run_id"
	attrGraphNodeID     = "graph.node.id"
	attrGraphNodeStatus = "graph.node.status"
	attrGraphStep       = "graph.step"
	attrGraphActive     = "graph.active"
	attrGraphTotalNodes = "graph.total_nodes"
	attrGraphRoute      = "graph.route"

	metricGraphNodeDuration = "deepresearch.graph.node.duration"
	metricGraphNodeCount    = "deepresearch.graph.node.count"
	metricGraphStepCount    = "deepresearch.graph.superstep.count"
	metricGraphRunDuration  = "deepresearch.graph.run.duration"

	nodeStatusCompleted = "completed"
	nodeStatusFailed    = "failed"
)

// observer wraps the provider of a single run. A nil provider makes every
// method a no-op.
type observer struct {
	provider observability.Provider
	runID    string
	rootSpan observability.Span
}

// observeRunStart opens the root span and attaches provider and span to ctx.
func (o *observer) observeRunStart(ctx *context.Context, totalNodes int) {
	if o.provider == nil {
		return
	}

	*ctx, o.rootSpan = o.provider.StartSpan(*ctx, spanGraphInvoke,
		observability.String(attrGraphRunID, o.runID),
		observability.Int(attrGraphTotalNodes, totalNodes),
	)
	*ctx = observability.ContextWithSpan(*ctx, o.rootSpan)
	*ctx = observability.ContextWithObserver(*ctx, o.provider)

	o.provider.Info(*ctx, "graph run started",
		observability.String(attrGraphRunID, o.runID),
	)
}

func (o *observer) observeRunCompleted(ctx context.Context, steps int, duration time.Duration) {
	if o.provider == nil {
		return
	}

	o.provider.Histogram(metricGraphRunDuration).Record(ctx, duration.Seconds(),
		observability.String(observability.AttrStatus, "completed"),
	)
	o.provider.Info(ctx, "graph run completed",
		observability.String(attrGraphRunID, o.runID),
		observability.Int(attrGraphStep, steps),
		observability.Duration(observability.AttrDuration, duration),
	)

	if o.rootSpan != nil {
		o.rootSpan.SetStatus(observability.StatusOK, "graph run completed")
		o.rootSpan.End()
	}
}

func (o *observer) observeRunFailed(ctx context.Context, runErr error, steps int, duration time.Duration) {
	if o.provider == nil {
		return
	}

	o.provider.Histogram(metricGraphRunDuration).Record(ctx, duration.Seconds(),
		observability.String(observability.AttrStatus, "failed"),
	)
	o.provider.Error(ctx, "graph run failed",
		observability.String(attrGraphRunID, o.runID),
		observability.Int(attrGraphStep, steps),
		observability.Error(runErr),
		observability.Duration(observability.AttrDuration, duration),
	)

	if o.rootSpan != nil {
		o.rootSpan.RecordError(runErr)
		o.rootSpan.SetStatus(observability.StatusError, "graph run failed")
		o.rootSpan.End()
	}
}

func (o *observer) observeStepStart(ctx context.Context, step int, active []string) {
	if o.provider == nil {
		return
	}

	o.provider.Counter(metricGraphStepCount).Add(ctx, 1)
	o.provider.Debug(ctx, "superstep started",
		observability.Int(attrGraphStep, step),
		observability.StringSlice(attrGraphActive, active),
	)
}

// observeNodeStart opens a child span for a node and attaches it to ctx.
func (o *observer) observeNodeStart(ctx *context.Context, nodeID string, step int) {
	if o.provider == nil {
		return
	}

	var nodeSpan observability.Span
	*ctx, nodeSpan = o.provider.StartSpan(*ctx, spanGraphNodeExecute,
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphStep, step),
	)
	*ctx = observability.ContextWithSpan(*ctx, nodeSpan)

	o.provider.Debug(*ctx, "node execution started",
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphStep, step),
	)
}

func (o *observer) observeNodeCompleted(ctx context.Context, nodeID string, duration time.Duration) {
	if o.provider == nil {
		return
	}

	o.recordNodeMetrics(ctx, nodeID, nodeStatusCompleted, duration)
	o.provider.Debug(ctx, "node execution completed",
		observability.String(attrGraphNodeID, nodeID),
		observability.Duration(observability.AttrDuration, duration),
	)

	if nodeSpan := observability.SpanFromContext(ctx); nodeSpan != nil {
		nodeSpan.SetAttributes(observability.String(attrGraphNodeStatus, nodeStatusCompleted))
		nodeSpan.SetStatus(observability.StatusOK, "node completed")
		nodeSpan.End()
	}
}

func (o *observer) observeNodeFailed(ctx context.Context, nodeID string, nodeErr error, duration time.Duration) {
	if o.provider == nil {
		return
	}

	o.recordNodeMetrics(ctx, nodeID, nodeStatusFailed, duration)
	o.provider.Error(ctx, "node execution failed",
		observability.String(attrGraphNodeID, nodeID),
		observability.Error(nodeErr),
		observability.Duration(observability.AttrDuration, duration),
	)

	if nodeSpan := observability.SpanFromContext(ctx); nodeSpan != nil {
		nodeSpan.RecordError(nodeErr)
		nodeSpan.SetAttributes(observability.String(attrGraphNodeStatus, nodeStatusFailed))
		nodeSpan.SetStatus(observability.StatusError, "node failed")
		nodeSpan.End()
	}
}

func (o *observer) recordNodeMetrics(ctx context.Context, nodeID, status string, duration time.Duration) {
	o.provider.Histogram(metricGraphNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(attrGraphNodeID, nodeID),
	)
	o.provider.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(attrGraphNodeID, nodeID),
		observability.String(attrGraphNodeStatus, status),
	)
}

func (o *observer) observeRoute(ctx context.Context, from, routeKey string, destinations []string) {
	if o.provider == nil {
		return
	}

	o.provider.Debug(ctx, "conditional edge evaluated",
		observability.String(attrGraphNodeID, from),
		observability.String(attrGraphRoute, routeKey),
		observability.StringSlice(attrGraphActive, destinations),
	)
}

func (o *observer) observeCheckpointFailed(ctx context.Context, step int, err error) {
	if o.provider == nil {
		return
	}

	o.provider.Warn(ctx, "checkpoint write failed",
		observability.String(attrGraphRunID, o.runID),
		observability.Int(attrGraphStep, step),
		observability.Error(err),
	)
}

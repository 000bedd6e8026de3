// Package observability defines the tracing, metrics and logging interfaces
// used throughout deepresearch, together with the semantic-convention
// constants that keep attribute and metric names consistent.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into a single injectable dependency. The graph executor places
// the active [Provider] and [Span] on the context with [ContextWithObserver]
// and [ContextWithSpan]; steps and capability adapters retrieve them with
// [ObserverFromContext] and [SpanFromContext]. A nil provider means
// observability is disabled.
package observability

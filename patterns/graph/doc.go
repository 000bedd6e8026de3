// Package graph implements a cyclic state graph for orchestrating multi-step
// workflows. Nodes read an immutable snapshot of a shared state S and return
// a partial update U; a user-supplied reducer folds updates into the state.
//
// Execution proceeds in supersteps. Every node in the active set runs
// concurrently on the same snapshot, the executor waits for all of them, and
// their updates are merged in node declaration order, so the merged state
// never depends on which node finished first. The next active set is the
// union of the targets reached from the nodes that just ran: static edges
// always fire, conditional edges ask a [Router] for a route key and follow
// the destinations registered for it. Routing back to earlier nodes is
// allowed; [WithMaxSteps] bounds the total number of supersteps.
//
// The main entry points are [NewBuilder] to construct a graph, [Graph.Invoke]
// to run it to completion, and [Graph.Stream] to observe every superstep as
// it happens. Supply a [Checkpointer] with [WithCheckpointer] to persist the
// merged state after every superstep.
//
// Example:
//
//	g, err := graph.NewBuilder(reduce, graph.WithMaxSteps(10)).
//	    AddNode("search", search).
//	    AddNode("answer", answer).
//	    AddNode("compose", compose).
//	    AddEdge(graph.Start, "search").
//	    AddEdge(graph.Start, "answer").
//	    AddEdge("search", "compose").
//	    AddEdge("answer", "compose").
//	    AddConditionalEdges("compose", decide, map[string][]string{
//	        "again": {"search", "answer"},
//	        "done":  {graph.End},
//	    }).
//	    Build()
//
//	final, err := g.Invoke(ctx, initial)
package graph

// Package research implements the deep-research workflow on top of
// patterns/graph.
//
// A run fans out to two retrievers (search and answer), summarizes what they
// found, composes a cited report with a confidence score and loops back to
// retrieval while the confidence stays below the threshold and iterations
// remain. The accepted report is persisted, the recipient is optionally
// notified and the run is finalized.
//
// Steps never fail the graph for domain errors. A failing step returns an
// Update with StatusError, and the reducer keeps that status sticky, so every
// later step becomes a no-op and the policy routes to the cheapest exit.
// Workflow.Run therefore always returns a definitive RunState.
//
// Example:
//
//	workflow, err := research.New(research.Capabilities{
//	    Search:     exaClient.SearchRetriever(8),
//	    Answer:     exaClient.AnswerRetriever(),
//	    Summarizer: llm,
//	    Composer:   llm,
//	    Persister:  store,
//	    Notifier:   notifier,
//	})
//	if err != nil {
//	    return err
//	}
//	state := workflow.Run(ctx, research.Input{Question: "What is RISC-V?"})
//	fmt.Println(state.Status, state.DocURL)
package research

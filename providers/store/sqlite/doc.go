// Package sqlite stores research reports and run checkpoints in a SQLite
// database (pure Go driver, no cgo).
//
// A Store is a research.Persister, so accepted reports get a stable URL,
// and a graph.Checkpointer, so every superstep of a run can be inspected.
package sqlite

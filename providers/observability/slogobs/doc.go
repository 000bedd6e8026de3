// Package slogobs provides an observability.Provider backed by log/slog.
// Spans and metric observations are emitted as debug records, logs go through
// at the requested level, and counters are kept in memory so short-lived
// processes (the CLI, tests) can inspect them.
//
// Configure it with [WithFormat], [WithLevel], [WithOutput] and [WithLogger];
// without options the format and level come from DEEPRESEARCH_LOG_FORMAT and
// DEEPRESEARCH_LOG_LEVEL (falling back to LOG_FORMAT / LOG_LEVEL).
package slogobs

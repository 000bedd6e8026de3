// Package utils provides shared low-level helpers used by the capability
// adapters: a JSON POST round-trip with tracing events, response-body
// cleanup, string truncation and the generic [Ptr] helper.
package utils

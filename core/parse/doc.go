// Package parse recovers structured values from raw model output. Language
// models often wrap JSON in prose or markdown fences, emit single quotes or
// trailing commas, or echo a schema envelope instead of plain data, so
// [JSONAs] strips the wrapping, repairs the text with jsonrepair when strict
// decoding fails, and unwraps {"type": ..., "value": ...} envelopes as a last
// resort.
package parse

// Package openai implements research.Summarizer and research.Composer on the
// OpenAI chat completions API (or any compatible endpoint).
package openai

package openai

import (
	"fmt"
	"strings"

	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/research"
)

const (
	summarySnippetChars = 200
	summaryContentChars = 400
	composeSnippetChars = 180
)

const composeSystemPrompt = `You are a research assistant. Draft a markdown report with the sections Answer, Key Findings and Sources.
Cite the provided sources inline as [1], [2], ... using their numbers.
Rate how completely the sources answer the question with a confidence between 0 and 1.
Respond with a JSON object: {"draft": "<markdown report>", "confidence": <number>}.`

func summarizePrompt(question string, sources []research.Source, priorNotes string) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Extract the most relevant facts from these sources for the query: %q.\n\n", question)

	if priorNotes != "" {
		fmt.Fprintf(&builder, "Notes so far:\n%s\n\n", priorNotes)
	}

	builder.WriteString("Sources:\n")
	for index, source := range sources {
		fmt.Fprintf(&builder, "[%d] %s\nSnippet: %s\nContent: %s\n\n",
			index+1,
			source.Title,
			utils.Truncate(source.Snippet, summarySnippetChars),
			utils.Truncate(source.Content, summaryContentChars),
		)
	}

	builder.WriteString("Provide short bullet notes that the drafting step can rely on.")
	return builder.String()
}

func composePrompt(question, notes string, sources []research.Source) string {
	if notes == "" {
		notes = "N/A"
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Question: %s\n\nHelpful notes:\n%s\n\nSources:\n", question, notes)
	for index, source := range sources {
		fmt.Fprintf(&builder, "[%d] %s\nURL: %s\nKey snippet: %s\n\n",
			index+1,
			source.Title,
			source.URL,
			utils.Truncate(source.Snippet, composeSnippetChars),
		)
	}
	return strings.TrimRight(builder.String(), "\n")
}

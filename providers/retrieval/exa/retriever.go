package exa

import (
	"context"

	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/research"
)

const (
	defaultSourceTitle = "Untitled Source"
	answerSourceTitle  = "Exa Answer"
	snippetChars       = 200
	answerNoteChars    = 500
)

// SearchRetriever returns the primary retriever: a search with page text
// and highlights, at most numResults items (8 when numResults < 1).
func (c *Client) SearchRetriever(numResults int) research.Retriever {
	if numResults < 1 {
		numResults = research.DefaultSearchResults
	}

	return research.RetrieverFunc(func(ctx context.Context, query string) (research.Retrieval, error) {
		output, err := c.Search(ctx, SearchInput{
			Query:             query,
			NumResults:        numResults,
			IncludeText:       true,
			IncludeHighlights: true,
		})
		if err != nil {
			return research.Retrieval{}, err
		}

		items := toSources(output.Results, "")
		if len(items) > numResults {
			items = items[:numResults]
		}
		return research.Retrieval{Items: items}, nil
	})
}

// AnswerRetriever returns a retriever yielding the answer's citations as
// sources and the answer itself as notes. An answer without citations
// becomes a single source without URL.
func (c *Client) AnswerRetriever() research.Retriever {
	return research.RetrieverFunc(func(ctx context.Context, query string) (research.Retrieval, error) {
		output, err := c.Answer(ctx, AnswerInput{Query: query, IncludeText: true})
		if err != nil {
			return research.Retrieval{}, err
		}

		items := toSources(output.Citations, output.Answer)
		if output.Answer != "" && len(items) == 0 {
			items = append(items, research.Source{
				Title:   answerSourceTitle,
				Snippet: utils.Truncate(output.Answer, snippetChars),
				Content: output.Answer,
			})
		}

		retrieval := research.Retrieval{Items: items}
		if output.Answer != "" {
			retrieval.Notes = "Exa Answer: " + utils.Truncate(output.Answer, answerNoteChars)
		}
		return retrieval, nil
	})
}

// toSources maps results to sources, falling back to the answer text for
// missing snippets and content.
func toSources(results []Result, answer string) []research.Source {
	items := make([]research.Source, 0, len(results))
	for _, result := range results {
		items = append(items, research.Source{
			URL:     firstNonEmpty(result.URL, result.ID),
			Title:   firstNonEmpty(result.Title, defaultSourceTitle),
			Snippet: firstNonEmpty(firstHighlight(result), result.Text, utils.Truncate(answer, snippetChars)),
			Content: firstNonEmpty(result.Text, result.Summary, answer),
		})
	}
	return items
}

func firstHighlight(result Result) string {
	if len(result.Highlights) == 0 {
		return ""
	}
	return result.Highlights[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

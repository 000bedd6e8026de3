package exa

// SearchInput are the parameters of a /search request.
type SearchInput struct {
	Query string

	// Type is neural, auto (default), fast or deep.
	Type string

	// NumResults defaults to 10 and is capped at 100.
	NumResults int

	IncludeDomains     []string
	ExcludeDomains     []string
	StartPublishedDate string
	EndPublishedDate   string
	Category           string

	IncludeText       bool
	IncludeHighlights bool
}

// SearchOutput is the decoded /search response.
type SearchOutput struct {
	Results            []Result
	ResolvedSearchType string
	RequestID          string
}

// AnswerInput are the parameters of an /answer request.
type AnswerInput struct {
	Query       string
	IncludeText bool
}

// AnswerOutput is the decoded /answer response.
type AnswerOutput struct {
	Answer    string
	Citations []Result
	RequestID string
}

// Result is one document returned by search or cited by answer.
type Result struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Score         float64  `json:"score,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Text          string   `json:"text,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
	Summary       string   `json:"summary,omitempty"`
}

// === INTERNAL API TYPES ===

type searchRequest struct {
	Query              string          `json:"query"`
	Type               string          `json:"type"`
	NumResults         int             `json:"numResults"`
	IncludeDomains     []string        `json:"includeDomains,omitempty"`
	ExcludeDomains     []string        `json:"excludeDomains,omitempty"`
	StartPublishedDate string          `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string          `json:"endPublishedDate,omitempty"`
	Category           string          `json:"category,omitempty"`
	Contents           *searchContents `json:"contents,omitempty"`
}

type searchContents struct {
	Text       bool              `json:"text,omitempty"`
	Highlights *highlightOptions `json:"highlights,omitempty"`
}

type highlightOptions struct {
	NumSentences     int `json:"numSentences"`
	HighlightsPerURL int `json:"highlightsPerUrl"`
}

type searchResponse struct {
	Results            []Result `json:"results"`
	ResolvedSearchType string   `json:"resolvedSearchType,omitempty"`
	RequestID          string   `json:"requestId,omitempty"`
}

type answerRequest struct {
	Query    string          `json:"query"`
	Contents *searchContents `json:"contents,omitempty"`
}

type answerResponse struct {
	Answer    string   `json:"answer"`
	Citations []Result `json:"citations,omitempty"`
	Results   []Result `json:"results,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

// apiError is the error body returned by Exa.
type apiError struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

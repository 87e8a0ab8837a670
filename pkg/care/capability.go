package care

import "context"

// Query describes one knowledge search request.
type Query struct {
	Text  string
	Lang  Lang
	Topic string
	TopK  int
}

// Snippet is one ranked result returned by a knowledge searcher.
type Snippet struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"snippet"`
	Topic string  `json:"topic,omitempty"`
	Lang  Lang    `json:"lang,omitempty"`
}

// Searcher performs semantic search over an indexed knowledge base.
//
// Implementations return at most Query.TopK snippets in descending score
// order and degrade to an empty slice on any internal failure. The
// orchestrator treats "no results" and "search unavailable" identically, so
// the contract has no error return.
type Searcher interface {
	Search(ctx context.Context, query Query) []Snippet
}

// TranslateOptions selects the translation direction and output scrubbing.
type TranslateOptions struct {
	Source Lang
	Target Lang
	Safe   bool
}

// Translator translates text between the two supported languages.
//
// Translation is a best-effort enhancement: implementations return the input
// unchanged on any failure instead of surfacing an error.
type Translator interface {
	Translate(ctx context.Context, text string, opts TranslateOptions) string
}

// noSearch is the degraded searcher substituted when none is configured.
type noSearch struct{}

func (noSearch) Search(context.Context, Query) []Snippet { return nil }

// noTranslate is the identity translator substituted when none is configured.
type noTranslate struct{}

func (noTranslate) Translate(_ context.Context, text string, _ TranslateOptions) string {
	return text
}

package knowledge

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"carebot/pkg/care"
)

const (
	defaultTopK     = 3
	defaultMinScore = 0.2
)

// Index is an in-process semantic index over a snippet corpus.
//
// The corpus and its vectors are built once at startup and read-only
// afterwards, so Search is safe for unlimited concurrent callers. Search
// never returns an error: an embedding failure degrades to keyword-overlap
// scoring, and any other failure degrades to an empty result set.
type Index struct {
	entries  []indexEntry
	embedder Embedder
	minScore float64
	log      *slog.Logger
}

type indexEntry struct {
	doc    Document
	vector []float64
}

// NewIndex embeds every corpus document once and returns the built index.
func NewIndex(ctx context.Context, docs []Document, embedder Embedder, minScore float64, log *slog.Logger) (*Index, error) {
	if log == nil {
		log = slog.Default()
	}
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	index := &Index{
		embedder: embedder,
		minScore: minScore,
		log:      log.With("component", "knowledge.index"),
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	var vectors [][]float64
	if embedder != nil && len(texts) > 0 {
		var err error
		vectors, err = embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
	}

	index.entries = make([]indexEntry, len(docs))
	for i, doc := range docs {
		entry := indexEntry{doc: doc}
		if i < len(vectors) {
			entry.vector = vectors[i]
		}
		index.entries[i] = entry
	}

	index.log.Info("Knowledge index built", "documents", len(docs))
	return index, nil
}

// Search implements care.Searcher.
func (idx *Index) Search(ctx context.Context, query care.Query) []care.Snippet {
	if idx == nil || len(idx.entries) == 0 {
		return nil
	}
	if strings.TrimSpace(query.Text) == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	topK := query.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	scored := idx.scoreSemantic(ctx, query)
	if scored == nil {
		scored = idx.scoreKeywords(query)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	return scored
}

// scoreSemantic ranks by cosine similarity against the query embedding.
// A nil return means semantic scoring was unavailable, not "no results".
func (idx *Index) scoreSemantic(ctx context.Context, query care.Query) []care.Snippet {
	if idx.embedder == nil {
		return nil
	}

	vectors, err := idx.embedder.Embed(ctx, []string{query.Text})
	if err != nil || len(vectors) != 1 {
		idx.log.Warn("Query embedding unavailable, degrading to keyword scoring", "error", err)
		return nil
	}
	queryVector := vectors[0]

	results := make([]care.Snippet, 0, len(idx.entries))
	for _, entry := range idx.entries {
		if !entry.matches(query.Topic) || entry.vector == nil {
			continue
		}
		score := cosineSimilarity(queryVector, entry.vector)
		if score < idx.minScore {
			continue
		}
		results = append(results, entry.snippet(score))
	}

	return results
}

// scoreKeywords is the degraded scorer: fraction of query tokens present in
// the document text.
func (idx *Index) scoreKeywords(query care.Query) []care.Snippet {
	tokens := tokenize(query.Text)
	if len(tokens) == 0 {
		return nil
	}

	results := make([]care.Snippet, 0, len(idx.entries))
	for _, entry := range idx.entries {
		if !entry.matches(query.Topic) {
			continue
		}

		lowered := strings.ToLower(entry.doc.Text)
		matched := 0
		for _, token := range tokens {
			if strings.Contains(lowered, token) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		results = append(results, entry.snippet(float64(matched)/float64(len(tokens))))
	}

	return results
}

func (e indexEntry) matches(topic string) bool {
	return topic == "" || e.doc.Topic == "" || e.doc.Topic == topic
}

func (e indexEntry) snippet(score float64) care.Snippet {
	return care.Snippet{
		ID:    e.doc.ID,
		Score: score,
		Text:  e.doc.Text,
		Topic: e.doc.Topic,
		Lang:  e.doc.Lang,
	}
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// tokenize lowercases and splits on non-letter/digit runes, dropping short
// stopword-ish tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 3 {
			continue
		}
		tokens = append(tokens, field)
	}

	return tokens
}

package search

import (
	"context"
	"sort"

	"github.com/localfinderx/localfinderx/internal/tokenize"
)

// RerankResult is one reranked document: its original position in the
// documents slice passed to Rerank, and the relevance score assigned.
type RerankResult struct {
	Index int
	Score float64
}

// Reranker refines a candidate set's order beyond what RRF fusion alone
// produces. ASSIST mode turns this on; FAST and SMART leave it off.
type Reranker interface {
	// Rerank scores documents against query and returns them sorted by
	// score descending.
	Rerank(ctx context.Context, query string, documents []string) []RerankResult

	// Close releases any resources.
	Close() error
}

// LocalReranker reorders candidates by lexical overlap between the query
// tokens and each document's tokens, entirely in-process — the engine
// performs no network I/O, so a hosted cross-encoder service is not an
// option here the way it might be for a connected deployment.
type LocalReranker struct {
	tokenizer *tokenize.Tokenizer
}

// NewLocalReranker builds a LocalReranker using tokenizer to tokenize
// both the query and each candidate document.
func NewLocalReranker(tokenizer *tokenize.Tokenizer) *LocalReranker {
	return &LocalReranker{tokenizer: tokenizer}
}

// Rerank scores each document by the Jaccard overlap of its tokens with
// the query's tokens. Ties keep the documents' original relative order
// (a stable sort), so reranking never scrambles equally-relevant results.
func (r *LocalReranker) Rerank(_ context.Context, query string, documents []string) []RerankResult {
	queryTokens := tokenSet(r.tokenizer.Tokenize(query))

	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		docTokens := tokenSet(r.tokenizer.Tokenize(doc))
		results[i] = RerankResult{Index: i, Score: jaccard(queryTokens, docTokens)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Close is a no-op: LocalReranker holds no resources of its own beyond
// the shared tokenizer.
func (r *LocalReranker) Close() error {
	return nil
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

var _ Reranker = (*LocalReranker)(nil)

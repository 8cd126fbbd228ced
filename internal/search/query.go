package search

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/localfinderx/localfinderx/internal/embed"
	"github.com/localfinderx/localfinderx/internal/tokenize"
	"github.com/localfinderx/localfinderx/internal/xerrors"
)

// MaxQueryRunes is the accepted query length; anything longer is
// truncated from the end rather than rejected.
const MaxQueryRunes = 512

// QueryProcessor turns raw query text into the ProcessedQuery the
// retrievers need: a bounded-length string, its embedding, and its
// tokens.
type QueryProcessor struct {
	embedder embed.Embedder
	tokenizer *tokenize.Tokenizer
}

// NewQueryProcessor builds a QueryProcessor. embedder may be nil (or
// unavailable) for a metadata-only install — Process then returns a nil
// Embedding and the caller degrades to lexical-only search.
func NewQueryProcessor(embedder embed.Embedder, tokenizer *tokenize.Tokenizer) *QueryProcessor {
	return &QueryProcessor{embedder: embedder, tokenizer: tokenizer}
}

// Process validates and prepares raw for retrieval. An empty or
// whitespace-only query is refused with a QueryError; anything over
// MaxQueryRunes is truncated, not rejected.
func (p *QueryProcessor) Process(ctx context.Context, raw string) (ProcessedQuery, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ProcessedQuery{}, xerrors.New(xerrors.ErrCodeQueryEmpty, "search query is empty", nil).
			WithSuggestion("Enter a word or phrase to search for.")
	}

	text := truncateRunes(raw, MaxQueryRunes)

	pq := ProcessedQuery{
		Text: text,
		Tokens: p.tokenizer.Tokenize(text),
	}

	if p.embedder == nil || !p.embedder.Available(ctx) {
		return pq, nil
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		slog.Warn("query_embedding_failed", slog.String("error", err.Error()))
		return pq, nil
	}
	pq.Embedding = vec
	return pq, nil
}

// truncateRunes cuts s down to at most n runes, leaving multi-byte
// characters intact.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

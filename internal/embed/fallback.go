package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/localfinderx/localfinderx/internal/tokenize"
)

// Weights for the two hashed signals combined into a fallback vector.
const (
	fallbackTokenWeight = 0.7
	fallbackNgramWeight = 0.3
	fallbackNgramSize = 3
)

// FallbackEmbedder produces deterministic, hash-based vectors without an
// ONNX model or tokenizer file. It has no semantic quality worth trusting
// for real retrieval, but it is dimension-compatible with ONNXEmbedder
// (onnxDimensions) so it is useful in two places: as the embedder in
// tests that would otherwise need a bundled model file, and as an
// explicit `--offline` opt-out for a user who wants lexical-only
// indexing without downloading or shipping model weights at all. It must
// never be silently substituted for a failed ONNXEmbedder load — a
// wholesale model-load failure downgrades the whole file to
// metadata-only rather than degrading search quality invisibly. After such a
// failure openSession keeps a closed instance only as a placeholder: it
// reports Available() == false and embeds nothing.
type FallbackEmbedder struct {
	mu sync.RWMutex
	closed bool
	tokenizer *tokenize.Tokenizer
}

// NewFallbackEmbedder creates a fallback embedder.
func NewFallbackEmbedder() *FallbackEmbedder {
	return &FallbackEmbedder{tokenizer: tokenize.New(nil)}
}

// Embed generates embedding for a single text.
func (e *FallbackEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, onnxDimensions), nil
	}
	return normalizeVector(e.generateVector(trimmed)), nil
}

func (e *FallbackEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, onnxDimensions)

	for _, token := range e.tokenizer.Tokenize(text) {
		vector[hashToIndex(token, onnxDimensions)] += fallbackTokenWeight
	}

	normalized := normalizeForNgrams(text)
	for _, ngram := range extractNgrams(normalized, fallbackNgramSize) {
		vector[hashToIndex(ngram, onnxDimensions)] += fallbackNgramWeight
	}

	return vector
}

// normalizeForNgrams lowercases and strips everything but letters/digits
// so n-grams are stable across punctuation and casing variation.
func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractNgrams extracts n-character sliding windows.
func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// hashToIndex maps a string to a vector index via FNV-64.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch generates embeddings for multiple texts.
func (e *FallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *FallbackEmbedder) Dimensions() int { return onnxDimensions }

// ModelName returns the model identifier.
func (e *FallbackEmbedder) ModelName() string { return "fallback-hash" }

// Available reports whether the embedder is open (always true until Close).
func (e *FallbackEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *FallbackEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

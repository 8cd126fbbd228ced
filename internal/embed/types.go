// Package embed implements the Embedder component: a
// sentence-embedding wrapper producing a normalized vector of fixed
// dimension per chunk, with CUDA → Metal → CPU device auto-selection.
// The engine runs fully offline, so the embedder is an in-process ONNX
// Runtime session rather than a call to a locally-hosted HTTP service —
// there is no network hop to retry or time out on.
package embed

import (
	"context"
	"math"
)

// Batch size bounds for EmbedBatch callers. internal/index clamps
// config.PerformanceSettings.EmbedBatchSize into this range.
const (
	MinBatchSize = 1
	MaxBatchSize = 256
	DefaultBatchSize = 32
)

// Embedder generates vector embeddings for text. Embed and EmbedBatch
// return vectors of Dimensions() length, L2-normalized.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector length this embedder produces.
	Dimensions() int

	// ModelName returns the model identifier. CachedEmbedder keys its
	// cache on it; it is not recorded alongside the index.
	ModelName() string

	// Available reports whether the embedder is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases the underlying session and tokenizer.
	Close() error
}

// normalizeVector scales v to unit L2 length. A zero vector is returned
// unchanged since it has no direction to normalize.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

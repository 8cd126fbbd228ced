package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func TestFallbackEmbedder_Embed_ReturnsCorrectDimensions(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "quarterly budget review notes")
	require.NoError(t, err)
	assert.Len(t, embedding, onnxDimensions)
}

func TestFallbackEmbedder_Embed_VectorIsNormalized(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "quarterly budget review notes")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vectorMagnitude(embedding), 0.001)
}

func TestFallbackEmbedder_Embed_IsDeterministic(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()

	text := "annual performance review for the engineering team"
	emb1, err1 := embedder.Embed(context.Background(), text)
	emb2, err2 := embedder.Embed(context.Background(), text)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, emb1, emb2)
}

func TestFallbackEmbedder_SimilarText_HasHigherSimilarity(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()

	budget := "the quarterly budget increased by ten percent"
	spending := "spending this quarter rose by about ten percent"
	recipe := "bake at 350 degrees for twenty five minutes"

	budgetEmb, _ := embedder.Embed(context.Background(), budget)
	spendingEmb, _ := embedder.Embed(context.Background(), spending)
	recipeEmb, _ := embedder.Embed(context.Background(), recipe)

	budgetSpendingSim := cosineSimilarity(budgetEmb, spendingEmb)
	budgetRecipeSim := cosineSimilarity(budgetEmb, recipeEmb)
	assert.Greater(t, budgetSpendingSim, budgetRecipeSim)
}

func TestFallbackEmbedder_ModelNameAndDimensions(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, "fallback-hash", embedder.ModelName())
	assert.Equal(t, onnxDimensions, embedder.Dimensions())
}

func TestFallbackEmbedder_Embed_EmptyInput_ReturnsZeroVector(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "   \t\n  ")
	require.NoError(t, err)
	assert.Len(t, embedding, onnxDimensions)
	for _, v := range embedding {
		assert.Equal(t, float32(0), v)
	}
}

func TestFallbackEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()
	var _ Embedder = embedder
}

func TestFallbackEmbedder_EmbedBatch_ReturnsCorrectCount(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()

	texts := []string{"invoice total due", "meeting agenda for friday", "project status update"}
	embeddings, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, embeddings, 3)
	for _, emb := range embeddings {
		assert.Len(t, emb, onnxDimensions)
	}
}

func TestFallbackEmbedder_EmbedBatch_EmptyList_ReturnsEmpty(t *testing.T) {
	embedder := NewFallbackEmbedder()
	defer func() { _ = embedder.Close() }()

	embeddings, err := embedder.EmbedBatch(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, embeddings)
}

func TestFallbackEmbedder_Embed_AfterClose_ReturnsError(t *testing.T) {
	embedder := NewFallbackEmbedder()
	_ = embedder.Close()

	_, err := embedder.Embed(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestFallbackEmbedder_Close_IsIdempotent(t *testing.T) {
	embedder := NewFallbackEmbedder()
	assert.NoError(t, embedder.Close())
	assert.NoError(t, embedder.Close())
}

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfinderx/localfinderx/internal/store"
)

func TestDenseRetriever_NilVectorsDegradesEmpty(t *testing.T) {
	r := NewDenseRetriever(nil)
	hits := r.Search(context.Background(), []float32{1, 0}, 5)
	assert.Empty(t, hits)
}

func TestDenseRetriever_EmptyQueryVecDegradesEmpty(t *testing.T) {
	vectors := store.NewHNSWVectorStore(store.DefaultVectorStoreConfig(2))
	r := NewDenseRetriever(vectors)
	hits := r.Search(context.Background(), nil, 5)
	assert.Empty(t, hits)
}

func TestDenseRetriever_ReturnsHits(t *testing.T) {
	vectors := store.NewHNSWVectorStore(store.DefaultVectorStoreConfig(2))
	require.NoError(t, vectors.InsertMany(context.Background(), []store.VectorRow{
		{ChunkID: "c1", FileID: "f1", Vector: []float32{1, 0}, ContentIndexed: true},
	}))

	r := NewDenseRetriever(vectors)
	hits := r.Search(context.Background(), []float32{1, 0}, 5)

	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestLexicalRetriever_NilStoreDegradesEmpty(t *testing.T) {
	r := NewLexicalRetriever(nil)
	hits := r.Search([]string{"budget"}, 5)
	assert.Empty(t, hits)
}

func TestLexicalRetriever_EmptyTokensDegradesEmpty(t *testing.T) {
	lexical, err := store.NewLexicalStore()
	require.NoError(t, err)
	defer lexical.Close()

	r := NewLexicalRetriever(lexical)
	hits := r.Search(nil, 5)
	assert.Empty(t, hits)
}

func TestLexicalRetriever_ReturnsHits(t *testing.T) {
	lexical, err := store.NewLexicalStore()
	require.NoError(t, err)
	defer lexical.Close()
	require.NoError(t, lexical.IndexChunk("c1", "f1", []string{"budget", "review"}))

	r := NewLexicalRetriever(lexical)
	hits := r.Search([]string{"budget"}, 5)

	require.Len(t, hits, 1)
	assert.Equal(t, "chunk:c1", hits[0].DocID)
}

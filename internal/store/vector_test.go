package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVectorRow(chunkID, fileID string, v []float32) VectorRow {
	return VectorRow{ChunkID: chunkID, FileID: fileID, ChunkIndex: 0, Vector: v, ContentIndexed: true}
}

func TestHNSWVectorStore_InsertAndSearch(t *testing.T) {
	// Given: an empty 3-dimensional store
	s := NewHNSWVectorStore(DefaultVectorStoreConfig(3))

	// And: two distinct chunk vectors, one close to the query and one far
	err := s.InsertMany(context.Background(), []VectorRow{
		testVectorRow("c1", "f1", []float32{1, 0, 0}),
		testVectorRow("c2", "f2", []float32{0, 1, 0}),
	})
	require.NoError(t, err)

	// When: searching for a vector closest to c1
	hits, err := s.Search(context.Background(), []float32{1, 0, 0}, 1, VectorFilter{})

	// Then: c1 is returned first
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.Equal(t, "f1", hits[0].FileID)
}

func TestHNSWVectorStore_DimensionMismatch(t *testing.T) {
	s := NewHNSWVectorStore(DefaultVectorStoreConfig(3))

	err := s.InsertMany(context.Background(), []VectorRow{testVectorRow("c1", "f1", []float32{1, 2})})
	assert.Error(t, err)

	assert.NoError(t, s.InsertMany(context.Background(), nil))
}

func TestHNSWVectorStore_SearchDimensionMismatch(t *testing.T) {
	s := NewHNSWVectorStore(DefaultVectorStoreConfig(3))
	_, err := s.Search(context.Background(), []float32{1, 2}, 5, VectorFilter{})
	assert.Error(t, err)
}

func TestHNSWVectorStore_DeleteByFileID(t *testing.T) {
	s := NewHNSWVectorStore(DefaultVectorStoreConfig(2))
	require.NoError(t, s.InsertMany(context.Background(), []VectorRow{
		testVectorRow("c1", "f1", []float32{1, 0}),
		testVectorRow("c2", "f1", []float32{0, 1}),
		testVectorRow("c3", "f2", []float32{1, 1}),
	}))
	require.Equal(t, 3, s.Count())

	require.NoError(t, s.DeleteByFileID(context.Background(), "f1"))
	assert.Equal(t, 1, s.Count())

	hits, err := s.Search(context.Background(), []float32{1, 1}, 10, VectorFilter{})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "f1", h.FileID)
	}
}

func TestHNSWVectorStore_ReinsertReplaces(t *testing.T) {
	s := NewHNSWVectorStore(DefaultVectorStoreConfig(2))
	require.NoError(t, s.InsertMany(context.Background(), []VectorRow{testVectorRow("c1", "f1", []float32{1, 0})}))
	require.NoError(t, s.InsertMany(context.Background(), []VectorRow{testVectorRow("c1", "f1", []float32{0, 1})}))

	assert.Equal(t, 1, s.Count())
}

func TestHNSWVectorStore_SearchEmptyStore(t *testing.T) {
	s := NewHNSWVectorStore(DefaultVectorStoreConfig(2))
	hits, err := s.Search(context.Background(), []float32{1, 0}, 5, VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHNSWVectorStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.gob")

	s1 := NewHNSWVectorStore(DefaultVectorStoreConfig(2))
	require.NoError(t, s1.InsertMany(context.Background(), []VectorRow{
		testVectorRow("c1", "f1", []float32{1, 0}),
	}))
	require.NoError(t, s1.Save(path))
	require.NoError(t, s1.Close())

	s2 := NewHNSWVectorStore(DefaultVectorStoreConfig(2))
	require.NoError(t, s2.Load(path))
	assert.Equal(t, 1, s2.Count())

	hits, err := s2.Search(context.Background(), []float32{1, 0}, 1, VectorFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
}

func TestHNSWVectorStore_CloseThenOperate(t *testing.T) {
	s := NewHNSWVectorStore(DefaultVectorStoreConfig(2))
	require.NoError(t, s.Close())

	err := s.InsertMany(context.Background(), []VectorRow{testVectorRow("c1", "f1", []float32{1, 0})})
	assert.Error(t, err)

	_, err = s.Search(context.Background(), []float32{1, 0}, 1, VectorFilter{})
	assert.Error(t, err)
}

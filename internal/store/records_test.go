package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfinderx/localfinderx/internal/schema"
)

func newTestRecordStore(t *testing.T) *RecordStore {
	t.Helper()
	s, err := NewRecordStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testFileRecord(id, path string, contentIndexed bool) schema.FileRecord {
	rec := schema.NewFileRecord(id, path, "notes.md", ".md", 1024, 1700000000, 1700000000,
		schema.Fingerprint{SizeBytes: 1024, ModifiedAt: 1700000000, Hash: "abc123"})
	rec.ContentIndexed = contentIndexed
	return *rec
}

func TestRecordStore_SaveAndGetFile(t *testing.T) {
	// Given: a fresh store
	s := newTestRecordStore(t)
	rec := testFileRecord("f1", "/home/user/notes.md", true)

	// When: saving and re-reading the file
	require.NoError(t, s.SaveFile(context.Background(), rec))
	got, ok, err := s.GetFile(context.Background(), "f1")

	// Then: the round-tripped record matches
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Path, got.Path)
	assert.Equal(t, rec.Fingerprint.Hash, got.Fingerprint.Hash)
	assert.True(t, got.ContentIndexed)
}

func TestRecordStore_GetFile_NotFound(t *testing.T) {
	s := newTestRecordStore(t)
	_, ok, err := s.GetFile(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordStore_SaveFile_UpsertReplaces(t *testing.T) {
	s := newTestRecordStore(t)
	rec := testFileRecord("f1", "/home/user/notes.md", false)
	require.NoError(t, s.SaveFile(context.Background(), rec))

	rec.ContentIndexed = true
	rec.IndexStats.ChunkCount = 3
	require.NoError(t, s.SaveFile(context.Background(), rec))

	got, ok, err := s.GetFile(context.Background(), "f1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.ContentIndexed)
	assert.Equal(t, 3, got.IndexStats.ChunkCount)
}

func TestRecordStore_GetFileByPath(t *testing.T) {
	s := newTestRecordStore(t)
	rec := testFileRecord("f1", "/home/user/notes.md", true)
	require.NoError(t, s.SaveFile(context.Background(), rec))

	got, ok, err := s.GetFileByPath(context.Background(), "/home/user/notes.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f1", got.FileID)
}

func TestRecordStore_SaveChunksAndGetByFile(t *testing.T) {
	s := newTestRecordStore(t)
	require.NoError(t, s.SaveFile(context.Background(), testFileRecord("f1", "/a/b.md", true)))

	chunks := []schema.ChunkRecord{
		{ChunkID: "c1", FileID: "f1", ChunkIndex: 0, Text: "first", Tokens: []string{"first"}, ExtractionType: schema.ExtractionMD, Metadata: schema.ChunkMetadata{HeaderPath: []string{"Intro"}}},
		{ChunkID: "c2", FileID: "f1", ChunkIndex: 1, Text: "second", Tokens: []string{"second"}, ExtractionType: schema.ExtractionMD, Metadata: schema.ChunkMetadata{HeaderPath: []string{"Body"}}},
	}
	require.NoError(t, s.SaveChunks(context.Background(), "f1", chunks))

	got, err := s.GetChunksByFile(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ChunkID)
	assert.Equal(t, "c2", got[1].ChunkID)
	assert.Equal(t, []string{"Body"}, got[1].Metadata.HeaderPath)
	assert.Nil(t, got[0].Embedding)
}

func TestRecordStore_SaveChunks_ReplacesPriorSet(t *testing.T) {
	s := newTestRecordStore(t)
	require.NoError(t, s.SaveFile(context.Background(), testFileRecord("f1", "/a/b.md", true)))

	require.NoError(t, s.SaveChunks(context.Background(), "f1", []schema.ChunkRecord{
		{ChunkID: "c1", FileID: "f1", ChunkIndex: 0, Text: "old", ExtractionType: schema.ExtractionMD},
	}))
	require.NoError(t, s.SaveChunks(context.Background(), "f1", []schema.ChunkRecord{
		{ChunkID: "c2", FileID: "f1", ChunkIndex: 0, Text: "new", ExtractionType: schema.ExtractionMD},
	}))

	got, err := s.GetChunksByFile(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ChunkID)
}

func TestRecordStore_GetChunksByID(t *testing.T) {
	s := newTestRecordStore(t)
	require.NoError(t, s.SaveFile(context.Background(), testFileRecord("f1", "/a/b.md", true)))
	require.NoError(t, s.SaveChunks(context.Background(), "f1", []schema.ChunkRecord{
		{ChunkID: "c1", FileID: "f1", ChunkIndex: 0, Text: "first", ExtractionType: schema.ExtractionMD},
		{ChunkID: "c2", FileID: "f1", ChunkIndex: 1, Text: "second", ExtractionType: schema.ExtractionMD},
	}))

	got, err := s.GetChunksByID(context.Background(), []string{"c2", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Text)
}

func TestRecordStore_DeleteFile_RemovesChunksToo(t *testing.T) {
	s := newTestRecordStore(t)
	require.NoError(t, s.SaveFile(context.Background(), testFileRecord("f1", "/a/b.md", true)))
	require.NoError(t, s.SaveChunks(context.Background(), "f1", []schema.ChunkRecord{
		{ChunkID: "c1", FileID: "f1", ChunkIndex: 0, Text: "first", ExtractionType: schema.ExtractionMD},
	}))

	require.NoError(t, s.DeleteFile(context.Background(), "f1"))

	_, ok, err := s.GetFile(context.Background(), "f1")
	require.NoError(t, err)
	assert.False(t, ok)

	chunks, err := s.GetChunksByFile(context.Background(), "f1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRecordStore_DeleteChunksByFile_KeepsFileRow(t *testing.T) {
	s := newTestRecordStore(t)
	require.NoError(t, s.SaveFile(context.Background(), testFileRecord("f1", "/a/b.md", true)))
	require.NoError(t, s.SaveChunks(context.Background(), "f1", []schema.ChunkRecord{
		{ChunkID: "c1", FileID: "f1", ChunkIndex: 0, Text: "first", ExtractionType: schema.ExtractionMD},
	}))

	require.NoError(t, s.DeleteChunksByFile(context.Background(), "f1"))

	_, ok, err := s.GetFile(context.Background(), "f1")
	require.NoError(t, err)
	assert.True(t, ok)

	chunks, err := s.GetChunksByFile(context.Background(), "f1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRecordStore_Stats(t *testing.T) {
	s := newTestRecordStore(t)
	require.NoError(t, s.SaveFile(context.Background(), testFileRecord("f1", "/a/b.md", true)))
	require.NoError(t, s.SaveFile(context.Background(), testFileRecord("f2", "/a/c.md", false)))
	require.NoError(t, s.SaveChunks(context.Background(), "f1", []schema.ChunkRecord{
		{ChunkID: "c1", FileID: "f1", ChunkIndex: 0, Text: "x", ExtractionType: schema.ExtractionMD},
		{ChunkID: "c2", FileID: "f1", ChunkIndex: 1, Text: "y", ExtractionType: schema.ExtractionMD},
	}))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.FileCount)
	assert.Equal(t, 1, st.ContentIndexedCount)
	assert.Equal(t, 2, st.ChunkCount)
}

func TestRecordStore_CloseThenOperate(t *testing.T) {
	s, err := NewRecordStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	err = s.SaveFile(context.Background(), testFileRecord("f1", "/a/b.md", true))
	assert.Error(t, err)
}

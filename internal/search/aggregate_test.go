package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfinderx/localfinderx/internal/schema"
)

type fakeRecordReader struct {
	files  map[string]schema.FileRecord
	chunks map[string]schema.ChunkRecord
	err    error
}

func (f *fakeRecordReader) GetFile(_ context.Context, fileID string) (schema.FileRecord, bool, error) {
	if f.err != nil {
		return schema.FileRecord{}, false, f.err
	}
	rec, ok := f.files[fileID]
	return rec, ok, nil
}

func (f *fakeRecordReader) GetChunksByID(_ context.Context, chunkIDs []string) ([]schema.ChunkRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]schema.ChunkRecord, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		if c, ok := f.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestFileScoreFromPool_SingleChunk(t *testing.T) {
	pool := []chunkScore{{score: 0.5}}
	// max=0.5, mean(top3)=0.5 -> 0.5 + 0.2*0.5 = 0.6
	assert.InDelta(t, 0.6, fileScoreFromPool(pool), 1e-9)
}

func TestFileScoreFromPool_ThreeChunks(t *testing.T) {
	pool := []chunkScore{{score: 0.6}, {score: 0.3}, {score: 0.3}}
	// max=0.6, mean=0.4 -> 0.6 + 0.2*0.4 = 0.68
	assert.InDelta(t, 0.68, fileScoreFromPool(pool), 1e-9)
}

func TestFileScoreFromPool_MoreThanThreeChunks_OnlyTopThreeAverage(t *testing.T) {
	pool := []chunkScore{{score: 0.9}, {score: 0.6}, {score: 0.3}, {score: 0.01}}
	// top3 mean = (0.9+0.6+0.3)/3 = 0.6 -> 0.9 + 0.2*0.6 = 1.02
	assert.InDelta(t, 1.02, fileScoreFromPool(pool), 1e-9)
}

func TestFileScoreFromPool_Empty(t *testing.T) {
	assert.Equal(t, 0.0, fileScoreFromPool(nil))
}

func TestAggregate_MetadataOnlyFileDecayed(t *testing.T) {
	records := &fakeRecordReader{
		files: map[string]schema.FileRecord{
			"f1": {FileID: "f1", ContentIndexed: false},
		},
	}
	fused := map[string]*fusedFile{
		"f1": {fileID: "f1", lexicalBestRank: 1, pool: []chunkScore{{fileID: "f1", score: 1.0}}},
	}

	out := aggregate(context.Background(), records, fused)

	require.Len(t, out, 1)
	assert.InDelta(t, fileScoreFromPool(fused["f1"].pool)*MetadataOnlyDecay, out[0].finalScore, 1e-9)
}

func TestAggregate_ContentIndexedFileNotDecayed(t *testing.T) {
	records := &fakeRecordReader{
		files: map[string]schema.FileRecord{
			"f1": {FileID: "f1", ContentIndexed: true},
		},
	}
	fused := map[string]*fusedFile{
		"f1": {fileID: "f1", denseBestRank: 1, pool: []chunkScore{{fileID: "f1", score: 1.0}}},
	}

	out := aggregate(context.Background(), records, fused)

	require.Len(t, out, 1)
	assert.InDelta(t, fileScoreFromPool(fused["f1"].pool), out[0].finalScore, 1e-9)
}

func TestAggregate_SkipsFileRecordNotFound(t *testing.T) {
	records := &fakeRecordReader{files: map[string]schema.FileRecord{}}
	fused := map[string]*fusedFile{"f1": {fileID: "f1"}}

	out := aggregate(context.Background(), records, fused)

	assert.Empty(t, out)
}

func TestSortByFinalScore_DescendingWithTieBreak(t *testing.T) {
	files := []aggregatedFile{
		{record: schema.FileRecord{FileID: "b"}, finalScore: 1.0},
		{record: schema.FileRecord{FileID: "a"}, finalScore: 1.0},
		{record: schema.FileRecord{FileID: "c"}, finalScore: 2.0},
	}

	sortByFinalScore(files)

	assert.Equal(t, []string{"c", "a", "b"}, []string{
		files[0].record.FileID, files[1].record.FileID, files[2].record.FileID,
	})
}

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfinderx/localfinderx/internal/config"
	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/store"
)

type engineFixture struct {
	engine  *Engine
	vectors *store.HNSWVectorStore
	lexical *store.LexicalStore
	records *fakeRecordReader
}

func newEngineFixture(t *testing.T, reranker Reranker) *engineFixture {
	t.Helper()

	vectors := store.NewHNSWVectorStore(store.DefaultVectorStoreConfig(2))
	lexical, err := store.NewLexicalStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = lexical.Close() })

	records := &fakeRecordReader{
		files:  map[string]schema.FileRecord{},
		chunks: map[string]schema.ChunkRecord{},
	}

	eng := NewEngine(EngineDeps{
		QueryProcessor: NewQueryProcessor(nil, newTestTokenizer()),
		Dense:          NewDenseRetriever(vectors),
		Lexical:        NewLexicalRetriever(lexical),
		Records:        records,
		Reranker:       reranker,
	})

	return &engineFixture{engine: eng, vectors: vectors, lexical: lexical, records: records}
}

func (f *engineFixture) addContentIndexedFile(t *testing.T, fileID, text string, tokens []string) {
	t.Helper()
	f.records.files[fileID] = schema.FileRecord{FileID: fileID, Filename: fileID + ".md", Path: "/" + fileID, ContentIndexed: true}
	chunkID := fileID + "-c1"
	f.records.chunks[chunkID] = schema.ChunkRecord{ChunkID: chunkID, FileID: fileID, Text: text, Tokens: tokens, Metadata: schema.ChunkMetadata{HeaderPath: []string{"Intro"}}}
	require.NoError(t, f.lexical.IndexChunk(chunkID, fileID, tokens))
	require.NoError(t, f.lexical.IndexFile(fileID, tokens))
}

func (f *engineFixture) addMetadataOnlyFile(t *testing.T, fileID string, tokens []string) {
	t.Helper()
	f.records.files[fileID] = schema.FileRecord{FileID: fileID, Filename: fileID + ".bin", Path: "/" + fileID, ContentIndexed: false}
	require.NoError(t, f.lexical.IndexFile(fileID, tokens))
}

func TestEngine_Search_EmptyQueryReturnsError(t *testing.T) {
	f := newEngineFixture(t, nil)

	resp := f.engine.Search(context.Background(), "   ", config.ModeSmart, Filters{})

	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Results)
}

func TestEngine_Search_LexicalOnlyMatch(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addContentIndexedFile(t, "f1", "quarterly budget review notes", []string{"quarterly", "budget", "review", "notes"})

	resp := f.engine.Search(context.Background(), "budget", config.ModeSmart, Filters{})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "f1", resp.Results[0].FileID)
	assert.Equal(t, schema.MatchLexical, resp.Results[0].MatchType)
	assert.NotEmpty(t, resp.Results[0].Evidences)
}

func TestEngine_Search_MetadataOnlyFileHasNoEvidence(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addMetadataOnlyFile(t, "f2", []string{"vacation", "budget"})

	resp := f.engine.Search(context.Background(), "budget", config.ModeSmart, Filters{})

	require.Len(t, resp.Results, 1)
	assert.False(t, resp.Results[0].ContentAvailable)
	assert.Empty(t, resp.Results[0].Evidences)
}

func TestEngine_Search_MetadataOnlyRankedBelowContentMatchAtEqualFusion(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addContentIndexedFile(t, "content", "budget plan", []string{"budget", "plan"})
	f.addMetadataOnlyFile(t, "metaonly", []string{"budget"})

	resp := f.engine.Search(context.Background(), "budget", config.ModeSmart, Filters{})

	require.Len(t, resp.Results, 2)
	// content-indexed file's score isn't decayed, metadata-only file's is,
	// so with comparable fused contributions the content file should not
	// rank below the metadata-only one.
	var contentScore, metaScore float64
	for _, r := range resp.Results {
		if r.FileID == "content" {
			contentScore = r.FinalFileScore
		} else {
			metaScore = r.FinalFileScore
		}
	}
	assert.Greater(t, contentScore, metaScore)
}

func TestEngine_Search_BothRetrieversEmpty_ReturnsEmptyResultsNoError(t *testing.T) {
	f := newEngineFixture(t, nil)

	resp := f.engine.Search(context.Background(), "nothing matches anything", config.ModeSmart, Filters{})

	assert.Empty(t, resp.Error)
	assert.Empty(t, resp.Results)
}

func TestEngine_Search_FiltersExcludeByExtension(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addContentIndexedFile(t, "f1", "budget review", []string{"budget", "review"})
	f.records.files["f1"] = schema.FileRecord{FileID: "f1", Filename: "f1.md", Path: "/f1", ContentIndexed: true, Extension: ".md"}

	resp := f.engine.Search(context.Background(), "budget", config.ModeSmart, Filters{Extensions: []string{".pdf"}})

	assert.Empty(t, resp.Results)
}

func TestEngine_Search_FiltersExcludeByFolderPrefix(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addContentIndexedFile(t, "f1", "budget review", []string{"budget", "review"})
	f.records.files["f1"] = schema.FileRecord{FileID: "f1", Filename: "f1.md", Path: "/work/f1", ContentIndexed: true}

	resp := f.engine.Search(context.Background(), "budget", config.ModeSmart, Filters{FolderPrefixes: []string{"/personal"}})

	assert.Empty(t, resp.Results)
}

func TestEngine_Search_RerankerOnlyCalledInAssistMode(t *testing.T) {
	calls := 0
	tracker := &trackingReranker{onCall: func() { calls++ }}

	f := newEngineFixture(t, tracker)
	f.addContentIndexedFile(t, "f1", "budget review", []string{"budget", "review"})

	_ = f.engine.Search(context.Background(), "budget", config.ModeSmart, Filters{})
	assert.Equal(t, 0, calls)

	_ = f.engine.Search(context.Background(), "budget", config.ModeAssist, Filters{})
	assert.Equal(t, 1, calls)
}

type trackingReranker struct {
	onCall func()
}

func (r *trackingReranker) Rerank(_ context.Context, _ string, documents []string) []RerankResult {
	r.onCall()
	out := make([]RerankResult, len(documents))
	for i := range documents {
		out[i] = RerankResult{Index: i, Score: 1}
	}
	return out
}

func (r *trackingReranker) Close() error { return nil }

func TestEngine_Search_ResultsSortedByFinalScoreDescending(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addContentIndexedFile(t, "weak", "budget", []string{"budget"})
	f.addContentIndexedFile(t, "strong", "budget budget budget review plan spending", []string{"budget", "review", "plan", "spending"})

	resp := f.engine.Search(context.Background(), "budget review plan spending", config.ModeSmart, Filters{})

	require.Len(t, resp.Results, 2)
	assert.GreaterOrEqual(t, resp.Results[0].FinalFileScore, resp.Results[1].FinalFileScore)
}

package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfinderx/localfinderx/internal/schema"
)

func TestSnippetAround_ShortTextReturnedWhole(t *testing.T) {
	text := "the quarterly budget review covers spending"
	snippet, highlights := snippetAround(text, []string{"budget"})

	assert.Equal(t, text, snippet)
	require.Len(t, highlights, 1)
	assert.Equal(t, "budget", text[highlights[0].Start:highlights[0].End])
}

func TestSnippetAround_LongTextWindowsAroundDensestMatch(t *testing.T) {
	filler := strings.Repeat("x ", 400)
	text := filler + "budget review budget allocation budget plan" + filler

	snippet, highlights := snippetAround(text, []string{"budget"})

	assert.LessOrEqual(t, len(snippet), maxSnippetLen+1)
	assert.Contains(t, snippet, "budget")
	assert.NotEmpty(t, highlights)
	for _, h := range highlights {
		assert.Equal(t, "budget", snippet[h.Start:h.End])
	}
}

func TestSnippetAround_NoMatchesStillReturnsWindow(t *testing.T) {
	text := strings.Repeat("x", maxSnippetLen+100)
	snippet, highlights := snippetAround(text, []string{"zzz"})

	assert.NotEmpty(t, snippet)
	assert.Empty(t, highlights)
}

func TestLocationSignature_DistinguishesHeaderPaths(t *testing.T) {
	a := locationSignature(schema.ChunkMetadata{HeaderPath: []string{"Intro"}})
	b := locationSignature(schema.ChunkMetadata{HeaderPath: []string{"Body"}})
	assert.NotEqual(t, a, b)
}

func TestSelectDiverse_PrefersDistinctLocationsFirst(t *testing.T) {
	byID := map[string]schema.ChunkRecord{
		"c1": {ChunkID: "c1", Metadata: schema.ChunkMetadata{HeaderPath: []string{"Intro"}}},
		"c2": {ChunkID: "c2", Metadata: schema.ChunkMetadata{HeaderPath: []string{"Intro"}}}, // same loc as c1
		"c3": {ChunkID: "c3", Metadata: schema.ChunkMetadata{HeaderPath: []string{"Body"}}},
	}
	ordered := []chunkScore{
		{chunkID: "c1", score: 3},
		{chunkID: "c2", score: 2}, // higher score but duplicate location
		{chunkID: "c3", score: 1},
	}

	selected := selectDiverse(ordered, byID, 2)

	require.Len(t, selected, 2)
	assert.Equal(t, "c1", selected[0].chunkID)
	assert.Equal(t, "c3", selected[1].chunkID) // c3 preferred over duplicate-location c2
}

func TestSelectDiverse_FillsFromDeferredWhenLocationsExhausted(t *testing.T) {
	byID := map[string]schema.ChunkRecord{
		"c1": {ChunkID: "c1", Metadata: schema.ChunkMetadata{HeaderPath: []string{"Intro"}}},
		"c2": {ChunkID: "c2", Metadata: schema.ChunkMetadata{HeaderPath: []string{"Intro"}}},
	}
	ordered := []chunkScore{{chunkID: "c1", score: 2}, {chunkID: "c2", score: 1}}

	selected := selectDiverse(ordered, byID, 2)

	require.Len(t, selected, 2)
}

func TestOrderCandidates_TieBreaksByChunkIndexAscending(t *testing.T) {
	byID := map[string]schema.ChunkRecord{
		"c1": {ChunkID: "c1", ChunkIndex: 2},
		"c2": {ChunkID: "c2", ChunkIndex: 0},
	}
	candidates := []chunkScore{{chunkID: "c1", score: 1}, {chunkID: "c2", score: 1}}

	ordered := orderCandidates(candidates, byID)

	assert.Equal(t, "c2", ordered[0].chunkID)
}

func TestChunkCandidates_ExcludesFileDocPseudoEntry(t *testing.T) {
	pool := []chunkScore{{chunkID: "c1"}, {chunkID: ""}}
	out := chunkCandidates(pool)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].chunkID)
}

func TestBuildEvidences_MetadataOnlyFile_NoCandidates(t *testing.T) {
	f := aggregatedFile{
		record: schema.FileRecord{FileID: "f1"},
		pool:   []chunkScore{{chunkID: "", fileID: "f1"}},
	}
	out := buildEvidences(context.Background(), &fakeRecordReader{}, f, ProcessedQuery{}, 3)
	assert.Empty(t, out)
}

func TestBuildEvidences_ReturnsUpToMax(t *testing.T) {
	records := &fakeRecordReader{
		chunks: map[string]schema.ChunkRecord{
			"c1": {ChunkID: "c1", FileID: "f1", Text: "budget review section one", Metadata: schema.ChunkMetadata{HeaderPath: []string{"A"}}},
			"c2": {ChunkID: "c2", FileID: "f1", Text: "budget review section two", Metadata: schema.ChunkMetadata{HeaderPath: []string{"B"}}},
		},
	}
	f := aggregatedFile{
		record: schema.FileRecord{FileID: "f1"},
		pool: []chunkScore{
			{chunkID: "c1", fileID: "f1", score: 0.5, lexicalRank: 1},
			{chunkID: "c2", fileID: "f1", score: 0.3, lexicalRank: 2},
		},
	}

	out := buildEvidences(context.Background(), records, f, ProcessedQuery{Text: "budget", Tokens: []string{"budget"}}, 1)

	require.Len(t, out, 1)
	assert.Equal(t, "f1", out[0].FileID)
	assert.NotEmpty(t, out[0].EvidenceID)
	assert.Contains(t, out[0].Summary, "budget")
}

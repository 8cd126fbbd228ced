package search

import (
	"strings"

	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/store"
)

// RRFConstant is the Reciprocal Rank Fusion smoothing constant, k=60.
// Frozen: not exposed via settings.json, since mode only changes
// retrieval breadth, never the fusion math.
const RRFConstant = 60

// fuse builds the per-file fusion output from the dense and lexical
// retrieval passes: for every file touched by either source it records
// the best (minimum) 1-based rank that file achieved per source, the
// resulting file-level RRF score, and the pool of chunk- (or file-doc-)
// level RRF contributions the File Aggregator and Evidence Builder need.
//
// A missing source contributes 0 to a file's score rather than a
// penalized rank — appearing in only one retrieval list is a perfectly
// valid result, not a degraded one.
func fuse(denseHits []store.VectorHit, lexicalHits []store.LexicalHit, k int) map[string]*fusedFile {
	pool := make(map[string]*chunkScore) // key: chunk_id, or "file:"+file_id for a file-doc

	for i, hit := range denseHits {
		rank := i + 1
		cs := getOrCreateChunkScore(pool, hit.ChunkID, hit.FileID)
		cs.denseRank = rank
		cs.score += 1.0 / float64(k+rank)
	}

	for i, hit := range lexicalHits {
		rank := i + 1
		key := "file:" + hit.FileID
		chunkID := ""
		if hit.DocKind == store.DocKindChunk {
			chunkID = rawLexicalChunkID(hit.DocID)
			key = chunkID
		}
		cs := getOrCreateChunkScore(pool, key, hit.FileID)
		cs.chunkID = chunkID
		cs.lexicalRank = rank
		cs.score += 1.0 / float64(k+rank)
	}

	files := make(map[string]*fusedFile)
	for _, cs := range pool {
		f, ok := files[cs.fileID]
		if !ok {
			f = &fusedFile{fileID: cs.fileID}
			files[cs.fileID] = f
		}
		f.pool = append(f.pool, *cs)
		if cs.denseRank > 0 && (f.denseBestRank == 0 || cs.denseRank < f.denseBestRank) {
			f.denseBestRank = cs.denseRank
		}
		if cs.lexicalRank > 0 && (f.lexicalBestRank == 0 || cs.lexicalRank < f.lexicalBestRank) {
			f.lexicalBestRank = cs.lexicalRank
		}
	}

	for _, f := range files {
		if f.denseBestRank > 0 {
			f.fileRRF += 1.0 / float64(k+f.denseBestRank)
		}
		if f.lexicalBestRank > 0 {
			f.fileRRF += 1.0 / float64(k+f.lexicalBestRank)
		}
	}

	return files
}

// rawLexicalChunkID strips the "chunk:" namespace prefix LexicalStore adds
// to its Bleve document IDs, recovering the chunk_id the records store and
// evidence builder key on.
func rawLexicalChunkID(docID string) string {
	return strings.TrimPrefix(docID, string(store.DocKindChunk)+":")
}

func getOrCreateChunkScore(pool map[string]*chunkScore, key, fileID string) *chunkScore {
	if cs, ok := pool[key]; ok {
		return cs
	}
	cs := &chunkScore{fileID: fileID}
	pool[key] = cs
	return cs
}

// matchType derives the 4.14 match_type label from which sources
// contributed to a file.
func matchType(f *fusedFile) schema.MatchType {
	switch {
	case f.denseBestRank > 0 && f.lexicalBestRank > 0:
		return schema.MatchHybrid
	case f.denseBestRank > 0:
		return schema.MatchSemantic
	default:
		return schema.MatchLexical
	}
}

// Package search composes the Query Processor, Dense and Lexical
// retrievers, RRF Fusion, File Aggregator, Evidence Builder and the
// Search Engine that wires them into a single search(query, mode,
// filters) call. All retrieval and fusion logic here is file-granular:
// a result is one file, carrying up to a handful of chunk-level
// evidences rather than a flat list of chunk hits.
package search

import (
	"time"
)

// Filters applies uniformly to files from both retrievers. It is checked
// against each aggregated file's record after fusion and scoring, before
// sorting, the MaxResults cap and evidence building. A zero-value Filters
// matches everything.
type Filters struct {
	// Extensions, when non-empty, keeps only files whose Extension is in
	// this set (e.g. ".pdf", ".docx"). Matching is case-insensitive.
	Extensions []string

	// ModifiedAfter and ModifiedBefore bound FileRecord.ModifiedAt when
	// non-zero.
	ModifiedAfter time.Time
	ModifiedBefore time.Time

	// FolderPrefixes, when non-empty, keeps only files whose Path has
	// one of these as a prefix.
	FolderPrefixes []string
}

// ProcessedQuery is the Query Processor's output: the raw text truncated
// to the accepted length, its embedding (nil if the embedder is
// unavailable or failed), and its tokens.
type ProcessedQuery struct {
	Text string
	Embedding []float32
	Tokens []string
}

// chunkScore is one entry in the fused pool the File Aggregator and
// Evidence Builder draw from: a chunk (or, for a metadata-only file, its
// file-level lexical document standing in for a chunk) together with the
// RRF score it earned from whichever source(s) returned it.
type chunkScore struct {
	chunkID string // empty for a file-doc-only contribution
	fileID string
	score float64
	denseRank int // 0 if this item did not appear in the dense list
	lexicalRank int // 0 if this item did not appear in the lexical list
}

// fusedFile is the per-file output of Fusion: the best per-source rank
// (4.13) plus the pool of chunk-level contributions belonging to this
// file (4.14/4.15 read from Pool).
type fusedFile struct {
	fileID string
	denseBestRank int
	lexicalBestRank int
	fileRRF float64
	pool []chunkScore
}

// EngineDeps bundles the Engine's collaborators so callers building it
// from the top-level orchestrator pass one struct instead of five
// positional arguments.
type EngineDeps struct {
	QueryProcessor *QueryProcessor
	Dense *DenseRetriever
	Lexical *LexicalRetriever
	Records RecordReader
	Reranker Reranker
}

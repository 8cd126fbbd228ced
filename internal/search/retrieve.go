package search

import (
	"context"
	"log/slog"

	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/store"
)

// RecordReader is the subset of store.RecordStore the search pipeline
// needs: file metadata for aggregation/filtering, chunk text and
// location metadata for evidence.
type RecordReader interface {
	GetFile(ctx context.Context, fileID string) (schema.FileRecord, bool, error)
	GetChunksByID(ctx context.Context, chunkIDs []string) ([]schema.ChunkRecord, error)
}

var _ RecordReader = (*store.RecordStore)(nil)

// DenseRetriever wraps the vector store for semantic chunk search.
type DenseRetriever struct {
	vectors store.VectorStore
}

// NewDenseRetriever builds a DenseRetriever over vectors.
func NewDenseRetriever(vectors store.VectorStore) *DenseRetriever {
	return &DenseRetriever{vectors: vectors}
}

// Search returns up to topN chunk hits ranked by cosine similarity. A nil
// queryVec (no embedder available) or a store failure both degrade to an
// empty result rather than an error, so the caller can proceed
// lexical-only.
func (r *DenseRetriever) Search(ctx context.Context, queryVec []float32, topN int) []store.VectorHit {
	if r.vectors == nil || len(queryVec) == 0 {
		return nil
	}
	hits, err := r.vectors.Search(ctx, queryVec, topN, store.VectorFilter{ContentIndexedOnly: true})
	if err != nil {
		slog.Warn("dense_retriever_failed", slog.String("error", err.Error()))
		return nil
	}
	return hits
}

// LexicalRetriever wraps the BM25 store for keyword search over both
// chunk- and file-level documents.
type LexicalRetriever struct {
	lexical *store.LexicalStore
}

// NewLexicalRetriever builds a LexicalRetriever over lexical.
func NewLexicalRetriever(lexical *store.LexicalStore) *LexicalRetriever {
	return &LexicalRetriever{lexical: lexical}
}

// Search returns up to topN hits across both doc kinds for queryTokens. A
// store failure degrades to an empty result.
func (r *LexicalRetriever) Search(queryTokens []string, topN int) []store.LexicalHit {
	if r.lexical == nil || len(queryTokens) == 0 {
		return nil
	}
	hits, err := r.lexical.Search(queryTokens, topN)
	if err != nil {
		slog.Warn("lexical_retriever_failed", slog.String("error", err.Error()))
		return nil
	}
	return hits
}

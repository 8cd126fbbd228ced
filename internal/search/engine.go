package search

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localfinderx/localfinderx/internal/config"
	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/store"
)

// MaxResults bounds a SearchResponse to the 50 highest-scoring files,
// regardless of how many candidates fusion and aggregation surface.
const MaxResults = 50

// Engine composes the Query Processor, the two retrievers, fusion,
// aggregation and evidence building into the one entry point the
// controller interface exposes as search(query, mode, filters).
type Engine struct {
	query *QueryProcessor
	dense *DenseRetriever
	lexical *LexicalRetriever
	records RecordReader
	reranker Reranker
}

// NewEngine builds an Engine from its collaborators. reranker may be nil
// — modes with RerankerEnabled=false never call it, and a nil reranker
// with RerankerEnabled=true is treated the same as disabled, so a
// metadata-only or minimal build never has to wire one up.
func NewEngine(deps EngineDeps) *Engine {
	return &Engine{
		query: deps.QueryProcessor,
		dense: deps.Dense,
		lexical: deps.Lexical,
		records: deps.Records,
		reranker: deps.Reranker,
	}
}

// Search runs the full pipeline: Query Processor -> (Dense || Lexical)
// -> Fusion -> Aggregator -> Evidence Builder, and returns a
// SearchResponse capped at MaxResults and sorted by final_file_score
// descending; in a mode with the reranker enabled, the capped results
// are then put in the reranker's order instead. A query-processing failure (empty input) returns a
// response carrying Error and no results; any other failure along the
// way degrades gracefully instead of aborting the search.
func (e *Engine) Search(ctx context.Context, raw string, mode config.Mode, filters Filters) *schema.SearchResponse {
	start := time.Now()
	knobs := config.KnobsFor(mode)

	pq, err := e.query.Process(ctx, raw)
	if err != nil {
		return &schema.SearchResponse{
			Query: raw,
			ElapsedMS: time.Since(start).Milliseconds(),
			Results: []schema.SearchResult{},
			Error: err.Error(),
		}
	}

	var denseHits []store.VectorHit
	var lexicalHits []store.LexicalHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		denseHits = e.dense.Search(gctx, pq.Embedding, knobs.DenseTopN)
		return nil
	})
	g.Go(func() error {
		lexicalHits = e.lexical.Search(pq.Tokens, knobs.LexicalTopN)
		return nil
	})
	_ = g.Wait() // both retrievers already swallow their own failures into empty results

	fused := fuse(denseHits, lexicalHits, RRFConstant)
	aggregated := aggregate(ctx, e.records, fused)

	kept := aggregated[:0]
	for _, f := range aggregated {
		if matchesFilters(f, filters) {
			kept = append(kept, f)
		}
	}

	sortByFinalScore(kept)
	if len(kept) > MaxResults {
		kept = kept[:MaxResults]
	}

	if knobs.RerankerEnabled && e.reranker != nil {
		kept = e.rerank(ctx, pq, kept)
	}

	results := make([]schema.SearchResult, 0, len(kept))
	for _, f := range kept {
		evidences := []schema.Evidence{}
		if f.record.ContentIndexed {
			evidences = buildEvidences(ctx, e.records, f, pq, knobs.EvidencesPerFile)
		}
		results = append(results, schema.SearchResult{
			FileID: f.record.FileID,
			Path: f.record.Path,
			Filename: f.record.Filename,
			ContentAvailable: f.record.ContentIndexed,
			MatchType: f.matchType,
			FinalFileScore: f.finalScore,
			Evidences: evidences,
		})
	}

	return &schema.SearchResponse{
		Query: pq.Text,
		ElapsedMS: time.Since(start).Milliseconds(),
		Results: results,
	}
}

// rerank re-scores the top candidates by lexical overlap against a
// representative text for each file — its best-scoring chunk's text
// where one exists, otherwise its filename — and reorders kept
// accordingly. Rescoring never changes which files are kept, only their
// order.
func (e *Engine) rerank(ctx context.Context, pq ProcessedQuery, kept []aggregatedFile) []aggregatedFile {
	topChunkIDs := make([]string, 0, len(kept))
	for _, f := range kept {
		if id := bestChunkID(f.pool); id != "" {
			topChunkIDs = append(topChunkIDs, id)
		}
	}
	chunks, err := e.records.GetChunksByID(ctx, topChunkIDs)
	if err != nil {
		return kept // degrade to fusion order rather than fail the search
	}
	textByChunkID := make(map[string]string, len(chunks))
	for _, c := range chunks {
		textByChunkID[c.ChunkID] = c.Text
	}

	docs := make([]string, len(kept))
	for i, f := range kept {
		docs[i] = f.record.Filename
		if id := bestChunkID(f.pool); id != "" {
			if text, ok := textByChunkID[id]; ok {
				docs[i] = text
			}
		}
	}

	reranked := e.reranker.Rerank(ctx, pq.Text, docs)
	out := make([]aggregatedFile, len(kept))
	for i, r := range reranked {
		out[i] = kept[r.Index]
	}
	return out
}

// bestChunkID returns the chunk_id of the pool's highest-scoring real
// chunk contribution, or "" if the pool holds only a file-doc entry.
func bestChunkID(pool []chunkScore) string {
	for _, cs := range pool {
		if cs.chunkID != "" {
			return cs.chunkID
		}
	}
	return ""
}

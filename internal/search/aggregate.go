package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/localfinderx/localfinderx/internal/schema"
)

// FileAggregationAlpha (α) weights the contribution of a file's
// second- and third-best chunks alongside its single best chunk. Frozen,
// like RRFConstant: not user-tunable via settings.json.
const FileAggregationAlpha = 0.2

// MetadataOnlyDecay scales final_file_score down for files with no
// content index, so a filename/path match never outranks a real content
// match at an equivalent fused score.
const MetadataOnlyDecay = 0.4

// aggregatedFile is one scored file, ready for sorting and (for
// content-indexed files) evidence building.
type aggregatedFile struct {
	record schema.FileRecord
	matchType schema.MatchType
	finalScore float64
	pool []chunkScore // sorted descending by score
}

// aggregate resolves each fused file's FileRecord, computes
// final_file_score per 4.14, and drops any file whose record can no
// longer be found (deleted between retrieval and aggregation).
func aggregate(ctx context.Context, records RecordReader, fused map[string]*fusedFile) []aggregatedFile {
	out := make([]aggregatedFile, 0, len(fused))

	for fileID, f := range fused {
		rec, ok, err := records.GetFile(ctx, fileID)
		if err != nil {
			slog.Warn("aggregator_file_lookup_failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}

		sort.Slice(f.pool, func(i, j int) bool { return f.pool[i].score > f.pool[j].score })

		fileScore := fileScoreFromPool(f.pool)
		final := fileScore
		if !rec.ContentIndexed {
			final *= MetadataOnlyDecay
		}

		out = append(out, aggregatedFile{
			record: rec,
			matchType: matchType(f),
			finalScore: final,
			pool: f.pool,
		})
	}

	return out
}

// fileScoreFromPool computes max(chunk_rrf_scores) + α·mean(top_3(...)).
// pool must already be sorted descending by score.
func fileScoreFromPool(pool []chunkScore) float64 {
	if len(pool) == 0 {
		return 0
	}
	top := pool
	if len(top) > 3 {
		top = top[:3]
	}
	var sum float64
	for _, cs := range top {
		sum += cs.score
	}
	mean := sum / float64(len(top))
	return pool[0].score + FileAggregationAlpha*mean
}

// sortByFinalScore orders files by final_file_score descending, breaking
// ties by file_id for determinism.
func sortByFinalScore(files []aggregatedFile) {
	sort.Slice(files, func(i, j int) bool {
		if files[i].finalScore != files[j].finalScore {
			return files[i].finalScore > files[j].finalScore
		}
		return files[i].record.FileID < files[j].record.FileID
	})
}

package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/localfinderx/localfinderx/internal/schema"
)

// minSnippetLen and maxSnippetLen bound the evidence snippet window; the
// window shrinks below minSnippetLen only when the whole chunk is
// shorter.
const (
	minSnippetLen = 200
	maxSnippetLen = 500
	snippetWindow = 350
)

// buildEvidences selects up to maxEvidences chunks for a content-indexed
// file and renders each into an Evidence. Metadata-only files (no
// ChunkRecords to draw from) get no evidences — the caller is expected
// to skip this entirely for those, per 4.15.
func buildEvidences(ctx context.Context, records RecordReader, f aggregatedFile, query ProcessedQuery, maxEvidences int) []schema.Evidence {
	candidates := chunkCandidates(f.pool)
	if len(candidates) == 0 {
		return []schema.Evidence{}
	}

	chunkIDs := make([]string, len(candidates))
	for i, c := range candidates {
		chunkIDs[i] = c.chunkID
	}

	chunks, err := records.GetChunksByID(ctx, chunkIDs)
	if err != nil {
		slog.Warn("evidence_chunk_lookup_failed", slog.String("file_id", f.record.FileID), slog.String("error", err.Error()))
		return []schema.Evidence{}
	}
	byID := make(map[string]schema.ChunkRecord, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}

	ordered := orderCandidates(candidates, byID)
	selected := selectDiverse(ordered, byID, maxEvidences)

	out := make([]schema.Evidence, 0, len(selected))
	for _, cs := range selected {
		c, ok := byID[cs.chunkID]
		if !ok {
			continue
		}
		out = append(out, buildEvidence(c, cs, query))
	}
	return out
}

// chunkCandidates filters a fused pool down to real chunk contributions,
// excluding the file-doc pseudo-entry (chunkID == "") that has no text.
func chunkCandidates(pool []chunkScore) []chunkScore {
	out := make([]chunkScore, 0, len(pool))
	for _, cs := range pool {
		if cs.chunkID != "" {
			out = append(out, cs)
		}
	}
	return out
}

// orderCandidates sorts by descending chunk-level RRF score, falling
// back to ascending chunk_index for a deterministic tie-break.
func orderCandidates(candidates []chunkScore, byID map[string]schema.ChunkRecord) []chunkScore {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return byID[candidates[i].chunkID].ChunkIndex < byID[candidates[j].chunkID].ChunkIndex
	})
	return candidates
}

// selectDiverse greedily takes up to max candidates, preferring chunks
// whose location metadata hasn't been seen yet; once every distinct
// location is exhausted it fills remaining slots from the rest of the
// ordered list.
func selectDiverse(ordered []chunkScore, byID map[string]schema.ChunkRecord, max int) []chunkScore {
	if max <= 0 || len(ordered) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var selected, deferred []chunkScore

	for _, cs := range ordered {
		loc := locationSignature(byID[cs.chunkID].Metadata)
		if !seen[loc] {
			seen[loc] = true
			selected = append(selected, cs)
		} else {
			deferred = append(deferred, cs)
		}
		if len(selected) >= max {
			return selected[:max]
		}
	}

	for _, cs := range deferred {
		selected = append(selected, cs)
		if len(selected) >= max {
			break
		}
	}
	if len(selected) > max {
		selected = selected[:max]
	}
	return selected
}

func locationSignature(m schema.ChunkMetadata) string {
	return fmt.Sprintf("%s|%d|%d|%s|%s", strings.Join(m.HeaderPath, "/"), m.Page, m.Slide, m.Sheet, m.RowRange)
}

// buildEvidence renders one ChunkRecord into an Evidence: a snippet
// around the densest query-token match, highlight spans into that
// snippet, a templated summary, and the per-chunk score breakdown.
func buildEvidence(c schema.ChunkRecord, cs chunkScore, query ProcessedQuery) schema.Evidence {
	snippet, highlights := snippetAround(c.Text, query.Tokens)

	var dense, lexical float64
	if cs.denseRank > 0 {
		dense = 1.0 / float64(RRFConstant+cs.denseRank)
	}
	if cs.lexicalRank > 0 {
		lexical = 1.0 / float64(RRFConstant+cs.lexicalRank)
	}

	return schema.Evidence{
		EvidenceID: uuid.NewString(),
		FileID: c.FileID,
		Summary: fmt.Sprintf("This section most closely matches %q.", query.Text),
		Snippet: snippet,
		Highlights: highlights,
		Scores: schema.Scores{Final: cs.score, Dense: dense, Lexical: lexical},
		Location: schema.Location{
			Page: c.Metadata.Page,
			Slide: c.Metadata.Slide,
			SlideTitle: c.Metadata.SlideTitle,
			Sheet: c.Metadata.Sheet,
			RowRange: c.Metadata.RowRange,
			HeaderPath: c.Metadata.HeaderPath,
		},
	}
}

// snippetAround finds the windowed region of text with the most
// query-token matches and returns it along with highlight spans relative
// to the returned snippet, not the original text.
func snippetAround(text string, queryTokens []string) (string, []schema.HighlightSpan) {
	if len(text) <= maxSnippetLen {
		return text, highlightsIn(text, queryTokens)
	}

	matches := findMatches(text, queryTokens)
	windowSize := snippetWindow
	if windowSize > len(text) {
		windowSize = len(text)
	}

	start := 0
	if len(matches) > 0 {
		start = bestWindowStart(text, matches, windowSize)
	}
	end := start + windowSize
	if end > len(text) {
		end = len(text)
		start = end - windowSize
		if start < 0 {
			start = 0
		}
	}

	snippet := text[start:end]
	if len(snippet) < minSnippetLen && end < len(text) {
		extra := minSnippetLen - len(snippet)
		newEnd := end + extra
		if newEnd > len(text) {
			newEnd = len(text)
		}
		end = newEnd
		snippet = text[start:end]
	}

	return snippet, highlightsIn(snippet, queryTokens)
}

type matchSpan struct{ start, end int }

// findMatches locates every case-insensitive occurrence of each query
// token in text, as byte offsets.
func findMatches(text string, queryTokens []string) []matchSpan {
	lower := strings.ToLower(text)
	var spans []matchSpan
	for _, token := range queryTokens {
		if token == "" {
			continue
		}
		offset := 0
		for {
			idx := strings.Index(lower[offset:], token)
			if idx == -1 {
				break
			}
			start := offset + idx
			end := start + len(token)
			spans = append(spans, matchSpan{start: start, end: end})
			offset = end
		}
	}
	return spans
}

// bestWindowStart returns the start offset of the windowSize-byte window
// over text containing the most match spans, centering on the densest
// cluster. Ties favor the earliest (lowest-offset) window.
func bestWindowStart(text string, matches []matchSpan, windowSize int) int {
	bestStart, bestCount := 0, -1
	for _, m := range matches {
		candidate := m.start - windowSize/2
		if candidate < 0 {
			candidate = 0
		}
		if candidate+windowSize > len(text) {
			candidate = len(text) - windowSize
			if candidate < 0 {
				candidate = 0
			}
		}
		count := countMatchesIn(matches, candidate, candidate+windowSize)
		if count > bestCount || (count == bestCount && candidate < bestStart) {
			bestCount = count
			bestStart = candidate
		}
	}
	return bestStart
}

func countMatchesIn(matches []matchSpan, start, end int) int {
	n := 0
	for _, m := range matches {
		if m.start >= start && m.end <= end {
			n++
		}
	}
	return n
}

// highlightsIn returns the match spans within window, already relative
// to window since findMatches operates on window's own bytes.
func highlightsIn(window string, queryTokens []string) []schema.HighlightSpan {
	matches := findMatches(window, queryTokens)
	spans := make([]schema.HighlightSpan, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, schema.HighlightSpan{Start: m.start, End: m.end})
	}
	return spans
}

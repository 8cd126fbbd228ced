// Package chunk implements the Structural Chunker: per-format
// splitting of extraction units into schema.ChunkRecord values, each
// carrying the location metadata its extraction type requires and a
// monotonically increasing chunk_index within the file.
package chunk

import (
	"strconv"
	"strings"

	"github.com/localfinderx/localfinderx/internal/extract"
	"github.com/localfinderx/localfinderx/internal/schema"
)

// Universal chunking parameters — not user-configurable.
const (
	maxChunkChars = 1000
	overlapChars = 100
)

// Build turns an extract.Result into ordered ChunkRecords for fileID.
// Any chunk missing required location metadata for its extraction type
// is silently dropped (the caller is expected to log via the returned
// dropped count) rather than persisted invalid.
func Build(fileID string, result extract.Result) (chunks []schema.ChunkRecord, dropped int) {
	var raw []rawChunk
	switch result.Kind {
	case schema.ExtractionWord, schema.ExtractionMD:
		raw = chunkHeaderedUnits(result.Units)
	case schema.ExtractionPPT:
		raw = chunkSlides(result.Units)
	case schema.ExtractionExcel:
		raw = chunkSheets(result.Units)
	case schema.ExtractionPDF:
		raw = chunkPages(result.Units)
	case schema.ExtractionEmail:
		raw = chunkEmail(result.Units)
	}

	index := 0
	for _, rc := range raw {
		if ok, _ := rc.metadata.ValidateForType(result.Kind); !ok {
			dropped++
			continue
		}
		if strings.TrimSpace(rc.text) == "" {
			dropped++
			continue
		}
		chunks = append(chunks, schema.ChunkRecord{
			SchemaVersion: schema.CurrentSchemaVersion,
			ChunkID: chunkID(fileID, index),
			FileID: fileID,
			ChunkIndex: index,
			Text: rc.text,
			ExtractionType: result.Kind,
			Metadata: rc.metadata,
		})
		index++
	}
	return chunks, dropped
}

// rawChunk is an intermediate chunk before ID assignment.
type rawChunk struct {
	text string
	metadata schema.ChunkMetadata
}

// splitWithOverlap splits text into pieces of at most maxChunkChars,
// each piece (after the first) overlapping the previous by overlapChars.
// It never splits inside a rune.
func splitWithOverlap(text string) []string {
	runes := []rune(text)
	if len(runes) <= maxChunkChars {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + maxChunkChars
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlapChars
		if start < 0 {
			start = 0
		}
	}
	return pieces
}

func chunkID(fileID string, index int) string {
	return fileID + "#" + strconv.Itoa(index)
}

package chunk

import (
	"github.com/localfinderx/localfinderx/internal/extract"
	"github.com/localfinderx/localfinderx/internal/schema"
)

// chunkHeaderedUnits implements the Word/Markdown rule: start a
// new chunk whenever header_path changes; within a header scope, split
// by length while repeating header_path on every piece.
func chunkHeaderedUnits(units []extract.Unit) []rawChunk {
	var chunks []rawChunk
	var currentPath []string
	var buf string
	haveCurrent := false

	flush := func() {
		if !haveCurrent {
			return
		}
		for _, piece := range splitWithOverlap(buf) {
			chunks = append(chunks, rawChunk{
				text: piece,
				metadata: schema.ChunkMetadata{HeaderPath: currentPath},
			})
		}
		buf = ""
		haveCurrent = false
	}

	for _, u := range units {
		if !haveCurrent || !equalPaths(currentPath, u.HeaderPath) {
			flush()
			currentPath = u.HeaderPath
			haveCurrent = true
			buf = u.Text
			continue
		}
		buf += "\n\n" + u.Text
	}
	flush()
	return chunks
}

func equalPaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

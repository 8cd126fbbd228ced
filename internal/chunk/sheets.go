package chunk

import (
	"fmt"

	"github.com/localfinderx/localfinderx/internal/extract"
	"github.com/localfinderx/localfinderx/internal/schema"
)

// chunkSheets implements the Excel rule: one sheet becomes one
// chunk if its rendered table fits; otherwise it is split by row_range,
// and every chunk carries sheet_name and its row_range. Row numbers are
// 1-indexed over the rows the extractor already rendered (the header row
// is row 1), and are repeated as the first row of every split chunk so
// each piece stays a readable table on its own.
func chunkSheets(units []extract.Unit) []rawChunk {
	var chunks []rawChunk
	for _, u := range units {
		if len(u.Text) <= maxChunkChars || len(u.Rows) == 0 {
			chunks = append(chunks, rawChunk{
				text: u.Text,
				metadata: schema.ChunkMetadata{
					Sheet: u.Sheet,
					RowRange: fmt.Sprintf("1-%d", maxInt(len(u.Rows), 1)),
				},
			})
			continue
		}

		header := u.Rows[0]
		body := u.Rows[1:]

		var group [][]string
		groupStart := 2 // body rows are 1-indexed from row 2 (row 1 is the header)
		rowNum := groupStart

		flush := func(endRow int) {
			if len(group) == 0 {
				return
			}
			table := extract.RenderMarkdownTable(append([][]string{header}, group...))
			chunks = append(chunks, rawChunk{
				text: table,
				metadata: schema.ChunkMetadata{
					Sheet: u.Sheet,
					RowRange: fmt.Sprintf("%d-%d", groupStart, endRow),
				},
			})
			group = nil
		}

		for _, row := range body {
			candidate := append(append([][]string{}, group...), row)
			if len(extract.RenderMarkdownTable(append([][]string{header}, candidate...))) > maxChunkChars && len(group) > 0 {
				flush(rowNum - 1)
				groupStart = rowNum
				group = [][]string{row}
			} else {
				group = append(group, row)
			}
			rowNum++
		}
		flush(rowNum - 1)
	}
	return chunks
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

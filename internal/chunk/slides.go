package chunk

import (
	"github.com/localfinderx/localfinderx/internal/extract"
	"github.com/localfinderx/localfinderx/internal/schema"
)

// chunkSlides implements the PowerPoint rule: one slide
// contributes at least one chunk; a slide exceeding the length limit is
// split internally while every piece keeps slide_number/slide_title.
func chunkSlides(units []extract.Unit) []rawChunk {
	var chunks []rawChunk
	for _, u := range units {
		for _, piece := range splitWithOverlap(u.Text) {
			chunks = append(chunks, rawChunk{
				text: piece,
				metadata: schema.ChunkMetadata{
					Slide: u.Slide,
					SlideTitle: u.SlideTitle,
				},
			})
		}
	}
	return chunks
}

// chunkPages implements the PDF rule: one page yields at least
// one chunk with page_number.
func chunkPages(units []extract.Unit) []rawChunk {
	var chunks []rawChunk
	for _, u := range units {
		for _, piece := range splitWithOverlap(u.Text) {
			chunks = append(chunks, rawChunk{
				text: piece,
				metadata: schema.ChunkMetadata{Page: u.Page},
			})
		}
	}
	return chunks
}

// chunkEmail implements the Email rule: the whole body is one
// chunk; a body over the length limit is cut by splitWithOverlap into
// fixed-length overlapping pieces, without regard to paragraph boundaries.
// No location metadata is required for email chunks.
func chunkEmail(units []extract.Unit) []rawChunk {
	var chunks []rawChunk
	for _, u := range units {
		for _, piece := range splitWithOverlap(u.Text) {
			chunks = append(chunks, rawChunk{text: piece})
		}
	}
	return chunks
}

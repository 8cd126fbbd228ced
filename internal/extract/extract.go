// Package extract implements the format-specific Extractors named by
// : each one turns a file on disk into a sequence of Units carrying
// exactly the location metadata the Structural Chunker needs for that
// format.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/xerrors"
)

// Unit is one extraction unit: a run of text plus whichever location
// fields its source format requires. Unused fields are left at zero
// value — the chunker only reads the fields relevant to Kind.
type Unit struct {
	Text string
	HeaderPath []string // Word, Markdown
	Page int // PDF
	Slide int // PowerPoint
	SlideTitle string // PowerPoint
	Sheet string // Excel
	Rows [][]string // Excel: the raw (already row/column-truncated) cell grid behind Text, so the chunker can re-render sub-ranges rather than cut the Markdown table mid-row.
}

// Result is the full output of extracting one file.
type Result struct {
	Kind schema.ExtractionType
	Units []Unit
}

// extensionKinds maps a lowercased extension to its extraction type.
var extensionKinds = map[string]schema.ExtractionType{
	".docx": schema.ExtractionWord,
	".pptx": schema.ExtractionPPT,
	".xlsx": schema.ExtractionExcel,
	".pdf": schema.ExtractionPDF,
	".md": schema.ExtractionMD,
}

// Extract dispatches to the format-specific extractor for path based on
// its extension. An error here signals the downgrade-to-metadata-only
// path: the caller preserves the FileRecord, logs the error, and
// moves on to the next file.
func Extract(path string) (Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	kind, ok := extensionKinds[ext]
	if !ok {
		return Result{}, xerrors.New(xerrors.ErrCodeUnsupportedFormat, "no extractor for extension "+ext, nil)
	}

	var units []Unit
	var err error
	switch kind {
	case schema.ExtractionWord:
		units, err = extractWord(path)
	case schema.ExtractionPPT:
		units, err = extractPPTX(path)
	case schema.ExtractionExcel:
		units, err = extractExcel(path)
	case schema.ExtractionPDF:
		units, err = extractPDF(path)
	case schema.ExtractionMD:
		units, err = extractMarkdown(path)
	}
	if err != nil {
		return Result{}, xerrors.ExtractionError("failed to extract "+path, err)
	}
	return Result{Kind: kind, Units: units}, nil
}

// Package schema defines the persisted and wire record types shared by the
// indexing and search pipelines: FileRecord, ChunkRecord, Evidence,
// SearchResponse and Manifest. Every persisted record carries
// SchemaVersion so a reader can refuse to open data written by an
// incompatible version instead of guessing at its shape.
package schema

import "regexp"

// rowRangePattern matches the required "<start>-<end>" shape of an Excel
// chunk's RowRange, e.g. "12-47".
var rowRangePattern = regexp.MustCompile(`^\d+-\d+$`)

// CurrentSchemaVersion is embedded in every persisted record and in
// manifest.json (nothing writes paths.Layout.SchemaVersionPath). A
// mismatch on load means the data directory must be rebuilt from scratch
// rather than partially trusted.
const CurrentSchemaVersion = "2.0"

// Source identifies where a file originated. Only Local is populated by
// this engine; the others are reserved fields for connectors that are
// out of scope for the core but whose records still flow through this
// schema once ingested.
type Source string

const (
	SourceLocal Source = "local"
	SourceOutlook Source = "outlook"
	SourceOneDrive Source = "onedrive"
	SourceSharePoint Source = "sharepoint"
	SourceGDrive Source = "gdrive"
)

// Fingerprint is the tuple used to detect a file change for incremental
// indexing. Hash is optional: cheap fingerprinting uses size+mtime alone,
// and a content hash is only computed when the caller opts in (e.g. to
// detect touch-without-edit saves).
type Fingerprint struct {
	SizeBytes int64 `json:"size_bytes"`
	ModifiedAt float64 `json:"modified_at"`
	Hash string `json:"hash,omitempty"`
}

// Equal reports whether two fingerprints describe the same file content.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.SizeBytes != other.SizeBytes || f.ModifiedAt != other.ModifiedAt {
		return false
	}
	if f.Hash != "" && other.Hash != "" && f.Hash != other.Hash {
		return false
	}
	return true
}

// IndexStats summarizes a file's position in the content pipeline.
type IndexStats struct {
	ChunkCount int `json:"chunk_count"`
	LastIndexedAt float64 `json:"last_indexed_at"`
	IndexError string `json:"index_error,omitempty"`
}

// FileRecord is the root entity: one per enumerated file, content-indexed
// or metadata-only. FileID is stable for the life of a (path,
// fingerprint-lineage); a path change always mints a new FileID, since
// the manifest keys on path and a renamed file has no continuity with
// its old record.
type FileRecord struct {
	SchemaVersion string `json:"schema_version"`
	FileID string `json:"file_id"`
	Source Source `json:"source"`
	ContentIndexed bool `json:"content_indexed"`
	Path string `json:"path"`
	Filename string `json:"filename"`
	Extension string `json:"extension"`
	SizeBytes int64 `json:"size_bytes"`
	CreatedAt float64 `json:"created_at"`
	ModifiedAt float64 `json:"modified_at"`
	Author string `json:"author,omitempty"`
	Fingerprint Fingerprint `json:"fingerprint"`
	IndexStats IndexStats `json:"index_stats"`
}

// NewFileRecord builds a FileRecord for a freshly classified file. It does
// not set ContentIndexed or IndexStats.ChunkCount — those are filled in
// once the content path (or metadata-only path) finishes.
func NewFileRecord(fileID, path, filename, extension string, size int64, createdAt, modifiedAt float64, fp Fingerprint) *FileRecord {
	return &FileRecord{
		SchemaVersion: CurrentSchemaVersion,
		FileID: fileID,
		Source: SourceLocal,
		Path: path,
		Filename: filename,
		Extension: extension,
		SizeBytes: size,
		CreatedAt: createdAt,
		ModifiedAt: modifiedAt,
		Fingerprint: fp,
	}
}

// ChunkMetadata is a tagged union of the location fields required by a
// chunk's source file type. Only the fields relevant to ExtractionType
// are populated; the others are left at their zero value. Required-field
// validation (invariants) happens in ValidateForType.
type ChunkMetadata struct {
	// HeaderPath is required (possibly empty) for Word and Markdown chunks.
	HeaderPath []string `json:"header_path,omitempty"`

	// Page is required, positive, for PDF chunks.
	Page int `json:"page,omitempty"`

	// Slide and SlideTitle are required (Slide positive) for PowerPoint chunks.
	Slide int `json:"slide,omitempty"`
	SlideTitle string `json:"slide_title,omitempty"`

	// Sheet and RowRange are required (non-empty, matching `\d+-\d+`) for Excel chunks.
	Sheet string `json:"sheet,omitempty"`
	RowRange string `json:"row_range,omitempty"`
}

// ExtractionType identifies which format-specific rule produced a chunk,
// and therefore which ChunkMetadata fields are required.
type ExtractionType string

const (
	ExtractionWord ExtractionType = "word"
	ExtractionPPT ExtractionType = "ppt"
	ExtractionExcel ExtractionType = "excel"
	ExtractionPDF ExtractionType = "pdf"
	ExtractionMD ExtractionType = "markdown"
	ExtractionEmail ExtractionType = "email"
)

// ChunkRecord is a retrievable unit of extracted text. It exists only for
// content-indexed files (schema invariant).
type ChunkRecord struct {
	SchemaVersion string `json:"schema_version"`
	ChunkID string `json:"chunk_id"`
	FileID string `json:"file_id"`
	ChunkIndex int `json:"chunk_index"`
	Text string `json:"text"`
	Embedding []float32 `json:"embedding"`
	Tokens []string `json:"tokens"`
	ExtractionType ExtractionType `json:"extraction_type"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Scores carries the per-source contributions behind a file's final score,
// so the UI can explain why a result ranked where it did.
type Scores struct {
	Final float64 `json:"final"`
	Dense float64 `json:"dense"`
	Lexical float64 `json:"lexical"`
}

// Location mirrors the subset of ChunkMetadata relevant to a single piece
// of evidence; it is flattened onto Evidence so the UI never has to know
// about ExtractionType tagging.
type Location struct {
	Page int `json:"page,omitempty"`
	Slide int `json:"slide,omitempty"`
	SlideTitle string `json:"slide_title,omitempty"`
	Sheet string `json:"sheet,omitempty"`
	RowRange string `json:"row_range,omitempty"`
	HeaderPath []string `json:"header_path,omitempty"`
}

// HighlightSpan marks a matched-token region within a snippet, as a
// half-open byte range [Start, End) into Snippet.
type HighlightSpan struct {
	Start int `json:"start"`
	End int `json:"end"`
}

// Evidence is a query-time explanation attached to a search result. It is
// never persisted — it is assembled fresh from chunk data each query.
type Evidence struct {
	EvidenceID string `json:"evidence_id"`
	FileID string `json:"file_id"`
	Summary string `json:"summary"`
	Snippet string `json:"snippet"`
	Highlights []HighlightSpan `json:"highlights,omitempty"`
	Scores Scores `json:"scores"`
	Location Location `json:"location"`
}

// MatchType records which retrieval source(s) contributed to a result.
type MatchType string

const (
	MatchSemantic MatchType = "semantic"
	MatchLexical MatchType = "lexical"
	MatchHybrid MatchType = "hybrid"
)

// SearchResult is one file-granular hit in a SearchResponse.
type SearchResult struct {
	FileID string `json:"file_id"`
	Path string `json:"path"`
	Filename string `json:"filename"`
	ContentAvailable bool `json:"content_available"`
	MatchType MatchType `json:"match_type"`
	FinalFileScore float64 `json:"final_file_score"`
	Evidences []Evidence `json:"evidences"`
}

// SearchResponse is returned verbatim to the UI; the engine performs no
// presentation work beyond assembling this record.
type SearchResponse struct {
	Query string `json:"query"`
	ElapsedMS int64 `json:"elapsed_ms"`
	Results []SearchResult `json:"results"`
	Error string `json:"error,omitempty"`
}

// ManifestEntry is the per-path record the Manifest Store diffs against on
// the next scan.
type ManifestEntry struct {
	FileID string `json:"file_id"`
	Fingerprint Fingerprint `json:"fingerprint"`
	LastIndexedAt float64 `json:"last_indexed_at"`
}

// Manifest is the single authoritative source of incremental indexing
// state: absolute path -> {file_id, fingerprint, last_indexed_at}.
type Manifest struct {
	SchemaVersion string `json:"schema_version"`
	Entries map[string]ManifestEntry `json:"entries"`
}

// NewManifest returns an empty, current-version manifest.
func NewManifest() *Manifest {
	return &Manifest{
		SchemaVersion: CurrentSchemaVersion,
		Entries: make(map[string]ManifestEntry),
	}
}

// ValidateForType checks that m carries the required location fields for
// extractionType. It returns a human-readable reason when validation
// fails, so callers can log why a chunk was discarded.
func (m ChunkMetadata) ValidateForType(extractionType ExtractionType) (bool, string) {
	switch extractionType {
	case ExtractionPDF:
		if m.Page <= 0 {
			return false, "pdf chunk missing positive page number"
		}
	case ExtractionPPT:
		if m.Slide <= 0 {
			return false, "ppt chunk missing positive slide number"
		}
	case ExtractionExcel:
		if m.Sheet == "" {
			return false, "excel chunk missing sheet name"
		}
		if !rowRangePattern.MatchString(m.RowRange) {
			return false, "excel chunk row_range does not match \\d+-\\d+"
		}
	case ExtractionWord, ExtractionMD:
		// header_path must exist as a field but may be empty; nil vs.
		// empty slice are both acceptable, there is nothing further to check.
	case ExtractionEmail:
		// No location metadata is required for email chunks.
	}
	return true, ""
}

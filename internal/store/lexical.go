package store

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/localfinderx/localfinderx/internal/xerrors"
)

// pretokenizedTokenizerName names the whitespace tokenizer registered
// below. Input text is already lowercased and stop-word filtered by
// internal/tokenize before it reaches this store, so the Bleve-side
// analyzer does no further transformation — it only has to split on the
// spaces the tokenizer package joined tokens with.
const pretokenizedTokenizerName = "pretokenized"
const pretokenizedAnalyzerName = "pretokenized_analyzer"

func init() {
	_ = registry.RegisterTokenizer(pretokenizedTokenizerName, pretokenizedTokenizerConstructor)
}

// DocKind distinguishes the two logical collections that live inside
// one physical index.
type DocKind string

const (
	DocKindChunk DocKind = "chunk"
	DocKindFile DocKind = "file"
)

// lexicalDoc is the Bleve-indexed document shape. DocKind and FileID are
// stored as keyword fields (not tokenized); Tokens is the only analyzed
// field.
type lexicalDoc struct {
	DocKind string `json:"doc_kind"`
	FileID string `json:"file_id"`
	Tokens string `json:"tokens"`
}

// LexicalHit is one result row: (doc_id, file_id, doc_kind, score).
type LexicalHit struct {
	DocID string
	FileID string
	DocKind DocKind
	Score float64
}

// LexicalStore is the BM25 store used for lexical retrieval.
type LexicalStore struct {
	mu sync.RWMutex
	index bleve.Index
	closed bool
}

// NewLexicalStore creates an in-memory index, used by tests and by
// NewLexicalStoreAt when path is empty.
func NewLexicalStore() (*LexicalStore, error) {
	idxMapping, err := lexicalIndexMapping()
	if err != nil {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to build lexical index mapping", err)
	}
	idx, err := bleve.NewMemOnly(idxMapping)
	if err != nil {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to create in-memory lexical index", err)
	}
	return &LexicalStore{index: idx}, nil
}

// NewLexicalStoreAt opens (or creates) a disk-backed index at path,
// matching data/bm25.bin in the on-disk layout.
func NewLexicalStoreAt(path string) (*LexicalStore, error) {
	idxMapping, err := lexicalIndexMapping()
	if err != nil {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to build lexical index mapping", err)
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, idxMapping)
	}
	if err != nil {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreRead, fmt.Sprintf("failed to open lexical index at %s", path), err)
	}
	return &LexicalStore{index: idx}, nil
}

func lexicalIndexMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	if err := m.AddCustomAnalyzer(pretokenizedAnalyzerName, map[string]interface{}{
		"type": custom.Name,
		"tokenizer": pretokenizedTokenizerName,
	}); err != nil {
		return nil, err
	}

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"

	tokensField := bleve.NewTextFieldMapping()
	tokensField.Analyzer = pretokenizedAnalyzerName
	tokensField.IncludeTermVectors = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("doc_kind", keywordField)
	docMapping.AddFieldMappingsAt("file_id", keywordField)
	docMapping.AddFieldMappingsAt("tokens", tokensField)

	m.DefaultMapping = docMapping
	m.DefaultAnalyzer = pretokenizedAnalyzerName
	// Bleve scores with TF-IDF unless the mapping selects BM25.
	m.ScoringModel = "bm25"
	return m, nil
}

// IndexChunk indexes a chunk-level document. A chunk with no tokens is
// excluded from scoring rather than indexed as an empty doc.
func (s *LexicalStore) IndexChunk(chunkID, fileID string, tokens []string) error {
	return s.indexDoc(chunkID, fileID, DocKindChunk, tokens)
}

// IndexFile indexes a file-level document built from filename, path
// segments and author tokens — produced for every file, content-indexed
// or not.
func (s *LexicalStore) IndexFile(fileID string, tokens []string) error {
	return s.indexDoc(fileID, fileID, DocKindFile, tokens)
}

func (s *LexicalStore) indexDoc(docID, fileID string, kind DocKind, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "lexical store is closed", nil)
	}

	doc := lexicalDoc{
		DocKind: string(kind),
		FileID: fileID,
		Tokens: strings.Join(tokens, " "),
	}
	if err := s.index.Index(compositeDocID(kind, docID), doc); err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, fmt.Sprintf("failed to index %s document %s", kind, docID), err)
	}
	return nil
}

// RemoveFile removes both the chunk-level and file-level documents
// associated with fileID. The caller supplies the chunk IDs, since Bleve
// has no native "delete by field" primitive.
func (s *LexicalStore) RemoveFile(fileID string, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "lexical store is closed", nil)
	}

	batch := s.index.NewBatch()
	batch.Delete(compositeDocID(DocKindFile, fileID))
	for _, chunkID := range chunkIDs {
		batch.Delete(compositeDocID(DocKindChunk, chunkID))
	}
	if err := s.index.Batch(batch); err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, fmt.Sprintf("failed to remove file %s from lexical store", fileID), err)
	}
	return nil
}

// Search runs query_tokens against the index and returns up to topN
// hits across both doc kinds.
func (s *LexicalStore) Search(queryTokens []string, topN int) ([]LexicalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreRead, "lexical store is closed", nil)
	}
	if len(queryTokens) == 0 {
		return []LexicalHit{}, nil
	}

	q := bleve.NewMatchQuery(strings.Join(queryTokens, " "))
	q.SetField("tokens")
	q.Analyzer = pretokenizedAnalyzerName

	req := bleve.NewSearchRequest(q)
	req.Size = topN
	req.Fields = []string{"doc_kind", "file_id"}

	result, err := s.index.Search(req)
	if err != nil {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreRead, "lexical search failed", err)
	}

	hits := make([]LexicalHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		kind, _ := hit.Fields["doc_kind"].(string)
		fileID, _ := hit.Fields["file_id"].(string)
		hits = append(hits, LexicalHit{
			DocID: hit.ID,
			FileID: fileID,
			DocKind: DocKind(kind),
			Score: hit.Score,
		})
	}
	return hits, nil
}

// Close closes the underlying Bleve index. Idempotent.
func (s *LexicalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}

// compositeDocID namespaces doc_kind into the Bleve document ID so that a
// chunk and a file can never collide even when one was, by coincidence,
// assigned the same underlying UUID text as the other (defense in depth;
// file_id and chunk_id are both UUIDs drawn from the same generator).
func compositeDocID(kind DocKind, id string) string {
	return string(kind) + ":" + id
}

// pretokenizedTokenizerConstructor builds a whitespace tokenizer: our own
// tokenizer package has already done lowercasing, stop-word filtering and
// Korean/English segmentation by the time text reaches this store.
func pretokenizedTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &whitespaceTokenizer{}, nil
}

type whitespaceTokenizer struct{}

func (whitespaceTokenizer) Tokenize(input []byte) analysis.TokenStream {
	fields := strings.Fields(string(input))
	stream := make(analysis.TokenStream, 0, len(fields))
	offset := 0
	for i, f := range fields {
		start := strings.Index(string(input[offset:]), f)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(f)
		stream = append(stream, &analysis.Token{
			Term: []byte(f),
			Start: start,
			End: end,
			Position: i + 1,
			Type: analysis.AlphaNumeric,
		})
		offset = end
	}
	return stream
}

// pathExists reports whether anything exists at path.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

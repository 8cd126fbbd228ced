// Package store holds the two retrieval-side persistence engines: a
// vector store over chunk embeddings and a BM25 lexical store over
// chunk- and file-level documents, both keyed around file_id and the
// insert/delete/search contracts the indexing and search pipelines need.
package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/localfinderx/localfinderx/internal/xerrors"
)

// VectorRow is one chunk row as required by design: insert_many rejects any
// row whose extraction-type-required metadata is missing before it ever
// reaches this package — the vector store itself only validates
// dimension.
type VectorRow struct {
	ChunkID string
	FileID string
	ChunkIndex int
	Vector []float32
	ContentIndexed bool
}

// VectorHit is one result from Search: (chunk_id, file_id, score).
type VectorHit struct {
	ChunkID string
	FileID string
	Score float32
}

// VectorFilter restricts a search to rows matching the given predicate.
// Only ContentIndexed is defined today (its "filter may restrict
// content_indexed=true"); it is always true in practice since only
// content-indexed files ever produce chunk rows, but the filter is kept
// explicit so a future row-source that relaxes that invariant doesn't
// silently change search semantics.
type VectorFilter struct {
	ContentIndexedOnly bool
}

// VectorStoreConfig configures the underlying HNSW graph.
type VectorStoreConfig struct {
	Dimensions int
	M int
	EfConstruction int
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for dimensions
// discovered from the active embedder.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		M: 16,
		EfConstruction: 128,
		EfSearch: 64,
	}
}

// VectorStore is the embedded columnar chunk store used for dense retrieval.
type VectorStore interface {
	InsertMany(ctx context.Context, rows []VectorRow) error
	DeleteByFileID(ctx context.Context, fileID string) error
	Search(ctx context.Context, queryVec []float32, topN int, filter VectorFilter) ([]VectorHit, error)
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// HNSWVectorStore implements VectorStore on top of coder/hnsw, a
// pure-Go HNSW library that avoids a CGO dependency.
type HNSWVectorStore struct {
	mu sync.RWMutex
	graph *hnsw.Graph[uint64]
	config VectorStoreConfig

	idMap map[string]uint64 // chunk_id -> internal key
	keyMap map[uint64]string // internal key -> chunk_id
	fileMap map[string]map[string]uint64 // file_id -> chunk_id -> internal key
	keyFile map[uint64]string // internal key -> file_id
	nextKey uint64

	closed bool
}

// hnswMetadata is the gob-encoded side file persisted next to the graph
// export, carrying everything the graph itself doesn't.
type hnswMetadata struct {
	IDMap map[string]uint64
	FileMap map[string]map[string]uint64
	NextKey uint64
	Config VectorStoreConfig
}

// NewHNSWVectorStore builds an empty store for cfg.
func NewHNSWVectorStore(cfg VectorStoreConfig) *HNSWVectorStore {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWVectorStore{
		graph: graph,
		config: cfg,
		idMap: make(map[string]uint64),
		keyMap: make(map[uint64]string),
		fileMap: make(map[string]map[string]uint64),
		keyFile: make(map[uint64]string),
	}
}

// InsertMany appends chunk rows, normalizing vectors for cosine search.
// Re-inserting an existing chunk_id replaces it via lazy deletion: the
// teacher's comment about a coder/hnsw bug on deleting the last graph
// node still applies, so old keys are orphaned rather than removed.
func (s *HNSWVectorStore) InsertMany(ctx context.Context, rows []VectorRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "vector store is closed", nil)
	}

	for _, row := range rows {
		if len(row.Vector) != s.config.Dimensions {
			return xerrors.StoreError(xerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("chunk %s: expected %d dims, got %d", row.ChunkID, s.config.Dimensions, len(row.Vector)), nil)
		}

		s.forgetLocked(row.ChunkID)

		vec := make([]float32, len(row.Vector))
		copy(vec, row.Vector)
		normalizeVectorInPlace(vec)

		key := s.nextKey
		s.nextKey++

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[row.ChunkID] = key
		s.keyMap[key] = row.ChunkID
		s.keyFile[key] = row.FileID

		if s.fileMap[row.FileID] == nil {
			s.fileMap[row.FileID] = make(map[string]uint64)
		}
		s.fileMap[row.FileID][row.ChunkID] = key
	}

	return nil
}

// forgetLocked orphans any existing entry for chunkID. Caller holds s.mu.
func (s *HNSWVectorStore) forgetLocked(chunkID string) {
	key, exists := s.idMap[chunkID]
	if !exists {
		return
	}
	fileID := s.keyFile[key]
	delete(s.keyMap, key)
	delete(s.keyFile, key)
	delete(s.idMap, chunkID)
	if chunks, ok := s.fileMap[fileID]; ok {
		delete(chunks, chunkID)
		if len(chunks) == 0 {
			delete(s.fileMap, fileID)
		}
	}
}

// DeleteByFileID removes all chunks belonging to fileID. This must be
// atomic with respect to subsequent search — callers always see
// either all of a file's chunks or none, since the whole deletion happens
// under a single write lock.
func (s *HNSWVectorStore) DeleteByFileID(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "vector store is closed", nil)
	}

	chunks, ok := s.fileMap[fileID]
	if !ok {
		return nil
	}
	for chunkID, key := range chunks {
		delete(s.idMap, chunkID)
		delete(s.keyMap, key)
		delete(s.keyFile, key)
	}
	delete(s.fileMap, fileID)
	return nil
}

// Search returns the top-N nearest chunks to queryVec by cosine
// similarity. An empty store returns an empty slice. A closed store or a
// query vector of the wrong dimension returns an error, which the Dense
// Retriever turns into an empty result.
func (s *HNSWVectorStore) Search(ctx context.Context, queryVec []float32, topN int, filter VectorFilter) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreRead, "vector store is closed", nil)
	}
	if len(queryVec) != s.config.Dimensions {
		return nil, xerrors.StoreError(xerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query: expected %d dims, got %d", s.config.Dimensions, len(queryVec)), nil)
	}
	if s.graph.Len() == 0 {
		return []VectorHit{}, nil
	}

	q := make([]float32, len(queryVec))
	copy(q, queryVec)
	normalizeVectorInPlace(q)

	// Over-fetch since lazily-deleted orphan nodes still live in the
	// graph and must be filtered out after the fact.
	nodes := s.graph.Search(q, topN*3+10)

	hits := make([]VectorHit, 0, topN)
	for _, node := range nodes {
		chunkID, ok := s.keyMap[node.Key]
		if !ok {
			continue // orphaned (lazily deleted) node
		}
		fileID := s.keyFile[node.Key]
		if filter.ContentIndexedOnly {
			// Every row in this store is content-indexed by construction
			// (only content-indexed files ever produce chunks), so this
			// filter is currently a no-op guard rather than a real
			// exclusion — kept explicit in the interface contract.
		}
		distance := s.graph.Distance(q, node.Value)
		hits = append(hits, VectorHit{
			ChunkID: chunkID,
			FileID: fileID,
			Score: 1.0 - distance/2.0,
		})
		if len(hits) >= topN {
			break
		}
	}
	return hits, nil
}

// Count returns the number of live (non-orphaned) chunk rows.
func (s *HNSWVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

// Save persists the graph and its ID mappings atomically under dir,
// matching the on-disk layout's data/lancedb/ directory.
func (s *HNSWVectorStore) Save(dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "vector store is closed", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to create vector store directory", err)
	}

	graphPath := filepath.Join(dir, "graph.bin")
	tmpGraphPath := graphPath + ".tmp"
	file, err := os.Create(tmpGraphPath)
	if err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to create graph file", err)
	}
	if err := s.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpGraphPath)
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to export hnsw graph", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpGraphPath)
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to close graph file", err)
	}
	if err := os.Rename(tmpGraphPath, graphPath); err != nil {
		os.Remove(tmpGraphPath)
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to commit graph file", err)
	}

	return s.saveMetadata(filepath.Join(dir, "meta.gob"))
}

func (s *HNSWVectorStore) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to create metadata file", err)
	}

	meta := hnswMetadata{
		IDMap: s.idMap,
		FileMap: s.fileMap,
		NextKey: s.nextKey,
		Config: s.config,
	}

	enc := gob.NewEncoder(file)
	if err := enc.Encode(meta); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to encode vector store metadata", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to close metadata file", err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores a previously saved store from dir. Reopen-safe: a search
// immediately after Load returns identical results to before the prior
// Save.
func (s *HNSWVectorStore) Load(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return xerrors.StoreError(xerrors.ErrCodeStoreRead, "vector store is closed", nil)
	}

	metaPath := filepath.Join(dir, "meta.gob")
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		return nil // fresh start, nothing to load
	}
	if err := s.loadMetadata(metaPath); err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreRead, "failed to load vector store metadata", err)
	}

	graphPath := filepath.Join(dir, "graph.bin")
	file, err := os.Open(graphPath)
	if err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreRead, "failed to open graph file", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	if err := s.graph.Import(reader); err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreRead, "failed to import hnsw graph", err)
	}
	return nil
}

func (s *HNSWVectorStore) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close vector store metadata file", slog.String("error", cerr.Error()))
		}
	}()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return err
	}

	s.idMap = meta.IDMap
	s.fileMap = meta.FileMap
	s.nextKey = meta.NextKey
	s.config = meta.Config

	s.keyMap = make(map[uint64]string, len(s.idMap))
	s.keyFile = make(map[uint64]string, len(s.idMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	for fileID, chunks := range s.fileMap {
		for _, key := range chunks {
			s.keyFile[key] = fileID
		}
	}
	return nil
}

// Close releases resources. Idempotent.
func (s *HNSWVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

var _ VectorStore = (*HNSWVectorStore)(nil)

// normalizeVectorInPlace normalizes v to unit length in place; the
// unit-length invariant (|embedding|₂ ≈ 1) falls out of always
// normalizing both inserted and queried vectors here. An all-zero
// vector is left unchanged.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// Package index implements the Indexing Orchestrator described here: the
// state machine that turns a set of roots into file and chunk records in
// the vector, lexical, and records stores, driven off the diff the
// Manifest Store computes against the previous run.
//
// It deliberately has no gitignore-aware incremental reconciliation
// (subtree rescans, pattern-diff detection) or Ollama-backed
// contextual-enrichment stage — this engine has no git-repository
// concept, and has no contextual-retrieval step. Incremental indexing
// here is driven entirely by
// internal/manifest's fingerprint diff, which already tells the
// orchestrator exactly which paths changed without needing to reason
// about what changed a directory's ignore rules.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/localfinderx/localfinderx/internal/chunk"
	"github.com/localfinderx/localfinderx/internal/config"
	"github.com/localfinderx/localfinderx/internal/embed"
	"github.com/localfinderx/localfinderx/internal/extract"
	"github.com/localfinderx/localfinderx/internal/manifest"
	"github.com/localfinderx/localfinderx/internal/scanner"
	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/store"
	"github.com/localfinderx/localfinderx/internal/tokenize"
	"github.com/localfinderx/localfinderx/internal/xerrors"
)

// Deps wires every component the orchestrator drives. All fields except
// Embedder are required; a nil Embedder means this run has no working
// embedding backend (startup model-load failure) and every file is
// processed as metadata-only regardless of its extension.
type Deps struct {
	Scanner *scanner.Scanner
	Manifest *manifest.Store
	Tokenizer *tokenize.Tokenizer
	Embedder embed.Embedder
	Vector *store.HNSWVectorStore
	Lexical *store.LexicalStore
	Records *store.RecordStore
	Perf config.PerformanceSettings
}

// Options controls a single Index call.
type Options struct {
	Roots []string
	ExcludeGlobs []string
	IncludeHidden bool

	// OnFileFailed, if set, is called once per isolated per-file failure
	// (an extraction failure that downgraded the file) — the failure kind
	// that doesn't abort the run. It is called from the run's own
	// goroutine after the workers finish, never concurrently.
	OnFileFailed func(FileFailure)
}

// Indexer drives scan -> diff -> per-file pipeline -> manifest update
// for one data directory's worth of stores.
type Indexer struct {
	deps Deps
}

// NewIndexer validates deps and returns a ready Indexer.
func NewIndexer(deps Deps) (*Indexer, error) {
	if deps.Scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if deps.Manifest == nil {
		return nil, fmt.Errorf("manifest store is required")
	}
	if deps.Vector == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if deps.Lexical == nil {
		return nil, fmt.Errorf("lexical store is required")
	}
	if deps.Records == nil {
		return nil, fmt.Errorf("records store is required")
	}
	if deps.Tokenizer == nil {
		deps.Tokenizer = tokenize.New(nil)
	}
	if deps.Perf.IndexWorkers <= 0 {
		deps.Perf.IndexWorkers = 1
	}
	return &Indexer{deps: deps}, nil
}

// Index starts a run in the background and returns immediately with a
// live Handle. The UI thread is expected to hold onto the Handle and
// poll/cancel it rather than block — by design, indexing never runs on the
// thread that calls Index.
func (ix *Indexer) Index(ctx context.Context, opts Options) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done: make(chan struct{}),
		prog: &progress{},
		onFileFailed: opts.OnFileFailed,
	}

	go func() {
		defer close(h.done)
		defer cancel()
		h.summary, h.err = ix.run(runCtx, opts, h)
	}()

	return h
}

// run implements end to end: scan, diff, process added/changed
// files with bounded concurrency, reconcile removed files, then persist
// the manifest. A fatal store-write error aborts the remainder of the
// run immediately (StoreWriteError is fatal); a per-file extraction
// or embedding failure is isolated and recorded instead.
func (ix *Indexer) run(ctx context.Context, opts Options, h *Handle) (Summary, error) {
	found := make(map[string]scanner.Found)
	var scanned []manifest.ScanEntry

	walkErr := ix.deps.Scanner.Walk(ctx, scanner.Options{
		Roots: opts.Roots,
		ExcludeGlobs: opts.ExcludeGlobs,
		IncludeHidden: opts.IncludeHidden,
	}, func(f scanner.Found) error {
		found[f.AbsPath] = f
		scanned = append(scanned, manifest.ScanEntry{Path: f.AbsPath, Fingerprint: f.Fingerprint})
		return ctx.Err()
	})
	if walkErr != nil {
		return Summary{}, walkErr
	}

	diff := ix.deps.Manifest.Diff(scanned)
	toProcess := append(append([]string{}, diff.Added...), diff.Changed...)
	h.prog.setTotal(len(toProcess) + len(diff.Removed))

	embedderAvailable := ix.deps.Embedder != nil && ix.deps.Embedder.Available(ctx)

	// outcomes is written at most once per index by its own goroutine, so
	// it needs no lock; manifest.Store itself isn't safe for concurrent
	// writers, so every Put/Remove against it happens serially below,
	// after the fan-out finishes.
	outcomes := make([]fileOutcome, len(toProcess))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.deps.Perf.IndexWorkers)

	for i, path := range toProcess {
		i, path := i, path
		f := found[path]
		isChange := false
		existingID := ""
		if entry, ok := ix.deps.Manifest.Entry(path); ok {
			isChange = true
			existingID = entry.FileID
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			h.prog.begin(path)

			fileID := existingID
			if fileID == "" {
				fileID = uuid.NewString()
			}

			// Any error processFile returns at this point is a
			// store-write failure (extraction/embedding failures are
			// handled internally as a metadata-only downgrade, never
			// surfaced as a Go error) — by design that's fatal and aborts
			// the whole run, so it's returned straight to errgroup
			// rather than isolated.
			result, err := ix.processFile(gctx, f, fileID, isChange, embedderAvailable)
			if err != nil {
				return err
			}

			outcomes[i] = fileOutcome{path: path, fileID: fileID, fingerprint: f.Fingerprint, result: result, ok: true}
			h.prog.succeed()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, o := range outcomes {
		if !o.ok {
			continue
		}
		if o.result.downgradeErr != nil {
			slog.Warn("file_downgraded_to_metadata_only", slog.String("path", o.path), slog.String("error", o.result.downgradeErr.Error()))
			if h.onFileFailed != nil {
				h.onFileFailed(FileFailure{Path: o.path, Err: o.result.downgradeErr})
			}
		}
		ix.deps.Manifest.Put(o.path, schema.ManifestEntry{
			FileID: o.fileID,
			Fingerprint: o.fingerprint,
			LastIndexedAt: nowUnix(),
		})
		summary.Total++
		if o.result.contentIndexed {
			summary.ContentIndexed++
		} else {
			summary.MetadataOnly++
		}
	}

	for _, path := range diff.Removed {
		h.prog.begin(path)
		if ctx.Err() != nil {
			break
		}
		entry, ok := ix.deps.Manifest.Entry(path)
		if !ok {
			continue
		}
		if err := ix.removeFile(ctx, entry.FileID); err != nil {
			return summary, err
		}
		ix.deps.Manifest.Remove(path)
		h.prog.succeed()
	}

	if err := ix.deps.Manifest.Save(); err != nil {
		return summary, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to save manifest", err)
	}

	if ctx.Err() != nil {
		return summary, xerrors.New(xerrors.ErrCodeCancelled, "indexing cancelled", ctx.Err())
	}
	return summary, nil
}

// ReindexPaths reindexes exactly the given paths rather than walking a
// whole root, so a watcher-driven change notification can update the
// index without paying for a full scan. A path that no longer exists on
// disk is treated as a removal if the manifest has an entry for it;
// paths outside any configured root are processed anyway — the caller
// (the watcher) is the one that decides which paths are in scope.
func (ix *Indexer) ReindexPaths(ctx context.Context, paths []string, onFileFailed func(FileFailure)) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done: make(chan struct{}),
		prog: &progress{},
		onFileFailed: onFileFailed,
	}

	go func() {
		defer close(h.done)
		defer cancel()
		h.summary, h.err = ix.runPaths(runCtx, paths, h)
	}()

	return h
}

func (ix *Indexer) runPaths(ctx context.Context, paths []string, h *Handle) (Summary, error) {
	h.prog.setTotal(len(paths))
	embedderAvailable := ix.deps.Embedder != nil && ix.deps.Embedder.Available(ctx)

	var summary Summary
	for _, path := range paths {
		if ctx.Err() != nil {
			return summary, xerrors.New(xerrors.ErrCodeCancelled, "indexing cancelled", ctx.Err())
		}
		h.prog.begin(path)

		entry, existed := ix.deps.Manifest.Entry(path)

		f, statErr := scanner.Classify(path)
		if statErr != nil {
			// Gone from disk: reconcile as a removal if it was ever
			// indexed, otherwise there's nothing to do.
			if existed {
				if err := ix.removeFile(ctx, entry.FileID); err != nil {
					return summary, err
				}
				ix.deps.Manifest.Remove(path)
				if err := ix.deps.Manifest.Save(); err != nil {
					return summary, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to save manifest", err)
				}
			}
			h.prog.succeed()
			continue
		}

		fileID := entry.FileID
		if fileID == "" {
			fileID = uuid.NewString()
		}

		result, err := ix.processFile(ctx, f, fileID, existed, embedderAvailable)
		if err != nil {
			return summary, err
		}

		ix.deps.Manifest.Put(path, schema.ManifestEntry{
			FileID: fileID,
			Fingerprint: f.Fingerprint,
			LastIndexedAt: nowUnix(),
		})
		if result.downgradeErr != nil {
			slog.Warn("file_downgraded_to_metadata_only", slog.String("path", path), slog.String("error", result.downgradeErr.Error()))
			if h.onFileFailed != nil {
				h.onFileFailed(FileFailure{Path: path, Err: result.downgradeErr})
			}
		}
		if err := ix.deps.Manifest.Save(); err != nil {
			return summary, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to save manifest", err)
		}

		summary.Total++
		if result.contentIndexed {
			summary.ContentIndexed++
		} else {
			summary.MetadataOnly++
		}
		h.prog.succeed()
	}

	return summary, nil
}

// fileOutcome is one slot of the per-run results slice, filled in by the
// worker that processed toProcess[i] and consumed serially afterward.
type fileOutcome struct {
	ok bool
	path string
	fileID string
	fingerprint schema.Fingerprint
	result fileResult
}

// fileResult carries what the run loop needs back from processFile
// beyond fatal-error/no-fatal-error: whether the file ended up
// content-indexed, and, if it was downgraded to metadata-only, the
// extraction error that caused the downgrade (reported as a file_failed
// event, but not a reason to fail the run).
type fileResult struct {
	contentIndexed bool
	downgradeErr error
}

// removeFile deletes every trace of fileID from the vector, lexical, and
// records stores, per its removed-path semantics.
func (ix *Indexer) removeFile(ctx context.Context, fileID string) error {
	chunks, err := ix.deps.Records.GetChunksByFile(ctx, fileID)
	if err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreRead, "failed to read chunks before removal", err)
	}
	chunkIDs := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ChunkID
	}

	if err := ix.deps.Vector.DeleteByFileID(ctx, fileID); err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to remove vectors for file", err)
	}
	if err := ix.deps.Lexical.RemoveFile(fileID, chunkIDs); err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to remove lexical docs for file", err)
	}
	if err := ix.deps.Records.DeleteFile(ctx, fileID); err != nil {
		return xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to remove file record", err)
	}
	return nil
}

// processFile runs one file through the state machine:
// Scanned -> Classified -> {ContentPath | MetadataPath} -> Persisted.
// On a changed file it first tears down the prior chunk rows in every
// store, so reingest never leaves stale chunks behind. Extraction
// failure on a content-indexed file downgrades it to metadata-only
// rather than failing the file outright — the file record is still
// written, just without chunks.
func (ix *Indexer) processFile(ctx context.Context, f scanner.Found, fileID string, isChange bool, embedderAvailable bool) (fileResult, error) {
	if isChange {
		if err := ix.removeFile(ctx, fileID); err != nil {
			return fileResult{}, err
		}
	}

	rec := schema.NewFileRecord(fileID, f.AbsPath, f.Filename, f.Extension, f.SizeBytes, f.CreatedAt, f.ModifiedAt, f.Fingerprint)

	contentIndexed := false
	var downgradeErr error
	if f.ContentIndexed && embedderAvailable {
		chunks, extractErr := ix.contentPath(ctx, fileID, f)
		switch {
		case extractErr == nil:
			contentIndexed = true
			rec.IndexStats = schema.IndexStats{ChunkCount: len(chunks), LastIndexedAt: nowUnix()}
		case isFatalStoreError(extractErr):
			// A store write/read failed, not extraction itself — by design
			// that aborts the whole run rather than just this file.
			return fileResult{}, extractErr
		default:
			// Downgrade to metadata-only: the file record is preserved,
			// the error is recorded, and the pipeline moves on.
			downgradeErr = extractErr
			rec.IndexStats = schema.IndexStats{ChunkCount: 0, LastIndexedAt: nowUnix(), IndexError: extractErr.Error()}
		}
	} else {
		rec.IndexStats = schema.IndexStats{ChunkCount: 0, LastIndexedAt: nowUnix()}
	}
	rec.ContentIndexed = contentIndexed

	// IndexLexicalFile always runs, content-indexed or not, so every file
	// participates in file-level BM25 search.
	fileTokens := ix.deps.Tokenizer.Tokenize(f.Filename)
	if err := ix.deps.Lexical.IndexFile(fileID, fileTokens); err != nil {
		return fileResult{}, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to index file-level lexical doc", err)
	}

	if err := ix.deps.Records.SaveFile(ctx, *rec); err != nil {
		return fileResult{}, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to save file record", err)
	}

	return fileResult{contentIndexed: contentIndexed, downgradeErr: downgradeErr}, nil
}

// isFatalStoreError reports whether err came from a store read/write
// rather than from extraction or embedding — the former aborts the run,
// the latter only downgrades the one file.
func isFatalStoreError(err error) bool {
	switch xerrors.GetCode(err) {
	case xerrors.ErrCodeStoreWrite, xerrors.ErrCodeStoreRead:
		return true
	default:
		return false
	}
}

// contentPath runs Extract -> Chunk -> Tokenize -> Embed -> persist for
// one content-indexed file. A per-chunk embedding failure discards that
// chunk rather than the whole file; an extraction failure is returned to
// the caller, which downgrades the file to metadata-only.
func (ix *Indexer) contentPath(ctx context.Context, fileID string, f scanner.Found) ([]schema.ChunkRecord, error) {
	result, err := extract.Extract(f.AbsPath)
	if err != nil {
		return nil, err
	}

	chunks, _ := chunk.Build(fileID, result)
	if len(chunks) == 0 {
		if err := ix.deps.Vector.DeleteByFileID(ctx, fileID); err != nil {
			return nil, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to clear vectors for empty-chunk file", err)
		}
		if err := ix.deps.Records.SaveChunks(ctx, fileID, nil); err != nil {
			return nil, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to clear chunk records for empty-chunk file", err)
		}
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batchSize := ix.deps.Perf.EmbedBatchSize
	if batchSize < embed.MinBatchSize {
		batchSize = embed.DefaultBatchSize
	}
	if batchSize > embed.MaxBatchSize {
		batchSize = embed.MaxBatchSize
	}

	var rows []store.VectorRow
	var kept []schema.ChunkRecord
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		vectors, embedErr := ix.deps.Embedder.EmbedBatch(ctx, texts[start:end])
		if embedErr != nil {
			// The batch failed as a whole; embed its chunks one at a time
			// so only the chunks that fail on their own are discarded.
			slog.Warn("embed_batch_failed", slog.String("file_id", fileID), slog.String("error", embedErr.Error()))
			vectors = make([][]float32, end-start)
			for i := start; i < end; i++ {
				if vec, err := ix.deps.Embedder.Embed(ctx, texts[i]); err == nil {
					vectors[i-start] = vec
				}
			}
		}
		for i, vec := range vectors {
			if vec == nil {
				continue
			}
			c := chunks[start+i]
			c.Tokens = ix.deps.Tokenizer.Tokenize(c.Text)
			kept = append(kept, c)
			rows = append(rows, store.VectorRow{
				ChunkID: c.ChunkID,
				FileID: fileID,
				ChunkIndex: c.ChunkIndex,
				Vector: vec,
				ContentIndexed: true,
			})
		}
	}

	if err := ix.deps.Vector.InsertMany(ctx, rows); err != nil {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to insert chunk vectors", err)
	}
	for _, c := range kept {
		if err := ix.deps.Lexical.IndexChunk(c.ChunkID, fileID, c.Tokens); err != nil {
			return nil, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to index chunk lexical doc", err)
		}
	}
	if err := ix.deps.Records.SaveChunks(ctx, fileID, kept); err != nil {
		return nil, xerrors.StoreError(xerrors.ErrCodeStoreWrite, "failed to save chunk records", err)
	}

	return kept, nil
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

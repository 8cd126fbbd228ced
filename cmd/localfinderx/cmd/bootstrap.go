package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/localfinderx/localfinderx/internal/config"
	"github.com/localfinderx/localfinderx/internal/embed"
	"github.com/localfinderx/localfinderx/internal/manifest"
	"github.com/localfinderx/localfinderx/internal/paths"
	"github.com/localfinderx/localfinderx/internal/scanner"
	"github.com/localfinderx/localfinderx/internal/store"
	"github.com/localfinderx/localfinderx/internal/tokenize"
)

// session bundles every store and collaborator a command needs, opened
// against one Layout. Commands that only read (search, status, index
// info) and commands that write (index, watch) both go through this so
// there is exactly one place that knows the on-disk layout and open
// order.
type session struct {
	layout   *paths.Layout
	settings *config.Settings

	vector   *store.HNSWVectorStore
	lexical  *store.LexicalStore
	records  *store.RecordStore
	manifest *manifest.Store

	tokenizer *tokenize.Tokenizer
	embedder  embed.Embedder
	device    string
}

// openSession resolves the Layout at dataDir (or the OS default if
// empty), ensures its directories exist, loads settings.json, and opens
// every store. noModel forces the fallback embedder, bypassing the ONNX
// model entirely — useful for --offline runs and for doctor/status paths
// that must not fail just because no model is installed.
func openSession(ctx context.Context, dataDir string, noModel bool) (*session, error) {
	var layout *paths.Layout
	var err error
	if dataDir != "" {
		layout, err = paths.ResolveUnder(dataDir)
	} else {
		layout, err = paths.Resolve()
	}
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	if err := layout.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	settings, err := config.Load(layout.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	analyzer, available := tokenize.DetectKoreanAnalyzer()
	settings.Capabilities.KoreanAnalyzerAvailable = available
	tok := tokenize.New(analyzer)

	// A missing or unloadable model leaves the run with no working
	// embedder: a closed FallbackEmbedder keeps the vector dimension but
	// reports Available() == false, so indexing downgrades every file to
	// metadata-only and search runs lexical-only.
	unavailable := func() embed.Embedder {
		fb := embed.NewFallbackEmbedder()
		_ = fb.Close()
		return fb
	}
	var embedder embed.Embedder
	device := "cpu"
	if noModel {
		embedder = embed.NewFallbackEmbedder()
	} else {
		modelDir := embed.DefaultModelsDir()
		if locErr := embed.NewModelLocator(modelDir).Ensure(); locErr != nil {
			slog.Warn("embedding_model_unavailable", slog.String("error", locErr.Error()))
			embedder = unavailable()
		} else {
			e, dev, loadErr := embed.NewEmbedder(ctx, modelDir, "")
			if loadErr != nil {
				slog.Warn("embedder_load_failed", slog.String("error", loadErr.Error()))
				embedder = unavailable()
			} else {
				embedder, device = e, dev
			}
		}
	}
	settings.Capabilities.EmbeddingDevice = device

	records, err := store.NewRecordStore(layout.RecordsDBPath)
	if err != nil {
		return nil, fmt.Errorf("open records store: %w", err)
	}
	lexical, err := store.NewLexicalStoreAt(layout.LexicalIndexPath)
	if err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("open lexical store: %w", err)
	}

	vec := store.NewHNSWVectorStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	if err := vec.Load(layout.VectorStoreDir); err != nil {
		_ = lexical.Close()
		_ = records.Close()
		return nil, fmt.Errorf("load vector store: %w", err)
	}

	man, err := manifest.Open(layout.ManifestPath)
	if man == nil {
		_ = lexical.Close()
		_ = records.Close()
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	if err != nil {
		slog.Warn("manifest_degraded", slog.String("error", err.Error()))
	}

	return &session{
		layout:    layout,
		settings:  settings,
		vector:    vec,
		lexical:   lexical,
		records:   records,
		manifest:  man,
		tokenizer: tok,
		embedder:  embedder,
		device:    device,
	}, nil
}

// persist saves the vector graph and manifest back to disk. The records
// and lexical stores write through on every call, so only these two need
// an explicit flush. Callers that only read (search, status) do not call
// this.
func (s *session) persist() error {
	if err := s.vector.Save(s.layout.VectorStoreDir); err != nil {
		return fmt.Errorf("save vector store: %w", err)
	}
	if err := s.manifest.Save(); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// Close releases every open handle. Safe to call once after persist (or
// instead of it, for read-only commands).
func (s *session) Close() error {
	var firstErr error
	if err := s.lexical.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.records.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// newScanner builds the Scanner used by every indexing entry point.
func newScanner() *scanner.Scanner {
	return scanner.New()
}

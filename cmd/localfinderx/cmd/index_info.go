package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localfinderx/localfinderx/internal/telemetry"
	"github.com/localfinderx/localfinderx/internal/ui"
)

// indexInfo is the diagnostics snapshot index info reports: store sizes,
// counts, the embedder currently configured, and query telemetry.
type indexInfo struct {
	DataDir string `json:"data_dir"`

	FileCount           int `json:"file_count"`
	ContentIndexedCount int `json:"content_indexed_count"`
	ChunkCount          int `json:"chunk_count"`
	VectorCount         int `json:"vector_count"`

	MetadataSizeBytes  int64 `json:"metadata_size_bytes"`
	BM25SizeBytes      int64 `json:"bm25_size_bytes"`
	VectorSizeBytes    int64 `json:"vector_size_bytes"`
	TelemetrySizeBytes int64 `json:"telemetry_size_bytes"`

	EmbedderDevice     string `json:"embedder_device"`
	EmbedderDimensions int    `json:"embedder_dimensions"`
	KoreanAnalyzer     bool   `json:"korean_analyzer_available"`

	Telemetry *telemetry.QueryMetricsSnapshot `json:"telemetry,omitempty"`
}

func newIndexInfoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show index configuration, store sizes, and query telemetry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sess, err := openSession(ctx, dataDirFlag, true)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			stats, err := sess.records.Stats(ctx)
			if err != nil {
				return fmt.Errorf("read store stats: %w", err)
			}

			info := indexInfo{
				DataDir:             sess.layout.DataDir,
				FileCount:           stats.FileCount,
				ContentIndexedCount: stats.ContentIndexedCount,
				ChunkCount:          stats.ChunkCount,
				VectorCount:         sess.vector.Count(),
				MetadataSizeBytes:   fileSize(sess.layout.RecordsDBPath),
				BM25SizeBytes:       fileSize(sess.layout.LexicalIndexPath),
				VectorSizeBytes:     dirSize(sess.layout.VectorStoreDir),
				TelemetrySizeBytes:  fileSize(sess.layout.TelemetryDBPath),
				EmbedderDevice:      sess.settings.Capabilities.EmbeddingDevice,
				EmbedderDimensions:  sess.embedder.Dimensions(),
				KoreanAnalyzer:      sess.settings.Capabilities.KoreanAnalyzerAvailable,
			}

			if snap, err := readTelemetrySnapshot(sess.layout.TelemetryDBPath); err == nil {
				info.Telemetry = snap
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printIndexInfo(cmd, info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

// readTelemetrySnapshot opens the telemetry database read-only-in-effect
// (no events are recorded here) and returns the current aggregate
// snapshot, or an error if the database can't be opened.
func readTelemetrySnapshot(dbPath string) (*telemetry.QueryMetricsSnapshot, error) {
	db, err := telemetry.OpenMetricsDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		return nil, err
	}
	metrics := telemetry.NewQueryMetrics(metricsStore)
	defer func() { _ = metrics.Close() }()

	return metrics.Snapshot(), nil
}

func printIndexInfo(cmd *cobra.Command, info indexInfo) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Index Information")
	fmt.Fprintln(out, "=================")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Data directory: %s\n", info.DataDir)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Statistics:")
	fmt.Fprintf(out, "  Files:            %d (%d content-indexed)\n", info.FileCount, info.ContentIndexedCount)
	fmt.Fprintf(out, "  Chunks:           %d\n", info.ChunkCount)
	fmt.Fprintf(out, "  Vectors:          %d\n", info.VectorCount)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Storage:")
	fmt.Fprintf(out, "  Metadata:  %s\n", ui.FormatBytes(info.MetadataSizeBytes))
	fmt.Fprintf(out, "  BM25:      %s\n", ui.FormatBytes(info.BM25SizeBytes))
	fmt.Fprintf(out, "  Vectors:   %s\n", ui.FormatBytes(info.VectorSizeBytes))
	fmt.Fprintf(out, "  Telemetry: %s\n", ui.FormatBytes(info.TelemetrySizeBytes))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Embedder:")
	fmt.Fprintf(out, "  Device:     %s\n", info.EmbedderDevice)
	fmt.Fprintf(out, "  Dimensions: %d\n", info.EmbedderDimensions)
	fmt.Fprintf(out, "  Korean analyzer available: %t\n", info.KoreanAnalyzer)
	fmt.Fprintln(out)

	if info.Telemetry != nil {
		t := info.Telemetry
		fmt.Fprintln(out, "Query telemetry:")
		fmt.Fprintf(out, "  Total queries:      %d\n", t.TotalQueries)
		fmt.Fprintf(out, "  Zero-result queries: %d\n", t.ZeroResultCount)
		if len(t.TopTerms) > 0 {
			fmt.Fprintln(out, "  Top terms:")
			for _, tc := range t.TopTerms {
				fmt.Fprintf(out, "    %-20s %d\n", tc.Term, tc.Count)
			}
		}
	}
}

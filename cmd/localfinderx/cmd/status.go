package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localfinderx/localfinderx/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health, storage sizes, and embedder status",
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

			embedderStatus := "ready"
			embedderType := "fallback"
			if sess.settings.Capabilities.EmbeddingDevice != "" && !noModel {
				embedderType = sess.settings.Capabilities.EmbeddingDevice
			}
			if sess.embedder == nil || !sess.embedder.Available(ctx) {
				embedderStatus = "offline"
			}

			info := ui.StatusInfo{
				ProjectName:    sess.layout.Root,
				TotalFiles:     stats.FileCount,
				TotalChunks:    stats.ChunkCount,
				MetadataSize:   fileSize(sess.layout.RecordsDBPath),
				BM25Size:       fileSize(sess.layout.LexicalIndexPath),
				VectorSize:     dirSize(sess.layout.VectorStoreDir),
				EmbedderType:   embedderType,
				EmbedderStatus: embedderStatus,
				WatcherStatus:  "n/a",
			}
			info.TotalSize = info.MetadataSize + info.BM25Size + info.VectorSize

			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor())
			if asJSON {
				return renderer.RenderJSON(info)
			}
			return renderer.Render(info)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func dirSize(dir string) int64 {
	var total int64
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if fi, err := e.Info(); err == nil {
			total += fi.Size()
		}
	}
	return total
}

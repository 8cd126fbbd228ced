package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/localfinderx/localfinderx/internal/index"
	"github.com/localfinderx/localfinderx/internal/profiling"
	"github.com/localfinderx/localfinderx/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var excludeGlobs []string
	var includeHidden bool
	var cpuProfilePath string
	var heapProfilePath string

	cmd := &cobra.Command{
		Use:   "index [roots...]",
		Short: "Index one or more folders for search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			profiler := profiling.NewProfiler()
			if cpuProfilePath != "" {
				stopCPU, err := profiler.StartCPU(cpuProfilePath)
				if err != nil {
					return fmt.Errorf("start cpu profile: %w", err)
				}
				defer stopCPU()
			}

			sess, err := openSession(ctx, dataDirFlag, noModel)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			ix, err := index.NewIndexer(index.Deps{
				Scanner:   newScanner(),
				Manifest:  sess.manifest,
				Tokenizer: sess.tokenizer,
				Embedder:  sess.embedder,
				Vector:    sess.vector,
				Lexical:   sess.lexical,
				Records:   sess.records,
				Perf:      sess.settings.Performance,
			})
			if err != nil {
				return fmt.Errorf("build indexer: %w", err)
			}

			renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithNoColor(ui.DetectNoColor())))
			if err := renderer.Start(ctx); err != nil {
				return fmt.Errorf("start progress renderer: %w", err)
			}

			var failures int
			h := ix.Index(ctx, index.Options{
				Roots:         args,
				ExcludeGlobs:  excludeGlobs,
				IncludeHidden: includeHidden,
				OnFileFailed: func(f index.FileFailure) {
					failures++
					renderer.AddError(ui.ErrorEvent{File: f.Path, Err: f.Err, IsWarn: true})
				},
			})

			start := time.Now()
			waitDone := make(chan struct{})
			var summary index.Summary
			var runErr error
			go func() {
				summary, runErr = h.Wait()
				close(waitDone)
			}()

			ticker := time.NewTicker(200 * time.Millisecond)
			defer ticker.Stop()
			cancelCh := ctx.Done()

		pollLoop:
			for {
				select {
				case <-ticker.C:
					snap := h.Progress()
					renderer.UpdateProgress(ui.ProgressEvent{
						Stage:       ui.StageIndexing,
						Current:     snap.Done,
						Total:       snap.FilesTotal,
						CurrentFile: snap.CurrentPath,
					})
				case <-cancelCh:
					h.Cancel()
					cancelCh = nil
				case <-waitDone:
					break pollLoop
				}
			}
			renderer.Complete(ui.CompletionStats{
				Files:    summary.Total,
				Duration: time.Since(start),
				Errors:   failures,
				Embedder: ui.EmbedderInfo{
					Backend:    sess.device,
					Dimensions: sess.embedder.Dimensions(),
				},
			})
			if err := renderer.Stop(); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("indexing failed: %w", runErr)
			}

			if err := sess.persist(); err != nil {
				return fmt.Errorf("persist stores: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files (%d content, %d metadata-only, %d failed)\n",
				summary.Total, summary.ContentIndexed, summary.MetadataOnly, failures)

			if heapProfilePath != "" {
				if err := profiler.WriteHeap(heapProfilePath); err != nil {
					return fmt.Errorf("write heap profile: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&excludeGlobs, "exclude", nil, "Glob patterns to exclude from scanning")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Include hidden files and directories")
	cmd.Flags().StringVar(&cpuProfilePath, "cpu-profile", "", "Write a CPU profile to this path while indexing")
	cmd.Flags().StringVar(&heapProfilePath, "heap-profile", "", "Write a heap snapshot to this path after indexing")

	cmd.AddCommand(newIndexInfoCmd())
	return cmd
}

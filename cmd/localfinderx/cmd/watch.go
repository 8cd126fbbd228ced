package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/localfinderx/localfinderx/internal/index"
	"github.com/localfinderx/localfinderx/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var excludeGlobs []string
	var includeHidden bool

	cmd := &cobra.Command{
		Use:   "watch [roots...]",
		Short: "Watch folders and reindex changed files as they happen",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

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

			reindex := func(rctx context.Context, paths []string) {
				h := ix.ReindexPaths(rctx, paths, func(f index.FileFailure) {
					slog.Warn("watch_file_failed", slog.String("path", f.Path), slog.String("error", f.Err.Error()))
				})
				if _, runErr := h.Wait(); runErr != nil {
					slog.Error("watch_reindex_failed", slog.String("error", runErr.Error()))
					return
				}
				if err := sess.persist(); err != nil {
					slog.Error("watch_persist_failed", slog.String("error", err.Error()))
				}
			}
			onErr := func(err error) {
				slog.Warn("watcher_error", slog.String("error", err.Error()))
			}

			g, gctx := errgroup.WithContext(ctx)
			for _, root := range args {
				root := root
				w, err := watcher.NewHybridWatcher(watcher.Options{
					ExcludeGlobs:  excludeGlobs,
					IncludeHidden: includeHidden,
				}.WithDefaults())
				if err != nil {
					return fmt.Errorf("create watcher for %s: %w", root, err)
				}
				coord := watcher.NewCoordinator(w, reindex, onErr)
				g.Go(func() error {
					return coord.Run(gctx, root)
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "watching %d root(s) for changes, press Ctrl+C to stop\n", len(args))
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&excludeGlobs, "exclude", nil, "Glob patterns to exclude from watching")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Include hidden files and directories")

	return cmd
}

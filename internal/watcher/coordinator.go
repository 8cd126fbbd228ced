package watcher

import (
	"context"
	"log/slog"
)

// Coordinator drives a Watcher and feeds every debounced batch of
// changed paths into a reindex callback, so live filesystem changes and
// a manual index() call share the same pipeline. Rename events
// are treated as a delete of OldPath plus a reindex of Path, since the
// indexer keys everything off path, not inode.
type Coordinator struct {
	w Watcher
	reindex func(ctx context.Context, paths []string)
	onErr func(error)
	stopping chan struct{}
}

// NewCoordinator wires w to reindex, which is called once per debounced
// event batch with the deduplicated set of paths that need attention
// (creates, modifies, renames' new path, and deletes — the reindexer's
// ReindexPaths already treats a missing path as a removal).
func NewCoordinator(w Watcher, reindex func(ctx context.Context, paths []string), onErr func(error)) *Coordinator {
	return &Coordinator{w: w, reindex: reindex, onErr: onErr, stopping: make(chan struct{})}
}

// Run starts the watcher at root and blocks, dispatching reindex calls
// until ctx is cancelled or Stop is called. Safe to run in its own
// goroutine.
func (c *Coordinator) Run(ctx context.Context, root string) error {
	startErrCh := make(chan error, 1)
	go func() { startErrCh <- c.w.Start(ctx, root) }()

	for {
		select {
		case <-ctx.Done():
			_ = c.w.Stop()
			return ctx.Err()
		case <-c.stopping:
			_ = c.w.Stop()
			return nil
		case batch, ok := <-c.w.Events():
			if !ok {
				return <-startErrCh
			}
			c.dispatch(ctx, batch)
		case err, ok := <-c.w.Errors():
			if !ok {
				continue
			}
			if c.onErr != nil {
				c.onErr(err)
			} else {
				slog.Warn("watcher_error", slog.String("error", err.Error()))
			}
		}
	}
}

// dispatch deduplicates a batch's paths (a rename touches both OldPath
// and Path) and hands them to reindex as one call.
func (c *Coordinator) dispatch(ctx context.Context, batch []FileEvent) {
	seen := make(map[string]struct{}, len(batch))
	paths := make([]string, 0, len(batch))
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	for _, ev := range batch {
		if ev.IsDir {
			continue
		}
		add(ev.Path)
		if ev.Operation == OpRename {
			add(ev.OldPath)
		}
	}

	if len(paths) == 0 {
		return
	}
	c.reindex(ctx, paths)
}

// Stop requests the coordinator's Run loop to return.
func (c *Coordinator) Stop() {
	close(c.stopping)
}

package index

import "context"

// Handle is the live handle to one Index call: a caller polls Progress,
// may call Cancel, and eventually calls Wait for the terminal Summary.
// Mirrors the background-indexer/done-channel shape the codebase already
// uses elsewhere for long-running work, generalized to carry a Summary
// instead of a bare error.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	prog   *progress

	summary Summary
	err     error

	onFileFailed func(FileFailure)
}

// Progress returns the current progress snapshot. Safe to call from any
// goroutine at any time, including after the run has finished.
func (h *Handle) Progress() ProgressSnapshot {
	return h.prog.snapshot()
}

// Cancel requests cooperative cancellation. The run finishes whatever
// file it is currently on and stops launching new ones; Wait still
// returns a Summary describing whatever completed before cancellation.
func (h *Handle) Cancel() {
	h.cancel()
}

// Wait blocks until the run finishes (to completion, to cancellation, or
// to a fatal error) and returns the Summary.
func (h *Handle) Wait() (Summary, error) {
	<-h.done
	return h.summary, h.err
}

package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeWatcher struct {
	events chan []FileEvent
	errors chan error
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan []FileEvent, 4), errors: make(chan error, 4)}
}

func (f *fakeWatcher) Start(ctx context.Context, path string) error { return nil }
func (f *fakeWatcher) Stop() error                                  { return nil }
func (f *fakeWatcher) Events() <-chan []FileEvent                   { return f.events }
func (f *fakeWatcher) Errors() <-chan error                         { return f.errors }

func TestCoordinator_DispatchesDeduplicatedPaths(t *testing.T) {
	fw := newFakeWatcher()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	c := NewCoordinator(fw, func(ctx context.Context, paths []string) {
		mu.Lock()
		got = append(got, paths...)
		mu.Unlock()
		close(done)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = c.Run(ctx, "/tmp/irrelevant") }()

	fw.events <- []FileEvent{
		{Path: "/a.txt", Operation: OpModify},
		{Path: "/a.txt", Operation: OpModify},
		{Path: "/b.txt", OldPath: "/b-old.txt", Operation: OpRename},
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []string{"/a.txt", "/b.txt", "/b-old.txt"}, got)
}

func TestCoordinator_StopEndsRun(t *testing.T) {
	fw := newFakeWatcher()
	c := NewCoordinator(fw, func(ctx context.Context, paths []string) {}, nil)

	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(context.Background(), "/tmp/irrelevant") }()

	c.Stop()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

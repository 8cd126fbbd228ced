package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfinderx/localfinderx/internal/schema"
)

func TestOpen_MissingFileReturnsEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestOpen_CorruptFileReturnsEmptyManifestAndWarning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := Open(path)
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestSaveThenOpen_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	s, err := Open(path)
	require.NoError(t, err)
	s.Put("/docs/a.pdf", schema.ManifestEntry{
		FileID:        "file-1",
		Fingerprint:   schema.Fingerprint{SizeBytes: 100, ModifiedAt: 123.0},
		LastIndexedAt: 123.0,
	})
	require.NoError(t, s.Save())

	reopened, err := Open(path)
	require.NoError(t, err)
	entry, ok := reopened.Entry("/docs/a.pdf")
	require.True(t, ok)
	assert.Equal(t, "file-1", entry.FileID)
}

func TestDiff_ClassifiesAddedChangedRemoved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	s, err := Open(path)
	require.NoError(t, err)

	s.Put("/docs/unchanged.pdf", schema.ManifestEntry{
		FileID:      "unchanged-id",
		Fingerprint: schema.Fingerprint{SizeBytes: 10, ModifiedAt: 1},
	})
	s.Put("/docs/will-change.pdf", schema.ManifestEntry{
		FileID:      "change-id",
		Fingerprint: schema.Fingerprint{SizeBytes: 10, ModifiedAt: 1},
	})
	s.Put("/docs/will-be-removed.pdf", schema.ManifestEntry{
		FileID:      "removed-id",
		Fingerprint: schema.Fingerprint{SizeBytes: 10, ModifiedAt: 1},
	})

	d := s.Diff([]ScanEntry{
		{Path: "/docs/unchanged.pdf", Fingerprint: schema.Fingerprint{SizeBytes: 10, ModifiedAt: 1}},
		{Path: "/docs/will-change.pdf", Fingerprint: schema.Fingerprint{SizeBytes: 20, ModifiedAt: 2}},
		{Path: "/docs/new.pdf", Fingerprint: schema.Fingerprint{SizeBytes: 5, ModifiedAt: 1}},
	})

	assert.ElementsMatch(t, []string{"/docs/new.pdf"}, d.Added)
	assert.ElementsMatch(t, []string{"/docs/will-change.pdf"}, d.Changed)
	assert.ElementsMatch(t, []string{"/docs/will-be-removed.pdf"}, d.Removed)
}

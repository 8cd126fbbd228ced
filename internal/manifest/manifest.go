// Package manifest implements the Manifest Store: the single
// authoritative record of what has already been indexed, used to turn a
// full filesystem scan into an added/changed/removed diff so reindexing
// only touches files that actually changed.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/xerrors"
)

// Store owns manifest.json's lifecycle: load, diff, save.
type Store struct {
	path     string
	manifest *schema.Manifest
}

// ScanEntry is one file observed during enumeration, ready to be diffed
// against the stored manifest.
type ScanEntry struct {
	Path        string
	Fingerprint schema.Fingerprint
}

// Diff categorizes every path the scanner observed relative to the
// previously stored manifest.
type Diff struct {
	Added   []string // paths with no prior manifest entry
	Changed []string // paths whose fingerprint no longer matches
	Removed []string // manifest paths absent from the latest scan
}

// Open loads the manifest at path. A missing file is not an error — it
// means this is the first run, and Open returns a fresh empty manifest.
// A corrupt file is treated as empty too: indexing proceeds as a full
// reindex rather than failing startup, with the caller responsible for
// logging the non-fatal warning carried in err.
func Open(path string) (*Store, error) {
	data, readErr := os.ReadFile(path)
	if os.IsNotExist(readErr) {
		return &Store{path: path, manifest: schema.NewManifest()}, nil
	}
	if readErr != nil {
		return nil, xerrors.New(xerrors.ErrCodeFilePermission, "cannot read manifest.json", readErr)
	}

	var m schema.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		corruptErr := xerrors.New(xerrors.ErrCodeManifestCorrupt, "manifest.json is corrupt; forcing full reindex", err).
			WithSuggestion("The manifest will be rebuilt from this scan; no files were lost.")
		return &Store{path: path, manifest: schema.NewManifest()}, corruptErr
	}
	if m.Entries == nil {
		m.Entries = make(map[string]schema.ManifestEntry)
	}
	if m.SchemaVersion != "" && m.SchemaVersion != schema.CurrentSchemaVersion {
		mismatchErr := xerrors.New(xerrors.ErrCodeSchemaMismatch, "manifest.json schema_version is stale; forcing full reindex", nil)
		return &Store{path: path, manifest: schema.NewManifest()}, mismatchErr
	}
	return &Store{path: path, manifest: &m}, nil
}

// Diff compares scanned against the stored manifest and returns the
// added/changed/removed sets. It does not mutate the stored manifest —
// call Put/Remove and then Save once the index actually reflects the
// change, so a crash mid-reindex never leaves the manifest ahead of the
// data it describes.
func (s *Store) Diff(scanned []ScanEntry) Diff {
	var d Diff
	seen := make(map[string]struct{}, len(scanned))

	for _, entry := range scanned {
		seen[entry.Path] = struct{}{}
		existing, ok := s.manifest.Entries[entry.Path]
		switch {
		case !ok:
			d.Added = append(d.Added, entry.Path)
		case !existing.Fingerprint.Equal(entry.Fingerprint):
			d.Changed = append(d.Changed, entry.Path)
		}
	}

	for path := range s.manifest.Entries {
		if _, ok := seen[path]; !ok {
			d.Removed = append(d.Removed, path)
		}
	}
	return d
}

// Entry returns the stored entry for path, if any.
func (s *Store) Entry(path string) (schema.ManifestEntry, bool) {
	e, ok := s.manifest.Entries[path]
	return e, ok
}

// Put records or updates the manifest entry for path. Callers must only
// call this after the corresponding file has been fully persisted to the
// vector/lexical stores, per the delete-before-insert,
// manifest-last ordering required for crash recovery.
func (s *Store) Put(path string, entry schema.ManifestEntry) {
	s.manifest.Entries[path] = entry
}

// Remove deletes path's manifest entry, used once its records have been
// purged from the vector/lexical stores.
func (s *Store) Remove(path string) {
	delete(s.manifest.Entries, path)
}

// Save writes the manifest atomically: temp file in the same directory,
// then rename over the destination.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return xerrors.New(xerrors.ErrCodeFilePermission, "cannot create data directory", err)
	}

	s.manifest.SchemaVersion = schema.CurrentSchemaVersion
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return xerrors.New(xerrors.ErrCodeInternal, "failed to marshal manifest", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return xerrors.New(xerrors.ErrCodeFilePermission, "failed to write manifest.json", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return xerrors.New(xerrors.ErrCodeFilePermission, "failed to commit manifest.json", err)
	}
	return nil
}

// Len reports how many files the manifest currently tracks.
func (s *Store) Len() int {
	return len(s.manifest.Entries)
}

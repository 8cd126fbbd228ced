// Package scanner implements the File Enumerator & Classifier: a
// recursive walk of the user-selected roots that excludes transient/
// hidden files and decides, once per file, whether it is content-indexed
// or metadata-only.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/xerrors"
)

// contentIndexedExtensions is the fixed extension set that makes a file
// content-indexed. It is deliberately not user-configurable — ties
// classification to extension alone, with Outlook email handled by a
// connector outside this core's scope.
var contentIndexedExtensions = map[string]bool{
	".docx": true,
	".xlsx": true,
	".pptx": true,
	".pdf": true,
	".md": true,
}

// Options controls a single enumeration pass.
type Options struct {
	Roots []string
	ExcludeGlobs []string
	IncludeHidden bool
}

// Found is one enumerated file, classified but not yet extracted.
type Found struct {
	AbsPath string
	Filename string
	Extension string
	SizeBytes int64
	CreatedAt float64
	ModifiedAt float64
	ContentIndexed bool
	Fingerprint schema.Fingerprint
}

// Scanner walks the selected roots on demand. It holds no state across
// calls to Walk — incremental-indexing state lives in internal/manifest.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Walk enumerates every indexable file under opts.Roots and streams it
// to yield. Walking stops early, returning ctx.Err(), if ctx is
// cancelled. Per-file stat/access errors are skipped rather than
// aborting the whole walk — a single unreadable file must not stop
// enumeration of the rest of the tree.
func (s *Scanner) Walk(ctx context.Context, opts Options, yield func(Found) error) error {
	for _, root := range opts.Roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				return nil
			}
			if path == absRoot {
				return nil
			}

			name := d.Name()
			if d.IsDir() {
				if shouldExcludeDir(name, opts) {
					return filepath.SkipDir
				}
				return nil
			}

			if shouldExcludeFile(name, path, opts) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}

			found := classify(path, info)
			if err := yield(found); err != nil {
				return err
			}
			return nil
		})
		if walkErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return xerrors.New(xerrors.ErrCodeFileNotFound, "failed to walk root "+root, walkErr)
		}
	}
	return nil
}

// classify builds a Found record, including the content_indexed
// decision. This decision is made once here and is only ever revisited
// by the orchestrator as a downgrade from true to false on extraction
// failure — never the other direction, and never here again.
func classify(path string, info fs.FileInfo) Found {
	ext := strings.ToLower(filepath.Ext(path))
	modTime := float64(info.ModTime().UnixNano()) / 1e9
	return Found{
		AbsPath: path,
		Filename: info.Name(),
		Extension: ext,
		SizeBytes: info.Size(),
		ModifiedAt: modTime,
		CreatedAt: modTime,
		ContentIndexed: contentIndexedExtensions[ext],
		Fingerprint: schema.Fingerprint{
			SizeBytes: info.Size(),
			ModifiedAt: modTime,
		},
	}
}

// shouldExcludeDir reports whether a directory should be pruned entirely.
func shouldExcludeDir(name string, opts Options) bool {
	return !opts.IncludeHidden && isHiddenName(name)
}

// shouldExcludeFile implements the fixed exclusion rules plus any
// user-supplied glob exclusions.
func shouldExcludeFile(name, fullPath string, opts Options) bool {
	if strings.HasPrefix(name, "~$") {
		return true
	}
	if strings.HasSuffix(name, ".tmp") {
		return true
	}
	if !opts.IncludeHidden && isHiddenName(name) {
		return true
	}
	for _, glob := range opts.ExcludeGlobs {
		if matched, _ := filepath.Match(glob, name); matched {
			return true
		}
		if matched, _ := filepath.Match(glob, fullPath); matched {
			return true
		}
	}
	return false
}

// isHiddenName reports whether name starts with a dot, the convention
// this engine uses for "hidden". The toggle this function gates
// on defaults OFF.
func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Classify exposes the single-file classification path used by the
// watcher when a file-change event arrives outside of a full Walk.
func Classify(path string) (Found, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Found{}, xerrors.New(xerrors.ErrCodeFileNotFound, "cannot stat "+path, err)
	}
	return classify(path, info), nil
}

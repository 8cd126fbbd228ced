// Package paths resolves the on-disk layout rooted at the OS app-data
// directory: a data/ directory for the stores and manifest, a
// logs/ directory, and a config/ directory for settings.json.
package paths

import (
	"os"
	"path/filepath"
)

// appDirName is the directory created under the OS app-data root.
const appDirName = "LocalFinderX"

// Layout holds the resolved absolute paths for every on-disk artifact the
// engine reads or writes.
type Layout struct {
	Root string

	DataDir          string
	ManifestPath     string
	VectorStoreDir   string
	LexicalIndexPath string
	RecordsDBPath    string
	TelemetryDBPath  string
	SchemaVersionPath string

	LogsDir           string
	IndexingErrorsLog string

	ConfigDir    string
	SettingsPath string
}

// Resolve returns the Layout rooted at the OS-appropriate app-data
// directory. It does not create any directories — call EnsureDirs for
// that.
func Resolve() (*Layout, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return ResolveUnder(filepath.Join(base, appDirName))
}

// ResolveUnder builds a Layout rooted at an explicit root directory. Tests
// and CLI flags that override the data directory use this directly.
func ResolveUnder(root string) (*Layout, error) {
	dataDir := filepath.Join(root, "data")
	return &Layout{
		Root: root,

		DataDir:           dataDir,
		ManifestPath:      filepath.Join(dataDir, "manifest.json"),
		VectorStoreDir:    filepath.Join(dataDir, "lancedb"),
		LexicalIndexPath:  filepath.Join(dataDir, "bm25.bin"),
		RecordsDBPath:     filepath.Join(dataDir, "records.db"),
		TelemetryDBPath:   filepath.Join(dataDir, "telemetry.db"),
		SchemaVersionPath: filepath.Join(dataDir, "schema_version.json"),

		LogsDir:           filepath.Join(root, "logs"),
		IndexingErrorsLog: filepath.Join(root, "logs", "indexing_errors.log"),

		ConfigDir:    filepath.Join(root, "config"),
		SettingsPath: filepath.Join(root, "config", "settings.json"),
	}, nil
}

// EnsureDirs creates every directory in the layout (not the files
// themselves), so first-run indexing has somewhere to write.
func (l *Layout) EnsureDirs() error {
	for _, dir := range []string{l.DataDir, l.VectorStoreDir, l.LogsDir, l.ConfigDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

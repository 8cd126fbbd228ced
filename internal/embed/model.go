package embed

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultModelsDir returns the directory localfinderx looks in for a
// bundled embedding model when none is configured explicitly.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".localfinderx", "models", "sentence-embedding")
}

// ModelLocator verifies that a local model directory is usable before the
// orchestrator commits to the content-indexing path for a run. It never
// fetches anything over the network — the model is provisioned out of
// band (bundled with the install, or placed by the user), and a missing
// model is reported rather than downloaded.
type ModelLocator struct {
	dir  string
	lock *FileLock
}

// NewModelLocator creates a locator for the model directory dir.
func NewModelLocator(dir string) *ModelLocator {
	return &ModelLocator{dir: dir, lock: NewFileLock(dir)}
}

// Dir returns the model directory path.
func (m *ModelLocator) Dir() string {
	return m.dir
}

// Ensure verifies model.onnx and tokenizer.json are present, holding an
// exclusive cross-process lock for the check so a concurrent localfinderx
// process mid-install (copying files into place) can't be read mid-write.
func (m *ModelLocator) Ensure() error {
	if err := m.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire model directory lock: %w", err)
	}
	defer func() { _ = m.lock.Unlock() }()

	for _, name := range []string{modelFileName, tokenizerFileName} {
		path := filepath.Join(m.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("model file %s not found in %s — place a bundled sentence-embedding model there, or configure a different models directory", name, m.dir)
		}
		if info.Size() == 0 {
			return fmt.Errorf("model file %s in %s is empty", name, m.dir)
		}
	}
	return nil
}

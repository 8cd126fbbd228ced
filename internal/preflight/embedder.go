package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/localfinderx/localfinderx/internal/embed"
)

// MinModelDiskSpaceBytes is the minimum disk space a bundled sentence-embedding model needs (~1.5GB).
const MinModelDiskSpaceBytes = 1.5 * 1024 * 1024 * 1024 // 1.5 GB

// CheckEmbedderModel checks whether a local sentence-embedding model is
// present and usable.
func (c *Checker) CheckEmbedderModel() CheckResult {
	return c.checkEmbedderModelAt(embed.DefaultModelsDir())
}

// checkEmbedderModelAt checks an embedder model at a specific directory.
// This allows testing with temp directories.
func (c *Checker) checkEmbedderModelAt(modelDir string) CheckResult {
	result := CheckResult{
		Name:     "embedder_model",
		Required: false, // Non-critical - a run without a model just goes metadata-only
	}

	if err := embed.NewModelLocator(modelDir).Ensure(); err != nil {
		result.Status = StatusWarn
		result.Message = "model not available (indexing will fall back to metadata-only)"
		result.Details = err.Error()
		return result
	}

	var totalSize int64
	_ = filepath.Walk(modelDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Ignore errors, just count what we can
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	result.Status = StatusPass
	if totalSize > 0 {
		result.Message = fmt.Sprintf("model ready (%s)", formatBytes(uint64(totalSize)))
	} else {
		result.Message = "model ready"
	}
	result.Details = fmt.Sprintf("model directory: %s", modelDir)
	return result
}

// CheckEmbedderDiskSpace checks if there's enough disk space for a local model.
func (c *Checker) CheckEmbedderDiskSpace() CheckResult {
	result := CheckResult{
		Name:     "embedder_disk_space",
		Required: false, // Non-critical - we can fall back to metadata-only
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot determine home directory: %v", err)
		return result
	}

	// Check disk space in home directory (where models are stored)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(homeDir, &stat); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot check disk space: %v", err)
		return result
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)

	if availableBytes < uint64(MinModelDiskSpaceBytes) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s available (a bundled model needs ~1.5 GB)", formatBytes(availableBytes))
		result.Details = "free up disk space or run without a model to index metadata-only"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s available for a local model", formatBytes(availableBytes))
	return result
}

// Package config loads and persists config/settings.json: the small
// key/value settings record named by the "Paths & Settings" component.
// This is a single JSON file
// written atomically (temp file + rename), matching the on-disk layout
// the engine is required to produce.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/localfinderx/localfinderx/internal/xerrors"
)

// Mode selects a preset of pipeline knobs. Functionality is identical
// across modes — only breadth of retrieval and evidence count change.
type Mode string

const (
	ModeFast Mode = "FAST"
	ModeSmart Mode = "SMART"
	ModeAssist Mode = "ASSIST"
)

// ModeKnobs is one row of the FAST/SMART/ASSIST table. These are fixed
// constants, not user-tunable, so they live as code, not in
// settings.json.
type ModeKnobs struct {
	DenseTopN int
	LexicalTopN int
	EvidencesPerFile int
	RerankerEnabled bool
}

// modeTable is the frozen FAST/SMART/ASSIST knob table.
var modeTable = map[Mode]ModeKnobs{
	ModeFast: {DenseTopN: 20, LexicalTopN: 20, EvidencesPerFile: 2, RerankerEnabled: false},
	ModeSmart: {DenseTopN: 50, LexicalTopN: 50, EvidencesPerFile: 3, RerankerEnabled: false},
	ModeAssist: {DenseTopN: 50, LexicalTopN: 50, EvidencesPerFile: 5, RerankerEnabled: true},
}

// KnobsFor returns the pipeline knobs for mode, defaulting to SMART for
// an unrecognized or empty mode.
func KnobsFor(mode Mode) ModeKnobs {
	if k, ok := modeTable[mode]; ok {
		return k
	}
	return modeTable[ModeSmart]
}

// PathsSettings records the folders the user has selected for indexing
// and any path-level exclusions layered on top of the classifier's fixed
// rules.
type PathsSettings struct {
	Roots []string `json:"roots"`
	ExcludeGlobs []string `json:"exclude_globs"`
	IncludeHidden bool `json:"include_hidden"`
}

// SearchSettings holds the user-visible defaults for the search surface.
// The RRF constant (k=60) and aggregation weight (α=0.2) are fixed
// tuning decisions and are not represented here — they live as
// constants in internal/search.
type SearchSettings struct {
	DefaultMode Mode `json:"default_mode"`
}

// PerformanceSettings tunes concurrency and batching. Defaults scale with
// the host's CPU count.
type PerformanceSettings struct {
	IndexWorkers int `json:"index_workers"`
	EmbedBatchSize int `json:"embed_batch_size"`
}

// Capabilities records the runtime capability flags Design Notes asks
// for: optional components detected once at startup, never re-probed
// mid-session.
type Capabilities struct {
	KoreanAnalyzerAvailable bool `json:"korean_analyzer_available"`
	EmbeddingDevice string `json:"embedding_device"` // "cuda", "metal", or "cpu"
}

// ServerSettings configures ambient process behavior.
type ServerSettings struct {
	LogLevel string `json:"log_level"` // "debug", "info", "warn", "error"
}

// Settings is the full config/settings.json document.
type Settings struct {
	SchemaVersion string `json:"schema_version"`
	Paths PathsSettings `json:"paths"`
	Search SearchSettings `json:"search"`
	Performance PerformanceSettings `json:"performance"`
	Capabilities Capabilities `json:"capabilities"`
	Server ServerSettings `json:"server"`
}

const currentSettingsVersion = "2.0"

// New returns Settings populated with sensible defaults. Capability flags
// start false/"cpu" until the first startup probe runs.
func New() *Settings {
	return &Settings{
		SchemaVersion: currentSettingsVersion,
		Paths: PathsSettings{
			Roots: []string{},
			ExcludeGlobs: []string{},
			IncludeHidden: false,
		},
		Search: SearchSettings{
			DefaultMode: ModeSmart,
		},
		Performance: PerformanceSettings{
			IndexWorkers: runtime.NumCPU(),
			EmbedBatchSize: 32,
		},
		Capabilities: Capabilities{
			KoreanAnalyzerAvailable: false,
			EmbeddingDevice: "cpu",
		},
		Server: ServerSettings{
			LogLevel: "info",
		},
	}
}

// Load reads settings.json at path. A missing file returns fresh defaults
// (not an error) so first run doesn't require a prior `localfinderx init`.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, xerrors.New(xerrors.ErrCodeConfigPermission, fmt.Sprintf("cannot read %s", path), err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, xerrors.New(xerrors.ErrCodeConfigInvalid, fmt.Sprintf("settings.json is corrupt: %s", path), err).
			WithSuggestion("Delete config/settings.json to restore defaults.")
	}
	if s.SchemaVersion != "" && s.SchemaVersion != currentSettingsVersion {
		return nil, xerrors.New(xerrors.ErrCodeSchemaMismatch,
			fmt.Sprintf("settings.json schema_version %q is incompatible with %q", s.SchemaVersion, currentSettingsVersion), nil)
	}
	return &s, nil
}

// Save writes s to path atomically: write to a temp file in the same
// directory, then rename over the destination.
func Save(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.New(xerrors.ErrCodeConfigPermission, "cannot create config directory", err)
	}

	data, err := json.MarshalIndent(s, "", " ")
	if err != nil {
		return xerrors.New(xerrors.ErrCodeInternal, "failed to marshal settings", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return xerrors.New(xerrors.ErrCodeConfigPermission, "failed to write settings.json", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return xerrors.New(xerrors.ErrCodeConfigPermission, "failed to commit settings.json", err)
	}
	return nil
}

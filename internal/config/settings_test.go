package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKnobsFor(t *testing.T) {
	cases := []struct {
		mode Mode
		want ModeKnobs
	}{
		{ModeFast, ModeKnobs{DenseTopN: 20, LexicalTopN: 20, EvidencesPerFile: 2, RerankerEnabled: false}},
		{ModeSmart, ModeKnobs{DenseTopN: 50, LexicalTopN: 50, EvidencesPerFile: 3, RerankerEnabled: false}},
		{ModeAssist, ModeKnobs{DenseTopN: 50, LexicalTopN: 50, EvidencesPerFile: 5, RerankerEnabled: true}},
		{Mode("bogus"), ModeKnobs{DenseTopN: 50, LexicalTopN: 50, EvidencesPerFile: 3, RerankerEnabled: false}},
		{Mode(""), ModeKnobs{DenseTopN: 50, LexicalTopN: 50, EvidencesPerFile: 3, RerankerEnabled: false}},
	}
	for _, tc := range cases {
		got := KnobsFor(tc.mode)
		if got != tc.want {
			t.Errorf("KnobsFor(%q) = %+v, want %+v", tc.mode, got, tc.want)
		}
	}
}

func TestSettings_LoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Search.DefaultMode != ModeSmart {
		t.Errorf("expected default mode SMART, got %s", s.Search.DefaultMode)
	}
}

func TestSettings_SaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "settings.json")

	s := New()
	s.Paths.Roots = []string{"/home/user/Documents"}
	s.Search.DefaultMode = ModeAssist

	if err := Save(path, s); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Search.DefaultMode != ModeAssist {
		t.Errorf("expected mode ASSIST after round trip, got %s", loaded.Search.DefaultMode)
	}
	if len(loaded.Paths.Roots) != 1 || loaded.Paths.Roots[0] != "/home/user/Documents" {
		t.Errorf("roots did not round trip: %+v", loaded.Paths.Roots)
	}
}

func TestSettings_LoadRejectsIncompatibleSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"schema_version":"1.0"}`), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected schema mismatch error, got nil")
	}
}

func TestSettings_LoadRejectsCorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

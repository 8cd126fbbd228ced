package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalk_ClassifiesContentIndexedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "report.pdf"), "x")
	writeFile(t, filepath.Join(dir, "notes.md"), "x")
	writeFile(t, filepath.Join(dir, "archive.zip"), "x")

	var found []Found
	s := New()
	err := s.Walk(context.Background(), Options{Roots: []string{dir}}, func(f Found) error {
		found = append(found, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, found, 3)

	byName := map[string]Found{}
	for _, f := range found {
		byName[f.Filename] = f
	}
	assert.True(t, byName["report.pdf"].ContentIndexed)
	assert.True(t, byName["notes.md"].ContentIndexed)
	assert.False(t, byName["archive.zip"].ContentIndexed)
}

func TestWalk_ExcludesLockFilesAndHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "~$report.docx"), "x")
	writeFile(t, filepath.Join(dir, "draft.tmp"), "x")
	writeFile(t, filepath.Join(dir, ".hidden.md"), "x")
	writeFile(t, filepath.Join(dir, "visible.md"), "x")

	var found []Found
	s := New()
	err := s.Walk(context.Background(), Options{Roots: []string{dir}}, func(f Found) error {
		found = append(found, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "visible.md", found[0].Filename)
}

func TestWalk_IncludeHiddenTogglesVisibility(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hidden.md"), "x")

	var found []Found
	s := New()
	err := s.Walk(context.Background(), Options{Roots: []string{dir}, IncludeHidden: true}, func(f Found) error {
		found = append(found, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestWalk_SkipsExcludedDirEntirely(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".git", "config"), "x")
	writeFile(t, filepath.Join(dir, "doc.md"), "x")

	var found []Found
	s := New()
	err := s.Walk(context.Background(), Options{Roots: []string{dir}, IncludeHidden: false}, func(f Found) error {
		found = append(found, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "doc.md", found[0].Filename)
}

func TestClassify_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.xlsx")
	writeFile(t, path, "x")

	found, err := Classify(path)
	require.NoError(t, err)
	assert.True(t, found.ContentIndexed)
	assert.Equal(t, ".xlsx", found.Extension)
}

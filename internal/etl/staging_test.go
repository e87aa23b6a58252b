package etl

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stagedName = regexp.MustCompile(`^orders_\d{8}_\d{6}_[0-9a-f-]{36}\.parquet$`)

func TestStage_NamesAreUniqueWithinOneSecond(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")
	s := NewStagingArea(dir, "orders")
	s.now = func() time.Time { return ts("2025-01-01T03:00:00Z") }

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		h, err := s.Stage()
		require.NoError(t, err)
		assert.Regexp(t, stagedName, h.Name)
		assert.Contains(t, h.Name, "_20250101_030000_")
		assert.Equal(t, filepath.Join(dir, h.Name), h.Path)
		assert.False(t, seen[h.Name], "duplicate name %s", h.Name)
		seen[h.Name] = true
	}

	assert.DirExists(t, dir)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging must not create files itself")
}

func TestDiscard_IsIdempotent(t *testing.T) {
	s := NewStagingArea(t.TempDir(), "orders")
	h, err := s.Stage()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(h.Path, []byte("x"), 0o644))

	require.NoError(t, s.Discard(h))
	assert.NoFileExists(t, h.Path)
	assert.NoError(t, s.Discard(h))
}

func TestRetained_ListsOnlyArtifacts(t *testing.T) {
	dir := t.TempDir()
	s := NewStagingArea(dir, "orders")

	h1, err := s.Stage()
	require.NoError(t, err)
	h2, err := s.Stage()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(h1.Path, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(h2.Path, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("c"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "orders_dir.parquet"), 0o755))

	retained, err := s.Retained()
	require.NoError(t, err)
	require.Len(t, retained, 2)

	names := []string{retained[0].Name, retained[1].Name}
	assert.ElementsMatch(t, []string{h1.Name, h2.Name}, names)
	assert.LessOrEqual(t, retained[0].Name, retained[1].Name)
}

func TestRetained_MissingDirectory(t *testing.T) {
	s := NewStagingArea(filepath.Join(t.TempDir(), "absent"), "orders")
	retained, err := s.Retained()
	require.NoError(t, err)
	assert.Empty(t, retained)
}

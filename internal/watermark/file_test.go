package watermark

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingStateIsEpoch(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "pipeline_state.json"))

	wm, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, wm.Equal(Epoch))
	assert.Equal(t, "1970-01-01T00:00:00Z", wm.Format(time.RFC3339))
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "pipeline_state.json")
	store := NewFileStore(path)
	ctx := context.Background()

	wm := time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, wm))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_run":"2025-01-01T02:00:00Z"}`, string(data))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, wm.Equal(got))

	// sub-second watermarks survive so boundary rows are not re-selected
	fine := wm.Add(250 * time.Millisecond)
	require.NoError(t, store.Save(ctx, fine))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, fine.Equal(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are renamed away")
}

func TestFileStore_LegacyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"last_run": "2025-11-27 14:03:09"}`), 0o644))

	wm, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, wm.Equal(time.Date(2025, 11, 27, 14, 3, 9, 0, time.UTC)))
}

func TestFileStore_CorruptStateIsAnError(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"truncated.json": `{"last_run": "2025-01`,
		"garbage.json":   `{"last_run": "soon"}`,
		"empty.json":     `{}`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := NewFileStore(path).Load(context.Background())
		assert.Error(t, err, name)
	}
}

func TestFileStore_SaveUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := NewFileStore(filepath.Join(blocker, "pipeline_state.json")).Save(context.Background(), time.Now())
	assert.ErrorContains(t, err, "failed to write state file")
}

func TestFileStore_SaveHonoursCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline_state.json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewFileStore(path).Save(ctx, time.Now()), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_PicksBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline_state.json")
	store, closeFn, err := Open(context.Background(), path, "raw_orders")
	require.NoError(t, err)
	defer closeFn()

	fs, ok := store.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path())
}

func TestMongoDatabase(t *testing.T) {
	assert.Equal(t, "etl", mongoDatabase("mongodb://user:pw@db1:27017,db2:27017/etl?replicaSet=rs0"))
	assert.Equal(t, defaultMongoDatabase, mongoDatabase("mongodb://localhost:27017"))
	assert.Equal(t, defaultMongoDatabase, mongoDatabase("mongodb+srv://cluster.example.net/"))
}

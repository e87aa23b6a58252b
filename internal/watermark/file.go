// Package watermark persists the pipeline's high-water mark.
package watermark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BartekS5/orderlake/pkg/models"
)

// Epoch is the watermark of a pipeline that has never published.
var Epoch = time.Unix(0, 0).UTC()

// FileStore keeps the state record in a single JSON file. Writes go through a
// synced temporary file and a rename, so a crash leaves either the old or the
// new record on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load returns Epoch when no state file exists. A file that cannot be parsed
// is an error: silently restarting from Epoch would republish the table.
func (s *FileStore) Load(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Epoch, nil
		}
		return time.Time{}, fmt.Errorf("failed to read state file '%s': %w", s.path, err)
	}

	state, err := models.LoadState(data)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse state file '%s': %w", s.path, err)
	}
	wm, err := state.Watermark()
	if err != nil {
		return time.Time{}, fmt.Errorf("state file '%s': %w", s.path, err)
	}
	return wm, nil
}

func (s *FileStore) Save(ctx context.Context, wm time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(models.NewPipelineState(wm))
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file '%s': %w", s.path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

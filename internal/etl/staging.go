package etl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const artifactExt = ".parquet"

// Handle names one staged artifact. The file itself is created by the
// selector, and only when there is at least one row.
type Handle struct {
	Name      string
	Path      string
	CreatedAt time.Time
}

// StagingArea hands out unique local paths for artifacts. It never removes
// anything on its own; artifacts of failed runs stay until an operator or a
// later successful Discard deals with them.
type StagingArea struct {
	dir    string
	prefix string
	now    func() time.Time
}

func NewStagingArea(dir, prefix string) *StagingArea {
	return &StagingArea{dir: dir, prefix: prefix, now: time.Now}
}

func (s *StagingArea) Dir() string { return s.dir }

// Stage reserves a run-unique artifact name. The random suffix keeps names
// distinct even when two runs start within the same second.
func (s *StagingArea) Stage() (Handle, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Handle{}, fmt.Errorf("failed to create staging directory '%s': %w", s.dir, err)
	}

	at := s.now().UTC()
	name := fmt.Sprintf("%s_%s_%s%s", s.prefix, at.Format("20060102_150405"), uuid.NewString(), artifactExt)
	return Handle{
		Name:      name,
		Path:      filepath.Join(s.dir, name),
		CreatedAt: at,
	}, nil
}

// Discard removes the artifact. Removing a file that was never created is
// not an error.
func (s *StagingArea) Discard(h Handle) error {
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged artifact '%s': %w", h.Path, err)
	}
	return nil
}

// Retained lists artifacts still present in the staging directory, oldest
// name first.
func (s *StagingArea) Retained() ([]Handle, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list staging directory '%s': %w", s.dir, err)
	}

	var handles []Handle
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, s.prefix+"_") || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		handles = append(handles, Handle{
			Name:      name,
			Path:      filepath.Join(s.dir, name),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Name < handles[j].Name })
	return handles, nil
}

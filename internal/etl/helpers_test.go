package etl

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/orderlake/internal/storage"
	"github.com/BartekS5/orderlake/pkg/models"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// memSource filters in memory with the same predicate the SQL source uses.
type memSource struct {
	mu       sync.Mutex
	rows     []models.Order
	err      error
	errAfter int
}

func (m *memSource) add(rows ...models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
}

func (m *memSource) Scan(ctx context.Context, f models.ChangeFilter, emit func(models.Order) error) error {
	m.mu.Lock()
	rows := append([]models.Order(nil), m.rows...)
	m.mu.Unlock()

	emitted := 0
	for _, o := range rows {
		if m.err != nil && emitted == m.errAfter {
			return m.err
		}
		if !f.Matches(o.CreatedAt) {
			continue
		}
		if err := emit(o); err != nil {
			return err
		}
		emitted++
	}
	if m.err != nil {
		return m.err
	}
	return nil
}

// faultyStore wraps a real store and fails uploads from a queue of errors.
type faultyStore struct {
	ObjectStore
	mu       sync.Mutex
	failures []error
	uploads  int
	exists   *bool
	onUpload func()
}

func (f *faultyStore) Upload(ctx context.Context, localPath, objectPath string) error {
	f.mu.Lock()
	f.uploads++
	var err error
	if len(f.failures) > 0 {
		err, f.failures = f.failures[0], f.failures[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := f.ObjectStore.Upload(ctx, localPath, objectPath); err != nil {
		return err
	}
	if f.onUpload != nil {
		f.onUpload()
	}
	return nil
}

func (f *faultyStore) Exists(ctx context.Context, objectPath string) (bool, error) {
	if f.exists != nil {
		return *f.exists, nil
	}
	return f.ObjectStore.Exists(ctx, objectPath)
}

func (f *faultyStore) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

// memWatermarks records every saved value.
type memWatermarks struct {
	current time.Time
	saved   []time.Time
	loadErr error
	saveErr error
}

func (m *memWatermarks) Load(ctx context.Context) (time.Time, error) {
	if m.loadErr != nil {
		return time.Time{}, m.loadErr
	}
	return m.current, nil
}

func (m *memWatermarks) Save(ctx context.Context, wm time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.current = wm
	m.saved = append(m.saved, wm)
	return nil
}

func transientErr(key string) error {
	return &storage.Error{Op: storage.ErrUploadFailed, Key: key, Err: errors.New("connection reset")}
}

func terminalErr(key string) error {
	return &storage.Error{Op: storage.ErrUploadFailed, Key: key, Permanent: true, Err: errors.New("AccessDenied")}
}

func readArtifact(t *testing.T, path string) []models.Order {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := parquet.NewGenericReader[models.Order](f)
	defer r.Close()

	rows := make([]models.Order, r.NumRows())
	n, err := r.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}
	return rows[:n]
}

func noSleep(context.Context, time.Duration) error { return nil }

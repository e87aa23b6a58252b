package etl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog/log"

	"github.com/BartekS5/orderlake/pkg/models"
)

const defaultWriteBatch = 1024

// Artifact describes the output of one extraction. Path is empty when no row
// matched.
type Artifact struct {
	Path      string
	Rows      int64
	CreatedAt time.Time
	MaxChange time.Time
}

// ChangeSelector writes every order newer than a watermark into a Parquet
// file.
type ChangeSelector struct {
	Source    Source
	BatchSize int
}

func NewChangeSelector(src Source, batchSize int) *ChangeSelector {
	if batchSize <= 0 {
		batchSize = defaultWriteBatch
	}
	return &ChangeSelector{Source: src, BatchSize: batchSize}
}

// Extract selects rows with a change timestamp strictly after since. The
// destination file is created with the first row, so an empty result leaves
// nothing on disk. On error the partial file is removed.
func (c *ChangeSelector) Extract(ctx context.Context, since time.Time, dest string) (Artifact, error) {
	w := &artifactWriter{path: dest, batch: make([]models.Order, 0, c.BatchSize)}

	err := c.Source.Scan(ctx, models.ChangeFilter{Since: since}, func(o models.Order) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return w.add(o)
	})
	if err == nil {
		err = w.close()
	}
	if err != nil {
		w.abort()
		return Artifact{}, &ExtractError{Err: err}
	}

	if w.rows == 0 {
		log.Debug().Time("since", since).Msg("no rows newer than watermark")
		return Artifact{}, nil
	}

	return Artifact{
		Path:      dest,
		Rows:      w.rows,
		CreatedAt: w.createdAt,
		MaxChange: w.maxChange,
	}, nil
}

type artifactWriter struct {
	path      string
	file      *os.File
	writer    *parquet.GenericWriter[models.Order]
	batch     []models.Order
	rows      int64
	createdAt time.Time
	maxChange time.Time
}

func (w *artifactWriter) add(o models.Order) error {
	if w.file == nil {
		f, err := os.OpenFile(w.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create artifact '%s': %w", w.path, err)
		}
		w.file = f
		w.writer = parquet.NewGenericWriter[models.Order](f, parquet.Compression(&parquet.Snappy))
		w.createdAt = time.Now().UTC()
	}

	w.batch = append(w.batch, o)
	w.rows++
	if o.CreatedAt.After(w.maxChange) {
		w.maxChange = o.CreatedAt.UTC()
	}
	if len(w.batch) == cap(w.batch) {
		return w.flush()
	}
	return nil
}

func (w *artifactWriter) flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	if _, err := w.writer.Write(w.batch); err != nil {
		return fmt.Errorf("failed to write rows to '%s': %w", w.path, err)
	}
	w.batch = w.batch[:0]
	return nil
}

func (w *artifactWriter) close() error {
	if w.file == nil {
		return nil
	}
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize artifact '%s': %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync artifact '%s': %w", w.path, err)
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("failed to close artifact '%s': %w", w.path, err)
	}
	return nil
}

// abort drops whatever was written. Only files this writer created are
// removed.
func (w *artifactWriter) abort() {
	created := w.writer != nil
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	if !created {
		return
	}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", w.path).Msg("failed to remove partial artifact")
	}
}

package etl

import (
	"context"
	"time"

	"github.com/BartekS5/orderlake/pkg/models"
)

// Source streams orders that match a change filter, in any order.
type Source interface {
	Scan(ctx context.Context, f models.ChangeFilter, emit func(models.Order) error) error
}

// ObjectStore is the durable destination. Upload must be an atomic put.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, objectPath string) error
	Exists(ctx context.Context, objectPath string) (bool, error)
}

// WatermarkStore persists the high-water mark. Load returns the epoch when
// nothing was ever recorded; Save replaces the record atomically.
type WatermarkStore interface {
	Load(ctx context.Context) (time.Time, error)
	Save(ctx context.Context, wm time.Time) error
}

package models

import "time"

// Order is one row of the source orders table as it is written to the lake.
type Order struct {
	ID        int64     `parquet:"id" db:"id"`
	Amount    float64   `parquet:"amount" db:"amount"`
	CreatedAt time.Time `parquet:"created_at,timestamp(microsecond)" db:"created_at"`
}

// ChangeFilter selects rows whose change timestamp is strictly after Since.
type ChangeFilter struct {
	Since time.Time
}

// Matches reports whether a row with change timestamp ts belongs to the
// selection. The lower bound is exclusive: a row stamped exactly at Since was
// already covered by the run that recorded Since.
func (f ChangeFilter) Matches(ts time.Time) bool {
	return ts.After(f.Since)
}

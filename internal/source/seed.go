package source

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/doug-martin/goqu/v9"
)

var createTable = map[string]string{
	"postgres":  "CREATE TABLE IF NOT EXISTS %[1]s (%[2]s SERIAL PRIMARY KEY, %[3]s DOUBLE PRECISION, %[4]s TIMESTAMP)",
	"sqlite":    "CREATE TABLE IF NOT EXISTS %[1]s (%[2]s INTEGER PRIMARY KEY AUTOINCREMENT, %[3]s REAL, %[4]s TIMESTAMP)",
	"mysql":     "CREATE TABLE IF NOT EXISTS %[1]s (%[2]s BIGINT AUTO_INCREMENT PRIMARY KEY, %[3]s DOUBLE, %[4]s DATETIME(6))",
	"sqlserver": "IF OBJECT_ID(N'%[1]s', N'U') IS NULL CREATE TABLE %[1]s (%[2]s BIGINT IDENTITY(1,1) PRIMARY KEY, %[3]s FLOAT, %[4]s DATETIME2)",
}

const seedBatch = 500

// EnsureTable creates the source table when it does not exist. Identifiers
// come from validated configuration.
func (s *SQL) EnsureTable(ctx context.Context) error {
	ddl, ok := createTable[s.Config.Driver]
	if !ok {
		return fmt.Errorf("no table definition for driver %q", s.Config.Driver)
	}
	stmt := fmt.Sprintf(ddl, s.Config.Table, s.Config.IDColumn, s.Config.AmountColumn, s.Config.TimestampColumn)
	if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.Config.Table, err)
	}
	return nil
}

// Seed inserts n fake orders with amounts in [10, 500] and timestamps spread
// over the ten days before now. It is a development fixture.
func (s *SQL) Seed(ctx context.Context, n int, now time.Time, rng *rand.Rand) (int, error) {
	inserted := 0
	for inserted < n {
		size := min(seedBatch, n-inserted)
		rows := make([]interface{}, 0, size)
		for i := 0; i < size; i++ {
			ts := now.Add(-time.Duration(rng.Intn(11)) * 24 * time.Hour).UTC()
			amount := math.Round((10+rng.Float64()*490)*100) / 100
			rows = append(rows, goqu.Record{
				s.Config.AmountColumn:    amount,
				s.Config.TimestampColumn: ts,
			})
		}

		query, args, err := s.dialect.Insert(goqu.I(s.Config.Table)).Rows(rows...).Prepared(true).ToSQL()
		if err != nil {
			return inserted, fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
			return inserted, fmt.Errorf("failed to insert orders: %w", err)
		}
		inserted += size
	}
	return inserted, nil
}

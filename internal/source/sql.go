// Package source reads changed orders from the transactional database.
package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/rs/zerolog/log"

	"github.com/BartekS5/orderlake/internal/config"
	"github.com/BartekS5/orderlake/pkg/models"
	"github.com/BartekS5/orderlake/pkg/utils"
)

var dialects = map[string]string{
	"sqlserver": "sqlserver",
	"postgres":  "postgres",
	"mysql":     "mysql",
	"sqlite":    "sqlite3",
}

// SQL selects changed orders through database/sql.
type SQL struct {
	DB      *sql.DB
	Config  config.SourceConfig
	dialect goqu.DialectWrapper
}

func NewSQL(db *sql.DB, cfg config.SourceConfig) (*SQL, error) {
	name, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("no SQL dialect for driver %q", cfg.Driver)
	}
	return &SQL{DB: db, Config: cfg, dialect: goqu.Dialect(name)}, nil
}

// ChangedAfter is the selection predicate: column strictly greater than
// since. Rows stamped exactly at since are excluded.
func ChangedAfter(column string, f models.ChangeFilter) exp.Expression {
	return goqu.C(column).Gt(f.Since)
}

// SelectSQL renders the parameterized change query.
func (s *SQL) SelectSQL(f models.ChangeFilter) (string, []interface{}, error) {
	return s.dialect.
		From(goqu.I(s.Config.Table)).
		Select(goqu.C(s.Config.IDColumn), goqu.C(s.Config.AmountColumn), goqu.C(s.Config.TimestampColumn)).
		Where(ChangedAfter(s.Config.TimestampColumn, f)).
		Prepared(true).
		ToSQL()
}

// Scan streams every order matching f into emit. Rows come back in whatever
// order the database chooses.
func (s *SQL) Scan(ctx context.Context, f models.ChangeFilter, emit func(models.Order) error) error {
	query, args, err := s.SelectSQL(f)
	if err != nil {
		return fmt.Errorf("failed to build change query: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("change query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	skipped := 0
	for rows.Next() {
		columns := make([]interface{}, len(cols))
		columnPointers := make([]interface{}, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}
		if err := rows.Scan(columnPointers...); err != nil {
			return err
		}

		m := make(map[string]interface{}, len(cols))
		for i, colName := range cols {
			m[colName] = columns[i]
		}

		o, err := utils.RowToOrder(m, s.Config.IDColumn, s.Config.AmountColumn, s.Config.TimestampColumn)
		if err != nil {
			return err
		}
		// Engines that round or shift timestamps can hand back boundary rows.
		if !f.Matches(o.CreatedAt) {
			skipped++
			continue
		}
		if err := emit(o); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if skipped > 0 {
		log.Warn().Int("rows", skipped).Time("since", f.Since).Msg("source returned rows at or below the watermark; skipped")
	}
	return nil
}

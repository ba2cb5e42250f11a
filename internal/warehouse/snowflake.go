package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/snowflakedb/gosnowflake"
)

// sqlConn is the subset of *sql.DB the Snowflake adapter uses.
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

type snowflakeWarehouse struct {
	db         sqlConn
	stage      string
	fileFormat string
}

func openSnowflake(ctx context.Context, cfg Config) (Warehouse, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Account == "" || cfg.User == "" {
			return nil, fmt.Errorf("snowflake: account and user are required")
		}
		var err error
		dsn, err = gosnowflake.DSN(&gosnowflake.Config{
			Account:   cfg.Account,
			User:      cfg.User,
			Password:  cfg.Password,
			Database:  cfg.Database,
			Schema:    cfg.Schema,
			Warehouse: cfg.Warehouse,
			Role:      cfg.Role,
		})
		if err != nil {
			return nil, fmt.Errorf("snowflake dsn: %w", err)
		}
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("snowflake open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("snowflake connect: %w", err)
	}
	return newSnowflake(db, cfg), nil
}

func newSnowflake(db sqlConn, cfg Config) *snowflakeWarehouse {
	w := &snowflakeWarehouse{db: db, stage: cfg.Stage, fileFormat: cfg.FileFormat}
	if w.stage == "" {
		w.stage = DefaultStage
	}
	if w.fileFormat == "" {
		w.fileFormat = DefaultFileFormat
	}
	return w
}

func (w *snowflakeWarehouse) Dialect() Dialect { return Snowflake }

func (w *snowflakeWarehouse) Exec(ctx context.Context, stmt string) error {
	_, err := w.db.ExecContext(ctx, stmt)
	return err
}

func (w *snowflakeWarehouse) Query(ctx context.Context, query string, fn func(header, row []string) error) error {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	out := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, v := range vals {
			out[i] = formatValue(v)
		}
		if err := fn(cols, out); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadFile stages the file with PUT, then copies it into table.
func (w *snowflakeWarehouse) LoadFile(ctx context.Context, table, path string) (int64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	if _, err := w.db.ExecContext(ctx, Put(abs, w.stage)); err != nil {
		return 0, fmt.Errorf("put: %w", err)
	}
	res, err := w.db.ExecContext(ctx, CopyInto(table, w.stage, filepath.Base(path), w.fileFormat))
	if err != nil {
		return 0, fmt.Errorf("copy into: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// the load succeeded; only the count is unavailable
		return 0, nil
	}
	return n, nil
}

func (w *snowflakeWarehouse) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := w.Query(ctx, CountRows(table), func(_, row []string) error {
		_, err := fmt.Sscan(row[0], &n)
		return err
	})
	return n, err
}

func (w *snowflakeWarehouse) Close() error { return w.db.Close() }

package warehouse

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

// pgConn is the subset of *pgx.Conn the Postgres adapter uses.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close(ctx context.Context) error
}

type postgresWarehouse struct {
	conn pgConn
}

func openPostgres(ctx context.Context, cfg Config) (Warehouse, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	conn, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return &postgresWarehouse{conn: conn}, nil
}

func (w *postgresWarehouse) Dialect() Dialect { return Postgres }

func (w *postgresWarehouse) Exec(ctx context.Context, stmt string) error {
	_, err := w.conn.Exec(ctx, stmt)
	return err
}

func (w *postgresWarehouse) Query(ctx context.Context, query string, fn func(header, row []string) error) error {
	rows, err := w.conn.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	fds := rows.FieldDescriptions()
	header := make([]string, len(fds))
	for i, fd := range fds {
		header[i] = fd.Name
	}
	out := make([]string, len(fds))
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return err
		}
		for i, v := range vals {
			out[i] = formatValue(v)
		}
		if err := fn(header, out); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadFile streams the CSV through COPY FROM STDIN. Columns are matched by
// header name; columns the table does not know are dropped.
func (w *postgresWarehouse) LoadFile(ctx context.Context, table, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	src, cols, err := newCSVCopySource(f)
	if err != nil {
		return 0, err
	}
	n, err := w.conn.CopyFrom(ctx, pgx.Identifier{strings.ToLower(table)}, cols, src)
	if err != nil {
		return n, fmt.Errorf("copy from: %w", err)
	}
	return n, nil
}

func (w *postgresWarehouse) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := w.Query(ctx, CountRows(table), func(_, row []string) error {
		_, err := fmt.Sscan(row[0], &n)
		return err
	})
	return n, err
}

func (w *postgresWarehouse) Close() error { return w.conn.Close(context.Background()) }

// csvCopySource adapts a CSV reader to pgx.CopyFromSource.
type csvCopySource struct {
	r      *csv.Reader
	index  []int  // csv field per copied column
	isBool []bool // per copied column
	vals   []any
	err    error
}

func newCSVCopySource(r io.Reader) (*csvCopySource, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	known := make(map[string]string, len(crime.Columns))
	for _, c := range crime.Columns {
		known[c.Name] = c.Type
	}
	s := &csvCopySource{r: cr}
	var cols []string
	for i, h := range header {
		name := crime.NormalizeColumn(h)
		typ, ok := known[name]
		if !ok {
			continue
		}
		delete(known, name)
		cols = append(cols, strings.ToLower(name))
		s.index = append(s.index, i)
		s.isBool = append(s.isBool, typ == "BOOLEAN")
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("no table columns in header: %w", crime.ErrMissingColumn)
	}
	s.vals = make([]any, len(cols))
	return s, cols, nil
}

func (s *csvCopySource) Next() bool {
	rec, err := s.r.Read()
	if err != nil {
		if err != io.EOF {
			s.err = err
		}
		return false
	}
	for j, i := range s.index {
		var field string
		if i < len(rec) {
			field = strings.TrimSpace(rec[i])
		}
		switch {
		case field == "":
			s.vals[j] = nil
		case s.isBool[j]:
			s.vals[j] = crime.ParseBool(field)
		default:
			s.vals[j] = field
		}
	}
	return true
}

func (s *csvCopySource) Values() ([]any, error) { return s.vals, nil }
func (s *csvCopySource) Err() error             { return s.err }

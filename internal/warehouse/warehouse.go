// Package warehouse loads split CSV files into a cloud warehouse table and
// reads incident tables back for analysis.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Warehouse is a live connection to a warehouse.
type Warehouse interface {
	Dialect() Dialect
	// Exec runs a single statement.
	Exec(ctx context.Context, stmt string) error
	// Query streams rows as strings; the header slice is reused.
	Query(ctx context.Context, query string, fn func(header, row []string) error) error
	// LoadFile bulk-loads one CSV file into table and returns rows loaded.
	LoadFile(ctx context.Context, table, path string) (int64, error)
	Count(ctx context.Context, table string) (int64, error)
	Close() error
}

// Config holds connection settings. Password is never logged.
type Config struct {
	Driver     string // snowflake or postgres
	DSN        string
	Account    string
	User       string
	Password   string
	Database   string
	Schema     string
	Warehouse  string
	Role       string
	Stage      string
	FileFormat string
}

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown warehouse driver")

// Open connects using the adapter named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Warehouse, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "snowflake":
		return openSnowflake(ctx, cfg)
	case "postgres", "postgresql", "pgx":
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}
}

// FileError records one file that failed to load.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("load %s: %v", e.File, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// UploadOptions controls Upload.
type UploadOptions struct {
	Table string
	// CreateTable recreates the table (and file format) before loading.
	CreateTable bool
	FileFormat  string
	// OnFile is called after each file with its outcome.
	OnFile func(file string, rows int64, took time.Duration, err error)
}

// UploadResult summarizes an upload.
type UploadResult struct {
	Loaded int   // files loaded
	Failed int   // files that failed
	Rows   int64 // rows reported loaded across files
	Total  int64 // table row count after the upload
}

// Upload loads every file into the table, continuing past per-file
// failures. The returned error joins one *FileError per failed file, or
// carries the setup or count failure.
func Upload(ctx context.Context, w Warehouse, files []string, opt UploadOptions) (UploadResult, error) {
	var res UploadResult
	if opt.Table == "" {
		opt.Table = DefaultTable
	}
	if opt.FileFormat == "" {
		opt.FileFormat = DefaultFileFormat
	}
	if opt.CreateTable {
		stmts := CreateTable(w.Dialect(), opt.Table)
		if w.Dialect() == Snowflake {
			stmts = append(stmts, FileFormat(opt.FileFormat))
		}
		for _, s := range stmts {
			if err := w.Exec(ctx, s); err != nil {
				return res, fmt.Errorf("create table %s: %w", opt.Table, err)
			}
		}
		slog.Info("table ready", "table", opt.Table, "dialect", w.Dialect().String())
	}

	var failures []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := time.Now()
		n, err := w.LoadFile(ctx, opt.Table, f)
		took := time.Since(start)
		if opt.OnFile != nil {
			opt.OnFile(f, n, took, err)
		}
		if err != nil {
			res.Failed++
			failures = append(failures, &FileError{File: filepath.Base(f), Err: err})
			slog.Warn("file load failed", "file", filepath.Base(f), "err", err)
			continue
		}
		res.Loaded++
		res.Rows += n
		slog.Debug("file loaded", "file", filepath.Base(f), "rows", n, "took", took)
	}

	total, err := w.Count(ctx, opt.Table)
	if err != nil {
		failures = append(failures, fmt.Errorf("count %s: %w", opt.Table, err))
	}
	res.Total = total
	return res, errors.Join(failures...)
}

// formatValue renders a driver value the way it would appear in a CSV export.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02T15:04:05")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

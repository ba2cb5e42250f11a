package warehouse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

// Dialect selects statement spelling per warehouse.
type Dialect int

const (
	Snowflake Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "snowflake"
}

// Defaults for the bulk-load statements.
const (
	DefaultTable      = "CHICAGO_CRIME"
	DefaultStage      = "@~/staged"
	DefaultFileFormat = "csv_format"
)

// SetupDatabase creates and selects the target database and schema.
func SetupDatabase(database, schema string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf("USE DATABASE %s", database),
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema),
		fmt.Sprintf("USE SCHEMA %s", schema),
	}
}

// CreateTable returns the statements that (re)create the incident table.
func CreateTable(d Dialect, table string) []string {
	var b strings.Builder
	for i, c := range crime.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		name := c.Name
		if d == Postgres {
			name = strings.ToLower(name)
		}
		fmt.Fprintf(&b, "    %s %s", name, c.Type)
	}
	if d == Postgres {
		return []string{
			fmt.Sprintf("DROP TABLE IF EXISTS %s", table),
			fmt.Sprintf("CREATE TABLE %s (\n%s\n)", table, b.String()),
		}
	}
	return []string{fmt.Sprintf("CREATE OR REPLACE TABLE %s (\n%s\n)", table, b.String())}
}

// FileFormat declares the CSV layout of the split files.
func FileFormat(name string) string {
	return fmt.Sprintf(`CREATE OR REPLACE FILE FORMAT %s
TYPE = 'CSV'
FIELD_DELIMITER = ','
SKIP_HEADER = 1
FIELD_OPTIONALLY_ENCLOSED_BY = '"'
ESCAPE_UNENCLOSED_FIELD = '\\'`, name)
}

// Put uploads a local file to a stage. Paths use forward slashes.
func Put(path, stage string) string {
	return fmt.Sprintf("PUT 'file://%s' %s", filepath.ToSlash(path), stage)
}

// CopyInto loads one staged file into table, skipping bad rows.
func CopyInto(table, stage, file, format string) string {
	return fmt.Sprintf("COPY INTO %s\nFROM %s/%s\nFILE_FORMAT = %s\nON_ERROR = 'CONTINUE'",
		table, strings.TrimSuffix(stage, "/"), file, format)
}

// CountRows is the verification count.
func CountRows(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) AS total_records FROM %s", table)
}

// ScriptOptions parameterizes Script.
type ScriptOptions struct {
	Database   string
	Schema     string
	Table      string
	Stage      string
	FileFormat string
}

func (o *ScriptOptions) defaults() {
	if o.Table == "" {
		o.Table = DefaultTable
	}
	if o.Stage == "" {
		o.Stage = DefaultStage
	}
	if o.FileFormat == "" {
		o.FileFormat = DefaultFileFormat
	}
}

// Script renders the complete bulk-load script: setup, one PUT and one
// COPY INTO per file, then verification queries.
func Script(opt ScriptOptions, files []string) string {
	opt.defaults()
	var b strings.Builder
	stmt := func(s string) {
		b.WriteString(s)
		b.WriteString(";\n")
	}
	if opt.Database != "" && opt.Schema != "" {
		b.WriteString("-- Create database and schema\n")
		for _, s := range SetupDatabase(opt.Database, opt.Schema) {
			stmt(s)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "-- Create %s table\n", opt.Table)
	for _, s := range CreateTable(Snowflake, opt.Table) {
		stmt(s)
	}
	b.WriteString("\n-- Create file format for CSV\n")
	stmt(FileFormat(opt.FileFormat))

	for _, f := range files {
		name := filepath.Base(f)
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		fmt.Fprintf(&b, "\n-- Upload %s\n", name)
		stmt(Put(abs, opt.Stage))
		stmt(CopyInto(opt.Table, opt.Stage, name, opt.FileFormat))
	}

	b.WriteString("\n-- Verify upload\n")
	stmt(CountRows(opt.Table))
	stmt(fmt.Sprintf("SELECT * FROM %s LIMIT 10", opt.Table))
	return b.String()
}

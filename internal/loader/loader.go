package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

// Options controls how incident tables are read.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited. Rows beyond the limit are
	// still counted in Dataset.Rows.
	MaxRows int
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// DefaultOptions returns the options used by the analyze command.
func DefaultOptions() Options {
	return Options{}
}

// Source reads an incident table from a local file.
type Source interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*crime.Dataset, error)
}

var registry []Source

// Register adds a source implementation to the registry.
func Register(s Source) {
	registry = append(registry, s)
}

// ErrUnsupported indicates a file format no source can read.
var ErrUnsupported = errors.New("unsupported input format")

// LoadFile selects a source based on filename and returns the raw dataset.
func LoadFile(path string, opt Options) (*crime.Dataset, error) {
	for _, s := range registry {
		if s.CanLoad(path) {
			return s.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func init() {
	Register(csvSource{})
	Register(xlsxSource{})
	Register(parquetSource{})
}

// builder accumulates positional rows into a Dataset.
type builder struct {
	ds  *crime.Dataset
	dec *crime.Decoder
	max int
}

func newBuilder(name string, header []string, opt Options) (*builder, error) {
	dec, err := crime.NewDecoder(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &builder{ds: &crime.Dataset{Name: name}, dec: dec, max: opt.MaxRows}, nil
}

func (b *builder) add(row []string) {
	b.ds.Rows++
	if b.max > 0 && len(b.ds.Records) >= b.max {
		return
	}
	if blank(row) {
		b.ds.Skipped++
		return
	}
	b.ds.Records = append(b.ds.Records, b.dec.Decode(row))
}

func (b *builder) finish() *crime.Dataset {
	if b.max > 0 && b.ds.Rows > b.max {
		b.ds.Warnings = append(b.ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", b.max, b.ds.Rows))
	}
	return b.ds
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

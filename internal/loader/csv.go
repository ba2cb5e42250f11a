package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

type csvSource struct{}

func (csvSource) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvSource) Load(path string, opt Options) (*crime.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadCSV(f, filepath.Base(path), delim, opt)
}

// ReadCSV reads a delimited incident table from r.
func ReadCSV(r io.Reader, name string, delim rune, opt Options) (*crime.Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if delim != 0 {
		cr.Comma = delim
	}
	// leading-space trimming would swallow empty tab-separated fields
	cr.TrimLeadingSpace = cr.Comma != '\t'
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &crime.Dataset{Name: name}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	// header is reused by the reader on the next Read
	header = append([]string(nil), header...)
	b, err := newBuilder(name, header, opt)
	if err != nil {
		return nil, err
	}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", b.ds.Rows+1, err)
		}
		b.add(rec)
	}
	return b.finish(), nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// Package staging prepares CSV extracts for a warehouse bulk load: it
// splits large files into parts and inspects the parts before upload.
package staging

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/crimelens-cli/internal/utils"
)

// Defaults for splitting.
const (
	DefaultPrefix      = "chicago_crime_part_"
	DefaultPattern     = DefaultPrefix + "*.csv"
	DefaultRowsPerFile = 100000
	// DefaultMaxFileMB is the staging size limit the warehouse load targets.
	DefaultMaxFileMB = 50
)

// SplitOptions bounds each part. A zero bound is not enforced; at least one
// must be set.
type SplitOptions struct {
	RowsPerFile int
	MaxBytes    int64
	Prefix      string
}

// Part is one written split file.
type Part struct {
	Path  string
	Rows  int
	Bytes int64
}

// PartName returns the 1-based, zero-padded name of part n.
func PartName(prefix string, n int) string {
	return fmt.Sprintf("%s%03d.csv", prefix, n)
}

type partWriter struct {
	f     *os.File
	part  Part
	limit SplitOptions
}

func (p *partWriter) full(next int64) bool {
	if p.limit.RowsPerFile > 0 && p.part.Rows >= p.limit.RowsPerFile {
		return true
	}
	// a row larger than the cap still gets a part of its own
	return p.limit.MaxBytes > 0 && p.part.Rows > 0 && p.part.Bytes+next > p.limit.MaxBytes
}

func (p *partWriter) write(b []byte, row bool) error {
	n, err := p.f.Write(b)
	p.part.Bytes += int64(n)
	if err != nil {
		return err
	}
	if row {
		p.part.Rows++
	}
	return nil
}

// Split copies src into parts under outDir, repeating the header row at
// the top of every part.
func Split(src, outDir string, opt SplitOptions) ([]Part, error) {
	if opt.RowsPerFile <= 0 && opt.MaxBytes <= 0 {
		return nil, errors.New("split needs a row or size bound")
	}
	if opt.Prefix == "" {
		opt.Prefix = DefaultPrefix
	}
	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s is empty", src)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	headerBytes, err := encodeRow(header)
	if err != nil {
		return nil, err
	}

	var (
		parts []Part
		cur   *partWriter
	)
	closeCur := func() error {
		if cur == nil {
			return nil
		}
		err := cur.f.Close()
		parts = append(parts, cur.part)
		cur = nil
		return err
	}
	open := func() error {
		path := filepath.Join(outDir, PartName(opt.Prefix, len(parts)+1))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create part: %w", err)
		}
		cur = &partWriter{f: f, part: Part{Path: path}, limit: opt}
		return cur.write(headerBytes, false)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if cur != nil {
				cur.f.Close()
			}
			return parts, fmt.Errorf("read %s: %w", src, err)
		}
		b, err := encodeRow(rec)
		if err != nil {
			return parts, err
		}
		if cur != nil && cur.full(int64(len(b))) {
			if err := closeCur(); err != nil {
				return parts, err
			}
		}
		if cur == nil {
			if err := open(); err != nil {
				return parts, err
			}
		}
		if err := cur.write(b, true); err != nil {
			cur.f.Close()
			return parts, fmt.Errorf("write %s: %w", cur.part.Path, err)
		}
	}
	if err := closeCur(); err != nil {
		return parts, err
	}
	return parts, nil
}

func encodeRow(rec []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rec); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

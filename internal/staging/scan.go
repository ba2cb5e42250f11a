package staging

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/crimelens-cli/internal/utils"
)

// previewColumns is how many header columns a scan reports per file.
const previewColumns = 5

// FileStat describes one staged file.
type FileStat struct {
	Name     string
	Path     string
	Size     int64
	Rows     int // data rows, header excluded
	Columns  []string
	Checksum string // xxh3-64 of the file bytes, hex
}

// Scan inspects every file in dir matching pattern. Files are read
// concurrently; the result is sorted by name.
func Scan(ctx context.Context, dir, pattern string) ([]FileStat, error) {
	paths, err := utils.MatchFiles(dir, pattern)
	if err != nil {
		return nil, err
	}
	stats := make([]FileStat, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st, err := scanFile(p)
			if err != nil {
				return fmt.Errorf("scan %s: %w", filepath.Base(p), err)
			}
			stats[i] = st
			slog.Debug("scanned staged file", "file", st.Name, "rows", st.Rows, "bytes", st.Size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats, nil
}

func scanFile(path string) (FileStat, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileStat{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return FileStat{}, err
	}
	st := FileStat{Name: filepath.Base(path), Path: path, Size: info.Size()}

	h := xxh3.New()
	r := csv.NewReader(io.TeeReader(f, h))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true
	header, err := r.Read()
	switch {
	case err == io.EOF:
		// empty file: zero rows, no columns
	case err != nil:
		return FileStat{}, err
	default:
		n := min(len(header), previewColumns)
		st.Columns = append([]string(nil), header[:n]...)
		for {
			_, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return FileStat{}, err
			}
			st.Rows++
		}
	}
	// the csv reader may stop short of trailing bytes; hash them too
	if _, err := io.Copy(h, f); err != nil {
		return FileStat{}, err
	}
	st.Checksum = fmt.Sprintf("%016x", h.Sum64())
	return st, nil
}

// Summary aggregates a scan.
type Summary struct {
	Files      int
	TotalBytes int64
	TotalRows  int
	AvgBytes   int64
	AvgRows    int
	Largest    FileStat
	LimitBytes int64
	// Suitable reports that every file is under the limit.
	Suitable bool
}

// Summarize totals a scan against a per-file size limit in bytes.
func Summarize(stats []FileStat, limit int64) Summary {
	s := Summary{Files: len(stats), LimitBytes: limit}
	for _, st := range stats {
		s.TotalBytes += st.Size
		s.TotalRows += st.Rows
		if st.Size > s.Largest.Size || s.Largest.Name == "" {
			s.Largest = st
		}
	}
	if s.Files > 0 {
		s.AvgBytes = s.TotalBytes / int64(s.Files)
		s.AvgRows = s.TotalRows / s.Files
	}
	s.Suitable = s.Files > 0 && s.Largest.Size < limit
	return s
}

// MB converts a byte count to mebibytes, the unit the size limit is stated in.
func MB(n int64) float64 { return float64(n) / 1024 / 1024 }

package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeSource(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("ID,Case Number,Date,Block,IUCR,Primary Type\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "%d,JA%06d,01/02/2023 10:00:00 AM,\"001XX W MADISON, ST\",0820,THEFT\n", i, i)
	}
	p := filepath.Join(t.TempDir(), "crimes.csv")
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSplit_ByRows(t *testing.T) {
	src := writeSource(t, 25)
	out := t.TempDir()
	parts, err := Split(src, out, SplitOptions{RowsPerFile: 10})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	wantRows := []int{10, 10, 5}
	for i, p := range parts {
		if p.Rows != wantRows[i] {
			t.Fatalf("part %d rows = %d, want %d", i+1, p.Rows, wantRows[i])
		}
		if filepath.Base(p.Path) != PartName(DefaultPrefix, i+1) {
			t.Fatalf("part %d name = %s", i+1, filepath.Base(p.Path))
		}
		b, _ := os.ReadFile(p.Path)
		if !strings.HasPrefix(string(b), "ID,Case Number,Date") {
			t.Fatalf("part %d missing header", i+1)
		}
		if int64(len(b)) != p.Bytes {
			t.Fatalf("part %d byte count %d != file size %d", i+1, p.Bytes, len(b))
		}
	}
	if PartName(DefaultPrefix, 1) != "chicago_crime_part_001.csv" {
		t.Fatalf("unexpected part name %s", PartName(DefaultPrefix, 1))
	}
}

func TestSplit_ByBytes(t *testing.T) {
	src := writeSource(t, 40)
	parts, err := Split(src, t.TempDir(), SplitOptions{MaxBytes: 600})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	total := 0
	for _, p := range parts {
		if p.Bytes > 600 {
			t.Fatalf("%s is %d bytes, over the cap", p.Path, p.Bytes)
		}
		total += p.Rows
	}
	if total != 40 || len(parts) < 2 {
		t.Fatalf("rows=%d parts=%d", total, len(parts))
	}
}

func TestSplit_NeedsBound(t *testing.T) {
	if _, err := Split(writeSource(t, 1), t.TempDir(), SplitOptions{}); err == nil {
		t.Fatalf("expected error without bounds")
	}
}

func TestScan_AndSummarize(t *testing.T) {
	out := t.TempDir()
	if _, err := Split(writeSource(t, 25), out, SplitOptions{RowsPerFile: 10}); err != nil {
		t.Fatal(err)
	}
	// unrelated file is ignored by the pattern
	_ = os.WriteFile(filepath.Join(out, "readme.txt"), []byte("x"), 0o644)

	stats, err := Scan(context.Background(), out, DefaultPattern)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("got %d files", len(stats))
	}
	names := []string{stats[0].Name, stats[1].Name, stats[2].Name}
	if !reflect.DeepEqual(names, []string{"chicago_crime_part_001.csv", "chicago_crime_part_002.csv", "chicago_crime_part_003.csv"}) {
		t.Fatalf("not sorted: %v", names)
	}
	if !reflect.DeepEqual(stats[0].Columns, []string{"ID", "Case Number", "Date", "Block", "IUCR"}) {
		t.Fatalf("columns = %v", stats[0].Columns)
	}
	if stats[0].Checksum == "" || stats[0].Checksum == stats[2].Checksum {
		t.Fatalf("checksums should be set and differ: %q %q", stats[0].Checksum, stats[2].Checksum)
	}

	s := Summarize(stats, DefaultMaxFileMB*1024*1024)
	if s.Files != 3 || s.TotalRows != 25 || s.AvgRows != 8 {
		t.Fatalf("summary = %+v", s)
	}
	if !s.Suitable || s.Largest.Rows != 10 {
		t.Fatalf("largest/suitable wrong: %+v", s)
	}
	if Summarize(stats, 10).Suitable {
		t.Fatalf("tiny limit must not be suitable")
	}
}

func TestScan_NoMatches(t *testing.T) {
	if _, err := Scan(context.Background(), t.TempDir(), DefaultPattern); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}

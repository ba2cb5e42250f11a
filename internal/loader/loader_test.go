package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

var portalRows = []string{
	"ID,Case Number,Date,Block,IUCR,Primary Type,Description,Location Description,Arrest,Domestic,Beat,District,Ward,Community Area,FBI Code,Latitude,Longitude",
	`1,JA100,01/01/2023 10:00:00 AM,001XX W MADISON ST,0820,THEFT,"$500 AND UNDER",STREET,false,false,0122,001,42,32,06,41.88,-87.63`,
	`2,JA101,01/01/2023 11:00:00 PM,002XX N STATE ST,0486,BATTERY,DOMESTIC BATTERY SIMPLE,APARTMENT,true,true,0111,001,42,32,08B,,`,
	`3,JA102,01/02/2023 01:30:00 AM,003XX S CLARK ST,0820,THEFT,"$500 AND UNDER",STREET,false,false,0123,001,4,25,06,41.87,-87.62`,
	",,,,,,,,,,,,,,,,",
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadFile_CSV(t *testing.T) {
	p := writeFile(t, "chicago_crime.csv", strings.Join(portalRows, "\n"))
	ds, err := LoadFile(p, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Name != "chicago_crime.csv" || ds.Rows != 4 || len(ds.Records) != 3 || ds.Skipped != 1 {
		t.Fatalf("unexpected dataset: name=%s rows=%d records=%d skipped=%d", ds.Name, ds.Rows, len(ds.Records), ds.Skipped)
	}
	r := ds.Records[1]
	if r.PrimaryType != "BATTERY" || !r.Arrest || !r.Domestic || r.HasCoords {
		t.Fatalf("unexpected record: %+v", r)
	}
	if ds.Records[0].Description != "$500 AND UNDER" {
		t.Fatalf("quoted field not decoded: %q", ds.Records[0].Description)
	}
}

func TestLoadFile_MaxRows(t *testing.T) {
	p := writeFile(t, "chicago_crime.csv", strings.Join(portalRows[:4], "\n"))
	ds, err := LoadFile(p, Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Rows != 3 || len(ds.Records) != 2 {
		t.Fatalf("MaxRows not applied: rows=%d records=%d", ds.Rows, len(ds.Records))
	}
	if len(ds.Warnings) != 1 || !strings.Contains(ds.Warnings[0], "2/3") {
		t.Fatalf("expected MaxRows warning, got %v", ds.Warnings)
	}
}

func TestLoadFile_TSVWithAPIHeaders(t *testing.T) {
	body := "id\tdate\tprimary_type\tcommunity_area\n" +
		"7\t2023-05-01T12:00:00.000\tASSAULT\t8\n"
	p := writeFile(t, "api.tsv", body)
	ds, err := LoadFile(p, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(ds.Records) != 1 || ds.Records[0].CommunityArea != "8" || ds.Records[0].PrimaryType != "ASSAULT" {
		t.Fatalf("unexpected records: %+v", ds.Records)
	}
}

func TestLoadFile_MissingColumn(t *testing.T) {
	p := writeFile(t, "bad.csv", "ID,Block\n1,X\n")
	_, err := LoadFile(p, DefaultOptions())
	if !errors.Is(err, crime.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadFile_Unsupported(t *testing.T) {
	_, err := LoadFile("crimes.json", DefaultOptions())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestLoadFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crimes.xlsx")
	f := excelize.NewFile()
	if _, err := f.NewSheet("Incidents"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	rows := [][]interface{}{
		{"ID", "Date", "Primary Type", "Community Area"},
		{"1", "2023-02-01 08:00:00", "ROBBERY", "43"},
		{"2", "2023-02-02 09:00:00", "THEFT", "43"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Incidents", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	_ = f.Close()

	ds, err := LoadFile(path, Options{Sheet: "incidents"})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(ds.Records) != 2 || ds.Records[0].PrimaryType != "ROBBERY" {
		t.Fatalf("unexpected records: %+v", ds.Records)
	}
	if _, err := LoadFile(path, Options{Sheet: "missing"}); err == nil || !strings.Contains(err.Error(), "Available sheets") {
		t.Fatalf("expected sheet-not-found error, got %v", err)
	}
}

func TestWriteParquetThenLoad(t *testing.T) {
	src := writeFile(t, "chicago_crime.csv", strings.Join(portalRows[:4], "\n"))
	ds, err := LoadFile(src, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	out := filepath.Join(t.TempDir(), "crimes.parquet")
	if err := WriteParquet(out, ds); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}
	back, err := LoadFile(out, DefaultOptions())
	if err != nil {
		t.Fatalf("load parquet: %v", err)
	}
	if len(back.Records) != len(ds.Records) {
		t.Fatalf("record count mismatch: %d vs %d", len(back.Records), len(ds.Records))
	}
	if back.Records[1].HasCoords || !back.Records[2].HasCoords {
		t.Fatalf("optional coordinates not preserved: %+v", back.Records)
	}
}

type fakeQuerier struct {
	header []string
	rows   [][]string
	query  string
}

func (f *fakeQuerier) Query(_ context.Context, q string, fn func(header, row []string) error) error {
	f.query = q
	for _, r := range f.rows {
		if err := fn(f.header, r); err != nil {
			return err
		}
	}
	return nil
}

func TestLoadWarehouse(t *testing.T) {
	q := &fakeQuerier{
		header: []string{"ID", "DATE", "PRIMARY_TYPE", "COMMUNITY_AREA", "ARREST"},
		rows: [][]string{
			{"1", "01/01/2023 10:00:00 AM", "THEFT", "32", "true"},
			{"2", "01/01/2023 11:00:00 AM", "THEFT", "32", "false"},
		},
	}
	ds, err := LoadWarehouse(context.Background(), q, "CHICAGO_CRIME_COPY", DefaultOptions())
	if err != nil {
		t.Fatalf("LoadWarehouse: %v", err)
	}
	if q.query != "SELECT * FROM CHICAGO_CRIME_COPY" {
		t.Fatalf("unexpected query: %s", q.query)
	}
	if ds.Name != "CHICAGO_CRIME_COPY" || len(ds.Records) != 2 || !ds.Records[0].Arrest {
		t.Fatalf("unexpected dataset: %+v", ds)
	}

	bad := &fakeQuerier{header: []string{"ID"}, rows: [][]string{{"1"}}}
	if _, err := LoadWarehouse(context.Background(), bad, "T", DefaultOptions()); !errors.Is(err, crime.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			hits++
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(strings.Join(portalRows[:2], "\n")))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data", "chicago_crime.csv")
	n, err := Download(context.Background(), srv.URL+"/data.csv", dest, 5*time.Second, DefaultRetry())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() != n {
		t.Fatalf("downloaded file missing or wrong size: %v", err)
	}

	other := filepath.Join(t.TempDir(), "x.csv")
	_, err = Download(context.Background(), srv.URL+"/missing", other, time.Second, DefaultRetry())
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("404 must not be retried, got %d requests", hits)
	}
	if _, err := os.Stat(other); !os.IsNotExist(err) {
		t.Fatalf("failed download left a file behind: %v", err)
	}
}

func TestDownload_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(strings.Join(portalRows[:2], "\n")))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "crimes.csv")
	retry := Retry{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	if _, err := Download(context.Background(), srv.URL, dest, time.Second, retry); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
}

func TestDownload_GivesUp(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	retry := Retry{MaxAttempts: 2, BaseDelay: time.Millisecond}
	if _, err := Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x.csv"), time.Second, retry); err == nil {
		t.Fatal("expected error after retries")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestLoadFile_ParquetMissingColumn(t *testing.T) {
	type other struct {
		Name  string `parquet:"name"`
		Count int64  `parquet:"count"`
	}
	path := filepath.Join(t.TempDir(), "other.parquet")
	if err := parquet.WriteFile(path, []other{{Name: "a", Count: 1}}); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	_, err := LoadFile(path, DefaultOptions())
	if !errors.Is(err, crime.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !strings.Contains(err.Error(), "DATE") {
		t.Fatalf("error should name the column: %v", err)
	}
}

func TestLoadWarehouse_MaxRowsLimitsQuery(t *testing.T) {
	q := &fakeQuerier{
		header: []string{"ID", "DATE", "PRIMARY_TYPE"},
		rows: [][]string{
			{"1", "01/01/2023 10:00:00 AM", "THEFT"},
			{"2", "01/01/2023 11:00:00 AM", "BATTERY"},
		},
	}
	ds, err := LoadWarehouse(context.Background(), q, "CHICAGO_CRIME_COPY", Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("LoadWarehouse: %v", err)
	}
	if q.query != "SELECT * FROM CHICAGO_CRIME_COPY LIMIT 2" {
		t.Fatalf("unexpected query: %s", q.query)
	}
	if len(ds.Records) != 2 || len(ds.Warnings) != 1 {
		t.Fatalf("unexpected dataset: records=%d warnings=%v", len(ds.Records), ds.Warnings)
	}
}

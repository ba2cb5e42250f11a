package run_test

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/KaramelBytes/crimelens-cli/internal/run"
)

func TestManifestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	m := run.New("crimes.csv", dir)
	m.Rows, m.Skipped = 10, 2
	first := time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC)
	m.SetRange(first, first.Add(48*time.Hour))
	m.AddArtifact(filepath.Join(dir, "top5_crime_types.png"))
	m.AddArtifact(filepath.Join(dir, "chicago_crime_report.md"))
	if err := m.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := run.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != m.ID || got.ID == "" {
		t.Fatalf("id mismatch %q vs %q", got.ID, m.ID)
	}
	if got.Rows != 10 || got.Skipped != 2 || got.Source != "crimes.csv" {
		t.Fatalf("unexpected manifest %+v", got)
	}
	if !reflect.DeepEqual(got.Artifacts, []string{"top5_crime_types.png", "chicago_crime_report.md"}) {
		t.Fatalf("artifacts = %v", got.Artifacts)
	}
	if got.FirstDate == nil || !got.FirstDate.Equal(first) {
		t.Fatalf("first date = %v", got.FirstDate)
	}
	if got.FinishedAt.Before(got.StartedAt) {
		t.Fatalf("finished before started")
	}
}

func TestManifestEmptyRange(t *testing.T) {
	m := run.New("x", t.TempDir())
	m.SetRange(time.Time{}, time.Time{})
	if m.FirstDate != nil || m.LastDate != nil {
		t.Fatalf("zero range should stay unset")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := run.Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}

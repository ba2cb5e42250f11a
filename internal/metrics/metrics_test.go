package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRun_Counters(t *testing.T) {
	r := New()
	r.Rows(120, 3)
	r.Charts(8)
	r.File(50, nil)
	r.File(0, errors.New("boom"))
	r.File(25, nil)

	if got := testutil.ToFloat64(r.rowsLoaded); got != 120 {
		t.Fatalf("rows loaded = %v", got)
	}
	if got := testutil.ToFloat64(r.rowsSkipped); got != 3 {
		t.Fatalf("rows skipped = %v", got)
	}
	if got := testutil.ToFloat64(r.filesUploaded.WithLabelValues("loaded")); got != 2 {
		t.Fatalf("loaded files = %v", got)
	}
	if got := testutil.ToFloat64(r.filesUploaded.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed files = %v", got)
	}
	if got := testutil.ToFloat64(r.rowsUploaded); got != 75 {
		t.Fatalf("rows uploaded = %v", got)
	}

	want := `
# HELP crimelens_charts_rendered_total Chart images written.
# TYPE crimelens_charts_rendered_total counter
crimelens_charts_rendered_total 8
`
	if err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(want), "crimelens_charts_rendered_total"); err != nil {
		t.Fatal(err)
	}
}

func TestRun_WriteFile(t *testing.T) {
	r := New()
	done := r.Stage("load")
	done()
	r.Done()
	if err := r.WriteFile(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
	p := filepath.Join(t.TempDir(), "crimelens.prom")
	if err := r.WriteFile(p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`crimelens_stage_duration_seconds{stage="load"}`, "crimelens_last_success_timestamp_seconds"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("missing %s in:\n%s", want, b)
		}
	}
}

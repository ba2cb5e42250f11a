package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/crimelens-cli/internal/chart"
	"github.com/KaramelBytes/crimelens-cli/internal/report"
	"github.com/KaramelBytes/crimelens-cli/internal/run"
)

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args and return stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var buf bytes.Buffer
	stdout = &buf
	defer func() { stdout = os.Stdout }()
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"SNOWFLAKE_ACCOUNT", "SNOWFLAKE_USER", "SNOWFLAKE_PASSWORD", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
	return home
}

func writeIncidents(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("ID,Case Number,Date,Block,IUCR,Primary Type,Description,Location Description,Arrest,Domestic,Beat,District,Ward,Community Area,FBI Code,Latitude,Longitude\n")
	types := []string{"THEFT", "BATTERY", "CRIMINAL DAMAGE", "ASSAULT", "NARCOTICS", "THEFT", "BATTERY"}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,JA%06d,%02d/%02d/2023 %02d:15:00 PM,001XX W MADISON ST,0820,%s,SIMPLE,STREET,%t,false,0122,001,42,%d,06,%.4f,%.4f\n",
			i+1, i, i%12+1, i%28+1, i%12+1, types[i%len(types)], i%3 == 0, i%9+1, 41.80+float64(i%10)*0.01, -87.70+float64(i%7)*0.01)
	}
	b.WriteString("99999,JA999999,not a date,X,0000,THEFT,,,false,false,,,,,,,\n")
	p := filepath.Join(dir, "crimes.csv")
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCLI_AnalyzeWritesChartsReportsAndManifest(t *testing.T) {
	home := isolateHome(t)
	data := writeIncidents(t, home, 60)
	out := filepath.Join(home, "results")
	metricsFile := filepath.Join(home, "crimelens.prom")

	stdoutText := runCmd(t, "analyze", data, "--no-download", "-o", out, "--metrics-file", metricsFile)
	if !strings.Contains(stdoutText, "Analyzed 60 incidents") {
		t.Fatalf("unexpected output:\n%s", stdoutText)
	}
	for _, f := range []string{chart.TopTypesFile, chart.GeoFile, chart.DashboardFile, report.MarkdownFile, report.TextFile} {
		if _, err := os.Stat(filepath.Join(out, f)); err != nil {
			t.Fatalf("missing %s: %v", f, err)
		}
	}
	m, err := run.Load(out)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.Rows != 60 || m.Skipped != 1 {
		t.Fatalf("manifest rows=%d skipped=%d", m.Rows, m.Skipped)
	}
	if b, err := os.ReadFile(metricsFile); err != nil || !strings.Contains(string(b), "crimelens_rows_loaded_total 60") {
		t.Fatalf("metrics file: %v\n%s", err, b)
	}
}

func TestCLI_AnalyzeStrictDatesFails(t *testing.T) {
	home := isolateHome(t)
	data := writeIncidents(t, home, 5)
	if _, err := execCmd(t, "analyze", data, "--no-download", "-o", filepath.Join(home, "r"), "--strict-dates"); err == nil {
		t.Fatal("expected strict date failure")
	}
}

func TestCLI_AnalyzeMissingFileWithoutDownload(t *testing.T) {
	home := isolateHome(t)
	_, err := execCmd(t, "analyze", filepath.Join(home, "absent.csv"), "--no-download")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCLI_SplitScanSQLGen(t *testing.T) {
	home := isolateHome(t)
	data := writeIncidents(t, home, 25)
	parts := filepath.Join(home, "parts")

	runCmd(t, "split", data, "-o", parts, "--rows", "10")
	scanOut := runCmd(t, "scan", parts)
	for _, want := range []string{"Found 3 CSV files", "chicago_crime_part_003.csv", "Total rows: 26", "All files are under 50MB"} {
		if !strings.Contains(scanOut, want) {
			t.Fatalf("scan output missing %q:\n%s", want, scanOut)
		}
	}

	sqlPath := filepath.Join(home, "load.sql")
	runCmd(t, "sqlgen", parts, "-o", sqlPath)
	b, err := os.ReadFile(sqlPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(b), "COPY INTO CHICAGO_CRIME"); got != 3 {
		t.Fatalf("COPY INTO statements = %d, want 3", got)
	}
	if !strings.Contains(string(b), "USE SCHEMA STATISTICS;") {
		t.Fatalf("setup statements missing")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolateHome(t)
	runCmd(t, "config", "set", "warehouse.password", "s3cret-value")
	runCmd(t, "config", "set", "top_n", "7")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "top_n: 7") {
		t.Fatalf("top_n not persisted:\n%s", out)
	}
	if strings.Contains(out, "s3cret-value") || !strings.Contains(out, "warehouse.password: s3c****lue") {
		t.Fatalf("password not masked:\n%s", out)
	}
	if _, err := execCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatal("expected unknown key error")
	}
	if _, err := execCmd(t, "config", "set", "source", "s3"); err == nil {
		t.Fatal("expected invalid source error")
	}
}

func TestCLI_UploadNeedsCredentials(t *testing.T) {
	home := isolateHome(t)
	data := writeIncidents(t, home, 3)
	parts := filepath.Join(home, "parts")
	runCmd(t, "split", data, "-o", parts, "--rows", "10")
	_, err := execCmd(t, "upload", parts)
	if err == nil || !strings.Contains(err.Error(), "account and user are required") {
		t.Fatalf("expected credential error, got %v", err)
	}
}

func TestCLI_ConfigSetKeepsEnvSecretsOffDisk(t *testing.T) {
	home := isolateHome(t)
	t.Setenv("SNOWFLAKE_PASSWORD", "s3cr3t-from-env")
	t.Setenv("DATABASE_URL", "postgres://u:pw@h/db")

	runCmd(t, "config", "set", "top_n", "7")
	b, err := os.ReadFile(filepath.Join(home, ".crimelens", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "s3cr3t-from-env") || strings.Contains(string(b), "postgres://") {
		t.Fatalf("environment credentials written to config:\n%s", b)
	}
	if !strings.Contains(string(b), "top_n: 7") {
		t.Fatalf("top_n not saved:\n%s", b)
	}
	// the environment still applies at run time
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "warehouse.password: s3c****env") {
		t.Fatalf("env password not in effective config:\n%s", out)
	}
}

func TestCLI_FetchForceKeepsFileOnFailure(t *testing.T) {
	home := isolateHome(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	dest := filepath.Join(home, "crimes.csv")
	if err := os.WriteFile(dest, []byte("ID,Date\n1,2023-01-01\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execCmd(t, "fetch", dest, "--force", "--url", srv.URL); err == nil {
		t.Fatal("expected download failure")
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("existing dataset removed: %v", err)
	}
	if string(b) != "ID,Date\n1,2023-01-01\n" {
		t.Fatalf("dataset changed: %q", b)
	}
}

func TestCLI_FetchForceReplacesFile(t *testing.T) {
	home := isolateHome(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()
	dest := filepath.Join(home, "crimes.csv")
	if err := os.WriteFile(dest, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	runCmd(t, "fetch", dest, "--force", "--url", srv.URL)
	if b, _ := os.ReadFile(dest); string(b) != "fresh" {
		t.Fatalf("dataset not replaced: %q", b)
	}
}

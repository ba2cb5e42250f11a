package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/crimelens-cli/internal/analysis"
	"github.com/KaramelBytes/crimelens-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/crimelens-cli/internal/config"
	"github.com/KaramelBytes/crimelens-cli/internal/crime"
	"github.com/KaramelBytes/crimelens-cli/internal/loader"
	"github.com/KaramelBytes/crimelens-cli/internal/metrics"
	"github.com/KaramelBytes/crimelens-cli/internal/report"
	"github.com/KaramelBytes/crimelens-cli/internal/run"
	"github.com/KaramelBytes/crimelens-cli/internal/warehouse"
)

var (
	anaSource     string
	anaTable      string
	anaOutputDir  string
	anaTopN       int
	anaDashTopN   int
	anaMaxRows    int
	anaStrict     bool
	anaNoDownload bool
	anaDelimiter  string
	anaSheet      string
	anaParquet    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze incidents and write charts plus Markdown/text reports",
	Long: `Load incidents from a CSV/TSV, XLSX or Parquet file (or a warehouse table with
--source warehouse), derive calendar fields, compute counts and two-way
breakdowns, render charts and write chicago_crime_report.md and
analysis_report.txt into the output directory.

When the file does not exist it is downloaded from the public data portal
unless --no-download is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		applyAnalyzeFlags(cmd, c, args)
		if err := c.Validate(); err != nil {
			return err
		}
		lopt := loader.DefaultOptions()
		lopt.MaxRows = c.MaxRows
		lopt.Sheet = anaSheet
		if anaDelimiter != "" {
			d, err := parseDelimiter(anaDelimiter)
			if err != nil {
				return err
			}
			lopt.Delimiter = d
		}

		ctx := cmd.Context()
		m := metrics.New()

		done := m.Stage("load")
		ds, source, err := loadDataset(ctx, c, lopt)
		done()
		if err != nil {
			return err
		}
		slog.Debug("dataset loaded", "source", source, "rows", ds.Rows, "kept", len(ds.Records))

		done = m.Stage("preprocess")
		err = crime.Preprocess(ds, crime.PreprocessOptions{Strict: c.StrictDates})
		done()
		if err != nil {
			return fmt.Errorf("preprocess: %w", err)
		}
		if len(ds.Records) == 0 {
			return errors.New("no incidents with a valid DATE to analyze")
		}
		m.Rows(len(ds.Records), ds.Skipped)

		done = m.Stage("aggregate")
		res := analysis.Analyze(ds, analysis.Options{TopN: c.TopN, DashboardTopN: c.DashboardTopN})
		done()

		manifest := run.New(source, c.OutputDir)
		if anaParquet != "" {
			if err := loader.WriteParquet(anaParquet, ds); err != nil {
				return fmt.Errorf("export parquet: %w", err)
			}
			okf("✓ Exported %s records to %s", humanize.Comma(int64(len(ds.Records))), anaParquet)
		}

		done = m.Stage("charts")
		if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		arts, err := chart.RenderAll(c.OutputDir, res)
		done()
		m.Charts(len(arts))
		if err != nil {
			return fmt.Errorf("render charts: %w", err)
		}
		for _, a := range arts {
			manifest.AddArtifact(a.Path)
		}

		done = m.Stage("report")
		paths, err := report.Write(c.OutputDir, res, arts)
		done()
		if err != nil {
			return err
		}
		manifest.AddArtifact(paths.Markdown)
		manifest.AddArtifact(paths.Text)

		manifest.Rows = res.Total
		manifest.Skipped = ds.Skipped
		manifest.SetRange(res.First, res.Last)
		manifest.Warnings = res.Warnings
		if err := manifest.Save(); err != nil {
			return fmt.Errorf("save manifest: %w", err)
		}

		m.Done()
		if err := m.WriteFile(c.MetricsFile); err != nil {
			warn("⚠ Warning: failed to write metrics: %v", err)
		}

		for _, w := range res.Warnings {
			warn("⚠ %s", w)
		}
		okf("✓ Analyzed %s incidents from %s", humanize.Comma(int64(res.Total)), source)
		if !res.First.IsZero() {
			printf("  Date range: %s to %s\n", res.First.Format("2006-01-02"), res.Last.Format("2006-01-02"))
		}
		printf("  Charts: %d  Reports: %s, %s\n", len(arts), paths.Markdown, paths.Text)
		printf("  Manifest: %s\n", manifest.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaSource, "source", "", "input source: file or warehouse (overrides config)")
	analyzeCmd.Flags().StringVar(&anaTable, "table", "", "warehouse table to read when --source warehouse")
	analyzeCmd.Flags().StringVarP(&anaOutputDir, "output", "o", "", "output directory for charts and reports")
	analyzeCmd.Flags().IntVar(&anaTopN, "top", 0, "length of the top-N rankings")
	analyzeCmd.Flags().IntVar(&anaDashTopN, "dashboard-top", 0, "length of the dashboard and text report rankings")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 0, "max rows to read (0 = all)")
	analyzeCmd.Flags().BoolVar(&anaStrict, "strict-dates", false, "fail on the first unparsable DATE instead of dropping the row")
	analyzeCmd.Flags().BoolVar(&anaNoDownload, "no-download", false, "do not download the dataset when the file is missing")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',', 'tab', ';' (default from extension)")
	analyzeCmd.Flags().StringVar(&anaSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	analyzeCmd.Flags().StringVar(&anaParquet, "export-parquet", "", "also write the preprocessed incidents to this Parquet file")
}

func applyAnalyzeFlags(cmd *cobra.Command, c *cfgpkg.Global, args []string) {
	f := cmd.Flags()
	if len(args) == 1 {
		c.DataPath = args[0]
		if !f.Changed("source") {
			c.Source = "file"
		}
	}
	if f.Changed("source") {
		c.Source = anaSource
	}
	if f.Changed("table") {
		c.Warehouse.Table = anaTable
	}
	if f.Changed("output") {
		c.OutputDir = anaOutputDir
	}
	if f.Changed("top") {
		c.TopN = anaTopN
	}
	if f.Changed("dashboard-top") {
		c.DashboardTopN = anaDashTopN
	}
	if f.Changed("max-rows") {
		c.MaxRows = anaMaxRows
	}
	if f.Changed("strict-dates") {
		c.StrictDates = anaStrict
	}
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

// loadDataset reads incidents from the configured source and returns a
// label for the source.
func loadDataset(ctx context.Context, c *cfgpkg.Global, opt loader.Options) (*crime.Dataset, string, error) {
	if c.Source == "warehouse" {
		w, err := warehouse.Open(ctx, warehouseConfig(c))
		if err != nil {
			return nil, "", err
		}
		defer w.Close()
		ds, err := loader.LoadWarehouse(ctx, w, c.Warehouse.Table, opt)
		if err != nil {
			return nil, "", err
		}
		return ds, fmt.Sprintf("%s:%s", w.Dialect(), c.Warehouse.Table), nil
	}
	if err := ensureDataFile(ctx, c, c.DataPath, !anaNoDownload); err != nil {
		return nil, "", err
	}
	ds, err := loader.LoadFile(c.DataPath, opt)
	if err != nil {
		return nil, "", err
	}
	return ds, c.DataPath, nil
}

// ensureDataFile downloads the dataset to path when it is missing and
// download is allowed.
func ensureDataFile(ctx context.Context, c *cfgpkg.Global, path string, download bool) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if !download {
		return fmt.Errorf("data file %s not found (run 'crimelens fetch' or drop --no-download)", path)
	}
	warn("⚠ %s not found, downloading", path)
	return downloadDataset(ctx, c, path)
}

// downloadDataset fetches the configured dataset URL into path. An existing
// file is only replaced once the transfer has completed.
func downloadDataset(ctx context.Context, c *cfgpkg.Global, path string) error {
	url := c.DataURL
	if url == "" {
		url = loader.DefaultDatasetURL
	}
	slog.Info("downloading dataset", "url", url, "dest", path)
	retry := loader.Retry{
		MaxAttempts: c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
	}
	n, err := loader.Download(ctx, url, path, time.Duration(c.HTTPTimeoutSec)*time.Second, retry)
	if err != nil {
		return err
	}
	okf("✓ Downloaded %s to %s", humanize.Bytes(uint64(n)), path)
	return nil
}

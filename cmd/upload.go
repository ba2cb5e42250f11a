package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/crimelens-cli/internal/config"
	"github.com/KaramelBytes/crimelens-cli/internal/metrics"
	"github.com/KaramelBytes/crimelens-cli/internal/utils"
	"github.com/KaramelBytes/crimelens-cli/internal/warehouse"
)

var (
	upTable   string
	upDriver  string
	upNoTable bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [dir]",
	Short: "Load split CSV files into the warehouse table",
	Long: `Connect to the configured warehouse, recreate the incident table, then load
every split file (Snowflake: PUT to the user stage and COPY INTO with
ON_ERROR = 'CONTINUE'; Postgres: COPY FROM STDIN). Files that fail are
reported and skipped; the command exits non-zero if any file failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("driver") {
			c.Warehouse.Driver = upDriver
		}
		table := c.Warehouse.UploadTable
		if cmd.Flags().Changed("table") {
			table = upTable
		}
		dir, pattern := splitTarget(cmd, c, args)
		files, err := utils.MatchFiles(dir, pattern)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		w, err := warehouse.Open(ctx, warehouseConfig(c))
		if err != nil {
			return err
		}
		defer w.Close()
		okf("✓ Connected to %s", w.Dialect())

		m := metrics.New()
		done := m.Stage("upload")
		n := 0
		res, err := warehouse.Upload(ctx, w, files, warehouse.UploadOptions{
			Table:       table,
			CreateTable: !upNoTable,
			FileFormat:  c.Warehouse.FileFormat,
			OnFile: func(file string, rows int64, took time.Duration, err error) {
				n++
				m.File(rows, err)
				if err != nil {
					warn("⚠ [%d/%d] %s failed: %v", n, len(files), filepath.Base(file), err)
					return
				}
				okf("✓ [%d/%d] %s: %s rows (%s)", n, len(files), filepath.Base(file),
					humanize.Comma(rows), took.Round(time.Millisecond))
			},
		})
		done()

		printf("\nUpload summary:\n")
		printf("Files loaded: %d/%d\n", res.Loaded, len(files))
		printf("Rows loaded: %s\n", humanize.Comma(res.Rows))
		printf("Rows in %s: %s\n", table, humanize.Comma(res.Total))

		var fe *warehouse.FileError
		if err == nil {
			m.Done()
		}
		if werr := m.WriteFile(c.MetricsFile); werr != nil {
			warn("⚠ Warning: failed to write metrics: %v", werr)
		}
		if err != nil && errors.As(err, &fe) {
			return fmt.Errorf("%d of %d files failed to load: %w", res.Failed, len(files), err)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&upTable, "table", "", "target table (default warehouse.upload_table)")
	uploadCmd.Flags().StringVar(&upDriver, "driver", "", "warehouse driver: snowflake or postgres")
	uploadCmd.Flags().StringVar(&scanPattern, "pattern", "", "file glob inside dir (default split_pattern from config)")
	uploadCmd.Flags().BoolVar(&upNoTable, "append", false, "keep the existing table instead of recreating it")
}

func warehouseConfig(c *cfgpkg.Global) warehouse.Config {
	w := c.Warehouse
	return warehouse.Config{
		Driver:     w.Driver,
		DSN:        w.DSN,
		Account:    w.Account,
		User:       w.User,
		Password:   w.Password,
		Database:   w.Database,
		Schema:     w.Schema,
		Warehouse:  w.Warehouse,
		Role:       w.Role,
		Stage:      w.Stage,
		FileFormat: w.FileFormat,
	}
}

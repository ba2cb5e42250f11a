package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/crimelens-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set crimelens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		printf("data_path: %s\n", c.DataPath)
		if c.DataURL != "" {
			printf("data_url: %s\n", c.DataURL)
		}
		printf("source: %s\n", c.Source)
		printf("output_dir: %s\n", c.OutputDir)
		printf("top_n: %d\n", c.TopN)
		printf("dashboard_top_n: %d\n", c.DashboardTopN)
		if c.MaxRows > 0 {
			printf("max_rows: %d\n", c.MaxRows)
		}
		printf("strict_dates: %t\n", c.StrictDates)
		if c.MetricsFile != "" {
			printf("metrics_file: %s\n", c.MetricsFile)
		}
		printf("http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		printf("retry_max_attempts: %d\n", c.RetryMaxAttempts)
		printf("retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
		printf("retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
		printf("split_dir: %s\n", c.SplitDir)
		printf("split_pattern: %s\n", c.SplitPattern)
		printf("split_rows: %d\n", c.SplitRows)
		printf("max_file_mb: %d\n", c.MaxFileMB)
		w := c.Warehouse
		printf("warehouse.driver: %s\n", w.Driver)
		if w.DSN != "" {
			printf("warehouse.dsn: %s\n", mask(w.DSN))
		}
		printf("warehouse.account: %s\n", w.Account)
		printf("warehouse.user: %s\n", w.User)
		printf("warehouse.password: %s\n", mask(w.Password))
		printf("warehouse.database: %s\n", w.Database)
		printf("warehouse.schema: %s\n", w.Schema)
		if w.Warehouse != "" {
			printf("warehouse.warehouse: %s\n", w.Warehouse)
		}
		if w.Role != "" {
			printf("warehouse.role: %s\n", w.Role)
		}
		printf("warehouse.table: %s\n", w.Table)
		printf("warehouse.upload_table: %s\n", w.UploadTable)
		printf("warehouse.stage: %s\n", w.Stage)
		printf("warehouse.file_format: %s\n", w.FileFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cfgpkg.LoadFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := setKey(c, args[0], args[1]); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		// the cached effective config is stale now
		cfg = nil
		okf("✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	w := &c.Warehouse
	switch key {
	case "data_path":
		c.DataPath = val
	case "data_url":
		c.DataURL = val
	case "source":
		c.Source = val
	case "output_dir":
		c.OutputDir = val
	case "top_n":
		c.TopN, err = atoi()
	case "dashboard_top_n":
		c.DashboardTopN, err = atoi()
	case "max_rows":
		c.MaxRows, err = atoi()
	case "strict_dates":
		c.StrictDates, err = strconv.ParseBool(val)
	case "metrics_file":
		c.MetricsFile = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "split_dir":
		c.SplitDir = val
	case "split_pattern":
		c.SplitPattern = val
	case "split_rows":
		c.SplitRows, err = atoi()
	case "max_file_mb":
		c.MaxFileMB, err = atoi()
	case "warehouse.driver":
		switch val {
		case "snowflake", "postgres":
			w.Driver = val
		default:
			return fmt.Errorf("invalid warehouse.driver: %s (use snowflake or postgres)", val)
		}
	case "warehouse.dsn":
		w.DSN = val
	case "warehouse.account":
		w.Account = val
	case "warehouse.user":
		w.User = val
	case "warehouse.password":
		w.Password = val
	case "warehouse.database":
		w.Database = val
	case "warehouse.schema":
		w.Schema = val
	case "warehouse.warehouse":
		w.Warehouse = val
	case "warehouse.role":
		w.Role = val
	case "warehouse.table":
		w.Table = val
	case "warehouse.upload_table":
		w.UploadTable = val
	case "warehouse.stage":
		w.Stage = val
	case "warehouse.file_format":
		w.FileFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/crimelens-cli/internal/utils"
	"github.com/KaramelBytes/crimelens-cli/internal/warehouse"
)

var (
	sqlOut     string
	sqlNoSetup bool
)

var sqlgenCmd = &cobra.Command{
	Use:   "sqlgen [dir]",
	Short: "Generate a Snowflake bulk-load script for the split files",
	Long: `Write a SQL script that creates the database, schema, incident table and CSV
file format, then stages and copies every split file with PUT and COPY INTO,
and finally verifies the row count. Nothing is executed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		dir, pattern := splitTarget(cmd, c, args)
		files, err := utils.MatchFiles(dir, pattern)
		if err != nil {
			return err
		}
		opt := warehouse.ScriptOptions{
			Table:      c.Warehouse.UploadTable,
			Stage:      c.Warehouse.Stage,
			FileFormat: c.Warehouse.FileFormat,
		}
		if !sqlNoSetup {
			opt.Database, opt.Schema = c.Warehouse.Database, c.Warehouse.Schema
		}
		script := warehouse.Script(opt, files)
		if sqlOut == "" || sqlOut == "-" {
			printf("%s", script)
			return nil
		}
		if dir := filepath.Dir(sqlOut); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
		if err := utils.SafeWriteFile(sqlOut, []byte(script)); err != nil {
			return err
		}
		okf("✓ Wrote SQL for %d files to %s", len(files), sqlOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sqlgenCmd)
	sqlgenCmd.Flags().StringVarP(&sqlOut, "output", "o", "snowflake_upload_commands.sql", "script path ('-' for stdout)")
	sqlgenCmd.Flags().StringVar(&scanPattern, "pattern", "", "file glob inside dir (default split_pattern from config)")
	sqlgenCmd.Flags().BoolVar(&sqlNoSetup, "no-setup", false, "omit CREATE/USE DATABASE and SCHEMA statements")
}

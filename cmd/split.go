package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/crimelens-cli/internal/staging"
)

var (
	splitOutDir string
	splitRows   int
	splitMaxMB  int
	splitPrefix string
)

var splitCmd = &cobra.Command{
	Use:   "split [file]",
	Short: "Split a large CSV into numbered parts small enough to stage",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		src := c.DataPath
		if len(args) == 1 {
			src = args[0]
		}
		out := c.SplitDir
		if cmd.Flags().Changed("out") {
			out = splitOutDir
		}
		rows := c.SplitRows
		if cmd.Flags().Changed("rows") {
			rows = splitRows
		}
		maxMB := c.MaxFileMB
		if cmd.Flags().Changed("max-mb") {
			maxMB = splitMaxMB
		}
		parts, err := staging.Split(src, out, staging.SplitOptions{
			RowsPerFile: rows,
			MaxBytes:    int64(maxMB) * 1024 * 1024,
			Prefix:      splitPrefix,
		})
		if err != nil {
			return fmt.Errorf("split %s: %w", src, err)
		}
		var total int
		for _, p := range parts {
			total += p.Rows
			printf("  %s  %s rows  %s\n", filepath.Base(p.Path), humanize.Comma(int64(p.Rows)), humanize.IBytes(uint64(p.Bytes)))
		}
		okf("✓ Wrote %d parts (%s rows) to %s", len(parts), humanize.Comma(int64(total)), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().StringVarP(&splitOutDir, "out", "o", "", "output directory (default split_dir from config)")
	splitCmd.Flags().IntVar(&splitRows, "rows", 0, "max data rows per part (0 = no row bound)")
	splitCmd.Flags().IntVar(&splitMaxMB, "max-mb", 0, "max part size in MB (0 = no size bound)")
	splitCmd.Flags().StringVar(&splitPrefix, "prefix", "", "part file name prefix (default chicago_crime_part_)")
}

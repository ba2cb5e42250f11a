package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/crimelens-cli/internal/config"
	"github.com/KaramelBytes/crimelens-cli/internal/staging"
)

var scanPattern string

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Report size, rows and columns of split files and check the staging size limit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		dir, pattern := splitTarget(cmd, c, args)
		stats, err := staging.Scan(cmd.Context(), dir, pattern)
		if err != nil {
			return err
		}
		printScan(stats, staging.Summarize(stats, int64(c.MaxFileMB)*1024*1024))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanPattern, "pattern", "", "file glob inside dir (default split_pattern from config)")
}

// splitTarget resolves the directory and glob for commands that consume
// split files.
func splitTarget(cmd *cobra.Command, c *cfgpkg.Global, args []string) (string, string) {
	dir := c.SplitDir
	if len(args) == 1 {
		dir = args[0]
	}
	pattern := c.SplitPattern
	if fl := cmd.Flags().Lookup("pattern"); fl != nil && fl.Changed {
		pattern = fl.Value.String()
	}
	return dir, pattern
}

func printScan(stats []staging.FileStat, s staging.Summary) {
	printf("Found %d CSV files:\n", len(stats))
	t := tablewriter.NewWriter(stdout)
	t.SetHeader([]string{"#", "File", "Size (MB)", "Rows", "Columns", "xxh3"})
	t.SetAutoWrapText(false)
	for i, st := range stats {
		cols := strings.Join(st.Columns, ", ")
		if len(st.Columns) > 0 {
			cols += "..."
		}
		t.Append([]string{
			fmt.Sprintf("%d", i+1),
			st.Name,
			fmt.Sprintf("%.2f", staging.MB(st.Size)),
			humanize.Comma(int64(st.Rows)),
			cols,
			st.Checksum,
		})
	}
	t.Render()

	printf("\nSummary:\n")
	printf("Total files: %d\n", s.Files)
	printf("Total size: %.2f MB\n", staging.MB(s.TotalBytes))
	printf("Total rows: %s\n", humanize.Comma(int64(s.TotalRows)))
	printf("Average file size: %.2f MB\n", staging.MB(s.AvgBytes))
	printf("Average rows per file: %s\n", humanize.Comma(int64(s.AvgRows)))
	printf("\nWarehouse staging limit:\n")
	printf("Largest file: %s (%.2f MB)\n", s.Largest.Name, staging.MB(s.Largest.Size))
	limitMB := staging.MB(s.LimitBytes)
	if s.Suitable {
		okf("✓ All files are under %.0fMB - suitable for upload", limitMB)
	} else {
		warn("⚠ Some files exceed %.0fMB - may need further splitting", limitMB)
	}
}

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	fetchURL   string
	fetchForce bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [dest]",
	Short: "Download the incident dataset from the public data portal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		dest := c.DataPath
		if len(args) == 1 {
			dest = args[0]
		}
		if cmd.Flags().Changed("url") {
			c.DataURL = fetchURL
		}
		if fetchForce {
			err = downloadDataset(cmd.Context(), c, dest)
		} else {
			err = ensureDataFile(cmd.Context(), c, dest, true)
		}
		if err != nil {
			return err
		}
		okf("✓ Dataset ready at %s", dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "dataset URL (default: data portal CSV export)")
	fetchCmd.Flags().BoolVarP(&fetchForce, "force", "f", false, "re-download even if the file exists")
}

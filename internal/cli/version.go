package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "oxbow %s\n", buildVersion)
		fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", buildCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

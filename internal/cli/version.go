// internal/cli/version.go

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("pricescout", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// internal/cli/contextcmd.go

package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/pricescout/pricescout/internal/extract"
)

var contextFlags struct {
	pageURL string
	render  bool
	flat    bool
}

var contextCmd = &cobra.Command{
	Use:   "context <url|file>",
	Short: "Dump a page's structured-data context",
	Long: `Context builds and prints the structured-data snapshot (JSON-LD, meta
tags, data layers) the engine would extract from. With --flat the snapshot
is rendered as path/value pairs ready to paste into STRUCTURED_DATA
selectors, the recipe builder's deep search view.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, _, err := loadPage(cmd.Context(), args[0], contextFlags.pageURL, contextFlags.render)
		if err != nil {
			return err
		}

		ctx, err := extract.BuildContext(pg)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if contextFlags.flat {
			return enc.Encode(ctx.Flatten())
		}
		return enc.Encode(ctx)
	},
}

func init() {
	contextCmd.Flags().StringVar(&contextFlags.pageURL, "url", "", "page URL to record for file input")
	contextCmd.Flags().BoolVar(&contextFlags.render, "render", false, "render the page in headless Chrome first")
	contextCmd.Flags().BoolVar(&contextFlags.flat, "flat", false, "print flattened path/value pairs")
	rootCmd.AddCommand(contextCmd)
}

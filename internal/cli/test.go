// internal/cli/test.go

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pricescout/pricescout/internal/extract"
)

var testFlags struct {
	recipeFile string
	pageURL    string
	render     bool
}

var testCmd = &cobra.Command{
	Use:   "test -r recipe.yaml <url|file>",
	Short: "Dry-run a recipe against a page",
	Long: `Test runs the extraction pipeline for one recipe and reports per-selector
outcomes without submitting anything. This is the recipe builder workflow
for validating selectors against a real page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if testFlags.recipeFile == "" {
			return fmt.Errorf("test requires --recipe")
		}
		r, err := loadRecipeFile(testFlags.recipeFile)
		if err != nil {
			return err
		}

		pg, pageURL, err := loadPage(cmd.Context(), args[0], testFlags.pageURL, testFlags.render)
		if err != nil {
			return err
		}

		result, err := extract.New().Test(r, pageURL, pg)
		if err != nil {
			return err
		}

		printTestSummary(result)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	testCmd.Flags().StringVarP(&testFlags.recipeFile, "recipe", "r", "", "recipe file (yaml or json)")
	testCmd.Flags().StringVar(&testFlags.pageURL, "url", "", "page URL to record for file input")
	testCmd.Flags().BoolVar(&testFlags.render, "render", false, "render the page in headless Chrome first")
	rootCmd.AddCommand(testCmd)
}

func printTestSummary(result *extract.TestResult) {
	assigned := 0
	for _, out := range result.Outcomes {
		status := "MISS"
		if out.Assigned {
			status = "OK"
			assigned++
		} else if out.Found {
			status = "RAW-ONLY"
		}
		marker := " "
		if out.Required && !out.Assigned {
			marker = "!"
		}
		fmt.Fprintf(os.Stderr, "%s %-16s %-15s %s\n", marker, out.Field, out.Method, status)
	}
	fmt.Fprintf(os.Stderr, "%d/%d selectors assigned\n", assigned, len(result.Outcomes))
}

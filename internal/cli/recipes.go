// internal/cli/recipes.go

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pricescout/pricescout/internal/recipe"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Manage the local recipe cache",
}

var recipesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the recipe set from the service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fresh, err := newClient().ListRecipes(cmd.Context())
		if err != nil {
			return err
		}

		store, err := recipe.OpenStore(cfg.Recipes.StorePath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ReplaceAll(fresh); err != nil {
			return err
		}
		log.Info().Int("count", len(fresh)).Msg("recipe cache refreshed")
		return nil
	},
}

var recipesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached recipes",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := recipe.OpenStore(cfg.Recipes.StorePath)
		if err != nil {
			return err
		}
		defer store.Close()

		recipes, err := store.All()
		if err != nil {
			return err
		}
		if last, ok := store.LastRefresh(); ok {
			fmt.Fprintf(os.Stderr, "last refresh: %s\n", last.Local().Format("2006-01-02 15:04"))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMERCHANT\tACTIVE\tPATTERN")
		for _, r := range recipes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", r.ID, r.Name, r.Merchant.Name, r.IsActive, r.URLPattern)
		}
		return w.Flush()
	},
}

func init() {
	recipesCmd.AddCommand(recipesRefreshCmd, recipesListCmd)
	rootCmd.AddCommand(recipesCmd)
}

// internal/cli/extract.go

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pricescout/pricescout/internal/api"
	"github.com/pricescout/pricescout/internal/auth"
	"github.com/pricescout/pricescout/internal/dedup"
	"github.com/pricescout/pricescout/internal/extract"
	"github.com/pricescout/pricescout/internal/output"
	"github.com/pricescout/pricescout/internal/recipe"
)

var extractFlags struct {
	recipeFile string
	pageURL    string
	render     bool
	submit     bool
	out        string
	outFile    string
}

var extractCmd = &cobra.Command{
	Use:   "extract <url|file>",
	Short: "Extract product data from a page",
	Long: `Extract loads a page, picks the matching recipe (or uses --recipe), runs
the extraction engine, and prints the resulting record. With --submit the
record is sent to the service after passing the deduplication gate;
submission requires a prior login.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractFlags.recipeFile, "recipe", "r", "", "local recipe file (yaml or json) instead of the cached set")
	extractCmd.Flags().StringVar(&extractFlags.pageURL, "url", "", "page URL to record for file input")
	extractCmd.Flags().BoolVar(&extractFlags.render, "render", false, "render the page in headless Chrome first")
	extractCmd.Flags().BoolVar(&extractFlags.submit, "submit", false, "submit the record to the service")
	extractCmd.Flags().StringVarP(&extractFlags.out, "output", "o", "", "also persist via an output sink (json, csv, excel, sqlite, postgres, mysql, mongodb)")
	extractCmd.Flags().StringVar(&extractFlags.outFile, "output-file", "", "file path for file-based output sinks")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pg, pageURL, err := loadPage(ctx, args[0], extractFlags.pageURL, extractFlags.render)
	if err != nil {
		return err
	}

	r, err := pickRecipe(ctx, pageURL)
	if err != nil {
		return err
	}
	log.Info().Str("recipe", r.Name).Str("merchant", r.Merchant.Name).Msg("recipe selected")

	rec, err := extract.New().Extract(r, pageURL, pg)
	if err != nil {
		return err
	}
	applyDefaultCurrency(rec)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec.Map()); err != nil {
		return err
	}

	if extractFlags.out != "" {
		if err := persistRecord(ctx, rec); err != nil {
			return err
		}
	}

	if extractFlags.submit {
		return submitRecord(ctx, rec)
	}
	return nil
}

// pickRecipe resolves the recipe to run: an explicit local file, or the best
// match from the cached server set.
func pickRecipe(ctx context.Context, pageURL string) (*recipe.Recipe, error) {
	if extractFlags.recipeFile != "" {
		return loadRecipeFile(extractFlags.recipeFile)
	}

	recipes, err := cachedRecipes(ctx)
	if err != nil {
		return nil, err
	}
	matches := recipe.FilterForURL(recipes, pageURL)
	if len(matches) > 0 {
		return &matches[0], nil
	}

	// The cache may trail newly authored recipes; ask the server directly
	// before giving up.
	remote, err := newClient().FindRecipesByURL(ctx, pageURL)
	if err != nil {
		log.Debug().Err(err).Msg("server-side recipe match unavailable")
	}
	for i := range remote {
		if remote[i].IsActive {
			return &remote[i].Recipe, nil
		}
	}
	return nil, fmt.Errorf("no recipe found for this page")
}

// cachedRecipes serves recipes from the local store, refreshing from the
// server when the cache is stale or missing. A stale cache with an
// unreachable server still serves.
func cachedRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	store, err := recipe.OpenStore(cfg.Recipes.StorePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if store.NeedsRefresh(cfg.Recipes.RefreshInterval.Std()) {
		fresh, err := newClient().ListRecipes(ctx)
		if err != nil {
			var netErr *api.NetworkError
			if !errors.As(err, &netErr) {
				return nil, err
			}
			log.Warn().Err(err).Msg("recipe refresh failed, using cached set")
		} else if err := store.ReplaceAll(fresh); err != nil {
			return nil, err
		}
	}
	return store.All()
}

func loadRecipeFile(path string) (*recipe.Recipe, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe file: %w", err)
	}
	var r recipe.Recipe
	if json.Valid(raw) {
		err = json.Unmarshal(raw, &r)
	} else {
		err = yaml.Unmarshal(raw, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing recipe file: %w", err)
	}
	return &r, nil
}

// applyDefaultCurrency fills the configured currency when the recipe has no
// CURRENCY selector but produced a price.
func applyDefaultCurrency(rec *extract.Record) {
	if rec.Currency == nil && (rec.Price != nil || rec.SalePrice != nil) {
		c := cfg.DefaultCurrency
		rec.Currency = &c
	}
}

func persistRecord(ctx context.Context, rec *extract.Record) error {
	outCfg := cfg.Output
	outCfg.Format = extractFlags.out
	if extractFlags.outFile != "" {
		outCfg.File = extractFlags.outFile
	}
	w, err := output.New(outCfg)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Write(ctx, []*extract.Record{rec})
}

func submitRecord(ctx context.Context, rec *extract.Record) error {
	if _, err := tokenStore().Token(); errors.Is(err, auth.ErrNoToken) {
		return fmt.Errorf("submission requires login; run: pricescout login")
	}

	// The gate state lives beside the recipe store so suppression carries
	// across invocations.
	gate, err := dedup.Open(cfg.Dedup.StatePath, cfg.Dedup.TTL.Std(), cfg.Dedup.Capacity)
	if err != nil {
		log.Warn().Err(err).Msg("could not load dedup state, starting empty")
		gate = dedup.New(cfg.Dedup.TTL.Std(), cfg.Dedup.Capacity)
	}
	if !gate.ShouldSubmit(rec) {
		log.Info().Str("url", rec.URL).Msg("identical record recently submitted, skipping")
		return nil
	}

	if err := newClient().SubmitRecords(ctx, []*extract.Record{rec}); err != nil {
		var netErr *api.NetworkError
		if errors.As(err, &netErr) {
			return fmt.Errorf("could not reach the service: %w", err)
		}
		return err
	}
	gate.MarkSubmitted(rec)
	if err := gate.Save(); err != nil {
		log.Warn().Err(err).Msg("could not persist dedup state")
	}
	log.Info().Str("url", rec.URL).Msg("record submitted")
	return nil
}

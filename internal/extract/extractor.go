// internal/extract/extractor.go

package extract

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pricescout/pricescout/internal/page"
	"github.com/pricescout/pricescout/internal/recipe"
)

// Extractor runs recipes against pages. It is stateless; one instance may be
// shared, and concurrent calls are safe as long as each call owns its Page.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract runs every selector of r against pg and accumulates a record.
// Individual selector failures are logged and skipped; the returned record
// reflects whichever fields succeeded. Only a context-build failure is an
// error, and no partial record accompanies it.
//
// For a fixed (recipe, page) pair the result is deterministic: re-running
// against an unchanged page yields an identical record.
func (e *Extractor) Extract(r *recipe.Recipe, pageURL string, pg *page.Page) (*Record, error) {
	start := time.Now()

	ctx, err := BuildContext(pg)
	if err != nil {
		return nil, err
	}

	rec := NewRecord(pageURL, r.Merchant.ID, r.Merchant.Name, pg.BaseURL())
	for _, sel := range r.SelectorList() {
		e.processSelector(sel, ctx, pg, rec)
	}

	log.Debug().
		Str("recipe", r.ID).
		Str("merchant", r.Merchant.Name).
		Int("fields", rec.FieldCount()).
		Dur("elapsed", time.Since(start)).
		Msg("extraction complete")

	return rec, nil
}

// processSelector isolates one selector's evaluation so a panic or failure
// in it cannot touch the other selectors.
func (e *Extractor) processSelector(sel recipe.Selector, ctx *Context, pg *page.Page, rec *Record) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Str("field", string(sel.FieldName)).
				Interface("panic", r).
				Msg("selector processing panicked, field skipped")
		}
	}()

	raw, ok := ExtractValue(sel, ctx, pg)
	if !ok {
		return
	}
	Assign(rec, sel.FieldName, raw)
}

// FieldOutcome reports what happened to one selector during a test run.
type FieldOutcome struct {
	Field    recipe.FieldName        `json:"field"`
	Method   recipe.ExtractionMethod `json:"method"`
	Raw      string                  `json:"raw,omitempty"`
	Found    bool                    `json:"found"`
	Assigned bool                    `json:"assigned"`
	Required bool                    `json:"required"`
}

// TestResult is the recipe builder's view of a dry run: the record that
// would be submitted plus per-selector outcomes.
type TestResult struct {
	Record   *Record        `json:"record"`
	Outcomes []FieldOutcome `json:"outcomes"`
}

// Test runs the same pipeline as Extract but reports per-selector outcomes
// and never submits anywhere. The builder uses this to validate a recipe
// against a live page.
func (e *Extractor) Test(r *recipe.Recipe, pageURL string, pg *page.Page) (*TestResult, error) {
	ctx, err := BuildContext(pg)
	if err != nil {
		return nil, err
	}

	rec := NewRecord(pageURL, r.Merchant.ID, r.Merchant.Name, pg.BaseURL())
	sels := r.SelectorList()
	outcomes := make([]FieldOutcome, 0, len(sels))

	for _, sel := range sels {
		out := FieldOutcome{
			Field:    sel.FieldName,
			Method:   sel.ExtractionMethod,
			Required: sel.IsRequired,
		}
		raw, ok := ExtractValue(sel, ctx, pg)
		if ok {
			out.Found = true
			out.Raw = raw
			out.Assigned = Assign(rec, sel.FieldName, raw)
		}
		outcomes = append(outcomes, out)
	}

	return &TestResult{Record: rec, Outcomes: outcomes}, nil
}

// internal/browser/browser.go

// Package browser renders pages in headless Chrome for sites whose
// structured data only exists after script execution. The rendered HTML and
// harvested data-layer globals feed page.NewFromBrowser.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// harvestScript serializes the known data-layer globals. Unserializable
// values are dropped per-global rather than failing the harvest.
const harvestScript = `(() => {
	const out = {};
	for (const name of ["dataLayer", "digitalData", "utag_data"]) {
		try {
			const v = window[name];
			if (v !== undefined) out[name] = JSON.parse(JSON.stringify(v));
		} catch (e) {}
	}
	return JSON.stringify(out);
})()`

// Renderer drives a headless browser.
type Renderer struct {
	headful bool
	timeout time.Duration
}

// NewRenderer builds a Renderer. A zero timeout defaults to 45 seconds.
func NewRenderer(headful bool, timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Renderer{headful: headful, timeout: timeout}
}

// Render loads pageURL, waits for the document to settle, and returns the
// final HTML plus the JSON-decoded data-layer globals.
func (r *Renderer) Render(ctx context.Context, pageURL string) (string, map[string]any, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	if r.headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.timeout)
	defer cancelRun()

	var html, globalsJSON string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		// Give late-firing tag managers a moment to populate their layers.
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Evaluate(harvestScript, &globalsJSON),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", nil, fmt.Errorf("rendering %s: %w", pageURL, err)
	}

	globals := map[string]any{}
	if err := json.Unmarshal([]byte(globalsJSON), &globals); err != nil {
		log.Warn().Str("url", pageURL).Err(err).Msg("discarding unparsable data-layer harvest")
		globals = map[string]any{}
	}
	return html, globals, nil
}

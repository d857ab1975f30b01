// internal/cli/page.go

package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pricescout/pricescout/internal/browser"
	"github.com/pricescout/pricescout/internal/page"
)

// loadPage turns a command argument (URL or local HTML file) into a Page.
// render routes through headless Chrome; pageURL overrides the base URL for
// file input.
func loadPage(ctx context.Context, target, pageURL string, render bool) (*page.Page, string, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if pageURL == "" {
			pageURL = target
		}
		if render {
			r := browser.NewRenderer(cfg.Browser.Headful, cfg.Browser.Timeout.Std())
			html, globals, err := r.Render(ctx, target)
			if err != nil {
				return nil, "", err
			}
			pg, err := page.NewFromBrowser(html, pageURL, globals)
			return pg, pageURL, err
		}
		html, err := fetchHTML(ctx, target)
		if err != nil {
			return nil, "", err
		}
		pg, err := page.NewWithScripts(html, pageURL)
		return pg, pageURL, err
	}

	raw, err := os.ReadFile(target)
	if err != nil {
		return nil, "", fmt.Errorf("reading page file: %w", err)
	}
	if pageURL == "" {
		pageURL = "http://localhost/"
	}
	pg, err := page.NewWithScripts(string(raw), pageURL)
	return pg, pageURL, err
}

func fetchHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building page request: %w", err)
	}
	req.Header.Set("User-Agent", "pricescout/1.0")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(body), nil
}

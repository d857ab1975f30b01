// internal/page/page.go

// Package page wraps one loaded HTML document behind a handle the extraction
// engine can query: CSS selection via goquery, raw nodes for XPath, and an
// optional embedded JavaScript runtime that imitates a minimal browser scope
// so inline data-layer scripts can run.
package page

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// scriptBudget bounds total inline-script execution per page. Pages with
// runaway scripts lose their data layers rather than hanging the caller.
const scriptBudget = 500 * time.Millisecond

// Page is a parsed HTML document plus its script environment. A Page is
// read-only after construction and safe for sequential reuse across
// extractions; it is not safe for concurrent use because the embedded VM is
// single-threaded.
type Page struct {
	doc  *goquery.Document
	root *html.Node
	base *url.URL

	// vm is non-nil only when the page was built with script evaluation
	// enabled. Script expressions are trusted input; see EvalExpr.
	vm      *goja.Runtime
	globals map[string]any
}

// New parses rawHTML into a Page without a script environment. JS_PATH
// selectors and script-populated data layers are unavailable on such pages.
func New(rawHTML, pageURL string) (*Page, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}

	return &Page{
		doc:  goquery.NewDocumentFromNode(root),
		root: root,
		base: base,
	}, nil
}

// NewWithScripts parses rawHTML and executes its inline scripts inside an
// embedded runtime, so globals like dataLayer and digitalData become
// observable. Only call this for recipes from a trusted source.
func NewWithScripts(rawHTML, pageURL string) (*Page, error) {
	p, err := New(rawHTML, pageURL)
	if err != nil {
		return nil, err
	}
	p.vm = newRuntime(p.base)
	p.runInlineScripts()
	return p, nil
}

// NewFromBrowser wraps HTML rendered by a real browser, seeding the script
// environment with globals harvested there instead of re-running inline
// scripts locally.
func NewFromBrowser(rawHTML, pageURL string, globals map[string]any) (*Page, error) {
	p, err := New(rawHTML, pageURL)
	if err != nil {
		return nil, err
	}
	p.vm = newRuntime(p.base)
	p.globals = globals
	for name, val := range globals {
		if err := p.vm.Set(name, val); err != nil {
			log.Debug().Str("global", name).Err(err).Msg("seeding browser global failed")
		}
	}
	return p, nil
}

// Find runs a CSS selector against the document.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// Root returns the parsed document root for XPath evaluation.
func (p *Page) Root() *html.Node {
	return p.root
}

// Text returns the visible text of the whole document.
func (p *Page) Text() string {
	return p.doc.Text()
}

// URL returns the page URL as given at construction.
func (p *Page) URL() string {
	return p.base.String()
}

// BaseURL returns the parsed page URL.
func (p *Page) BaseURL() *url.URL {
	return p.base
}

// ResolveURL resolves raw against the page origin, returning raw unchanged
// when it cannot be parsed as a URL reference.
func (p *Page) ResolveURL(raw string) string {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return p.base.ResolveReference(ref).String()
}

// ScriptsEnabled reports whether this page carries a script environment.
func (p *Page) ScriptsEnabled() bool {
	return p.vm != nil
}

// Global returns the exported value of a page global, or false when the
// global is undefined. Pages built without scripts only see seeded browser
// globals.
func (p *Page) Global(name string) (any, bool) {
	if p.vm != nil {
		v := p.vm.GlobalObject().Get(name)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			if g, ok := p.globals[name]; ok {
				return g, true
			}
			return nil, false
		}
		return v.Export(), true
	}
	if g, ok := p.globals[name]; ok {
		return g, true
	}
	return nil, false
}

// EvalExpr evaluates expr as a script expression in page scope and
// stringifies the result. It returns false when the page has no script
// environment, the expression throws, or the result is null/undefined.
//
// Expressions originate from recipes, which are privileged administrator
// input. Never route end-user strings through here.
func (p *Page) EvalExpr(expr string) (string, bool) {
	if p.vm == nil {
		return "", false
	}

	timer := time.AfterFunc(scriptBudget, func() {
		p.vm.Interrupt("script budget exceeded")
	})
	// Stop the timer before clearing, so a late-firing interrupt cannot
	// leak into the next evaluation on this page.
	defer func() {
		timer.Stop()
		p.vm.ClearInterrupt()
	}()

	v, err := p.vm.RunString(expr)
	if err != nil {
		log.Debug().Str("expr", expr).Err(err).Msg("script expression failed")
		return "", false
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", false
	}
	return Stringify(v.Export())
}

// Stringify renders an exported script value the way a page script would see
// it when concatenated into a string, except that objects and arrays are
// JSON-encoded rather than "[object Object]".
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), true
		}
		return string(b), true
	}
}

// runInlineScripts executes every inline <script> in document order,
// ignoring per-script failures. External (src=) and non-JavaScript script
// tags are skipped.
func (p *Page) runInlineScripts() {
	timer := time.AfterFunc(scriptBudget, func() {
		p.vm.Interrupt("script budget exceeded")
	})
	defer func() {
		timer.Stop()
		p.vm.ClearInterrupt()
	}()

	p.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		typ, _ := s.Attr("type")
		typ = strings.ToLower(strings.TrimSpace(typ))
		if typ != "" && typ != "module" && !strings.Contains(typ, "javascript") {
			return
		}
		src := s.Text()
		if strings.TrimSpace(src) == "" {
			return
		}
		if _, err := p.vm.RunString(src); err != nil {
			log.Debug().Err(err).Msg("inline script failed")
		}
	})
}

// newRuntime builds a goja runtime with the handful of browser globals page
// scripts reach for before touching their data layers.
func newRuntime(base *url.URL) *goja.Runtime {
	vm := goja.New()

	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("globalThis", vm.GlobalObject())

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	vm.Set("console", map[string]any{
		"log": noop, "info": noop, "warn": noop, "error": noop, "debug": noop,
	})

	vm.Set("location", map[string]any{
		"href":     base.String(),
		"protocol": base.Scheme + ":",
		"host":     base.Host,
		"hostname": base.Hostname(),
		"pathname": base.Path,
		"search":   base.RawQuery,
	})

	vm.Set("document", map[string]any{
		"title":          "",
		"referrer":       "",
		"addEventListener": noop,
	})
	vm.Set("addEventListener", noop)
	vm.Set("setTimeout", noop)
	vm.Set("setInterval", noop)

	return vm
}

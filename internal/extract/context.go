// internal/extract/context.go

package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/pricescout/pricescout/internal/page"
)

// dataLayerGlobals are the page globals commonly used as analytics data
// layers. Order matters only for the flattened dump.
var dataLayerGlobals = []string{"dataLayer", "digitalData", "utag_data"}

// flattenDepthLimit stops runaway recursion on pathological data layers.
const flattenDepthLimit = 12

// Context is the per-extraction snapshot of a page's machine-readable data:
// JSON-LD blocks, meta tags, and analytics data layers. It is built once per
// extraction and read-only afterwards.
type Context struct {
	JSONLD     []any             `json:"jsonLd"`
	MetaTags   map[string]string `json:"metaTags"`
	DataLayers map[string]any    `json:"dataLayers"`
}

// BuildContext scans pg for structured data. Individual malformed JSON-LD
// blocks are logged and skipped; only an unusable page handle is an error.
func BuildContext(pg *page.Page) (*Context, error) {
	if pg == nil {
		return nil, fmt.Errorf("build context: nil page")
	}

	ctx := &Context{
		JSONLD:     []any{},
		MetaTags:   map[string]string{},
		DataLayers: map[string]any{},
	}

	pg.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := firstAttr(s, "property", "name", "itemprop")
		if key == "" {
			return
		}
		content, _ := s.Attr("content")
		ctx.MetaTags[key] = content
	})

	pg.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		var block any
		if err := json.Unmarshal([]byte(s.Text()), &block); err != nil {
			log.Warn().Int("index", i).Err(err).Msg("skipping malformed JSON-LD block")
			return
		}
		// A top-level array contributes its elements individually, so
		// jsonLd[0] addresses the first object regardless of block shape.
		if arr, ok := block.([]any); ok {
			ctx.JSONLD = append(ctx.JSONLD, arr...)
			return
		}
		ctx.JSONLD = append(ctx.JSONLD, block)
	})

	for _, name := range dataLayerGlobals {
		raw, ok := pg.Global(name)
		if !ok {
			continue
		}
		clean, ok := toPlainValue(raw)
		if !ok {
			log.Debug().Str("global", name).Msg("data layer not JSON-representable, skipped")
			continue
		}
		ctx.DataLayers[name] = clean
	}

	return ctx, nil
}

// Lookup resolves a STRUCTURED_DATA selector path against the context. Paths
// are rooted at the context itself: "jsonLd[0].name", "metaTags.og:title",
// "dataLayers.dataLayer[0].ecommerce.detail.products[0].price".
func (c *Context) Lookup(path string) (string, bool) {
	root := map[string]any{
		"jsonLd":     c.JSONLD,
		"metaTags":   c.MetaTags,
		"dataLayers": c.DataLayers,
	}
	return EvaluatePath(root, path)
}

// Flatten renders the context as sorted leaf-path/value pairs. The paths use
// the same syntax Lookup accepts, so a flattened entry can be pasted straight
// into a STRUCTURED_DATA selector. This backs the recipe builder's deep
// search view.
func (c *Context) Flatten() []PathValue {
	var out []PathValue
	walkLeaves("jsonLd", c.JSONLD, 0, &out)
	walkLeaves("metaTags", c.MetaTags, 0, &out)
	walkLeaves("dataLayers", c.DataLayers, 0, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// PathValue is one leaf of the flattened context.
type PathValue struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

func walkLeaves(path string, v any, depth int, out *[]PathValue) {
	if depth > flattenDepthLimit {
		return
	}
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			walkLeaves(path+"."+k, t[k], depth+1, out)
		}
	case map[string]string:
		for _, k := range sortedKeysString(t) {
			walkLeaves(path+"."+k, t[k], depth+1, out)
		}
	case []any:
		for i, item := range t {
			walkLeaves(fmt.Sprintf("%s[%d]", path, i), item, depth+1, out)
		}
	case nil:
		// Null leaves are omitted, matching Lookup's not-found behavior.
	default:
		if s, ok := page.Stringify(t); ok {
			*out = append(*out, PathValue{Path: path, Value: s})
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysString(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toPlainValue round-trips a script-exported value through JSON so the data
// layer holds only plain maps, slices, and scalars.
func toPlainValue(v any) (any, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var clean any
	if err := json.Unmarshal(b, &clean); err != nil {
		return nil, false
	}
	return clean, true
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

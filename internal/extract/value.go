// internal/extract/value.go

package extract

import (
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/rs/zerolog/log"

	"github.com/pricescout/pricescout/internal/page"
	"github.com/pricescout/pricescout/internal/recipe"
)

// ExtractValue resolves one selector against the context and page, returning
// the raw string value before normalization. Dispatch is on the selector's
// extraction method; when the method is absent or finds nothing, the legacy
// selector shape is tried. Every failure mode, including panics from
// malformed locators, degrades to not-found so one bad selector cannot sink
// the rest of a recipe.
func ExtractValue(sel recipe.Selector, ctx *Context, pg *page.Page) (value string, found bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Str("field", string(sel.FieldName)).
				Str("method", string(sel.ExtractionMethod)).
				Interface("panic", r).
				Msg("selector evaluation panicked")
			value, found = "", false
		}
	}()

	raw, ok := extractPrimary(sel, ctx, pg)
	if !ok {
		raw, ok = extractLegacy(sel, ctx, pg)
	}
	if !ok {
		return "", false
	}

	// STRUCTURED_DATA values are path results, not page text, and the REGEX
	// method already consumed the pattern; the post-filter covers the other
	// DOM/script-derived methods.
	switch sel.ExtractionMethod {
	case recipe.MethodText, recipe.MethodAttribute, recipe.MethodXPath,
		recipe.MethodInnerHTML, recipe.MethodJSPath:
		raw = applyPattern(raw, sel.Pattern())
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}

func extractPrimary(sel recipe.Selector, ctx *Context, pg *page.Page) (string, bool) {
	switch sel.ExtractionMethod {
	case recipe.MethodStructuredData:
		return ctx.Lookup(sel.Selector)

	case recipe.MethodText:
		return elementValue(pg, sel.Selector, sel.AttrName())

	case recipe.MethodAttribute:
		attr := sel.AttrName()
		if attr == "" {
			return "", false
		}
		el := pg.Find(sel.Selector).First()
		if el.Length() == 0 {
			return "", false
		}
		v, ok := el.Attr(attr)
		return v, ok

	case recipe.MethodXPath:
		return xpathValue(pg, sel.Selector, sel.AttrName())

	case recipe.MethodRegex:
		return regexValue(pg, sel.Selector, sel.Pattern())

	case recipe.MethodInnerHTML:
		el := pg.Find(sel.Selector).First()
		if el.Length() == 0 {
			return "", false
		}
		h, err := el.Html()
		if err != nil {
			return "", false
		}
		return h, true

	case recipe.MethodJSPath:
		return pg.EvalExpr(sel.Selector)

	default:
		return "", false
	}
}

// extractLegacy handles the older selector schema where the method is
// implied by which locator field is set.
func extractLegacy(sel recipe.Selector, ctx *Context, pg *page.Page) (string, bool) {
	if sel.StructuredDataPath != "" {
		if v, ok := ctx.Lookup(sel.StructuredDataPath); ok {
			return v, true
		}
	}
	if sel.XPath != "" {
		if v, ok := xpathValue(pg, sel.XPath, sel.Attribute); ok {
			return v, true
		}
	}
	if sel.CSSSelector != "" {
		// Attribute-or-text first, then the regex over that value, mirroring
		// the TEXT/ATTRIBUTE logic. The regex never searches element text
		// when an attribute is named.
		raw, ok := elementValue(pg, sel.CSSSelector, sel.Attribute)
		if !ok {
			return "", false
		}
		return applyPattern(raw, sel.Regex), true
	}
	return "", false
}

// elementValue reads an element's attribute when attr names one, otherwise
// its trimmed text. "textContent" is an alias for text.
func elementValue(pg *page.Page, selector, attr string) (string, bool) {
	el := pg.Find(selector).First()
	if el.Length() == 0 {
		return "", false
	}
	if attr != "" && attr != "textContent" {
		return el.Attr(attr)
	}
	return strings.TrimSpace(el.Text()), true
}

func xpathValue(pg *page.Page, expr, attr string) (string, bool) {
	node, err := htmlquery.Query(pg.Root(), expr)
	if err != nil || node == nil {
		return "", false
	}
	if attr != "" && attr != "textContent" {
		for _, a := range node.Attr {
			if a.Key == attr {
				return a.Val, true
			}
		}
		return "", false
	}
	return strings.TrimSpace(htmlquery.InnerText(node)), true
}

// regexValue searches the selected element's text, or the whole page when no
// element matches, with the given pattern.
func regexValue(pg *page.Page, selector, pattern string) (string, bool) {
	if pattern == "" {
		return "", false
	}
	text := pg.Text()
	if selector != "" {
		if el := pg.Find(selector).First(); el.Length() > 0 {
			text = el.Text()
		}
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		log.Warn().Str("pattern", pattern).Err(err).Msg("invalid selector regex")
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if len(m) > 1 && m[1] != "" {
		return m[1], true
	}
	return m[0], true
}

// applyPattern post-filters a raw value through the selector's regex,
// keeping capture group 1 when it matched, else the whole match, else the
// raw value untouched. An uncompilable pattern leaves the value untouched.
func applyPattern(raw, pattern string) string {
	if pattern == "" || raw == "" {
		return raw
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		log.Warn().Str("pattern", pattern).Err(err).Msg("invalid post-filter regex")
		return raw
	}
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	if len(m) > 1 && m[1] != "" {
		return m[1]
	}
	return m[0]
}

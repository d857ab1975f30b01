// internal/extract/normalize.go

package extract

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricescout/pricescout/internal/recipe"
)

var (
	// The minus sign survives stripping so negative amounts parse negative
	// and fall to the <= 0 rejection instead of turning positive.
	priceJunkRe = regexp.MustCompile(`[^0-9.,-]`)
	lineBreakRe = regexp.MustCompile(`\r?\n`)
	numPrefixRe = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?`)
	intPrefixRe = regexp.MustCompile(`^\d+`)
)

var truthyTokens = map[string]bool{
	"true": true, "yes": true, "1": true, "available": true, "in stock": true,
}

var falsyTokens = map[string]bool{
	"false": true, "no": true, "0": true, "unavailable": true, "out of stock": true,
}

// Assign normalizes raw for the given semantic field and sets it on the
// record. It reports whether a value was assigned; normalization failure
// leaves the field absent rather than writing a default.
func Assign(rec *Record, field recipe.FieldName, raw string) bool {
	switch field {
	case recipe.FieldProductName:
		return setString(&rec.ProductName, raw)
	case recipe.FieldPrice:
		return setPrice(&rec.Price, raw)
	case recipe.FieldSalePrice:
		return setPrice(&rec.SalePrice, raw)
	case recipe.FieldUnitPrice:
		return setPrice(&rec.UnitPrice, raw)
	case recipe.FieldCurrency:
		return setString(&rec.Currency, raw)
	case recipe.FieldSKU:
		return setString(&rec.SKU, raw)
	case recipe.FieldUPC:
		return setString(&rec.UPC, raw)
	case recipe.FieldModel:
		return setString(&rec.Model, raw)
	case recipe.FieldBrand:
		return setString(&rec.Brand, raw)
	case recipe.FieldCategory:
		return setString(&rec.Category, sanitizeCategory(raw))
	case recipe.FieldDescription:
		return setString(&rec.Description, raw)
	case recipe.FieldImageURL:
		return setString(&rec.ImageURL, resolveImageURL(raw, rec.base))
	case recipe.FieldInStock:
		if b, ok := ParseBool(raw); ok {
			rec.InStock = &b
			return true
		}
		return false
	case recipe.FieldRating:
		if f, ok := parseFloatPrefix(raw); ok {
			rec.Rating = &f
			return true
		}
		return false
	case recipe.FieldReviewCount:
		if n, ok := parseIntPrefix(raw); ok {
			rec.ReviewCount = &n
			return true
		}
		return false
	case recipe.FieldSaleStartDate:
		return setString(&rec.SaleStartDate, raw)
	case recipe.FieldSaleEndDate:
		return setString(&rec.SaleEndDate, raw)
	case recipe.FieldUnitType:
		return setString(&rec.UnitType, raw)
	default:
		return false
	}
}

// ParsePrice extracts a positive monetary amount from free-form price text.
//
// The text is stripped to digits and separators. When both "." and "," are
// present, commas are thousands separators and are removed; a lone comma is
// a decimal separator and becomes a dot. Values that fail to parse or are
// not strictly positive are rejected. The result is rounded half away from
// zero to two decimals.
func ParsePrice(raw string) (float64, bool) {
	s := priceJunkRe.ReplaceAllString(raw, "")
	if s == "" {
		return 0, false
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ",", "")
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return math.Round(v*100) / 100, true
}

// ParseBool recognizes common stock/availability tokens. Anything outside
// the two token sets is not recognized, which callers must treat as unknown
// rather than false.
func ParseBool(raw string) (value, ok bool) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if truthyTokens[token] {
		return true, true
	}
	if falsyTokens[token] {
		return false, true
	}
	return false, false
}

// sanitizeCategory trims each breadcrumb line and drops the empty ones.
func sanitizeCategory(raw string) string {
	var lines []string
	for _, line := range lineBreakRe.Split(raw, -1) {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// resolveImageURL makes raw absolute against the page origin, keeping raw
// unchanged when it cannot be resolved.
func resolveImageURL(raw string, base *url.URL) string {
	if base == nil {
		return raw
	}
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

// parseFloatPrefix reads a leading decimal number, e.g. "4.5 out of 5".
func parseFloatPrefix(raw string) (float64, bool) {
	m := numPrefixRe.FindString(strings.TrimSpace(raw))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// parseIntPrefix reads a leading integer, e.g. "123 reviews".
func parseIntPrefix(raw string) (int, bool) {
	m := intPrefixRe.FindString(strings.TrimSpace(raw))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func setString(dst **string, v string) bool {
	if v == "" {
		return false
	}
	*dst = &v
	return true
}

func setPrice(dst **float64, raw string) bool {
	v, ok := ParsePrice(raw)
	if !ok {
		return false
	}
	*dst = &v
	return true
}

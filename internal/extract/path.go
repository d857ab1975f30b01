// internal/extract/path.go

package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pricescout/pricescout/internal/page"
)

var bracketIndexRe = regexp.MustCompile(`\[(\d+)\]`)

// EvaluatePath resolves a dotted path expression against an arbitrary nested
// value. Each dot-separated segment names a property and may carry one or
// more bracketed array indices, e.g. "offers[0].price[1]".
//
// Any missing property, index out of bounds, or index applied to a non-array
// yields not-found. The terminal value is stringified; traversal never
// panics past this function.
func EvaluatePath(root any, path string) (value string, found bool) {
	defer func() {
		if r := recover(); r != nil {
			value, found = "", false
		}
	}()

	path = strings.TrimSpace(path)
	if path == "" {
		return "", false
	}

	current := root
	for _, segment := range strings.Split(path, ".") {
		base := segment
		if i := strings.IndexByte(segment, '['); i >= 0 {
			base = segment[:i]
		}

		if base != "" {
			next, ok := property(current, base)
			if !ok {
				return "", false
			}
			current = next
		}

		for _, m := range bracketIndexRe.FindAllStringSubmatch(segment, -1) {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				return "", false
			}
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return "", false
			}
			current = arr[idx]
		}
	}

	return page.Stringify(current)
}

// property looks up name on whatever map shape JSON decoding or script
// export produced.
func property(v any, name string) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		val, ok := t[name]
		return val, ok
	case map[string]string:
		val, ok := t[name]
		return val, ok
	default:
		return nil, false
	}
}

// internal/recipe/match.go

package recipe

import (
	"regexp"

	"github.com/rs/zerolog/log"
)

// MatchesURL reports whether r's urlPattern matches candidateURL. Patterns
// match case-insensitively anywhere in the URL. An invalid pattern is a
// non-match, logged once per call, never an error: one broken recipe must
// not sink filtering of the rest.
func MatchesURL(r *Recipe, candidateURL string) bool {
	if r.URLPattern == "" {
		return false
	}
	re, err := regexp.Compile("(?i)" + r.URLPattern)
	if err != nil {
		log.Warn().
			Str("recipe", r.ID).
			Str("pattern", r.URLPattern).
			Err(err).
			Msg("invalid recipe url pattern, treating as non-match")
		return false
	}
	return re.MatchString(candidateURL)
}

// FilterForURL returns the active recipes whose pattern matches candidateURL,
// preserving input order.
func FilterForURL(recipes []Recipe, candidateURL string) []Recipe {
	var out []Recipe
	for i := range recipes {
		if !recipes[i].IsActive {
			continue
		}
		if MatchesURL(&recipes[i], candidateURL) {
			out = append(out, recipes[i])
		}
	}
	return out
}

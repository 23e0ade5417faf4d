package lookup

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/rendello/TTD2-Bot/internal/filetype"
	"github.com/rendello/TTD2-Bot/internal/index"
)

// FuzzyOptions configures close-match suggestions for needles without any
// exact match. Thresholds are similarity percentages; a candidate must score
// strictly above its threshold.
type FuzzyOptions struct {
	Enabled         bool `json:"enabled"`
	SymbolThreshold int  `json:"symbol_threshold"`
	PathThreshold   int  `json:"path_threshold"`
	MaxSuggestions  int  `json:"max_suggestions"`
}

// DefaultFuzzyOptions returns the default thresholds.
func DefaultFuzzyOptions() FuzzyOptions {
	return FuzzyOptions{
		Enabled:         true,
		SymbolThreshold: 80,
		PathThreshold:   65,
		MaxSuggestions:  5,
	}
}

// Suggestion is a close match for a needle.
type Suggestion struct {
	Text  string `json:"text"`
	Score int    `json:"score"` // 0-100
}

// Similarity returns the Levenshtein ratio of a and b as a percentage,
// ignoring case.
func Similarity(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return int(sim*100 + 0.5)
}

// closeMatches scores needle against every candidate of the version.
// Results are ordered weakest first; when capped, the strongest are kept.
func closeMatches(needle string, cand index.Candidates, opts FuzzyOptions) []Suggestion {
	best := make(map[string]int)
	consider := func(text string, score, threshold int) {
		if score <= threshold {
			return
		}
		if prev, ok := best[text]; !ok || score > prev {
			best[text] = score
		}
	}

	for _, name := range cand.Symbols {
		consider(name, Similarity(needle, name), opts.SymbolThreshold)
	}

	paths := cand.Basenames
	if strings.Contains(needle, "/") {
		paths = cand.FullPaths
	}
	for _, p := range paths {
		// Extensions are optional in lookups, so score the bare name too.
		score := max(Similarity(needle, p), Similarity(needle, filetype.StripExtensions(p)))
		consider(p, score, opts.PathThreshold)
	}

	out := make([]Suggestion, 0, len(best))
	for text, score := range best {
		out = append(out, Suggestion{Text: text, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Text < out[j].Text
	})

	if opts.MaxSuggestions > 0 && len(out) > opts.MaxSuggestions {
		out = out[len(out)-opts.MaxSuggestions:]
	}
	return out
}

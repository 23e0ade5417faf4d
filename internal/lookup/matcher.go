package lookup

import (
	"context"
	"regexp"
	"strings"

	"github.com/rendello/TTD2-Bot/internal/index"
)

// MatchSet is everything a needle resolved to in one version.
type MatchSet struct {
	Symbols []index.SymbolEntry
	Paths   []index.PathEntry
	// Close is only filled when Symbols and Paths are both empty.
	Close []Suggestion
}

// Empty reports whether nothing matched exactly.
func (m MatchSet) Empty() bool {
	return len(m.Symbols) == 0 && len(m.Paths) == 0
}

// Matcher resolves needles against an index handle.
type Matcher struct {
	h     *index.Handle
	fuzzy FuzzyOptions
	limit int
}

// NewMatcher creates a matcher. limit caps the rows fetched per table and
// needle; callers pass their field cap so wildcards stay cheap.
func NewMatcher(h *index.Handle, fuzzy FuzzyOptions, limit int) *Matcher {
	return &Matcher{h: h, fuzzy: fuzzy, limit: limit}
}

// Optional drive ("C:" or "::") followed by an absolute path; '*' allowed.
var drivePathRe = regexp.MustCompile(`^(?:[A-Za-z:]:)?((?:/[\p{L}\p{N}_*\-]*)+(?:\.[\p{L}\p{N}_*]+)*)$`)

// normalizePath strips the drive token and trailing separators of an
// absolute path needle. ok is false when the needle is not of that shape.
func normalizePath(needle string) (path string, ok bool) {
	m := drivePathRe.FindStringSubmatch(needle)
	if m == nil {
		return "", false
	}
	path = m[1]
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path, true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `%`)

// likePattern turns a needle into a LIKE pattern: LIKE metacharacters are
// escaped and the user-facing '*' becomes '%'.
func likePattern(needle string) string {
	return likeEscaper.Replace(needle)
}

// keyQuery builds the query shared by the path and symbol lookups: the
// exact key, the key with any extensions appended, and the key itself as a
// wildcard pattern when it contains '*'.
func (m *Matcher) keyQuery(version, key string, withExtensions bool) index.Query {
	q := index.Query{Version: version, Exact: key, Limit: m.limit}
	pattern := likePattern(key)
	if withExtensions {
		q.Patterns = append(q.Patterns, pattern+".%")
	}
	if strings.Contains(key, "*") {
		q.Patterns = append(q.Patterns, pattern)
	}
	return q
}

// Match resolves needle in version. Needles containing '/' are matched
// against full paths, all others against basenames; symbols are always
// consulted. Every match is returned.
func (m *Matcher) Match(ctx context.Context, version, needle string) (MatchSet, error) {
	var set MatchSet
	var err error

	if strings.Contains(needle, "/") {
		key, ok := normalizePath(needle)
		if !ok {
			key = needle
		}
		set.Paths, err = m.h.FindPathsByFullPath(ctx, m.keyQuery(version, key, true))
	} else {
		set.Paths, err = m.h.FindPathsByBasename(ctx, m.keyQuery(version, needle, true))
	}
	if err != nil {
		return MatchSet{}, err
	}

	set.Symbols, err = m.h.FindSymbols(ctx, m.keyQuery(version, needle, false))
	if err != nil {
		return MatchSet{}, err
	}

	if set.Empty() && m.fuzzy.Enabled {
		fuzzyNeedle := needle
		if key, ok := normalizePath(needle); ok {
			fuzzyNeedle = key
		}
		set.Close = closeMatches(fuzzyNeedle, m.h.Candidates(version), m.fuzzy)
	}
	return set, nil
}

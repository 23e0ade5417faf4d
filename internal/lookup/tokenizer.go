package lookup

import (
	"regexp"
	"strings"
)

// Request is one lookup extracted from a message: an optional version
// qualifier and the needle to resolve.
type Request struct {
	Version string // raw qualifier, empty when absent
	Needle  string
}

// 1: version qualifier, 2: needle.
// %%(TinkerOS)Cd -> "TinkerOS", "Cd"; %%DocClear -> "", "DocClear".
// The marker must start the text or follow whitespace, Unicode spaces included.
var lookupRe = regexp.MustCompile(`(?:^|[\s\p{Z}])%%(?:\(([\p{L}\p{N}_.]+)\))?([\p{L}\p{N}_:/.*\-]+)`)

// Tokenize extracts the distinct lookups of text in first-seen order.
// Lookups are distinct by exact (case-sensitive) qualifier and needle.
// Once a further distinct lookup would exceed maxLookups, scanning stops and
// truncated is true. maxLookups <= 0 disables the cap.
func Tokenize(text string, maxLookups int) (requests []Request, truncated bool) {
	if !strings.Contains(text, "%%") {
		return nil, false
	}

	seen := make(map[Request]bool)
	for _, m := range lookupRe.FindAllStringSubmatch(text, -1) {
		// Trailing dots are sentence punctuation, not part of the needle.
		needle := strings.TrimRight(m[2], ".")
		if needle == "" {
			continue
		}
		req := Request{Version: m[1], Needle: needle}
		if seen[req] {
			continue
		}
		if maxLookups > 0 && len(requests) >= maxLookups {
			return requests, true
		}
		seen[req] = true
		requests = append(requests, req)
	}
	return requests, false
}

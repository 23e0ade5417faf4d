package index

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rendello/TTD2-Bot/internal/filetype"
)

// PathEntry is one filesystem path of a dataset version.
type PathEntry struct {
	FullPath     string `json:"fullPath"`
	Basename     string `json:"basename"`
	Type         string `json:"type"`
	IsCompressed bool   `json:"isCompressed"`
	Version      string `json:"version"`
}

// Location is the source definition site of a symbol.
type Location struct {
	File string `json:"file"` // absolute path, drive stripped
	Line int    `json:"line"`
}

// SymbolEntry is one named symbol of a dataset version.
// Location is nil for symbols without a source file (registers, opcodes).
type SymbolEntry struct {
	Name     string    `json:"name"`
	Location *Location `json:"location,omitempty"`
	Type     string    `json:"type"`
	Version  string    `json:"version"`
}

var (
	// $LK,"C:/Kernel/KMain.HC"...  or  C:/Kernel/KMain.HC
	pathLineRe = regexp.MustCompile(`^(?:\$LK,")?[A-Za-z]:(/[\w/.\-]*)`)

	// 1: name, 2: file, 3: line, 4: type phrase.
	symbolLineRe = regexp.MustCompile(`^(?:\$LK,")?([\w/]+)(?:\s*",A="FL:[A-Za-z]:([/\w.\-]+),(\d+)\S*)?.*? ((?:[A-Z][a-z].*|NULL))$`)
)

// ParsePathLine extracts the absolute path from one raw path listing line.
// The drive letter is stripped and a trailing separator removed.
func ParsePathLine(line string) (string, error) {
	m := pathLineRe.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return "", ErrMalformedPath
	}
	return cleanPath(m[1]), nil
}

// ParseSymbolLine parses one raw symbol table line.
func ParseSymbolLine(line string) (SymbolEntry, error) {
	m := symbolLineRe.FindStringSubmatch(strings.TrimRight(line, " \t\r\n"))
	if m == nil {
		return SymbolEntry{}, ErrMalformedSymbol
	}

	sym := SymbolEntry{Name: m[1], Type: m[4]}
	if m[2] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return SymbolEntry{}, ErrMalformedSymbol
		}
		sym.Location = &Location{File: m[2], Line: n}
	}
	return sym, nil
}

// ExpandPaths turns a list of file paths into path entries, inferring every
// ancestor directory. Identity is case-insensitive; the first spelling seen
// wins. The root path is always present.
func ExpandPaths(version string, paths []string) []PathEntry {
	seen := make(map[string]bool, len(paths)*2)
	var out []PathEntry

	add := func(p string) bool {
		key := strings.ToLower(p)
		if seen[key] {
			return false
		}
		seen[key] = true
		out = append(out, newPathEntry(version, p))
		return true
	}

	for _, p := range paths {
		p = cleanPath(p)
		add(p)
		for dir := parentDir(p); dir != ""; dir = parentDir(dir) {
			if !add(dir) {
				// Ancestors of a known directory are known too.
				break
			}
		}
	}
	add("/")
	return out
}

func newPathEntry(version, p string) PathEntry {
	info := filetype.Classify(p)
	return PathEntry{
		FullPath:     p,
		Basename:     filetype.Basename(p),
		Type:         info.Label,
		IsCompressed: info.Compressed,
		Version:      version,
	}
}

// parentDir returns the parent of p, or "" for the root.
func parentDir(p string) string {
	if p == "/" || p == "" {
		return ""
	}
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

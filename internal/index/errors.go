package index

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPath is returned when a path listing line has no drive-qualified path.
	ErrMalformedPath = errors.New("malformed path record")
	// ErrMalformedSymbol is returned when a symbol line does not have the expected shape.
	ErrMalformedSymbol = errors.New("malformed symbol record")
	// ErrUnknownVersion is returned for a dataset version the handle does not hold.
	ErrUnknownVersion = errors.New("unknown dataset version")
	// ErrNoVersions is returned when Build is called without any dataset.
	ErrNoVersions = errors.New("no dataset versions")
	// ErrClosed is returned when querying through a closed Holder.
	ErrClosed = errors.New("index closed")
)

// ParseError locates a raw dataset record that could not be parsed.
// A ParseError aborts the whole index build.
type ParseError struct {
	Version string
	Kind    string // "paths" or "symbols"
	Line    int    // 1-based
	Text    string
	Err     error
}

func (e *ParseError) Error() string {
	text := e.Text
	if len(text) > 80 {
		text = text[:80] + "..."
	}
	return fmt.Sprintf("%s %s line %d: %v: %q", e.Version, e.Kind, e.Line, e.Err, text)
}

func (e *ParseError) Unwrap() error { return e.Err }

package lookup

import "strings"

// Kind classifies a DisplayRecord for renderers.
type Kind int

const (
	KindNormal Kind = iota
	KindNotFound
	KindError
	KindTruncated
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindNotFound:
		return "not_found"
	case KindError:
		return "error"
	case KindTruncated:
		return "truncated"
	}
	return "unknown"
}

// MarshalText lets records serialize their kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Record codes, finer grained than Kind.
const (
	CodeSymbol         = "symbol"
	CodePath           = "path"
	CodeNotFound       = "not_found"
	CodeInvalidVersion = "invalid_version"
	CodeNeedleTooLong  = "needle_too_long"
	CodeLookupFailed   = "lookup_failed"
	CodeTooManyFields  = "too_many_fields"
	CodeTooManyLookups = "too_many_lookups"
)

// ErrorTitle titles every record that is not a match.
const ErrorTitle = "[Error]"

// Link marks a substring of a record body that renderers may hyperlink.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// DisplayRecord is one unit of lookup output. Body is plain text; Links
// point into it.
type DisplayRecord struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Kind  Kind   `json:"kind"`
	Code  string `json:"code"`
	Links []Link `json:"links,omitempty"`
}

// IsMarker reports whether the record is a truncation notice rather than
// the result of a lookup.
func (r DisplayRecord) IsMarker() bool {
	return r.Kind == KindTruncated
}

// bodyBuilder accumulates "Label: value" lines and their links.
type bodyBuilder struct {
	lines []string
	links []Link
}

func (b *bodyBuilder) line(label, value string) {
	b.lines = append(b.lines, label+": "+value)
}

func (b *bodyBuilder) linkLine(label, text, url string) {
	b.line(label, text)
	if url != "" {
		b.links = append(b.links, Link{Text: text, URL: url})
	}
}

func (b *bodyBuilder) record(title, code string) DisplayRecord {
	return DisplayRecord{
		Title: title,
		Body:  strings.Join(b.lines, "\n"),
		Kind:  KindNormal,
		Code:  code,
		Links: b.links,
	}
}

func errorRecord(kind Kind, code, body string) DisplayRecord {
	return DisplayRecord{Title: ErrorTitle, Body: body, Kind: kind, Code: code}
}

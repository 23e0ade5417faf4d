package lookup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/rendello/TTD2-Bot/internal/index"
)

// ErrNeedleTooLong rejects needles above the length ceiling before matching.
var ErrNeedleTooLong = errors.New("needle too long")

// previewWidth bounds the needle preview of a NeedleTooLong record, in
// terminal cells.
const previewWidth = 32

// LookupResult is the outcome of one lookup: its resolved version and
// matches, or the per-lookup error that prevented matching.
type LookupResult struct {
	Request Request
	Version string // canonical version name, empty if unresolved
	Matches MatchSet
	Err     error
}

// AssembleOptions configures record assembly.
type AssembleOptions struct {
	MaxFields      int
	DefaultVersion string
	Versions       []string // listed by InvalidVersion records
	BaseURLs       map[string]string
}

// Assemble converts lookup results into display records, in order, honoring
// the field cap. Results after the point where the cap was hit are ignored.
func Assemble(results []LookupResult, lookupsTruncated bool, opts AssembleOptions) []DisplayRecord {
	a := newAssembler(opts, lookupsTruncated)
	for _, res := range results {
		if !a.add(res) {
			break
		}
	}
	return a.finish()
}

// assembler accumulates records for one message. Marker records always
// fit: the TooManyLookups slot is reserved up front and the Truncated
// marker takes the last content slot.
type assembler struct {
	opts             AssembleOptions
	lookupsTruncated bool
	contentCap       int
	records          []DisplayRecord
	fieldsTruncated  bool
}

func newAssembler(opts AssembleOptions, lookupsTruncated bool) *assembler {
	opts.MaxFields = max(opts.MaxFields, MinFields)
	contentCap := opts.MaxFields
	if lookupsTruncated {
		contentCap--
	}
	return &assembler{
		opts:             opts,
		lookupsTruncated: lookupsTruncated,
		contentCap:       contentCap,
	}
}

// add appends the records of one lookup. It returns false once the field
// cap has been hit and no further lookups should be processed.
func (a *assembler) add(res LookupResult) bool {
	if a.fieldsTruncated {
		return false
	}
	a.records = append(a.records, a.recordsFor(res)...)
	if len(a.records) > a.contentCap {
		a.records = a.records[:a.contentCap-1]
		a.fieldsTruncated = true
		return false
	}
	return true
}

func (a *assembler) finish() []DisplayRecord {
	out := a.records
	if a.fieldsTruncated {
		out = append(out, errorRecord(KindTruncated, CodeTooManyFields,
			"Too many results, trimmed output."))
	}
	if a.lookupsTruncated {
		out = append(out, errorRecord(KindTruncated, CodeTooManyLookups,
			"Too many lookups, trimmed output."))
	}
	return out
}

func (a *assembler) recordsFor(res LookupResult) []DisplayRecord {
	req := res.Request
	switch {
	case errors.Is(res.Err, index.ErrUnknownVersion):
		return []DisplayRecord{errorRecord(KindError, CodeInvalidVersion, fmt.Sprintf(
			"Unknown version: %s. Valid versions: %s",
			req.Version, strings.Join(a.opts.Versions, ", ")))}
	case errors.Is(res.Err, ErrNeedleTooLong):
		return []DisplayRecord{errorRecord(KindError, CodeNeedleTooLong, fmt.Sprintf(
			"Lookup too long (%d characters): %s",
			len([]rune(req.Needle)), runewidth.Truncate(req.Needle, previewWidth, "...")))}
	case res.Err != nil:
		return []DisplayRecord{errorRecord(KindError, CodeLookupFailed,
			"Lookup failed: "+a.annotate(req.Needle, res.Version))}
	case res.Matches.Empty():
		return []DisplayRecord{a.notFound(req, res)}
	}

	out := make([]DisplayRecord, 0, len(res.Matches.Symbols)+len(res.Matches.Paths))
	for _, s := range res.Matches.Symbols {
		out = append(out, a.symbolRecord(s))
	}
	for _, p := range res.Matches.Paths {
		out = append(out, a.pathRecord(p))
	}
	return out
}

func (a *assembler) notFound(req Request, res LookupResult) DisplayRecord {
	body := "Symbol, path, or path segment not found: " + a.annotate(req.Needle, res.Version)
	if len(res.Matches.Close) > 0 {
		names := make([]string, len(res.Matches.Close))
		for i, s := range res.Matches.Close {
			names[i] = s.Text
		}
		body += "\nClose matches: " + strings.Join(names, ", ")
	}
	return errorRecord(KindNotFound, CodeNotFound, body)
}

func (a *assembler) symbolRecord(s index.SymbolEntry) DisplayRecord {
	l := newLinker(a.opts.BaseURLs, s.Version)
	var b bodyBuilder
	b.line("Type", s.Type)
	switch s.Type {
	case TypeOpCode:
		b.linkLine("Reference", "x86 reference: "+s.Name,
			fmt.Sprintf(opcodeRefURL, strings.ToLower(s.Name)))
		b.linkLine("See", "::"+asmDocPath, l.docURL(asmDocPath))
		b.linkLine("And", "::"+opcodesDocPath, l.docURL(opcodesDocPath))
	case TypeRegister:
		b.linkLine("Reference", "Wikibooks: x86 Architecture", registerRefURL)
	default:
		if s.Location != nil {
			b.linkLine("Definition",
				fmt.Sprintf("::%s, line %d", s.Location.File, s.Location.Line),
				l.definitionURL(*s.Location))
		} else {
			b.line("Definition", "N/A")
		}
	}
	return b.record(a.annotate(s.Name, s.Version), CodeSymbol)
}

func (a *assembler) pathRecord(p index.PathEntry) DisplayRecord {
	l := newLinker(a.opts.BaseURLs, p.Version)
	var b bodyBuilder
	b.line("Type", p.Type)
	b.linkLine("Path", "::"+p.FullPath, l.pathURL(p.FullPath))
	return b.record(a.annotate(p.Basename, p.Version), CodePath)
}

// annotate appends the version to s unless it is the default one.
func (a *assembler) annotate(s, version string) string {
	if version == "" || version == a.opts.DefaultVersion {
		return s
	}
	return s + " (" + version + ")"
}

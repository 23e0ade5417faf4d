package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rendello/TTD2-Bot/internal/filetype"
	"github.com/rendello/TTD2-Bot/internal/index"
)

// MinFields is the smallest usable field cap: one result plus both markers.
const MinFields = 3

// Options bounds one Process call.
type Options struct {
	MaxLookups   int               `json:"max_lookups"`
	MaxFields    int               `json:"max_fields"`
	MaxNeedleLen int               `json:"max_needle_len"` // runes; <= 0 disables the check
	Fuzzy        FuzzyOptions      `json:"fuzzy"`
	BaseURLs     map[string]string `json:"-"`
}

// DefaultOptions returns the limits used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxLookups:   15,
		MaxFields:    10,
		MaxNeedleLen: 100,
		Fuzzy:        DefaultFuzzyOptions(),
		BaseURLs:     DefaultBaseURLs,
	}
}

func (o Options) normalized() Options {
	o.MaxFields = max(o.MaxFields, MinFields)
	if o.BaseURLs == nil {
		o.BaseURLs = DefaultBaseURLs
	}
	return o
}

// Process runs the full pipeline over text: tokenize, match every lookup
// against h, and assemble the records. It returns nil when text holds no
// lookup. Lookups after the field cap is hit are not matched.
func Process(ctx context.Context, h *index.Handle, text string, opts Options) []DisplayRecord {
	opts = opts.normalized()

	requests, truncated := Tokenize(text, opts.MaxLookups)
	if len(requests) == 0 {
		return nil
	}

	a := newAssembler(AssembleOptions{
		MaxFields:      opts.MaxFields,
		DefaultVersion: h.DefaultVersion(),
		Versions:       h.Versions(),
		BaseURLs:       opts.BaseURLs,
	}, truncated)
	m := NewMatcher(h, opts.Fuzzy, opts.MaxFields+1)

	for _, req := range requests {
		if !a.add(resolve(ctx, h, m, req, opts.MaxNeedleLen)) {
			break
		}
	}
	return a.finish()
}

func resolve(ctx context.Context, h *index.Handle, m *Matcher, req Request, maxNeedleLen int) LookupResult {
	res := LookupResult{Request: req}

	if maxNeedleLen > 0 && utf8.RuneCountInString(req.Needle) > maxNeedleLen {
		res.Err = ErrNeedleTooLong
		return res
	}

	res.Version = h.DefaultVersion()
	if req.Version != "" {
		v, ok := h.ResolveVersion(req.Version)
		if !ok {
			res.Version = ""
			res.Err = fmt.Errorf("%w: %s", index.ErrUnknownVersion, req.Version)
			return res
		}
		res.Version = v
	}

	matches, err := m.Match(ctx, res.Version, req.Needle)
	if err != nil {
		slog.Warn("lookup failed", "version", res.Version, "needle", req.Needle, "error", err)
		res.Err = err
		return res
	}
	res.Matches = matches
	return res
}

// Engine serves lookups against the index published by a Holder. Options
// can be replaced at runtime.
type Engine struct {
	holder *index.Holder
	opts   atomic.Pointer[Options]
}

// NewEngine creates an engine over holder.
func NewEngine(holder *index.Holder, opts Options) *Engine {
	e := &Engine{holder: holder}
	e.SetOptions(opts)
	return e
}

// SetOptions replaces the options used by subsequent Process calls.
func (e *Engine) SetOptions(opts Options) {
	opts = opts.normalized()
	e.opts.Store(&opts)
}

// Options returns the current options.
func (e *Engine) Options() Options {
	return *e.opts.Load()
}

// Process runs the pipeline against the current index. A concurrent reload
// does not affect a call in progress. Once the holder is closed it returns
// nil.
func (e *Engine) Process(ctx context.Context, text string) []DisplayRecord {
	h, release := e.holder.Acquire()
	defer release()
	if h == nil {
		return nil
	}
	return Process(ctx, h, text, e.Options())
}

// TypeInfo is the classification of a path plus its web link in a version.
type TypeInfo struct {
	filetype.Info
	URL string `json:"url,omitempty"`
}

// Classify classifies path and links it in version, or in the default
// version when version is empty.
func (e *Engine) Classify(version, path string) (TypeInfo, error) {
	h := e.holder.Current()
	if version == "" {
		version = h.DefaultVersion()
	} else {
		v, ok := h.ResolveVersion(version)
		if !ok {
			return TypeInfo{}, fmt.Errorf("%w: %s", index.ErrUnknownVersion, version)
		}
		version = v
	}
	l := newLinker(e.Options().BaseURLs, version)
	return TypeInfo{Info: filetype.Classify(path), URL: l.pathURL(path)}, nil
}

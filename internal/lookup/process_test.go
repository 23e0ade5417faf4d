package lookup_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/rendello/TTD2-Bot/internal/index"
	"github.com/rendello/TTD2-Bot/internal/index/indextest"
	"github.com/rendello/TTD2-Bot/internal/lookup"
)

func process(t *testing.T, h *index.Handle, text string, opts lookup.Options) []lookup.DisplayRecord {
	t.Helper()
	return lookup.Process(context.Background(), h, text, opts)
}

func TestProcess_NoMarker(t *testing.T) {
	h := indextest.Build(t)
	for _, text := range []string{"", "hello", "50% off", "Adam", "a%%Adam"} {
		if got := process(t, h, text, lookup.DefaultOptions()); got != nil {
			t.Errorf("Process(%q) = %v, want nil", text, got)
		}
	}
}

func TestProcess_NeverEmptyWithLookups(t *testing.T) {
	h := indextest.Build(t)
	inputs := []string{
		"%%Adam",
		"%%x",
		"%%.x",
		"%%::/Demo/WallPaperFish.HC.Z",
		"%%(TinkerOS)x",
		"%%(x)x",
		"%%***",
		"%%_",
		"%%" + strings.Repeat("ä", 300),
	}
	for _, text := range inputs {
		if got := process(t, h, text, lookup.DefaultOptions()); len(got) == 0 {
			t.Errorf("Process(%q) returned no records", text)
		}
	}
}

// checkProcess asserts the properties every Process result holds: records
// exactly when the text holds lookups, never more than MaxFields, and no
// internal query failures.
func checkProcess(t *testing.T, h *index.Handle, text string) {
	t.Helper()
	opts := lookup.DefaultOptions()
	reqs, _ := lookup.Tokenize(text, opts.MaxLookups)
	got := lookup.Process(context.Background(), h, text, opts)

	if (len(reqs) > 0) != (len(got) > 0) {
		t.Fatalf("Process(%q): %d lookups but %d records", text, len(reqs), len(got))
	}
	if len(got) > opts.MaxFields {
		t.Fatalf("Process(%q): %d records, cap is %d", text, len(got), opts.MaxFields)
	}
	for _, r := range got {
		if r.Code == lookup.CodeLookupFailed {
			t.Fatalf("Process(%q): lookup failed record %+v", text, r)
		}
	}
}

var processAtoms = []string{
	"%%", "%%", "%", "(", ")", "TinkerOS", "tinkeros", "TempleOS_5.3",
	" ", "\t", "\n", "\u00a0", "/", "::", "Doc", "Adam", "Cd", "Kernel",
	"*", "_", ".", ".HC", ".Z", "-", "ä", "\xff", "x",
}

func randomText(r *rand.Rand) string {
	var b strings.Builder
	for range r.IntN(24) {
		b.WriteString(processAtoms[r.IntN(len(processAtoms))])
	}
	return b.String()
}

func TestProcess_RandomInputs(t *testing.T) {
	h := indextest.Build(t)
	r := rand.New(rand.NewPCG(1, 2))
	for range 10000 {
		checkProcess(t, h, randomText(r))
	}
}

func FuzzProcess(f *testing.F) {
	for _, seed := range []string{
		"%%Adam", "%%x", "%%.x", "%%::/Demo/WallPaperFish.HC.Z", "%%(TinkerOS)x",
		"%%(x)x", "%%***", "%%_", "%%" + strings.Repeat("ä", 300),
		"%%", "%%(TinkerOS)", "x%%Adam",
	} {
		f.Add(seed)
	}
	h := indextest.Build(f)
	f.Fuzz(func(t *testing.T, text string) {
		checkProcess(t, h, text)
	})
}

func TestProcess_SymbolAndDirectory(t *testing.T) {
	h := indextest.Build(t)

	got := process(t, h, "%%Adam", lookup.DefaultOptions())
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Title != "Adam" || !strings.Contains(got[0].Body, "Funct Public") {
		t.Errorf("record 0 = %+v, want the Adam symbol", got[0])
	}
	if got[1].Title != "Adam" || !strings.Contains(got[1].Body, "Directory") {
		t.Errorf("record 1 = %+v, want the Adam directory", got[1])
	}
}

func TestProcess_CaseSensitiveDedup(t *testing.T) {
	h := indextest.Build(t)

	same := process(t, h, "%%Adam %%Adam %%Adam", lookup.DefaultOptions())
	if len(same) != 2 {
		t.Errorf("repeated identical lookup: got %d records, want 2", len(same))
	}

	cased := process(t, h, "%%Adam %%adam", lookup.DefaultOptions())
	if len(cased) != 4 {
		t.Fatalf("differently cased lookups: got %d records, want 4", len(cased))
	}
	for i := range 2 {
		if cased[i].Title != cased[i+2].Title || cased[i].Body != cased[i+2].Body {
			t.Errorf("group records %d differ: %+v vs %+v", i, cased[i], cased[i+2])
		}
	}
}

func TestProcess_ExtensionCompletion(t *testing.T) {
	h := indextest.Build(t)
	for _, needle := range []string{"charter", "charter.dd", "charter.dd.z", "Charter.DD.Z"} {
		got := process(t, h, "%%"+needle, lookup.DefaultOptions())
		if len(got) != 1 || got[0].Title != "Charter.DD.Z" {
			t.Errorf("%%%%%s: got %+v, want one Charter.DD.Z record", needle, got)
		}
	}
}

func TestProcess_RootSpellings(t *testing.T) {
	h := indextest.Build(t)

	var variations []string
	for _, c := range ":ABCDEFGHIJKLMNOPQRSTUVWXYZ" {
		variations = append(variations, fmt.Sprintf("%%%%%c:/", c))
	}
	variations = append(variations, "%%/")
	for _, v := range variations {
		variations = append(variations, v+".")
	}

	for _, v := range variations {
		got := process(t, h, v, lookup.DefaultOptions())
		if len(got) != 1 || got[0].Title != "/" {
			t.Errorf("Process(%q) = %+v, want one record titled /", v, got)
		}
	}
}

func TestProcess_TooManyLookups(t *testing.T) {
	h := indextest.Build(t)

	var parts []string
	for i := range 15 {
		parts = append(parts, fmt.Sprintf("%%%%Missing%d", i))
	}
	opts := lookup.DefaultOptions()
	opts.MaxLookups = 9
	opts.MaxFields = 20
	opts.Fuzzy.Enabled = false

	got := process(t, h, strings.Join(parts, " "), opts)
	if len(got) != 10 {
		t.Fatalf("got %d records, want 10", len(got))
	}
	markers := 0
	for _, r := range got {
		if r.IsMarker() {
			markers++
		}
	}
	if markers != 1 || got[9].Code != lookup.CodeTooManyLookups {
		t.Errorf("markers = %d, last = %+v; want one TooManyLookups marker last", markers, got[9])
	}
}

func TestProcess_FieldCapStopsLookups(t *testing.T) {
	h := indextest.Build(t)
	opts := lookup.DefaultOptions()
	opts.MaxFields = 3

	got := process(t, h, "%%Font* %%Adam %%Cd", opts)
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Title != "Font_Big.BIN" || got[1].Title != "FontXBig.BIN" {
		t.Errorf("records = %+v", got[:2])
	}
	if got[2].Code != lookup.CodeTooManyFields {
		t.Errorf("last = %+v, want TooManyFields marker", got[2])
	}
}

func TestProcess_InvalidVersion(t *testing.T) {
	h := indextest.Build(t)

	got := process(t, h, "%%(NoSuchOS)Cd", lookup.DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	r := got[0]
	if r.Code != lookup.CodeInvalidVersion || r.Kind != lookup.KindError {
		t.Errorf("record = %+v, want InvalidVersion", r)
	}
	for _, v := range []string{indextest.DefaultVersion, indextest.OtherVersion} {
		if !strings.Contains(r.Body, v) {
			t.Errorf("body %q does not list %s", r.Body, v)
		}
	}
}

func TestProcess_InvalidVersionContinues(t *testing.T) {
	h := indextest.Build(t)

	got := process(t, h, "%%(NoSuchOS)Cd %%Cd", lookup.DefaultOptions())
	if len(got) != 2 || got[1].Title != "Cd" {
		t.Errorf("got %+v, want the second lookup resolved", got)
	}
}

func TestProcess_VersionQualifier(t *testing.T) {
	h := indextest.Build(t)

	got := process(t, h, "%%(tinkeros)Cd", lookup.DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Title != "Cd (TinkerOS)" || !strings.Contains(got[0].Body, "line 98") {
		t.Errorf("record = %+v", got[0])
	}

	got = process(t, h, "%%(TempleOS_5.3)Cd", lookup.DefaultOptions())
	if len(got) != 1 || got[0].Title != "Cd" {
		t.Errorf("default version qualifier: got %+v", got)
	}
}

func TestProcess_NeedleTooLong(t *testing.T) {
	h := indextest.Build(t)
	opts := lookup.DefaultOptions()
	opts.MaxNeedleLen = 10

	got := process(t, h, "%%(NoSuchOS)"+strings.Repeat("a", 11)+" %%Cd", opts)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// Length is checked before the version is resolved.
	if got[0].Code != lookup.CodeNeedleTooLong {
		t.Errorf("record = %+v, want NeedleTooLong", got[0])
	}
}

func TestProcess_NotFoundWithSuggestions(t *testing.T) {
	h := indextest.Build(t)

	got := process(t, h, "%%DocClea", lookup.DefaultOptions())
	if len(got) != 1 || got[0].Kind != lookup.KindNotFound {
		t.Fatalf("got %+v, want one NotFound record", got)
	}
	if !strings.Contains(got[0].Body, "Close matches: DocClear") {
		t.Errorf("body = %q", got[0].Body)
	}
}

func TestEngine_ProcessAcrossSwap(t *testing.T) {
	first := indextest.Build(t)
	holder := index.NewHolder(first)
	e := lookup.NewEngine(holder, lookup.DefaultOptions())

	if got := e.Process(context.Background(), "%%TinkerOnly"); len(got) != 1 || got[0].Kind != lookup.KindNotFound {
		t.Fatalf("before swap: %+v", got)
	}

	next, err := index.Build(context.Background(), []index.RawDataset{{
		Version:     "TempleOS_5.3",
		PathLines:   []string{`C:/Doc/TinkerOnly.DD`},
		SymbolLines: []string{},
	}}, "TempleOS_5.3")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	holder.Swap(next)
	t.Cleanup(holder.Close)

	got := e.Process(context.Background(), "%%TinkerOnly")
	if len(got) != 1 || got[0].Title != "TinkerOnly.DD" {
		t.Errorf("after swap: %+v", got)
	}
}

func TestEngine_ProcessAfterClose(t *testing.T) {
	holder := index.NewHolder(indextest.Build(t))
	e := lookup.NewEngine(holder, lookup.DefaultOptions())
	holder.Close()

	done := make(chan []lookup.DisplayRecord, 1)
	go func() { done <- e.Process(context.Background(), "%%Adam") }()
	select {
	case got := <-done:
		if got != nil {
			t.Errorf("Process after Close = %+v, want nil", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not return after Close")
	}
}

func TestEngine_SetOptions(t *testing.T) {
	h := indextest.Build(t)
	e := lookup.NewEngine(index.NewHolder(h), lookup.DefaultOptions())

	opts := lookup.DefaultOptions()
	opts.MaxFields = 1
	e.SetOptions(opts)
	if got := e.Options().MaxFields; got != lookup.MinFields {
		t.Errorf("MaxFields = %d, want it raised to %d", got, lookup.MinFields)
	}
}

func TestEngine_Classify(t *testing.T) {
	h := indextest.Build(t)
	e := lookup.NewEngine(index.NewHolder(h), lookup.DefaultOptions())

	info, err := e.Classify("", "/Doc/Charter.DD.Z")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if info.Label != "DolDoc (Compressed)" || info.URL != "https://tinkeros.github.io/WbTempleOS/Doc/Charter.html" {
		t.Errorf("info = %+v", info)
	}

	info, err = e.Classify("tinkeros", "/Kernel")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !info.IsDirectory() || info.URL != "https://tinkeros.github.io/WbGit/Kernel" {
		t.Errorf("info = %+v", info)
	}

	if _, err := e.Classify("NoSuchOS", "/Kernel"); !errors.Is(err, index.ErrUnknownVersion) {
		t.Errorf("err = %v, want ErrUnknownVersion", err)
	}
}

package discord

import (
	"strings"
	"testing"

	"github.com/rendello/TTD2-Bot/internal/lookup"
)

func TestRenderEmbed_Empty(t *testing.T) {
	if e := RenderEmbed(nil); e != nil {
		t.Errorf("RenderEmbed(nil) = %+v, want nil", e)
	}
}

func TestRenderEmbed_Fields(t *testing.T) {
	records := []lookup.DisplayRecord{
		{
			Title: "Charter.DD.Z",
			Body:  "Type: DolDoc (Compressed)\nPath: ::/Doc/Charter.DD.Z",
			Links: []lookup.Link{{Text: "::/Doc/Charter.DD.Z", URL: "https://example.org/Doc/Charter.html"}},
		},
		{Title: lookup.ErrorTitle, Body: "Too many lookups, trimmed output.", Kind: lookup.KindTruncated},
	}

	e := RenderEmbed(records)
	if e.Color != embedColor {
		t.Errorf("color = %#x, want %#x", e.Color, embedColor)
	}
	if len(e.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(e.Fields))
	}
	want := "Type: DolDoc (Compressed)\nPath: [::/Doc/Charter.DD.Z](https://example.org/Doc/Charter.html)"
	if e.Fields[0].Name != "Charter.DD.Z" || e.Fields[0].Value != want {
		t.Errorf("field 0 = %+v, want value %q", e.Fields[0], want)
	}
	if e.Fields[1].Name != "[Error]" || e.Fields[1].Inline {
		t.Errorf("field 1 = %+v", e.Fields[1])
	}
}

func TestLinkify_InOrder(t *testing.T) {
	body := "See: ::/Doc/Asm.DD.Z\nAnd: ::/Compiler/OpCodes.DD.Z"
	links := []lookup.Link{
		{Text: "::/Doc/Asm.DD.Z", URL: "u1"},
		{Text: "::/Compiler/OpCodes.DD.Z", URL: "u2"},
		{Text: "missing", URL: "u3"},
	}
	want := "See: [::/Doc/Asm.DD.Z](u1)\nAnd: [::/Compiler/OpCodes.DD.Z](u2)"
	if got := linkify(body, links); got != want {
		t.Errorf("linkify = %q, want %q", got, want)
	}
}

func TestRenderEmbed_Limits(t *testing.T) {
	long := strings.Repeat("é", 2000)
	records := make([]lookup.DisplayRecord, 30)
	for i := range records {
		records[i] = lookup.DisplayRecord{Title: long, Body: long}
	}

	e := RenderEmbed(records)
	if len(e.Fields) != embedFieldsMax {
		t.Errorf("fields = %d, want %d", len(e.Fields), embedFieldsMax)
	}
	f := e.Fields[0]
	if n := len([]rune(f.Name)); n != embedFieldNameMax {
		t.Errorf("name runes = %d, want %d", n, embedFieldNameMax)
	}
	if n := len([]rune(f.Value)); n != embedFieldValueMax {
		t.Errorf("value runes = %d, want %d", n, embedFieldValueMax)
	}
	if !strings.HasSuffix(f.Value, "…") {
		t.Error("truncated value should end with an ellipsis")
	}
}

func TestRenderEmbed_EscapesMarkdown(t *testing.T) {
	records := []lookup.DisplayRecord{
		{
			Title: lookup.ErrorTitle,
			Body:  "Symbol, path, or path segment not found: *Font*\nClose matches: a_b_c, x~y, `q`|z",
			Kind:  lookup.KindNotFound,
		},
		{
			Title: "Font_Big.BIN",
			Body:  "Type: Binary\nPath: ::/Misc/Font_Big.BIN",
			Links: []lookup.Link{{Text: "::/Misc/Font_Big.BIN", URL: "https://example.org/Misc/Font_Big.html"}},
		},
	}

	e := RenderEmbed(records)
	want := "Symbol, path, or path segment not found: \\*Font\\*\nClose matches: a\\_b\\_c, x\\~y, \\`q\\`\\|z"
	if got := e.Fields[0].Value; got != want {
		t.Errorf("not-found value = %q, want %q", got, want)
	}
	if got := e.Fields[1].Name; got != `Font\_Big.BIN` {
		t.Errorf("title = %q", got)
	}
	wantLink := "Type: Binary\nPath: [::/Misc/Font\\_Big.BIN](https://example.org/Misc/Font_Big.html)"
	if got := e.Fields[1].Value; got != wantLink {
		t.Errorf("path value = %q, want %q", got, wantLink)
	}
}

func TestEscapeMarkdown_Backslash(t *testing.T) {
	if got := escapeMarkdown(`a\*`); got != `a\\\*` {
		t.Errorf("escapeMarkdown = %q", got)
	}
}

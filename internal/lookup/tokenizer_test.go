package lookup

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Request
	}{
		{"no marker", "just chatting about Adam", nil},
		{"marker without needle", "%%", nil},
		{"only punctuation", "%%.", nil},
		{"mid-word marker ignored", "foo%%Adam", nil},
		{"single", "%%Adam", []Request{{Needle: "Adam"}}},
		{"qualified", "see %%(TinkerOS)Cd please", []Request{{Version: "TinkerOS", Needle: "Cd"}}},
		{"trailing dot stripped", "what is %%DocClear.", []Request{{Needle: "DocClear"}}},
		{"root with period", "%%C:/.", []Request{{Needle: "C:/"}}},
		{"path with extension", "%%::/Demo/WallPaperFish.HC.Z", []Request{{Needle: "::/Demo/WallPaperFish.HC.Z"}}},
		{"wildcard", "%%Font*", []Request{{Needle: "Font*"}}},
		{"newline separated", "%%Adam\n%%Cd", []Request{{Needle: "Adam"}, {Needle: "Cd"}}},
		{"no-break space separated", "%%Adam\u00a0%%Cd", []Request{{Needle: "Adam"}, {Needle: "Cd"}}},
		{"ideographic space separated", "%%Adam\u3000%%(TinkerOS)Cd", []Request{{Needle: "Adam"}, {Version: "TinkerOS", Needle: "Cd"}}},
		{
			"case-sensitive dedup",
			"%%Adam %%Adam %%adam %%(TinkerOS)Adam",
			[]Request{{Needle: "Adam"}, {Needle: "adam"}, {Version: "TinkerOS", Needle: "Adam"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Tokenize(tt.text, 15)
			if truncated {
				t.Errorf("Tokenize(%q) truncated", tt.text)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenize_Truncation(t *testing.T) {
	var parts []string
	for i := range 15 {
		parts = append(parts, fmt.Sprintf("%%%%Needle%d", i))
	}
	text := strings.Join(parts, " ")

	got, truncated := Tokenize(text, 9)
	if !truncated {
		t.Error("expected truncated")
	}
	if len(got) != 9 {
		t.Fatalf("got %d lookups, want 9", len(got))
	}
	if got[8].Needle != "Needle8" {
		t.Errorf("last lookup = %q, want Needle8", got[8].Needle)
	}
}

func TestTokenize_DuplicatesDoNotCountTowardsCap(t *testing.T) {
	got, truncated := Tokenize("%%A %%A %%A %%B", 2)
	if truncated {
		t.Error("duplicates should not trigger truncation")
	}
	if len(got) != 2 {
		t.Errorf("got %d lookups, want 2", len(got))
	}
}

func TestTokenize_ExactlyAtCap(t *testing.T) {
	got, truncated := Tokenize("%%A %%B %%C", 3)
	if truncated || len(got) != 3 {
		t.Errorf("got %d lookups, truncated=%v; want 3, false", len(got), truncated)
	}
}

func TestTokenize_Uncapped(t *testing.T) {
	var b strings.Builder
	for i := range 40 {
		fmt.Fprintf(&b, "%%%%N%d ", i)
	}
	got, truncated := Tokenize(b.String(), 0)
	if truncated || len(got) != 40 {
		t.Errorf("got %d lookups, truncated=%v; want 40, false", len(got), truncated)
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/rendello/TTD2-Bot/internal/lookup"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#55FFFF"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
	bodyStyle  = lipgloss.NewStyle().PaddingLeft(2)
	linkStyle  = lipgloss.NewStyle().Faint(true).PaddingLeft(4)
)

func validFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", f)
}

// writeValue encodes v as JSON or YAML.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
}

// yamlRecord gives records stable lower-case keys in YAML output.
type yamlRecord struct {
	Title string        `yaml:"title"`
	Body  string        `yaml:"body"`
	Kind  string        `yaml:"kind"`
	Code  string        `yaml:"code"`
	Links []lookup.Link `yaml:"links,omitempty"`
}

func writeRecords(w io.Writer, format string, records []lookup.DisplayRecord) error {
	switch format {
	case formatJSON:
		if records == nil {
			records = []lookup.DisplayRecord{}
		}
		return writeValue(w, format, records)
	case formatYAML:
		out := make([]yamlRecord, len(records))
		for i, r := range records {
			out[i] = yamlRecord{Title: r.Title, Body: r.Body, Kind: r.Kind.String(), Code: r.Code, Links: r.Links}
		}
		return writeValue(w, format, out)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No lookups found. Use %%<name>, e.g. %%DocClear or %%(TinkerOS)Cd.")
		return err
	}
	blocks := make([]string, len(records))
	for i, r := range records {
		blocks[i] = renderRecord(r)
	}
	_, err := fmt.Fprintln(w, strings.Join(blocks, "\n\n"))
	return err
}

func renderRecord(r lookup.DisplayRecord) string {
	title := titleStyle.Render(r.Title)
	if r.Kind != lookup.KindNormal {
		title = errorStyle.Render(r.Title)
	}
	parts := []string{title, bodyStyle.Render(r.Body)}
	for _, l := range r.Links {
		parts = append(parts, linkStyle.Render(l.URL))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

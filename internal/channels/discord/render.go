package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/rendello/TTD2-Bot/internal/lookup"
)

const (
	// embedColor is the TempleOS cyan.
	embedColor = 0x55FFFF

	// Discord embed limits.
	embedFieldNameMax  = 256
	embedFieldValueMax = 1024
	embedFieldsMax     = 25
)

// RenderEmbed turns lookup records into a Discord embed, one field per
// record. Links become masked markdown links. It returns nil when there is
// nothing to show.
func RenderEmbed(records []lookup.DisplayRecord) *discordgo.MessageEmbed {
	if len(records) == 0 {
		return nil
	}
	if len(records) > embedFieldsMax {
		records = records[:embedFieldsMax]
	}

	embed := &discordgo.MessageEmbed{Color: embedColor}
	for _, r := range records {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  truncate(escapeMarkdown(r.Title), embedFieldNameMax),
			Value: truncate(linkify(r.Body, r.Links), embedFieldValueMax),
		})
	}
	return embed
}

// markdownEscaper backslash-escapes the characters Discord reads as inline
// formatting, so needles like *Font* or a_b_c show up verbatim.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// linkify escapes body and masks each link's text with its URL, in order.
func linkify(body string, links []lookup.Link) string {
	if len(links) == 0 {
		return escapeMarkdown(body)
	}
	var b strings.Builder
	rest := body
	for _, l := range links {
		i := strings.Index(rest, l.Text)
		if i < 0 || l.URL == "" {
			continue
		}
		b.WriteString(escapeMarkdown(rest[:i]))
		b.WriteString("[" + escapeMarkdown(l.Text) + "](" + l.URL + ")")
		rest = rest[i+len(l.Text):]
	}
	b.WriteString(escapeMarkdown(rest))
	return b.String()
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package cmd

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// filterThreshold: enable type-to-filter only when there are more than this many versions.
const filterThreshold = 5

// runForm runs the fields as one huh form with help hints shown.
func runForm(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).Run()
}

// promptString asks for a line of text. An empty answer returns defaultVal,
// which is shown as the placeholder.
func promptString(title, description, defaultVal string) (string, error) {
	var value string
	inp := huh.NewInput().
		Title(title).
		Value(&value)

	if description != "" {
		inp = inp.Description(description)
	}
	if defaultVal != "" {
		inp = inp.Placeholder(defaultVal)
	}

	if err := runForm(inp); err != nil {
		return "", err
	}
	if value = strings.TrimSpace(value); value == "" {
		return defaultVal, nil
	}
	return value, nil
}

// promptToken asks for the Discord bot token with hidden input and refuses
// values Discord would reject outright.
func promptToken(description string) (string, error) {
	var value string
	inp := huh.NewInput().
		Title("Bot token").
		EchoMode(huh.EchoModePassword).
		Validate(validateToken).
		Value(&value)

	if description != "" {
		inp = inp.Description(description)
	}

	if err := runForm(inp); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func validateToken(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("token is required")
	}
	if strings.ContainsAny(s, " \t") {
		return errors.New("token must not contain spaces")
	}
	return nil
}

// promptVersion lets the user pick one of versions, preselecting current.
func promptVersion(title string, versions []string, current string) (string, error) {
	var value string

	opts := make([]huh.Option[string], len(versions))
	for i, v := range versions {
		opts[i] = huh.NewOption(v, v).Selected(v == current)
	}

	sel := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&value)

	if len(versions) > filterThreshold {
		sel = sel.Filtering(true)
	}

	if err := runForm(sel); err != nil {
		return "", err
	}
	return value, nil
}

// promptConfirm asks a yes/no question. Returns true for yes.
func promptConfirm(title string, defaultYes bool) (bool, error) {
	value := defaultYes

	c := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value)

	if err := runForm(c); err != nil {
		return false, err
	}
	return value, nil
}

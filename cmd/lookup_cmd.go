package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendello/TTD2-Bot/internal/index"
	"github.com/rendello/TTD2-Bot/internal/lookup"
)

func lookupCmd() *cobra.Command {
	var (
		format  string
		version string
	)
	cmd := &cobra.Command{
		Use:   "lookup [text or names...]",
		Short: "Run lookups from the command line",
		Long: "Runs the lookup pipeline on text containing %%<name> lookups.\n" +
			"Arguments without any %% are looked up as bare names.\n" +
			"With no arguments the text is read from stdin.",
		Example: "  ttd2 lookup DocClear Cd\n" +
			"  ttd2 lookup --version TinkerOS Cd\n" +
			"  echo 'see %%/Doc/Charter.DD.Z' | ttd2 lookup --format json",
		Run: func(cmd *cobra.Command, args []string) {
			if err := validFormat(format); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			text, err := lookupText(args, version, os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
				os.Exit(1)
			}

			ctx := context.Background()
			cfg := mustLoadConfig()
			h := mustBuildIndex(ctx, cfg)
			holder := index.NewHolder(h)
			defer holder.Close()

			records := lookup.NewEngine(holder, cfg.LookupOptions()).Process(ctx, text)
			if err := writeRecords(os.Stdout, format, records); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	cmd.Flags().StringVar(&version, "version", "", "version qualifier for bare names")
	return cmd
}

// lookupText builds the pipeline input. Arguments already holding %%
// lookups are passed through; bare names become lookups, qualified with
// version when set.
func lookupText(args []string, version string, stdin io.Reader) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	text := strings.Join(args, " ")
	if strings.Contains(text, "%%") {
		return text, nil
	}

	prefix := "%%"
	if version != "" {
		prefix = "%%(" + version + ")"
	}
	needles := make([]string, len(args))
	for i, a := range args {
		needles[i] = prefix + a
	}
	return strings.Join(needles, " "), nil
}

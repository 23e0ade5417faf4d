package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rendello/TTD2-Bot/internal/index"
	"github.com/rendello/TTD2-Bot/internal/lookup"
)

type classifyEntry struct {
	Path          string `json:"path" yaml:"path"`
	Label         string `json:"label" yaml:"label"`
	MainExtension string `json:"mainExtension,omitempty" yaml:"main_extension,omitempty"`
	Compressed    bool   `json:"compressed" yaml:"compressed"`
	URL           string `json:"url,omitempty" yaml:"url,omitempty"`
}

func classifyCmd() *cobra.Command {
	var (
		format  string
		version string
	)
	cmd := &cobra.Command{
		Use:   "classify <path>...",
		Short: "Show the file type and web link of TempleOS paths",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := validFormat(format); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			cfg := mustLoadConfig()
			holder := index.NewHolder(mustBuildIndex(context.Background(), cfg))
			defer holder.Close()
			engine := lookup.NewEngine(holder, cfg.LookupOptions())

			entries := make([]classifyEntry, 0, len(args))
			for _, p := range args {
				info, err := engine.Classify(version, p)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
				entries = append(entries, classifyEntry{
					Path:          p,
					Label:         info.Label,
					MainExtension: info.MainExtension,
					Compressed:    info.Compressed,
					URL:           info.URL,
				})
			}

			if format != formatText {
				if err := writeValue(os.Stdout, format, entries); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
				return
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "PATH\tTYPE\tCOMPRESSED\tLINK\n")
			for _, e := range entries {
				link := e.URL
				if link == "" {
					link = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", e.Path, e.Label, e.Compressed, link)
			}
			tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	cmd.Flags().StringVar(&version, "version", "", "version used for links (default: the default version)")
	return cmd
}

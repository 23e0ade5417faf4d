package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/rendello/TTD2-Bot/internal/dataset"
	"github.com/rendello/TTD2-Bot/internal/index"
)

// nameColumnWidth bounds symbol names in tables.
const nameColumnWidth = 40

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the dataset index",
	}
	cmd.AddCommand(indexStatsCmd())
	cmd.AddCommand(indexCheckCmd())
	cmd.AddCommand(indexRandomCmd())
	return cmd
}

func indexStatsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show path and symbol counts per version",
		Run: func(cmd *cobra.Command, args []string) {
			if err := validFormat(format); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			ctx := context.Background()
			cfg := mustLoadConfig()
			h := mustBuildIndex(ctx, cfg)
			defer h.Close()

			stats, err := h.Stats(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}

			if format != formatText {
				if err := writeValue(os.Stdout, format, stats); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
				return
			}

			onDisk, err := dataset.Discover(cfg.Dataset.Dir)
			if err != nil {
				onDisk = nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "VERSION\tPATHS\tSYMBOLS\tDEFAULT\n")
			for _, st := range stats {
				def := ""
				if st.Version == h.DefaultVersion() {
					def = "*"
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", st.Version, st.Paths, st.Symbols, def)
			}
			tw.Flush()

			for _, v := range onDisk {
				if !slices.Contains(h.Versions(), v) {
					fmt.Printf("\nNote: %s is on disk but not configured.\n", v)
				}
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}

func indexCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report symbol names defined more than once per version",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := mustLoadConfig()
			h := mustBuildIndex(ctx, cfg)
			defer h.Close()

			total := 0
			for _, v := range h.Versions() {
				dups, err := h.DuplicateSymbols(ctx, v)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
				if len(dups) == 0 {
					fmt.Printf("%s: no duplicate symbols\n", v)
					continue
				}
				total += len(dups)
				printDuplicates(v, dups)
			}
			if total > 0 {
				os.Exit(1)
			}
		},
	}
}

func printDuplicates(version string, dups map[string]int) {
	names := make([]string, 0, len(dups))
	for name := range dups {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Printf("%s: %d duplicate symbols\n", version, len(dups))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  NAME\tCOUNT\n")
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%d\n", runewidth.Truncate(name, nameColumnWidth, "..."), dups[name])
	}
	tw.Flush()
}

func indexRandomCmd() *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Print a random symbol name or path",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := mustLoadConfig()
			h := mustBuildIndex(ctx, cfg)
			defer h.Close()

			v := h.DefaultVersion()
			if version != "" {
				resolved, ok := h.ResolveVersion(version)
				if !ok {
					fmt.Fprintf(os.Stderr, "Error: %s: %s\n", index.ErrUnknownVersion, version)
					os.Exit(1)
				}
				v = resolved
			}
			entry, err := h.Random(ctx, v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			fmt.Println(entry)
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "version to pick from (default: the default version)")
	return cmd
}

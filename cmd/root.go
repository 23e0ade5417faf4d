// Package cmd implements the ttd2 command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendello/TTD2-Bot/internal/config"
	"github.com/rendello/TTD2-Bot/internal/dataset"
	"github.com/rendello/TTD2-Bot/internal/index"
)

var (
	cfgFile string
	verbose bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ttd2",
		Short: "TempleOS symbol and path lookup bot",
		Long: "ttd2 answers %%<name> lookups against TempleOS dataset dumps.\n" +
			"Run without a subcommand to start the Discord bot.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default $TTD2_CONFIG or the user config dir)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(serveCmd())
	root.AddCommand(lookupCmd())
	root.AddCommand(classifyCmd())
	root.AddCommand(indexCmd())
	root.AddCommand(configCmd())
	root.AddCommand(initCmd())
	root.AddCommand(doctorCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func resolveConfigPath() string {
	return config.ResolvePath(cfgFile)
}

// mustLoadConfig loads the config or exits.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildIndex reads the configured versions from disk and indexes them.
func buildIndex(ctx context.Context, cfg *config.Config) (*index.Handle, error) {
	raw, err := dataset.Load(ctx, cfg.Dataset.Dir, cfg.VersionNames())
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	h, err := index.Build(ctx, raw, cfg.DefaultVersion)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return h, nil
}

// mustBuildIndex builds the index or exits.
func mustBuildIndex(ctx context.Context, cfg *config.Config) *index.Handle {
	h, err := buildIndex(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return h
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rendello/TTD2-Bot/internal/channels/discord"
	"github.com/rendello/TTD2-Bot/internal/config"
	"github.com/rendello/TTD2-Bot/internal/cron"
	"github.com/rendello/TTD2-Bot/internal/dataset"
	"github.com/rendello/TTD2-Bot/internal/index"
	"github.com/rendello/TTD2-Bot/internal/lookup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Discord bot (default command)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	cfgPath := resolveConfigPath()
	cfg := mustLoadConfig()

	token, err := resolveToken(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintln(os.Stderr, "Run `ttd2 init` to configure the bot.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	holder := index.NewHolder(mustBuildIndex(ctx, cfg))
	defer holder.Close()
	slog.Info("index built", "versions", cfg.VersionNames(), "took", time.Since(start))

	engine := lookup.NewEngine(holder, cfg.LookupOptions())

	var current atomic.Pointer[config.Config]
	current.Store(cfg)
	rebuild := func(ctx context.Context) error {
		next, err := buildIndex(ctx, current.Load())
		if err != nil {
			return err
		}
		holder.Swap(next)
		return nil
	}

	if cfg.Dataset.Watch {
		dw, err := dataset.NewWatcher(cfg.Dataset.Dir, rebuild)
		if err != nil {
			slog.Warn("dataset watcher unavailable", "error", err)
		} else if err := dw.Start(ctx); err != nil {
			slog.Warn("dataset watcher failed to start", "dir", cfg.Dataset.Dir, "error", err)
		} else {
			defer dw.Stop()
		}
	}

	if expr := cfg.Dataset.ReloadSchedule; expr != "" {
		sched, err := cron.NewService("dataset.reload", expr, rebuild)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		if err := sched.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	cw, err := config.NewWatcher(cfgPath)
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	} else {
		cw.OnChange(func(next *config.Config) {
			prev := current.Swap(next)
			engine.SetOptions(next.LookupOptions())
			if datasetChanged(prev, next) {
				slog.Info("dataset settings changed, rebuilding index")
				if err := rebuild(ctx); err != nil {
					slog.Error("index rebuild failed", "error", err)
				}
			}
		})
		if err := cw.Start(); err != nil {
			slog.Warn("config watcher failed to start", "path", cfgPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	ch, err := discord.New(token, engine, holder, discord.Options{
		Statuses:       cfg.Discord.Statuses,
		StatusInterval: time.Duration(cfg.Discord.StatusInterval) * time.Second,
		RateLimitRPM:   cfg.Discord.RateLimitRPM,
		RateLimitBurst: cfg.Discord.RateLimitBurst,
		ReplyCacheSize: cfg.Discord.ReplyCacheSize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if err := ch.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer ch.Stop()

	slog.Info("bot running", "default_version", cfg.DefaultVersion)
	<-ctx.Done()
	slog.Info("shutting down")
}

// resolveToken returns the configured token, prompting for one on an
// interactive terminal.
func resolveToken(cfg *config.Config) (string, error) {
	token, err := cfg.DiscordToken()
	if !errors.Is(err, config.ErrNoToken) || !isatty.IsTerminal(os.Stdin.Fd()) {
		return token, err
	}
	token, err = promptToken("Not saved. Run `ttd2 init` to store it.")
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", config.ErrNoToken
	}
	return token, nil
}

// datasetChanged reports whether next needs a different index than prev.
func datasetChanged(prev, next *config.Config) bool {
	return prev.Dataset.Dir != next.Dataset.Dir ||
		prev.DefaultVersion != next.DefaultVersion ||
		!slices.Equal(prev.VersionNames(), next.VersionNames())
}

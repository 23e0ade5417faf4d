package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendello/TTD2-Bot/internal/config"
	"github.com/rendello/TTD2-Bot/internal/dataset"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and dataset health",
		Run: func(cmd *cobra.Command, args []string) {
			if !runDoctor() {
				os.Exit(1)
			}
		},
	}
}

func runDoctor() bool {
	fmt.Println("ttd2 doctor")
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return false
	}

	ok := true
	fmt.Print("  Token:    ")
	switch _, err := cfg.DiscordToken(); {
	case err == nil:
		fmt.Println("configured")
	case errors.Is(err, config.ErrNoToken):
		fmt.Println("MISSING (run ttd2 init)")
		ok = false
	default:
		fmt.Printf("ERROR (%s)\n", err)
		ok = false
	}

	fmt.Println()
	fmt.Printf("  Dataset:  %s\n", cfg.Dataset.Dir)
	found, err := dataset.Discover(cfg.Dataset.Dir)
	if err != nil {
		fmt.Printf("    discovery failed: %s\n", err)
		return false
	}
	for _, v := range cfg.VersionNames() {
		status := "OK"
		if !slices.Contains(found, v) {
			status = "MISSING " + filepath.Join(cfg.Dataset.Dir, v, dataset.SymbolsFile)
			ok = false
		}
		mark := " "
		if v == cfg.DefaultVersion {
			mark = "*"
		}
		fmt.Printf("   %s %-20s %s\n", mark, v, status)
	}
	if !ok {
		return false
	}

	fmt.Println()
	start := time.Now()
	h, err := buildIndex(context.Background(), cfg)
	if err != nil {
		fmt.Printf("  Index:    FAILED (%s)\n", err)
		return false
	}
	defer h.Close()
	fmt.Printf("  Index:    built in %s\n", time.Since(start).Round(time.Millisecond))
	return true
}

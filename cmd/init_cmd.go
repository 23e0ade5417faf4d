package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rendello/TTD2-Bot/internal/config"
	"github.com/rendello/TTD2-Bot/internal/dataset"
	"github.com/rendello/TTD2-Bot/internal/lookup"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively create the config file",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runInit(resolveConfigPath()); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
		},
	}
}

func runInit(cfgPath string) error {
	cfg := config.Default()
	if _, err := os.Stat(cfgPath); err == nil {
		overwrite, err := promptConfirm(fmt.Sprintf("%s exists. Update it?", cfgPath), true)
		if err != nil {
			return err
		}
		if !overwrite {
			return nil
		}
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
	}

	token, err := promptToken("Discord bot token from the developer portal.")
	if err != nil {
		return err
	}

	useKeyring, err := promptConfirm("Store the token in the OS keyring instead of the config file?", true)
	if err != nil {
		return err
	}

	dir, err := promptString("Dataset directory", "Holds one directory per version with Who.DD and Paths.DD.", cfg.Dataset.Dir)
	if err != nil {
		return err
	}
	cfg.Dataset.Dir = dir

	if err := chooseVersions(cfg); err != nil {
		return err
	}

	cfg.Discord.UseKeyring = useKeyring
	cfg.Discord.Token = token
	if useKeyring {
		if err := config.StoreToken(token); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	fmt.Printf("Config written to %s.\nStart the bot with: ttd2\n", cfgPath)
	return nil
}

// chooseVersions adds the versions found on disk to cfg and asks for the
// default one.
func chooseVersions(cfg *config.Config) error {
	found, err := dataset.Discover(cfg.Dataset.Dir)
	if err != nil || len(found) == 0 {
		fmt.Printf("No datasets found under %s yet; keeping the configured versions.\n", cfg.Dataset.Dir)
		return nil
	}

	names := cfg.VersionNames()
	for _, v := range found {
		if !slices.Contains(names, v) {
			cfg.Versions = append(cfg.Versions, config.VersionConfig{Name: v, BaseURL: lookup.DefaultBaseURLs[v]})
		}
	}

	def, err := promptVersion("Default version", found, cfg.DefaultVersion)
	if err != nil {
		return err
	}
	cfg.DefaultVersion = def
	return nil
}

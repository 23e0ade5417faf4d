// Package config loads the bot configuration from a JSON5 file with
// environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/titanous/json5"
	"github.com/zalando/go-keyring"

	"github.com/rendello/TTD2-Bot/internal/lookup"
)

const (
	// AppDir is the directory under the user config dir holding config.json.
	AppDir = "TTD2_bot"
	// FileName is the config file name.
	FileName = "config.json"

	keyringService = "TTD2_bot"
	keyringUser    = "discord"
)

// Environment variables read by Load and ResolvePath.
const (
	EnvConfigPath   = "TTD2_CONFIG"
	EnvDiscordToken = "TTD2_DISCORD_TOKEN"
	EnvDatasetDir   = "TTD2_DATASET_DIR"
)

// ErrNoToken is returned when no Discord token is configured anywhere.
var ErrNoToken = errors.New("no discord token configured")

// Config is the root configuration.
type Config struct {
	Discord        DiscordConfig   `json:"discord"`
	Dataset        DatasetConfig   `json:"dataset"`
	Versions       []VersionConfig `json:"versions"`
	DefaultVersion string          `json:"default_version"`
	Lookup         LookupConfig    `json:"lookup"`
}

type DiscordConfig struct {
	Token          string   `json:"token,omitempty"`
	UseKeyring     bool     `json:"use_keyring,omitempty"`
	StatusInterval int      `json:"status_interval"` // seconds
	Statuses       []string `json:"statuses,omitempty"`
	RateLimitRPM   int      `json:"rate_limit_rpm"`
	RateLimitBurst int      `json:"rate_limit_burst"`
	ReplyCacheSize int      `json:"reply_cache_size"`
}

type DatasetConfig struct {
	Dir   string `json:"dir"`
	Watch bool   `json:"watch"`
	// ReloadSchedule is an optional cron expression forcing periodic rebuilds.
	ReloadSchedule string `json:"reload_schedule,omitempty"`
}

// VersionConfig names a dataset version and the web tree its links point to.
type VersionConfig struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url,omitempty"`
}

type LookupConfig struct {
	MaxLookups   int                 `json:"max_lookups"`
	MaxFields    int                 `json:"max_fields"`
	MaxNeedleLen int                 `json:"max_needle_len"`
	Fuzzy        lookup.FuzzyOptions `json:"fuzzy"`
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := lookup.DefaultOptions()
	return &Config{
		Discord: DiscordConfig{
			StatusInterval: 15,
			Statuses: []string{
				"Usage: %%<function>",
				"Usage: %%<path>",
				"Usage: %%<file>",
				"Usage: %%(TinkerOS)<function>",
			},
			RateLimitRPM:   30,
			RateLimitBurst: 5,
			ReplyCacheSize: 512,
		},
		Dataset: DatasetConfig{Dir: "TOS_versions", Watch: true},
		Versions: []VersionConfig{
			{Name: "TempleOS_5.3", BaseURL: lookup.DefaultBaseURLs["TempleOS_5.3"]},
			{Name: "TinkerOS", BaseURL: lookup.DefaultBaseURLs["TinkerOS"]},
		},
		DefaultVersion: "TempleOS_5.3",
		Lookup: LookupConfig{
			MaxLookups:   opts.MaxLookups,
			MaxFields:    opts.MaxFields,
			MaxNeedleLen: opts.MaxNeedleLen,
			Fuzzy:        opts.Fuzzy,
		},
	}
}

// ResolvePath returns the config file path: flagPath if set, then
// $TTD2_CONFIG, then the per-user config directory.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(dir, AppDir, FileName)
}

// Load reads the config at path over the defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays values set in the environment.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvDiscordToken); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv(EnvDatasetDir); v != "" {
		c.Dataset.Dir = v
	}
}

// Validate checks the config for values the bot cannot run with.
func (c *Config) Validate() error {
	if len(c.Versions) == 0 {
		return errors.New("config: no versions configured")
	}
	names := c.VersionNames()
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("config: versions[%d] has no name", i)
		}
	}
	if !slices.Contains(names, c.DefaultVersion) {
		return fmt.Errorf("config: default_version %q is not one of %s",
			c.DefaultVersion, strings.Join(names, ", "))
	}
	if c.Lookup.MaxFields < lookup.MinFields {
		return fmt.Errorf("config: lookup.max_fields must be at least %d, got %d",
			lookup.MinFields, c.Lookup.MaxFields)
	}
	if c.Lookup.MaxLookups < 1 {
		return fmt.Errorf("config: lookup.max_lookups must be positive, got %d", c.Lookup.MaxLookups)
	}
	if c.Dataset.Dir == "" {
		return errors.New("config: dataset.dir is empty")
	}
	if expr := c.Dataset.ReloadSchedule; expr != "" {
		gx := gronx.New()
		if !gx.IsValid(expr) {
			return fmt.Errorf("config: dataset.reload_schedule %q is not a valid cron expression", expr)
		}
	}
	return nil
}

// VersionNames lists the configured versions in order.
func (c *Config) VersionNames() []string {
	names := make([]string, len(c.Versions))
	for i, v := range c.Versions {
		names[i] = v.Name
	}
	return names
}

// BaseURLs maps each version to its web tree.
func (c *Config) BaseURLs() map[string]string {
	urls := make(map[string]string, len(c.Versions))
	for _, v := range c.Versions {
		urls[v.Name] = v.BaseURL
	}
	return urls
}

// LookupOptions converts the lookup section into engine options.
func (c *Config) LookupOptions() lookup.Options {
	return lookup.Options{
		MaxLookups:   c.Lookup.MaxLookups,
		MaxFields:    c.Lookup.MaxFields,
		MaxNeedleLen: c.Lookup.MaxNeedleLen,
		Fuzzy:        c.Lookup.Fuzzy,
		BaseURLs:     c.BaseURLs(),
	}
}

// DiscordToken returns the bot token from the config, the environment or
// the OS keyring, in that order.
func (c *Config) DiscordToken() (string, error) {
	if c.Discord.Token != "" {
		return c.Discord.Token, nil
	}
	if !c.Discord.UseKeyring {
		return "", ErrNoToken
	}
	token, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token from keyring: %w", err)
	}
	return token, nil
}

// StoreToken saves token in the OS keyring.
func StoreToken(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("store token in keyring: %w", err)
	}
	return nil
}

// Save writes cfg to path, creating the directory. The token is omitted
// when it lives in the keyring.
func Save(path string, cfg *Config) error {
	out := *cfg
	if out.Discord.UseKeyring {
		out.Discord.Token = ""
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

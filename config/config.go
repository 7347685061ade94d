// Package config provides configuration loading for threadsaver using TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Storage settings
type Storage struct {
	Backend string `toml:"backend"` // "file" or "sqlite"
	Path    string `toml:"path"`    // directory (file) or database path (sqlite)
}

// Browser settings
type Browser struct {
	ChromePath string `toml:"chrome_path"` // empty = auto-detect
	Headless   bool   `toml:"headless"`    // background refresh contexts only
	FeedURL    string `toml:"feed_url"`
}

// Timing settings. The dialog wait is an empirically chosen delay, not a
// DOM-ready signal: the embed dialog's appearance is not observable via a
// reliable event.
type Timing struct {
	DialogWaitMs    int `toml:"dialog_wait_ms"`
	SettleMs        int `toml:"settle_ms"`
	LoadTimeoutSec  int `toml:"load_timeout_sec"`
	PollIntervalSec int `toml:"poll_interval_sec"`
}

// Log settings
type Log struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Config is the complete configuration.
type Config struct {
	Storage Storage `toml:"storage"`
	Browser Browser `toml:"browser"`
	Timing  Timing  `toml:"timing"`
	Log     Log     `toml:"log"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Storage: Storage{Backend: "file"},
		Browser: Browser{
			Headless: true,
			FeedURL:  "https://www.threads.net/",
		},
		Timing: Timing{
			DialogWaitMs:    1000,
			SettleMs:        2000,
			LoadTimeoutSec:  20,
			PollIntervalSec: 5,
		},
		Log: Log{Level: "info"},
	}
}

// Path returns the config file path.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "threadsaver", "config.toml"), nil
}

// Load reads the config file, layering it over the defaults. A missing
// file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Environment overrides.
	if chrome := os.Getenv("THREADSAVER_CHROME"); chrome != "" {
		cfg.Browser.ChromePath = chrome
	}

	return cfg, nil
}

// Package config handles appupdate configuration parsing and location resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adamancini/appupdate/state"
	"github.com/adamancini/appupdate/update"
)

// AppName names the configuration, state and data directories.
const AppName = "appupdate"

// InstallerConfig describes the command a downloaded package is handed to.
type InstallerConfig struct {
	// Command is run with the package path appended as the last argument.
	Command []string `yaml:"command,omitempty" toml:"command,omitempty" json:"command,omitempty"`
	Confirm bool     `yaml:"confirm,omitempty" toml:"confirm,omitempty" json:"confirm,omitempty"`
}

// LogConsole as the log file keeps logging on stderr.
const LogConsole = "console"

// LogConfig configures log level and optional file output.
type LogConfig struct {
	Level string `yaml:"level,omitempty" toml:"level,omitempty" json:"level,omitempty"`
	File  string `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`
}

// Config represents the parsed configuration file.
type Config struct {
	MetadataURL        string          `yaml:"metadata_url" toml:"metadata_url" json:"metadata_url"`
	Frequency          string          `yaml:"frequency,omitempty" toml:"frequency,omitempty" json:"frequency,omitempty"`
	ShowProgress       bool            `yaml:"show_progress,omitempty" toml:"show_progress,omitempty" json:"show_progress,omitempty"`
	Platform           string          `yaml:"platform,omitempty" toml:"platform,omitempty" json:"platform,omitempty"`
	LocalMetadataAsset string          `yaml:"local_metadata_asset,omitempty" toml:"local_metadata_asset,omitempty" json:"local_metadata_asset,omitempty"`
	AssetsDir          string          `yaml:"assets_dir,omitempty" toml:"assets_dir,omitempty" json:"assets_dir,omitempty"`
	DataDir            string          `yaml:"data_dir,omitempty" toml:"data_dir,omitempty" json:"data_dir,omitempty"`
	StateFile          string          `yaml:"state_file,omitempty" toml:"state_file,omitempty" json:"state_file,omitempty"`
	InstalledVersion   string          `yaml:"installed_version,omitempty" toml:"installed_version,omitempty" json:"installed_version,omitempty"`
	Timeout            string          `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty"`
	Installer          InstallerConfig `yaml:"installer,omitempty" toml:"installer,omitempty" json:"installer,omitempty"`
	Log                LogConfig       `yaml:"log,omitempty" toml:"log,omitempty" json:"log,omitempty"`
}

// UpdateConfig converts the file configuration into the orchestrator configuration.
// The configuration must have passed Validate.
func (c *Config) UpdateConfig() (update.Config, error) {
	freq, err := update.ParseFrequency(c.Frequency)
	if err != nil {
		return update.Config{}, err
	}
	platform, err := update.ParsePlatform(c.Platform)
	if err != nil {
		return update.Config{}, err
	}

	return update.Config{
		MetadataURL:            c.MetadataURL,
		Frequency:              freq,
		ShowProgress:           c.ShowProgress,
		LocalMetadataAssetName: c.LocalMetadataAsset,
		Platform:               platform,
	}, nil
}

// HTTPTimeout returns the configured request timeout, or 30s.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Timeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// FindConfig searches for a configuration file in the standard locations.
// Returns the path to the first file found, or an error if none exists.
func FindConfig(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Check APPUPDATE_CONFIG environment variable
	if envPath := os.Getenv("APPUPDATE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	searchPaths := []string{
		filepath.Join(xdgConfig, AppName),
		filepath.Join(home, "."+AppName),
	}

	fileNames := []string{
		"config.yaml",
		"config.yml",
		"config.toml",
		"config.json",
		"config",
	}

	for _, dir := range searchPaths {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("no %s config found in standard locations", AppName)
}

// Load reads, parses and validates a configuration file. Relative paths in
// the file are resolved against the file's directory and unset directories
// get their defaults.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cfg, err := parse(content, format)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	if err := cfg.resolvePaths(filepath.Dir(path)); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) resolvePaths(base string) error {
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.AssetsDir = rel(c.AssetsDir)
	c.DataDir = rel(c.DataDir)
	c.StateFile = rel(c.StateFile)
	if c.Log.File != LogConsole {
		c.Log.File = rel(c.Log.File)
	}

	if c.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.StateFile == "" {
		p, err := state.DefaultPath(AppName)
		if err != nil {
			return err
		}
		c.StateFile = p
	}
	return nil
}

// defaultDataDir returns $XDG_DATA_HOME/appupdate or ~/.local/share/appupdate.
func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

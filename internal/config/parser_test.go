package config

import (
	"os"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		expected Format
	}{
		{"yaml extension", "config.yaml", "", FormatYAML},
		{"yml extension", "config.yml", "", FormatYAML},
		{"toml extension", "config.toml", "", FormatTOML},
		{"json extension", "config.json", "", FormatJSON},
		{"json content", "config", `{"metadata_url": "https://x"}`, FormatJSON},
		{"yaml content", "config", `metadata_url: https://x`, FormatYAML},
		{"toml content", "config", `metadata_url = "https://x"`, FormatTOML},
		{"toml section first", "config", "[installer]\nconfirm = true", FormatTOML},
		{"yaml after comment", "config", "# updates\nfrequency: daily", FormatYAML},
		{"unknown", "config", "just words", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFormat(tt.path, []byte(tt.content))
			if got != tt.expected {
				t.Errorf("detectFormat() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple var", "${TEST_VAR}", "test_value"},
		{"var with default", "${MISSING_VAR:-default_value}", "default_value"},
		{"existing var ignores default", "${TEST_VAR:-default_value}", "test_value"},
		{"empty var uses default", "${EMPTY_VAR:-default_value}", "default_value"},
		{"no var", "plain text", "plain text"},
		{"mixed content", "prefix ${TEST_VAR} suffix", "prefix test_value suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(expandEnvVars([]byte(tt.input)))
			if got != tt.expected {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	content := []byte(`
metadata_url: https://updates.example.com/metadata.json
frequency: daily
show_progress: true
platform: ios
installed_version: 2.3.0
installer:
  command: ["open", "-W"]
  confirm: true
log:
  level: debug
  file: appupdate.log
`)

	cfg, err := parse(content, FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.MetadataURL != "https://updates.example.com/metadata.json" {
		t.Errorf("MetadataURL = %s", cfg.MetadataURL)
	}
	if cfg.Frequency != "daily" {
		t.Errorf("Frequency = %s, want daily", cfg.Frequency)
	}
	if !cfg.ShowProgress {
		t.Error("ShowProgress should be true")
	}
	if cfg.Platform != "ios" {
		t.Errorf("Platform = %s, want ios", cfg.Platform)
	}
	if cfg.InstalledVersion != "2.3.0" {
		t.Errorf("InstalledVersion = %s, want 2.3.0", cfg.InstalledVersion)
	}
	if len(cfg.Installer.Command) != 2 || cfg.Installer.Command[0] != "open" {
		t.Errorf("Installer.Command = %v", cfg.Installer.Command)
	}
	if !cfg.Installer.Confirm {
		t.Error("Installer.Confirm should be true")
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "appupdate.log" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestParseTOML(t *testing.T) {
	content := []byte(`
metadata_url = "https://updates.example.com/metadata.json"
frequency = "weekly"

[installer]
command = ["pkg-install"]
`)

	cfg, err := parse(content, FormatTOML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.Frequency != "weekly" {
		t.Errorf("Frequency = %s, want weekly", cfg.Frequency)
	}
	if len(cfg.Installer.Command) != 1 {
		t.Errorf("Installer.Command count = %d, want 1", len(cfg.Installer.Command))
	}
}

func TestParseJSON(t *testing.T) {
	content := []byte(`{
  "metadata_url": "https://updates.example.com/metadata.json",
  "frequency": "each_time",
  "installer": {"command": ["install.sh"], "confirm": false}
}`)

	cfg, err := parse(content, FormatJSON)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.Frequency != "each_time" {
		t.Errorf("Frequency = %s, want each_time", cfg.Frequency)
	}
	if cfg.Installer.Command[0] != "install.sh" {
		t.Errorf("Installer.Command = %v", cfg.Installer.Command)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		format  Format
	}{
		{"bad yaml", "metadata_url: [", FormatYAML},
		{"bad toml", "metadata_url = ", FormatTOML},
		{"bad json", `{"metadata_url":`, FormatJSON},
		{"unknown format", "x", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse([]byte(tt.content), tt.format); err == nil {
				t.Error("parse() should fail")
			}
		})
	}
}

func TestParseEnvVarExpansion(t *testing.T) {
	t.Setenv("UPDATE_HOST", "cdn.example.com")

	content := []byte(`
metadata_url: https://${UPDATE_HOST}/metadata.json
frequency: ${UPDATE_FREQUENCY:-daily}
`)

	cfg, err := parse(content, FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.MetadataURL != "https://cdn.example.com/metadata.json" {
		t.Errorf("MetadataURL = %s", cfg.MetadataURL)
	}
	if cfg.Frequency != "daily" {
		t.Errorf("Frequency = %s, want daily", cfg.Frequency)
	}
}

func TestParseUnsetEnvVar(t *testing.T) {
	os.Unsetenv("APPUPDATE_TEST_UNSET")

	cfg, err := parse([]byte(`installed_version: "${APPUPDATE_TEST_UNSET}"`), FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if cfg.InstalledVersion != "" {
		t.Errorf("InstalledVersion = %q, want empty", cfg.InstalledVersion)
	}
}

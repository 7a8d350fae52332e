package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantErr     bool
		errContains []string
	}{
		{
			name: "minimal",
			cfg:  Config{MetadataURL: "https://updates.example.com/metadata.json"},
		},
		{
			name: "full",
			cfg: Config{
				MetadataURL: "http://localhost:8080/metadata.json",
				Frequency:   "Weekly",
				Platform:    "ios",
				Timeout:     "10s",
				Installer:   InstallerConfig{Command: []string{"install"}},
				Log:         LogConfig{Level: "debug"},
			},
		},
		{
			name:        "missing metadata url",
			cfg:         Config{},
			wantErr:     true,
			errContains: []string{"metadata_url is required"},
		},
		{
			name:        "unsupported scheme",
			cfg:         Config{MetadataURL: "ftp://updates.example.com/metadata.json"},
			wantErr:     true,
			errContains: []string{"unsupported scheme"},
		},
		{
			name:        "missing host",
			cfg:         Config{MetadataURL: "https:///metadata.json"},
			wantErr:     true,
			errContains: []string{"host is required"},
		},
		{
			name:        "bad frequency",
			cfg:         Config{MetadataURL: "https://x/m.json", Frequency: "hourly"},
			wantErr:     true,
			errContains: []string{"frequency:", "hourly"},
		},
		{
			name:        "bad platform",
			cfg:         Config{MetadataURL: "https://x/m.json", Platform: "symbian"},
			wantErr:     true,
			errContains: []string{"platform:"},
		},
		{
			name:        "bad timeout",
			cfg:         Config{MetadataURL: "https://x/m.json", Timeout: "soon"},
			wantErr:     true,
			errContains: []string{"timeout:"},
		},
		{
			name:        "empty installer executable",
			cfg:         Config{MetadataURL: "https://x/m.json", Installer: InstallerConfig{Command: []string{""}}},
			wantErr:     true,
			errContains: []string{"installer.command"},
		},
		{
			name:        "bad log level",
			cfg:         Config{MetadataURL: "https://x/m.json", Log: LogConfig{Level: "loud"}},
			wantErr:     true,
			errContains: []string{"log.level"},
		},
		{
			name:        "all problems reported",
			cfg:         Config{Frequency: "hourly", Platform: "symbian"},
			wantErr:     true,
			errContains: []string{"validation errors:", "metadata_url", "frequency", "platform"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.errContains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q should contain %q", err.Error(), want)
				}
			}
		})
	}
}

func TestValidateErrorsAreTyped(t *testing.T) {
	err := Validate(&Config{})

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Field != "metadata_url" {
		t.Errorf("Field = %s, want metadata_url", verr.Field)
	}
}

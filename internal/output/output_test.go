package output

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Version string `json:"version" yaml:"version" toml:"version"`
}

type described struct{}

func (described) String() string { return "bundle 1.2.0 applied" }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"toml", FormatTOML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	v := sample{Name: "bundle", Version: "1.2.0"}

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatJSON, []string{`"name": "bundle"`, `"version": "1.2.0"`}},
		{FormatYAML, []string{"name: bundle", "version: 1.2.0"}},
		{FormatTOML, []string{"name = 'bundle'", "version = '1.2.0'"}},
		{FormatText, []string{"Name:bundle", "Version:1.2.0"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewWriter(&buf, tt.format).Write(v); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q should contain %q", buf.String(), want)
				}
			}
		})
	}
}

func TestWriteTextStringer(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, FormatText).Write(described{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.String() != "bundle 1.2.0 applied\n" {
		t.Errorf("output = %q", buf.String())
	}
}

package interactive

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes long", "yes\n", true},
		{"yes uppercase", "Y\n", true},
		{"padded", "  yes  \n", true},
		{"no", "n\n", false},
		{"empty line", "\n", false},
		{"invalid", "maybe\n", false},
		{"eof", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			p := NewPrompterWithIO(strings.NewReader(tt.input), output)

			if got := p.Confirm("Proceed with %s?", "install"); got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(output.String(), "Proceed with install? [y/N]") {
				t.Errorf("prompt not shown, output: %q", output.String())
			}
		})
	}
}

func TestConfirmInstall(t *testing.T) {
	output := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("y\n"), output)

	if !p.ConfirmInstall("/data/package/update.apk") {
		t.Error("ConfirmInstall() = false, want true")
	}
	if !strings.Contains(output.String(), "Package downloaded to /data/package/update.apk") {
		t.Errorf("output missing package details: %q", output.String())
	}
}

func TestConfirmSequential(t *testing.T) {
	p := NewPrompterWithIO(strings.NewReader("n\ny\n"), &bytes.Buffer{})

	if p.Confirm("first?") {
		t.Error("first Confirm() = true, want false")
	}
	if !p.Confirm("second?") {
		t.Error("second Confirm() = false, want true")
	}
}

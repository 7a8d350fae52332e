package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/appupdate/internal/config"
)

func TestSetupLoggingConsole(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	var buf bytes.Buffer
	if err := setupLogging(&buf, "info", config.LogConsole); err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	log.Info("to the console")

	if !strings.Contains(buf.String(), "to the console") {
		t.Errorf("expected log line on the writer, got %q", buf.String())
	}
	if _, err := os.Stat(config.LogConsole); !os.IsNotExist(err) {
		t.Errorf("no %q file should be created", config.LogConsole)
	}
}

func TestSetupLoggingInvalidLevel(t *testing.T) {
	if err := setupLogging(&bytes.Buffer{}, "loud", ""); err == nil {
		t.Error("expected error for unknown level")
	}
}

package cmd

import (
	"io"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/adamancini/appupdate/internal/config"
)

// setupLogging configures the global logger. --verbose and --quiet win over
// the configured level. A non-empty file sends logs to a rotated file
// instead of w.
func setupLogging(w io.Writer, level, file string) error {
	lvl := log.WarnLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		lvl = parsed
	}
	switch {
	case verbose:
		lvl = log.DebugLevel
	case quiet:
		lvl = log.ErrorLevel
	}

	var out io.Writer = w
	if file != "" && file != config.LogConsole {
		out = &lumberjack.Logger{
			Filename:   filepath.ToSlash(file),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	log.SetOutput(out)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: file == ""})
	log.SetLevel(lvl)
	return nil
}

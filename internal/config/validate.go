package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/adamancini/appupdate/update"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for required fields and valid values.
// All problems are reported together.
func Validate(c *Config) error {
	var merr *multierror.Error

	if err := validateMetadataURL(c.MetadataURL); err != nil {
		merr = multierror.Append(merr, err)
	}

	if _, err := update.ParseFrequency(c.Frequency); err != nil {
		merr = multierror.Append(merr, ValidationError{Field: "frequency", Message: err.Error()})
	}

	if _, err := update.ParsePlatform(c.Platform); err != nil {
		merr = multierror.Append(merr, ValidationError{Field: "platform", Message: err.Error()})
	}

	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
			merr = multierror.Append(merr, ValidationError{
				Field:   "timeout",
				Message: fmt.Sprintf("invalid duration '%s'", c.Timeout),
			})
		}
	}

	if len(c.Installer.Command) > 0 && c.Installer.Command[0] == "" {
		merr = multierror.Append(merr, ValidationError{
			Field:   "installer.command",
			Message: "executable cannot be empty",
		})
	}

	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			merr = multierror.Append(merr, ValidationError{Field: "log.level", Message: err.Error()})
		}
	}

	if merr != nil {
		merr.ErrorFormat = validationFormat
	}
	return merr.ErrorOrNil()
}

func validateMetadataURL(raw string) error {
	if raw == "" {
		return ValidationError{Field: "metadata_url", Message: "metadata_url is required"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ValidationError{Field: "metadata_url", Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{
			Field:   "metadata_url",
			Message: fmt.Sprintf("unsupported scheme '%s' (must be http or https)", u.Scheme),
		}
	}
	if u.Host == "" {
		return ValidationError{Field: "metadata_url", Message: "host is required"}
	}

	return nil
}

func validationFormat(errs []error) string {
	out := "validation errors:"
	for _, err := range errs {
		out += "\n  - " + err.Error()
	}
	return out
}

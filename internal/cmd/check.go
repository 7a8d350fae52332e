package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/appupdate/update"
)

// checkReport is the printable outcome of check and apply.
type checkReport struct {
	Skipped                bool                  `json:"skipped" yaml:"skipped" toml:"skipped"`
	Status                 string                `json:"status" yaml:"status" toml:"status"`
	BundleUpdateAvailable  bool                  `json:"bundle_update_available" yaml:"bundle_update_available" toml:"bundle_update_available"`
	PackageUpdateAvailable bool                  `json:"package_update_available" yaml:"package_update_available" toml:"package_update_available"`
	Metadata               *update.Metadata      `json:"metadata,omitempty" yaml:"metadata,omitempty" toml:"metadata,omitempty"`
	Applied                []*update.ApplyResult `json:"applied,omitempty" yaml:"applied,omitempty" toml:"applied,omitempty"`
}

func newCheckReport(res *update.CheckResult, status update.Status) checkReport {
	return checkReport{
		Skipped:                res.Skipped,
		Status:                 status.String(),
		BundleUpdateAvailable:  res.BundleUpdateAvailable,
		PackageUpdateAvailable: res.PackageUpdateAvailable,
		Metadata:               res.Metadata,
	}
}

func (r checkReport) String() string {
	var b strings.Builder

	if r.Skipped {
		b.WriteString("Update check skipped (not due yet)")
		return b.String()
	}

	switch {
	case r.BundleUpdateAvailable && r.PackageUpdateAvailable:
		fmt.Fprintf(&b, "Bundle %s and package %s available", r.Metadata.JSVersion, r.Metadata.Version)
	case r.BundleUpdateAvailable:
		fmt.Fprintf(&b, "Bundle %s available", r.Metadata.JSVersion)
	case r.PackageUpdateAvailable:
		fmt.Fprintf(&b, "Package %s available", r.Metadata.Version)
	default:
		b.WriteString("Already up to date")
	}

	for _, a := range r.Applied {
		if a.Skipped {
			fmt.Fprintf(&b, "\n%s: nothing to apply", a.Category)
			continue
		}
		fmt.Fprintf(&b, "\n✓ %s %s applied (%s)", a.Category, a.Version, a.Path)
	}

	return b.String()
}

func newCheckCmd() *cobra.Command {
	var (
		apply   bool
		retries int
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check for updates",
		Long: `Check fetches the update metadata if the configured frequency allows it and
reports whether a newer bundle or package is published.

Use --apply to download and apply what is available. Use --retries to retry
transient network failures with exponential backoff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), a, apply, retries)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Apply available updates")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retry transient check failures up to N times")

	return cmd
}

func runCheck(ctx context.Context, a *app, apply bool, retries int) error {
	res, err := checkWithRetry(ctx, a.orch, retries)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}

	report := newCheckReport(res, a.orch.Status())
	if apply {
		applied, err := a.orch.ApplyAvailable(ctx, res)
		report.Applied = applied
		report.Status = a.orch.Status().String()
		if err != nil {
			_ = a.out.Write(report)
			return err
		}
	}

	return a.out.Write(report)
}

// newRetryBackOff returns the policy used by --retries.
var newRetryBackOff = func() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
}

// checkWithRetry runs the check, retrying transient failures. A failed check
// records no timestamp, so the frequency gate stays open for the retries.
func checkWithRetry(ctx context.Context, orch *update.Orchestrator, retries int) (*update.CheckResult, error) {
	if retries <= 0 {
		return orch.CheckForUpdates(ctx)
	}

	var res *update.CheckResult
	operation := func() error {
		var err error
		res, err = orch.CheckForUpdates(ctx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newRetryBackOff(), uint64(retries)), ctx)
	err := backoff.RetryNotify(operation, b, func(err error, next time.Duration) {
		log.Warnf("update check failed, retrying in %s: %v", next, err)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// retryable reports whether a check failure may go away on its own.
func retryable(err error) bool {
	var netErr *update.NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var statusErr *update.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError || statusErr.Code == http.StatusTooManyRequests
	}
	return false
}

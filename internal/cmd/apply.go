package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/appupdate/update"
)

func newApplyCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "apply [bundle|package|all]",
		Short: "Download and apply updates now",
		Long: `Apply checks for updates regardless of the configured frequency and applies
the requested artifacts that are newer than what is installed.

  bundle   the script bundle; its version is recorded once downloaded
  package  the native package; handed to the configured installer
  all      both (default)

Use --force to apply the published artifact even if it is not newer.`,
		ValidArgs: []string{"bundle", "package", "all"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "all"
			if len(args) == 1 {
				target = args[0]
			}

			a, err := loadApp(cmd, true)
			if err != nil {
				return err
			}
			return runApply(cmd.Context(), a, target, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Apply even if the published version is not newer")

	return cmd
}

func runApply(ctx context.Context, a *app, target string, force bool) error {
	res, err := a.orch.CheckForUpdates(ctx)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}

	// only what was asked for
	want := *res
	want.BundleUpdateAvailable = (target == "bundle" || target == "all") && (force || res.BundleUpdateAvailable)
	want.PackageUpdateAvailable = (target == "package" || target == "all") && (force || res.PackageUpdateAvailable)

	applied, applyErr := a.orch.ApplyAvailable(ctx, &want)

	report := newCheckReport(res, a.orch.Status())
	report.Applied = applied
	if err := a.out.Write(report); err != nil {
		return err
	}
	return applyErr
}

// compile-time check that the host installer satisfies the library interface
var _ update.Installer = (*commandInstaller)(nil)

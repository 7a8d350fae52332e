package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/appupdate/update"
)

func newResetCmd() *cobra.Command {
	var artifacts bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the recorded update state",
		Long: `Reset clears the last check time and the recorded bundle versions, so the
next check runs immediately and the bundle version is seeded again.

Use --artifacts to also delete downloaded bundles and packages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}

			if err := a.orch.Reset(); err != nil {
				return err
			}
			if artifacts {
				if err := a.downloader.Clean(update.CategoryBundle, update.CategoryPackage); err != nil {
					return err
				}
			}

			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Update state reset.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&artifacts, "artifacts", false, "Also delete downloaded artifacts")

	return cmd
}

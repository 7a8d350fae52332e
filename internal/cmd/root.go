package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	verbose      bool
	quiet        bool
)

// buildInfo is set by Execute.
var buildInfo = struct {
	version string
	commit  string
	date    string
}{version: "dev", commit: "none", date: "unknown"}

func Execute(version, commit, date string) error {
	buildInfo.version, buildInfo.commit, buildInfo.date = version, commit, date

	// Interrupt cancels in-flight downloads.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "appupdate",
		Short: "Check for and apply application updates",
		Long: `appupdate checks a remote metadata document for newer script bundles and
native packages, downloads them and hands packages to an installer.

Configure the metadata URL, check frequency and installer in a config file.`,
		Version:      buildInfo.version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd.ErrOrStderr(), "", "")
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml, toml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml", "toml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/appupdate/internal/output"
)

type versionInfo struct {
	Version string `json:"version" yaml:"version" toml:"version"`
	Commit  string `json:"commit" yaml:"commit" toml:"commit"`
	Date    string `json:"date" yaml:"date" toml:"date"`
}

func (v versionInfo) String() string {
	return fmt.Sprintf("appupdate version %s (commit %s, built %s)", v.Version, v.Commit, v.Date)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(outputFormat)
			if err != nil {
				return err
			}
			return output.NewWriter(cmd.OutOrStdout(), format).Write(versionInfo{
				Version: buildInfo.version,
				Commit:  buildInfo.commit,
				Date:    buildInfo.date,
			})
		},
	}
}

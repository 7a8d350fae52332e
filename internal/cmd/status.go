package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/appupdate/update"
)

type artifactStatus struct {
	Category string `json:"category" yaml:"category" toml:"category"`
	Path     string `json:"path" yaml:"path" toml:"path"`
	Present  bool   `json:"present" yaml:"present" toml:"present"`
	Size     int64  `json:"size,omitempty" yaml:"size,omitempty" toml:"size,omitempty"`
}

type statusReport struct {
	ConfigPath       string           `json:"config_path" yaml:"config_path" toml:"config_path"`
	MetadataURL      string           `json:"metadata_url" yaml:"metadata_url" toml:"metadata_url"`
	Frequency        string           `json:"frequency" yaml:"frequency" toml:"frequency"`
	Platform         string           `json:"platform" yaml:"platform" toml:"platform"`
	StateFile        string           `json:"state_file" yaml:"state_file" toml:"state_file"`
	LastCheck        string           `json:"last_check" yaml:"last_check" toml:"last_check"`
	CheckDue         bool             `json:"check_due" yaml:"check_due" toml:"check_due"`
	BundleVersion    string           `json:"bundle_version,omitempty" yaml:"bundle_version,omitempty" toml:"bundle_version,omitempty"`
	AppliedVersion   string           `json:"applied_version,omitempty" yaml:"applied_version,omitempty" toml:"applied_version,omitempty"`
	InstalledVersion string           `json:"installed_version,omitempty" yaml:"installed_version,omitempty" toml:"installed_version,omitempty"`
	Artifacts        []artifactStatus `json:"artifacts" yaml:"artifacts" toml:"artifacts"`
}

func (r statusReport) String() string {
	var b strings.Builder
	orNone := func(s string) string {
		if s == "" {
			return "(none)"
		}
		return s
	}

	fmt.Fprintf(&b, "Config:            %s\n", r.ConfigPath)
	fmt.Fprintf(&b, "Metadata URL:      %s\n", r.MetadataURL)
	fmt.Fprintf(&b, "Frequency:         %s\n", r.Frequency)
	fmt.Fprintf(&b, "Platform:          %s\n", r.Platform)
	fmt.Fprintf(&b, "State file:        %s\n", r.StateFile)
	fmt.Fprintf(&b, "Last check:        %s\n", r.LastCheck)
	fmt.Fprintf(&b, "Check due:         %t\n", r.CheckDue)
	fmt.Fprintf(&b, "Bundle version:    %s\n", orNone(r.BundleVersion))
	fmt.Fprintf(&b, "Applied version:   %s\n", orNone(r.AppliedVersion))
	fmt.Fprintf(&b, "Installed package: %s", orNone(r.InstalledVersion))
	for _, a := range r.Artifacts {
		mark := "-"
		if a.Present {
			mark = "✓"
		}
		fmt.Fprintf(&b, "\n%s %-8s %s", mark, a.Category, a.Path)
	}

	return b.String()
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show update state",
		Long:  `Status shows the persisted update state, the effective configuration and the downloaded artifacts.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			return runStatus(a, time.Now())
		},
	}
}

func runStatus(a *app, now time.Time) error {
	st, err := a.store.Load()
	if err != nil {
		return err
	}
	due, err := a.orch.ShouldCheck(now)
	if err != nil {
		return err
	}

	ucfg := a.orch.Config()
	report := statusReport{
		ConfigPath:       a.configPath,
		MetadataURL:      ucfg.MetadataURL,
		Frequency:        ucfg.Frequency.String(),
		Platform:         string(ucfg.Platform),
		StateFile:        a.store.Path(),
		LastCheck:        "never",
		CheckDue:         due,
		BundleVersion:    st.BundleVersion,
		AppliedVersion:   st.AppliedVersion,
		InstalledVersion: a.cfg.InstalledVersion,
	}
	if st.LastCheckTimestamp > 0 {
		report.LastCheck = st.LastCheck().Format(time.RFC3339)
	}

	for _, category := range []update.Category{update.CategoryBundle, update.CategoryPackage} {
		path, err := a.downloader.Path(category)
		if err != nil {
			return err
		}
		as := artifactStatus{Category: string(category), Path: path}
		if info, err := os.Stat(path); err == nil {
			as.Present = true
			as.Size = info.Size()
		}
		report.Artifacts = append(report.Artifacts, as)
	}

	return a.out.Write(report)
}

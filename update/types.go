package update

import (
	"context"
	"time"

	"github.com/adamancini/appupdate/state"
)

// Category selects which artifact a download produces.
type Category string

const (
	CategoryBundle  Category = "bundle"
	CategoryPackage Category = "package"
)

// Messages passed to the Notifier.
const (
	MsgChecking        = "Checking for updates"
	MsgNoMetadata      = "No update metadata available"
	MsgDownloadSuccess = "Update downloaded"
	MsgDownloadError   = "Update download failed"
)

// Status is the orchestrator state machine position.
type Status int

const (
	StatusIdle Status = iota
	StatusChecking
	StatusNoUpdate
	StatusBundleUpdateAvailable
	StatusPackageUpdateAvailable
	StatusBothAvailable
	StatusDownloading
	StatusApplied
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusChecking:
		return "checking"
	case StatusNoUpdate:
		return "no_update"
	case StatusBundleUpdateAvailable:
		return "bundle_update_available"
	case StatusPackageUpdateAvailable:
		return "package_update_available"
	case StatusBothAvailable:
		return "both_available"
	case StatusDownloading:
		return "downloading"
	case StatusApplied:
		return "applied"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CheckResult describes the outcome of one check cycle.
type CheckResult struct {
	Skipped                bool      `json:"skipped" yaml:"skipped" toml:"skipped"` // frequency gate said no
	BundleUpdateAvailable  bool      `json:"bundle_update_available" yaml:"bundle_update_available" toml:"bundle_update_available"`
	PackageUpdateAvailable bool      `json:"package_update_available" yaml:"package_update_available" toml:"package_update_available"`
	Metadata               *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty" toml:"metadata,omitempty"`
}

// ApplyResult describes one apply operation.
type ApplyResult struct {
	Category Category `json:"category" yaml:"category" toml:"category"`
	Skipped  bool     `json:"skipped" yaml:"skipped" toml:"skipped"` // metadata did not describe this artifact
	Shared   bool     `json:"shared" yaml:"shared" toml:"shared"`    // download result delivered to more than one caller
	Path     string   `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	Version  string   `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
}

// Fetcher retrieves update metadata.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Metadata, error)
}

// Downloader stores a remote artifact at the fixed location of its category.
// A non-empty checksum is the expected SHA-256 hex digest; an artifact that
// does not match must not replace the stored one.
type Downloader interface {
	Download(ctx context.Context, url string, category Category, checksum string) (string, error)
}

// Store persists UpdateState between runs.
type Store interface {
	Load() (state.UpdateState, error)
	Save(state.UpdateState) error
	BundleVersion() (string, bool, error)
	SetBundleVersion(version string) error
	LastCheck() (time.Time, error)
	SetLastCheck(t time.Time) error
	Reset() error
}

// Notifier shows progress and result messages to the user.
type Notifier interface {
	Show(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Show calls f(message).
func (f NotifierFunc) Show(message string) { f(message) }

// Installer hands a downloaded package to the operating system.
type Installer interface {
	Install(ctx context.Context, path string) error
}

// InstallerFunc adapts a function to Installer.
type InstallerFunc func(ctx context.Context, path string) error

// Install calls f(ctx, path).
func (f InstallerFunc) Install(ctx context.Context, path string) error { return f(ctx, path) }

// PackageVersionProvider reports the version of the installed application.
type PackageVersionProvider interface {
	CurrentVersion() (string, error)
}

// StaticVersion is a PackageVersionProvider returning a fixed version.
type StaticVersion string

// CurrentVersion returns the fixed version.
func (v StaticVersion) CurrentVersion() (string, error) { return string(v), nil }

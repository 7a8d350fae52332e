package update

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is matched by errors returned when a download is aborted
	// through its context.
	ErrCancelled = errors.New("update cancelled")

	// ErrNoInstaller is returned by ApplyPackageUpdate when no Installer is configured.
	ErrNoInstaller = errors.New("no package installer configured")

	// ErrNoPackageVersion is returned when no PackageVersionProvider is configured.
	ErrNoPackageVersion = errors.New("no installed package version provider configured")

	// ErrNoLocalVersion is returned when neither the store nor the packaged
	// fallback metadata provide a bundle version.
	ErrNoLocalVersion = errors.New("no local bundle version available")
)

// NetworkError is a transport level failure talking to URL.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError is returned when the server answers with a non-success status.
type HTTPStatusError struct {
	URL     string
	Code    int
	Message string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("server returned HTTP %d %s for %s", e.Code, e.Message, e.URL)
}

// ParseError is returned for empty or malformed metadata.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid update metadata: %v", e.Err)
	}
	return fmt.Sprintf("invalid update metadata from %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError is a local filesystem failure while storing an artifact.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ChecksumError is returned when a downloaded artifact does not match the
// digest advertised in the metadata.
type ChecksumError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

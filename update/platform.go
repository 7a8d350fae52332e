package update

import (
	"fmt"
	"strings"
)

// Platform names the mobile platform the host application runs on. It picks
// the default names of the packaged metadata asset and the artifact files.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// DefaultPlatform is used when the configuration does not name one.
const DefaultPlatform = PlatformAndroid

// ParsePlatform parses a platform name.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return DefaultPlatform, nil
	}
	if !p.IsSupported() {
		return "", fmt.Errorf("unsupported platform: %s", s)
	}
	return p, nil
}

// IsSupported returns true if this platform is supported
func (p Platform) IsSupported() bool {
	switch p {
	case PlatformAndroid, PlatformIOS:
		return true
	default:
		return false
	}
}

// MetadataAssetName returns the packaged fallback metadata name,
// e.g. "metadata.android.json".
func (p Platform) MetadataAssetName() string {
	return fmt.Sprintf("metadata.%s.json", p)
}

// BundleFileName returns the file name a downloaded bundle is stored under,
// e.g. "main.android.jsbundle".
func (p Platform) BundleFileName() string {
	return fmt.Sprintf("main.%s.jsbundle", p)
}

// PackageFileName returns the file name a downloaded package is stored under.
func (p Platform) PackageFileName() string {
	switch p {
	case PlatformAndroid:
		return "update.apk"
	case PlatformIOS:
		return "update.ipa"
	default:
		return "update.pkg"
	}
}

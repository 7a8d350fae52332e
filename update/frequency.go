package update

import (
	"fmt"
	"strings"
	"time"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// Frequency limits how often the remote metadata is checked.
type Frequency int

const (
	// EachTime checks on every call.
	EachTime Frequency = iota
	// Daily checks at most once per elapsed day.
	Daily
	// Weekly checks at most once per seven elapsed days.
	Weekly
)

// String returns the config spelling of the frequency.
func (f Frequency) String() string {
	switch f {
	case EachTime:
		return "each_time"
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	default:
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
}

// ParseFrequency parses "each_time", "daily" or "weekly". Case and the
// choice of "-" or "_" as separator do not matter; empty means EachTime.
func ParseFrequency(s string) (Frequency, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")

	switch norm {
	case "", "each_time", "eachtime", "always":
		return EachTime, nil
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	default:
		return EachTime, fmt.Errorf("unknown update frequency: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ShouldCheck reports whether a check is due at now given the last check.
//
// Days are counted by truncating the elapsed milliseconds, not by calendar
// date: a check at 23:59 followed by one at 00:01 is zero days apart.
// A last check in the future (clock moved backwards) never counts as due
// for Daily or Weekly.
func (f Frequency) ShouldCheck(now, lastCheck time.Time) bool {
	if f == EachTime {
		return true
	}

	elapsed := now.UnixMilli() - lastCheck.UnixMilli()
	days := elapsed / msPerDay

	switch f {
	case Daily:
		return days >= 1
	case Weekly:
		return days >= 7
	default:
		return true
	}
}

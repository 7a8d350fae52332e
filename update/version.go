package update

import (
	"strconv"
	"strings"
)

// Version is a dotted version number such as "1.2.3".
// Segments compare by position; missing trailing segments count as zero.
type Version struct {
	Segments []int
}

// ParseVersion parses a dotted version string. It never fails: a leading "v"
// is ignored and empty, non-numeric or negative segments become 0.
// Supports formats like "1.2.3", "v1.2", "2".
func ParseVersion(s string) Version {
	s = NormalizeVersion(strings.TrimSpace(s))
	if s == "" {
		return Version{}
	}

	parts := strings.Split(s, ".")
	segments := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			n = 0
		}
		segments[i] = n
	}

	return Version{Segments: segments}
}

// String returns the string representation
func (v Version) String() string {
	if len(v.Segments) == 0 {
		return "0"
	}
	parts := make([]string, len(v.Segments))
	for i, n := range v.Segments {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

func (v Version) segment(i int) int {
	if i < len(v.Segments) {
		return v.Segments[i]
	}
	return 0
}

// Compare compares two versions
// Returns:
//   - 1 if v > other
//   - 0 if v == other
//   - -1 if v < other
func (v Version) Compare(other Version) int {
	n := len(v.Segments)
	if len(other.Segments) > n {
		n = len(other.Segments)
	}

	for i := 0; i < n; i++ {
		a, b := v.segment(i), other.segment(i)
		if a != b {
			if a > b {
				return 1
			}
			return -1
		}
	}

	return 0
}

// IsGreaterThan returns true if v > other
func (v Version) IsGreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// IsLessThan returns true if v < other
func (v Version) IsLessThan(other Version) bool {
	return v.Compare(other) < 0
}

// IsEqual returns true if v == other
func (v Version) IsEqual(other Version) bool {
	return v.Compare(other) == 0
}

// CompareVersions compares two version strings
// Returns:
//   - 1 if v1 > v2
//   - 0 if v1 == v2
//   - -1 if v1 < v2
func CompareVersions(v1, v2 string) int {
	return ParseVersion(v1).Compare(ParseVersion(v2))
}

// NormalizeVersion removes the 'v' prefix if present
func NormalizeVersion(s string) string {
	if strings.HasPrefix(s, "v") || strings.HasPrefix(s, "V") {
		return s[1:]
	}
	return s
}

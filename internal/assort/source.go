package assort

import (
	"fmt"
	"path/filepath"
	"time"
)

// Kind selects the output strategy of a target.
type Kind int

const (
	// KindManifest appends matched paths to per-day manifest files.
	KindManifest Kind = iota
	// KindLink mirrors matched files as hard links under per-day directories.
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindManifest:
		return "manifest"
	case KindLink:
		return "link"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a configured kind name to a Kind.
func ParseKind(value string) (Kind, error) {
	switch value {
	case "manifest":
		return KindManifest, nil
	case "link":
		return KindLink, nil
	default:
		return 0, fmt.Errorf("unknown target kind %q", value)
	}
}

// Source is one recording directory together with the rule that assigns its
// files to days.
type Source struct {
	Name    string
	Dir     string
	Matcher Matcher
}

// Label returns Name, or Dir when no name is set.
func (s Source) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Dir
}

// Target is the destination of a source's buckets.
type Target struct {
	Name string
	Dir  string
	Kind Kind
}

const (
	dayLayout = "2006-01-02"
	// LatestName is the manifest-directory entry that always refers to the
	// newest manifest.
	LatestName = "latest.txt"
)

// DayName renders day as yyyy-mm-dd, the name used for manifests and link
// directories.
func DayName(day time.Time) string {
	return day.Format(dayLayout)
}

// ManifestPath returns the manifest file for day inside dir.
func ManifestPath(dir string, day time.Time) string {
	return filepath.Join(dir, DayName(day)+".txt")
}

// Today truncates now to local midnight of its own location.
func Today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Window lists the reference days of a run: today-1 back to today-depth.
func Window(today time.Time, depth int) []time.Time {
	days := make([]time.Time, 0, max(depth, 0))
	for k := 1; k <= depth; k++ {
		days = append(days, today.AddDate(0, 0, -k))
	}
	return days
}

package assort

import (
	"strings"
	"time"

	"camsort/internal/datepattern"
	"camsort/internal/fswalk"
)

// Matcher decides which day a file belongs to. The set of matchers is closed:
// PatternMatcher and TimestampMatcher.
type Matcher interface {
	// String describes the matcher for logs.
	String() string
	// forDay returns the predicate for one reference day.
	forDay(day time.Time) func(fswalk.File) bool
}

// PatternMatcher assigns a file to a day when its path contains the day
// rendered with the configured pattern.
type PatternMatcher struct {
	Pattern datepattern.Pattern
}

func (m PatternMatcher) String() string { return "pattern " + m.Pattern.String() }

func (m PatternMatcher) forDay(day time.Time) func(fswalk.File) bool {
	needle := m.Pattern.Format(day)
	return func(f fswalk.File) bool {
		return strings.Contains(f.Path, needle)
	}
}

// TimestampMatcher assigns a file to the calendar day of its modification
// time, taken in the location of the reference day.
type TimestampMatcher struct{}

func (TimestampMatcher) String() string { return "modification time" }

func (TimestampMatcher) forDay(day time.Time) func(fswalk.File) bool {
	y, m, d := day.Date()
	loc := day.Location()
	return func(f fswalk.File) bool {
		fy, fm, fd := f.ModTime.In(loc).Date()
		return fy == y && fm == m && fd == d
	}
}

// NewMatcher selects the matcher for a source: a PatternMatcher when
// datePattern is set, a TimestampMatcher otherwise.
func NewMatcher(datePattern string) (Matcher, error) {
	if strings.TrimSpace(datePattern) == "" {
		return TimestampMatcher{}, nil
	}
	p, err := datepattern.Parse(datePattern)
	if err != nil {
		return nil, err
	}
	return PatternMatcher{Pattern: p}, nil
}

// Bucket holds the files of one source assigned to one day of the window.
type Bucket struct {
	Offset int
	Date   time.Time
	Files  []fswalk.File
	Bytes  int64
}

// Classify partitions files into depth buckets, offsets 1 through depth
// before today. A file lands in the first bucket that matches it; files that
// match no day of the window are dropped. Discovery order is preserved.
func Classify(files []fswalk.File, today time.Time, depth int, m Matcher) []Bucket {
	if depth < 1 {
		return nil
	}
	if m == nil {
		m = TimestampMatcher{}
	}
	days := Window(today, depth)
	buckets := make([]Bucket, len(days))
	preds := make([]func(fswalk.File) bool, len(days))
	for i, day := range days {
		buckets[i] = Bucket{Offset: i + 1, Date: day}
		preds[i] = m.forDay(day)
	}
	for _, f := range files {
		for i, match := range preds {
			if match(f) {
				buckets[i].Files = append(buckets[i].Files, f)
				buckets[i].Bytes += f.Size
				break
			}
		}
	}
	return buckets
}

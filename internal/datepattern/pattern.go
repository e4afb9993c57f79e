// Package datepattern formats calendar days into the strftime-style strings
// recorders embed in file names (for example "%Y%m%d" or "REC_%Y-%m-%d").
package datepattern

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// ErrNoDay reports a pattern that renders two different days identically.
var ErrNoDay = errors.New("pattern does not identify a calendar day")

// distinctFrom lists the offsets a pattern must tell apart from a reference
// day: the next day, the same weekday a week later, the same day of the next
// month.
var distinctFrom = []struct{ years, months, days int }{
	{0, 0, 1},
	{0, 0, 7},
	{0, 1, 0},
}

// Pattern is a validated filename date pattern.
type Pattern struct {
	spec string
}

// Parse validates spec and returns a Pattern. The pattern must be accepted by
// strftime and must render a day differently from the next day, the next week
// and the next month, which rejects "%d" or "%a" on their own. A pattern
// without a year, such as "%m%d", still repeats every year.
func Parse(spec string) (Pattern, error) {
	if strings.TrimSpace(spec) == "" {
		return Pattern{}, errors.New("date pattern is empty")
	}
	if _, err := strftime.Layout(spec); err != nil {
		return Pattern{}, fmt.Errorf("date pattern %q: %w", spec, err)
	}
	day := time.Date(2001, time.February, 3, 0, 0, 0, 0, time.UTC)
	rendered := strftime.Format(spec, day)
	for _, d := range distinctFrom {
		if strftime.Format(spec, day.AddDate(d.years, d.months, d.days)) == rendered {
			return Pattern{}, fmt.Errorf("date pattern %q: %w", spec, ErrNoDay)
		}
	}
	return Pattern{spec: spec}, nil
}

// MustParse is Parse for patterns known at compile time.
func MustParse(spec string) Pattern {
	p, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return p
}

// Format renders day using the pattern.
func (p Pattern) Format(day time.Time) string {
	return strftime.Format(p.spec, day)
}

// String returns the pattern as configured.
func (p Pattern) String() string {
	return p.spec
}

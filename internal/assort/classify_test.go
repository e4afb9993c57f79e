package assort_test

import (
	"path/filepath"
	"slices"
	"testing"
	"time"

	"camsort/internal/assort"
	"camsort/internal/datepattern"
	"camsort/internal/fswalk"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func names(files []fswalk.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, filepath.Base(f.Path))
	}
	return out
}

func TestClassifyByModificationTime(t *testing.T) {
	today := day(2024, time.March, 15)
	files := []fswalk.File{
		{Path: "/src/a.mp4", Size: 10, ModTime: today.Add(-1 * time.Hour)},
		{Path: "/src/b.mp4", Size: 20, ModTime: today.Add(9 * time.Hour)},
		{Path: "/src/c.mp4", Size: 30, ModTime: today.AddDate(0, 0, -2).Add(23*time.Hour + 59*time.Minute)},
		{Path: "/src/d.mp4", Size: 40, ModTime: today.AddDate(0, 0, -3)},
	}

	buckets := assort.Classify(files, today, 2, assort.TimestampMatcher{})
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Offset != 1 || !buckets[0].Date.Equal(day(2024, time.March, 14)) {
		t.Fatalf("unexpected first bucket %d %v", buckets[0].Offset, buckets[0].Date)
	}
	if got := names(buckets[0].Files); !slices.Equal(got, []string{"a.mp4"}) {
		t.Fatalf("yesterday bucket = %v", got)
	}
	if got := names(buckets[1].Files); !slices.Equal(got, []string{"c.mp4"}) {
		t.Fatalf("two days ago bucket = %v", got)
	}
	if buckets[0].Bytes != 10 || buckets[1].Bytes != 30 {
		t.Fatalf("unexpected byte totals %d %d", buckets[0].Bytes, buckets[1].Bytes)
	}
}

func TestClassifyByPattern(t *testing.T) {
	today := day(2024, time.January, 10)
	stale := today.AddDate(0, 0, -30)
	files := []fswalk.File{
		{Path: "/dvr/cam1/20240109/rec_0100.mp4", Size: 1, ModTime: stale},
		{Path: "/dvr/cam1/rec_20240108_2300.mp4", Size: 2, ModTime: stale},
		{Path: "/dvr/cam1/rec_20240107.mp4", Size: 4, ModTime: stale},
		{Path: "/dvr/cam1/20240108/rec_20240109.mp4", Size: 8, ModTime: stale},
		{Path: "/dvr/cam1/rec_20240110.mp4", Size: 16, ModTime: today.AddDate(0, 0, -1)},
	}
	m, err := assort.NewMatcher("%Y%m%d")
	if err != nil {
		t.Fatalf("NewMatcher returned error: %v", err)
	}

	buckets := assort.Classify(files, today, 2, m)
	if got := names(buckets[0].Files); !slices.Equal(got, []string{"rec_0100.mp4", "rec_20240109.mp4"}) {
		t.Fatalf("offset 1 = %v", got)
	}
	if got := names(buckets[1].Files); !slices.Equal(got, []string{"rec_20240108_2300.mp4"}) {
		t.Fatalf("offset 2 = %v", got)
	}
	if buckets[0].Bytes != 9 || buckets[1].Bytes != 2 {
		t.Fatalf("unexpected byte totals %d %d", buckets[0].Bytes, buckets[1].Bytes)
	}
}

func TestClassifyPatternIsCaseSensitive(t *testing.T) {
	today := day(2024, time.January, 10)
	files := []fswalk.File{
		{Path: "/dvr/JAN09.mp4"},
		{Path: "/dvr/Jan09.mp4"},
	}
	m := assort.PatternMatcher{Pattern: datepattern.MustParse("%b%d")}
	buckets := assort.Classify(files, today, 1, m)
	if got := names(buckets[0].Files); !slices.Equal(got, []string{"Jan09.mp4"}) {
		t.Fatalf("unexpected matches %v", got)
	}
}

func TestClassifyEveryFileLandsInAtMostOneBucket(t *testing.T) {
	today := day(2024, time.May, 20)
	var files []fswalk.File
	for i := range 10 {
		files = append(files, fswalk.File{Path: filepath.Join("/src", string(rune('a'+i))), ModTime: today.AddDate(0, 0, -i).Add(time.Hour)})
	}
	buckets := assort.Classify(files, today, 5, assort.TimestampMatcher{})
	seen := map[string]int{}
	for _, b := range buckets {
		for _, f := range b.Files {
			seen[f.Path]++
			want := today.AddDate(0, 0, -b.Offset)
			if y, m, d := f.ModTime.Date(); y != want.Year() || m != want.Month() || d != want.Day() {
				t.Fatalf("%s placed in offset %d", f.Path, b.Offset)
			}
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 files inside the window, got %d", len(seen))
	}
	for path, n := range seen {
		if n != 1 {
			t.Fatalf("%s appears in %d buckets", path, n)
		}
	}
}

func TestClassifyRejectsEmptyWindow(t *testing.T) {
	if buckets := assort.Classify([]fswalk.File{{Path: "/a"}}, day(2024, 1, 1), 0, nil); buckets != nil {
		t.Fatalf("expected no buckets, got %v", buckets)
	}
}

func TestNewMatcher(t *testing.T) {
	m, err := assort.NewMatcher("")
	if err != nil {
		t.Fatalf("NewMatcher(\"\") returned error: %v", err)
	}
	if _, ok := m.(assort.TimestampMatcher); !ok {
		t.Fatalf("expected timestamp matcher, got %T", m)
	}
	m, err = assort.NewMatcher("REC_%Y-%m-%d")
	if err != nil {
		t.Fatalf("NewMatcher returned error: %v", err)
	}
	if pm, ok := m.(assort.PatternMatcher); !ok || pm.Pattern.String() != "REC_%Y-%m-%d" {
		t.Fatalf("expected pattern matcher, got %#v", m)
	}
	if _, err := assort.NewMatcher("%Y"); err == nil {
		t.Fatal("expected a year-only pattern to be rejected")
	}
}

func TestWindowAndNames(t *testing.T) {
	today := assort.Today(time.Date(2024, time.March, 1, 17, 45, 0, 0, time.Local))
	days := assort.Window(today, 2)
	if len(days) != 2 || assort.DayName(days[0]) != "2024-02-29" || assort.DayName(days[1]) != "2024-02-28" {
		t.Fatalf("unexpected window %v", days)
	}
	if got := assort.ManifestPath("/lists", days[0]); got != filepath.Join("/lists", "2024-02-29.txt") {
		t.Fatalf("unexpected manifest path %q", got)
	}
}

package assort

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"camsort/internal/logging"
	"camsort/internal/preflight"
)

// Plan reports what Assort would do for source without writing anything.
// The buckets are returned alongside the report so callers can list files.
func Plan(source Source, target Target, manifestDir string, today time.Time, depth int, logger *slog.Logger) (Report, []Bucket, error) {
	report := Report{Source: source.Label(), Target: target.Name, Kind: target.Kind}
	if logger == nil {
		logger = logging.NewNop()
	}
	sourceDir, err := filepath.Abs(source.Dir)
	if err != nil {
		return report, nil, fmt.Errorf("resolve source directory: %w", err)
	}
	if err := preflight.CanRead(sourceDir); err != nil {
		report.Unavailable = true
		return report, nil, nil
	}
	files, skipped, err := enumerate(sourceDir, logger, target.Dir, manifestDir)
	report.Enumerated = len(files)
	report.Skipped = skipped
	if err != nil {
		return report, nil, err
	}
	buckets := Classify(files, Today(today), depth, source.Matcher)
	for _, b := range buckets {
		report.Buckets = append(report.Buckets, BucketReport{Date: b.Date, Files: len(b.Files), Bytes: b.Bytes})
	}
	return report, buckets, nil
}

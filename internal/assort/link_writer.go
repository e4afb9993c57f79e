package assort

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"camsort/internal/linkfs"
	"camsort/internal/logging"
)

// linkBucket mirrors each file of bucket under <targetDir>/<yyyy-mm-dd>/,
// keeping its path relative to sourceRoot. Existing destinations count as
// already linked. A failed link is logged and skipped; only directory
// creation errors are returned.
func linkBucket(bucket Bucket, sourceRoot, targetDir string, logger *slog.Logger) (BucketReport, error) {
	report := BucketReport{Date: bucket.Date, Files: len(bucket.Files), Bytes: bucket.Bytes}
	dayDir := filepath.Join(targetDir, DayName(bucket.Date))
	for _, f := range bucket.Files {
		rel, err := filepath.Rel(sourceRoot, f.Path)
		if err != nil {
			return report, fmt.Errorf("relative path of %s: %w", f.Path, err)
		}
		dest := filepath.Join(dayDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return report, fmt.Errorf("create link directory: %w", err)
		}
		err = linkfs.Link(f.Path, dest)
		switch {
		case err == nil:
			report.Linked++
		case errors.Is(err, linkfs.ErrExists):
			report.Existing++
		default:
			report.Failed++
			hint := "check that source and target are on the same filesystem"
			if !errors.Is(err, linkfs.ErrUnsupported) {
				hint = "check that the recording still exists and the target is writable"
			}
			logging.WarnWithContext(logger, "hard link failed; file skipped", "link_failed",
				logging.String("path", f.Path),
				logging.String("destination", dest),
				logging.String(logging.FieldBucketDate, DayName(bucket.Date)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hint),
				logging.String(logging.FieldImpact, "recording is missing from this day's link tree"),
			)
		}
	}
	return report, nil
}

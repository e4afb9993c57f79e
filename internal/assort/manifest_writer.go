package assort

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"camsort/internal/fileutil"
	"camsort/internal/linkfs"
	"camsort/internal/textenc"
)

// LineEnding terminates each manifest line.
type LineEnding string

const (
	LF   LineEnding = "\n"
	CRLF LineEnding = "\r\n"
)

var manifestName = regexp.MustCompile(`^([1-9][0-9]{3})-(0[0-9]|1[0-2])-([0-2][0-9]|3[0-1])\.txt$`)

// appendManifest appends one line per file to the manifest of the bucket's
// day. The file is created when missing, so a day without recordings still
// gets an empty manifest. It is flushed and closed before returning.
func appendManifest(dir string, bucket Bucket, enc textenc.Encoding, eol LineEnding) (err error) {
	path := ManifestPath(dir, bucket.Date)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close manifest: %w", cerr)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat manifest: %w", err)
	}
	encoder := enc.NewWriter(file, info.Size() == 0)
	buf := bufio.NewWriter(encoder)
	for _, f := range bucket.Files {
		if _, err := buf.WriteString(f.Path); err != nil {
			return fmt.Errorf("write manifest %s: %w", path, err)
		}
		if _, err := buf.WriteString(string(eol)); err != nil {
			return fmt.Errorf("write manifest %s: %w", path, err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flush manifest %s: %w", path, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("flush manifest %s: %w", path, err)
	}
	return nil
}

// newestManifest scans dir for yyyy-mm-dd.txt files and returns the path and
// day of the latest one. ok is false when there is none.
func newestManifest(dir string) (path string, day time.Time, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("read manifest directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !manifestName.MatchString(entry.Name()) {
			continue
		}
		parsed, perr := time.Parse(dayLayout+".txt", entry.Name())
		if perr != nil {
			// Passes the name pattern but is not a real date, e.g. 2024-02-31.
			continue
		}
		if !ok || parsed.After(day) {
			day, ok = parsed, true
			path = ManifestPath(dir, parsed)
		}
	}
	return path, day, ok, nil
}

// updateLatest points <dir>/latest.txt at the newest manifest. The pointer is
// swapped in place; when the filesystem cannot hard link, the manifest is
// copied instead. It returns the manifest now behind the pointer, or "" when
// the directory has no manifests, in which case any old pointer is removed.
func updateLatest(dir string) (string, error) {
	latest := filepath.Join(dir, LatestName)
	newest, _, ok, err := newestManifest(dir)
	if err != nil {
		return "", err
	}
	if !ok {
		if err := os.Remove(latest); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("remove latest pointer: %w", err)
		}
		return "", nil
	}
	err = fileutil.ReplaceLink(newest, latest)
	if errors.Is(err, linkfs.ErrUnsupported) {
		err = fileutil.CopyFileVerified(newest, latest)
	}
	if err != nil {
		return "", fmt.Errorf("update latest pointer: %w", err)
	}
	return newest, nil
}

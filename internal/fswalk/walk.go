package fswalk

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"time"
)

// ErrAccessDenied marks a subtree that was skipped because it could not be read.
var ErrAccessDenied = errors.New("access denied")

// File describes one enumerated regular file.
type File struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// SkipError reports a directory that was left out of the enumeration.
type SkipError struct {
	Path string
	Err  error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skip %s: %v", e.Path, e.Err)
}

func (e *SkipError) Unwrap() []error {
	return []error{ErrAccessDenied, e.Err}
}

type options struct {
	exclude []string
}

// Option customizes a walk.
type Option func(*options)

// WithExclude prunes the directory at path. The comparison is made on the
// cleaned absolute path, so "/src/out/" and "/src/out" are the same, and on
// its link-resolved form when it exists. It may be given more than once.
func WithExclude(path string) Option {
	return func(o *options) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			o.exclude = append(o.exclude, filepath.Clean(path))
			return
		}
		o.exclude = append(o.exclude, abs)
		if resolved, err := filepath.EvalSymlinks(abs); err == nil && resolved != abs {
			o.exclude = append(o.exclude, resolved)
		}
	}
}

// Walk yields every regular file below root as an absolute path. Directories
// that cannot be read for lack of permission produce a *SkipError and the walk
// moves on. An error for root itself, or any other I/O error, is yielded once
// and ends the sequence. A root that is a symbolic link is resolved, but the
// yielded paths keep root as their prefix; links below root are not followed.
func Walk(root string, opts ...Option) iter.Seq2[File, error] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return func(yield func(File, error) bool) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield(File{}, fmt.Errorf("resolve %s: %w", root, err))
			return
		}
		walkRoot, err := filepath.EvalSymlinks(absRoot)
		if err != nil {
			yield(File{}, fmt.Errorf("walk %s: %w", absRoot, err))
			return
		}

		_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			realPath := path
			path = rebase(realPath, walkRoot, absRoot)
			if err != nil {
				if realPath == walkRoot {
					yield(File{}, fmt.Errorf("walk %s: %w", absRoot, err))
					return filepath.SkipAll
				}
				switch {
				case errors.Is(err, fs.ErrPermission):
					if !yield(File{}, &SkipError{Path: path, Err: err}) {
						return filepath.SkipAll
					}
					if d != nil && d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				case errors.Is(err, fs.ErrNotExist):
					// Removed between listing and visiting.
					return nil
				default:
					yield(File{}, fmt.Errorf("walk %s: %w", path, err))
					return filepath.SkipAll
				}
			}

			if d.IsDir() {
				if slices.Contains(o.exclude, path) || slices.Contains(o.exclude, realPath) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if !yield(File{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// rebase moves path from below walkRoot to the same place below root.
func rebase(path, walkRoot, root string) string {
	if walkRoot == root {
		return path
	}
	rel, err := filepath.Rel(walkRoot, path)
	if err != nil {
		return path
	}
	return filepath.Join(root, rel)
}

// Collect drains a walk into a slice, passing each skip to onSkip. The first
// error that is not a skip is returned together with the files gathered so far.
func Collect(seq iter.Seq2[File, error], onSkip func(*SkipError)) ([]File, error) {
	var files []File
	for file, err := range seq {
		if err != nil {
			var skip *SkipError
			if errors.As(err, &skip) {
				if onSkip != nil {
					onSkip(skip)
				}
				continue
			}
			return files, err
		}
		files = append(files, file)
	}
	return files, nil
}

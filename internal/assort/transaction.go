package assort

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"camsort/internal/fswalk"
	"camsort/internal/logging"
	"camsort/internal/preflight"
	"camsort/internal/textenc"
)

// ErrNoTransaction is returned by operations on a terminated transaction.
var ErrNoTransaction = errors.New("no assort transaction is running")

// State is the lifecycle position of a Transaction.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Option customizes a Transaction.
type Option func(*Transaction)

// WithLogger routes transaction logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transaction) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock replaces time.Now when computing today.
func WithClock(now func() time.Time) Option {
	return func(t *Transaction) {
		if now != nil {
			t.now = now
		}
	}
}

// WithEncoding sets the manifest text encoding. UTF-8 without BOM is the default.
func WithEncoding(enc textenc.Encoding) Option {
	return func(t *Transaction) { t.enc = enc }
}

// WithLineEnding sets the manifest line terminator. LF is the default.
func WithLineEnding(eol LineEnding) Option {
	return func(t *Transaction) {
		if eol != "" {
			t.eol = eol
		}
	}
}

// Transaction is one assort run over a manifest directory.
type Transaction struct {
	mu    sync.Mutex
	state atomic.Int32

	manifestDir string
	depth       int
	today       time.Time
	enc         textenc.Encoding
	eol         LineEnding
	now         func() time.Time
	logger      *slog.Logger
	processed   int
}

// BeginTransaction starts a run over manifestDir covering the depth days
// before today. Manifests for those days are deleted so the run rewrites them
// from scratch; manifests outside the window are left alone. An empty
// manifestDir starts a run that only feeds link targets.
func BeginTransaction(manifestDir string, depth int, opts ...Option) (*Transaction, error) {
	if depth < 1 {
		return nil, fmt.Errorf("lookback depth must be at least 1, got %d", depth)
	}
	t := &Transaction{
		depth:  depth,
		enc:    textenc.UTF8(),
		eol:    LF,
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.NewComponentLogger(t.logger, "assort")
	t.today = Today(t.now())

	if manifestDir != "" {
		abs, err := filepath.Abs(manifestDir)
		if err != nil {
			return nil, fmt.Errorf("resolve manifest directory: %w", err)
		}
		t.manifestDir = abs
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("create manifest directory: %w", err)
		}
		for _, day := range Window(t.today, depth) {
			path := ManifestPath(abs, day)
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("remove stale manifest: %w", err)
			}
		}
	}
	t.state.Store(int32(StateCreated))
	return t, nil
}

// State reports the lifecycle position without waiting for an in-flight Assort.
func (t *Transaction) State() State {
	return State(t.state.Load())
}

// IsRunning reports whether the transaction still accepts work.
func (t *Transaction) IsRunning() bool {
	return t.State() != StateTerminated
}

// Today is the reference day the transaction was started with.
func (t *Transaction) Today() time.Time { return t.today }

// Depth is the number of days before today the transaction covers.
func (t *Transaction) Depth() int { return t.depth }

// ManifestDir is the absolute manifest directory, or "" for link-only runs.
func (t *Transaction) ManifestDir() string { return t.manifestDir }

// Processed is the number of sources assorted so far.
func (t *Transaction) Processed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed
}

// Assort enumerates source, classifies its files and writes every bucket to
// target. ctx is checked once before any work starts; a started source always
// runs to completion. Permission-denied subtrees and failed hard links are
// logged and skipped. Any other error aborts this source and is returned; the
// transaction itself stays usable.
func (t *Transaction) Assort(ctx context.Context, source Source, target Target) (Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := Report{Source: source.Label(), Target: target.Name, Kind: target.Kind}
	if t.State() == StateTerminated {
		return report, ErrNoTransaction
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if target.Kind == KindManifest && !t.ownsManifestDir(target.Dir) {
		return report, fmt.Errorf("target %q writes manifests to %s, not to this transaction's directory %q", target.Name, target.Dir, t.manifestDir)
	}
	sourceDir, err := filepath.Abs(source.Dir)
	if err != nil {
		return report, fmt.Errorf("resolve source directory: %w", err)
	}
	t.state.Store(int32(StateRunning))

	ctx = logging.WithTarget(logging.WithSource(ctx, source.Label()), target.Name)
	logger := logging.WithContext(ctx, t.logger)

	if err := preflight.CanRead(sourceDir); err != nil {
		logging.ErrorWithContext(logger, "source directory unavailable; skipped for this run", "source_unavailable",
			logging.String("directory", sourceDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the recording volume is mounted and readable"),
		)
		report.Unavailable = true
		t.processed++
		return report, nil
	}

	files, skipped, err := enumerate(sourceDir, logger, target.Dir, t.manifestDir)
	report.Enumerated = len(files)
	report.Skipped = skipped
	if err != nil {
		return report, err
	}
	logger.Debug("source enumerated",
		logging.Int("files", len(files)),
		logging.String("matcher", matcherName(source.Matcher)),
	)

	for _, bucket := range Classify(files, t.today, t.depth, source.Matcher) {
		var (
			br  BucketReport
			err error
		)
		switch target.Kind {
		case KindLink:
			br, err = linkBucket(bucket, sourceDir, target.Dir, logger)
		default:
			br = BucketReport{Date: bucket.Date, Files: len(bucket.Files), Bytes: bucket.Bytes}
			err = appendManifest(t.manifestDir, bucket, t.enc, t.eol)
		}
		report.Buckets = append(report.Buckets, br)
		if err != nil {
			return report, fmt.Errorf("assort %s for %s: %w", source.Label(), DayName(bucket.Date), err)
		}
		logger.Info("bucket assorted",
			logging.String(logging.FieldEventType, "bucket_assorted"),
			logging.String(logging.FieldBucketDate, DayName(bucket.Date)),
			logging.Int("count", br.Files),
			logging.Bytes("bytes", br.Bytes),
		)
	}
	t.processed++
	return report, nil
}

// enumerate lists dir without descending into any of the excluded
// directories. Unreadable subtrees are logged and returned separately.
func enumerate(dir string, logger *slog.Logger, exclude ...string) ([]fswalk.File, []string, error) {
	opts := make([]fswalk.Option, 0, len(exclude))
	for _, path := range exclude {
		opts = append(opts, fswalk.WithExclude(path))
	}
	var skipped []string
	files, err := fswalk.Collect(fswalk.Walk(dir, opts...), func(skip *fswalk.SkipError) {
		skipped = append(skipped, skip.Path)
		logging.WarnWithContext(logger, "subtree not readable; skipped", "subtree_skipped",
			logging.String("path", skip.Path),
			logging.Error(skip.Err),
			logging.String(logging.FieldErrorHint, "grant the service read access to the directory"),
			logging.String(logging.FieldImpact, "recordings below this directory are not assorted"),
		)
	})
	if err != nil {
		return files, skipped, fmt.Errorf("enumerate %s: %w", dir, err)
	}
	return files, skipped, nil
}

// End points latest.txt at the newest manifest and terminates the
// transaction. The transaction is terminated even when the pointer cannot be
// updated; that error is returned.
func (t *Transaction) End() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State() == StateTerminated {
		return ErrNoTransaction
	}
	defer t.state.Store(int32(StateTerminated))

	if t.manifestDir == "" {
		return nil
	}
	newest, err := updateLatest(t.manifestDir)
	if err != nil {
		return err
	}
	if newest != "" {
		t.logger.Info("latest manifest updated",
			logging.String(logging.FieldEventType, "manifest_latest_updated"),
			logging.String("manifest", newest),
			logging.Int("sources", t.processed),
		)
	}
	return nil
}

// Abort terminates the transaction without touching latest.txt. It is a
// no-op on a terminated transaction.
func (t *Transaction) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Store(int32(StateTerminated))
}

func (t *Transaction) ownsManifestDir(dir string) bool {
	if t.manifestDir == "" {
		return false
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return abs == t.manifestDir
}

func matcherName(m Matcher) string {
	if m == nil {
		return TimestampMatcher{}.String()
	}
	return m.String()
}

package scheduler

import (
	"fmt"

	"camsort/internal/assort"
	"camsort/internal/config"
	"camsort/internal/textenc"
)

// Pair is a source bound to its target, ready for Transaction.Assort.
type Pair struct {
	Source assort.Source
	Target assort.Target
}

// Snapshot is an immutable, validated view of one configuration load.
type Snapshot struct {
	Config      *config.Config
	Pairs       []Pair
	ManifestDir string
	Depth       int
	Encoding    textenc.Encoding
	LineEnding  assort.LineEnding
	Schedule    config.ScheduleTime
}

// Loader produces a validated configuration.
type Loader func() (*config.Config, error)

// FileLoader loads and validates the configuration file at path.
func FileLoader(path string) Loader {
	return func() (*config.Config, error) {
		cfg, _, _, err := config.Load(path)
		return cfg, err
	}
}

// BuildSnapshot resolves matchers, targets and the manifest encoding once so
// the run loop never re-parses configuration strings.
func BuildSnapshot(cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is missing", config.ErrInvalid)
	}
	enc, err := textenc.Lookup(cfg.Manifest.Encoding, cfg.Manifest.BOM)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest.encoding: %w", config.ErrInvalid, err)
	}
	snap := &Snapshot{
		Config:      cfg,
		ManifestDir: cfg.ManifestDir(),
		Depth:       cfg.LookbackDays,
		Encoding:    enc,
		LineEnding:  assort.LF,
		Schedule:    cfg.Schedule,
	}
	if cfg.Manifest.LineEnding == config.LineEndingCRLF {
		snap.LineEnding = assort.CRLF
	}

	targets := make(map[string]assort.Target, len(cfg.Targets))
	for _, t := range cfg.Targets {
		kind, err := assort.ParseKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: target %q: %w", config.ErrInvalid, t.Name, err)
		}
		targets[t.Name] = assort.Target{Name: t.Name, Dir: t.Directory, Kind: kind}
	}
	for _, s := range cfg.Sources {
		target, ok := targets[s.Target]
		if !ok {
			return nil, fmt.Errorf("%w: source %s: unknown target %q", config.ErrInvalid, s.Directory, s.Target)
		}
		matcher, err := assort.NewMatcher(s.DatePattern)
		if err != nil {
			return nil, fmt.Errorf("%w: source %s: %w", config.ErrInvalid, s.Directory, err)
		}
		snap.Pairs = append(snap.Pairs, Pair{
			Source: assort.Source{Dir: s.Directory, Matcher: matcher},
			Target: target,
		})
	}
	return snap, nil
}

// TransactionOptions returns the assort options implied by the snapshot.
func (s *Snapshot) TransactionOptions() []assort.Option {
	return []assort.Option{
		assort.WithEncoding(s.Encoding),
		assort.WithLineEnding(s.LineEnding),
	}
}

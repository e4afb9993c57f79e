package config

const (
	defaultSchedule         = "01:30"
	defaultLookbackDays     = 1
	defaultStateDir         = "~/.local/share/camsort"
	defaultManifestEncoding = "utf-8"
	defaultLineEnding       = LineEndingLF
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults. It has no
// sources or targets and therefore does not validate on its own.
func Default() Config {
	return Config{
		Schedule:     MustParseScheduleTime(defaultSchedule),
		LookbackDays: defaultLookbackDays,
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Manifest: Manifest{
			Encoding:   defaultManifestEncoding,
			LineEnding: defaultLineEnding,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

package config

import (
	"fmt"
	"regexp"

	"camsort/internal/datepattern"
	"camsort/internal/textenc"
)

// Validate ensures the configuration is structurally usable. Filesystem
// permissions are checked separately by the preflight package.
func (c *Config) Validate() error {
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateTargets(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateManifest(); err != nil {
		return err
	}
	return c.validateLogging()
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

func (c *Config) validateSchedule() error {
	if c.LookbackDays < 1 {
		return invalidf("lookback_days must be at least 1, got %d", c.LookbackDays)
	}
	if c.Schedule.Offset() > lastScheduleTime {
		return invalidf("schedule must not be later than 23:59:59")
	}
	return nil
}

func (c *Config) validateTargets() error {
	seen := make(map[string]struct{}, len(c.Targets))
	manifests := 0
	for i, target := range c.Targets {
		if target.Name == "" {
			return invalidf("targets[%d].name must be set", i)
		}
		if _, dup := seen[target.Name]; dup {
			return invalidf("target %q is defined more than once", target.Name)
		}
		seen[target.Name] = struct{}{}
		if target.Directory == "" {
			return invalidf("target %q: directory must be set", target.Name)
		}
		switch target.Kind {
		case KindManifest:
			manifests++
		case KindLink:
		default:
			return invalidf("target %q: kind must be %q or %q, got %q", target.Name, KindManifest, KindLink, target.Kind)
		}
	}
	if manifests > 1 {
		return invalidf("at most one manifest target may be configured, found %d", manifests)
	}
	return nil
}

func (c *Config) validateSources() error {
	if len(c.Sources) == 0 {
		return invalidf("at least one [[sources]] entry is required")
	}
	for i, source := range c.Sources {
		if source.Directory == "" {
			return invalidf("sources[%d].directory must be set", i)
		}
		if _, ok := c.TargetByName(source.Target); !ok {
			return invalidf("source %s: unknown target %q", source.Directory, source.Target)
		}
		if source.DatePattern != "" {
			if _, err := datepattern.Parse(source.DatePattern); err != nil {
				return invalidf("source %s: date_pattern: %v", source.Directory, err)
			}
		}
		if source.CameraPattern != "" {
			if _, err := regexp.Compile(source.CameraPattern); err != nil {
				return invalidf("source %s: camera_pattern: %v", source.Directory, err)
			}
		}
	}
	return nil
}

func (c *Config) validateManifest() error {
	if _, err := textenc.Lookup(c.Manifest.Encoding, c.Manifest.BOM); err != nil {
		return invalidf("manifest.encoding: %v", err)
	}
	switch c.Manifest.LineEnding {
	case LineEndingLF, LineEndingCRLF:
		return nil
	default:
		return invalidf("manifest.line_ending must be %q or %q, got %q", LineEndingLF, LineEndingCRLF, c.Manifest.LineEnding)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalidf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return invalidf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTargets(); err != nil {
		return err
	}
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.normalizeManifest()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("CAMSORT_STATE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StateDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTargets() error {
	for i := range c.Targets {
		target := &c.Targets[i]
		target.Name = strings.TrimSpace(target.Name)
		target.Kind = strings.ToLower(strings.TrimSpace(target.Kind))
		if target.Kind == "" {
			target.Kind = KindManifest
		}
		if strings.TrimSpace(target.Directory) == "" {
			continue
		}
		var err error
		if target.Directory, err = expandPath(strings.TrimSpace(target.Directory)); err != nil {
			return fmt.Errorf("targets[%d].directory: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeSources() error {
	for i := range c.Sources {
		source := &c.Sources[i]
		source.Target = strings.TrimSpace(source.Target)
		source.DatePattern = strings.TrimSpace(source.DatePattern)
		if strings.TrimSpace(source.Directory) == "" {
			continue
		}
		var err error
		if source.Directory, err = expandPath(strings.TrimSpace(source.Directory)); err != nil {
			return fmt.Errorf("sources[%d].directory: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeManifest() {
	c.Manifest.Encoding = strings.TrimSpace(c.Manifest.Encoding)
	if c.Manifest.Encoding == "" {
		c.Manifest.Encoding = defaultManifestEncoding
	}
	c.Manifest.LineEnding = strings.ToLower(strings.TrimSpace(c.Manifest.LineEnding))
	if c.Manifest.LineEnding == "" {
		c.Manifest.LineEnding = defaultLineEnding
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("CAMSORT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

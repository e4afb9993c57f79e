package preflight

import (
	"fmt"

	"camsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks every path the configuration depends on: the state directory
// must be writable or creatable, every source readable, every target writable
// or creatable.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckCreatable("State directory", cfg.Paths.StateDir)}
	for _, target := range cfg.Targets {
		results = append(results, CheckCreatable(fmt.Sprintf("Target %s (%s)", target.Name, target.Kind), target.Directory))
	}
	for _, source := range cfg.Sources {
		results = append(results, CheckDirectoryAccess("Source → "+source.Target, source.Directory, Read))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

package logging

import "strings"

// FormatSubject builds the run/source/target subject string used in console output.
func FormatSubject(runID, source, target string) string {
	runID = strings.TrimSpace(runID)
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	parts := make([]string, 0, 3)
	if runID != "" {
		if len(runID) > 8 {
			runID = runID[:8]
		}
		parts = append(parts, "Run "+runID)
	}
	switch {
	case source != "" && target != "":
		parts = append(parts, source+" → "+target)
	case source != "":
		parts = append(parts, source)
	case target != "":
		parts = append(parts, "→ "+target)
	}
	return strings.Join(parts, " · ")
}

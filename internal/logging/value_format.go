package logging

import (
	"log/slog"
	"strconv"
	"strings"
)

// attrString is the bare text of v, used for header fields.
func attrString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.String()
}

// formatValue renders v for a key=value pair, quoting when the text would
// otherwise be ambiguous.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	s := attrString(v)
	if v.Kind() == slog.KindTime {
		s = formatTimestamp(v.Time())
	}
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

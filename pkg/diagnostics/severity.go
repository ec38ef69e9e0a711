package diagnostics

import (
	"fmt"
	"log/slog"
	"strings"
)

// Severity is the ordered importance of a diagnostic. It doubles as the
// threshold that decides whether a validation problem aborts.
type Severity int

const (
	Debug Severity = iota
	Information
	Warning
	Error
	Critical
)

// DefaultSeverity is used when the configuration leaves log_severity unset.
const DefaultSeverity = Error

var severityNames = [...]string{"debug", "information", "warning", "error", "critical"}

var severityTags = [...]string{"DBG ", "INFO", "WARN", "ERR ", "CRIT"}

// ParseSeverity parses a case-insensitive severity name. Short forms such
// as "info" and "warn" are accepted as well.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return Debug, nil
	case "information", "info":
		return Information, nil
	case "warning", "warn":
		return Warning, nil
	case "error", "err":
		return Error, nil
	case "critical", "crit":
		return Critical, nil
	}
	return 0, fmt.Errorf("unknown severity %q: expected one of %s", s, strings.Join(severityNames[:], ", "))
}

// Valid reports whether s is one of the defined levels.
func (s Severity) Valid() bool {
	return s >= Debug && s <= Critical
}

// Fatal reports whether a condition logged at s must abort validation.
func (s Severity) Fatal() bool {
	return s >= Error
}

// Name returns the lower-case configuration name of s.
func (s Severity) Name() string {
	if !s.Valid() {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// String returns the fixed-width tag used in log lines.
func (s Severity) String() string {
	if !s.Valid() {
		return "????"
	}
	return severityTags[s]
}

// Level maps s onto the slog level scale.
func (s Severity) Level() slog.Level {
	switch s {
	case Debug:
		return slog.LevelDebug
	case Information:
		return slog.LevelInfo
	case Warning:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.Name()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// FILE: lixenwraith/sinklog/level.go
package sinklog

import (
	"strconv"
	"strings"

	"github.com/lixenwraith/sinklog/formatter"
)

// Severity orders records; larger is more severe
type Severity int64

// Log level constants
const (
	LevelTrace    Severity = -8
	LevelDebug    Severity = -4
	LevelInfo     Severity = 0
	LevelWarn     Severity = 4
	LevelError    Severity = 8
	LevelCritical Severity = 12
)

// String returns the level token used in output
func (s Severity) String() string {
	return formatter.LevelToString(int64(s))
}

// ParseSeverity converts a level name or integer to a Severity
func ParseSeverity(levelStr string) (Severity, error) {
	s := strings.ToLower(strings.TrimSpace(levelStr))
	switch s {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "crit", "critical":
		return LevelCritical, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Severity(n), nil
	}
	return 0, fmtErrorf("invalid level string: '%s' (use trace, debug, info, warn, error, critical)", levelStr)
}

// FILE: lixenwraith/sinklog/compat/structured_gnet.go
package compat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lixenwraith/sinklog"
)

// keyValuePattern detects "key=%v" or "key: %v" verbs in a format string
var keyValuePattern = regexp.MustCompile(`(\w+)\s*[:=]\s*%[vsdqxXeEfFgGpbcU]`)

// parseFormat splits a printf-style call into a message and key/value
// fields. Formats with any verb not bound to a key fall back to the plain
// formatted message.
func parseFormat(format string, args []any) (string, []any) {
	matches := keyValuePattern.FindAllStringSubmatchIndex(format, -1)
	if len(matches) == 0 || len(matches) != len(args) || strings.Count(format, "%") != len(args) {
		return fmt.Sprintf(format, args...), nil
	}

	var msg strings.Builder
	fields := make([]any, 0, len(matches)*2)
	lastEnd := 0
	for i, match := range matches {
		if text := strings.TrimSpace(format[lastEnd:match[0]]); text != "" {
			if msg.Len() > 0 {
				msg.WriteByte(' ')
			}
			msg.WriteString(text)
		}
		fields = append(fields, format[match[2]:match[3]], args[i])
		lastEnd = match[1]
	}
	if text := strings.TrimSpace(format[lastEnd:]); text != "" {
		if msg.Len() > 0 {
			msg.WriteByte(' ')
		}
		msg.WriteString(text)
	}

	return msg.String(), fields
}

// StructuredGnetAdapter provides enhanced structured logging for gnet
type StructuredGnetAdapter struct {
	*GnetAdapter
}

// NewStructuredGnetAdapter creates a gnet adapter with structured field extraction
func NewStructuredGnetAdapter(logger *sinklog.Logger, opts ...GnetOption) *StructuredGnetAdapter {
	return &StructuredGnetAdapter{GnetAdapter: NewGnetAdapter(logger, opts...)}
}

func (a *StructuredGnetAdapter) logf(sev sinklog.Severity, format string, args []any) {
	msg, fields := parseFormat(format, args)
	a.logger.LogDepth(2, sev, msg, fields...)
}

// Debugf logs with structured field extraction
func (a *StructuredGnetAdapter) Debugf(format string, args ...any) {
	a.logf(sinklog.LevelDebug, format, args)
}

// Infof logs with structured field extraction
func (a *StructuredGnetAdapter) Infof(format string, args ...any) {
	a.logf(sinklog.LevelInfo, format, args)
}

// Warnf logs with structured field extraction
func (a *StructuredGnetAdapter) Warnf(format string, args ...any) {
	a.logf(sinklog.LevelWarn, format, args)
}

// Errorf logs with structured field extraction
func (a *StructuredGnetAdapter) Errorf(format string, args ...any) {
	a.logf(sinklog.LevelError, format, args)
}

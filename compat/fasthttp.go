// FILE: lixenwraith/sinklog/compat/fasthttp.go
package compat

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/sinklog"
)

var _ fasthttp.Logger = (*FastHTTPAdapter)(nil)

// FastHTTPAdapter wraps sinklog.Logger to implement the fasthttp Logger interface
type FastHTTPAdapter struct {
	logger        *sinklog.Logger
	defaultLevel  sinklog.Severity
	levelDetector func(string) (sinklog.Severity, bool) // Detects the level from message content
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger *sinklog.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger.With("component", "fasthttp"),
		defaultLevel:  sinklog.LevelInfo,
		levelDetector: DetectLogLevel,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the level for messages the detector does not classify
func WithDefaultLevel(level sinklog.Severity) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message
// content. A nil detector logs everything at the default level.
func WithLevelDetector(detector func(string) (sinklog.Severity, bool)) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected, ok := a.levelDetector(msg); ok {
			level = detected
		}
	}

	a.logger.LogDepth(1, level, msg)
}

// DetectLogLevel classifies a message by keywords. It reports false when no
// keyword matches.
func DetectLogLevel(msg string) (sinklog.Severity, bool) {
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "error"),
		strings.Contains(msgLower, "failed"),
		strings.Contains(msgLower, "fatal"),
		strings.Contains(msgLower, "panic"):
		return sinklog.LevelError, true

	case strings.Contains(msgLower, "warn"),
		strings.Contains(msgLower, "deprecated"):
		return sinklog.LevelWarn, true

	case strings.Contains(msgLower, "debug"),
		strings.Contains(msgLower, "trace"):
		return sinklog.LevelDebug, true
	}

	return sinklog.LevelInfo, false
}

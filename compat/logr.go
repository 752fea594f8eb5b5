// FILE: lixenwraith/sinklog/compat/logr.go
package compat

import (
	"github.com/go-logr/logr"

	"github.com/lixenwraith/sinklog"
)

var (
	_ logr.LogSink          = (*LogrSink)(nil)
	_ logr.CallDepthLogSink = (*LogrSink)(nil)
)

// LogrSink implements logr.LogSink on top of sinklog.Logger.
//
// V-levels map onto severities: V(0) is Info, V(1) is Debug and anything
// higher is Trace. Names set with WithName are joined with "/" and emitted as
// the "logger" field.
type LogrSink struct {
	logger *sinklog.Logger
	name   string
	depth  int
}

// NewLogr returns a logr.Logger writing to logger
func NewLogr(logger *sinklog.Logger) logr.Logger {
	return logr.New(&LogrSink{logger: logger})
}

// Init receives the call depth added by logr.Logger
func (s *LogrSink) Init(info logr.RuntimeInfo) {
	s.depth += info.CallDepth
}

// Enabled reports whether records at the V-level can reach any sink
func (s *LogrSink) Enabled(level int) bool {
	return s.logger.Enabled(vLevel(level))
}

// Info logs a non-error message
func (s *LogrSink) Info(level int, msg string, keysAndValues ...any) {
	s.logger.LogDepth(s.depth+1, vLevel(level), msg, s.fields(keysAndValues)...)
}

// Error logs an error at error severity. A nil err is omitted.
func (s *LogrSink) Error(err error, msg string, keysAndValues ...any) {
	kv := s.fields(keysAndValues)
	if err != nil {
		kv = append(kv, "error", err)
	}
	s.logger.LogDepth(s.depth+1, sinklog.LevelError, msg, kv...)
}

// WithValues returns a sink that adds keysAndValues to every record
func (s *LogrSink) WithValues(keysAndValues ...any) logr.LogSink {
	c := *s
	c.logger = s.logger.With(keysAndValues...)
	return &c
}

// WithName returns a sink with name appended to the logger name
func (s *LogrSink) WithName(name string) logr.LogSink {
	c := *s
	if c.name == "" {
		c.name = name
	} else {
		c.name += "/" + name
	}
	return &c
}

// WithCallDepth returns a sink that skips depth more frames for the source
func (s *LogrSink) WithCallDepth(depth int) logr.LogSink {
	c := *s
	c.depth += depth
	return &c
}

func (s *LogrSink) fields(keysAndValues []any) []any {
	if s.name == "" {
		return keysAndValues
	}
	kv := make([]any, 0, len(keysAndValues)+2)
	kv = append(kv, "logger", s.name)
	return append(kv, keysAndValues...)
}

func vLevel(level int) sinklog.Severity {
	switch {
	case level <= 0:
		return sinklog.LevelInfo
	case level == 1:
		return sinklog.LevelDebug
	default:
		return sinklog.LevelTrace
	}
}

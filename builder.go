// FILE: lixenwraith/sinklog/builder.go
package sinklog

import (
	"strconv"
	"time"
)

// Builder provides a fluent API for building logger configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg  *Config
	opts []Option
	err  error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values and no sinks.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build creates a new Logger instance with the specified configuration.
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.cfg, b.opts...)
}

// Config returns a copy of the configuration built so far.
func (b *Builder) Config() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg.Clone(), nil
}

// Level sets the global minimum severity.
func (b *Builder) Level(level Severity) *Builder {
	b.cfg.Level = strconv.FormatInt(int64(level), 10)
	return b
}

// LevelString sets the global minimum severity from a name or number.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := ParseSeverity(level); err != nil {
		b.err = configErrorf("level: %w", err)
		return b
	}
	b.cfg.Level = level
	return b
}

// Overrides appends global "level:pattern" overrides.
func (b *Builder) Overrides(overrides ...string) *Builder {
	b.cfg.Overrides = append(b.cfg.Overrides, overrides...)
	return b
}

// SourceLocation sets the source capture mode.
func (b *Builder) SourceLocation(mode string) *Builder {
	b.cfg.SourceLocation = mode
	return b
}

// ShutdownTimeout sets the default Shutdown timeout.
func (b *Builder) ShutdownTimeout(timeout time.Duration) *Builder {
	b.cfg.ShutdownTimeoutMs = timeout.Milliseconds()
	return b
}

// Heartbeat enables heartbeat records at level every interval.
func (b *Builder) Heartbeat(level int64, interval time.Duration) *Builder {
	b.cfg.HeartbeatLevel = level
	b.cfg.HeartbeatIntervalS = int64(interval / time.Second)
	return b
}

// InternalErrorsToStderr mirrors failure events to stderr.
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// ErrorHandler installs a handler for failure events.
func (b *Builder) ErrorHandler(h ErrorHandler) *Builder {
	b.opts = append(b.opts, WithErrorHandler(h))
	return b
}

// Sink adds a named sink. A nil sc is an error.
func (b *Builder) Sink(name string, sc *SinkConfig) *Builder {
	if b.err != nil {
		return b
	}
	if sc == nil {
		b.err = configErrorf("sink '%s' has no configuration", name)
		return b
	}
	if _, exists := b.cfg.Sinks[name]; exists {
		b.err = configErrorf("duplicate sink name '%s'", name)
		return b
	}
	copied := *sc
	b.cfg.Sinks[name] = &copied
	return b
}

// Terminal adds a terminal sink writing to stdout or stderr.
func (b *Builder) Terminal(name, target string) *Builder {
	sc := DefaultSinkConfig(SinkTerminal)
	sc.Target = target
	return b.Sink(name, sc)
}

// File adds a text file sink rotating at maxSize bytes and keeping maxFiles
// rotated generations.
func (b *Builder) File(name, path string, maxSize, maxFiles int64) *Builder {
	sc := DefaultSinkConfig(SinkFile)
	sc.Path = path
	sc.MaxSizeBytes = maxSize
	sc.MaxFiles = maxFiles
	return b.Sink(name, sc)
}

// Structured adds a JSON lines file sink with the same rotation settings.
func (b *Builder) Structured(name, path string, maxSize, maxFiles int64) *Builder {
	sc := DefaultSinkConfig(SinkStructured)
	sc.Path = path
	sc.MaxSizeBytes = maxSize
	sc.MaxFiles = maxFiles
	return b.Sink(name, sc)
}

// Syslog adds a sink sending to the local syslog daemon under facility and
// ident. Use SinkOverride with network and address for a specific socket.
func (b *Builder) Syslog(name, facility, ident string) *Builder {
	sc := DefaultSinkConfig(SinkSyslog)
	sc.Facility = facility
	sc.Ident = ident
	return b.Sink(name, sc)
}

// Custom adds a caller-provided sink; see WithSink.
func (b *Builder) Custom(name string, sink Sink, sc *SinkConfig) *Builder {
	b.opts = append(b.opts, WithSink(name, sink, sc))
	return b
}

// SinkOverride applies "key=value" overrides to the named sink, as in
// Config.ApplyOverride with the "sinks.<name>." prefix implied.
func (b *Builder) SinkOverride(name string, overrides ...string) *Builder {
	if b.err != nil {
		return b
	}
	prefixed := make([]string, len(overrides))
	for i, o := range overrides {
		prefixed[i] = "sinks." + name + "." + o
	}
	return b.Override(prefixed...)
}

// Override applies "key=value" overrides to the configuration.
func (b *Builder) Override(overrides ...string) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.cfg.ApplyOverride(overrides...); err != nil {
		b.err = err
	}
	return b
}

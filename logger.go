// FILE: lixenwraith/sinklog/logger.go
package sinklog

import (
	"os"
	"time"

	"github.com/lixenwraith/sinklog/formatter"
)

// Logger fans records out to its sinks. All methods are safe for concurrent
// use. Loggers derived with With share the sinks of their parent.
type Logger struct {
	p      *pipeline
	fields []Field
}

// pipeline is the state shared by a logger and its children
type pipeline struct {
	floor      Severity // lowest severity any sink filter can let through
	sinks      []*sinkEntry
	sourceMode string
	cfg        *Config
	report     ErrorHandler
	state      State
}

// sinkEntry pairs a sink with its optional filter and its dispatcher
type sinkEntry struct {
	name       string
	kind       string
	filter     *Filter // the sink's own filter, or the global one
	dispatcher *Dispatcher
	stats      *Stats
	file       *fileSink // set for file and structured sinks
}

// Option customizes New
type Option func(*options)

type options struct {
	handler ErrorHandler
	custom  map[string]customSink
}

type customSink struct {
	sink Sink
	cfg  *SinkConfig
}

// WithErrorHandler installs h to receive failure events
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithSink adds a caller-provided sink. sc supplies its filter, format and
// dispatch settings; its kind and rotation settings are ignored. A nil sc
// uses the defaults.
func WithSink(name string, sink Sink, sc *SinkConfig) Option {
	return func(o *options) {
		if o.custom == nil {
			o.custom = make(map[string]customSink)
		}
		o.custom[name] = customSink{sink: sink, cfg: sc}
	}
}

// New validates cfg, opens every sink and starts one worker per sink. On
// failure every sink opened so far is closed again.
func New(cfg *Config, opts ...Option) (*Logger, error) {
	if cfg == nil {
		return nil, configErrorf("configuration cannot be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.Clone()
	for name, cs := range o.custom {
		if _, exists := cfg.Sinks[name]; exists {
			return nil, configErrorf("duplicate sink name '%s'", name)
		}
		if cs.sink == nil {
			return nil, configErrorf("sink '%s' is nil", name)
		}
		sc := DefaultSinkConfig(SinkNull)
		if cs.cfg != nil {
			copied := *cs.cfg
			sc = &copied
		}
		sc.Kind = SinkNull
		cfg.Sinks[name] = sc
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalFilter, err := cfg.filter()
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		sourceMode: cfg.SourceLocation,
		cfg:        cfg,
	}
	p.report = p.makeReporter(o.handler)
	p.state.LoggerStartTime = time.Now()

	for _, name := range cfg.sinkNames() {
		var custom Sink
		if cs, ok := o.custom[name]; ok {
			custom = cs.sink
		}
		entry, err := p.openSink(name, cfg.Sinks[name], custom, globalFilter)
		if err != nil {
			p.closeSinks(time.Duration(cfg.ShutdownTimeoutMs) * time.Millisecond)
			return nil, err
		}
		if len(p.sinks) == 0 || entry.filter.Floor() < p.floor {
			p.floor = entry.filter.Floor()
		}
		p.sinks = append(p.sinks, entry)
	}

	p.startHeartbeat()

	return &Logger{p: p}, nil
}

// makeReporter wraps the user handler with the optional stderr diagnostics
func (p *pipeline) makeReporter(handler ErrorHandler) ErrorHandler {
	toStderr := p.cfg.InternalErrorsToStderr
	return func(ev Event) {
		if ev.Path != "" {
			internalLogf(toStderr, "%s on sink '%s' (%s): %v", ev.Kind, ev.Sink, ev.Path, ev.Err)
		} else {
			internalLogf(toStderr, "%s on sink '%s': %v", ev.Kind, ev.Sink, ev.Err)
		}
		if handler != nil {
			handler(ev)
		}
	}
}

// openSink builds the sink, its formatter and its dispatcher
func (p *pipeline) openSink(name string, sc *SinkConfig, custom Sink, global *Filter) (*sinkEntry, error) {
	entry := &sinkEntry{name: name, kind: sc.Kind, stats: &Stats{}}

	filter, err := sc.filter(&p.cfg.Settings)
	if err != nil {
		return nil, configErrorf("sink '%s': %w", name, err)
	}
	if filter == nil {
		filter = global
	}
	entry.filter = filter

	var sink Sink
	format := sc.effectiveFormat()
	switch {
	case custom != nil:
		sink = custom
		entry.kind = "custom"
	case sc.Kind == SinkTerminal:
		sink, format = newTerminalSink(sc)
	case sc.Kind == SinkFile || sc.Kind == SinkStructured:
		fs, err := newFileSink(name, sc, sc.location(), entry.stats, p.report)
		if err != nil {
			return nil, err
		}
		entry.file = fs
		sink = fs
	case sc.Kind == SinkSyslog:
		sink, err = newSyslogSink(sc)
		if err != nil {
			return nil, configErrorf("sink '%s': %w", name, err)
		}
	default:
		sink = nullSink{}
	}

	f := formatter.New().
		Type(format).
		TimestampFormat(sc.TimestampFormat).
		Location(sc.location()).
		ShowTimestamp(sc.ShowTimestamp).
		ShowLevel(sc.ShowLevel)
	if sc.Kind == SinkSyslog {
		// the syslog header carries both
		f.ShowTimestamp(false).ShowLevel(false)
	}
	if sc.ProcessID {
		f.ProcessID(os.Getpid())
	}

	d, err := NewDispatcher(name, sink, DispatcherOptions{
		Capacity:      int(sc.BufferSize),
		Overflow:      OverflowPolicy(sc.Overflow),
		BlockTimeout:  time.Duration(sc.BlockTimeoutMs) * time.Millisecond,
		WriteRetries:  int(sc.WriteRetries),
		FlushInterval: time.Duration(sc.FlushIntervalMs) * time.Millisecond,
		Formatter:     f,
		Stats:         entry.stats,
		OnError:       p.report,
	})
	if err != nil {
		if custom == nil {
			_ = sink.Close(minWaitTime)
		}
		return nil, err
	}
	entry.dispatcher = d
	return entry, nil
}

// Trace logs at trace level
func (l *Logger) Trace(msg string, args ...any) {
	l.log(LevelTrace, msg, args, callerSkip)
}

// Debug logs at debug level
func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, msg, args, callerSkip)
}

// Info logs at info level
func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, msg, args, callerSkip)
}

// Warn logs at warning level
func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, msg, args, callerSkip)
}

// Error logs at error level
func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, msg, args, callerSkip)
}

// Critical logs at critical level
func (l *Logger) Critical(msg string, args ...any) {
	l.log(LevelCritical, msg, args, callerSkip)
}

// Log logs at an arbitrary severity. args are alternating keys and values,
// or Field values.
func (l *Logger) Log(sev Severity, msg string, args ...any) {
	l.log(sev, msg, args, callerSkip)
}

// LogDepth is Log for wrappers: extraSkip frames above the caller of
// LogDepth are reported as the source
func (l *Logger) LogDepth(extraSkip int, sev Severity, msg string, args ...any) {
	l.log(sev, msg, args, callerSkip+extraSkip)
}

// LogRecord submits a prebuilt record. A zero Time is set to now. The
// logger's own fields are prepended.
func (l *Logger) LogRecord(rec Record) {
	p := l.p
	if rec.Severity < p.floor {
		return
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	if len(l.fields) > 0 {
		fields := make([]Field, 0, len(l.fields)+len(rec.Fields))
		fields = append(fields, l.fields...)
		rec.Fields = append(fields, rec.Fields...)
	}
	rec.context = len(l.fields)
	p.dispatch(&rec)
}

// With returns a child logger that adds args to every record
func (l *Logger) With(args ...any) *Logger {
	fields := make([]Field, len(l.fields), len(l.fields)+len(args))
	copy(fields, l.fields)
	return &Logger{p: l.p, fields: appendArgs(fields, args)}
}

// Enabled reports whether a record at sev could reach any sink. It is a
// fast pre-check; overrides may still reject individual records.
func (l *Logger) Enabled(sev Severity) bool {
	if sev < l.p.floor {
		return false
	}
	for _, s := range l.p.sinks {
		if s.filter.MaybeEnabled(sev) {
			return true
		}
	}
	return false
}

// log builds the record and hands it to the sinks. It must be called
// directly from the public method so that skip lands on the caller.
func (l *Logger) log(sev Severity, msg string, args []any, skip int) {
	p := l.p
	if sev < p.floor {
		return
	}

	rec := &Record{
		Time:     time.Now(),
		Severity: sev,
		Message:  msg,
		context:  len(l.fields),
	}
	if len(l.fields)+len(args) > 0 {
		fields := make([]Field, len(l.fields), len(l.fields)+len(args))
		copy(fields, l.fields)
		rec.Fields = appendArgs(fields, args)
	}

	if !p.accepted(rec) {
		return
	}

	rec.Source = captureSource(p.sourceMode, skip)
	p.dispatch(rec)
}

// accepted reports whether any sink filter accepts rec
func (p *pipeline) accepted(rec *Record) bool {
	for _, s := range p.sinks {
		if s.filter.Accept(rec) {
			return true
		}
	}
	return false
}

// dispatch submits rec to every sink whose filter accepts it
func (p *pipeline) dispatch(rec *Record) {
	for _, s := range p.sinks {
		if !s.filter.Accept(rec) {
			continue
		}
		s.dispatcher.Submit(rec)
	}
}

// Stats returns a snapshot of every sink's counters by sink name
func (l *Logger) Stats() map[string]StatsSnapshot {
	stats := make(map[string]StatsSnapshot, len(l.p.sinks))
	for _, s := range l.p.sinks {
		stats[s.name] = s.stats.Snapshot()
	}
	return stats
}

// TotalStats returns the counters summed over all sinks
func (l *Logger) TotalStats() StatsSnapshot {
	var total StatsSnapshot
	for _, s := range l.p.sinks {
		total = total.Add(s.stats.Snapshot())
	}
	return total
}

// SinkNames returns the sink names in dispatch order
func (l *Logger) SinkNames() []string {
	names := make([]string, len(l.p.sinks))
	for i, s := range l.p.sinks {
		names[i] = s.name
	}
	return names
}

// GetConfig returns a copy of the configuration the logger was built with
func (l *Logger) GetConfig() *Config {
	return l.p.cfg.Clone()
}

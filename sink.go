// FILE: lixenwraith/sinklog/sink.go
package sinklog

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/lixenwraith/sinklog/formatter"
	"github.com/lixenwraith/sinklog/rotate"
)

// Sink is a destination for encoded records. A sink is driven by a single
// dispatcher worker and needs no locking of its own.
type Sink interface {
	Write(p []byte) (int, error)
	Sync() error
	// Close releases the sink, waiting at most timeout for background work
	Close(timeout time.Duration) error
}

// LevelWriter is implemented by sinks that need the record severity, such as
// syslog. The dispatcher calls WriteLevel instead of Write for them.
type LevelWriter interface {
	WriteLevel(sev Severity, p []byte) (int, error)
}

// Rotator is implemented by sinks that can roll over on demand
type Rotator interface {
	Rotate() error
}

// writerSink adapts an io.Writer; Sync and Close are forwarded when the
// writer supports them
type writerSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a Sink
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

func (s *writerSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *writerSink) Sync() error {
	if syncer, ok := s.w.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

func (s *writerSink) Close(time.Duration) error {
	if closer, ok := s.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// terminalSink writes to stdout or stderr. The stream is never closed and
// sync errors (EINVAL on pipes and ttys) are ignored.
type terminalSink struct {
	w io.Writer
}

func (s *terminalSink) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *terminalSink) Sync() error                 { return nil }
func (s *terminalSink) Close(time.Duration) error   { return nil }

type nullSink struct{}

func (nullSink) Write(p []byte) (int, error) { return len(p), nil }
func (nullSink) Sync() error                 { return nil }
func (nullSink) Close(time.Duration) error   { return nil }

// fileSink writes through a rotation controller
type fileSink struct {
	ctrl *rotate.Controller
}

func (s *fileSink) Write(p []byte) (int, error)       { return s.ctrl.Write(p) }
func (s *fileSink) Sync() error                       { return s.ctrl.Sync() }
func (s *fileSink) Close(timeout time.Duration) error { return s.ctrl.Close(timeout) }
func (s *fileSink) Rotate() error                     { return s.ctrl.Rotate() }

// colorEnabled decides whether a terminal sink on f gets ANSI colors
func colorEnabled(mode string, f *os.File) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newTerminalSink returns the sink and the effective format. A color format
// is downgraded to txt when colors are not enabled.
func newTerminalSink(sc *SinkConfig) (Sink, string) {
	f := os.Stdout
	if sc.Target == TargetStderr {
		f = os.Stderr
	}

	format := sc.effectiveFormat()
	if format == formatter.FormatColor && !colorEnabled(sc.Color, f) {
		format = formatter.FormatTxt
	}

	var w io.Writer = f
	if format == formatter.FormatColor {
		// Translates ANSI sequences for legacy Windows consoles
		w = colorable.NewColorable(f)
	}
	return &terminalSink{w: w}, format
}

// newFileSink opens the rotation controller for a file or structured sink
func newFileSink(name string, sc *SinkConfig, loc *time.Location, stats *Stats, report func(Event)) (*fileSink, error) {
	compression := sc.Compression
	if compression == rotate.CompressionNone {
		compression = ""
	}
	ctrl, err := rotate.New(rotate.Options{
		Path:                sc.Path,
		MaxSize:             sc.MaxSizeBytes,
		MaxFiles:            int(sc.MaxFiles),
		Interval:            sc.RotateInterval,
		Location:            loc,
		Compression:         compression,
		CompressWorkers:     int(sc.CompressWorkers),
		IndexWidth:          int(sc.IndexWidth),
		Truncate:            sc.Truncate,
		RestrictPermissions: sc.RestrictPermissions,
		OnEvent:             rotateEventHandler(name, stats, report),
	})
	if err != nil {
		return nil, configErrorf("sink '%s': %w", name, err)
	}
	return &fileSink{ctrl: ctrl}, nil
}

// FILE: lixenwraith/sinklog/sink_syslog.go
//go:build !windows && !plan9

package sinklog

import (
	"log/syslog"
	"time"
)

// syslogSink sends each record as one syslog message. The syslog header
// carries the timestamp, ident and pid; the formatter supplies the body.
type syslogSink struct {
	w *syslog.Writer
}

// newSyslogSink connects to the local daemon, or to the unix socket at
// address when network is set
func newSyslogSink(sc *SinkConfig) (Sink, error) {
	facility, err := parseFacility(sc.Facility)
	if err != nil {
		return nil, err
	}
	priority := syslog.Priority(facility<<3) | syslog.LOG_INFO
	w, err := syslog.Dial(sc.Network, sc.Address, priority, sc.Ident)
	if err != nil {
		return nil, err
	}
	return &syslogSink{w: w}, nil
}

// WriteLevel sends p at the syslog severity matching sev
func (s *syslogSink) WriteLevel(sev Severity, p []byte) (int, error) {
	msg := string(p)
	var err error
	switch syslogSeverity(sev) {
	case 2:
		err = s.w.Crit(msg)
	case 3:
		err = s.w.Err(msg)
	case 4:
		err = s.w.Warning(msg)
	case 6:
		err = s.w.Info(msg)
	default:
		err = s.w.Debug(msg)
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Write sends p at the default info severity
func (s *syslogSink) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *syslogSink) Sync() error                 { return nil }
func (s *syslogSink) Close(time.Duration) error   { return s.w.Close() }

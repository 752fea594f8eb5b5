// FILE: lixenwraith/sinklog/sink_syslog_other.go
//go:build windows || plan9

package sinklog

import "errors"

func newSyslogSink(*SinkConfig) (Sink, error) {
	return nil, errors.New("syslog is not supported on this platform")
}

// FILE: lixenwraith/sinklog/compat/stdlog.go
package compat

import (
	"bytes"
	"log"

	"github.com/lixenwraith/sinklog"
)

// stdWriter turns each line written by a standard library logger into a
// record at a fixed severity
type stdWriter struct {
	logger *sinklog.Logger
	sev    sinklog.Severity
}

func (w *stdWriter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimRight(p, "\r\n"))
	// Printf -> output -> Write
	w.logger.LogDepth(3, w.sev, msg)
	return len(p), nil
}

// NewStdLogger returns a standard library logger whose output becomes
// sinklog records at sev. Prefix and flags are left empty; time and source
// are added by sinklog.
func NewStdLogger(logger *sinklog.Logger, sev sinklog.Severity) *log.Logger {
	return log.New(&stdWriter{logger: logger.With("component", "stdlog"), sev: sev}, "", 0)
}

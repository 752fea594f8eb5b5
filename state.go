// FILE: lixenwraith/sinklog/state.go
package sinklog

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// State encapsulates the runtime state of the logger
type State struct {
	ShutdownCalled atomic.Bool
	flushMutex     sync.Mutex // serializes Flush calls

	// Heartbeat
	heartbeatStop     chan struct{}
	heartbeatDone     chan struct{}
	HeartbeatSequence atomic.Uint64
	LoggerStartTime   time.Time
}

// Shutdown stops every sink in parallel. Each sink drains its queue until
// empty or the timeout, then closes; records left over are counted as
// dropped. Without a timeout the configured shutdown_timeout_ms is used.
// Calls after the first return nil.
func (l *Logger) Shutdown(timeout ...time.Duration) error {
	p := l.p
	if !p.state.ShutdownCalled.CompareAndSwap(false, true) {
		return nil
	}

	effectiveTimeout := time.Duration(p.cfg.ShutdownTimeoutMs) * time.Millisecond
	if len(timeout) > 0 {
		effectiveTimeout = timeout[0]
	}

	p.stopHeartbeat()
	return p.closeSinks(effectiveTimeout)
}

// closeSinks shuts down every dispatcher concurrently and combines errors
func (p *pipeline) closeSinks(timeout time.Duration) error {
	errs := make([]error, len(p.sinks))
	var wg sync.WaitGroup
	for i, s := range p.sinks {
		wg.Add(1)
		go func(i int, s *sinkEntry) {
			defer wg.Done()
			errs[i] = s.dispatcher.Shutdown(timeout)
		}(i, s)
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

// Flush writes everything queued so far on every sink, syncs them and waits
// for confirmation or timeout
func (l *Logger) Flush(timeout time.Duration) error {
	p := l.p
	p.state.flushMutex.Lock()
	defer p.state.flushMutex.Unlock()

	if p.state.ShutdownCalled.Load() {
		return fmtErrorf("logger already shut down")
	}

	errs := make([]error, len(p.sinks))
	var wg sync.WaitGroup
	for i, s := range p.sinks {
		wg.Add(1)
		go func(i int, s *sinkEntry) {
			defer wg.Done()
			errs[i] = s.dispatcher.Flush(timeout)
		}(i, s)
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

// Rotate forces a rollover on every file and structured sink. Each sink
// worker first writes the records queued before the call, then rolls over.
// Every sink waits at most the configured shutdown timeout.
func (l *Logger) Rotate() error {
	p := l.p
	if p.state.ShutdownCalled.Load() {
		return fmtErrorf("logger already shut down")
	}
	timeout := time.Duration(p.cfg.ShutdownTimeoutMs) * time.Millisecond

	var err error
	for _, s := range p.sinks {
		if s.file == nil {
			continue
		}
		err = multierr.Append(err, s.dispatcher.Rotate(timeout))
	}
	return err
}

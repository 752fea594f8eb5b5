// FILE: lixenwraith/sinklog/dispatcher.go
package sinklog

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/sinklog/formatter"
)

// OverflowPolicy decides what Submit does when the buffer is full
type OverflowPolicy string

const (
	// OverflowBlock waits up to the block timeout for space, then drops
	OverflowBlock OverflowPolicy = "block"
	// OverflowDropNewest drops the record being submitted
	OverflowDropNewest OverflowPolicy = "drop_newest"
	// OverflowDropOldest evicts the oldest queued record to make room
	OverflowDropOldest OverflowPolicy = "drop_oldest"
)

// DispatcherOptions configures a Dispatcher. Zero values take defaults.
type DispatcherOptions struct {
	Capacity      int
	Overflow      OverflowPolicy
	BlockTimeout  time.Duration
	WriteRetries  int
	FlushInterval time.Duration
	Formatter     *formatter.Formatter
	Stats         *Stats
	OnError       ErrorHandler
}

// Dispatcher feeds one sink from a bounded queue through a single worker.
// Records reach the sink in submission order. Submit is safe from any
// goroutine; the sink is only touched by the worker.
type Dispatcher struct {
	name      string
	sink      Sink
	formatter *formatter.Formatter
	entry     formatter.Entry
	opts      DispatcherOptions
	stats     *Stats
	onError   ErrorHandler

	ch        chan *Record
	flushReq  chan chan struct{}
	rotateReq chan chan error
	done     chan struct{} // closed when shutdown starts
	sealed   chan struct{} // closed once no producer can send
	exited   chan struct{} // closed when the worker returns

	sendMu          sync.RWMutex
	closed          atomic.Bool
	shutdownStarted atomic.Bool
	deadline        atomic.Int64
	closeErr        error
	seenRotations   uint64 // worker only
}

// NewDispatcher starts the worker for sink
func NewDispatcher(name string, sink Sink, opts DispatcherOptions) (*Dispatcher, error) {
	if sink == nil {
		return nil, configErrorf("sink '%s' is nil", name)
	}
	if opts.Capacity <= 0 {
		return nil, configErrorf("sink '%s': buffer capacity must be positive: %d", name, opts.Capacity)
	}
	switch opts.Overflow {
	case "":
		opts.Overflow = OverflowDropNewest
	case OverflowBlock, OverflowDropNewest, OverflowDropOldest:
	default:
		return nil, configErrorf("sink '%s': invalid overflow policy '%s'", name, opts.Overflow)
	}
	if opts.WriteRetries < 0 {
		return nil, configErrorf("sink '%s': write retries cannot be negative: %d", name, opts.WriteRetries)
	}
	if opts.BlockTimeout <= 0 {
		opts.BlockTimeout = 100 * time.Millisecond
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 100 * time.Millisecond
	}
	if opts.Formatter == nil {
		opts.Formatter = formatter.New()
	}
	if opts.Stats == nil {
		opts.Stats = &Stats{}
	}
	if opts.OnError == nil {
		opts.OnError = func(Event) {}
	}

	d := &Dispatcher{
		name:      name,
		sink:      sink,
		formatter: opts.Formatter,
		opts:      opts,
		stats:     opts.Stats,
		onError:   opts.OnError,
		ch:        make(chan *Record, opts.Capacity),
		flushReq:  make(chan chan struct{}),
		rotateReq: make(chan chan error),
		done:      make(chan struct{}),
		sealed:    make(chan struct{}),
		exited:    make(chan struct{}),
	}
	go d.run()
	return d, nil
}

// Name returns the sink name
func (d *Dispatcher) Name() string {
	return d.name
}

// Stats returns the live counters
func (d *Dispatcher) Stats() *Stats {
	return d.stats
}

// Submit enqueues rec according to the overflow policy and reports whether
// it was queued. It only blocks under OverflowBlock, for at most the block
// timeout. After Shutdown it drops and counts the record.
func (d *Dispatcher) Submit(rec *Record) bool {
	d.stats.Submitted.Add(1)

	d.sendMu.RLock()
	defer d.sendMu.RUnlock()

	if d.closed.Load() {
		d.stats.Dropped.Add(1)
		return false
	}

	switch d.opts.Overflow {
	case OverflowBlock:
		select {
		case d.ch <- rec:
			return true
		default:
		}
		timer := time.NewTimer(d.opts.BlockTimeout)
		defer timer.Stop()
		select {
		case d.ch <- rec:
			return true
		case <-timer.C:
		case <-d.done:
		}
		d.stats.Dropped.Add(1)
		return false

	case OverflowDropOldest:
		for {
			select {
			case d.ch <- rec:
				return true
			default:
			}
			select {
			case <-d.ch:
				d.stats.Dropped.Add(1)
			default:
			}
		}

	default:
		select {
		case d.ch <- rec:
			return true
		default:
			d.stats.Dropped.Add(1)
			return false
		}
	}
}

// Flush writes every record queued before the call, syncs the sink and
// waits for confirmation or timeout
func (d *Dispatcher) Flush(timeout time.Duration) error {
	if d.closed.Load() {
		return fmtErrorf("sink '%s' is shut down", d.name)
	}

	confirmChan := make(chan struct{})
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d.flushReq <- confirmChan:
	case <-d.exited:
		return fmtErrorf("sink '%s' is shut down", d.name)
	case <-timer.C:
		return fmtErrorf("timeout sending flush request to sink '%s' (%v)", d.name, timeout)
	}

	select {
	case <-confirmChan:
		return nil
	case <-timer.C:
		return fmtErrorf("timeout waiting for flush confirmation from sink '%s' (%v)", d.name, timeout)
	}
}

// Rotate asks the worker to write the records queued before the call and
// then roll the sink over, so the rollover is ordered with the sink's writes.
// It fails for sinks that do not implement Rotator.
func (d *Dispatcher) Rotate(timeout time.Duration) error {
	if _, ok := d.sink.(Rotator); !ok {
		return fmtErrorf("sink '%s' does not support rotation", d.name)
	}
	if d.closed.Load() {
		return fmtErrorf("sink '%s' is shut down", d.name)
	}

	result := make(chan error, 1)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d.rotateReq <- result:
	case <-d.exited:
		return fmtErrorf("sink '%s' is shut down", d.name)
	case <-timer.C:
		return fmtErrorf("timeout sending rotate request to sink '%s' (%v)", d.name, timeout)
	}

	select {
	case err := <-result:
		if err != nil {
			return fmtErrorf("sink '%s': %w", d.name, err)
		}
		return nil
	case <-timer.C:
		return fmtErrorf("timeout waiting for rotation of sink '%s' (%v)", d.name, timeout)
	}
}

// Shutdown stops accepting records, drains the queue until it is empty or
// timeout elapses, then closes the sink. Records still queued at the
// deadline are counted as dropped. Only the first call has any effect.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	if !d.shutdownStarted.CompareAndSwap(false, true) {
		return nil
	}

	deadline := time.Now().Add(timeout)
	d.deadline.Store(deadline.UnixNano())
	d.closed.Store(true)
	close(d.done)

	// Wait out producers already inside Submit
	d.sendMu.Lock()
	d.sendMu.Unlock()
	close(d.sealed)

	timer := time.NewTimer(time.Until(deadline) + shutdownGrace)
	defer timer.Stop()
	select {
	case <-d.exited:
		if d.closeErr != nil {
			return fmtErrorf("failed to close sink '%s': %w", d.name, d.closeErr)
		}
		return nil
	case <-timer.C:
		return fmtErrorf("sink '%s' worker did not exit within timeout (%v)", d.name, timeout)
	}
}

// run is the worker loop
func (d *Dispatcher) run() {
	defer close(d.exited)

	flushTicker := time.NewTicker(d.opts.FlushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case rec := <-d.ch:
			if d.pastDeadline() {
				d.stats.Dropped.Add(1)
				continue
			}
			d.process(rec)

		case <-flushTicker.C:
			d.syncSink()

		case confirmChan := <-d.flushReq:
			d.drainQueued()
			d.syncSink()
			close(confirmChan)

		case result := <-d.rotateReq:
			d.drainQueued()
			result <- d.safeCall(d.sink.(Rotator).Rotate)

		case <-d.sealed:
			d.finish()
			return
		}
	}
}

// pastDeadline reports whether shutdown has started and its drain deadline
// has passed
func (d *Dispatcher) pastDeadline() bool {
	return d.closed.Load() && time.Now().UnixNano() > d.deadline.Load()
}

// drainQueued processes the records queued at the time of the call
func (d *Dispatcher) drainQueued() {
	for n := len(d.ch); n > 0; n-- {
		select {
		case rec := <-d.ch:
			d.process(rec)
		default:
			return
		}
	}
}

// finish drains until empty or the deadline, then closes the sink
func (d *Dispatcher) finish() {
	deadline := time.Unix(0, d.deadline.Load())

drain:
	for time.Now().Before(deadline) {
		select {
		case rec := <-d.ch:
			d.process(rec)
		default:
			break drain
		}
	}

	for {
		select {
		case <-d.ch:
			d.stats.Dropped.Add(1)
			continue
		default:
		}
		break
	}

	d.syncSink()

	remaining := time.Until(deadline)
	if remaining < minWaitTime {
		remaining = minWaitTime
	}
	d.closeErr = d.safeCall(func() error { return d.sink.Close(remaining) })
	if d.closeErr != nil {
		d.onError(Event{Kind: EventSinkCloseError, Sink: d.name, Err: d.closeErr})
	}
}

// process encodes and writes one record, retrying failed writes with a
// bounded backoff before dropping the record
func (d *Dispatcher) process(rec *Record) {
	// a new file starts without the compact group header
	if n := d.stats.Rotations.Load(); n != d.seenRotations {
		d.seenRotations = n
		d.formatter.ResetGroup()
	}

	var data []byte
	err := d.safeCall(func() error {
		rec.toEntry(&d.entry)
		data = d.formatter.Format(&d.entry)
		return nil
	})
	d.entry.Fields = nil
	if err != nil {
		d.writeFailed(err)
		return
	}

	for attempt := 0; ; attempt++ {
		data, err = d.writeAll(rec.Severity, data)
		if err == nil {
			d.stats.Processed.Add(1)
			return
		}
		if attempt >= d.opts.WriteRetries {
			d.writeFailed(err)
			return
		}
		time.Sleep(retryBackoff(attempt))
	}
}

// writeAll writes data, continuing after partial writes. On error it
// returns the part not yet written. A LevelWriter sink receives sev.
func (d *Dispatcher) writeAll(sev Severity, data []byte) ([]byte, error) {
	lw, leveled := d.sink.(LevelWriter)
	for len(data) > 0 {
		var n int
		err := d.safeCall(func() error {
			var werr error
			if leveled {
				n, werr = lw.WriteLevel(sev, data)
			} else {
				n, werr = d.sink.Write(data)
			}
			return werr
		})
		if n > 0 && n <= len(data) {
			data = data[n:]
		}
		if err != nil {
			return data, err
		}
		if n == 0 {
			return data, io.ErrShortWrite
		}
	}
	return nil, nil
}

func (d *Dispatcher) writeFailed(err error) {
	d.stats.WriteErrors.Add(1)
	d.stats.Dropped.Add(1)
	d.onError(Event{Kind: EventWriteError, Sink: d.name, Err: err})
}

func (d *Dispatcher) syncSink() {
	if err := d.safeCall(d.sink.Sync); err != nil {
		d.stats.WriteErrors.Add(1)
		d.onError(Event{Kind: EventWriteError, Sink: d.name, Err: fmtErrorf("sync failed: %w", err)})
	}
}

// safeCall runs fn, converting a panic into an error
func (d *Dispatcher) safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmtErrorf("sink '%s' panicked: %v", d.name, fmt.Sprint(r))
		}
	}()
	return fn()
}

func retryBackoff(attempt int) time.Duration {
	backoff := minWaitTime << attempt
	if backoff <= 0 || backoff > maxRetryBackoff {
		return maxRetryBackoff
	}
	return backoff
}

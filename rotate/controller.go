// FILE: lixenwraith/sinklog/rotate/controller.go
// Package rotate owns an active log file and rolls it over by size or time,
// compressing and pruning retired generations in the background.
//
// Rotated files are named <base>.<index>[.<k>][.gz|.zst]. The index is
// zero-padded to a fixed width and resumes after the highest index found on
// disk. The active file always uses the bare base name.
package rotate

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// Rotation intervals
const (
	IntervalNone   = ""
	IntervalHourly = "hourly"
	IntervalDaily  = "daily"
)

const (
	defaultIndexWidth   = 3
	rotationRetryDelay  = time.Second
	reopenCheckInterval = time.Second
)

// Options configures a Controller
type Options struct {
	Path                string
	MaxSize             int64          // rollover when the active file reaches this size, 0 disables
	MaxFiles            int            // rotated generations kept, 0 keeps all
	Interval            string         // "", "hourly" or "daily"
	Location            *time.Location // timezone for interval boundaries
	Compression         string         // "", "none", "gzip" or "zstd"
	CompressWorkers     int
	IndexWidth          int
	Truncate            bool
	RestrictPermissions bool
	OnEvent             func(Event) // called synchronously, possibly from compressor goroutines
	Now                 func() time.Time
}

// Controller is the sole writer of the active file. Write is expected from
// a single goroutine; Rotate, Sync, Close and Size may be called from
// others and serialize on the mutex.
type Controller struct {
	opts       Options
	perm       os.FileMode
	pattern    *regexp.Regexp
	compressor *Compressor

	mu              sync.Mutex
	file            *os.File
	size            int64
	nextBoundary    time.Time
	nextIndex       int
	retryAfter      time.Time
	lastReopenCheck time.Time
	closed          bool
}

// New validates opts, opens (or creates) the active file and resumes
// numbering after any rotated generations already present
func New(opts Options) (*Controller, error) {
	if opts.Path == "" {
		return nil, fmtErrorf("path must not be empty")
	}
	if opts.MaxSize < 0 {
		return nil, fmtErrorf("max size must be non-negative: %d", opts.MaxSize)
	}
	if opts.MaxFiles < 0 {
		return nil, fmtErrorf("max files must be non-negative: %d", opts.MaxFiles)
	}
	switch opts.Interval {
	case IntervalNone, IntervalHourly, IntervalDaily:
	default:
		return nil, fmtErrorf("invalid rotation interval '%s'", opts.Interval)
	}
	switch opts.Compression {
	case "", CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return nil, fmtErrorf("invalid compression '%s'", opts.Compression)
	}
	if opts.IndexWidth <= 0 {
		opts.IndexWidth = defaultIndexWidth
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnEvent == nil {
		opts.OnEvent = func(Event) {}
	}
	opts.Path = filepath.Clean(opts.Path)

	c := &Controller{
		opts:    opts,
		perm:    0644,
		pattern: generationPattern(filepath.Base(opts.Path)),
	}
	if opts.RestrictPermissions {
		c.perm = 0600
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmtErrorf("failed to create log directory '%s': %w", filepath.Dir(opts.Path), err)
	}

	flags := os.O_APPEND | os.O_CREATE | os.O_WRONLY
	if opts.Truncate {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(opts.Path, flags, c.perm)
	if err != nil {
		return nil, fmtErrorf("failed to open log file '%s': %w", opts.Path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmtErrorf("failed to stat log file '%s': %w", opts.Path, err)
	}

	gens, err := scanGenerations(opts.Path, c.pattern)
	if err != nil {
		file.Close()
		return nil, err
	}

	if opts.Compression == CompressionGzip || opts.Compression == CompressionZstd {
		c.compressor, err = NewCompressor(opts.Compression, opts.CompressWorkers, c.perm, opts.OnEvent)
		if err != nil {
			file.Close()
			return nil, err
		}
	}

	now := opts.Now()
	c.file = file
	c.size = info.Size()
	c.nextIndex = nextIndexFrom(gens)
	c.lastReopenCheck = now

	// An existing file belongs to the period it was last written in
	start := now
	if c.size > 0 {
		start = info.ModTime()
	}
	c.nextBoundary = c.boundaryAfter(start)

	return c, nil
}

// Write appends p to the active file, rolling over first if a threshold has
// been reached. A failed rollover is reported and writing continues on the
// current file.
func (c *Controller) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	now := c.opts.Now()
	c.checkReopen(now)

	if reason := c.rolloverReason(now); reason != "" {
		_ = c.rollover(now, reason)
	}

	n, err := c.file.Write(p)
	c.size += int64(n)
	if err != nil {
		return n, fmtErrorf("failed to write log file '%s': %w", c.opts.Path, err)
	}
	return n, nil
}

// Rotate forces a rollover regardless of thresholds
func (c *Controller) Rotate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.rollover(c.opts.Now(), ReasonManual)
}

// Sync flushes the active file to stable storage
func (c *Controller) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.file == nil {
		return nil
	}
	if err := c.file.Sync(); err != nil {
		return fmtErrorf("failed to sync log file '%s': %w", c.opts.Path, err)
	}
	return nil
}

// Close closes the active file and waits up to timeout for background
// compression; see Compressor.Close. Calling Close twice is a no-op.
func (c *Controller) Close(timeout time.Duration) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	var err error
	if c.file != nil {
		err = multierr.Append(c.file.Sync(), c.file.Close())
		c.file = nil
	}
	comp := c.compressor
	c.mu.Unlock()

	if comp != nil {
		err = multierr.Append(err, comp.Close(timeout))
	}
	return err
}

// Size returns the byte count of the active file
func (c *Controller) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Path returns the active file path
func (c *Controller) Path() string {
	return c.opts.Path
}

// WaitCompression blocks until all submitted compressions have finished
func (c *Controller) WaitCompression() {
	if c.compressor != nil {
		c.compressor.Wait()
	}
}

// rolloverReason checks size first, then the time boundary. When both are
// crossed the single rollover is reported as a size rollover.
func (c *Controller) rolloverReason(now time.Time) string {
	if now.Before(c.retryAfter) {
		return ""
	}
	if c.opts.MaxSize > 0 && c.size >= c.opts.MaxSize {
		return ReasonSize
	}
	if !c.nextBoundary.IsZero() && !now.Before(c.nextBoundary) {
		if c.size == 0 {
			// Nothing to retire, just move to the current period
			c.nextBoundary = c.boundaryAfter(now)
			return ""
		}
		return ReasonTime
	}
	return ""
}

// rollover retires the active file. The new file is opened at the base path
// before the old handle is closed, and only then is the old file handed to
// the compressor and retention applied.
func (c *Controller) rollover(now time.Time, reason string) error {
	old := c.file
	// Best effort, the rename keeps whatever the kernel holds
	_ = old.Sync()

	rotated := rotatedName(c.opts.Path, c.opts.IndexWidth, c.nextIndex)
	if err := os.Rename(c.opts.Path, rotated); err != nil {
		return c.rotationFailed(now, reason, fmtErrorf("failed to rename '%s' to '%s': %w", c.opts.Path, rotated, err))
	}

	file, err := os.OpenFile(c.opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, c.perm)
	if err != nil {
		err = fmtErrorf("failed to open new log file '%s': %w", c.opts.Path, err)
		if rbErr := os.Rename(rotated, c.opts.Path); rbErr != nil {
			err = multierr.Append(err, fmtErrorf("failed to restore '%s': %w", c.opts.Path, rbErr))
		}
		return c.rotationFailed(now, reason, err)
	}

	c.file = file
	c.size = 0
	c.nextIndex++
	c.nextBoundary = c.boundaryAfter(now)
	c.retryAfter = time.Time{}

	if err := old.Close(); err != nil {
		c.opts.OnEvent(Event{Kind: EventRotationError, Path: rotated, Reason: reason, Err: err})
	}
	c.opts.OnEvent(Event{Kind: EventRotated, Path: rotated, Reason: reason})

	if c.compressor != nil {
		c.compressor.Submit(rotated)
	}
	c.prune()
	return nil
}

func (c *Controller) rotationFailed(now time.Time, reason string, err error) error {
	c.retryAfter = now.Add(rotationRetryDelay)
	c.opts.OnEvent(Event{Kind: EventRotationError, Path: c.opts.Path, Reason: reason, Err: err})
	return err
}

// prune deletes the oldest generations beyond MaxFiles. A generation still
// queued for compression is discarded through the compressor instead.
func (c *Controller) prune() {
	if c.opts.MaxFiles <= 0 {
		return
	}

	gens, err := scanGenerations(c.opts.Path, c.pattern)
	if err != nil {
		c.opts.OnEvent(Event{Kind: EventRetentionError, Path: filepath.Dir(c.opts.Path), Err: err})
		return
	}
	if len(gens) <= c.opts.MaxFiles {
		return
	}

	for _, g := range gens[:len(gens)-c.opts.MaxFiles] {
		if c.compressor != nil && c.compressor.Discard(g.stem) {
			continue
		}

		var errs error
		for _, p := range []string{g.stem, g.stem + ".gz", g.stem + ".zst"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				errs = multierr.Append(errs, err)
			}
		}
		if errs != nil {
			c.opts.OnEvent(Event{Kind: EventRetentionError, Path: g.stem, Err: errs})
			continue
		}
		c.opts.OnEvent(Event{Kind: EventPruned, Path: g.stem})
	}
}

// checkReopen replaces the active file if it was removed externally. The
// check runs at most once per reopenCheckInterval.
func (c *Controller) checkReopen(now time.Time) {
	if now.Sub(c.lastReopenCheck) < reopenCheckInterval {
		return
	}
	c.lastReopenCheck = now

	if _, err := os.Stat(c.opts.Path); err == nil || !os.IsNotExist(err) {
		return
	}

	file, err := os.OpenFile(c.opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, c.perm)
	if err != nil {
		c.opts.OnEvent(Event{Kind: EventRotationError, Path: c.opts.Path, Err: fmtErrorf("failed to reopen removed log file: %w", err)})
		return
	}
	old := c.file
	c.file = file
	c.size = 0
	old.Close()
	c.opts.OnEvent(Event{Kind: EventReopened, Path: c.opts.Path})
}

// boundaryAfter returns the start of the period following t, or zero when
// no interval is configured
func (c *Controller) boundaryAfter(t time.Time) time.Time {
	t = t.In(c.opts.Location)
	switch c.opts.Interval {
	case IntervalHourly:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, c.opts.Location)
	case IntervalDaily:
		return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, c.opts.Location)
	}
	return time.Time{}
}

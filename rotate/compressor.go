// FILE: lixenwraith/sinklog/rotate/compressor.go
package rotate

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/panjf2000/ants/v2"
)

// stopGrace bounds how long Close waits for in-flight compressions to
// notice the stop signal
const stopGrace = 100 * time.Millisecond

// errStopped is returned by an encode interrupted by Close
var errStopped = errors.New("compression stopped")

// Compressor compresses rotated files in the background on an ants pool.
// Files are processed in submission order by at most workers goroutines.
type Compressor struct {
	algo    string
	perm    os.FileMode
	workers int
	onEvent func(Event)
	pool    *ants.Pool

	mu      sync.Mutex
	queue   []string
	active  int
	pending map[string]bool // path -> discarded
	stopped int             // in-flight files interrupted by Close
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewCompressor creates a compressor for algo ("gzip" or "zstd")
func NewCompressor(algo string, workers int, perm os.FileMode, onEvent func(Event)) (*Compressor, error) {
	if Extension(algo) == "" {
		return nil, fmtErrorf("unsupported compression '%s'", algo)
	}
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmtErrorf("failed to create compression pool: %w", err)
	}
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Compressor{
		algo:    algo,
		perm:    perm,
		workers: workers,
		onEvent: onEvent,
		pool:    pool,
		pending: make(map[string]bool),
		stop:    make(chan struct{}),
	}, nil
}

// Submit queues a closed file for compression
func (c *Compressor) Submit(path string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.onEvent(Event{Kind: EventCompressionAbandoned, Path: path, Err: fmtErrorf("compressor closed")})
		return
	}
	c.pending[path] = false
	c.queue = append(c.queue, path)
	c.wg.Add(1)
	startWorker := c.active < c.workers
	if startWorker {
		c.active++
	}
	c.mu.Unlock()

	if startWorker {
		if err := c.pool.Submit(c.work); err != nil {
			// Task stays queued for the next worker or is abandoned on close
			c.mu.Lock()
			c.active--
			c.mu.Unlock()
		}
	}
}

// Discard marks a pending file as no longer wanted. The compressor removes
// the file and any output once it reaches it. Returns false if path is not
// pending.
func (c *Compressor) Discard(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[path]; !ok {
		return false
	}
	c.pending[path] = true
	return true
}

// Pending returns the number of queued or in-flight files
func (c *Compressor) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Wait blocks until every submitted file has been processed
func (c *Compressor) Wait() {
	c.wg.Wait()
}

func (c *Compressor) work() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.active--
			c.mu.Unlock()
			return
		}
		path := c.queue[0]
		c.queue = c.queue[1:]
		discarded := c.pending[path]
		c.mu.Unlock()

		c.process(path, discarded)
		c.wg.Done()
	}
}

func (c *Compressor) process(path string, discarded bool) {
	dst := path + Extension(c.algo)
	if discarded {
		c.finish(path)
		c.removeDiscarded(path)
		return
	}

	err := compressFile(path, dst, c.algo, c.perm, c.stop)
	discarded, tracked := c.finishTracked(path)
	if !tracked {
		// already reported as abandoned by Close
		return
	}
	if errors.Is(err, errStopped) {
		c.mu.Lock()
		c.stopped++
		c.mu.Unlock()
		c.onEvent(Event{Kind: EventCompressionAbandoned, Path: path, Err: fmtErrorf("shutdown deadline reached")})
		if discarded {
			c.removeDiscarded(path)
		}
		return
	}
	if err != nil {
		c.onEvent(Event{Kind: EventCompressionError, Path: path, Err: err})
		if discarded {
			c.removeDiscarded(path)
		}
		return
	}
	if discarded {
		c.removeDiscarded(dst)
		return
	}
	c.onEvent(Event{Kind: EventCompressed, Path: dst})
}

// finish drops path from the pending set and reports whether it was discarded
func (c *Compressor) finish(path string) bool {
	discarded, _ := c.finishTracked(path)
	return discarded
}

// finishTracked is finish that also reports whether path was still pending
func (c *Compressor) finishTracked(path string) (discarded, tracked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	discarded, tracked = c.pending[path]
	delete(c.pending, path)
	return discarded, tracked
}

func (c *Compressor) removeDiscarded(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.onEvent(Event{Kind: EventRetentionError, Path: path, Err: err})
		return
	}
	c.onEvent(Event{Kind: EventPruned, Path: path})
}

// Close stops accepting files and waits up to timeout for the backlog.
// At the deadline, queued files are abandoned and in-flight compressions are
// interrupted, leaving their sources in place. A compression that does not
// stop within a short grace period is reported as abandoned and left to
// finish in the background. Every abandoned file is reported.
func (c *Compressor) Close(timeout time.Duration) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		c.pool.Release()
		return nil
	case <-timer.C:
	}

	c.mu.Lock()
	abandoned := c.queue
	c.queue = nil
	for _, p := range abandoned {
		delete(c.pending, p)
	}
	c.mu.Unlock()
	close(c.stop)

	for _, p := range abandoned {
		c.onEvent(Event{Kind: EventCompressionAbandoned, Path: p, Err: fmtErrorf("shutdown deadline reached")})
		c.wg.Done()
	}
	count := len(abandoned)

	grace := time.NewTimer(stopGrace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		c.mu.Lock()
		stuck := make([]string, 0, len(c.pending))
		for p := range c.pending {
			stuck = append(stuck, p)
			delete(c.pending, p)
		}
		c.mu.Unlock()
		for _, p := range stuck {
			c.onEvent(Event{Kind: EventCompressionAbandoned, Path: p, Err: fmtErrorf("compression did not stop within %v", stopGrace)})
		}
		count += len(stuck)
	}

	c.mu.Lock()
	count += c.stopped
	c.mu.Unlock()

	c.pool.Release()
	if count > 0 {
		return fmtErrorf("compression abandoned for %d file(s)", count)
	}
	return nil
}

// CompressFile writes a compressed copy of src to dst and removes src.
// The copy is written to a temporary file, synced and renamed into place
// before src is removed; on any failure src is left untouched.
func CompressFile(src, dst, algo string, perm os.FileMode) error {
	return compressFile(src, dst, algo, perm, nil)
}

// compressFile is CompressFile that gives up with errStopped once stop is
// closed
func compressFile(src, dst, algo string, perm os.FileMode, stop <-chan struct{}) error {
	in, err := os.Open(src)
	if err != nil {
		return fmtErrorf("failed to open '%s' for compression: %w", src, err)
	}
	defer in.Close()

	tmp := dst + "." + uuid.NewString() + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmtErrorf("failed to create '%s': %w", tmp, err)
	}

	if err := encode(out, &stopReader{r: in, stop: stop}, algo); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmtErrorf("failed to compress '%s': %w", src, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmtErrorf("failed to sync '%s': %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmtErrorf("failed to close '%s': %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmtErrorf("failed to rename '%s' to '%s': %w", tmp, dst, err)
	}
	if err := syncDir(filepath.Dir(dst)); err != nil {
		return fmtErrorf("failed to sync directory of '%s': %w", dst, err)
	}

	in.Close()
	if err := os.Remove(src); err != nil {
		return fmtErrorf("compressed '%s' but failed to remove original: %w", src, err)
	}
	return nil
}

// stopReader fails reads with errStopped once stop is closed
type stopReader struct {
	r    io.Reader
	stop <-chan struct{}
}

func (s *stopReader) Read(p []byte) (int, error) {
	select {
	case <-s.stop:
		return 0, errStopped
	default:
	}
	return s.r.Read(p)
}

func encode(w io.Writer, r io.Reader, algo string) error {
	var enc io.WriteCloser
	switch algo {
	case CompressionGzip:
		gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
		if err != nil {
			return err
		}
		enc = gz
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		enc = zw
	default:
		return fmtErrorf("unsupported compression '%s'", algo)
	}

	if _, err := io.Copy(enc, r); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

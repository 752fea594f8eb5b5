// FILE: lixenwraith/sinklog/rotate/controller_test.go
package rotate

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventLog) record(ev Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *eventLog) count(kind EventKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (e *eventLog) last(kind EventKind) (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.events) - 1; i >= 0; i-- {
		if e.events[i].Kind == kind {
			return e.events[i], true
		}
	}
	return Event{}, false
}

// createTestController creates a controller writing to a fresh temp dir
func createTestController(t *testing.T, mutate func(*Options)) (*Controller, *eventLog, string) {
	t.Helper()
	dir := t.TempDir()
	events := &eventLog{}
	opts := Options{
		Path:    filepath.Join(dir, "app.log"),
		OnEvent: events.record,
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(time.Second) })
	return c, events, dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func record(i int) []byte {
	// fixed 30 byte records
	return []byte(strings.Repeat(string(rune('a'+i%26)), 29) + "\n")
}

func TestSizeRollover(t *testing.T) {
	c, events, dir := createTestController(t, func(o *Options) {
		o.MaxSize = 100
	})

	for i := 0; i < 4; i++ {
		_, err := c.Write(record(i))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(120), c.Size(), "crossing record stays in the current file")
	assert.Equal(t, 0, events.count(EventRotated))

	_, err := c.Write(record(4))
	require.NoError(t, err)

	assert.Equal(t, 1, events.count(EventRotated))
	assert.Equal(t, int64(30), c.Size(), "new file starts at the record size")
	assert.Equal(t, []string{"app.log", "app.log.001"}, listDir(t, dir))
	assert.Len(t, readFile(t, filepath.Join(dir, "app.log.001")), 120)
	assert.Equal(t, string(record(4)), readFile(t, filepath.Join(dir, "app.log")))

	ev, ok := events.last(EventRotated)
	require.True(t, ok)
	assert.Equal(t, ReasonSize, ev.Reason)
}

func TestRetentionKeepsNewest(t *testing.T) {
	c, events, dir := createTestController(t, func(o *Options) {
		o.MaxSize = 10
		o.MaxFiles = 2
	})

	for i := 0; i < 5; i++ {
		_, err := c.Write(record(i))
		require.NoError(t, err)
	}

	assert.Equal(t, 4, events.count(EventRotated))
	assert.Equal(t, 2, events.count(EventPruned))
	assert.Equal(t, []string{"app.log", "app.log.003", "app.log.004"}, listDir(t, dir))
	assert.Equal(t, string(record(2)), readFile(t, filepath.Join(dir, "app.log.003")))
	assert.Equal(t, string(record(3)), readFile(t, filepath.Join(dir, "app.log.004")))
	assert.Equal(t, string(record(4)), readFile(t, filepath.Join(dir, "app.log")))
}

func TestIndexResumesFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path+".007", []byte("old\n"), 0644))
	require.NoError(t, os.WriteFile(path+".002.gz", []byte("old\n"), 0644))
	require.NoError(t, os.WriteFile(path+".notanindex", []byte("x"), 0644))

	c, err := New(Options{Path: path, IndexWidth: 4})
	require.NoError(t, err)
	defer c.Close(time.Second)

	_, err = c.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, c.Rotate())

	assert.FileExists(t, path+".0008")
}

func TestCollisionUsesSmallestFreeSuffix(t *testing.T) {
	c, _, dir := createTestController(t, nil)

	// Appear after construction so the index scan did not see them
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log.001"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log.001.1.gz"), []byte("x"), 0644))

	_, err := c.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, c.Rotate())

	assert.Equal(t, "line\n", readFile(t, filepath.Join(dir, "app.log.001.2")))
}

func TestTimeRollover(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)}
	c, events, dir := createTestController(t, func(o *Options) {
		o.Interval = IntervalHourly
		o.Location = time.UTC
		o.Now = clock.Now
	})

	_, err := c.Write([]byte("first\n"))
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	_, err = c.Write([]byte("second\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, events.count(EventRotated))

	clock.Advance(20 * time.Minute) // 11:10
	_, err = c.Write([]byte("third\n"))
	require.NoError(t, err)

	require.Equal(t, 1, events.count(EventRotated))
	ev, _ := events.last(EventRotated)
	assert.Equal(t, ReasonTime, ev.Reason)
	assert.Equal(t, "first\nsecond\n", readFile(t, filepath.Join(dir, "app.log.001")))
	assert.Equal(t, "third\n", readFile(t, filepath.Join(dir, "app.log")))

	// Next boundary is 12:00, nothing before it
	clock.Advance(40 * time.Minute) // 11:50
	_, err = c.Write([]byte("fourth\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, events.count(EventRotated))
}

func TestTimeBoundaryOnEmptyFileDoesNotRotate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)}
	c, events, _ := createTestController(t, func(o *Options) {
		o.Interval = IntervalDaily
		o.Location = time.UTC
		o.Now = clock.Now
	})

	clock.Advance(2 * time.Hour)
	_, err := c.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, events.count(EventRotated))
}

func TestSizeWinsOverTime(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)}
	c, events, _ := createTestController(t, func(o *Options) {
		o.MaxSize = 10
		o.Interval = IntervalHourly
		o.Location = time.UTC
		o.Now = clock.Now
	})

	_, err := c.Write(record(0))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = c.Write(record(1))
	require.NoError(t, err)

	assert.Equal(t, 1, events.count(EventRotated))
	ev, _ := events.last(EventRotated)
	assert.Equal(t, ReasonSize, ev.Reason)
}

func TestRotationErrorFallsBackToCurrentFile(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	c, events, dir := createTestController(t, func(o *Options) {
		o.MaxSize = 10
		o.Now = clock.Now
	})

	_, err := c.Write(record(0))
	require.NoError(t, err)

	// Without the directory the rename fails
	require.NoError(t, os.RemoveAll(dir))

	for i := 1; i < 4; i++ {
		_, err := c.Write(record(i))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, events.count(EventRotationError), "no retry before the retry delay")
	assert.Equal(t, 0, events.count(EventRotated))
	assert.Equal(t, int64(120), c.Size(), "writes continue past the threshold")
}

func TestReopenRemovedFile(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	c, events, dir := createTestController(t, func(o *Options) {
		o.Now = clock.Now
	})
	path := filepath.Join(dir, "app.log")

	_, err := c.Write([]byte("before\n"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	clock.Advance(2 * time.Second)
	_, err = c.Write([]byte("after\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, events.count(EventReopened))
	assert.Equal(t, "after\n", readFile(t, path))
	assert.Equal(t, int64(6), c.Size())
}

func TestTruncateAndPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0644))

	c, err := New(Options{Path: path, Truncate: true, RestrictPermissions: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.Size())

	_, err = c.Write([]byte("fresh\n"))
	require.NoError(t, err)
	require.NoError(t, c.Rotate())
	require.NoError(t, c.Close(time.Second))

	assert.Equal(t, "fresh\n", readFile(t, path+".001"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "new active file uses restricted mode")
}

func TestAppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("kept\n"), 0644))

	c, err := New(Options{Path: path})
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.Size())

	_, err = c.Write([]byte("more\n"))
	require.NoError(t, err)
	require.NoError(t, c.Close(time.Second))

	assert.Equal(t, "kept\nmore\n", readFile(t, path))
}

func TestCompressionRoundTrip(t *testing.T) {
	decoders := map[string]func(io.Reader) ([]byte, error){
		CompressionGzip: func(r io.Reader) ([]byte, error) {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, err
			}
			defer zr.Close()
			return io.ReadAll(zr)
		},
		CompressionZstd: func(r io.Reader) ([]byte, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			defer zr.Close()
			return io.ReadAll(zr)
		},
	}

	for algo, decode := range decoders {
		t.Run(algo, func(t *testing.T) {
			c, events, dir := createTestController(t, func(o *Options) {
				o.Compression = algo
			})

			var expected bytes.Buffer
			for i := 0; i < 200; i++ {
				rec := record(i)
				expected.Write(rec)
				_, err := c.Write(rec)
				require.NoError(t, err)
			}
			require.NoError(t, c.Rotate())
			c.WaitCompression()

			assert.Equal(t, 1, events.count(EventCompressed))
			assert.Equal(t, []string{"app.log", "app.log.001" + Extension(algo)}, listDir(t, dir))

			f, err := os.Open(filepath.Join(dir, "app.log.001"+Extension(algo)))
			require.NoError(t, err)
			defer f.Close()

			data, err := decode(f)
			require.NoError(t, err)
			assert.Equal(t, expected.Bytes(), data)
		})
	}
}

func TestRetentionWithCompression(t *testing.T) {
	c, _, dir := createTestController(t, func(o *Options) {
		o.MaxFiles = 1
		o.Compression = CompressionGzip
	})

	for i := 0; i < 3; i++ {
		_, err := c.Write(record(i))
		require.NoError(t, err)
		require.NoError(t, c.Rotate())
	}
	require.NoError(t, c.Close(5*time.Second))

	assert.Equal(t, []string{"app.log", "app.log.003.gz"}, listDir(t, dir))
}

func TestCloseIsIdempotent(t *testing.T) {
	c, _, _ := createTestController(t, nil)

	require.NoError(t, c.Close(time.Second))
	require.NoError(t, c.Close(time.Second))

	_, err := c.Write([]byte("late\n"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Rotate(), ErrClosed)
	assert.NoError(t, c.Sync())
}

func TestOptionsValidation(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]Options{
		"empty path":      {},
		"negative size":   {Path: filepath.Join(dir, "a.log"), MaxSize: -1},
		"negative files":  {Path: filepath.Join(dir, "a.log"), MaxFiles: -1},
		"bad interval":    {Path: filepath.Join(dir, "a.log"), Interval: "weekly"},
		"bad compression": {Path: filepath.Join(dir, "a.log"), Compression: "lz4"},
		"unwritable path": {Path: filepath.Join(dir, "a.log", "nested")},
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), nil, 0644))

	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(opts)
			assert.Error(t, err)
		})
	}
}

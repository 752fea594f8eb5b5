// FILE: lixenwraith/sinklog/sink_test.go
package sinklog

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/sinklog/formatter"
)

// memSink collects output in memory. Optional hooks make writes block,
// fail or panic.
type memSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	syncs  int
	closes int

	failWrites int  // fail this many writes before succeeding
	panicWrite bool // panic on every write
	maxChunk   int  // short-write chunk size, 0 writes everything

	block   chan struct{} // writes wait for this to close
	entered chan struct{} // closed on the first blocked write
	once    sync.Once
}

func newMemSink() *memSink {
	return &memSink{}
}

// newBlockedSink returns a sink whose writes wait until release is called
func newBlockedSink() (*memSink, func()) {
	s := &memSink{block: make(chan struct{}), entered: make(chan struct{})}
	var once sync.Once
	return s, func() { once.Do(func() { close(s.block) }) }
}

func (s *memSink) Write(p []byte) (int, error) {
	if s.block != nil {
		s.once.Do(func() { close(s.entered) })
		<-s.block
	}
	if s.panicWrite {
		panic("sink exploded")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return 0, errors.New("disk on fire")
	}
	if s.maxChunk > 0 && len(p) > s.maxChunk {
		p = p[:s.maxChunk]
	}
	return s.buf.Write(p)
}

func (s *memSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
	return nil
}

func (s *memSink) Close(time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *memSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Lines returns the non-empty output lines
func (s *memSink) Lines() []string {
	out := strings.TrimRight(s.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func (s *memSink) Syncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs
}

func (s *memSink) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type syncCloseBuffer struct {
	bytes.Buffer
	synced, closed bool
}

func (b *syncCloseBuffer) Sync() error  { b.synced = true; return nil }
func (b *syncCloseBuffer) Close() error { b.closed = true; return nil }

// TestWriterSink verifies Sync and Close are forwarded when supported
func TestWriterSink(t *testing.T) {
	t.Run("plain writer", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewWriterSink(&buf)
		n, err := s.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.NoError(t, s.Sync())
		assert.NoError(t, s.Close(time.Second))
		assert.Equal(t, "hello", buf.String())
	})

	t.Run("forwarding", func(t *testing.T) {
		buf := &syncCloseBuffer{}
		s := NewWriterSink(buf)
		require.NoError(t, s.Sync())
		require.NoError(t, s.Close(time.Second))
		assert.True(t, buf.synced)
		assert.True(t, buf.closed)
	})
}

func TestNullSink(t *testing.T) {
	var s Sink = nullSink{}
	n, err := s.Write([]byte("discarded"))
	assert.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.NoError(t, s.Sync())
	assert.NoError(t, s.Close(0))
}

// TestTerminalSinkColor verifies the color mode decision and the txt downgrade
func TestTerminalSinkColor(t *testing.T) {
	assert.True(t, colorEnabled(ColorAlways, os.Stdout))
	assert.False(t, colorEnabled(ColorNever, os.Stdout))

	sc := DefaultSinkConfig(SinkTerminal)
	sc.Color = ColorNever
	sink, format := newTerminalSink(sc)
	require.NotNil(t, sink)
	assert.Equal(t, formatter.FormatTxt, format)
	assert.NoError(t, sink.Sync())
	assert.NoError(t, sink.Close(0))

	sc.Color = ColorAlways
	sc.Target = "stderr"
	_, format = newTerminalSink(sc)
	assert.Equal(t, formatter.FormatColor, format)

	sc.Format = formatter.FormatJSON
	_, format = newTerminalSink(sc)
	assert.Equal(t, formatter.FormatJSON, format)
}

// TestFileSinkOptions verifies SinkConfig maps onto the rotation controller
func TestFileSinkOptions(t *testing.T) {
	dir := t.TempDir()
	sc := DefaultSinkConfig(SinkFile)
	sc.Path = dir + "/app.log"
	sc.MaxSizeBytes = 10

	stats := &Stats{}
	fs, err := newFileSink("app", sc, time.UTC, stats, func(Event) {})
	require.NoError(t, err)

	_, err = fs.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	_, err = fs.Write([]byte("next\n"))
	require.NoError(t, err)
	require.NoError(t, fs.Close(time.Second))

	assert.Equal(t, uint64(1), stats.Rotations.Load())
	assert.FileExists(t, dir+"/app.log.001")

	sc.Compression = "brotli"
	_, err = newFileSink("bad", sc, time.UTC, stats, func(Event) {})
	assert.ErrorIs(t, err, ErrConfiguration)
}

// FILE: lixenwraith/sinklog/rotate/compressor_test.go
package rotate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressFile(t *testing.T) {
	t.Run("missing source keeps nothing behind", func(t *testing.T) {
		dir := t.TempDir()
		err := CompressFile(filepath.Join(dir, "gone"), filepath.Join(dir, "gone.gz"), CompressionGzip, 0644)
		require.Error(t, err)
		assert.Empty(t, listDir(t, dir))
	})

	t.Run("unwritable destination retains source", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "app.log.001")
		require.NoError(t, os.WriteFile(src, []byte("payload\n"), 0644))

		err := CompressFile(src, filepath.Join(dir, "missing", "app.log.001.gz"), CompressionGzip, 0644)
		require.Error(t, err)
		assert.Equal(t, "payload\n", readFile(t, src))
	})

	t.Run("stop signal keeps the source", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "app.log.001")
		require.NoError(t, os.WriteFile(src, []byte("payload\n"), 0644))

		stop := make(chan struct{})
		close(stop)
		err := compressFile(src, src+".gz", CompressionGzip, 0644, stop)
		require.ErrorIs(t, err, errStopped)
		assert.Equal(t, []string{"app.log.001"}, listDir(t, dir))
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "app.log.001")
		require.NoError(t, os.WriteFile(src, []byte("payload\n"), 0644))

		require.Error(t, CompressFile(src, src+".lz4", "lz4", 0644))
		assert.Equal(t, []string{"app.log.001"}, listDir(t, dir))
	})
}

func TestCompressor(t *testing.T) {
	t.Run("rejects unknown algorithm", func(t *testing.T) {
		_, err := NewCompressor("none", 1, 0644, nil)
		assert.Error(t, err)
	})

	t.Run("compresses in submission order", func(t *testing.T) {
		dir := t.TempDir()
		events := &eventLog{}
		comp, err := NewCompressor(CompressionZstd, 2, 0644, events.record)
		require.NoError(t, err)

		for _, name := range []string{"a.log.001", "a.log.002", "a.log.003"} {
			p := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(p, []byte(name), 0644))
			comp.Submit(p)
		}
		require.NoError(t, comp.Close(5*time.Second))

		assert.Equal(t, 3, events.count(EventCompressed))
		assert.Equal(t, 0, comp.Pending())
		assert.Equal(t, []string{"a.log.001.zst", "a.log.002.zst", "a.log.003.zst"}, listDir(t, dir))
	})

	t.Run("failed compression is reported and source kept", func(t *testing.T) {
		events := &eventLog{}
		comp, err := NewCompressor(CompressionGzip, 1, 0644, events.record)
		require.NoError(t, err)

		comp.Submit(filepath.Join(t.TempDir(), "missing.001"))
		comp.Wait()

		assert.Equal(t, 1, events.count(EventCompressionError))
		require.NoError(t, comp.Close(time.Second))
	})

	t.Run("submit after close is abandoned", func(t *testing.T) {
		events := &eventLog{}
		comp, err := NewCompressor(CompressionGzip, 1, 0644, events.record)
		require.NoError(t, err)

		require.NoError(t, comp.Close(time.Second))
		require.NoError(t, comp.Close(time.Second))

		comp.Submit("/nonexistent/file.001")
		assert.Equal(t, 1, events.count(EventCompressionAbandoned))
	})

	t.Run("discard unknown path", func(t *testing.T) {
		comp, err := NewCompressor(CompressionGzip, 1, 0644, nil)
		require.NoError(t, err)
		defer comp.Close(time.Second)

		assert.False(t, comp.Discard("/not/pending"))
	})
}

func TestEventKind(t *testing.T) {
	assert.Equal(t, "rotated", EventRotated.String())
	assert.Equal(t, "compression_abandoned", EventCompressionAbandoned.String())
	assert.True(t, EventRotationError.IsError())
	assert.True(t, EventRetentionError.IsError())
	assert.False(t, EventPruned.IsError())
	assert.False(t, EventCompressed.IsError())
}

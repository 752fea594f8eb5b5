// FILE: lixenwraith/sinklog/storage_test.go
package sinklog

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogDirUsage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	files := map[string]int{
		"app.log":         10,
		"app.log.001":     20,
		"app.log.002.gz":  5,
		"app.log.003.zst": 7,
		"other.log":       100,
		"app.logx":        100,
	}
	for name, size := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "app.log.d"), 0755))

	size, count, err := logDirUsage(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), size)
	assert.Equal(t, 4, count)

	size, count, err = logDirUsage(filepath.Join(dir, "missing", "app.log"))
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Zero(t, count)
}

func TestDiskFreeSpace(t *testing.T) {
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd":
	default:
		t.Skip("disk stats not supported on " + runtime.GOOS)
	}

	free, err := diskFreeSpace(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, free)

	_, err = diskFreeSpace(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

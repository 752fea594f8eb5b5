// FILE: lixenwraith/sinklog/storage.go
package sinklog

import (
	"os"
	"path/filepath"
	"strings"
)

// logDirUsage sums the active file at path and every rotated generation of
// it (path.<index>[.<k>][.gz|.zst]) in the same directory
func logDirUsage(path string) (int64, int, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmtErrorf("failed to read log directory '%s': %w", dir, err)
	}

	var size int64
	var count int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name != base && !strings.HasPrefix(name, base+".") {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil {
			continue
		}
		size += info.Size()
		count++
	}
	return size, count, nil
}

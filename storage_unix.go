// FILE: lixenwraith/sinklog/storage_unix.go
//go:build linux || darwin || freebsd

package sinklog

import (
	"golang.org/x/sys/unix"
)

// diskFreeSpace retrieves available disk space for the given directory
func diskFreeSpace(dir string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, fmtErrorf("failed to get disk stats for '%s': %w", dir, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

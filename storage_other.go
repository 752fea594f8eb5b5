// FILE: lixenwraith/sinklog/storage_other.go
//go:build !(linux || darwin || freebsd)

package sinklog

// diskFreeSpace is not available on this platform
func diskFreeSpace(dir string) (int64, error) {
	return 0, fmtErrorf("disk free space not supported for '%s'", dir)
}

// FILE: lixenwraith/sinklog/rotate/syncdir_other.go
//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package rotate

// syncDir is a no-op where directories cannot be opened for fsync
func syncDir(string) error {
	return nil
}

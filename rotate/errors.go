// FILE: lixenwraith/sinklog/rotate/errors.go
package rotate

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by writes after Close
var ErrClosed = errors.New("rotate: controller closed")

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	return fmt.Errorf("rotate: "+format, args...)
}

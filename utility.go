// FILE: lixenwraith/sinklog/utility.go
package sinklog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
)

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "sinklog: ") {
		format = "sinklog: " + format
	}
	return fmt.Errorf(format, args...)
}

// configErrorf creates an error that matches ErrConfiguration
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("sinklog: %w: "+format, append([]any{ErrConfiguration}, args...)...)
}

// parseKeyValue splits a "key=value" string.
func parseKeyValue(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "=", 2)
	if len(parts) != 2 {
		return "", "", configErrorf("invalid format in override string '%s', expected key=value", arg)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" {
		return "", "", configErrorf("key cannot be empty in override string '%s'", arg)
	}
	return key, value, nil
}

// internalLogf writes logger diagnostics to stderr when enabled
func internalLogf(enabled bool, format string, args ...any) {
	if !enabled {
		return
	}
	if !strings.HasPrefix(format, "sinklog: ") {
		format = "sinklog: " + format
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

// captureSource records the caller skip frames above captureSource
func captureSource(mode string, skip int) *Source {
	if mode == SourceNone || mode == "" {
		return nil
	}
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}

	switch mode {
	case SourceShortFileAndLine:
		return &Source{File: filepath.Base(file), Line: line}
	case SourceFunctionAndLine:
		name := "(unknown)"
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = functionName(fn.Name())
		}
		return &Source{Function: name, Line: line}
	default:
		return &Source{File: file, Line: line}
	}
}

// functionName shortens a fully qualified function name to pkg.Func,
// naming closures after their enclosing function
func functionName(full string) string {
	funcName := filepath.Base(full)
	parts := strings.Split(funcName, ".")
	lastPart := parts[len(parts)-1]
	if strings.HasPrefix(lastPart, "func") && len(lastPart) > 4 {
		isAnonymous := true
		for _, r := range lastPart[4:] {
			if !unicode.IsDigit(r) {
				isAnonymous = false
				break
			}
		}
		if isAnonymous {
			return fmt.Sprintf("(anonymous in %s)", strings.Join(parts[:len(parts)-1], "."))
		}
	}
	return funcName
}

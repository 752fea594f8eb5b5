// FILE: lixenwraith/sinklog/constant.go
package sinklog

import (
	"time"
)

// Sink kinds
const (
	SinkTerminal   = "terminal"
	SinkFile       = "file"
	SinkStructured = "structured"
	SinkSyslog     = "syslog"
	SinkNull       = "null"
)

// Source location modes
const (
	SourceNone                = "none"
	SourceFileAndLine         = "file_and_line"
	SourceShortFileAndLine    = "short_file_and_line"
	SourceFunctionAndLine     = "function_and_line"
	defaultSourceLocationMode = SourceNone
)

// Timezone modes
const (
	TimezoneLocal = "local"
	TimezoneUTC   = "utc"
)

// Terminal targets
const (
	TargetStdout = "stdout"
	TargetStderr = "stderr"
)

// Terminal color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Upper bound of the backoff between write retries
	maxRetryBackoff = 200 * time.Millisecond
	// Extra time Shutdown waits past the drain deadline for a worker to exit
	shutdownGrace = 50 * time.Millisecond
)

// callerSkip is the runtime.Caller depth from captureSource to the caller
// of a public logging method (captureSource -> log -> Info -> caller)
const callerSkip = 3

// badKey is used for a value that has no string key before it
const badKey = "!BADKEY"

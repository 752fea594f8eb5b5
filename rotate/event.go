// FILE: lixenwraith/sinklog/rotate/event.go
package rotate

import "fmt"

// EventKind classifies a controller or compressor event
type EventKind int

const (
	EventRotated EventKind = iota
	EventRotationError
	EventReopened
	EventCompressed
	EventCompressionError
	EventCompressionAbandoned
	EventPruned
	EventRetentionError
)

// Rotation reasons reported in Event.Reason
const (
	ReasonSize   = "size"
	ReasonTime   = "time"
	ReasonManual = "manual"
)

// Event describes something the controller did to the files it owns.
// Path is the file acted upon; Err is set for the error kinds.
type Event struct {
	Kind   EventKind
	Path   string
	Reason string
	Err    error
}

func (k EventKind) String() string {
	switch k {
	case EventRotated:
		return "rotated"
	case EventRotationError:
		return "rotation_error"
	case EventReopened:
		return "reopened"
	case EventCompressed:
		return "compressed"
	case EventCompressionError:
		return "compression_error"
	case EventCompressionAbandoned:
		return "compression_abandoned"
	case EventPruned:
		return "pruned"
	case EventRetentionError:
		return "retention_error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// IsError reports whether the event represents a failure
func (k EventKind) IsError() bool {
	switch k {
	case EventRotationError, EventCompressionError, EventCompressionAbandoned, EventRetentionError:
		return true
	}
	return false
}

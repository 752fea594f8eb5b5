// FILE: lixenwraith/sinklog/stats.go
package sinklog

import (
	"fmt"
	"sync/atomic"

	"github.com/lixenwraith/sinklog/rotate"
)

// Stats holds the failure and throughput counters of one sink
type Stats struct {
	Submitted         atomic.Uint64
	Processed         atomic.Uint64
	Dropped           atomic.Uint64
	WriteErrors       atomic.Uint64
	RotationErrors    atomic.Uint64 // includes retention failures
	CompressionErrors atomic.Uint64 // includes abandoned compressions
	Rotations         atomic.Uint64
	Compressions      atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	Submitted         uint64
	Processed         uint64
	Dropped           uint64
	WriteErrors       uint64
	RotationErrors    uint64
	CompressionErrors uint64
	Rotations         uint64
	Compressions      uint64
}

// Snapshot copies the counters
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Submitted:         s.Submitted.Load(),
		Processed:         s.Processed.Load(),
		Dropped:           s.Dropped.Load(),
		WriteErrors:       s.WriteErrors.Load(),
		RotationErrors:    s.RotationErrors.Load(),
		CompressionErrors: s.CompressionErrors.Load(),
		Rotations:         s.Rotations.Load(),
		Compressions:      s.Compressions.Load(),
	}
}

// Add returns the field-wise sum
func (s StatsSnapshot) Add(o StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		Submitted:         s.Submitted + o.Submitted,
		Processed:         s.Processed + o.Processed,
		Dropped:           s.Dropped + o.Dropped,
		WriteErrors:       s.WriteErrors + o.WriteErrors,
		RotationErrors:    s.RotationErrors + o.RotationErrors,
		CompressionErrors: s.CompressionErrors + o.CompressionErrors,
		Rotations:         s.Rotations + o.Rotations,
		Compressions:      s.Compressions + o.Compressions,
	}
}

// EventKind classifies a failure reported to an ErrorHandler
type EventKind int

const (
	EventWriteError EventKind = iota
	EventRotationError
	EventRetentionError
	EventCompressionError
	EventCompressionAbandoned
	EventSinkCloseError
)

func (k EventKind) String() string {
	switch k {
	case EventWriteError:
		return "write_error"
	case EventRotationError:
		return "rotation_error"
	case EventRetentionError:
		return "retention_error"
	case EventCompressionError:
		return "compression_error"
	case EventCompressionAbandoned:
		return "compression_abandoned"
	case EventSinkCloseError:
		return "sink_close_error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event describes an internal failure. Path is set for file events.
type Event struct {
	Kind EventKind
	Sink string
	Path string
	Err  error
}

// ErrorHandler receives failure events. It is called from sink workers and
// compression goroutines and must be safe for concurrent use and not block.
type ErrorHandler func(Event)

// rotateEventHandler maps controller events onto the sink's counters and
// forwards failures to report
func rotateEventHandler(sink string, stats *Stats, report func(Event)) func(rotate.Event) {
	return func(ev rotate.Event) {
		var kind EventKind
		switch ev.Kind {
		case rotate.EventRotated:
			stats.Rotations.Add(1)
			return
		case rotate.EventCompressed:
			stats.Compressions.Add(1)
			return
		case rotate.EventRotationError:
			stats.RotationErrors.Add(1)
			kind = EventRotationError
		case rotate.EventRetentionError:
			stats.RotationErrors.Add(1)
			kind = EventRetentionError
		case rotate.EventCompressionError:
			stats.CompressionErrors.Add(1)
			kind = EventCompressionError
		case rotate.EventCompressionAbandoned:
			stats.CompressionErrors.Add(1)
			kind = EventCompressionAbandoned
		default:
			return
		}
		report(Event{Kind: kind, Sink: sink, Path: ev.Path, Err: ev.Err})
	}
}

// FILE: lixenwraith/sinklog/heartbeat.go
package sinklog

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"
)

// Heartbeat levels
const (
	HeartbeatOff  = 0
	HeartbeatProc = 1 // logger counters
	HeartbeatDisk = 2 // + file sink sizes and free space
	HeartbeatSys  = 3 // + runtime memory and goroutines
)

// startHeartbeat runs the heartbeat ticker when enabled
func (p *pipeline) startHeartbeat() {
	if p.cfg.HeartbeatLevel <= HeartbeatOff || p.cfg.HeartbeatIntervalS <= 0 {
		return
	}
	p.state.heartbeatStop = make(chan struct{})
	p.state.heartbeatDone = make(chan struct{})

	interval := time.Duration(p.cfg.HeartbeatIntervalS) * time.Second
	go func() {
		defer close(p.state.heartbeatDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.handleHeartbeat()
			case <-p.state.heartbeatStop:
				return
			}
		}
	}()
}

func (p *pipeline) stopHeartbeat() {
	if p.state.heartbeatStop == nil {
		return
	}
	close(p.state.heartbeatStop)
	<-p.state.heartbeatDone
}

// handleHeartbeat processes a heartbeat timer tick
func (p *pipeline) handleHeartbeat() {
	heartbeatLevel := p.cfg.HeartbeatLevel

	if heartbeatLevel >= HeartbeatProc {
		p.logProcHeartbeat()
	}

	if heartbeatLevel >= HeartbeatDisk {
		p.logDiskHeartbeat()
	}

	if heartbeatLevel >= HeartbeatSys {
		p.logSysHeartbeat()
	}
}

// logProcHeartbeat logs the pipeline counters summed over all sinks
func (p *pipeline) logProcHeartbeat() {
	sequence := p.state.HeartbeatSequence.Add(1)
	uptimeHours := time.Since(p.state.LoggerStartTime).Hours()

	var total StatsSnapshot
	for _, s := range p.sinks {
		total = total.Add(s.stats.Snapshot())
	}

	p.writeHeartbeatRecord([]Field{
		F("type", "proc"),
		F("sequence", sequence),
		F("uptime_hours", fmt.Sprintf("%.2f", uptimeHours)),
		F("sinks", len(p.sinks)),
		F("processed_logs", total.Processed),
		F("dropped_logs", total.Dropped),
		F("write_errors", total.WriteErrors),
		F("rotation_errors", total.RotationErrors),
		F("compression_errors", total.CompressionErrors),
	})
}

// logDiskHeartbeat logs one record per file sink
func (p *pipeline) logDiskHeartbeat() {
	sequence := p.state.HeartbeatSequence.Load()

	for _, s := range p.sinks {
		if s.file == nil {
			continue
		}
		path := s.file.ctrl.Path()
		stats := s.stats.Snapshot()

		fields := []Field{
			F("type", "disk"),
			F("sequence", sequence),
			F("sink", s.name),
			F("current_file_size_mb", fmt.Sprintf("%.2f", float64(s.file.ctrl.Size())/(1024*1024))),
			F("rotations", stats.Rotations),
			F("compressions", stats.Compressions),
		}

		if size, count, err := logDirUsage(path); err == nil {
			fields = append(fields,
				F("total_log_size_mb", fmt.Sprintf("%.2f", float64(size)/(1024*1024))),
				F("log_file_count", count))
		} else {
			internalLogf(p.cfg.InternalErrorsToStderr, "warning - heartbeat failed to get dir usage: %v", err)
		}

		if freeSpace, err := diskFreeSpace(filepath.Dir(path)); err == nil {
			fields = append(fields, F("disk_free_mb", fmt.Sprintf("%.2f", float64(freeSpace)/(1024*1024))))
		}

		p.writeHeartbeatRecord(fields)
	}
}

// logSysHeartbeat logs system/runtime statistics heartbeat
func (p *pipeline) logSysHeartbeat() {
	sequence := p.state.HeartbeatSequence.Load()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	p.writeHeartbeatRecord([]Field{
		F("type", "sys"),
		F("sequence", sequence),
		F("alloc_mb", fmt.Sprintf("%.2f", float64(memStats.Alloc)/(1000*1000))),
		F("sys_mb", fmt.Sprintf("%.2f", float64(memStats.Sys)/(1000*1000))),
		F("num_gc", memStats.NumGC),
		F("num_goroutine", runtime.NumGoroutine()),
	})
}

// writeHeartbeatRecord sends an info record to every sink, bypassing filters
func (p *pipeline) writeHeartbeatRecord(fields []Field) {
	if p.state.ShutdownCalled.Load() {
		return
	}

	rec := &Record{
		Time:     time.Now(),
		Severity: LevelInfo,
		Message:  "heartbeat",
		Fields:   fields,
	}
	for _, s := range p.sinks {
		s.dispatcher.Submit(rec)
	}
}

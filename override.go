// FILE: lixenwraith/sinklog/override.go
package sinklog

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyOverride applies "key=value" overrides to the configuration. Sink
// settings use "sinks.<name>.key=value"; naming an unknown sink creates it
// with the defaults. List values (overrides) are separated by ';'.
// Either every override applies or the configuration is left unchanged.
//
// Example:
//
//	cfg := sinklog.DefaultConfig()
//	err := cfg.ApplyOverride(
//	    "level=debug",
//	    "sinks.app.kind=file",
//	    "sinks.app.path=/var/log/app.log",
//	    "sinks.app.overrides=trace:db_.*;error:noisy",
//	)
func (c *Config) ApplyOverride(overrides ...string) error {
	cfg := c.Clone()

	var errors []error

	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errors = append(errors, err)
			continue
		}

		if strings.HasPrefix(key, "sinks.") {
			err = applySinkOverride(cfg, key, value)
		} else {
			err = applyConfigField(cfg, key, value)
		}
		if err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return combineConfigErrors(errors)
	}

	*c = *cfg
	return nil
}

// combineConfigErrors combines multiple configuration errors into a single error.
func combineConfigErrors(errors []error) error {
	if len(errors) == 0 {
		return nil
	}
	if len(errors) == 1 {
		return errors[0]
	}

	var sb strings.Builder
	sb.WriteString("multiple configuration errors:")
	for i, err := range errors {
		errMsg := strings.TrimPrefix(err.Error(), "sinklog: ")
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, errMsg))
	}
	return configErrorf("%s", sb.String())
}

// applySinkOverride routes "sinks.<name>.key" to the named sink
func applySinkOverride(cfg *Config, key, value string) error {
	rest := strings.TrimPrefix(key, "sinks.")
	name, field, ok := strings.Cut(rest, ".")
	if !ok || name == "" || field == "" {
		return configErrorf("invalid sink key '%s', expected sinks.<name>.<key>", key)
	}

	sc, exists := cfg.Sinks[name]
	if !exists || sc == nil {
		sc = DefaultSinkConfig("")
		cfg.Sinks[name] = sc
	}
	if err := applySinkField(sc, field, value); err != nil {
		return configErrorf("sink '%s': %w", name, err)
	}
	return nil
}

// applyConfigField applies a single key-value override to a Config.
func applyConfigField(cfg *Config, key, value string) error {
	switch key {
	case "level":
		if _, err := ParseSeverity(value); err != nil {
			return configErrorf("invalid level value '%s': %w", value, err)
		}
		cfg.Level = value
	case "overrides":
		cfg.Overrides = splitList(value)
	case "source_location":
		cfg.SourceLocation = value
	case "shutdown_timeout_ms":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return configErrorf("invalid integer value for shutdown_timeout_ms '%s': %w", value, err)
		}
		cfg.ShutdownTimeoutMs = intVal

	// Heartbeat configuration
	case "heartbeat_level":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return configErrorf("invalid integer value for heartbeat_level '%s': %w", value, err)
		}
		cfg.HeartbeatLevel = intVal
	case "heartbeat_interval_s":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return configErrorf("invalid integer value for heartbeat_interval_s '%s': %w", value, err)
		}
		cfg.HeartbeatIntervalS = intVal

	// Internal error handling
	case "internal_errors_to_stderr":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return configErrorf("invalid boolean value for internal_errors_to_stderr '%s': %w", value, err)
		}
		cfg.InternalErrorsToStderr = boolVal

	default:
		return configErrorf("unknown configuration key '%s'", key)
	}

	return nil
}

// applySinkField applies a single key-value override to a SinkConfig.
func applySinkField(sc *SinkConfig, key, value string) error {
	switch key {
	case "kind":
		sc.Kind = value
	case "path":
		sc.Path = value
	case "target":
		sc.Target = value

	// Syslog
	case "facility":
		sc.Facility = value
	case "ident":
		sc.Ident = value
	case "network":
		sc.Network = value
	case "address":
		sc.Address = value

	// Filtering
	case "level":
		if _, err := ParseSeverity(value); err != nil {
			return fmt.Errorf("invalid level value '%s': %w", value, err)
		}
		sc.Level = value
	case "overrides":
		sc.Overrides = splitList(value)

	// Formatting
	case "format":
		sc.Format = value
	case "color":
		sc.Color = value
	case "timezone":
		sc.Timezone = value
	case "timestamp_format":
		sc.TimestampFormat = value
	case "show_timestamp":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for show_timestamp '%s': %w", value, err)
		}
		sc.ShowTimestamp = boolVal
	case "show_level":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for show_level '%s': %w", value, err)
		}
		sc.ShowLevel = boolVal
	case "process_id":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for process_id '%s': %w", value, err)
		}
		sc.ProcessID = boolVal

	// Dispatch
	case "buffer_size":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for buffer_size '%s': %w", value, err)
		}
		sc.BufferSize = intVal
	case "overflow":
		sc.Overflow = value
	case "block_timeout_ms":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for block_timeout_ms '%s': %w", value, err)
		}
		sc.BlockTimeoutMs = intVal
	case "write_retries":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for write_retries '%s': %w", value, err)
		}
		sc.WriteRetries = intVal
	case "flush_interval_ms":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for flush_interval_ms '%s': %w", value, err)
		}
		sc.FlushIntervalMs = intVal

	// Rotation
	case "max_size_bytes":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for max_size_bytes '%s': %w", value, err)
		}
		sc.MaxSizeBytes = intVal
	case "max_files":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for max_files '%s': %w", value, err)
		}
		sc.MaxFiles = intVal
	case "rotate_interval":
		sc.RotateInterval = value
	case "compression":
		sc.Compression = value
	case "compress_workers":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for compress_workers '%s': %w", value, err)
		}
		sc.CompressWorkers = intVal
	case "index_width":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for index_width '%s': %w", value, err)
		}
		sc.IndexWidth = intVal
	case "truncate":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for truncate '%s': %w", value, err)
		}
		sc.Truncate = boolVal
	case "restrict_permissions":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for restrict_permissions '%s': %w", value, err)
		}
		sc.RestrictPermissions = boolVal

	default:
		return fmt.Errorf("unknown sink configuration key '%s'", key)
	}

	return nil
}

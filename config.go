// FILE: lixenwraith/sinklog/config.go
package sinklog

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/lixenwraith/config"

	"github.com/lixenwraith/sinklog/formatter"
	"github.com/lixenwraith/sinklog/rotate"
)

// ErrConfiguration is wrapped by every construction-time failure
var ErrConfiguration = errors.New("invalid configuration")

// Config holds the logger-wide settings and the named sinks
type Config struct {
	Settings

	// Sinks by name, loaded from log.sinks.<name>.
	Sinks map[string]*SinkConfig
}

// Settings is the [log] table
type Settings struct {
	// Filtering
	Level     string   `toml:"level"`
	Overrides []string `toml:"overrides"` // "level:key_pattern", last match wins

	// Source capture: none, file_and_line, short_file_and_line, function_and_line
	SourceLocation string `toml:"source_location"`

	// Lifecycle
	ShutdownTimeoutMs int64 `toml:"shutdown_timeout_ms"`

	// Heartbeat configuration
	HeartbeatLevel     int64 `toml:"heartbeat_level"`      // 0=disabled, 1=proc only, 2=proc+disk, 3=proc+disk+sys
	HeartbeatIntervalS int64 `toml:"heartbeat_interval_s"` // Interval seconds for heartbeat

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"`
}

// SinkConfig configures one sink and its dispatcher
type SinkConfig struct {
	Kind   string `toml:"kind"`   // terminal, file, structured, syslog, null
	Path   string `toml:"path"`   // file and structured sinks
	Target string `toml:"target"` // terminal sinks: stdout or stderr

	// Syslog sinks. An empty network uses the local daemon; otherwise
	// network is unix or unixgram and address a socket path.
	Facility string `toml:"facility"`
	Ident    string `toml:"ident"` // empty uses the program name
	Network  string `toml:"network"`
	Address  string `toml:"address"`

	// Per-sink filter; replaces the global one for this sink
	Level     string   `toml:"level"`
	Overrides []string `toml:"overrides"`

	// Formatting
	Format          string `toml:"format"` // txt, compact, color, json; empty picks the kind default
	Color           string `toml:"color"`  // auto, always, never
	Timezone        string `toml:"timezone"`
	TimestampFormat string `toml:"timestamp_format"`
	ShowTimestamp   bool   `toml:"show_timestamp"`
	ShowLevel       bool   `toml:"show_level"`
	ProcessID       bool   `toml:"process_id"` // add a pid field to every line

	// Dispatch
	BufferSize      int64  `toml:"buffer_size"`
	Overflow        string `toml:"overflow"` // block, drop_newest, drop_oldest
	BlockTimeoutMs  int64  `toml:"block_timeout_ms"`
	WriteRetries    int64  `toml:"write_retries"`
	FlushIntervalMs int64  `toml:"flush_interval_ms"`

	// Rotation
	MaxSizeBytes        int64  `toml:"max_size_bytes"` // 0 disables size rotation
	MaxFiles            int64  `toml:"max_files"`      // 0 keeps every generation
	RotateInterval      string `toml:"rotate_interval"`
	Compression         string `toml:"compression"` // none, gzip, zstd
	CompressWorkers     int64  `toml:"compress_workers"`
	IndexWidth          int64  `toml:"index_width"`
	Truncate            bool   `toml:"truncate"`
	RestrictPermissions bool   `toml:"restrict_permissions"`
}

// defaultConfig is the single source for the logger-wide defaults
var defaultConfig = Settings{
	Level:                  "info",
	SourceLocation:         defaultSourceLocationMode,
	ShutdownTimeoutMs:      2000,
	HeartbeatLevel:         0,
	HeartbeatIntervalS:     60,
	InternalErrorsToStderr: false,
}

// defaultSinkConfig is the single source for the per-sink defaults
var defaultSinkConfig = SinkConfig{
	Target:          TargetStdout,
	Facility:        "user",
	Color:           ColorAuto,
	Timezone:        TimezoneLocal,
	TimestampFormat: time.RFC3339Nano,
	ShowTimestamp:   true,
	ShowLevel:       true,

	BufferSize:      1024,
	Overflow:        string(OverflowDropNewest),
	BlockTimeoutMs:  100,
	WriteRetries:    2,
	FlushIntervalMs: 100,

	MaxSizeBytes:    0,
	MaxFiles:        8,
	Compression:     rotate.CompressionNone,
	CompressWorkers: 1,
	IndexWidth:      3,
}

// DefaultConfig returns the defaults with no sinks
func DefaultConfig() *Config {
	return &Config{
		Settings: defaultConfig,
		Sinks:    make(map[string]*SinkConfig),
	}
}

// DefaultSinkConfig returns the sink defaults for kind
func DefaultSinkConfig(kind string) *SinkConfig {
	copiedConfig := defaultSinkConfig
	copiedConfig.Kind = kind
	return &copiedConfig
}

// effectiveFormat returns the configured format or the kind default
func (sc *SinkConfig) effectiveFormat() string {
	if sc.Format != "" {
		return sc.Format
	}
	switch sc.Kind {
	case SinkTerminal:
		return formatter.FormatColor
	case SinkStructured:
		return formatter.FormatJSON
	default:
		return formatter.FormatTxt
	}
}

// location resolves the sink timezone
func (sc *SinkConfig) location() *time.Location {
	if sc.Timezone == TimezoneUTC {
		return time.UTC
	}
	return time.Local
}

// NewConfigFromFile loads the [log] table of a TOML file. Each named sink is
// read from [log.sinks.<name>] on top of the sink defaults and must set its
// kind. A missing file yields the defaults, which still fail validation when
// sinkNames is empty.
func NewConfigFromFile(path string, sinkNames ...string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()

	if err := loader.RegisterStruct("log.", cfg.Settings); err != nil {
		return nil, fmtErrorf("failed to register config struct: %w", err)
	}
	for _, name := range sinkNames {
		if err := loader.RegisterStruct(sinkPrefix(name), *DefaultSinkConfig("")); err != nil {
			return nil, fmtErrorf("failed to register sink '%s': %w", name, err)
		}
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmtErrorf("failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "log.", &cfg.Settings); err != nil {
		return nil, fmtErrorf("failed to extract config values: %w", err)
	}
	for _, name := range sinkNames {
		sc := DefaultSinkConfig("")
		if err := extractConfig(loader, sinkPrefix(name), sc); err != nil {
			return nil, fmtErrorf("failed to extract sink '%s': %w", name, err)
		}
		cfg.Sinks[name] = sc
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sinkPrefix(name string) string {
	return "log.sinks." + name + "."
}

// extractConfig copies values found under prefix into the tagged fields of
// the struct pointed to by target
func extractConfig(loader *config.Config, prefix string, target any) error {
	v := reflect.ValueOf(target).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue
		}

		if err := setFieldValue(fieldValue, val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		case float64:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %v", field.Type())
		}
		var list []string
		switch v := value.(type) {
		case []string:
			list = append(list, v...)
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("expected string list element, got %T", item)
				}
				list = append(list, s)
			}
		case string:
			list = splitList(v)
		default:
			return fmt.Errorf("expected string list, got %T", value)
		}
		field.Set(reflect.ValueOf(list))

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// splitList splits a ';' separated override value
func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ";") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if _, err := ParseSeverity(c.Level); err != nil {
		return configErrorf("level: %w", err)
	}
	if _, err := c.filter(); err != nil {
		return err
	}

	switch c.SourceLocation {
	case SourceNone, SourceFileAndLine, SourceShortFileAndLine, SourceFunctionAndLine:
	default:
		return configErrorf("invalid source_location: '%s' (use none, file_and_line, short_file_and_line, or function_and_line)", c.SourceLocation)
	}

	if c.ShutdownTimeoutMs <= 0 {
		return configErrorf("shutdown_timeout_ms must be positive: %d", c.ShutdownTimeoutMs)
	}

	if c.HeartbeatLevel < 0 || c.HeartbeatLevel > 3 {
		return configErrorf("heartbeat_level must be between 0 and 3: %d", c.HeartbeatLevel)
	}
	if c.HeartbeatLevel > 0 && c.HeartbeatIntervalS <= 0 {
		return configErrorf("heartbeat_interval_s must be positive when heartbeat is enabled: %d",
			c.HeartbeatIntervalS)
	}

	if len(c.Sinks) == 0 {
		return configErrorf("at least one sink is required")
	}
	for _, name := range c.sinkNames() {
		sc := c.Sinks[name]
		if sc == nil {
			return configErrorf("sink '%s' has no configuration", name)
		}
		if err := sc.validate(&c.Settings); err != nil {
			return configErrorf("sink '%s': %w", name, err)
		}
	}
	return nil
}

// validate checks one sink against the global settings its filter inherits
func (sc *SinkConfig) validate(global *Settings) error {
	switch sc.Kind {
	case SinkTerminal:
		if sc.Target != TargetStdout && sc.Target != TargetStderr {
			return fmt.Errorf("invalid target: '%s' (use stdout or stderr)", sc.Target)
		}
	case SinkFile, SinkStructured:
		if strings.TrimSpace(sc.Path) == "" {
			return fmt.Errorf("path cannot be empty for a %s sink", sc.Kind)
		}
	case SinkSyslog:
		if _, err := parseFacility(sc.Facility); err != nil {
			return err
		}
		switch sc.Network {
		case "":
		case "unix", "unixgram":
			if strings.TrimSpace(sc.Address) == "" {
				return fmt.Errorf("address cannot be empty for network '%s'", sc.Network)
			}
		default:
			return fmt.Errorf("invalid network: '%s' (use unix, unixgram, or empty for the local daemon)", sc.Network)
		}
		switch sc.effectiveFormat() {
		case formatter.FormatTxt, formatter.FormatJSON:
		default:
			return fmt.Errorf("invalid format for a syslog sink: '%s' (use txt or json)", sc.Format)
		}
	case SinkNull:
	default:
		return fmt.Errorf("unknown kind: '%s' (use terminal, file, structured, syslog, or null)", sc.Kind)
	}

	if _, err := sc.filter(global); err != nil {
		return err
	}

	if !formatter.ValidFormat(sc.effectiveFormat()) {
		return fmt.Errorf("invalid format: '%s' (use txt, compact, color, or json)", sc.Format)
	}
	switch sc.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color: '%s' (use auto, always, or never)", sc.Color)
	}
	if sc.Timezone != TimezoneLocal && sc.Timezone != TimezoneUTC {
		return fmt.Errorf("invalid timezone: '%s' (use local or utc)", sc.Timezone)
	}
	if strings.TrimSpace(sc.TimestampFormat) == "" {
		return fmt.Errorf("timestamp_format cannot be empty")
	}

	if sc.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive: %d", sc.BufferSize)
	}
	switch OverflowPolicy(sc.Overflow) {
	case OverflowBlock, OverflowDropNewest, OverflowDropOldest:
	default:
		return fmt.Errorf("invalid overflow: '%s' (use block, drop_newest, or drop_oldest)", sc.Overflow)
	}
	if sc.BlockTimeoutMs <= 0 || sc.FlushIntervalMs <= 0 {
		return fmt.Errorf("interval settings must be positive")
	}
	if sc.WriteRetries < 0 {
		return fmt.Errorf("write_retries cannot be negative: %d", sc.WriteRetries)
	}

	if sc.MaxSizeBytes < 0 || sc.MaxFiles < 0 {
		return fmt.Errorf("rotation limits cannot be negative")
	}
	switch sc.RotateInterval {
	case "", rotate.IntervalHourly, rotate.IntervalDaily:
	default:
		return fmt.Errorf("invalid rotate_interval: '%s' (use hourly or daily)", sc.RotateInterval)
	}
	switch sc.Compression {
	case "", rotate.CompressionNone, rotate.CompressionGzip, rotate.CompressionZstd:
	default:
		return fmt.Errorf("invalid compression: '%s' (use none, gzip, or zstd)", sc.Compression)
	}
	if sc.CompressWorkers < 0 {
		return fmt.Errorf("compress_workers cannot be negative: %d", sc.CompressWorkers)
	}
	if sc.IndexWidth < 0 || sc.IndexWidth > 20 {
		return fmt.Errorf("index_width must be between 0 and 20: %d", sc.IndexWidth)
	}
	return nil
}

// filter builds the global filter
func (c *Config) filter() (*Filter, error) {
	min, err := ParseSeverity(c.Level)
	if err != nil {
		return nil, configErrorf("level: %w", err)
	}
	overrides, err := ParseOverrides(c.Overrides)
	if err != nil {
		return nil, err
	}
	return NewFilter(min, overrides...)
}

// filter builds the per-sink filter, or nil when the sink sets neither a
// level nor overrides and the global filter applies. A sink filter replaces
// the global one: its minimum falls back to the global level and its
// overrides are appended after the global overrides.
func (sc *SinkConfig) filter(global *Settings) (*Filter, error) {
	if sc.Level == "" && len(sc.Overrides) == 0 {
		return nil, nil
	}
	levelStr := sc.Level
	if levelStr == "" {
		levelStr = global.Level
	}
	min, err := ParseSeverity(levelStr)
	if err != nil {
		return nil, configErrorf("level: %w", err)
	}
	overrides, err := ParseOverrides(append(append([]string(nil), global.Overrides...), sc.Overrides...))
	if err != nil {
		return nil, err
	}
	return NewFilter(min, overrides...)
}

// sinkNames returns the sink names in sorted order
func (c *Config) sinkNames() []string {
	names := make([]string, 0, len(c.Sinks))
	for name := range c.Sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	copiedConfig.Overrides = append([]string(nil), c.Overrides...)
	copiedConfig.Sinks = make(map[string]*SinkConfig, len(c.Sinks))
	for name, sc := range c.Sinks {
		if sc == nil {
			continue
		}
		copiedSink := *sc
		copiedSink.Overrides = append([]string(nil), sc.Overrides...)
		copiedConfig.Sinks[name] = &copiedSink
	}
	return &copiedConfig
}

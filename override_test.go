// FILE: lixenwraith/sinklog/override_test.go
package sinklog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverride(t *testing.T) {
	tests := []struct {
		name      string
		overrides []string
		verify    func(t *testing.T, cfg *Config)
		wantError bool
	}{
		{
			name:      "global settings",
			overrides: []string{"level=debug", "source_location=function_and_line", "shutdown_timeout_ms=750", "internal_errors_to_stderr=true"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Level)
				assert.Equal(t, SourceFunctionAndLine, cfg.SourceLocation)
				assert.Equal(t, int64(750), cfg.ShutdownTimeoutMs)
				assert.True(t, cfg.InternalErrorsToStderr)
			},
		},
		{
			name:      "override list",
			overrides: []string{"overrides=trace:db_.*; error:noisy"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"trace:db_.*", "error:noisy"}, cfg.Overrides)
			},
		},
		{
			name: "new sink",
			overrides: []string{
				"sinks.app.kind=file",
				"sinks.app.path=/var/log/app.log",
				"sinks.app.max_size_bytes=4096",
				"sinks.app.max_files=3",
				"sinks.app.compression=zstd",
				"sinks.app.overflow=drop_oldest",
				"sinks.app.truncate=true",
				"sinks.app.restrict_permissions=true",
			},
			verify: func(t *testing.T, cfg *Config) {
				sc := cfg.Sinks["app"]
				require.NotNil(t, sc)
				assert.Equal(t, SinkFile, sc.Kind)
				assert.Equal(t, "/var/log/app.log", sc.Path)
				assert.Equal(t, int64(4096), sc.MaxSizeBytes)
				assert.Equal(t, int64(3), sc.MaxFiles)
				assert.Equal(t, "zstd", sc.Compression)
				assert.Equal(t, "drop_oldest", sc.Overflow)
				assert.True(t, sc.Truncate)
				assert.True(t, sc.RestrictPermissions)
				assert.Equal(t, int64(1024), sc.BufferSize, "defaults fill the rest")
			},
		},
		{
			name:      "timestamp format with equals sign",
			overrides: []string{"sinks.out.timestamp_format=15:04:05=x"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "15:04:05=x", cfg.Sinks["out"].TimestampFormat)
			},
		},
		{name: "unknown key", overrides: []string{"colour=red"}, wantError: true},
		{name: "unknown sink key", overrides: []string{"sinks.app.colour=red"}, wantError: true},
		{name: "bad level", overrides: []string{"level=loud"}, wantError: true},
		{name: "bad integer", overrides: []string{"sinks.app.buffer_size=big"}, wantError: true},
		{name: "bad bool", overrides: []string{"sinks.app.truncate=maybe"}, wantError: true},
		{name: "bad sink key", overrides: []string{"sinks.app=file"}, wantError: true},
		{name: "missing value", overrides: []string{"level"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.ApplyOverride(tt.overrides...)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

// TestApplyOverrideAtomic verifies a failing batch leaves the config untouched
func TestApplyOverrideAtomic(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyOverride("level=error", "sinks.app.kind=file", "bogus=1")
	require.Error(t, err)

	assert.Equal(t, "info", cfg.Level)
	assert.Empty(t, cfg.Sinks)
}

// TestCombineConfigErrors verifies every failure is reported
func TestCombineConfigErrors(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyOverride("bogus=1", "level=loud", "sinks.a.buffer_size=x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	msg := err.Error()
	assert.Contains(t, msg, "multiple configuration errors")
	assert.Contains(t, msg, "1. ")
	assert.Contains(t, msg, "3. ")
	assert.Equal(t, 3, strings.Count(msg, "\n  "), msg)

	assert.Nil(t, combineConfigErrors(nil))
}

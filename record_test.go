// FILE: lixenwraith/sinklog/record_test.go
package sinklog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lixenwraith/sinklog/formatter"
)

func TestAppendArgs(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want []Field
	}{
		{"empty", nil, nil},
		{"pairs", []any{"a", 1, "b", "two"}, []Field{F("a", 1), F("b", "two")}},
		{"field values", []any{F("x", true), "y", 2}, []Field{F("x", true), F("y", 2)}},
		{"dangling key", []any{"a", 1, "orphan"}, []Field{F("a", 1), F(badKey, "orphan")}},
		{"value without key", []any{42, "k", "v"}, []Field{F(badKey, 42), F("k", "v")}},
		{"duplicates kept", []any{"k", 1, "k", 2}, []Field{F("k", 1), F("k", 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, appendArgs(nil, tt.args))
		})
	}
}

func TestSourceString(t *testing.T) {
	var nilSource *Source
	assert.Equal(t, "", nilSource.String())
	assert.Equal(t, "main.go:12", (&Source{File: "main.go", Line: 12}).String())
	assert.Equal(t, "pkg.Run:7", (&Source{File: "/src/pkg/run.go", Line: 7, Function: "pkg.Run"}).String())
}

func TestRecordToEntry(t *testing.T) {
	now := time.Now()
	r := &Record{
		Time:     now,
		Severity: LevelWarn,
		Message:  "disk almost full",
		Fields:   []Field{F("free_mb", 12)},
		Source:   &Source{File: "disk.go", Line: 3},
	}

	var e formatter.Entry
	r.toEntry(&e)
	assert.Equal(t, now, e.Time)
	assert.Equal(t, int64(4), e.Level)
	assert.Equal(t, "disk almost full", e.Message)
	assert.Equal(t, r.Fields, e.Fields)
	assert.Equal(t, "disk.go:3", e.Source)
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{" info ", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{"error", LevelError},
		{"crit", LevelCritical},
		{"critical", LevelCritical},
		{"2", Severity(2)},
		{"-8", LevelTrace},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSeverity("verbose")
	assert.Error(t, err)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "TRACE", LevelTrace.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "CRIT", LevelCritical.String())
	assert.True(t, LevelDebug < LevelInfo && LevelError < LevelCritical)
}

// FILE: lixenwraith/sinklog/formatter/formatter.go
// Package formatter encodes log entries into txt, compact, color or json
// lines.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/lixenwraith/sinklog/sanitizer"
)

// Output formats
const (
	FormatTxt     = "txt"
	FormatCompact = "compact"
	FormatColor   = "color"
	FormatJSON    = "json"
)

// ANSI sequences used by the color format
const (
	colorReset = "\x1b[0m"
)

// Field is a single key/value pair attached to an entry
type Field struct {
	Key   string
	Value any
}

// Entry is the formatter's view of a record
type Entry struct {
	Time    time.Time
	Level   int64
	Message string
	Fields  []Field
	Source  string
	// Context is the number of leading Fields inherited from the logger.
	// The compact format prints them once as a group header.
	Context int
}

// spewConfig renders values the formatter has no native encoding for
var spewConfig = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Formatter manages the buffered writing and formatting of log entries.
// It reuses one buffer and is not safe for concurrent use.
type Formatter struct {
	txtSanitizer    *sanitizer.Sanitizer
	format          string
	timestampFormat string
	location        *time.Location
	showTimestamp   bool
	showLevel       bool
	pid             int
	header          []byte // last compact group header
	buf             []byte
}

// New creates a txt formatter with local time and RFC3339Nano timestamps
func New() *Formatter {
	return &Formatter{
		txtSanitizer:    sanitizer.New().Policy(sanitizer.PolicyTxt),
		format:          FormatTxt,
		timestampFormat: time.RFC3339Nano,
		location:        time.Local,
		showTimestamp:   true,
		showLevel:       true,
		buf:             make([]byte, 0, 1024),
	}
}

// ValidFormat reports whether format names a supported output format
func ValidFormat(format string) bool {
	switch format {
	case FormatTxt, FormatCompact, FormatColor, FormatJSON:
		return true
	}
	return false
}

// Type sets the output format (txt, compact, color or json)
func (f *Formatter) Type(format string) *Formatter {
	f.format = format
	return f
}

// TimestampFormat sets the timestamp layout
func (f *Formatter) TimestampFormat(format string) *Formatter {
	if format != "" {
		f.timestampFormat = format
	}
	return f
}

// Location sets the timezone timestamps are rendered in
func (f *Formatter) Location(loc *time.Location) *Formatter {
	if loc != nil {
		f.location = loc
	}
	return f
}

// ShowLevel sets whether to include level in output
func (f *Formatter) ShowLevel(show bool) *Formatter {
	f.showLevel = show
	return f
}

// ShowTimestamp sets whether to include timestamp in output
func (f *Formatter) ShowTimestamp(show bool) *Formatter {
	f.showTimestamp = show
	return f
}

// ProcessID adds a pid field to every line when pid is positive
func (f *Formatter) ProcessID(pid int) *Formatter {
	f.pid = pid
	return f
}

// Reset clears the formatter buffer for reuse
func (f *Formatter) Reset() {
	f.buf = f.buf[:0]
}

// Format encodes e as one newline-terminated line. The returned slice is
// owned by the formatter and valid until the next call.
func (f *Formatter) Format(e *Entry) []byte {
	f.Reset()
	switch f.format {
	case FormatJSON:
		f.formatJSON(e)
	case FormatCompact:
		f.formatCompact(e)
	case FormatColor:
		f.formatTxt(e, e.Fields, true)
	default:
		f.formatTxt(e, e.Fields, false)
	}
	return f.buf
}

// ResetGroup forgets the last compact header so the next record repeats it.
// Call it when the output restarts, such as after a file rollover.
func (f *Formatter) ResetGroup() {
	f.header = f.header[:0]
}

// LevelToString converts integer level values to string
func LevelToString(level int64) string {
	switch level {
	case -8:
		return "TRACE"
	case -4:
		return "DEBUG"
	case 0:
		return "INFO"
	case 4:
		return "WARN"
	case 8:
		return "ERROR"
	case 12:
		return "CRIT"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}

func levelColor(level int64) string {
	switch {
	case level < -4:
		return "\x1b[90m"
	case level < 0:
		return "\x1b[36m"
	case level < 4:
		return "\x1b[32m"
	case level < 8:
		return "\x1b[33m"
	case level < 12:
		return "\x1b[31m"
	default:
		return "\x1b[1;31m"
	}
}

// formatCompact writes the context fields as a header line whenever they
// differ from the previous record's, then the record indented below it
// without those fields
func (f *Formatter) formatCompact(e *Entry) {
	ctx := e.Context
	if ctx < 0 || ctx > len(e.Fields) {
		ctx = 0
	}

	f.appendTxtFields(e.Fields[:ctx], false)
	switch {
	case bytes.Equal(f.buf, f.header):
		f.buf = f.buf[:0]
	case len(f.buf) == 0:
		f.header = f.header[:0]
	default:
		f.header = append(f.header[:0], f.buf...)
		f.buf = append(f.buf, '\n')
	}

	if len(f.header) > 0 {
		f.buf = append(f.buf, ' ')
	}
	f.formatTxt(e, e.Fields[ctx:], false)
}

// formatTxt handles txt and color output
func (f *Formatter) formatTxt(e *Entry, fields []Field, color bool) {
	needsSpace := false

	if f.showTimestamp {
		f.buf = e.Time.In(f.location).AppendFormat(f.buf, f.timestampFormat)
		needsSpace = true
	}

	if f.showLevel {
		if needsSpace {
			f.buf = append(f.buf, ' ')
		}
		if color {
			f.buf = append(f.buf, levelColor(e.Level)...)
			f.buf = append(f.buf, LevelToString(e.Level)...)
			f.buf = append(f.buf, colorReset...)
		} else {
			f.buf = append(f.buf, LevelToString(e.Level)...)
		}
		needsSpace = true
	}

	if e.Message != "" {
		if needsSpace {
			f.buf = append(f.buf, ' ')
		}
		f.buf = f.txtSanitizer.Append(f.buf, e.Message)
		needsSpace = true
	}

	needsSpace = f.appendTxtFields(fields, needsSpace)

	if f.pid > 0 {
		if needsSpace {
			f.buf = append(f.buf, ' ')
		}
		f.buf = append(f.buf, "pid="...)
		f.buf = strconv.AppendInt(f.buf, int64(f.pid), 10)
		needsSpace = true
	}

	if e.Source != "" {
		if needsSpace {
			f.buf = append(f.buf, ' ')
		}
		f.buf = append(f.buf, "source="...)
		f.buf = f.txtSanitizer.AppendTxtString(f.buf, e.Source)
	}

	f.buf = append(f.buf, '\n')
}

func (f *Formatter) appendTxtFields(fields []Field, needsSpace bool) bool {
	for _, field := range fields {
		if needsSpace {
			f.buf = append(f.buf, ' ')
		}
		f.buf = f.txtSanitizer.AppendTxtString(f.buf, field.Key)
		f.buf = append(f.buf, '=')
		f.appendTxtValue(field.Value)
		needsSpace = true
	}
	return needsSpace
}

func (f *Formatter) appendTxtValue(v any) {
	switch val := v.(type) {
	case string:
		f.buf = f.txtSanitizer.AppendTxtString(f.buf, val)
	case []byte:
		f.buf = f.txtSanitizer.AppendTxtString(f.buf, string(val))
	case int:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int8:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int16:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int32:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int64:
		f.buf = strconv.AppendInt(f.buf, val, 10)
	case uint:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint8:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint16:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint32:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint64:
		f.buf = strconv.AppendUint(f.buf, val, 10)
	case float32:
		f.buf = strconv.AppendFloat(f.buf, float64(val), 'f', -1, 32)
	case float64:
		f.buf = strconv.AppendFloat(f.buf, val, 'f', -1, 64)
	case bool:
		f.buf = strconv.AppendBool(f.buf, val)
	case nil:
		f.buf = append(f.buf, "nil"...)
	case time.Time:
		f.buf = val.In(f.location).AppendFormat(f.buf, f.timestampFormat)
	case time.Duration:
		f.buf = append(f.buf, val.String()...)
	case error:
		f.buf = f.txtSanitizer.AppendTxtString(f.buf, safeString(val.Error))
	case fmt.Stringer:
		f.buf = f.txtSanitizer.AppendTxtString(f.buf, safeString(val.String))
	default:
		f.buf = f.txtSanitizer.AppendTxtString(f.buf, spewString(val))
	}
}

// formatJSON writes one object per line
func (f *Formatter) formatJSON(e *Entry) {
	f.buf = append(f.buf, '{')
	needsComma := false

	if f.showTimestamp {
		f.buf = append(f.buf, `"time":"`...)
		f.buf = e.Time.In(f.location).AppendFormat(f.buf, f.timestampFormat)
		f.buf = append(f.buf, '"')
		needsComma = true
	}

	if f.showLevel {
		if needsComma {
			f.buf = append(f.buf, ',')
		}
		f.buf = append(f.buf, `"level":"`...)
		f.buf = append(f.buf, LevelToString(e.Level)...)
		f.buf = append(f.buf, '"')
		needsComma = true
	}

	if f.pid > 0 {
		if needsComma {
			f.buf = append(f.buf, ',')
		}
		f.buf = append(f.buf, `"pid":`...)
		f.buf = strconv.AppendInt(f.buf, int64(f.pid), 10)
		needsComma = true
	}

	if needsComma {
		f.buf = append(f.buf, ',')
	}
	f.buf = append(f.buf, `"msg":`...)
	f.buf = sanitizer.AppendJSONString(f.buf, e.Message)

	if e.Source != "" {
		f.buf = append(f.buf, `,"source":`...)
		f.buf = sanitizer.AppendJSONString(f.buf, e.Source)
	}

	if len(e.Fields) > 0 {
		// duplicate keys are kept in insertion order
		f.buf = append(f.buf, `,"fields":{`...)
		for i, field := range e.Fields {
			if i > 0 {
				f.buf = append(f.buf, ',')
			}
			f.buf = sanitizer.AppendJSONString(f.buf, field.Key)
			f.buf = append(f.buf, ':')
			f.appendJSONValue(field.Value)
		}
		f.buf = append(f.buf, '}')
	}

	f.buf = append(f.buf, '}', '\n')
}

func (f *Formatter) appendJSONValue(v any) {
	switch val := v.(type) {
	case string:
		f.buf = sanitizer.AppendJSONString(f.buf, val)
	case []byte:
		f.buf = sanitizer.AppendJSONString(f.buf, string(val))
	case int:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int8:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int16:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int32:
		f.buf = strconv.AppendInt(f.buf, int64(val), 10)
	case int64:
		f.buf = strconv.AppendInt(f.buf, val, 10)
	case uint:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint8:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint16:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint32:
		f.buf = strconv.AppendUint(f.buf, uint64(val), 10)
	case uint64:
		f.buf = strconv.AppendUint(f.buf, val, 10)
	case float32:
		f.appendJSONFloat(float64(val), 32)
	case float64:
		f.appendJSONFloat(val, 64)
	case bool:
		f.buf = strconv.AppendBool(f.buf, val)
	case nil:
		f.buf = append(f.buf, "null"...)
	case time.Time:
		f.buf = append(f.buf, '"')
		f.buf = val.In(f.location).AppendFormat(f.buf, f.timestampFormat)
		f.buf = append(f.buf, '"')
	case time.Duration:
		f.buf = sanitizer.AppendJSONString(f.buf, val.String())
	case json.Marshaler:
		f.appendMarshaled(val)
	case error:
		f.buf = sanitizer.AppendJSONString(f.buf, safeString(val.Error))
	case fmt.Stringer:
		f.buf = sanitizer.AppendJSONString(f.buf, safeString(val.String))
	default:
		f.appendMarshaled(val)
	}
}

// appendJSONFloat writes NaN and infinities as strings since JSON has no
// literal for them
func (f *Formatter) appendJSONFloat(v float64, bitSize int) {
	s := strconv.FormatFloat(v, 'f', -1, bitSize)
	switch s {
	case "NaN", "+Inf", "-Inf":
		f.buf = sanitizer.AppendJSONString(f.buf, s)
	default:
		f.buf = append(f.buf, s...)
	}
}

func (f *Formatter) appendMarshaled(v any) {
	data, err := marshalValue(v)
	if err != nil || hasReplacementEscape(data) {
		f.buf = sanitizer.AppendJSONString(f.buf, spewString(v))
		return
	}
	f.buf = append(f.buf, data...)
}

// hasReplacementEscape reports whether encoded JSON contains the \ufffd escape
// encoding/json substitutes for invalid UTF-8. A valid U+FFFD in the input is
// written as raw UTF-8 and does not match.
func hasReplacementEscape(data []byte) bool {
	for i := 0; i < len(data)-1; i++ {
		if data[i] != '\\' {
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) && string(data[i+2:i+6]) == "fffd" {
			return true
		}
		i++
	}
	return false
}

func marshalValue(v any) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marshal panic: %v", r)
		}
	}()
	return json.Marshal(v)
}

// safeString calls a String or Error method, converting a panic (typically a
// nil receiver) into a placeholder
func safeString(fn func() string) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("!PANIC(%v)", r)
		}
	}()
	return fn()
}

func spewString(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("!PANIC(%v)", r)
		}
	}()
	return spewConfig.Sprintf("%+v", v)
}

// FILE: lixenwraith/sinklog/record.go
package sinklog

import (
	"strconv"
	"time"

	"github.com/lixenwraith/sinklog/formatter"
)

// Field is a key/value pair attached to a record
type Field = formatter.Field

// Source is the call site of a record
type Source struct {
	File     string
	Line     int
	Function string
}

// String renders the source as file:line or function:line
func (s *Source) String() string {
	if s == nil {
		return ""
	}
	loc := s.File
	if s.Function != "" {
		loc = s.Function
	}
	return loc + ":" + strconv.Itoa(s.Line)
}

// Record is a single log entry. It is not modified after it is handed to
// the logger and may be shared by several sink workers.
type Record struct {
	Time     time.Time
	Severity Severity
	Message  string
	Fields   []Field
	Source   *Source

	context int // leading Fields inherited from the logger
}

// F builds a Field
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// appendArgs turns alternating key/value arguments into fields. A Field
// argument is taken as is; a value without a string key before it is keyed
// as !BADKEY.
func appendArgs(fields []Field, args []any) []Field {
	for i := 0; i < len(args); {
		switch a := args[i].(type) {
		case Field:
			fields = append(fields, a)
			i++
		case string:
			if i+1 >= len(args) {
				fields = append(fields, Field{Key: badKey, Value: a})
				i++
				continue
			}
			fields = append(fields, Field{Key: a, Value: args[i+1]})
			i += 2
		default:
			fields = append(fields, Field{Key: badKey, Value: a})
			i++
		}
	}
	return fields
}

// toEntry fills e from r for the formatter
func (r *Record) toEntry(e *formatter.Entry) {
	e.Time = r.Time
	e.Level = int64(r.Severity)
	e.Message = r.Message
	e.Fields = r.Fields
	e.Source = r.Source.String()
	e.Context = r.context
}

// FILE: lixenwraith/sinklog/filter.go
package sinklog

import (
	"regexp"
	"strings"
)

// Override sets the minimum severity for records carrying a key that
// matches Pattern. The pattern must match the whole key.
type Override struct {
	Pattern string
	Level   Severity
}

type compiledOverride struct {
	re    *regexp.Regexp
	level Severity
}

// Filter decides whether a record passes a minimum severity, with per-key
// overrides. It is immutable and safe for concurrent use.
type Filter struct {
	min       Severity
	floor     Severity // lowest severity any override can let through
	overrides []compiledOverride
}

// NewFilter compiles overrides in declaration order. When several overrides
// match a record, the one declared last wins.
func NewFilter(min Severity, overrides ...Override) (*Filter, error) {
	f := &Filter{min: min, floor: min}
	for _, o := range overrides {
		re, err := regexp.Compile(`^(?:` + o.Pattern + `)$`)
		if err != nil {
			return nil, configErrorf("invalid override pattern '%s': %w", o.Pattern, err)
		}
		f.overrides = append(f.overrides, compiledOverride{re: re, level: o.Level})
		if o.Level < f.floor {
			f.floor = o.Level
		}
	}
	return f, nil
}

// ParseOverride parses "level:pattern"
func ParseOverride(s string) (Override, error) {
	levelStr, pattern, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(pattern) == "" {
		return Override{}, configErrorf("invalid override '%s', expected level:pattern", s)
	}
	level, err := ParseSeverity(levelStr)
	if err != nil {
		return Override{}, configErrorf("invalid override '%s': %w", s, err)
	}
	return Override{Pattern: strings.TrimSpace(pattern), Level: level}, nil
}

// ParseOverrides parses a list of "level:pattern" strings
func ParseOverrides(list []string) ([]Override, error) {
	overrides := make([]Override, 0, len(list))
	for _, s := range list {
		o, err := ParseOverride(s)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, nil
}

// Min returns the global minimum severity
func (f *Filter) Min() Severity {
	if f == nil {
		return LevelTrace
	}
	return f.min
}

// Floor returns the lowest severity the filter can accept
func (f *Filter) Floor() Severity {
	if f == nil {
		return LevelTrace
	}
	return f.floor
}

// MaybeEnabled reports whether some record at sev could pass. A false
// result means every record at sev is rejected.
func (f *Filter) MaybeEnabled(sev Severity) bool {
	return f == nil || sev >= f.floor
}

// Accept reports whether r passes the filter. A nil filter accepts all.
func (f *Filter) Accept(r *Record) bool {
	if f == nil {
		return true
	}
	return r.Severity >= f.effectiveMin(r)
}

func (f *Filter) effectiveMin(r *Record) Severity {
	for i := len(f.overrides) - 1; i >= 0; i-- {
		o := f.overrides[i]
		for _, field := range r.Fields {
			if o.re.MatchString(field.Key) {
				return o.level
			}
		}
	}
	return f.min
}

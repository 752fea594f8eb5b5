// FILE: lixenwraith/sinklog/sanitizer/sanitizer.go
// Package sanitizer renders arbitrary strings into log-safe text or JSON.
//
// Every input is accepted. Bytes that are not valid UTF-8 are replaced with
// the literal escape \xNN (two lowercase hex digits) so a record never fails
// to encode because of a bad value. Additional rune rules are applied per
// policy: the txt policy hex-encodes non-printable runes as <XXYY> to keep
// terminal control sequences out of log files, the json policy escapes
// control runes the way encoding/json does.
package sanitizer

import (
	"encoding/hex"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Filter flags for rune matching
const (
	FilterNonPrintable uint64 = 1 << iota // Runes not classified as printable by strconv.IsPrint
	FilterControl                         // Control runes (unicode.IsControl)
	FilterWhitespace                      // Whitespace runes (unicode.IsSpace)
)

// Transform flags for rune transformation
const (
	TransformStrip      uint64 = 1 << iota // Removes the rune
	TransformHexEncode                     // Encodes the rune's UTF-8 bytes as "<XXYY>"
	TransformJSONEscape                    // JSON-style backslash escape
)

// PolicyPreset names a pre-configured rule set
type PolicyPreset string

const (
	PolicyRaw  PolicyPreset = "raw"  // Only invalid UTF-8 is escaped
	PolicyTxt  PolicyPreset = "txt"  // Non-printable runes hex-encoded
	PolicyJSON PolicyPreset = "json" // Control runes JSON-escaped
)

type rule struct {
	filter    uint64
	transform uint64
}

var policyRules = map[PolicyPreset][]rule{
	PolicyRaw:  {},
	PolicyTxt:  {{filter: FilterNonPrintable, transform: TransformHexEncode}},
	PolicyJSON: {{filter: FilterControl, transform: TransformJSONEscape}},
}

// filterOrder keeps rule evaluation deterministic
var filterOrder = []struct {
	flag  uint64
	check func(rune) bool
}{
	{FilterNonPrintable, func(r rune) bool { return !strconv.IsPrint(r) }},
	{FilterControl, unicode.IsControl},
	{FilterWhitespace, unicode.IsSpace},
}

// Sanitizer applies an ordered rule list. It holds no mutable state and is
// safe for concurrent use.
type Sanitizer struct {
	rules []rule
}

// New creates a sanitizer with no rune rules (invalid UTF-8 is still escaped)
func New() *Sanitizer {
	return &Sanitizer{}
}

// Rule appends a custom rule; earlier rules win
func (s *Sanitizer) Rule(filter uint64, transform uint64) *Sanitizer {
	s.rules = append(s.rules, rule{filter: filter, transform: transform})
	return s
}

// Policy appends the rules of a preset
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	if rules, ok := policyRules[preset]; ok {
		s.rules = append(s.rules, rules...)
	}
	return s
}

// Sanitize returns the sanitized form of data
func (s *Sanitizer) Sanitize(data string) string {
	return string(s.Append(make([]byte, 0, len(data)), data))
}

// Append appends the sanitized form of data to buf
func (s *Sanitizer) Append(buf []byte, data string) []byte {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRuneInString(data[i:])
		if r == utf8.RuneError && size == 1 {
			buf = AppendInvalidByte(buf, data[i])
			i++
			continue
		}
		i += size

		matched := false
		for _, rl := range s.rules {
			if matchesFilter(r, rl.filter) {
				buf = applyTransform(buf, r, rl.transform)
				matched = true
				break
			}
		}
		if !matched {
			buf = utf8.AppendRune(buf, r)
		}
	}
	return buf
}

// AppendInvalidByte writes the documented escape for a byte that is not part
// of a valid UTF-8 sequence
func AppendInvalidByte(buf []byte, b byte) []byte {
	const digits = "0123456789abcdef"
	return append(buf, '\\', 'x', digits[b>>4], digits[b&0x0f])
}

func matchesFilter(r rune, mask uint64) bool {
	for _, f := range filterOrder {
		if mask&f.flag != 0 && f.check(r) {
			return true
		}
	}
	return false
}

func applyTransform(buf []byte, r rune, mask uint64) []byte {
	switch {
	case mask&TransformStrip != 0:
		return buf

	case mask&TransformHexEncode != 0:
		var runeBytes [utf8.UTFMax]byte
		n := utf8.EncodeRune(runeBytes[:], r)
		buf = append(buf, '<')
		buf = hex.AppendEncode(buf, runeBytes[:n])
		return append(buf, '>')

	case mask&TransformJSONEscape != 0:
		return appendJSONRune(buf, r)
	}
	return utf8.AppendRune(buf, r)
}

// AppendJSONString appends s as a quoted JSON string. Invalid UTF-8 bytes are
// written as the \xNN escape with the backslash itself escaped, so the output
// is always valid JSON.
func AppendJSONString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' && c != 0x7f {
				start := i
				for i < len(s) && s[i] < utf8.RuneSelf && s[i] >= 0x20 && s[i] != '"' && s[i] != '\\' && s[i] != 0x7f {
					i++
				}
				buf = append(buf, s[start:i]...)
				continue
			}
			buf = appendJSONRune(buf, rune(c))
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf = append(buf, '\\')
			buf = AppendInvalidByte(buf, c)
			i++
			continue
		}
		switch r {
		case '\u2028':
			buf = append(buf, `\u2028`...)
		case '\u2029':
			buf = append(buf, `\u2029`...)
		default:
			buf = append(buf, s[i:i+size]...)
		}
		i += size
	}
	return append(buf, '"')
}

func appendJSONRune(buf []byte, r rune) []byte {
	switch r {
	case '\n':
		return append(buf, '\\', 'n')
	case '\r':
		return append(buf, '\\', 'r')
	case '\t':
		return append(buf, '\\', 't')
	case '\b':
		return append(buf, '\\', 'b')
	case '\f':
		return append(buf, '\\', 'f')
	case '"':
		return append(buf, '\\', '"')
	case '\\':
		return append(buf, '\\', '\\')
	}
	if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
		buf = append(buf, '\\', 'u')
		const digits = "0123456789abcdef"
		return append(buf, digits[(r>>12)&0xf], digits[(r>>8)&0xf], digits[(r>>4)&0xf], digits[r&0xf])
	}
	return utf8.AppendRune(buf, r)
}

// NeedsQuotes reports whether a txt value must be quoted to stay unambiguous
// in a key=value line
func NeedsQuotes(s string) bool {
	if len(s) == 0 {
		return true
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return true
		}
		switch r {
		case '"', '\'', '\\', '=', '`', '$', ';', '|', '&', '<', '>', '(', ')', '{', '}', '[', ']', '#':
			return true
		}
	}
	return false
}

// AppendTxtString appends s for a txt line: sanitized with the txt policy and
// quoted when NeedsQuotes says so
func (s *Sanitizer) AppendTxtString(buf []byte, str string) []byte {
	start := len(buf)
	buf = s.Append(buf, str)
	sanitized := buf[start:]
	if !NeedsQuotes(string(sanitized)) {
		return buf
	}

	quoted := make([]byte, 0, len(sanitized)+2)
	quoted = append(quoted, '"')
	for _, c := range sanitized {
		if c == '"' || c == '\\' {
			quoted = append(quoted, '\\')
		}
		quoted = append(quoted, c)
	}
	quoted = append(quoted, '"')
	return append(buf[:start], quoted...)
}

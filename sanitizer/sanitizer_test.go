// FILE: lixenwraith/sinklog/sanitizer/sanitizer_test.go
package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func TestSanitizerPolicies(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		policy   PolicyPreset
		expected string
	}{
		{
			name:     "raw passes control runes",
			input:    "hello\x00world\n",
			policy:   PolicyRaw,
			expected: "hello\x00world\n",
		},
		{
			name:     "raw escapes invalid utf8",
			input:    "bad\xffbyte",
			policy:   PolicyRaw,
			expected: `bad\xffbyte`,
		},
		{
			name:     "txt hex encodes null byte",
			input:    "test\x00data",
			policy:   PolicyTxt,
			expected: "test<00>data",
		},
		{
			name:     "txt hex encodes control chars",
			input:    "bell\x07tab\x09",
			policy:   PolicyTxt,
			expected: "bell<07>tab<09>",
		},
		{
			name:     "txt hex encodes multi-byte control",
			input:    "line1\u0085line2",
			policy:   PolicyTxt,
			expected: "line1<c285>line2",
		},
		{
			name:     "txt preserves utf8",
			input:    "Hello 世界 ✓",
			policy:   PolicyTxt,
			expected: "Hello 世界 ✓",
		},
		{
			name:     "txt escapes invalid utf8 before rules",
			input:    "a\xc3\x28b",
			policy:   PolicyTxt,
			expected: `a\xc3(b`,
		},
		{
			name:     "json escapes common control chars",
			input:    "line1\nline2\ttab\rreturn",
			policy:   PolicyJSON,
			expected: `line1\nline2\ttab\rreturn`,
		},
		{
			name:     "json escapes c1 control",
			input:    "x\u0085y",
			policy:   PolicyJSON,
			expected: `x\u0085y`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New().Policy(tc.policy)
			assert.Equal(t, tc.expected, s.Sanitize(tc.input))
		})
	}
}

func TestCustomRules(t *testing.T) {
	t.Run("strip control", func(t *testing.T) {
		s := New().Rule(FilterControl, TransformStrip)
		assert.Equal(t, "abc", s.Sanitize("a\x00b\nc"))
	})

	t.Run("first rule wins", func(t *testing.T) {
		s := New().
			Rule(FilterWhitespace, TransformStrip).
			Rule(FilterControl, TransformHexEncode)
		// \n is both whitespace and control; the strip rule was added first
		assert.Equal(t, "ab<07>", s.Sanitize("a\nb\x07"))
	})

	t.Run("unknown policy is ignored", func(t *testing.T) {
		s := New().Policy("nope")
		assert.Equal(t, "a\x00", s.Sanitize("a\x00"))
	})
}

func TestAppendJSONString(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello", "hello"},
		{"quotes and backslash", `a"b\c`, `a"b\c`},
		{"newline", "a\nb", "a\nb"},
		{"invalid byte", "x\xffy", `x\xffy`},
		{"line separator", "a\u2028b", "a\u2028b"},
		{"utf8", "日本語", "日本語"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := AppendJSONString(nil, tc.input)

			v, err := fastjson.ParseBytes(out)
			require.NoError(t, err, "output must be valid JSON: %s", out)
			got, err := v.StringBytes()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(got))
		})
	}

	t.Run("separators are escaped", func(t *testing.T) {
		out := AppendJSONString(nil, "a\u2028b\u2029c")
		assert.Equal(t, `"a\u2028b\u2029c"`, string(out))
	})

	t.Run("appends to existing buffer", func(t *testing.T) {
		out := AppendJSONString([]byte("k="), "v")
		assert.Equal(t, `k="v"`, string(out))
	})
}

func TestAppendTxtString(t *testing.T) {
	s := New().Policy(PolicyTxt)

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare word", "hello", "hello"},
		{"utf8 word", "世界", "世界"},
		{"space", "hello world", `"hello world"`},
		{"empty", "", `""`},
		{"embedded quote", `say "hi"`, `"say \"hi\""`},
		{"equals sign", "a=b", `"a=b"`},
		{"control rune", "x\ty", `"x<09>y"`},
		{"invalid byte", "a\xffb", `"a\\xffb"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := s.AppendTxtString([]byte("k="), tc.input)
			assert.Equal(t, "k="+tc.expected, string(out))
		})
	}
}

func TestNeedsQuotes(t *testing.T) {
	assert.True(t, NeedsQuotes(""))
	assert.True(t, NeedsQuotes("a b"))
	assert.True(t, NeedsQuotes("a;b"))
	assert.True(t, NeedsQuotes("x\n"))
	assert.True(t, NeedsQuotes(`a\xffb`), "escape sequences are quoted")
	assert.False(t, NeedsQuotes("simple"))
	assert.False(t, NeedsQuotes("path/to/file.go:12"))
	assert.True(t, NeedsQuotes(`C:\dir`))
}

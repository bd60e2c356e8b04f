package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"verdict": "approve", "remaining_issues": [{"severity": "minor", "description": "tense"}]}`

func TestObject_Layers(t *testing.T) {
	want := map[string]any{
		"verdict": "approve",
		"remaining_issues": []any{
			map[string]any{"severity": "minor", "description": "tense"},
		},
	}

	tests := []struct {
		name  string
		input string
	}{
		{"Pure", payload},
		{"Padded", "\n\n  " + payload + "  \n"},
		{"Fenced JSON", "```json\n" + payload + "\n```"},
		{"Fenced Bare", "```\n" + payload + "\n```"},
		{"Fenced Inline", "Here: ```" + payload + "``` done."},
		{"Fence After Prose", "I reviewed the text.\n\n```json\n" + payload + "\n```\nLet me know."},
		{
			"Prose And Trailing Commentary",
			"I read the draft carefully. The argument is coherent. Here is my decision. " +
				payload + " Note: the second sentence {could} be tighter.",
		},
		{"Trailing Braces", payload + "\n}}"},
		{"Unterminated Fence", "```json\n" + payload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Object(tt.input)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestObject_Unparseable(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"I could not decide.",
		"{ this is not json }",
		"[1, 2, 3]",
		"} backwards {",
	}
	for _, in := range inputs {
		_, ok := Object(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestParse_SentinelKeepsTruncatedRaw(t *testing.T) {
	raw := strings.Repeat("é", RawLimit+50)

	ex := Parse(raw)
	assert.False(t, ex.OK)
	assert.Nil(t, ex.Value)
	assert.Equal(t, RawLimit, len([]rune(ex.Raw)))
	assert.True(t, strings.HasPrefix(raw, ex.Raw))

	short := Parse("nope")
	assert.Equal(t, "nope", short.Raw)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}

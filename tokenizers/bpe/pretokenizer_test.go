package bpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spanTexts returns the text of each span, with atomic spans in brackets.
func spanTexts(text string, spans []Span) []string {
	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = text[span.Start:span.End]
		if span.Atomic {
			texts[i] = "[" + texts[i] + "]"
		}
	}
	return texts
}

func TestPreTokenizerSplit(t *testing.T) {
	pre, err := NewPreTokenizer("", []AddedToken{
		{Content: "<|im_end|>", ID: 1},
		{Content: "ab", ID: 2},
		{Content: "abc", ID: 3},
	})
	require.NoError(t, err)

	for _, tc := range []struct {
		text string
		want []string
	}{
		{"", []string{}},
		{"Hello world", []string{"Hello", " world"}},
		{"Hello world  \n", []string{"Hello", " world", "  \n"}},
		{"x   y", []string{"x", "  ", " y"}},
		{"it's 42!", []string{"it", "'s", " 42", "!"}},
		{"hi<|im_end|>there", []string{"hi", "[<|im_end|>]", "there"}},
		{"<|im_end|><|im_end|>", []string{"[<|im_end|>]", "[<|im_end|>]"}},
		{"abcab", []string{"[abc]", "[ab]"}},
		{"xabcd", []string{"x", "[abc]", "d"}},
	} {
		spans, err := pre.Split(tc.text)
		require.NoError(t, err)
		assert.Equal(t, tc.want, spanTexts(tc.text, spans), "text %q", tc.text)
	}
}

func TestPreTokenizerCoversGaps(t *testing.T) {
	// The pattern only matches letters: everything else must still be covered.
	pre, err := NewPreTokenizer(`\p{L}+`, nil)
	require.NoError(t, err)
	text := "ab, cd!?"
	spans, err := pre.Split(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", ", ", "cd", "!?"}, spanTexts(text, spans))

	pos := 0
	for _, span := range spans {
		assert.Equal(t, pos, span.Start)
		pos = span.End
	}
	assert.Equal(t, len(text), pos)
}

func TestPreTokenizerMultiByte(t *testing.T) {
	pre, err := NewPreTokenizer("", nil)
	require.NoError(t, err)
	text := "héllo 😀😀 日本"
	spans, err := pre.Split(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"héllo", " 😀😀", " 日本"}, spanTexts(text, spans))
}

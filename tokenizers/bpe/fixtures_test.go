package bpe

import (
	"testing"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/bytelevel"
	"github.com/stretchr/testify/require"
)

const (
	testPadID     = 1000 // <|endoftext|>
	testEOSID     = 1001 // <|im_end|>
	testThinkID   = 1002 // <think>, not special
	testAddedSize = 3
)

var testAddedTokens = []AddedToken{
	{Content: "<|endoftext|>", ID: testPadID, Special: true},
	{Content: "<|im_end|>", ID: testEOSID, Special: true},
	{Content: "<think>", ID: testThinkID},
}

// bl converts text to the byte-level alphabet.
func bl(text string) string { return bytelevel.EncodeString(text) }

// byteFixture builds a byte-level vocabulary with the 256 byte symbols (the id of each symbol is its
// byte value), followed by the result of each merge (id 256+rank).
func byteFixture(t *testing.T, merges ...Pair) (*Vocabulary, *MergeRanks) {
	t.Helper()
	tokens := make([]string, 0, 256+len(merges))
	for b := range 256 {
		tokens = append(tokens, string(bytelevel.Rune(byte(b))))
	}
	for _, pair := range merges {
		tokens = append(tokens, pair.Left+pair.Right)
	}
	vocab, err := NewVocabularyFromList(tokens)
	require.NoError(t, err)
	return vocab, NewMergeRanks(merges)
}

// emojiMerges merges the 4 bytes of 😀 into a single symbol.
func emojiMerges() []Pair {
	r := []rune(bl("😀"))
	return []Pair{
		{string(r[0]), string(r[1])},
		{string(r[0:2]), string(r[2])},
		{string(r[0:3]), string(r[3])},
	}
}

func testOptions() Options {
	return Options{
		AddedTokens: testAddedTokens,
		EOSTokenID:  testEOSID,
		PadTokenID:  testPadID,
		ByteLevel:   true,
	}
}

// newByteTokenizer creates a byte-level tokenizer with the test added tokens.
func newByteTokenizer(t *testing.T, merges ...Pair) *Tokenizer {
	t.Helper()
	vocab, ranks := byteFixture(t, merges...)
	tok, err := New(vocab, ranks, testOptions())
	require.NoError(t, err)
	return tok
}

// helloVocab and helloMerges encode "hello" to a single token.
const helloVocab = `{"h": 0, "e": 1, "l": 2, "o": 3, "he": 4, "ll": 5, "llo": 6, "hello": 7, "Ġ": 8, "Ġhello": 9,
  "w": 10, "r": 11, "d": 12}`

const helloMerges = "#version: 0.2\nh e\nl l\nll o\nhe llo\nĠ hello\n"

func newHelloTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	vocab, err := ParseVocabulary([]byte(helloVocab))
	require.NoError(t, err)
	merges, err := ParseMerges([]byte(helloMerges))
	require.NoError(t, err)
	tok, err := New(vocab, merges, testOptions())
	require.NoError(t, err)
	return tok
}

func intPtr(v int) *int { return &v }

package hftokenizer

import (
	"testing"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test tokenizer.json content for a Qwen-style byte-level BPE model: NFC normalizer, a Split
// pre-tokenizer followed by ByteLevel, and merges stored as arrays.
var testQwenTokenizerJSON = []byte(`{
  "version": "1.0",
  "truncation": null,
  "padding": null,
  "added_tokens": [
    {"id": 11, "content": "<|im_end|>", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true},
    {"id": 10, "content": "<|endoftext|>", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": true},
    {"id": 12, "content": "<think>", "single_word": false, "lstrip": false, "rstrip": false, "normalized": false, "special": false}
  ],
  "normalizer": {"type": "NFC"},
  "pre_tokenizer": {
    "type": "Sequence",
    "pretokenizers": [
      {"type": "Split", "pattern": {"Regex": "\\p{L}+|\\s+"}, "behavior": "Isolated", "invert": false},
      {"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": false, "use_regex": false}
    ]
  },
  "post_processor": null,
  "decoder": {"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": false, "use_regex": false},
  "model": {
    "type": "BPE",
    "dropout": null,
    "unk_token": null,
    "byte_fallback": false,
    "vocab": {"h": 0, "e": 1, "l": 2, "o": 3, "Ġ": 4, "he": 5, "ll": 6, "hell": 7, "hello": 8},
    "merges": [["h", "e"], ["l", "l"], ["he", "ll"], ["hell", "o"]]
  }
}`)

// Test tokenizer.json content for a GPT-2-style model with merges stored as strings.
var testGPT2TokenizerJSON = []byte(`{
  "version": "1.0",
  "added_tokens": [
    {"id": 3, "content": "<|endoftext|>", "special": true}
  ],
  "normalizer": null,
  "pre_tokenizer": {"type": "ByteLevel", "add_prefix_space": false, "use_regex": true},
  "decoder": {"type": "ByteLevel"},
  "model": {
    "type": "BPE",
    "unk_token": "<|endoftext|>",
    "vocab": {"a": 0, "b": 1, "ab": 2},
    "merges": ["a b", "ab b"]
  }
}`)

func TestParse(t *testing.T) {
	tj, err := Parse(testQwenTokenizerJSON)
	require.NoError(t, err)

	vocab, err := tj.Vocabulary()
	require.NoError(t, err)
	assert.Equal(t, 9, vocab.Len())
	id, found := vocab.ID("hello")
	assert.True(t, found)
	assert.Equal(t, 8, id)

	ranks := tj.MergeRanks()
	assert.Equal(t, 4, ranks.Len())
	rank, found := ranks.Rank("hell", "o")
	assert.True(t, found)
	assert.Equal(t, 3, rank)

	assert.Equal(t, []bpe.AddedToken{
		{Content: "<|endoftext|>", ID: 10, Special: true},
		{Content: "<|im_end|>", ID: 11, Special: true},
		{Content: "<think>", ID: 12, Special: false},
	}, tj.AddedTokensList())
	id, found = tj.AddedTokenID("<|im_end|>")
	assert.True(t, found)
	assert.Equal(t, 11, id)

	assert.Equal(t, `\p{L}+|\s+`, tj.SplitPattern())
	assert.True(t, tj.ByteLevel())
}

func TestParseStringMerges(t *testing.T) {
	tj, err := Parse(testGPT2TokenizerJSON)
	require.NoError(t, err)
	require.Len(t, tj.Model.Merges, 2)
	assert.Equal(t, bpe.GPT2Pattern, tj.SplitPattern())

	opts, err := tj.Options()
	require.NoError(t, err)
	require.NotNil(t, opts.UnknownTokenID)
	assert.Equal(t, 3, *opts.UnknownTokenID)
	assert.True(t, opts.ByteLevel)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"model": `},
		{"wordpiece", `{"model": {"type": "WordPiece", "vocab": {"a": 0}}}`},
		{"no vocabulary", `{"model": {"type": "BPE"}}`},
		{"merge with 3 symbols", `{"model": {"type": "BPE", "vocab": {}, "merges": [["a", "b", "c"]]}}`},
		{"merge string with 3 symbols", `{"model": {"type": "BPE", "vocab": {}, "merges": ["a b c"]}}`},
		{"merge of the wrong type", `{"model": {"type": "BPE", "vocab": {}, "merges": [1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
		})
	}
}

func TestOptionsEncode(t *testing.T) {
	tj, err := Parse(testQwenTokenizerJSON)
	require.NoError(t, err)
	opts, err := tj.Options()
	require.NoError(t, err)
	assert.Nil(t, opts.UnknownTokenID)
	opts.EOSTokenID, opts.PadTokenID = 11, 10

	vocab, err := tj.Vocabulary()
	require.NoError(t, err)
	tok, err := bpe.New(vocab, tj.MergeRanks(), opts)
	require.NoError(t, err)

	ids, err := tok.Encode("hello<think>hello", true)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 12, 8, 11}, ids)
	assert.Equal(t, "hello<think>hello", tok.Decode(ids, true))
}

func TestNormalizerFunc(t *testing.T) {
	tj := &TokenizerJSON{}
	n, err := tj.NormalizerFunc()
	require.NoError(t, err)
	assert.Equal(t, "e\u0301", n("e\u0301"))

	tj.Normalizer = &Normalizer{Type: "Sequence", Normalizers: []Normalizer{{Type: "NFC"}}}
	n, err = tj.NormalizerFunc()
	require.NoError(t, err)
	assert.Equal(t, "\u00e9", n("e\u0301"))

	tj.Normalizer = &Normalizer{Type: "Lowercase"}
	_, err = tj.NormalizerFunc()
	require.Error(t, err)
}

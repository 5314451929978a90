package bpe

import (
	"golang.org/x/text/unicode/norm"
)

// GPT2Pattern is the pre-tokenizer pattern of the GPT-2 byte-level BPE. It is used when
// Options.Pattern is left empty.
const GPT2Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// DefaultCacheSize is the number of pre-tokenized words whose merge results are memoized.
const DefaultCacheSize = 8192

// AddedToken is a literal that is matched as a whole in the input and encoded to a single id,
// bypassing the byte-level conversion and the merges.
type AddedToken struct {
	Content string
	ID      int

	// Special tokens are omitted by Decode when skipSpecialTokens is set.
	Special bool
}

// Normalizer transforms the text before pre-tokenization.
type Normalizer func(text string) string

// NFC applies Unicode canonical composition. It is the default Normalizer.
func NFC(text string) string {
	if norm.NFC.IsNormalString(text) {
		return text
	}
	return norm.NFC.String(text)
}

// NoNormalization leaves the text untouched.
func NoNormalization(text string) string {
	return text
}

// Options configure a Tokenizer. They are plain values: different model variants simply use
// different Options.
type Options struct {
	// AddedTokens are matched atomically, before the pre-tokenizer pattern is applied.
	AddedTokens []AddedToken

	// EOSTokenID is appended by the encoders when asked to, and PadTokenID fills the padding positions
	// of fixed length inputs.
	EOSTokenID, PadTokenID int

	// ByteLevel maps the input bytes to the byte-level alphabet before merging, and back when decoding.
	// When false, the characters of the text are used directly as the initial symbols.
	ByteLevel bool

	// Pattern is the pre-tokenizer regular expression, in .NET/Perl syntax (look-arounds are allowed).
	// Defaults to GPT2Pattern.
	Pattern string

	// Normalizer defaults to NFC.
	Normalizer Normalizer

	// UnknownTokenID, if set, is used for symbols not in the vocabulary. Otherwise, encoding such a
	// symbol fails with UnknownSymbolError.
	UnknownTokenID *int

	// CacheSize is the number of memoized merge results. 0 means DefaultCacheSize, negative disables
	// the cache.
	CacheSize int
}

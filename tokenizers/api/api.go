// Package api defines the Tokenizer API.
// It's just a hack to break the cyclic dependency between the tokenizer implementations and the
// sources of tokenizer files.
package api

import (
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// Offset of a token in the text, in bytes: text[o.Start:o.End()].
type Offset struct {
	Start  int // start byte position (inclusive)
	Length int // length in bytes
}

// End returns the end byte position (exclusive).
func (o Offset) End() int {
	return o.Start + o.Length
}

// EncodingResult contains tokens with their offsets in the text.
//
// IDs, Tokens and Offsets have the same length. Offsets tile Text exactly, except for an appended
// end-of-sequence token, which gets the zero-length offset {len(Text), 0}.
type EncodingResult struct {
	// Text is the normalized text that was tokenized, the one Offsets refer to.
	// It is the original text whenever it was already in the normalized form (e.g. NFC).
	Text string

	IDs     []int    // token IDs
	Tokens  []string // decoded text of each token
	Offsets []Offset // byte offsets of each token (use Text[o.Start:o.End()] to extract)
}

// RuneOffsets converts Offsets to code point (rune) indices, as used by Python.
//
// A token covering only part of a multi-byte character is widened to the whole character, so
// consecutive tokens splitting one character share its index.
func (r *EncodingResult) RuneOffsets() []Offset {
	return r.convertOffsets(func(rune) int { return 1 })
}

// UTF16Offsets converts Offsets to UTF-16 code unit indices, as used by JavaScript and Java strings.
// Characters outside the Basic Multilingual Plane (e.g. emojis) count as 2.
// Partial characters are widened as in RuneOffsets.
func (r *EncodingResult) UTF16Offsets() []Offset {
	return r.convertOffsets(utf16.RuneLen)
}

// convertOffsets maps byte offsets to character units of the given width: a start byte maps to the
// first unit of its character, an end byte to just after the character holding the byte before it.
func (r *EncodingResult) convertOffsets(width func(rune) int) []Offset {
	n := len(r.Text)
	unitStart := make([]int, n+1)
	unitEnd := make([]int, n+1)
	units := 0
	for pos := 0; pos < n; {
		c, size := utf8.DecodeRuneInString(r.Text[pos:])
		next := units + width(c)
		for b := pos; b < pos+size; b++ {
			unitStart[b], unitEnd[b] = units, next
		}
		units = next
		pos += size
	}
	unitStart[n] = units

	converted := make([]Offset, len(r.Offsets))
	for i, o := range r.Offsets {
		start := unitStart[o.Start]
		end := start
		if o.Length > 0 {
			end = unitEnd[o.End()-1]
		}
		converted[i] = Offset{Start: start, Length: end - start}
	}
	return converted
}

// Tokenizer interface allows one convert text to "tokens" (integer ids) and back.
//
// It also allows mapping of special tokens: tokens with a common semantic (like padding) but that
// may map to different ids (int) for different tokenizers.
type Tokenizer interface {
	// Encode text, optionally appending the end-of-sequence token.
	Encode(text string, addEos bool) ([]int, error)

	// Decode ids back to text, optionally omitting the special tokens.
	Decode(ids []int, skipSpecialTokens bool) string

	// SpecialTokenID returns ID for given special token if registered, or an error if not.
	SpecialTokenID(token SpecialToken) (int, error)
}

// TokenizerWithSpans extends Tokenizer with offset tracking capability.
// This is useful for token classification tasks (NER, chunking) where you need
// to map token predictions back to positions in the original text.
type TokenizerWithSpans interface {
	Tokenizer

	// EncodeDetailed returns tokens along with their offsets in the text.
	EncodeDetailed(text string, addEos bool) (*EncodingResult, error)
}

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken int

const (
	TokBeginningOfSentence SpecialToken = iota
	TokEndOfSentence
	TokUnknown
	TokPad
	TokMask
	TokClassification
	TokSpecialTokensCount
)

var specialTokenNames = [...]string{
	TokBeginningOfSentence: "beginning_of_sentence",
	TokEndOfSentence:       "end_of_sentence",
	TokUnknown:             "unknown",
	TokPad:                 "pad",
	TokMask:                "mask",
	TokClassification:      "classification",
	TokSpecialTokensCount:  "special_tokens_count",
}

// String implements fmt.Stringer.
func (t SpecialToken) String() string {
	if t < 0 || int(t) >= len(specialTokenNames) {
		return "SpecialToken(" + strconv.Itoa(int(t)) + ")"
	}
	return specialTokenNames[t]
}

package bpe

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// Span is a contiguous slice text[Start:End] of the (normalized) text produced by the PreTokenizer.
type Span struct {
	Start, End int

	// Atomic spans are added tokens: they are encoded as the single token ID.
	Atomic bool
	ID     int
}

// PreTokenizer segments text into atomic added-token spans and plain spans, delimited by a
// regular expression. It is immutable and safe for concurrent use.
type PreTokenizer struct {
	pattern *regexp2.Regexp

	// addedByFirstByte indexes the added tokens by their first byte, longest first.
	addedByFirstByte [256][]AddedToken
}

// NewPreTokenizer compiles the pattern (in .NET/Perl syntax, look-arounds are supported) and
// indexes the added tokens.
func NewPreTokenizer(pattern string, addedTokens []AddedToken) (*PreTokenizer, error) {
	if pattern == "" {
		pattern = GPT2Pattern
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile pre-tokenizer pattern %q", pattern)
	}
	p := &PreTokenizer{pattern: re}
	for _, token := range addedTokens {
		if token.Content == "" {
			return nil, errors.WithStack(formatErrorf("added tokens", 0, "empty added token for id %d", token.ID))
		}
		first := token.Content[0]
		p.addedByFirstByte[first] = append(p.addedByFirstByte[first], token)
	}
	for i := range p.addedByFirstByte {
		slices.SortStableFunc(p.addedByFirstByte[i], func(a, b AddedToken) int {
			return cmp.Compare(len(b.Content), len(a.Content))
		})
	}
	return p, nil
}

// matchAdded returns the longest added token that is a prefix of text.
func (p *PreTokenizer) matchAdded(text string) (AddedToken, bool) {
	for _, token := range p.addedByFirstByte[text[0]] {
		if strings.HasPrefix(text, token.Content) {
			return token, true
		}
	}
	return AddedToken{}, false
}

// Split segments text in order. Every byte of text is covered by exactly one span.
func (p *PreTokenizer) Split(text string) ([]Span, error) {
	var spans []Span
	plainStart := 0
	for pos := 0; pos < len(text); {
		token, found := p.matchAdded(text[pos:])
		if !found {
			pos++
			continue
		}
		var err error
		spans, err = p.appendPlain(spans, text, plainStart, pos)
		if err != nil {
			return nil, err
		}
		end := pos + len(token.Content)
		spans = append(spans, Span{Start: pos, End: end, Atomic: true, ID: token.ID})
		pos = end
		plainStart = end
	}
	return p.appendPlain(spans, text, plainStart, len(text))
}

// appendPlain splits text[start:end], which holds no added tokens, with the pattern.
// Characters not matched by the pattern become spans of their own.
func (p *PreTokenizer) appendPlain(spans []Span, text string, start, end int) ([]Span, error) {
	if start >= end {
		return spans, nil
	}
	segment := text[start:end]
	runes := make([]rune, 0, utf8.RuneCountInString(segment))
	// runeOffsets[i] is the byte offset of runes[i] in text, with a final entry for end.
	runeOffsets := make([]int, 0, cap(runes)+1)
	for i, r := range segment {
		runes = append(runes, r)
		runeOffsets = append(runeOffsets, start+i)
	}
	runeOffsets = append(runeOffsets, end)

	last := 0
	m, err := p.pattern.FindRunesMatch(runes)
	for ; err == nil && m != nil; m, err = p.pattern.FindNextMatch(m) {
		if m.Length == 0 {
			continue
		}
		if m.Index > last {
			spans = append(spans, Span{Start: runeOffsets[last], End: runeOffsets[m.Index]})
		}
		last = m.Index + m.Length
		spans = append(spans, Span{Start: runeOffsets[m.Index], End: runeOffsets[last]})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "pre-tokenizer pattern failed on %q", segment)
	}
	if last < len(runes) {
		spans = append(spans, Span{Start: runeOffsets[last], End: end})
	}
	return spans, nil
}

package bpe

import (
	"cmp"
	"unicode/utf8"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/bytelevel"
	"github.com/pkg/errors"
)

// piece is one token of an encoded word: its id and the end of its byte range, relative to the word.
type piece struct {
	id  int
	end int
}

// symbol is a node of the doubly linked list of symbols of a word being merged.
// It covers the bytes word[start:end]; merged-away symbols have start == end.
type symbol struct {
	start, end int
	prev, next int
}

// mergeCandidate is an adjacent pair of symbols with a finite rank.
// leftEnd and rightEnd identify the symbols contents at the time the candidate was created:
// symbols only grow to the right, so if either changed the candidate is stale.
type mergeCandidate struct {
	rank              int
	left, right       int
	leftEnd, rightEnd int
}

func compareCandidates(a, b any) int {
	ca, cb := a.(mergeCandidate), b.(mergeCandidate)
	if c := cmp.Compare(ca.rank, cb.rank); c != 0 {
		return c
	}
	return cmp.Compare(ca.left, cb.left)
}

// encodeWord converts a plain span into tokens.
//
// The symbols of the word are repeatedly merged, always picking the adjacent pair with the lowest
// rank (leftmost on ties), until no adjacent pair can be merged. Each remaining symbol is then
// looked up in the vocabulary.
func (t *Tokenizer) encodeWord(word string, offset int) ([]piece, error) {
	if t.cache != nil {
		if pieces, found := t.cache.Get(word); found {
			return pieces, nil
		}
	}

	// symbolText returns the vocabulary form of word[start:end].
	var symbolText func(start, end int) string
	if t.byteLevel {
		mapped, mappedOffsets := bytelevel.EncodeWithOffsets(word)
		symbolText = func(start, end int) string { return mapped[mappedOffsets[start]:mappedOffsets[end]] }
	} else {
		symbolText = func(start, end int) string { return word[start:end] }
	}

	symbols := t.initialSymbols(word)
	heap := binaryheap.NewWith(compareCandidates)
	pushCandidate := func(left, right int) {
		if left < 0 || right < 0 {
			return
		}
		l, r := symbols[left], symbols[right]
		rank, found := t.merges.Rank(symbolText(l.start, l.end), symbolText(r.start, r.end))
		if !found {
			return
		}
		heap.Push(mergeCandidate{rank: rank, left: left, right: right, leftEnd: l.end, rightEnd: r.end})
	}
	for i := 0; i+1 < len(symbols); i++ {
		pushCandidate(i, i+1)
	}

	for !heap.Empty() {
		value, _ := heap.Pop()
		c := value.(mergeCandidate)
		left, right := &symbols[c.left], &symbols[c.right]
		if left.start == left.end || right.start == right.end ||
			left.next != c.right || left.end != c.leftEnd || right.end != c.rightEnd {
			continue // Stale candidate.
		}

		// Merge right into left.
		left.end = right.end
		left.next = right.next
		if right.next >= 0 {
			symbols[right.next].prev = c.left
		}
		right.start, right.end = 0, 0
		right.prev, right.next = -1, -1

		pushCandidate(left.prev, c.left)
		pushCandidate(c.left, left.next)
	}

	var pieces []piece
	for i := 0; i >= 0 && i < len(symbols); i = symbols[i].next {
		s := symbols[i]
		text := symbolText(s.start, s.end)
		id, found := t.vocab.ID(text)
		if !found {
			if !t.hasUnknown {
				return nil, errors.WithStack(&UnknownSymbolError{Symbol: word[s.start:s.end], Offset: offset + s.start})
			}
			id = t.unknownID
		}
		pieces = append(pieces, piece{id: id, end: s.end})
	}
	t.cacheAdd(word, pieces)
	return pieces, nil
}

// initialSymbols splits the word into bytes (byte-level) or characters. Invalid UTF-8 bytes
// become symbols of their own.
func (t *Tokenizer) initialSymbols(word string) []symbol {
	var symbols []symbol
	if t.byteLevel {
		symbols = make([]symbol, len(word))
		for i := range symbols {
			symbols[i] = symbol{start: i, end: i + 1, prev: i - 1, next: i + 1}
		}
	} else {
		symbols = make([]symbol, 0, utf8.RuneCountInString(word))
		for start := 0; start < len(word); {
			_, size := utf8.DecodeRuneInString(word[start:])
			idx := len(symbols)
			symbols = append(symbols, symbol{start: start, end: start + size, prev: idx - 1, next: idx + 1})
			start += size
		}
	}
	if len(symbols) > 0 {
		symbols[len(symbols)-1].next = -1
	}
	return symbols
}

func (t *Tokenizer) cacheAdd(word string, pieces []piece) {
	if t.cache != nil {
		t.cache.Add(word, pieces)
	}
}

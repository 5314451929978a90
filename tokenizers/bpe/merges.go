package bpe

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// Pair of adjacent symbols that can be merged.
type Pair struct {
	Left, Right string
}

// MergeRanks holds the merge priorities of merges.txt: the rank of a pair is its position in
// the list, and lower ranks are merged first. It is immutable once created.
type MergeRanks struct {
	ranks map[Pair]int
	pairs []Pair
}

// maxMergesLineSize bounds a single line of merges.txt.
const maxMergesLineSize = 1 << 20

// ParseMerges parses the contents of a merges.txt file: one "left right" pair per line.
// A leading "#version" header and empty lines are skipped; the first pair has rank 0.
func ParseMerges(content []byte) (*MergeRanks, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxMergesLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(formatErrorf("merges.txt", len(lines)+1, "%v", err))
	}
	return parseMergeLines("merges.txt", lines)
}

// ParseMergeLines is like ParseMerges, but takes the lines already split, as stored in GGUF files.
func ParseMergeLines(lines []string) (*MergeRanks, error) {
	return parseMergeLines("merges", lines)
}

func parseMergeLines(source string, lines []string) (*MergeRanks, error) {
	pairs := make([]Pair, 0, len(lines))
	for lineNum, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || (lineNum == 0 && strings.HasPrefix(line, "#version")) {
			continue
		}
		parts := strings.Split(line, " ")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.WithStack(formatErrorf(source, lineNum+1, "expected 2 symbols separated by a space, got %q", line))
		}
		pairs = append(pairs, Pair{Left: parts[0], Right: parts[1]})
	}
	return NewMergeRanks(pairs), nil
}

// NewMergeRanks creates the MergeRanks from an ordered list of pairs.
// If a pair is repeated, its first position is its rank.
func NewMergeRanks(pairs []Pair) *MergeRanks {
	m := &MergeRanks{
		ranks: make(map[Pair]int, len(pairs)),
		pairs: pairs,
	}
	for rank, pair := range pairs {
		if _, found := m.ranks[pair]; !found {
			m.ranks[pair] = rank
		}
	}
	return m
}

// Rank returns the rank of the pair (left, right), or false if they are never merged.
func (m *MergeRanks) Rank(left, right string) (int, bool) {
	rank, ok := m.ranks[Pair{Left: left, Right: right}]
	return rank, ok
}

// Len returns the number of pairs.
func (m *MergeRanks) Len() int {
	return len(m.pairs)
}

// Pairs returns the ordered list of pairs. It must not be modified.
func (m *MergeRanks) Pairs() []Pair {
	return m.pairs
}

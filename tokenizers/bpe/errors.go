package bpe

import (
	"fmt"
	"strings"
)

// FormatError is returned while building the tables of a tokenizer, when the vocabulary, the merges
// or the added tokens are malformed. No tokenizer is returned with it.
type FormatError struct {
	// Source is a short name of the offending input, e.g. "vocab.json" or "merges.txt".
	Source string

	// Line is the 1-based line number of the error, or 0 if not applicable.
	Line int

	Msg string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed %s (line %d): %s", e.Source, e.Line, e.Msg)
	}
	return fmt.Sprintf("malformed %s: %s", e.Source, e.Msg)
}

func formatErrorf(source string, line int, format string, args ...any) *FormatError {
	return &FormatError{Source: source, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// UnknownSymbolError is returned by the encoder when a symbol left after merging has no vocabulary
// entry, and no unknown token was configured.
//
// It can't happen with byte-level encoding and a complete vocabulary, since every byte is a symbol.
type UnknownSymbolError struct {
	Symbol string

	// Offset of the symbol in the normalized text, in bytes.
	Offset int
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("symbol %q at byte offset %d is not in the vocabulary", e.Symbol, e.Offset)
}

// UnknownTokenIDError is returned by Tokenizer.DecodeStrict for an id that maps to no token.
type UnknownTokenIDError struct {
	ID int
}

func (e *UnknownTokenIDError) Error() string {
	return fmt.Sprintf("token id %d is not in the vocabulary", e.ID)
}

// BatchError reports the items of a batch operation that failed. Errs is indexed like the batch
// input and holds nil for the items that succeeded; their results are valid.
type BatchError struct {
	Errs []error
}

// Failed returns the indices of the failed items.
func (e *BatchError) Failed() []int {
	var indices []int
	for i, err := range e.Errs {
		if err != nil {
			indices = append(indices, i)
		}
	}
	return indices
}

func (e *BatchError) Error() string {
	failed := e.Failed()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d batch items failed", len(failed), len(e.Errs))
	for _, i := range failed {
		fmt.Fprintf(&sb, "; item #%d: %v", i, e.Errs[i])
	}
	return sb.String()
}

// Unwrap allows errors.As to reach the errors of the individual items.
func (e *BatchError) Unwrap() []error {
	var errs []error
	for _, err := range e.Errs {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// newBatchError returns nil if no item failed.
func newBatchError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return &BatchError{Errs: errs}
		}
	}
	return nil
}

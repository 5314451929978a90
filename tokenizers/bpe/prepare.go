package bpe

import (
	"github.com/pkg/errors"
)

// ModelInputs are the fixed length numeric inputs of a model for one text.
type ModelInputs struct {
	InputIDs      []int64
	AttentionMask []int64
	PositionIDs   []int64

	// SequenceLength is the number of real (not padding) tokens, after truncation.
	SequenceLength int
}

// BatchInputs are ModelInputs stacked for a batch: each row has the same maxLength.
type BatchInputs struct {
	InputIDs      [][]int64
	AttentionMask [][]int64
	PositionIDs   [][]int64

	SequenceLengths []int
}

// BatchSize returns the number of rows.
func (b *BatchInputs) BatchSize() int { return len(b.InputIDs) }

// PrepareFixedLength encodes text with the end-of-sequence token appended, and truncates (keeping
// the first maxLength ids) or right-pads the result with the pad token to exactly maxLength.
//
// The attention mask is 1 for real tokens and 0 for padding. Position ids count the real tokens
// from 0, and are 0 on padding positions.
func (t *Tokenizer) PrepareFixedLength(text string, maxLength int) (*ModelInputs, error) {
	if maxLength <= 0 {
		return nil, errors.Errorf("PrepareFixedLength requires a positive maxLength, got %d", maxLength)
	}
	ids, err := t.Encode(text, true)
	if err != nil {
		return nil, err
	}
	return t.fixedLength(ids, maxLength), nil
}

func (t *Tokenizer) fixedLength(ids []int, maxLength int) *ModelInputs {
	inputs := &ModelInputs{
		InputIDs:       make([]int64, maxLength),
		AttentionMask:  make([]int64, maxLength),
		PositionIDs:    make([]int64, maxLength),
		SequenceLength: min(len(ids), maxLength),
	}
	for i := range maxLength {
		if i < inputs.SequenceLength {
			inputs.InputIDs[i] = int64(ids[i])
			inputs.AttentionMask[i] = 1
			inputs.PositionIDs[i] = int64(i)
		} else {
			inputs.InputIDs[i] = int64(t.padID)
		}
	}
	return inputs
}

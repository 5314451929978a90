package bpe

import (
	"runtime"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/api"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// forEachParallel calls fn(i) for i in [0, n), in parallel up to the number of CPUs, and collects
// the errors per index.
func forEachParallel(n int, fn func(i int) error) error {
	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range n {
		g.Go(func() error {
			errs[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()
	return newBatchError(errs)
}

// EncodeBatch encodes each text as Encode does, in parallel. Results are in the order of texts.
//
// If some texts fail, the returned error is a *BatchError, their results are nil and the results of
// the other texts are valid.
func (t *Tokenizer) EncodeBatch(texts []string, addEos bool) ([][]int, error) {
	results := make([][]int, len(texts))
	err := forEachParallel(len(texts), func(i int) (err error) {
		results[i], err = t.Encode(texts[i], addEos)
		return
	})
	return results, err
}

// EncodeDetailedBatch is the batch version of EncodeDetailed, see EncodeBatch.
func (t *Tokenizer) EncodeDetailedBatch(texts []string, addEos bool) ([]*api.EncodingResult, error) {
	results := make([]*api.EncodingResult, len(texts))
	err := forEachParallel(len(texts), func(i int) (err error) {
		results[i], err = t.EncodeDetailed(texts[i], addEos)
		return
	})
	return results, err
}

// DecodeBatch decodes each sequence as Decode does, in parallel. It never fails: unknown ids are
// skipped.
func (t *Tokenizer) DecodeBatch(batch [][]int, skipSpecialTokens bool) []string {
	results := make([]string, len(batch))
	_ = forEachParallel(len(batch), func(i int) error {
		results[i] = t.Decode(batch[i], skipSpecialTokens)
		return nil
	})
	return results
}

// PrepareBatch is the batch version of PrepareFixedLength: all rows have maxLength entries.
//
// If some texts fail to encode the error is a *BatchError, and their rows are filled with padding
// (attention mask all 0) so the shape of the batch is preserved.
func (t *Tokenizer) PrepareBatch(texts []string, maxLength int) (*BatchInputs, error) {
	if maxLength <= 0 {
		return nil, errors.Errorf("PrepareBatch requires a positive maxLength, got %d", maxLength)
	}
	rows := make([]*ModelInputs, len(texts))
	err := forEachParallel(len(texts), func(i int) (err error) {
		rows[i], err = t.PrepareFixedLength(texts[i], maxLength)
		return
	})
	batch := &BatchInputs{
		InputIDs:        make([][]int64, len(texts)),
		AttentionMask:   make([][]int64, len(texts)),
		PositionIDs:     make([][]int64, len(texts)),
		SequenceLengths: make([]int, len(texts)),
	}
	for i, row := range rows {
		if row == nil {
			row = t.fixedLength(nil, maxLength)
		}
		batch.InputIDs[i] = row.InputIDs
		batch.AttentionMask[i] = row.AttentionMask
		batch.PositionIDs[i] = row.PositionIDs
		batch.SequenceLengths[i] = row.SequenceLength
	}
	return batch, err
}

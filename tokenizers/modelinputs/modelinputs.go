// Package modelinputs converts the prepared inputs of a tokenizer (bpe.ModelInputs and bpe.BatchInputs)
// to GoMLX tensors, shaped [batch, maxLength], and saves or loads them as safetensors files.
package modelinputs

import (
	"encoding/binary"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/pkg/errors"
)

// Names of the model inputs, as used by the Qwen3 ONNX and safetensors exports.
const (
	InputIDsName      = "input_ids"
	AttentionMaskName = "attention_mask"
	PositionIDsName   = "position_ids"
)

// Tensors holds the model inputs as Int64 tensors of shape [batch, maxLength].
type Tensors struct {
	InputIDs, AttentionMask, PositionIDs *tensors.Tensor
}

// Named is a tensor with its name.
type Named struct {
	Name   string
	Tensor *tensors.Tensor
}

// FromBatch stacks the rows of batch in tensors. All rows must have the same length.
func FromBatch(batch *bpe.BatchInputs) (*Tensors, error) {
	if batch.BatchSize() == 0 {
		return nil, errors.New("cannot convert an empty batch to tensors")
	}
	inputIDs, err := stack(InputIDsName, batch.InputIDs)
	if err != nil {
		return nil, err
	}
	attentionMask, err := stack(AttentionMaskName, batch.AttentionMask)
	if err != nil {
		return nil, err
	}
	positionIDs, err := stack(PositionIDsName, batch.PositionIDs)
	if err != nil {
		return nil, err
	}
	return &Tensors{InputIDs: inputIDs, AttentionMask: attentionMask, PositionIDs: positionIDs}, nil
}

// FromInputs converts the inputs of one text to tensors with a batch dimension of 1.
func FromInputs(inputs *bpe.ModelInputs) *Tensors {
	n := len(inputs.InputIDs)
	return &Tensors{
		InputIDs:      tensors.FromFlatDataAndDimensions(inputs.InputIDs, 1, n),
		AttentionMask: tensors.FromFlatDataAndDimensions(inputs.AttentionMask, 1, n),
		PositionIDs:   tensors.FromFlatDataAndDimensions(inputs.PositionIDs, 1, n),
	}
}

func stack(name string, rows [][]int64) (*tensors.Tensor, error) {
	if len(rows) == 0 {
		return nil, errors.Errorf("%s has no rows", name)
	}
	length := len(rows[0])
	flat := make([]int64, 0, len(rows)*length)
	for i, row := range rows {
		if len(row) != length {
			return nil, errors.Errorf("%s row %d has length %d, but row 0 has length %d", name, i, len(row), length)
		}
		flat = append(flat, row...)
	}
	return tensors.FromFlatDataAndDimensions(flat, len(rows), length), nil
}

// Named returns the tensors with their input names, in the order input_ids, attention_mask, position_ids.
func (t *Tensors) Named() []Named {
	return []Named{
		{InputIDsName, t.InputIDs},
		{AttentionMaskName, t.AttentionMask},
		{PositionIDsName, t.PositionIDs},
	}
}

// Int64s returns a copy of the flat contents of an Int64 tensor.
func Int64s(t *tensors.Tensor) ([]int64, error) {
	if dtype := t.Shape().DType; dtype != dtypes.Int64 {
		return nil, errors.Errorf("expected an Int64 tensor, got %s", dtype)
	}
	values := make([]int64, t.Shape().Size())
	t.MutableBytes(func(data []byte) {
		for i := range values {
			values[i] = int64(binary.NativeEndian.Uint64(data[i*8:]))
		}
	})
	return values, nil
}

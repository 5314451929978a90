package modelinputs

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/qwen3-tokenizer/tokenizers/bpe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBatch() *bpe.BatchInputs {
	return &bpe.BatchInputs{
		InputIDs:        [][]int64{{5, 6, 7}, {8, 0, 0}},
		AttentionMask:   [][]int64{{1, 1, 1}, {1, 0, 0}},
		PositionIDs:     [][]int64{{0, 1, 2}, {0, 1, 2}},
		SequenceLengths: []int{3, 1},
	}
}

func TestFromBatch(t *testing.T) {
	batch, err := FromBatch(testBatch())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, batch.InputIDs.Shape().Dimensions)
	assert.Equal(t, dtypes.Int64, batch.AttentionMask.Shape().DType)

	ids, err := Int64s(batch.InputIDs)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 7, 8, 0, 0}, ids)
	mask, err := Int64s(batch.AttentionMask)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0}, mask)

	names := make([]string, 0, 3)
	for _, nt := range batch.Named() {
		names = append(names, nt.Name)
	}
	assert.Equal(t, []string{"input_ids", "attention_mask", "position_ids"}, names)
}

func TestFromBatchErrors(t *testing.T) {
	_, err := FromBatch(&bpe.BatchInputs{})
	require.Error(t, err)

	ragged := testBatch()
	ragged.PositionIDs[1] = []int64{0}
	_, err = FromBatch(ragged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position_ids row 1")
}

func TestFromInputs(t *testing.T) {
	inputs := FromInputs(&bpe.ModelInputs{
		InputIDs:       []int64{1, 2},
		AttentionMask:  []int64{1, 1},
		PositionIDs:    []int64{0, 1},
		SequenceLength: 2,
	})
	assert.Equal(t, []int{1, 2}, inputs.PositionIDs.Shape().Dimensions)
	positions, err := Int64s(inputs.PositionIDs)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, positions)

	_, err = Int64s(tensors.FromFlatDataAndDimensions([]float32{1}, 1))
	require.Error(t, err)
}

func TestWriteSafetensors(t *testing.T) {
	batch, err := FromBatch(testBatch())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteSafetensors(&buf, batch.Named(), map[string]string{"format": "pt"}))

	content := buf.Bytes()
	headerSize := binary.LittleEndian.Uint64(content[:8])
	assert.Zero(t, headerSize%8)
	assert.Contains(t, string(content[8:8+headerSize]), `"input_ids":{"dtype":"I64","shape":[2,3],"data_offsets":[0,48]}`)
	assert.Len(t, content, 8+int(headerSize)+3*48)

	err = WriteSafetensors(&buf, []Named{{"x", batch.InputIDs}, {"x", batch.AttentionMask}}, nil)
	require.Error(t, err)
	err = WriteSafetensors(&buf, []Named{{"__metadata__", batch.InputIDs}}, nil)
	require.Error(t, err)
}

func TestSaveAndLoadSafetensors(t *testing.T) {
	batch, err := FromBatch(testBatch())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "inputs.safetensors")
	require.NoError(t, SaveSafetensors(path, batch.Named(), map[string]string{"model": "Qwen/Qwen3-0.6B"}))

	named, metadata, err := LoadSafetensors(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"model": "Qwen/Qwen3-0.6B"}, metadata)
	require.Len(t, named, 3)
	assert.Equal(t, PositionIDsName, named[2].Name)
	for i, want := range [][]int64{{5, 6, 7, 8, 0, 0}, {1, 1, 1, 1, 0, 0}, {0, 1, 2, 0, 1, 2}} {
		assert.Equal(t, []int{2, 3}, named[i].Tensor.Shape().Dimensions)
		got, err := Int64s(named[i].Tensor)
		require.NoError(t, err)
		assert.Equal(t, want, got, "tensor %s", named[i].Name)
	}
}

func TestLoadSafetensorsErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, content []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0o644))
		return path
	}
	withHeader := func(header string) []byte {
		buf := binary.LittleEndian.AppendUint64(nil, uint64(len(header)))
		return append(buf, header...)
	}

	_, _, err := LoadSafetensors(filepath.Join(dir, "missing.safetensors"))
	require.Error(t, err)
	_, _, err = LoadSafetensors(write("short.safetensors", []byte{1, 2}))
	require.Error(t, err)
	_, _, err = LoadSafetensors(write("huge.safetensors", binary.LittleEndian.AppendUint64(nil, 1<<40)))
	require.Error(t, err)
	_, _, err = LoadSafetensors(write("json.safetensors", withHeader("{not json")))
	require.Error(t, err)
	_, _, err = LoadSafetensors(write("dtype.safetensors",
		withHeader(`{"x":{"dtype":"F8_E4M3","shape":[1],"data_offsets":[0,1]}}`)))
	require.Error(t, err)
	_, _, err = LoadSafetensors(write("offsets.safetensors",
		withHeader(`{"x":{"dtype":"I64","shape":[2],"data_offsets":[0,8]}}`)))
	require.Error(t, err)
	_, _, err = LoadSafetensors(write("truncated.safetensors",
		withHeader(`{"x":{"dtype":"I64","shape":[1],"data_offsets":[0,8]}} `)))
	require.Error(t, err)
}

package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/gomlx/qwen3-tokenizer/tokenizers/modelinputs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	dir := writeTestTokenizer(t)
	out, err := run(t, "", "--dir", dir, "encode", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "259 260 111 114 108 100\n", out)

	out, err = run(t, "hello\n<think>\n", "--dir", dir, "encode")
	require.NoError(t, err)
	assert.Contains(t, out, "\"hello\"\n259\n")
	assert.Contains(t, out, "\"<think>\"\n302\n")

	out, err = run(t, "", "--dir", dir, "encode", "--tokens", "hello world")
	require.NoError(t, err)
	assert.Contains(t, out, `" w"`)
	assert.Contains(t, out, "[5:7]")

	_, err = run(t, "", "--dir", dir, "encode", "--format=xml", "hello")
	require.Error(t, err)
	_, err = run(t, "", "--dir", dir, "encode", "--offsets=words", "hello")
	require.Error(t, err)
}

func TestEncodeJSON(t *testing.T) {
	dir := writeTestTokenizer(t)
	out, err := run(t, "", "--dir", dir, "encode", "--format=json", "--tokens", "--eos", "hello world")
	require.NoError(t, err)
	var outputs []encodeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &outputs))
	require.Len(t, outputs, 1)
	assert.Equal(t, "hello world", outputs[0].Text)
	assert.Equal(t, append(testHelloWorld, testImEnd), outputs[0].IDs)
	assert.Equal(t, []string{"hello", " w", "o", "r", "l", "d", "<|im_end|>"}, outputs[0].Tokens)
	assert.Equal(t, [][2]int{{0, 5}, {5, 7}, {7, 8}, {8, 9}, {9, 10}, {10, 11}, {11, 11}}, outputs[0].Offsets)

	out, err = run(t, "", "--dir", dir, "encode", "--format=json", "--tokens", "--offsets=utf16", "hello w")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &outputs))
	assert.Equal(t, [][2]int{{0, 5}, {5, 7}}, outputs[0].Offsets)

	// "e" + combining acute is normalized to "é": the offsets refer to the normalized text, and both
	// byte tokens of "é" map to its single rune.
	out, err = run(t, "", "--dir", dir, "encode", "--format=json", "--tokens", "--offsets=runes", "e\u0301")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &outputs))
	assert.Equal(t, "\u00e9", outputs[0].Text)
	assert.Equal(t, []int{0xc3, 0xa9}, outputs[0].IDs)
	assert.Equal(t, [][2]int{{0, 1}, {0, 1}}, outputs[0].Offsets)
}

func TestDecode(t *testing.T) {
	dir := writeTestTokenizer(t)
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"args", "", []string{"259", "260", "111", "114", "108", "100", "301"}, "hello world<|im_end|>\n"},
		{"skip special", "", []string{"--skip-special", "259", "301"}, "hello\n"},
		{"json stdin", "[259, 260]", nil, "hello w\n"},
		{"unknown id skipped", "", []string{"259", "9999"}, "hello\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.stdin, append([]string{"--dir", dir, "decode"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, err := run(t, "", "--dir", dir, "decode", "--strict", "259", "9999")
	require.Error(t, err)
	_, err = run(t, "", "--dir", dir, "decode", "hello")
	require.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" [1, 2,3]\n4 ")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
	ids, err = parseIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, err = parseIDs("1 -2")
	require.Error(t, err)
}

func TestCount(t *testing.T) {
	dir := writeTestTokenizer(t)
	out, err := run(t, "", "--dir", dir, "count", "--format=json", "hello", "hello world")
	require.NoError(t, err)
	var counts countOutput
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, countOutput{Counts: []int{1, 6}, Total: 7}, counts)

	out, err = run(t, "", "--dir", dir, "count", "--eos", "hello", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "2\n7\ntotal: 9\n", out)
}

func TestPrepare(t *testing.T) {
	dir := writeTestTokenizer(t)
	out, err := run(t, "", "--dir", dir, "prepare", "--max-length=4", "--format=json", "hello", "hello world")
	require.NoError(t, err)
	var prepared prepareOutput
	require.NoError(t, json.Unmarshal([]byte(out), &prepared))
	assert.Equal(t, [][]int64{{testHello, testImEnd, testEndOfText, testEndOfText}, {testHello, testSpaceW, 'o', 'r'}},
		prepared.InputIDs)
	assert.Equal(t, [][]int64{{1, 1, 0, 0}, {1, 1, 1, 1}}, prepared.AttentionMask)
	assert.Equal(t, [][]int64{{0, 1, 0, 0}, {0, 1, 2, 3}}, prepared.PositionIDs)
	assert.Equal(t, []int{2, 4}, prepared.SequenceLengths)

	out, err = run(t, "", "--dir", dir, "prepare", "--max-length=3", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "input_ids       259 301 300")
	assert.Contains(t, out, "attention_mask  1 1 0")

	_, err = run(t, "", "--dir", dir, "prepare", "hello")
	require.Error(t, err)
	_, err = run(t, "", "--dir", dir, "prepare", "--max-length=3")
	require.Error(t, err)
}

func TestPrepareSafetensors(t *testing.T) {
	dir := writeTestTokenizer(t)
	output := filepath.Join(t.TempDir(), "inputs.safetensors")
	_, err := run(t, "", "--dir", dir, "prepare", "--max-length=5", "--output", output, "hello", "hello world")
	require.NoError(t, err)

	named, metadata, err := modelinputs.LoadSafetensors(output)
	require.NoError(t, err)
	assert.Equal(t, "5", metadata["max_length"])
	assert.Equal(t, "300", metadata["pad_id"])
	require.Len(t, named, 3)
	assert.Equal(t, modelinputs.InputIDsName, named[0].Name)
	assert.Equal(t, []int{2, 5}, named[0].Tensor.Shape().Dimensions)
	ids, err := modelinputs.Int64s(named[0].Tensor)
	require.NoError(t, err)
	assert.Equal(t, []int64{testHello, testImEnd, testEndOfText, testEndOfText, testEndOfText,
		testHello, testSpaceW, 'o', 'r', 'l'}, ids)
}

func TestInfo(t *testing.T) {
	dir := writeTestTokenizer(t)
	out, err := run(t, "", "--dir", dir, "info", "--format=json")
	require.NoError(t, err)
	var info struct {
		Source      string `json:"source"`
		EOSTokenID  int    `json:"eos_token_id"`
		PadTokenID  int    `json:"pad_token_id"`
		AddedTokens []any  `json:"added_tokens"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, dir, info.Source)
	assert.Equal(t, testImEnd, info.EOSTokenID)
	assert.Equal(t, testEndOfText, info.PadTokenID)
	assert.Len(t, info.AddedTokens, 3)

	out, err = run(t, "", "--dir", dir, "info", "--added")
	require.NoError(t, err)
	assert.Contains(t, out, `eos token: 301 "<|im_end|>"`)
	assert.Contains(t, out, "added tokens: 3 (2 special)")
	assert.Contains(t, out, "<think>")
}

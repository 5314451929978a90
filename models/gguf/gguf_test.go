package gguf

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ggufBuilder constructs a minimal valid GGUF binary for testing.
type ggufBuilder struct {
	buf     []byte
	kvCount int
}

func newGGUFBuilder() *ggufBuilder {
	return &ggufBuilder{}
}

func (b *ggufBuilder) writeUint8(v uint8)   { b.buf = append(b.buf, v) }
func (b *ggufBuilder) writeUint32(v uint32) { b.buf = binary.LittleEndian.AppendUint32(b.buf, v) }
func (b *ggufBuilder) writeUint64(v uint64) { b.buf = binary.LittleEndian.AppendUint64(b.buf, v) }
func (b *ggufBuilder) writeInt32(v int32)   { b.writeUint32(uint32(v)) }

func (b *ggufBuilder) writeString(s string) {
	b.writeUint64(uint64(len(s)))
	b.buf = append(b.buf, s...)
}

func (b *ggufBuilder) writeKey(key string, vtype valueType) {
	b.kvCount++
	b.writeString(key)
	b.writeUint32(uint32(vtype))
}

func (b *ggufBuilder) writeKVString(key, value string) {
	b.writeKey(key, typeString)
	b.writeString(value)
}

func (b *ggufBuilder) writeKVUint32(key string, value uint32) {
	b.writeKey(key, typeUint32)
	b.writeUint32(value)
}

func (b *ggufBuilder) writeKVFloat32(key string, value float32) {
	b.writeKey(key, typeFloat32)
	b.writeUint32(math.Float32bits(value))
}

func (b *ggufBuilder) writeKVBool(key string, value bool) {
	b.writeKey(key, typeBool)
	if value {
		b.writeUint8(1)
	} else {
		b.writeUint8(0)
	}
}

func (b *ggufBuilder) writeKVStringArray(key string, values []string) {
	b.writeKey(key, typeArray)
	b.writeUint32(uint32(typeString))
	b.writeUint64(uint64(len(values)))
	for _, v := range values {
		b.writeString(v)
	}
}

func (b *ggufBuilder) writeKVInt32Array(key string, values []int32) {
	b.writeKey(key, typeArray)
	b.writeUint32(uint32(typeInt32))
	b.writeUint64(uint64(len(values)))
	for _, v := range values {
		b.writeInt32(v)
	}
}

// bytes returns the file contents: the header followed by the key-values written so far.
func (b *ggufBuilder) bytes(version uint32) []byte {
	var header []byte
	header = append(header, "GGUF"...)
	header = binary.LittleEndian.AppendUint32(header, version)
	header = binary.LittleEndian.AppendUint64(header, 0) // tensor count
	header = binary.LittleEndian.AppendUint64(header, uint64(b.kvCount))
	return append(header, b.buf...)
}

// writeFile writes a GGUF v3 file in a temp directory, and returns its path.
func (b *ggufBuilder) writeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gguf")
	require.NoError(t, os.WriteFile(path, b.bytes(3), 0644))
	return path
}

func TestOpenValidFile(t *testing.T) {
	b := newGGUFBuilder()
	b.writeKVString("general.architecture", "qwen3")
	f, err := Open(b.writeFile(t))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), f.Version)
	assert.Len(t, f.KeyValues, 1)
	assert.Equal(t, uint64(0), f.TensorCount)
	assert.Equal(t, "qwen3", f.Architecture())
}

func TestOpenInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gguf")
	require.NoError(t, os.WriteFile(path, []byte("BADx"), 0644))

	_, err := Open(path)
	assert.ErrorContains(t, err, "invalid magic")

	_, err = Open(filepath.Join(t.TempDir(), "missing.gguf"))
	assert.Error(t, err)
}

func TestParseUnsupportedVersion(t *testing.T) {
	_, err := Parse(bytes.NewReader(newGGUFBuilder().bytes(1)))
	assert.ErrorContains(t, err, "unsupported version")
}

func TestParseTruncated(t *testing.T) {
	b := newGGUFBuilder()
	b.writeKVStringArray(KeyTokens, []string{"hello", "world"})
	contents := b.bytes(3)
	_, err := Parse(bytes.NewReader(contents[:len(contents)-3]))
	assert.Error(t, err)
}

func TestMetadataTypes(t *testing.T) {
	b := newGGUFBuilder()
	b.writeKVString("general.architecture", "qwen3")
	b.writeKVUint32("qwen3.block_count", 28)
	b.writeKVBool("tokenizer.ggml.add_bos_token", true)
	b.writeKVFloat32("qwen3.rope.freq_base", 1000000)
	b.writeKVStringArray("tokenizer.ggml.tokens", []string{"hello", "world", "!"})
	b.writeKVInt32Array("tokenizer.ggml.token_type", []int32{1, 1, 3})
	f, err := Parse(bytes.NewReader(b.bytes(3)))
	require.NoError(t, err)

	kv, ok := f.GetKeyValue("general.architecture")
	require.True(t, ok)
	s, err := kv.AsString()
	require.NoError(t, err)
	assert.Equal(t, "qwen3", s)
	assert.Equal(t, "string", kv.TypeName())
	_, err = kv.AsInt()
	assert.ErrorContains(t, err, "expected an integer, got string")
	assert.Equal(t, "qwen3", f.Architecture())

	kv, ok = f.GetKeyValue("qwen3.block_count")
	require.True(t, ok)
	n, err := kv.AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(28), n)
	assert.Equal(t, uint32(28), kv.Raw())

	kv, ok = f.GetKeyValue("tokenizer.ggml.add_bos_token")
	require.True(t, ok)
	flag, err := kv.AsBool()
	require.NoError(t, err)
	assert.True(t, flag)

	kv, ok = f.GetKeyValue("qwen3.rope.freq_base")
	require.True(t, ok)
	freq, err := kv.AsFloat()
	require.NoError(t, err)
	assert.Equal(t, 1000000.0, freq)

	kv, ok = f.GetKeyValue("tokenizer.ggml.tokens")
	require.True(t, ok)
	tokens, err := kv.AsStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world", "!"}, tokens)
	assert.Equal(t, "[]string", kv.TypeName())
	_, err = kv.AsInts()
	assert.Error(t, err)

	kv, ok = f.GetKeyValue("tokenizer.ggml.token_type")
	require.True(t, ok)
	types, err := kv.AsInts()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 3}, types)
	assert.IsType(t, []int32{}, kv.Raw())
	assert.Equal(t, "[]int32", kv.TypeName())

	_, ok = f.GetKeyValue("does.not.exist")
	assert.False(t, ok)
}

// writeTestTokenizer writes a small byte-level BPE tokenizer: 4 symbols, 2 merges and 2 added tokens.
func writeTestTokenizer(b *ggufBuilder) {
	b.writeKVString(KeyTokenizerModel, "gpt2")
	b.writeKVString(KeyTokenizerPre, "qwen2")
	b.writeKVStringArray(KeyTokens, []string{"h", "i", "Ġ", "hi", "Ġhi", "<|endoftext|>", "<think>"})
	b.writeKVInt32Array(KeyTokenTypes, []int32{1, 1, 1, 1, 1, 3, 4})
	b.writeKVStringArray(KeyMerges, []string{"h i", "Ġ hi"})
	b.writeKVUint32(KeyEOSTokenID, 5)
	b.writeKVUint32(KeyPaddingTokenID, 5)
}

func TestReadTokenizer(t *testing.T) {
	b := newGGUFBuilder()
	writeTestTokenizer(b)
	f, err := Open(b.writeFile(t))
	require.NoError(t, err)

	tok, err := f.ReadTokenizer()
	require.NoError(t, err)
	assert.Equal(t, "gpt2", tok.Model)
	assert.True(t, tok.IsQwen())
	assert.Equal(t, 5, tok.EOSTokenID)
	assert.Equal(t, 5, tok.PaddingTokenID)
	assert.Equal(t, -1, tok.UnknownTokenID)

	vocab, err := tok.Vocabulary()
	require.NoError(t, err)
	assert.Equal(t, 7, vocab.Len())
	id, found := vocab.ID("Ġhi")
	assert.True(t, found)
	assert.Equal(t, 4, id)

	ranks, err := tok.MergeRanks()
	require.NoError(t, err)
	rank, found := ranks.Rank("Ġ", "hi")
	assert.True(t, found)
	assert.Equal(t, 1, rank)

	added := tok.AddedTokens()
	require.Len(t, added, 2)
	assert.Equal(t, "<|endoftext|>", added[0].Content)
	assert.Equal(t, 5, added[0].ID)
	assert.True(t, added[0].Special)
	assert.Equal(t, "<think>", added[1].Content)
	assert.False(t, added[1].Special)
}

func TestReadTokenizerErrors(t *testing.T) {
	tests := []struct {
		name  string
		write func(b *ggufBuilder)
		want  string
	}{
		{"no tokens", func(b *ggufBuilder) {
			b.writeKVStringArray(KeyMerges, []string{"a b"})
		}, KeyTokens},
		{"no merges", func(b *ggufBuilder) {
			b.writeKVStringArray(KeyTokens, []string{"a", "b"})
		}, KeyMerges},
		{"sentencepiece model", func(b *ggufBuilder) {
			b.writeKVString(KeyTokenizerModel, "llama")
		}, "not supported"},
		{"token types mismatch", func(b *ggufBuilder) {
			b.writeKVStringArray(KeyTokens, []string{"a", "b"})
			b.writeKVStringArray(KeyMerges, []string{"a b"})
			b.writeKVInt32Array(KeyTokenTypes, []int32{1})
		}, KeyTokenTypes},
		{"eos out of range", func(b *ggufBuilder) {
			b.writeKVStringArray(KeyTokens, []string{"a", "b"})
			b.writeKVStringArray(KeyMerges, []string{"a b"})
			b.writeKVUint32(KeyEOSTokenID, 2)
		}, "out of range"},
		{"eos not an integer", func(b *ggufBuilder) {
			b.writeKVStringArray(KeyTokens, []string{"a", "b"})
			b.writeKVStringArray(KeyMerges, []string{"a b"})
			b.writeKVString(KeyEOSTokenID, "b")
		}, "not an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newGGUFBuilder()
			tt.write(b)
			f, err := Parse(bytes.NewReader(b.bytes(3)))
			require.NoError(t, err)
			_, err = f.ReadTokenizer()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

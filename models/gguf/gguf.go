// Package gguf reads the metadata of GGUF files, the llama.cpp model format, which embeds the
// tokenizer of the model: its tokens, merges and special token ids.
//
// Only the header and the key-value metadata are parsed: tensor information and data are not read.
package gguf

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

const (
	ggufMagic           = "GGUF"
	minSupportedVersion = 2

	// maxStringLength is a sanity check for a single string.
	maxStringLength = 1 << 20

	// maxArrayLength is a sanity check for the number of elements of an array, and of key-values.
	maxArrayLength = 1 << 24
)

// File is the parsed metadata of a GGUF file. Create one with Open or Parse.
type File struct {
	// Version of the GGUF format, 2 or 3.
	Version uint32

	// TensorCount is the number of tensors in the file. Their information is not parsed.
	TensorCount uint64

	// KeyValues in file order.
	KeyValues []KeyValue

	index map[string]int
}

// Open memory-maps the GGUF file and parses its metadata. The file is closed before returning.
func Open(path string) (*File, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "gguf: failed to mmap %s", path)
	}
	defer func() { _ = reader.Close() }()
	f, err := Parse(io.NewSectionReader(reader, 0, int64(reader.Len())))
	if err != nil {
		return nil, errors.WithMessagef(err, "gguf: while parsing %s", path)
	}
	return f, nil
}

// Parse reads the GGUF header and metadata from r. It stops at the first tensor information.
func Parse(r io.Reader) (*File, error) {
	d := &decoder{r: bufio.NewReader(r)}
	magic, err := d.fixed(len(ggufMagic))
	if err != nil {
		return nil, errors.WithMessage(err, "gguf: failed to read magic")
	}
	if string(magic) != ggufMagic {
		return nil, errors.Errorf("gguf: invalid magic %q, expected %q", magic, ggufMagic)
	}

	file := &File{}
	if file.Version, err = d.uint32(); err != nil {
		return nil, errors.WithMessage(err, "gguf: failed to read version")
	}
	if file.Version < minSupportedVersion {
		return nil, errors.Errorf("gguf: unsupported version %d (minimum %d)", file.Version, minSupportedVersion)
	}
	if file.TensorCount, err = d.uint64(); err != nil {
		return nil, errors.WithMessage(err, "gguf: failed to read tensor count")
	}
	numKeyValues, err := d.uint64()
	if err != nil {
		return nil, errors.WithMessage(err, "gguf: failed to read number of key-values")
	}
	if numKeyValues > maxArrayLength {
		return nil, errors.Errorf("gguf: %d key-values is too many", numKeyValues)
	}

	file.KeyValues = make([]KeyValue, numKeyValues)
	file.index = make(map[string]int, numKeyValues)
	for i := range file.KeyValues {
		kv := &file.KeyValues[i]
		if kv.Key, err = d.string(); err != nil {
			return nil, errors.WithMessagef(err, "gguf: key-value #%d", i)
		}
		if kv.Value, err = d.taggedValue(); err != nil {
			return nil, errors.WithMessagef(err, "gguf: key %q", kv.Key)
		}
		file.index[kv.Key] = i
	}
	return file, nil
}

// GetKeyValue looks up a metadata key-value pair by its key.
func (f *File) GetKeyValue(key string) (KeyValue, bool) {
	i, found := f.index[key]
	if !found {
		return KeyValue{}, false
	}
	return f.KeyValues[i], true
}

// Architecture returns the "general.architecture" of the model, e.g. "qwen3", or "" if not set.
func (f *File) Architecture() string {
	kv, _ := f.GetKeyValue("general.architecture")
	arch, _ := kv.AsString()
	return arch
}

// decoder reads the little-endian GGUF encoding.
type decoder struct {
	r       *bufio.Reader
	scratch [8]byte
}

// fixed reads n <= 8 bytes into a scratch buffer, valid until the next read.
func (d *decoder) fixed(n int) ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.scratch[:n]); err != nil {
		return nil, errors.WithStack(err)
	}
	return d.scratch[:n], nil
}

func (d *decoder) uint32() (uint32, error) {
	b, err := d.fixed(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) uint64() (uint64, error) {
	b, err := d.fixed(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// string reads a uint64 length followed by the bytes of the string.
func (d *decoder) string() (string, error) {
	length, err := d.uint64()
	if err != nil {
		return "", errors.WithMessage(err, "failed to read string length")
	}
	if length > maxStringLength {
		return "", errors.Errorf("string of %d bytes is over the %d limit", length, maxStringLength)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", errors.Wrapf(err, "failed to read string of %d bytes", length)
	}
	return string(buf), nil
}

// taggedValue reads the uint32 type tag of a value, and then the value.
func (d *decoder) taggedValue() (Value, error) {
	tag, err := d.uint32()
	if err != nil {
		return Value{}, errors.WithMessage(err, "failed to read value type")
	}
	typ := valueType(tag)
	if typ == typeArray {
		return d.array()
	}
	info, found := valueTypes[typ]
	if !found {
		return Value{}, errors.Errorf("unknown value type %d", tag)
	}
	data, err := info.read(d)
	if err != nil {
		return Value{}, errors.WithMessagef(err, "failed to read %s", info.name)
	}
	return Value{data: data, typ: typ}, nil
}

// array reads the uint32 element type and uint64 length of an array, followed by its elements.
// Arrays of arrays are not supported.
func (d *decoder) array() (Value, error) {
	tag, err := d.uint32()
	if err != nil {
		return Value{}, errors.WithMessage(err, "failed to read array element type")
	}
	length, err := d.uint64()
	if err != nil {
		return Value{}, errors.WithMessage(err, "failed to read array length")
	}
	if length > maxArrayLength {
		return Value{}, errors.Errorf("array of %d elements is over the %d limit", length, maxArrayLength)
	}
	elem := valueType(tag)
	info, found := valueTypes[elem]
	if !found {
		return Value{}, errors.Errorf("unsupported array element type %d", tag)
	}
	data, err := info.readArray(d, int(length))
	if err != nil {
		return Value{}, errors.WithMessagef(err, "failed to read array of %d %s", length, info.name)
	}
	return Value{data: data, typ: typeArray, elem: elem}, nil
}

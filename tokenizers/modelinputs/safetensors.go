package modelinputs

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// Safetensors format:
//
//	[8 bytes: header size as little-endian u64]
//	[header_size bytes: JSON header, padded with spaces to a multiple of 8]
//	[remaining bytes: tensor data, little-endian]

// tensorHeader is the header entry of one tensor.
type tensorHeader struct {
	Dtype       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

const metadataKey = "__metadata__"

// maxHeaderSize is a sanity check on the header of files being read.
const maxHeaderSize = 100 * 1024 * 1024

var safetensorsDTypes = map[dtypes.DType]string{
	dtypes.Int64:   "I64",
	dtypes.Int32:   "I32",
	dtypes.Float32: "F32",
	dtypes.Float64: "F64",
}

func dtypeFromSafetensors(name string) (dtypes.DType, error) {
	for dtype, stName := range safetensorsDTypes {
		if stName == name {
			return dtype, nil
		}
	}
	return dtypes.InvalidDType, errors.Errorf("dtype %q not supported", name)
}

// WriteSafetensors writes the tensors in the safetensors format, with the optional metadata.
func WriteSafetensors(w io.Writer, named []Named, metadata map[string]string) error {
	header := make(map[string]any, len(named)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	var offset int64
	for _, nt := range named {
		if nt.Name == metadataKey {
			return errors.Errorf("tensor name %q is reserved", metadataKey)
		}
		if _, found := header[nt.Name]; found {
			return errors.Errorf("tensor name %q used twice", nt.Name)
		}
		shape := nt.Tensor.Shape()
		stDtype, found := safetensorsDTypes[shape.DType]
		if !found {
			return errors.Errorf("tensor %q has dtype %s, not supported", nt.Name, shape.DType)
		}
		size := int64(shape.Size()) * int64(shape.DType.Size())
		header[nt.Name] = tensorHeader{
			Dtype:       stDtype,
			Shape:       slices.Clone(shape.Dimensions),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to encode safetensors header")
	}
	if pad := len(headerJSON) % 8; pad != 0 {
		headerJSON = append(headerJSON, bytes.Repeat([]byte{' '}, 8-pad)...)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "failed to write safetensors header size")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write safetensors header")
	}
	for _, nt := range named {
		var writeErr error
		nt.Tensor.MutableBytes(func(data []byte) {
			_, writeErr = w.Write(data)
		})
		if writeErr != nil {
			return errors.Wrapf(writeErr, "failed to write tensor %q", nt.Name)
		}
	}
	return nil
}

// SaveSafetensors writes the tensors to a safetensors file at path.
func SaveSafetensors(path string, named []Named, metadata map[string]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close %q", path)
		}
	}()
	return WriteSafetensors(f, named, metadata)
}

// LoadSafetensors reads all the tensors of the safetensors file at path, memory-mapping it.
// Tensors are returned in the order of their data in the file.
func LoadSafetensors(path string) ([]Named, map[string]string, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to mmap %s", path)
	}
	defer func() { _ = reader.Close() }()

	var sizeBytes [8]byte
	if _, err := reader.ReadAt(sizeBytes[:], 0); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read header size of %s", path)
	}
	headerSize := binary.LittleEndian.Uint64(sizeBytes[:])
	if headerSize > maxHeaderSize || int64(headerSize)+8 > int64(reader.Len()) {
		return nil, nil, errors.Errorf("invalid header size %d in %s", headerSize, path)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := reader.ReadAt(headerJSON, 8); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read header of %s", path)
	}
	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &rawHeader); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to parse header JSON of %s", path)
	}

	var metadata map[string]string
	type entry struct {
		name   string
		header tensorHeader
	}
	entries := make([]entry, 0, len(rawHeader))
	for key, value := range rawHeader {
		if key == metadataKey {
			if err := json.Unmarshal(value, &metadata); err != nil {
				return nil, nil, errors.Wrapf(err, "failed to parse %s of %s", metadataKey, path)
			}
			continue
		}
		e := entry{name: key}
		if err := json.Unmarshal(value, &e.header); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to parse tensor metadata for %s", key)
		}
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.header.DataOffsets[0], b.header.DataOffsets[0])
	})

	dataOffset := int64(8 + headerSize)
	named := make([]Named, 0, len(entries))
	for _, e := range entries {
		dtype, err := dtypeFromSafetensors(e.header.Dtype)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "tensor %s", e.name)
		}
		t := tensors.FromShape(shapes.Make(dtype, e.header.Shape...))
		start, end := e.header.DataOffsets[0], e.header.DataOffsets[1]
		var readErr error
		t.MutableBytes(func(data []byte) {
			if int64(len(data)) != end-start {
				readErr = errors.Errorf("tensor %s of shape %s expected %d bytes, but data offsets give %d bytes",
					e.name, t.Shape(), len(data), end-start)
				return
			}
			n, err := reader.ReadAt(data, dataOffset+start)
			if n < len(data) {
				readErr = errors.Errorf("failed to read tensor %s: got %d of %d bytes (%v)", e.name, n, len(data), err)
			}
		})
		if readErr != nil {
			return nil, nil, readErr
		}
		named = append(named, Named{Name: e.name, Tensor: t})
	}
	return named, metadata, nil
}

package gguf

import (
	"encoding/binary"
	"io"
	"math"
	"reflect"

	"github.com/pkg/errors"
)

// valueType is the type tag of a metadata value in the file.
type valueType uint32

const (
	typeUint8 valueType = iota
	typeInt8
	typeUint16
	typeInt16
	typeUint32
	typeInt32
	typeFloat32
	typeBool
	typeString
	typeArray
	typeUint64
	typeInt64
	typeFloat64
)

// typeInfo describes how to read the scalar types, alone or as elements of an array.
type typeInfo struct {
	name      string
	read      func(d *decoder) (any, error)
	readArray func(d *decoder, length int) (any, error)
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func numericType[T number](name string) typeInfo {
	return typeInfo{
		name: name,
		read: func(d *decoder) (any, error) {
			var v T
			err := binary.Read(d.r, binary.LittleEndian, &v)
			return v, errors.WithStack(err)
		},
		readArray: func(d *decoder, length int) (any, error) {
			values := make([]T, length)
			err := binary.Read(d.r, binary.LittleEndian, values)
			return values, errors.WithStack(err)
		},
	}
}

var valueTypes = map[valueType]typeInfo{
	typeUint8:   numericType[uint8]("uint8"),
	typeInt8:    numericType[int8]("int8"),
	typeUint16:  numericType[uint16]("uint16"),
	typeInt16:   numericType[int16]("int16"),
	typeUint32:  numericType[uint32]("uint32"),
	typeInt32:   numericType[int32]("int32"),
	typeUint64:  numericType[uint64]("uint64"),
	typeInt64:   numericType[int64]("int64"),
	typeFloat32: numericType[float32]("float32"),
	typeFloat64: numericType[float64]("float64"),
	typeBool: {
		name: "bool",
		read: func(d *decoder) (any, error) {
			b, err := d.fixed(1)
			if err != nil {
				return nil, err
			}
			return b[0] != 0, nil
		},
		readArray: func(d *decoder, length int) (any, error) {
			raw := make([]byte, length)
			if _, err := io.ReadFull(d.r, raw); err != nil {
				return nil, errors.WithStack(err)
			}
			values := make([]bool, length)
			for i, b := range raw {
				values[i] = b != 0
			}
			return values, nil
		},
	},
	typeString: {
		name: "string",
		read: func(d *decoder) (any, error) { return d.string() },
		readArray: func(d *decoder, length int) (any, error) {
			values := make([]string, length)
			for i := range values {
				var err error
				if values[i], err = d.string(); err != nil {
					return nil, errors.WithMessagef(err, "element #%d", i)
				}
			}
			return values, nil
		},
	},
}

// KeyValue is one metadata entry of a GGUF file.
type KeyValue struct {
	Key string
	Value
}

// Value of a metadata entry: a scalar, or an array of scalars of one type.
// The As* accessors fail if the value is not of the requested kind.
type Value struct {
	data      any
	typ, elem valueType
}

// Raw returns the value as read: a Go scalar or slice of the GGUF type.
func (v Value) Raw() any {
	return v.data
}

// TypeName returns the GGUF type of the value, e.g. "uint32" or "[]string".
func (v Value) TypeName() string {
	switch {
	case v.data == nil:
		return "no value"
	case v.typ == typeArray:
		return "[]" + valueTypes[v.elem].name
	default:
		return valueTypes[v.typ].name
	}
}

func (v Value) kindError(expected string) error {
	return errors.Errorf("expected %s, got %s", expected, v.TypeName())
}

// AsString returns a string value.
func (v Value) AsString() (string, error) {
	if s, ok := v.data.(string); ok {
		return s, nil
	}
	return "", v.kindError("a string")
}

// AsStrings returns an array of strings.
func (v Value) AsStrings() ([]string, error) {
	if s, ok := v.data.([]string); ok {
		return s, nil
	}
	return nil, v.kindError("an array of strings")
}

// AsBool returns a bool value.
func (v Value) AsBool() (bool, error) {
	if b, ok := v.data.(bool); ok {
		return b, nil
	}
	return false, v.kindError("a bool")
}

// AsFloat returns a float32 or float64 value as a float64.
func (v Value) AsFloat() (float64, error) {
	switch f := v.data.(type) {
	case float32:
		return float64(f), nil
	case float64:
		return f, nil
	}
	return 0, v.kindError("a float")
}

// AsInt returns an integer value of any size as an int64. It fails for uint64 values over
// math.MaxInt64.
func (v Value) AsInt() (int64, error) {
	if n, ok := toInt64(reflect.ValueOf(v.data)); ok {
		return n, nil
	}
	return 0, v.kindError("an integer")
}

// AsInts returns an array of integers of any size as int64s.
func (v Value) AsInts() ([]int64, error) {
	if v.typ != typeArray {
		return nil, v.kindError("an array of integers")
	}
	rv := reflect.ValueOf(v.data)
	ints := make([]int64, rv.Len())
	for i := range ints {
		n, ok := toInt64(rv.Index(i))
		if !ok {
			return nil, v.kindError("an array of integers")
		}
		ints[i] = n
	}
	return ints, nil
}

func toInt64(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		return int64(u), u <= math.MaxInt64
	}
	return 0, false
}

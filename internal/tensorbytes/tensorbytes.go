// Package tensorbytes flattens Go scalars and nested slices into the
// row-major little-endian byte layout the native engine expects for tensor
// contents.
package tensorbytes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
)

// DataType is the native engine's element type code.
type DataType int32

const (
	Float  DataType = 1
	Double DataType = 2
	Int32  DataType = 3
	UInt8  DataType = 4
	Int16  DataType = 5
	Int8   DataType = 6
	String DataType = 7
	Int64  DataType = 9
	Bool   DataType = 10
	UInt16 DataType = 17
	UInt32 DataType = 22
	UInt64 DataType = 23
)

func (d DataType) String() string {
	switch d {
	case Float:
		return "float32"
	case Double:
		return "float64"
	case Int32:
		return "int32"
	case UInt8:
		return "uint8"
	case Int16:
		return "int16"
	case Int8:
		return "int8"
	case String:
		return "string"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	}
	return fmt.Sprintf("DataType(%d)", int32(d))
}

// Size returns the encoded size of one element, or 0 for variable-length
// types.
func (d DataType) Size() int {
	switch d {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Float, Int32, UInt32:
		return 4
	case Double, Int64, UInt64:
		return 8
	}
	return 0
}

var (
	ErrUnsupported = errors.New("tensorbytes: unsupported element type")
	ErrRagged      = errors.New("tensorbytes: ragged nested slice")
)

// Tensor is an encoded value.
type Tensor struct {
	DataType DataType
	Shape    []int64
	Data     []byte
}

// NumElements returns the product of the shape's dimensions.
func (t *Tensor) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Encode flattens v, a scalar or a (possibly nested) slice or array of
// bools, sized integers, floats or strings. Go's int and uint are encoded
// as 64-bit. Strings are written as a uvarint length followed by the bytes.
func Encode(v any) (*Tensor, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil", ErrUnsupported)
	}

	shape, elem := shapeOf(rv)
	dtype, ok := dataTypeOf(elem)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, elem)
	}

	t := &Tensor{DataType: dtype, Shape: shape}
	if size := dtype.Size(); size > 0 {
		t.Data = make([]byte, 0, int(t.NumElements())*size)
	}
	var err error
	t.Data, err = appendValue(t.Data, rv, shape)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// shapeOf walks the first element of each nesting level. Empty slices
// contribute a zero dimension and stop the walk.
func shapeOf(v reflect.Value) ([]int64, reflect.Type) {
	shape := []int64{}
	for isList(v.Kind()) {
		shape = append(shape, int64(v.Len()))
		if v.Len() == 0 {
			t := v.Type().Elem()
			for isList(t.Kind()) {
				if t.Kind() == reflect.Array {
					shape = append(shape, int64(t.Len()))
				} else {
					shape = append(shape, 0)
				}
				t = t.Elem()
			}
			return shape, t
		}
		v = v.Index(0)
	}
	return shape, v.Type()
}

func isList(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array
}

func dataTypeOf(t reflect.Type) (DataType, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return Bool, true
	case reflect.Int8:
		return Int8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Int64, reflect.Int:
		return Int64, true
	case reflect.Uint8:
		return UInt8, true
	case reflect.Uint16:
		return UInt16, true
	case reflect.Uint32:
		return UInt32, true
	case reflect.Uint64, reflect.Uint:
		return UInt64, true
	case reflect.Float32:
		return Float, true
	case reflect.Float64:
		return Double, true
	case reflect.String:
		return String, true
	}
	return 0, false
}

func appendValue(buf []byte, v reflect.Value, shape []int64) ([]byte, error) {
	if len(shape) > 0 {
		if int64(v.Len()) != shape[0] {
			return nil, fmt.Errorf("%w: expected length %d, got %d", ErrRagged, shape[0], v.Len())
		}
		var err error
		for i := 0; i < v.Len(); i++ {
			if buf, err = appendValue(buf, v.Index(i), shape[1:]); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	if isList(v.Kind()) {
		return nil, fmt.Errorf("%w: unexpected nesting", ErrRagged)
	}

	le := binary.LittleEndian
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case reflect.Int8:
		return append(buf, byte(v.Int())), nil
	case reflect.Int16:
		return le.AppendUint16(buf, uint16(v.Int())), nil
	case reflect.Int32:
		return le.AppendUint32(buf, uint32(v.Int())), nil
	case reflect.Int64, reflect.Int:
		return le.AppendUint64(buf, uint64(v.Int())), nil
	case reflect.Uint8:
		return append(buf, byte(v.Uint())), nil
	case reflect.Uint16:
		return le.AppendUint16(buf, uint16(v.Uint())), nil
	case reflect.Uint32:
		return le.AppendUint32(buf, uint32(v.Uint())), nil
	case reflect.Uint64, reflect.Uint:
		return le.AppendUint64(buf, v.Uint()), nil
	case reflect.Float32:
		return le.AppendUint32(buf, math.Float32bits(float32(v.Float()))), nil
	case reflect.Float64:
		return le.AppendUint64(buf, math.Float64bits(v.Float())), nil
	case reflect.String:
		s := v.String()
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		return append(buf, s...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, v.Type())
}

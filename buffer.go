package deker

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// byteOrder is the wire convention for every buffer marshal/unmarshal: big
// endian throughout, independent of host architecture.
var byteOrder = binary.BigEndian

// Buffer is a dense, typed N-dimensional buffer. Exactly one of the typed
// slices below is populated, selected by DType, giving every read/update
// path a single monomorphic branch instead of a fully dynamic element
// accessor.
//
// Go has no native float16/float128/complex256; those kinds are carried in
// the nearest native representation (float32, float64, complex128
// respectively), each in its own typed slice (F16, F128, C256).
type Buffer struct {
	DType ElementType
	Shape []int

	I8  []int8
	I16 []int16
	I32 []int32
	I64 []int64

	F16 []float32 // Float16 stored widened
	F32 []float32
	F64 []float64
	F128 []float64 // Float128 stored widened

	C64  []complex64
	C128 []complex128
	C256 []complex128 // Complex256 stored widened
}

// NElements returns product(shape).
func NElements(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// NewFilledBuffer allocates a Buffer of the given dtype/shape with every
// cell set to fill.
func NewFilledBuffer(dtype ElementType, shape []int, fill float64) *Buffer {
	n := NElements(shape)
	b := &Buffer{DType: dtype, Shape: append([]int(nil), shape...)}
	switch dtype {
	case Int8:
		b.I8 = make([]int8, n)
		fillSlice(b.I8, int8(fill))
	case Int16:
		b.I16 = make([]int16, n)
		fillSlice(b.I16, int16(fill))
	case Int32:
		b.I32 = make([]int32, n)
		fillSlice(b.I32, int32(fill))
	case Int64:
		b.I64 = make([]int64, n)
		fillSlice(b.I64, int64(fill))
	case Float16:
		b.F16 = make([]float32, n)
		fillSlice(b.F16, float32(fill))
	case Float32:
		b.F32 = make([]float32, n)
		fillSlice(b.F32, float32(fill))
	case Float64:
		b.F64 = make([]float64, n)
		fillSlice(b.F64, fill)
	case Float128:
		b.F128 = make([]float64, n)
		fillSlice(b.F128, fill)
	case Complex64:
		b.C64 = make([]complex64, n)
		fillSlice(b.C64, complex(float32(fill), 0))
	case Complex128:
		b.C128 = make([]complex128, n)
		fillSlice(b.C128, complex(fill, 0))
	case Complex256:
		b.C256 = make([]complex128, n)
		fillSlice(b.C256, complex(fill, 0))
	}
	return b
}

func fillSlice[T any](s []T, v T) {
	for i := range s {
		s[i] = v
	}
}

// Len returns the number of populated elements, independent of dtype.
func (b *Buffer) Len() int {
	switch b.DType {
	case Int8:
		return len(b.I8)
	case Int16:
		return len(b.I16)
	case Int32:
		return len(b.I32)
	case Int64:
		return len(b.I64)
	case Float16:
		return len(b.F16)
	case Float32:
		return len(b.F32)
	case Float64:
		return len(b.F64)
	case Float128:
		return len(b.F128)
	case Complex64:
		return len(b.C64)
	case Complex128:
		return len(b.C128)
	case Complex256:
		return len(b.C256)
	default:
		return 0
	}
}

// ConvertTo widens b into a new Buffer of dtype dst, per the Array core's
// "losslessly convertible" buffer rule. Returns a dtype-mismatch
// error if dst cannot losslessly hold every value representable in b.DType.
func (b *Buffer) ConvertTo(dst ElementType) (*Buffer, error) {
	if b.DType == dst {
		return b, nil
	}
	if !dst.widensFrom(b.DType) {
		return nil, errDtype(fmt.Sprintf("cannot convert buffer of dtype %s to %s", b.DType, dst), nil)
	}

	out := &Buffer{DType: dst, Shape: b.Shape}
	n := b.Len()

	asFloat64 := func(i int) float64 {
		switch b.DType {
		case Int8:
			return float64(b.I8[i])
		case Int16:
			return float64(b.I16[i])
		case Int32:
			return float64(b.I32[i])
		case Int64:
			return float64(b.I64[i])
		case Float16:
			return float64(b.F16[i])
		case Float32:
			return float64(b.F32[i])
		case Float64:
			return b.F64[i]
		case Float128:
			return b.F128[i]
		}
		return 0
	}

	switch dst {
	case Int16:
		out.I16 = make([]int16, n)
		for i := 0; i < n; i++ {
			out.I16[i] = int16(asFloat64(i))
		}
	case Int32:
		out.I32 = make([]int32, n)
		for i := 0; i < n; i++ {
			out.I32[i] = int32(asFloat64(i))
		}
	case Int64:
		out.I64 = make([]int64, n)
		for i := 0; i < n; i++ {
			out.I64[i] = int64(asFloat64(i))
		}
	case Float32:
		out.F32 = make([]float32, n)
		for i := 0; i < n; i++ {
			out.F32[i] = float32(asFloat64(i))
		}
	case Float64:
		out.F64 = make([]float64, n)
		for i := 0; i < n; i++ {
			out.F64[i] = asFloat64(i)
		}
	case Float128:
		out.F128 = make([]float64, n)
		for i := 0; i < n; i++ {
			out.F128[i] = asFloat64(i)
		}
	case Complex64:
		out.C64 = make([]complex64, n)
		switch b.DType {
		case Complex64:
			copy(out.C64, b.C64)
		default:
			for i := 0; i < n; i++ {
				out.C64[i] = complex(float32(asFloat64(i)), 0)
			}
		}
	case Complex128:
		out.C128 = make([]complex128, n)
		switch b.DType {
		case Complex64:
			for i, v := range b.C64 {
				out.C128[i] = complex128(v)
			}
		case Complex128:
			copy(out.C128, b.C128)
		default:
			for i := 0; i < n; i++ {
				out.C128[i] = complex(asFloat64(i), 0)
			}
		}
	case Complex256:
		out.C256 = make([]complex128, n)
		switch b.DType {
		case Complex64:
			for i, v := range b.C64 {
				out.C256[i] = complex128(v)
			}
		case Complex128:
			copy(out.C256, b.C128)
		case Complex256:
			copy(out.C256, b.C256)
		default:
			for i := 0; i < n; i++ {
				out.C256[i] = complex(asFloat64(i), 0)
			}
		}
	default:
		return nil, errDtype(fmt.Sprintf("unsupported widening target %s", dst), nil)
	}

	return out, nil
}

// MarshalBinary encodes the buffer's populated slice as big-endian bytes,
// the wire/disk representation handed to a storage adapter's write path.
func (b *Buffer) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	switch b.DType {
	case Int8:
		err = binary.Write(buf, byteOrder, b.I8)
	case Int16:
		err = binary.Write(buf, byteOrder, b.I16)
	case Int32:
		err = binary.Write(buf, byteOrder, b.I32)
	case Int64:
		err = binary.Write(buf, byteOrder, b.I64)
	case Float16, Float32:
		s := b.F32
		if b.DType == Float16 {
			s = b.F16
		}
		err = binary.Write(buf, byteOrder, s)
	case Float64, Float128:
		s := b.F64
		if b.DType == Float128 {
			s = b.F128
		}
		err = binary.Write(buf, byteOrder, s)
	case Complex64:
		err = binary.Write(buf, byteOrder, b.C64)
	case Complex128, Complex256:
		s := b.C128
		if b.DType == Complex256 {
			s = b.C256
		}
		err = binary.Write(buf, byteOrder, s)
	default:
		return nil, errDtype(fmt.Sprintf("cannot marshal dtype %s", b.DType), nil)
	}
	if err != nil {
		return nil, errIO("error marshaling buffer", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBuffer decodes raw big-endian bytes into a typed Buffer of the
// given dtype/shape.
func UnmarshalBuffer(dtype ElementType, shape []int, raw []byte) (*Buffer, error) {
	n := NElements(shape)
	b := &Buffer{DType: dtype, Shape: append([]int(nil), shape...)}
	r := bytes.NewReader(raw)
	var err error
	switch dtype {
	case Int8:
		b.I8 = make([]int8, n)
		err = binary.Read(r, byteOrder, b.I8)
	case Int16:
		b.I16 = make([]int16, n)
		err = binary.Read(r, byteOrder, b.I16)
	case Int32:
		b.I32 = make([]int32, n)
		err = binary.Read(r, byteOrder, b.I32)
	case Int64:
		b.I64 = make([]int64, n)
		err = binary.Read(r, byteOrder, b.I64)
	case Float16:
		b.F16 = make([]float32, n)
		err = binary.Read(r, byteOrder, b.F16)
	case Float32:
		b.F32 = make([]float32, n)
		err = binary.Read(r, byteOrder, b.F32)
	case Float64:
		b.F64 = make([]float64, n)
		err = binary.Read(r, byteOrder, b.F64)
	case Float128:
		b.F128 = make([]float64, n)
		err = binary.Read(r, byteOrder, b.F128)
	case Complex64:
		b.C64 = make([]complex64, n)
		err = binary.Read(r, byteOrder, b.C64)
	case Complex128:
		b.C128 = make([]complex128, n)
		err = binary.Read(r, byteOrder, b.C128)
	case Complex256:
		b.C256 = make([]complex128, n)
		err = binary.Read(r, byteOrder, b.C256)
	default:
		return nil, errDtype(fmt.Sprintf("cannot unmarshal dtype %s", dtype), nil)
	}
	if err != nil {
		return nil, errIO("error unmarshaling buffer", err)
	}
	return b, nil
}

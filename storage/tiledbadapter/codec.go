package tiledbadapter

import (
	"encoding/binary"
	"math"
	"path/filepath"
)

func osDir(path string) string {
	return filepath.Dir(path)
}

// rawAsElements decodes the big-endian wire bytes raw into the native typed
// slice TileDB's SetBuffer expects for dtype, and arranges for Read to
// re-encode that slice back into raw's big-endian bytes after Submit fills
// it in place. int8 and the three complex dtypes are not decoded: their
// raw big-endian bytes are handed to TileDB unchanged (the complex dtypes
// as a uint8 attribute, matching dtypeMap's UINT8 mapping for them).
func rawAsElements(dtype string, raw []byte) any {
	switch dtype {
	case "int8":
		return raw // TILEDB has no INT8 passthrough distinct from byte storage here
	case "int16":
		return decodeInt16(raw)
	case "int32":
		return decodeInt32(raw)
	case "int64":
		return decodeInt64(raw)
	case "float16", "float32":
		return decodeFloat32(raw)
	case "float64", "float128":
		return decodeFloat64(raw)
	case "complex64", "complex128", "complex256":
		return raw
	default:
		return raw
	}
}

func decodeInt16(raw []byte) []int16 {
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(raw[i*2:]))
	}
	return out
}

func decodeInt32(raw []byte) []int32 {
	out := make([]int32, len(raw)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
	}
	return out
}

func decodeInt64(raw []byte) []int64 {
	out := make([]int64, len(raw)/8)
	for i := range out {
		out[i] = int64(binary.BigEndian.Uint64(raw[i*8:]))
	}
	return out
}

func decodeFloat32(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[i*4:]))
	}
	return out
}

func decodeFloat64(raw []byte) []float64 {
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[i*8:]))
	}
	return out
}

// encodeElementsInto re-encodes the native typed slice TileDB filled during
// Submit back into raw's big-endian wire bytes, undoing rawAsElements. A
// no-op for the dtypes rawAsElements passed raw through unchanged.
func encodeElementsInto(dtype string, elems any, raw []byte) {
	switch v := elems.(type) {
	case []int16:
		for i, x := range v {
			binary.BigEndian.PutUint16(raw[i*2:], uint16(x))
		}
	case []int32:
		for i, x := range v {
			binary.BigEndian.PutUint32(raw[i*4:], uint32(x))
		}
	case []int64:
		for i, x := range v {
			binary.BigEndian.PutUint64(raw[i*8:], uint64(x))
		}
	case []float32:
		for i, x := range v {
			binary.BigEndian.PutUint32(raw[i*4:], math.Float32bits(x))
		}
	case []float64:
		for i, x := range v {
			binary.BigEndian.PutUint64(raw[i*8:], math.Float64bits(x))
		}
	}
}

package storage

import (
	"bytes"
	"encoding/binary"
)

// encodeFillPattern renders the per-element byte pattern for fill, matching
// the core's big-endian wire convention, so a synthesized fill buffer is
// byte-identical to what the core would produce itself.
func encodeFillPattern(dtype string, width int, fill float64) []byte {
	buf := new(bytes.Buffer)
	switch dtype {
	case "int8":
		binary.Write(buf, binary.BigEndian, int8(fill))
	case "int16":
		binary.Write(buf, binary.BigEndian, int16(fill))
	case "int32":
		binary.Write(buf, binary.BigEndian, int32(fill))
	case "int64":
		binary.Write(buf, binary.BigEndian, int64(fill))
	case "float16", "float32":
		binary.Write(buf, binary.BigEndian, float32(fill))
	case "float64", "float128":
		binary.Write(buf, binary.BigEndian, fill)
	case "complex64":
		binary.Write(buf, binary.BigEndian, complex(float32(fill), 0))
	case "complex128", "complex256":
		binary.Write(buf, binary.BigEndian, complex(fill, 0))
	default:
		return make([]byte, width)
	}
	out := buf.Bytes()
	if len(out) != width {
		padded := make([]byte, width)
		copy(padded, out)
		return padded
	}
	return out
}

package tiledbadapter

import (
	"encoding/binary"
	"testing"
)

func TestRawAsElementsInt32RoundTrip(t *testing.T) {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint32(raw[0:], uint32(int32(-7)))
	binary.BigEndian.PutUint32(raw[4:], uint32(int32(42)))

	elems := rawAsElements("int32", raw)
	got, ok := elems.([]int32)
	if !ok {
		t.Fatalf("rawAsElements returned %T, want []int32", elems)
	}
	if got[0] != -7 || got[1] != 42 {
		t.Fatalf("got %v, want [-7 42]", got)
	}

	out := make([]byte, 8)
	encodeElementsInto("int32", got, out)
	for i := range raw {
		if raw[i] != out[i] {
			t.Fatalf("re-encoded bytes differ at %d: got %d, want %d", i, out[i], raw[i])
		}
	}
}

func TestRawAsElementsFloat64RoundTrip(t *testing.T) {
	raw := make([]byte, 16)
	binary.BigEndian.PutUint64(raw[0:], 0x3FF0000000000000) // 1.0
	binary.BigEndian.PutUint64(raw[8:], 0x4000000000000000) // 2.0

	elems := rawAsElements("float64", raw)
	got, ok := elems.([]float64)
	if !ok {
		t.Fatalf("rawAsElements returned %T, want []float64", elems)
	}
	if got[0] != 1.0 || got[1] != 2.0 {
		t.Fatalf("got %v, want [1 2]", got)
	}
}

func TestRawAsElementsInt8PassesThrough(t *testing.T) {
	raw := []byte{1, 2, 3}
	elems := rawAsElements("int8", raw)
	got, ok := elems.([]byte)
	if !ok {
		t.Fatalf("rawAsElements returned %T, want []byte", elems)
	}
	if len(got) != 3 {
		t.Fatalf("got %d bytes, want 3", len(got))
	}
}

func TestRawAsElementsComplexPassesThrough(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	elems := rawAsElements("complex64", raw)
	if _, ok := elems.([]byte); !ok {
		t.Fatalf("rawAsElements returned %T, want []byte", elems)
	}
}

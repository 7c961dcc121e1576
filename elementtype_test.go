package deker

import "testing"

func TestElementTypeRoundTrip(t *testing.T) {
	types := []ElementType{Int8, Int16, Int32, Int64, Float16, Float32, Float64, Float128, Complex64, Complex128, Complex256}
	for _, et := range types {
		code := et.String()
		got, err := ParseElementType(code)
		if err != nil {
			t.Fatalf("ParseElementType(%q): %v", code, err)
		}
		if got != et {
			t.Fatalf("round trip mismatch for %q: got %v want %v", code, got, et)
		}
	}
}

func TestParseElementTypeUnknown(t *testing.T) {
	if _, err := ParseElementType("int128"); err == nil {
		t.Fatal("expected error for unknown dtype code")
	}
}

func TestByteWidth(t *testing.T) {
	cases := map[ElementType]int{
		Int8: 1, Int16: 2, Int32: 4, Int64: 8,
		Float16: 4, Float32: 4, Float64: 8, Float128: 8,
		Complex64: 8, Complex128: 16, Complex256: 16,
	}
	for et, want := range cases {
		if got := et.ByteWidth(); got != want {
			t.Errorf("%v.ByteWidth() = %d, want %d", et, got, want)
		}
	}
}

func TestWidensFrom(t *testing.T) {
	cases := []struct {
		dst, src ElementType
		want     bool
	}{
		{Int32, Int8, true},
		{Int8, Int32, false},
		{Float64, Int32, true},
		{Float32, Int64, false},
		{Float64, Float32, true},
		{Float32, Float64, false},
		{Complex128, Complex64, true},
		{Complex64, Complex128, false},
		{Int32, Int32, true},
		{Int32, Float32, false},
	}
	for _, c := range cases {
		if got := c.dst.widensFrom(c.src); got != c.want {
			t.Errorf("%v.widensFrom(%v) = %v, want %v", c.dst, c.src, got, c.want)
		}
	}
}

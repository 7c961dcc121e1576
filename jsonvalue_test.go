package deker

import (
	"math"
	"testing"
)

func TestEncodeDecodeFloatJSONFinite(t *testing.T) {
	raw, err := encodeFloatJSON(3.5)
	if err != nil {
		t.Fatalf("encodeFloatJSON: %v", err)
	}
	got, err := decodeFloatJSON(raw)
	if err != nil {
		t.Fatalf("decodeFloatJSON: %v", err)
	}
	if got != 3.5 {
		t.Fatalf("got %v, want 3.5", got)
	}
}

func TestEncodeDecodeFloatJSONSentinels(t *testing.T) {
	cases := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, f := range cases {
		raw, err := encodeFloatJSON(f)
		if err != nil {
			t.Fatalf("encodeFloatJSON(%v): %v", f, err)
		}
		got, err := decodeFloatJSON(raw)
		if err != nil {
			t.Fatalf("decodeFloatJSON(%v): %v", f, err)
		}
		if math.IsNaN(f) {
			if !math.IsNaN(got) {
				t.Fatalf("got %v, want NaN", got)
			}
			continue
		}
		if got != f {
			t.Fatalf("got %v, want %v", got, f)
		}
	}
}

func TestDecodeFloatJSONRejectsUnknownSentinel(t *testing.T) {
	if _, err := decodeFloatJSON([]byte(`"bogus"`)); err == nil {
		t.Fatal("expected error for unrecognized float sentinel")
	}
}

func TestDecodeFloatJSONRejectsMalformed(t *testing.T) {
	if _, err := decodeFloatJSON([]byte(`{`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

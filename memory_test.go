package deker

import "testing"

func TestRequestedBytes(t *testing.T) {
	got := requestedBytes([]int{10, 20}, Float64)
	want := int64(10 * 20 * 8)
	if got != want {
		t.Fatalf("requestedBytes = %d, want %d", got, want)
	}
}

func TestRequestedBytesEmptyShape(t *testing.T) {
	if got := requestedBytes(nil, Int8); got != 1 {
		t.Fatalf("requestedBytes(nil) = %d, want 1", got)
	}
}

func TestCheckMemoryAdmissionRejectsOverConfiguredLimit(t *testing.T) {
	// A configured limit smaller than the request always fails, regardless
	// of how much RAM/swap the host actually reports.
	if err := checkMemoryAdmission(100, 1); err == nil {
		t.Fatal("expected admission error when request exceeds configured limit")
	}
}

func TestCheckMemoryAdmissionRejectsImpossibleRequest(t *testing.T) {
	if err := checkMemoryAdmission(1<<62, 0); err == nil {
		t.Fatal("expected admission error for a request no real host could satisfy")
	}
}

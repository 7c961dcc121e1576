package deker

import (
	"errors"
	"testing"
	"time"
)

func TestScaledDimensionIndexOf(t *testing.T) {
	d := NewScaledDimension("depth", 10, 0.0, 0.5, "meters")

	idx, err := d.scaleIndexOf(2.0)
	if err != nil {
		t.Fatalf("scaleIndexOf(2.0): %v", err)
	}
	if idx != 4 {
		t.Fatalf("got index %d, want 4", idx)
	}

	if _, err := d.scaleIndexOf(2.1); err == nil {
		t.Fatal("expected misalignment error for 2.1")
	}

	if _, err := d.scaleIndexOf(100.0); err == nil {
		t.Fatal("expected out-of-range error for 100.0")
	}
}

func TestScaledDimensionValueAt(t *testing.T) {
	d := NewScaledDimension("depth", 10, 1.0, 0.25, "meters")
	if v := d.scaleValueAt(3); v != 1.75 {
		t.Fatalf("scaleValueAt(3) = %v, want 1.75", v)
	}
}

func TestLabeledDimensionLookup(t *testing.T) {
	d := NewLabeledDimension("band", []Label{StrLabel("red"), StrLabel("green"), StrLabel("blue")})

	idx, err := d.labelIndexOf(StrLabel("green"))
	if err != nil {
		t.Fatalf("labelIndexOf: %v", err)
	}
	if idx != 1 {
		t.Fatalf("got index %d, want 1", idx)
	}

	if _, err := d.labelIndexOf(StrLabel("ultraviolet")); err == nil {
		t.Fatal("expected error for missing label")
	}
}

func TestDimensionValidateDuplicateLabels(t *testing.T) {
	d := NewLabeledDimension("band", []Label{StrLabel("red"), StrLabel("red")})
	if err := d.validate(); err == nil {
		t.Fatal("expected error for duplicate labels")
	}
}

func TestDimensionValidateBadScaleStep(t *testing.T) {
	d := NewScaledDimension("depth", 5, 0, 0, "m")
	if err := d.validate(); err == nil {
		t.Fatal("expected error for zero scale step")
	}
}

func TestTimeDimensionIndexOf(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewTimeDimension("t", 24, start, time.Hour)

	idx, err := d.timeIndexOf(start, start.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("timeIndexOf: %v", err)
	}
	if idx != 5 {
		t.Fatalf("got index %d, want 5", idx)
	}

	if _, err := d.timeIndexOf(start, start.Add(30*time.Minute)); err == nil {
		t.Fatal("expected misalignment error")
	}
}

func TestTimeDimensionRefRequiresPrefix(t *testing.T) {
	d := Dimension{Name: "t", Size: 1, Kind: DimTime, TimeStep: time.Hour, TimeStartAttr: "acquired"}
	if err := d.validate(); err == nil {
		t.Fatal("expected error for time reference missing '$' prefix")
	}
}

func TestDimensionValidateKindErrorIsValidationKind(t *testing.T) {
	d := NewScaledDimension("depth", 5, 0, 0, "m")
	err := d.validate()
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if de.Kind != KindValidation {
		t.Fatalf("got kind %v, want %v", de.Kind, KindValidation)
	}
}

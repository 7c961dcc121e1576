package deker

import (
	"testing"
	"time"
)

func newTestSchema() ArraySchema {
	return ArraySchema{
		Dimensions: []Dimension{
			NewPlainDimension("row", 100),
			NewPlainDimension("col", 200),
		},
		DType: Float32,
	}
}

func TestSchemaValidateOK(t *testing.T) {
	s := newTestSchema()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSchemaValidateNoDimensions(t *testing.T) {
	s := ArraySchema{DType: Int32}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for schema with no dimensions")
	}
}

func TestSchemaValidateDuplicateDimensionNames(t *testing.T) {
	s := ArraySchema{
		Dimensions: []Dimension{
			NewPlainDimension("row", 10),
			NewPlainDimension("row", 20),
		},
		DType: Int32,
	}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for duplicate dimension names")
	}
}

func TestSchemaValidateTimeDimensionReference(t *testing.T) {
	base := ArraySchema{
		Dimensions: []Dimension{
			NewTimeDimensionRef("ping_time", 10, "$acquired", time.Second),
		},
		Attributes: []Attribute{
			{Name: "acquired", Kind: AttrDatetime, Primary: true},
		},
		DType: Float64,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := base
	bad.Attributes = []Attribute{{Name: "acquired", Kind: AttrString, Primary: true}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for time dimension referencing non-datetime attribute")
	}

	missing := base
	missing.Attributes = nil
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for time dimension referencing undefined attribute")
	}
}

func TestVArraySchemaFromGrid(t *testing.T) {
	base := newTestSchema()
	vs := NewVArraySchemaFromGrid(base, []int{10, 20})
	if err := vs.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	shape := vs.ArraysShape()
	if shape[0] != 10 || shape[1] != 10 {
		t.Fatalf("ArraysShape = %v, want [10 10]", shape)
	}
}

func TestVArraySchemaFromTileShape(t *testing.T) {
	base := newTestSchema()
	vs, err := NewVArraySchemaFromTileShape(base, []int{10, 10})
	if err != nil {
		t.Fatalf("NewVArraySchemaFromTileShape: %v", err)
	}
	if vs.VGrid[0] != 10 || vs.VGrid[1] != 20 {
		t.Fatalf("VGrid = %v, want [10 20]", vs.VGrid)
	}
}

func TestVArraySchemaValidateNonDividingGrid(t *testing.T) {
	base := newTestSchema()
	vs := NewVArraySchemaFromGrid(base, []int{3, 20})
	if err := vs.Validate(); err == nil {
		t.Fatal("expected error: vgrid[0]=3 does not divide dimension size 100")
	}
}

func TestPrimaryAndCustomAttributes(t *testing.T) {
	s := ArraySchema{
		Dimensions: []Dimension{NewPlainDimension("row", 5)},
		Attributes: []Attribute{
			{Name: "id", Kind: AttrInt, Primary: true},
			{Name: "note", Kind: AttrString, Primary: false},
		},
		DType: Int8,
	}
	if got := s.PrimaryAttributes(); len(got) != 1 || got[0].Name != "id" {
		t.Fatalf("PrimaryAttributes = %+v", got)
	}
	if got := s.CustomAttributes(); len(got) != 1 || got[0].Name != "note" {
		t.Fatalf("CustomAttributes = %+v", got)
	}
}

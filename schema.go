package deker

import (
	"fmt"
	"strings"
)

// ArraySchema describes a plain (non-tiled) array collection: ordered
// dimensions, ordered attributes, element type and optional fill value.
type ArraySchema struct {
	Dimensions []Dimension
	Attributes []Attribute
	DType      ElementType
	FillValue  *float64 // nil => zero value of DType
}

// VArraySchema additionally carries a tile grid. Exactly one of VGrid /
// ArraysShape is accepted on construction; VGrid is the canonical stored
// form.
type VArraySchema struct {
	ArraySchema
	VGrid []int
}

// Shape returns the per-dimension sizes declared by the schema.
func (s ArraySchema) Shape() []int {
	shape := make([]int, len(s.Dimensions))
	for i, d := range s.Dimensions {
		shape[i] = d.Size
	}
	return shape
}

// ArraysShape returns the per-tile shape, shape/vgrid elementwise.
func (s VArraySchema) ArraysShape() []int {
	shape := s.Shape()
	out := make([]int, len(shape))
	for i := range shape {
		out[i] = shape[i] / s.VGrid[i]
	}
	return out
}

// Validate checks an ArraySchema's internal consistency: at least one
// dimension, unique dimension names, unique attribute names, and that any
// time-dimension attribute reference resolves to a datetime attribute.
func (s ArraySchema) Validate() error {
	if len(s.Dimensions) == 0 {
		return errValidation("schema must declare at least one dimension", nil)
	}

	seenDims := make(map[string]struct{}, len(s.Dimensions))
	for _, d := range s.Dimensions {
		if err := d.validate(); err != nil {
			return err
		}
		if _, ok := seenDims[d.Name]; ok {
			return errValidation(fmt.Sprintf("duplicate dimension name %q", d.Name), nil)
		}
		seenDims[d.Name] = struct{}{}
	}

	seenAttrs := make(map[string]Attribute, len(s.Attributes))
	for _, a := range s.Attributes {
		if err := a.validate(); err != nil {
			return err
		}
		if _, ok := seenAttrs[a.Name]; ok {
			return errValidation(fmt.Sprintf("duplicate attribute name %q", a.Name), nil)
		}
		seenAttrs[a.Name] = a
	}

	for _, d := range s.Dimensions {
		if d.Kind != DimTime || d.TimeStartAttr == "" {
			continue
		}
		name := strings.TrimPrefix(d.TimeStartAttr, "$")
		attr, ok := seenAttrs[name]
		if !ok {
			return errValidation(fmt.Sprintf("time dimension %q references undefined attribute %q", d.Name, name), nil)
		}
		if attr.Kind != AttrDatetime {
			return errValidation(fmt.Sprintf("time dimension %q references non-datetime attribute %q", d.Name, name), nil)
		}
	}

	return nil
}

// Validate checks a VArraySchema: the embedded ArraySchema must validate,
// and vgrid must divide every dimension's size exactly.
func (s VArraySchema) Validate() error {
	if err := s.ArraySchema.Validate(); err != nil {
		return err
	}
	if len(s.VGrid) != len(s.Dimensions) {
		return errValidation(fmt.Sprintf("vgrid has %d entries, want %d (one per dimension)", len(s.VGrid), len(s.Dimensions)), nil)
	}
	for i, d := range s.Dimensions {
		g := s.VGrid[i]
		if g <= 0 {
			return errValidation(fmt.Sprintf("vgrid[%d] must be positive", i), nil)
		}
		if d.Size%g != 0 {
			return errValidation(fmt.Sprintf("vgrid[%d]=%d does not divide dimension %q size %d", i, g, d.Name, d.Size), nil)
		}
	}
	return nil
}

// NewVArraySchemaFromGrid builds a VArraySchema from an explicit vgrid.
func NewVArraySchemaFromGrid(base ArraySchema, vgrid []int) VArraySchema {
	return VArraySchema{ArraySchema: base, VGrid: vgrid}
}

// NewVArraySchemaFromTileShape builds a VArraySchema from a tile shape
// (arrays_shape), deriving vgrid = shape/arrays_shape. Supplying both vgrid
// and arrays_shape is ambiguous and must be rejected by the caller before
// reaching this constructor; this helper exists only for the
// "arrays_shape only" input path.
func NewVArraySchemaFromTileShape(base ArraySchema, tileShape []int) (VArraySchema, error) {
	if len(tileShape) != len(base.Dimensions) {
		return VArraySchema{}, errValidation("arrays_shape length must match dimensions", nil)
	}
	vgrid := make([]int, len(tileShape))
	for i, d := range base.Dimensions {
		if tileShape[i] <= 0 {
			return VArraySchema{}, errValidation("arrays_shape entries must be positive", nil)
		}
		if d.Size%tileShape[i] != 0 {
			return VArraySchema{}, errValidation(fmt.Sprintf("arrays_shape[%d]=%d does not divide dimension %q size %d", i, tileShape[i], d.Name, d.Size), nil)
		}
		vgrid[i] = d.Size / tileShape[i]
	}
	return VArraySchema{ArraySchema: base, VGrid: vgrid}, nil
}

// PrimaryAttributes returns the schema's attributes in declared order,
// filtered to those marked primary.
func (s ArraySchema) PrimaryAttributes() []Attribute {
	out := make([]Attribute, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		if a.Primary {
			out = append(out, a)
		}
	}
	return out
}

// CustomAttributes returns the schema's attributes in declared order,
// filtered to those not marked primary.
func (s ArraySchema) CustomAttributes() []Attribute {
	out := make([]Attribute, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		if !a.Primary {
			out = append(out, a)
		}
	}
	return out
}

// fillValueOr returns the schema's fill value, defaulting to 0.
func (s ArraySchema) fillValueOr() float64 {
	if s.FillValue != nil {
		return *s.FillValue
	}
	return 0
}

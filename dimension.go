package deker

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DimensionKind distinguishes the four index mappings a dimension may carry.
type DimensionKind int

const (
	DimPlain DimensionKind = iota
	DimScaled
	DimLabeled
	DimTime
)

func (k DimensionKind) String() string {
	switch k {
	case DimPlain:
		return "plain"
	case DimScaled:
		return "scaled"
	case DimLabeled:
		return "labeled"
	case DimTime:
		return "time"
	default:
		return "unknown"
	}
}

// Label is either a string or a float64 tag for a Labeled dimension.
type Label struct {
	Str    string
	Num    float64
	IsText bool
}

func StrLabel(s string) Label  { return Label{Str: s, IsText: true} }
func NumLabel(f float64) Label { return Label{Num: f} }

func (l Label) equal(o Label) bool {
	if l.IsText != o.IsText {
		return false
	}
	if l.IsText {
		return l.Str == o.Str
	}
	return l.Num == o.Num
}

func (l Label) String() string {
	if l.IsText {
		return l.Str
	}
	return fmt.Sprintf("%g", l.Num)
}

// Dimension is a single axis of an ArraySchema/VArraySchema.
type Dimension struct {
	Name string
	Size int

	Kind DimensionKind

	// Scaled
	ScaleStart float64
	ScaleStep  float64
	ScaleName  string

	// Labeled
	Labels []Label

	// Time
	TimeStart      time.Time // used when TimeStartAttr == ""
	TimeStartAttr  string    // "$attrName" reference to a primary/custom datetime attribute
	TimeStep       time.Duration
}

// NewPlainDimension builds an integer-indexed dimension.
func NewPlainDimension(name string, size int) Dimension {
	return Dimension{Name: name, Size: size, Kind: DimPlain}
}

// NewScaledDimension builds an affine, real-valued dimension: v = start + i*step.
func NewScaledDimension(name string, size int, start, step float64, scaleName string) Dimension {
	return Dimension{
		Name: name, Size: size, Kind: DimScaled,
		ScaleStart: start, ScaleStep: step, ScaleName: scaleName,
	}
}

// NewLabeledDimension builds a dimension indexed by an explicit label sequence.
func NewLabeledDimension(name string, labels []Label) Dimension {
	return Dimension{Name: name, Size: len(labels), Kind: DimLabeled, Labels: labels}
}

// NewTimeDimension builds a datetime-affine dimension with a fixed UTC start.
func NewTimeDimension(name string, size int, start time.Time, step time.Duration) Dimension {
	return Dimension{Name: name, Size: size, Kind: DimTime, TimeStart: start.UTC(), TimeStep: step}
}

// NewTimeDimensionRef builds a datetime-affine dimension whose start value is
// resolved from a referenced primary/custom datetime attribute ("$attrName").
func NewTimeDimensionRef(name string, size int, attrRef string, step time.Duration) Dimension {
	return Dimension{Name: name, Size: size, Kind: DimTime, TimeStartAttr: attrRef, TimeStep: step}
}

// validate checks the dimension's own constraints, independent of the rest
// of the schema (cross-references to attributes are validated by Schema.Validate).
func (d Dimension) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errValidation("dimension name must be non-empty", nil)
	}
	if d.Size <= 0 {
		return errValidation(fmt.Sprintf("dimension %q size must be positive", d.Name), nil)
	}

	switch d.Kind {
	case DimPlain:
		// nothing further
	case DimScaled:
		if d.ScaleStep == 0 {
			return errValidation(fmt.Sprintf("dimension %q scale step must be non-zero", d.Name), nil)
		}
	case DimLabeled:
		if len(d.Labels) != d.Size {
			return errValidation(fmt.Sprintf("dimension %q has %d labels, want %d", d.Name, len(d.Labels), d.Size), nil)
		}
		seen := make(map[string]struct{}, len(d.Labels))
		for _, l := range d.Labels {
			key := l.String() + "|" + boolKey(l.IsText)
			if _, ok := seen[key]; ok {
				return errValidation(fmt.Sprintf("dimension %q has duplicate label %q", d.Name, l.String()), nil)
			}
			seen[key] = struct{}{}
		}
	case DimTime:
		if d.TimeStep <= 0 {
			return errValidation(fmt.Sprintf("dimension %q time step must be positive", d.Name), nil)
		}
		if d.TimeStartAttr != "" && !strings.HasPrefix(d.TimeStartAttr, "$") {
			return errValidation(fmt.Sprintf("dimension %q time reference must start with '$'", d.Name), nil)
		}
	default:
		return errValidation(fmt.Sprintf("dimension %q has unknown kind", d.Name), nil)
	}
	return nil
}

func boolKey(b bool) string {
	if b {
		return "t"
	}
	return "f"
}

// scaleIndexOf maps a real value to the exact integer index for a Scaled
// dimension, or fails with an index error if the value does not land on a
// cell within tolerance (half an ulp of step).
func (d Dimension) scaleIndexOf(v float64) (int, error) {
	raw := (v - d.ScaleStart) / d.ScaleStep
	idx := math.Round(raw)
	ulpTol := ulpHalf(d.ScaleStep)
	if math.Abs(raw-idx) > ulpTol/math.Abs(d.ScaleStep) {
		return 0, errIndex(fmt.Sprintf("value %g does not align with dimension %q scale (start=%g step=%g)", v, d.Name, d.ScaleStart, d.ScaleStep), nil)
	}
	i := int(idx)
	if i < 0 || i >= d.Size {
		return 0, errIndex(fmt.Sprintf("scale value %g resolves to out-of-range index %d for dimension %q", v, i, d.Name), nil)
	}
	return i, nil
}

// ulpHalf returns half a unit-in-the-last-place of v, used as the alignment
// tolerance for scaled dimension lookups.
func ulpHalf(v float64) float64 {
	av := math.Abs(v)
	if av == 0 {
		return math.SmallestNonzeroFloat64
	}
	return (math.Nextafter(av, math.Inf(1)) - av) / 2
}

// scaleValueAt returns the domain value for integer index i.
func (d Dimension) scaleValueAt(i int) float64 {
	return d.ScaleStart + float64(i)*d.ScaleStep
}

// labelIndexOf resolves a label to its integer index, or an index error if
// the label is not present in the dimension's sequence.
func (d Dimension) labelIndexOf(l Label) (int, error) {
	for i, cand := range d.Labels {
		if cand.equal(l) {
			return i, nil
		}
	}
	return 0, errIndex(fmt.Sprintf("label %q not present in dimension %q", l.String(), d.Name), nil)
}

// timeIndexOf maps a UTC instant to the exact integer index for a Time
// dimension given its resolved start instant.
func (d Dimension) timeIndexOf(start time.Time, t time.Time) (int, error) {
	t = t.UTC()
	delta := t.Sub(start)
	raw := float64(delta) / float64(d.TimeStep)
	idx := math.Round(raw)
	if math.Abs(raw-idx) > 1e-6 {
		return 0, errIndex(fmt.Sprintf("datetime %s does not align with dimension %q time step %s", t.Format(time.RFC3339Nano), d.Name, d.TimeStep), nil)
	}
	i := int(idx)
	if i < 0 || i >= d.Size {
		return 0, errIndex(fmt.Sprintf("datetime %s resolves to out-of-range index %d for dimension %q", t.Format(time.RFC3339Nano), i, d.Name), nil)
	}
	return i, nil
}

// timeValueAt returns the UTC instant for integer index i given the
// resolved start instant.
func (d Dimension) timeValueAt(start time.Time, i int) time.Time {
	return start.Add(time.Duration(i) * d.TimeStep)
}

package deker

import (
	"fmt"
	"time"
)

// Bound is a canonical half-open integer range over one dimension:
// 0 <= Lo <= Hi <= size.
type Bound struct {
	Lo, Hi int
}

func (b Bound) Len() int { return b.Hi - b.Lo }

// Bounds is one Bound per dimension, in schema order.
type Bounds []Bound

// TimeRefResolver resolves a "$attrName" reference on a Time dimension to
// the concrete UTC instant it denotes for a specific array instance.
type TimeRefResolver func(attrName string) (time.Time, error)

// normalizeResult is the output of translating a fancy-index list into its
// canonical representation: subset shape, bounds vector, and a per-dimension
// collapsed flag.
type normalizeResult struct {
	Bounds    Bounds
	Collapsed []bool
	Shape     []int // sizes of non-collapsed dimensions, in order
}

// Normalize expands ellipses/missing trailing dimensions and translates
// each per-dimension Indexer into a canonical integer Bound.
func (s ArraySchema) Normalize(indexers []Indexer, resolve TimeRefResolver) (normalizeResult, error) {
	full, err := s.expandIndexers(indexers)
	if err != nil {
		return normalizeResult{}, err
	}

	bounds := make(Bounds, len(s.Dimensions))
	collapsed := make([]bool, len(s.Dimensions))
	shape := make([]int, 0, len(s.Dimensions))

	for i, dim := range s.Dimensions {
		b, isScalar, err := normalizeOne(dim, full[i], resolve)
		if err != nil {
			return normalizeResult{}, err
		}
		bounds[i] = b
		collapsed[i] = isScalar
		if !isScalar {
			shape = append(shape, b.Len())
		}
	}

	return normalizeResult{Bounds: bounds, Collapsed: collapsed, Shape: shape}, nil
}

// expandIndexers resolves Ellipsis and missing trailing dimensions into a
// full per-dimension Indexer slice of length len(Dimensions).
func (s ArraySchema) expandIndexers(indexers []Indexer) ([]Indexer, error) {
	ndims := len(s.Dimensions)

	ellipsisAt := -1
	for i, ix := range indexers {
		if ix.Kind == IdxEllipsis {
			if ellipsisAt >= 0 {
				return nil, errIndex("at most one ellipsis is allowed", nil)
			}
			ellipsisAt = i
		}
	}

	var expanded []Indexer
	if ellipsisAt >= 0 {
		nonEllipsis := len(indexers) - 1
		if nonEllipsis > ndims {
			return nil, errIndex(fmt.Sprintf("too many indexers (%d) for %d dimensions", nonEllipsis, ndims), nil)
		}
		fillCount := ndims - nonEllipsis
		expanded = make([]Indexer, 0, ndims)
		expanded = append(expanded, indexers[:ellipsisAt]...)
		for i := 0; i < fillCount; i++ {
			expanded = append(expanded, Full())
		}
		expanded = append(expanded, indexers[ellipsisAt+1:]...)
	} else {
		if len(indexers) > ndims {
			return nil, errIndex(fmt.Sprintf("too many indexers (%d) for %d dimensions", len(indexers), ndims), nil)
		}
		expanded = make([]Indexer, ndims)
		copy(expanded, indexers)
		for i := len(indexers); i < ndims; i++ {
			expanded[i] = Full()
		}
	}

	return expanded, nil
}

// normalizeResolvedIntIndex applies the negative-modulo-size rule shared by
// every dimension kind's raw integer indexer.
func normalizeResolvedIntIndex(i, size int) (int, error) {
	eff := i
	if eff < 0 {
		eff += size
	}
	if eff < 0 || eff >= size {
		return 0, errIndex(fmt.Sprintf("integer index %d out of range for size %d", i, size), nil)
	}
	return eff, nil
}

func normalizeOne(dim Dimension, ix Indexer, resolve TimeRefResolver) (Bound, bool, error) {
	switch ix.Kind {
	case IdxFull:
		return Bound{0, dim.Size}, false, nil

	case IdxInt:
		eff, err := normalizeResolvedIntIndex(ix.Int, dim.Size)
		if err != nil {
			return Bound{}, false, err
		}
		return Bound{eff, eff + 1}, true, nil

	case IdxIntRange:
		return normalizeIntRange(dim, ix.Int, ix.IntHi)

	case IdxFloat:
		if dim.Kind != DimScaled {
			return Bound{}, false, errIndex(fmt.Sprintf("dimension %q is not scaled; float indexer invalid", dim.Name), nil)
		}
		i, err := dim.scaleIndexOf(ix.Float)
		if err != nil {
			return Bound{}, false, err
		}
		return Bound{i, i + 1}, true, nil

	case IdxFloatRange:
		if dim.Kind != DimScaled {
			return Bound{}, false, errIndex(fmt.Sprintf("dimension %q is not scaled; float range indexer invalid", dim.Name), nil)
		}
		lo, err := dim.scaleIndexOf(ix.Float)
		if err != nil {
			return Bound{}, false, err
		}
		hi, err := dim.scaleIndexOf(ix.FloatHi)
		if err != nil {
			return Bound{}, false, err
		}
		return normalizeIntRange(dim, lo, hi)

	case IdxLabel:
		if dim.Kind != DimLabeled {
			return Bound{}, false, errIndex(fmt.Sprintf("dimension %q is not labeled; label indexer invalid", dim.Name), nil)
		}
		i, err := dim.labelIndexOf(ix.Label)
		if err != nil {
			return Bound{}, false, err
		}
		return Bound{i, i + 1}, true, nil

	case IdxLabelRange:
		if dim.Kind != DimLabeled {
			return Bound{}, false, errIndex(fmt.Sprintf("dimension %q is not labeled; label range indexer invalid", dim.Name), nil)
		}
		lo, err := dim.labelIndexOf(ix.Label)
		if err != nil {
			return Bound{}, false, err
		}
		hi, err := dim.labelIndexOf(ix.LabelHi)
		if err != nil {
			return Bound{}, false, err
		}
		return normalizeIntRange(dim, lo, hi)

	case IdxTime:
		if dim.Kind != DimTime {
			return Bound{}, false, errIndex(fmt.Sprintf("dimension %q is not a time dimension; datetime indexer invalid", dim.Name), nil)
		}
		start, err := resolveTimeStart(dim, resolve)
		if err != nil {
			return Bound{}, false, err
		}
		i, err := dim.timeIndexOf(start, ix.Time)
		if err != nil {
			return Bound{}, false, err
		}
		return Bound{i, i + 1}, true, nil

	case IdxTimeRange:
		if dim.Kind != DimTime {
			return Bound{}, false, errIndex(fmt.Sprintf("dimension %q is not a time dimension; datetime range indexer invalid", dim.Name), nil)
		}
		start, err := resolveTimeStart(dim, resolve)
		if err != nil {
			return Bound{}, false, err
		}
		lo, err := dim.timeIndexOf(start, ix.Time)
		if err != nil {
			return Bound{}, false, err
		}
		hi, err := dim.timeIndexOf(start, ix.TimeHi)
		if err != nil {
			return Bound{}, false, err
		}
		return normalizeIntRange(dim, lo, hi)

	default:
		return Bound{}, false, errIndex(fmt.Sprintf("dimension %q received an unsupported indexer", dim.Name), nil)
	}
}

func resolveTimeStart(dim Dimension, resolve TimeRefResolver) (time.Time, error) {
	if dim.TimeStartAttr == "" {
		return dim.TimeStart, nil
	}
	if resolve == nil {
		return time.Time{}, errIndex(fmt.Sprintf("dimension %q requires an attribute-reference resolver", dim.Name), nil)
	}
	return resolve(dim.TimeStartAttr)
}

// normalizeIntRange validates and clamps a raw [lo, hi) range; step is
// always 1 by construction (the Indexer type carries no step field), so the
// only rejection path here is out-of-order or out-of-bounds bounds. Negative
// bounds apply the same modulo-size wrap as normalizeResolvedIntIndex, so
// e.g. [2:-1) on a size-10 dimension means [2:9) rather than failing
// outright; this matters for IdxIntRange, whose lo/hi arrive as raw parsed
// integers (see cmd/dekerctl's slice-string parser) and can be negative,
// unlike the scaled/labeled/time range callers, which always resolve to
// already-non-negative indices before reaching here.
func normalizeIntRange(dim Dimension, lo, hi int) (Bound, bool, error) {
	if lo < 0 {
		lo += dim.Size
	}
	if hi < 0 {
		hi += dim.Size
	}
	if lo < 0 || hi < lo || hi > dim.Size {
		return Bound{}, false, errIndex(fmt.Sprintf("range [%d:%d) invalid for dimension %q of size %d", lo, hi, dim.Name, dim.Size), nil)
	}
	return Bound{lo, hi}, false, nil
}

package deker

import "time"

// DimensionDescribe is the deterministic, per-dimension description of the
// domain values selected by a Bound, used by Subset.Describe.
type DimensionDescribe struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Collapsed bool     `json:"collapsed"`
	Indices   []int    `json:"indices"`
	Scale     []float64  `json:"scale,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Times     []string `json:"times,omitempty"`
}

// DescribeRecord is a pure function of schema + bounds: it enumerates, per
// dimension, the labels / scale values / datetimes actually selected.
type DescribeRecord struct {
	Dimensions []DimensionDescribe `json:"dimensions"`
}

// Describe builds the deterministic describe mapping for a normalized
// Bounds vector against this schema.
func (s ArraySchema) Describe(bounds Bounds, collapsed []bool, resolve TimeRefResolver) (DescribeRecord, error) {
	rec := DescribeRecord{Dimensions: make([]DimensionDescribe, len(s.Dimensions))}

	for i, dim := range s.Dimensions {
		b := bounds[i]
		dd := DimensionDescribe{
			Name:      dim.Name,
			Kind:      dim.Kind.String(),
			Collapsed: collapsed[i],
		}
		for idx := b.Lo; idx < b.Hi; idx++ {
			dd.Indices = append(dd.Indices, idx)
		}

		switch dim.Kind {
		case DimScaled:
			for idx := b.Lo; idx < b.Hi; idx++ {
				dd.Scale = append(dd.Scale, dim.scaleValueAt(idx))
			}
		case DimLabeled:
			for idx := b.Lo; idx < b.Hi; idx++ {
				dd.Labels = append(dd.Labels, dim.Labels[idx].String())
			}
		case DimTime:
			start, err := resolveTimeStart(dim, resolve)
			if err != nil {
				return DescribeRecord{}, err
			}
			for idx := b.Lo; idx < b.Hi; idx++ {
				dd.Times = append(dd.Times, dim.timeValueAt(start, idx).Format(time.RFC3339Nano))
			}
		}

		rec.Dimensions[i] = dd
	}

	return rec, nil
}

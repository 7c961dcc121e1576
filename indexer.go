package deker

import "time"

// IndexerKind tags the variant held by an Indexer.
type IndexerKind int

const (
	IdxInt IndexerKind = iota
	IdxIntRange
	IdxFloat
	IdxFloatRange
	IdxLabel
	IdxLabelRange
	IdxTime
	IdxTimeRange
	IdxEllipsis
	IdxFull
)

// Indexer is one user-facing fancy-index component, accepted per dimension
// by Subset construction. Exactly one "kind" of payload is
// meaningful, selected by Kind.
type Indexer struct {
	Kind IndexerKind

	Int   int
	IntHi int

	Float   float64
	FloatHi float64

	Label   Label
	LabelHi Label

	Time   time.Time
	TimeHi time.Time
}

// Idx selects a single integer index (may be negative, interpreted modulo size).
func Idx(i int) Indexer { return Indexer{Kind: IdxInt, Int: i} }

// IdxRange selects the half-open integer range [lo, hi).
func IdxRange(lo, hi int) Indexer { return Indexer{Kind: IdxIntRange, Int: lo, IntHi: hi} }

// IdxF selects a single scale-domain value on a Scaled dimension.
func IdxF(v float64) Indexer { return Indexer{Kind: IdxFloat, Float: v} }

// IdxFRange selects the half-open scale-domain range [lo, hi).
func IdxFRange(lo, hi float64) Indexer { return Indexer{Kind: IdxFloatRange, Float: lo, FloatHi: hi} }

// IdxLabel selects a single label on a Labeled dimension.
func IdxLabel(l Label) Indexer { return Indexer{Kind: IdxLabel, Label: l} }

// IdxLabelRange selects the half-open label range [lo, hi) by label position.
func IdxLabelRange(lo, hi Label) Indexer { return Indexer{Kind: IdxLabelRange, Label: lo, LabelHi: hi} }

// IdxTime selects a single datetime on a Time dimension. Non-UTC instants
// are normalized to UTC before lookup.
func IdxTime(t time.Time) Indexer { return Indexer{Kind: IdxTime, Time: t.UTC()} }

// IdxTimeStr parses an ISO-8601 string and selects the resulting datetime.
func IdxTimeStr(s string) (Indexer, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Indexer{}, errIndex("invalid ISO-8601 datetime indexer", err)
	}
	return IdxTime(t), nil
}

// IdxTimeRange selects the half-open datetime range [lo, hi).
func IdxTimeRange(lo, hi time.Time) Indexer {
	return Indexer{Kind: IdxTimeRange, Time: lo.UTC(), TimeHi: hi.UTC()}
}

// Ellipsis expands to full ranges for all omitted leading/trailing dimensions.
func Ellipsis() Indexer { return Indexer{Kind: IdxEllipsis} }

// Full selects the entire dimension (same effect as an omitted trailing
// dimension).
func Full() Indexer { return Indexer{Kind: IdxFull} }

package deker

import (
	"fmt"
	"time"

	"github.com/deker-engine/deker-go/storage"
)

// Subset is a lazily-bound view over a rectangular region of an Array,
// produced by Array.Subset. No I/O happens until Read/Update/Clear is
// called.
type Subset struct {
	array  *Array
	result normalizeResult
}

// Subset normalizes indexers against the array's schema and returns a lazy
// view over the resulting bounds. The array's primary/custom attribute
// values are available to a Time dimension's "$attrName" reference via the
// resolver this method builds internally.
func (a *Array) Subset(indexers ...Indexer) (*Subset, error) {
	result, err := a.coll.Manifest.Schema.Normalize(indexers, a.timeRefResolver())
	if err != nil {
		return nil, err
	}
	return &Subset{array: a, result: result}, nil
}

// timeRefResolver resolves a Time dimension's "$attrName" reference to the
// concrete UTC instant this specific array's matching datetime attribute
// holds.
func (a *Array) timeRefResolver() TimeRefResolver {
	return func(attrName string) (time.Time, error) {
		name := attrName
		if len(name) > 0 && name[0] == '$' {
			name = name[1:]
		}
		if v, ok := a.Meta.Primary[name]; ok && v.Kind == AttrDatetime {
			return time.Unix(0, v.DT).UTC(), nil
		}
		if v, ok := a.Meta.Custom[name]; ok && v.Kind == AttrDatetime {
			return time.Unix(0, v.DT).UTC(), nil
		}
		return time.Time{}, errValidation("time dimension reference "+attrName+" does not resolve to a datetime attribute on this array", nil)
	}
}

func toStorageBounds(b Bounds) storage.Bounds {
	out := make(storage.Bounds, len(b))
	for i, r := range b {
		out[i] = storage.Bound{Lo: r.Lo, Hi: r.Hi}
	}
	return out
}

// Read materializes the subset's region into a typed Buffer. While the
// array's body has never been written, the adapter synthesizes the schema's
// fill value; once a body exists, cells never written read back as whatever
// the adapter stores for them (zero bytes for LocalAdapter).
func (s *Subset) Read() (*Buffer, error) {
	a := s.array
	req := requestedBytes(s.result.Shape, a.coll.Manifest.Schema.DType)
	if err := checkMemoryAdmission(req, a.coll.client.opts.MemoryLimitBytes); err != nil {
		return nil, err
	}

	h, err := a.openHandle()
	if err != nil {
		return nil, errIO("failed to open array body", err)
	}
	defer a.coll.client.adapter.Close(h)

	var buf storage.Buffer
	err = withReadLock(a.coll.client.registry, a.lockResource(), a.coll.client.opts.WriteLockTimeout, a.coll.client.opts.WriteLockCheckInterval, func() error {
		var readErr error
		buf, readErr = a.coll.client.adapter.Read(h, toStorageBounds(s.result.Bounds), a.coll.Manifest.Schema.fillValueOr())
		return readErr
	})
	if err != nil {
		return nil, err
	}

	return UnmarshalBuffer(a.coll.Manifest.Schema.DType, buf.Shape, buf.Raw)
}

// Update writes buf into the subset's region. buf's dtype must equal the
// schema's dtype or be losslessly widenable into it; its shape
// must equal the subset's non-collapsed shape.
func (s *Subset) Update(buf *Buffer) error {
	a := s.array
	dtype := a.coll.Manifest.Schema.DType
	conv, err := buf.ConvertTo(dtype)
	if err != nil {
		return err
	}
	if !shapeMatches(conv.Shape, s.result.Shape) {
		return errShape(fmt.Sprintf("update buffer shape %v does not match subset shape %v", conv.Shape, s.result.Shape), nil)
	}

	raw, err := conv.MarshalBinary()
	if err != nil {
		return err
	}

	h, err := a.openHandle()
	if err != nil {
		return errIO("failed to open array body", err)
	}
	defer a.coll.client.adapter.Close(h)

	storBuf := storage.Buffer{DType: dtype.String(), Shape: s.result.Shape, Raw: raw}

	return withWriteLock(a.coll.client.registry, a.lockResource(), a.coll.client.opts.WriteLockTimeout, a.coll.client.opts.WriteLockCheckInterval, func() error {
		return a.coll.client.adapter.Write(h, toStorageBounds(s.result.Bounds), storBuf)
	})
}

// Clear resets the subset's region to the schema's fill value. If the
// region covers the array's entire shape, the body is truncated rather than
// rewritten with fill bytes, so a fully-cleared array returns to its
// never-written state.
func (s *Subset) Clear() error {
	a := s.array
	schema := a.coll.Manifest.Schema

	h, err := a.openHandle()
	if err != nil {
		return errIO("failed to open array body", err)
	}
	defer a.coll.client.adapter.Close(h)

	if boundsCoverShape(s.result.Bounds, schema.Shape()) {
		return withWriteLock(a.coll.client.registry, a.lockResource(), a.coll.client.opts.WriteLockTimeout, a.coll.client.opts.WriteLockCheckInterval, func() error {
			return a.coll.client.adapter.Truncate(h)
		})
	}

	fill := NewFilledBuffer(schema.DType, s.result.Shape, schema.fillValueOr())
	raw, err := fill.MarshalBinary()
	if err != nil {
		return err
	}
	storBuf := storage.Buffer{DType: schema.DType.String(), Shape: s.result.Shape, Raw: raw}

	return withWriteLock(a.coll.client.registry, a.lockResource(), a.coll.client.opts.WriteLockTimeout, a.coll.client.opts.WriteLockCheckInterval, func() error {
		return a.coll.client.adapter.Write(h, toStorageBounds(s.result.Bounds), storBuf)
	})
}

// Describe renders the subset's per-dimension description.
func (s *Subset) Describe() (DescribeRecord, error) {
	return s.array.coll.Manifest.Schema.Describe(s.result.Bounds, s.result.Collapsed, s.array.timeRefResolver())
}

func shapeMatches(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func boundsCoverShape(b Bounds, shape []int) bool {
	for i, r := range b {
		if r.Lo != 0 || r.Hi != shape[i] {
			return false
		}
	}
	return true
}

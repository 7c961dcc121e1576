package deker

import (
	"context"
	"fmt"
	"sync"

	"github.com/deker-engine/deker-go/storage"
)

// VSubset is a lazily-bound view over a rectangular region of a VArray,
// spanning one or more tiles. Read/Update/Clear scatter-gather across the
// affected tiles on the owning Client's worker pool.
type VSubset struct {
	varray *VArray
	result normalizeResult
	tiles  []TileRecord
}

// Subset normalizes indexers against the virtual array's schema and plans
// the set of tiles the resulting bounds touches.
func (v *VArray) Subset(indexers ...Indexer) (*VSubset, error) {
	schema := v.schema()
	result, err := schema.ArraySchema.Normalize(indexers, v.timeRefResolver())
	if err != nil {
		return nil, err
	}
	tiles, err := planTiles(schema.ArraysShape(), result.Bounds)
	if err != nil {
		return nil, err
	}
	return &VSubset{varray: v, result: result, tiles: tiles}, nil
}

// Read gathers every affected tile's contribution into one aggregated
// Buffer shaped to the subset's non-collapsed shape. Tiles are read
// concurrently on the Client's worker pool; the first tile read to fail
// cancels the tile reads that have not started yet, and its error is
// returned.
func (s *VSubset) Read() (*Buffer, error) {
	v := s.varray
	schema := v.schema()
	fullShape := s.result.Bounds.shapeOf()

	req := requestedBytes(s.result.Shape, schema.DType)
	if err := checkMemoryAdmission(req, v.coll.client.opts.MemoryLimitBytes); err != nil {
		return nil, err
	}

	out := NewFilledBuffer(schema.DType, fullShape, schema.fillValueOr())

	err := s.scatterGather(func(ctx context.Context, t TileRecord) error {
		path := v.tileBodyPath(t.TileIndex)
		opts := v.coll.Manifest.StorageOptions.toAdapterOptions()
		h, err := v.coll.client.adapter.Open(path, schema.DType.String(), schema.ArraysShape(), opts)
		if err != nil {
			return errIO("failed to open tile body", err)
		}
		defer v.coll.client.adapter.Close(h)

		var buf storage.Buffer
		lockErr := withReadLock(v.coll.client.registry, v.tileLockResource(t.TileIndex), v.coll.client.opts.WriteLockTimeout, v.coll.client.opts.WriteLockCheckInterval, func() error {
			var readErr error
			buf, readErr = v.coll.client.adapter.Read(h, toStorageBounds(t.Inner), schema.fillValueOr())
			return readErr
		})
		if lockErr != nil {
			return lockErr
		}

		tileBuf, err := UnmarshalBuffer(schema.DType, buf.Shape, buf.Raw)
		if err != nil {
			return err
		}
		return copyInto(out, tileBuf, t.Outer)
	})
	if err != nil {
		return nil, err
	}
	out.Shape = s.result.Shape
	return out, nil
}

// Update scatters buf's contribution out to every affected tile
// concurrently, under each tile's write lock, acquired in dimension-major
// order to avoid cross-writer deadlock.
func (s *VSubset) Update(buf *Buffer) error {
	v := s.varray
	schema := v.schema()
	conv, err := buf.ConvertTo(schema.DType)
	if err != nil {
		return err
	}
	if !shapeMatches(conv.Shape, s.result.Shape) {
		return errShape(fmt.Sprintf("update buffer shape %v does not match subset shape %v", conv.Shape, s.result.Shape), nil)
	}

	paths := make([]string, len(s.tiles))
	for i, t := range s.tiles {
		paths[i] = v.tileLockResource(t.TileIndex)
	}
	locks, release, err := lockTilesOrdered(v.coll.client.registry, paths, v.coll.client.opts.WriteLockTimeout, v.coll.client.opts.WriteLockCheckInterval)
	if err != nil {
		return err
	}
	defer release()

	opts := v.coll.Manifest.StorageOptions.toAdapterOptions()
	fullShape := s.result.Bounds.shapeOf()
	fullConv := reshapeBuffer(conv, fullShape)

	return s.scatterGatherIdx(func(ctx context.Context, i int, t TileRecord) error {
		_ = locks[i] // lock already held by lockTilesOrdered; kept for clarity of ownership
		tileBuf, err := extractFrom(fullConv, t.Outer, t.Inner.shapeOf())
		if err != nil {
			return err
		}
		raw, err := tileBuf.MarshalBinary()
		if err != nil {
			return err
		}

		path := v.tileBodyPath(t.TileIndex)
		h, err := v.coll.client.adapter.Open(path, schema.DType.String(), schema.ArraysShape(), opts)
		if err != nil {
			return errIO("failed to open tile body", err)
		}
		defer v.coll.client.adapter.Close(h)

		storBuf := storage.Buffer{DType: schema.DType.String(), Shape: t.Inner.shapeOf(), Raw: raw}
		return v.coll.client.adapter.Write(h, toStorageBounds(t.Inner), storBuf)
	})
}

// Clear resets every affected tile's region to the schema's fill value,
// truncating a tile outright when the cleared region covers that tile's
// entire shape.
func (s *VSubset) Clear() error {
	v := s.varray
	schema := v.schema()
	tileShape := schema.ArraysShape()
	opts := v.coll.Manifest.StorageOptions.toAdapterOptions()

	return s.scatterGather(func(ctx context.Context, t TileRecord) error {
		path := v.tileBodyPath(t.TileIndex)
		h, err := v.coll.client.adapter.Open(path, schema.DType.String(), tileShape, opts)
		if err != nil {
			return errIO("failed to open tile body", err)
		}
		defer v.coll.client.adapter.Close(h)

		return withWriteLock(v.coll.client.registry, v.tileLockResource(t.TileIndex), v.coll.client.opts.WriteLockTimeout, v.coll.client.opts.WriteLockCheckInterval, func() error {
			if boundsCoverShape(t.Inner, tileShape) {
				return v.coll.client.adapter.Truncate(h)
			}
			fill := NewFilledBuffer(schema.DType, t.Inner.shapeOf(), schema.fillValueOr())
			raw, err := fill.MarshalBinary()
			if err != nil {
				return err
			}
			storBuf := storage.Buffer{DType: schema.DType.String(), Shape: t.Inner.shapeOf(), Raw: raw}
			return v.coll.client.adapter.Write(h, toStorageBounds(t.Inner), storBuf)
		})
	})
}

// Describe renders the subset's per-dimension description.
func (s *VSubset) Describe() (DescribeRecord, error) {
	return s.varray.schema().ArraySchema.Describe(s.result.Bounds, s.result.Collapsed, s.varray.timeRefResolver())
}

// scatterGather runs fn over every tile on the Client's worker pool,
// cancelling remaining work on the first error and returning it.
func (s *VSubset) scatterGather(fn func(ctx context.Context, t TileRecord) error) error {
	return s.scatterGatherIdx(func(ctx context.Context, _ int, t TileRecord) error {
		return fn(ctx, t)
	})
}

func (s *VSubset) scatterGatherIdx(fn func(ctx context.Context, i int, t TileRecord) error) error {
	if len(s.tiles) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		firstErr error
	)

	for i, t := range s.tiles {
		i, t := i, t
		wg.Add(1)
		s.varray.coll.client.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, i, t); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
			}
		})
	}

	wg.Wait()
	return firstErr
}

func (b Bounds) shapeOf() []int {
	out := make([]int, len(b))
	for i, r := range b {
		out[i] = r.Len()
	}
	return out
}

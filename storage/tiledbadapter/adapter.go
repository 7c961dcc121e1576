// Package tiledbadapter implements storage.Adapter on top of TileDB's dense
// array format, giving collections created with the "tiledb" URI scheme
// chunked storage and a real compression filter pipeline instead of the
// flat row-major files storage.LocalAdapter writes. The filter-construction
// helpers below (zstdFilter, gzipFilter, lz4Filter, rleFilter, bzip2Filter,
// bitWidthReductionFilter, attachFilters) are adapted from the dimension
// writer's TileDB filter-pipeline plumbing.
package tiledbadapter

import (
	"fmt"
	"os"

	tiledb "github.com/TileDB-Inc/TileDB-Go"

	"github.com/deker-engine/deker-go/storage"
)

func init() {
	ctx, err := tiledb.NewContext(nil)
	if err != nil {
		return
	}
	storage.Register("tiledb", NewAdapter(ctx))
}

var dtypeMap = map[string]tiledb.Datatype{
	"int8": tiledb.TILEDB_INT8, "int16": tiledb.TILEDB_INT16,
	"int32": tiledb.TILEDB_INT32, "int64": tiledb.TILEDB_INT64,
	"float16": tiledb.TILEDB_FLOAT32, "float32": tiledb.TILEDB_FLOAT32,
	"float64": tiledb.TILEDB_FLOAT64, "float128": tiledb.TILEDB_FLOAT64,
	"complex64": tiledb.TILEDB_UINT8, "complex128": tiledb.TILEDB_UINT8,
	"complex256": tiledb.TILEDB_UINT8,
}

// widthMap mirrors the core's ElementType.ByteWidth: float16, float128 and
// complex256 have no native Go representation and are carried (and
// therefore sized) as float32, float64 and complex128 respectively.
var widthMap = map[string]int{
	"int8": 1, "int16": 2, "int32": 4, "int64": 8,
	"float16": 4, "float32": 4, "float64": 8, "float128": 8,
	"complex64": 8, "complex128": 16, "complex256": 16,
}

const attrName = "value"

// Adapter is the TileDB-Go backed storage.Adapter. One Context is shared
// across every dataset the adapter opens.
type Adapter struct {
	ctx *tiledb.Context
}

func NewAdapter(ctx *tiledb.Context) *Adapter {
	return &Adapter{ctx: ctx}
}

// handle is the Adapter's concrete storage.Handle: a TileDB URI plus enough
// of the declared schema to build subarrays on Read/Write.
type handle struct {
	uri   string
	dtype string
	shape []int
	opts  storage.Options
}

func (h *handle) Path() string { return h.uri }

// arrayOpen opens an existing tiledb array for mode, adapted from the
// dimension writer's ArrayOpen.
func arrayOpen(ctx *tiledb.Context, uri string, mode tiledb.QueryType) (*tiledb.Array, error) {
	arr, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := arr.Open(mode); err != nil {
		arr.Free()
		return nil, err
	}
	return arr, nil
}

func zstdFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	f, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
	if err != nil {
		return nil, err
	}
	if err := f.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		f.Free()
		return nil, err
	}
	return f, nil
}

func gzipFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	f, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_GZIP)
	if err != nil {
		return nil, err
	}
	if err := f.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		f.Free()
		return nil, err
	}
	return f, nil
}

func lz4Filter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	f, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_LZ4)
	if err != nil {
		return nil, err
	}
	if err := f.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		f.Free()
		return nil, err
	}
	return f, nil
}

func rleFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	f, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_RLE)
	if err != nil {
		return nil, err
	}
	if err := f.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		f.Free()
		return nil, err
	}
	return f, nil
}

func bzip2Filter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	f, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_BZIP2)
	if err != nil {
		return nil, err
	}
	if err := f.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		f.Free()
		return nil, err
	}
	return f, nil
}

func bitWidthReductionFilter(ctx *tiledb.Context, window int32) (*tiledb.Filter, error) {
	f, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_BIT_WIDTH_REDUCTION)
	if err != nil {
		return nil, err
	}
	if err := f.SetOption(tiledb.TILEDB_BIT_WIDTH_MAX_WINDOW, window); err != nil {
		f.Free()
		return nil, err
	}
	return f, nil
}

func attachFilters(list *tiledb.FilterList, attrs ...*tiledb.Attribute) error {
	for _, a := range attrs {
		if err := a.SetFilterList(list); err != nil {
			return err
		}
	}
	return nil
}

// filterListFor builds the attribute filter pipeline for opts.Compression,
// defaulting to an uncompressed pipeline when unset.
func (a *Adapter) filterListFor(opts storage.Options) (*tiledb.FilterList, error) {
	list, err := tiledb.NewFilterList(a.ctx)
	if err != nil {
		return nil, err
	}
	if opts.Compression == nil {
		return list, nil
	}
	var filt *tiledb.Filter
	switch opts.Compression.Filter {
	case "zstd":
		filt, err = zstdFilter(a.ctx, opts.Compression.Level)
	case "gzip":
		filt, err = gzipFilter(a.ctx, opts.Compression.Level)
	case "lz4":
		filt, err = lz4Filter(a.ctx, opts.Compression.Level)
	case "rle":
		filt, err = rleFilter(a.ctx, opts.Compression.Level)
	case "bzip2":
		filt, err = bzip2Filter(a.ctx, opts.Compression.Level)
	case "bitw":
		filt, err = bitWidthReductionFilter(a.ctx, opts.Compression.Level)
	default:
		return nil, fmt.Errorf("tiledb adapter: unknown compression filter %q", opts.Compression.Filter)
	}
	if err != nil {
		list.Free()
		return nil, err
	}
	defer filt.Free()
	if err := list.AddFilter(filt); err != nil {
		list.Free()
		return nil, err
	}
	return list, nil
}

// chunkExtents resolves the schema's declared shape and the collection's
// chunking options into per-dimension tile extents, defaulting to the full
// extent (one tile spanning the whole dimension) when unset.
func chunkExtents(shape []int, opts storage.Options) []int {
	if opts.ChunkMode == storage.ChunkExplicit && len(opts.ChunkShape) == len(shape) {
		return opts.ChunkShape
	}
	return shape
}

// Open creates the array at path if it does not already exist, otherwise
// just records enough of the schema to build subarrays.
func (a *Adapter) Open(path string, dtype string, shape []int, opts storage.Options) (storage.Handle, error) {
	tdt, ok := dtypeMap[dtype]
	if !ok {
		return nil, fmt.Errorf("tiledb adapter: unknown dtype %q", dtype)
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("tiledb adapter: stat: %w", err)
		}
		if err := a.create(path, tdt, shape, opts); err != nil {
			return nil, err
		}
	}

	return &handle{uri: path, dtype: dtype, shape: append([]int(nil), shape...), opts: opts}, nil
}

func (a *Adapter) create(path string, tdt tiledb.Datatype, shape []int, opts storage.Options) error {
	dom, err := tiledb.NewDomain(a.ctx)
	if err != nil {
		return err
	}
	defer dom.Free()

	extents := chunkExtents(shape, opts)
	for i, dimLen := range shape {
		extent := extents[i]
		if extent <= 0 || extent > dimLen {
			extent = dimLen
		}
		dim, err := tiledb.NewDimension(a.ctx, fmt.Sprintf("d%d", i), tiledb.TILEDB_INT64, []int64{0, int64(dimLen) - 1}, int64(extent))
		if err != nil {
			return err
		}
		if err := dom.AddDimensions(dim); err != nil {
			dim.Free()
			return err
		}
		dim.Free()
	}

	schema, err := tiledb.NewArraySchema(a.ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return err
	}
	defer schema.Free()
	if err := schema.SetDomain(dom); err != nil {
		return err
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return err
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return err
	}

	attr, err := tiledb.NewAttribute(a.ctx, attrName, tdt)
	if err != nil {
		return err
	}
	defer attr.Free()

	filters, err := a.filterListFor(opts)
	if err != nil {
		return err
	}
	defer filters.Free()
	if err := attachFilters(filters, attr); err != nil {
		return err
	}
	if err := schema.AddAttributes(attr); err != nil {
		return err
	}

	return tiledb.CreateArray(a.ctx, path, schema)
}

func (a *Adapter) Close(h storage.Handle) error { return nil }

func (a *Adapter) Delete(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("tiledb adapter: delete: %w", err)
	}
	return nil
}

// Truncate drops and recreates an empty array at the same URI with the same
// schema, since TileDB arrays have no notion of "body" separate from
// "metadata" the way a flat file does.
func (a *Adapter) Truncate(h storage.Handle) error {
	hh := h.(*handle)
	tdt := dtypeMap[hh.dtype]
	if err := os.RemoveAll(hh.uri); err != nil {
		return fmt.Errorf("tiledb adapter: truncate: %w", err)
	}
	return a.create(hh.uri, tdt, hh.shape, hh.opts)
}

func subarrayOf(bounds storage.Bounds) []int64 {
	out := make([]int64, 0, len(bounds)*2)
	for _, b := range bounds {
		out = append(out, int64(b.Lo), int64(b.Hi)-1)
	}
	return out
}

// Read reads bounds from the TileDB array. Open always creates the array,
// so there is no absent body to synthesize: the fill argument is not used,
// and cells never written read back as the TileDB attribute's own fill
// value.
func (a *Adapter) Read(h storage.Handle, bounds storage.Bounds, fill float64) (storage.Buffer, error) {
	hh := h.(*handle)
	width, ok := widthMap[hh.dtype]
	if !ok {
		return storage.Buffer{}, fmt.Errorf("tiledb adapter: unknown dtype %q", hh.dtype)
	}

	arr, err := arrayOpen(a.ctx, hh.uri, tiledb.TILEDB_READ)
	if err != nil {
		return storage.Buffer{}, fmt.Errorf("tiledb adapter: open for read: %w", err)
	}
	defer arr.Free()
	defer arr.Close()

	shape := bounds.Shape()
	n := 1
	for _, s := range shape {
		n *= s
	}
	raw := make([]byte, n*width)

	query, err := tiledb.NewQuery(a.ctx, arr)
	if err != nil {
		return storage.Buffer{}, err
	}
	defer query.Free()

	elems := rawAsElements(hh.dtype, raw)
	if err := query.SetSubArray(subarrayOf(bounds)); err != nil {
		return storage.Buffer{}, err
	}
	if _, err := query.SetBuffer(attrName, elems); err != nil {
		return storage.Buffer{}, err
	}
	if err := query.Submit(); err != nil {
		return storage.Buffer{}, fmt.Errorf("tiledb adapter: read: %w", err)
	}
	encodeElementsInto(hh.dtype, elems, raw)

	return storage.Buffer{DType: hh.dtype, Shape: shape, Raw: raw}, nil
}

func (a *Adapter) Write(h storage.Handle, bounds storage.Bounds, buf storage.Buffer) error {
	hh := h.(*handle)

	arr, err := arrayOpen(a.ctx, hh.uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return fmt.Errorf("tiledb adapter: open for write: %w", err)
	}
	defer arr.Free()
	defer arr.Close()

	query, err := tiledb.NewQuery(a.ctx, arr)
	if err != nil {
		return err
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return err
	}
	if err := query.SetSubArray(subarrayOf(bounds)); err != nil {
		return err
	}
	if _, err := query.SetBuffer(attrName, rawAsElements(hh.dtype, buf.Raw)); err != nil {
		return err
	}
	if err := query.Submit(); err != nil {
		return fmt.Errorf("tiledb adapter: write: %w", err)
	}
	return query.Finalize()
}

func (a *Adapter) ReadMeta(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tiledb adapter: read meta: %w", err)
	}
	return buf, nil
}

func (a *Adapter) WriteMeta(path string, record []byte) error {
	tmp, err := os.CreateTemp(osDir(path), ".tmp-meta-*")
	if err != nil {
		return fmt.Errorf("tiledb adapter: write meta: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("tiledb adapter: write meta: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tiledb adapter: write meta: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tiledb adapter: write meta: %w", err)
	}
	return nil
}

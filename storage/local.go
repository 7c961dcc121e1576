package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func init() {
	Register("file", NewLocalAdapter())
}

// elementWidths mirrors the core's ElementType.ByteWidth: float16, float128
// and complex256 have no native Go representation and are carried (and
// therefore sized) as float32, float64 and complex128 respectively.
var elementWidths = map[string]int{
	"int8": 1, "int16": 2, "int32": 4, "int64": 8,
	"float16": 4, "float32": 4, "float64": 8, "float128": 8,
	"complex64": 8, "complex128": 16, "complex256": 16,
}

// localHandle is the LocalAdapter's concrete Handle: a dense row-major flat
// file, plus enough of the declared schema to compute strided byte offsets.
type localHandle struct {
	path    string
	dtype   string
	shape   []int
	width   int
	strides []int // element strides, row-major
}

func (h *localHandle) Path() string { return h.path }

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// LocalAdapter is the dependency-free reference storage adapter: a dense
// row-major binary file per array/tile, with tmp+rename metadata writes.
// The concrete chunked/compressed format is deliberately out of scope for
// the core; the contract itself is the pluggable seam, and a stdlib-only
// implementation is what lets every other adapter (e.g. the TileDB-backed
// one, in storage/tiledbadapter) be swapped in without the core ever
// depending on a specific file format.
//
// Known limitation: because this adapter does not track per-cell
// provenance the way a chunked columnar format does, once a body is
// materialized (first Write) any of its cells that were never explicitly
// written read back as zero bytes rather than the schema's configured fill
// value, whenever that fill value is non-zero. Bodies that have never been
// written at all still synthesize the full fill buffer correctly, which
// covers the schema default (fill value 0) exactly.
type LocalAdapter struct{}

func NewLocalAdapter() *LocalAdapter { return &LocalAdapter{} }

func (a *LocalAdapter) Open(path string, dtype string, shape []int, opts Options) (Handle, error) {
	width, ok := elementWidths[dtype]
	if !ok {
		return nil, fmt.Errorf("local adapter: unknown dtype %q", dtype)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("local adapter: mkdir: %w", err)
	}
	return &localHandle{
		path:    path,
		dtype:   dtype,
		shape:   append([]int(nil), shape...),
		width:   width,
		strides: rowMajorStrides(shape),
	}, nil
}

func (a *LocalAdapter) Close(h Handle) error { return nil }

func (a *LocalAdapter) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local adapter: delete: %w", err)
	}
	return nil
}

func (a *LocalAdapter) Truncate(h Handle) error {
	lh := h.(*localHandle)
	if err := os.Remove(lh.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local adapter: truncate: %w", err)
	}
	return nil
}

func (a *LocalAdapter) ReadMeta(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("local adapter: read meta: %w", err)
	}
	return buf, nil
}

func (a *LocalAdapter) WriteMeta(path string, record []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("local adapter: mkdir for meta: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-meta-*")
	if err != nil {
		return fmt.Errorf("local adapter: write meta: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("local adapter: write meta: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("local adapter: write meta: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("local adapter: write meta: %w", err)
	}
	return nil
}

// Read synthesizes a fill buffer when the body file does not exist,
// otherwise reads the strided region described by bounds.
func (a *LocalAdapter) Read(h Handle, bounds Bounds, fill float64) (Buffer, error) {
	lh := h.(*localHandle)
	shape := bounds.Shape()
	n := 1
	for _, s := range shape {
		n *= s
	}

	f, err := os.Open(lh.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fillBuffer(lh.dtype, shape, lh.width, fill), nil
		}
		return Buffer{}, fmt.Errorf("local adapter: open for read: %w", err)
	}
	defer f.Close()

	out := make([]byte, n*lh.width)
	err = walkRows(lh.shape, lh.strides, bounds, lh.width, func(offset int64, runBytes int, outPos int) error {
		if _, err := f.ReadAt(out[outPos:outPos+runBytes], offset); err != nil && err != io.EOF {
			// a short/absent run within an existing-but-shorter file reads as
			// zero bytes, consistent with the adapter's sparse-body semantics
			if err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Buffer{}, fmt.Errorf("local adapter: read: %w", err)
	}

	return Buffer{DType: lh.dtype, Shape: shape, Raw: out}, nil
}

func (a *LocalAdapter) Write(h Handle, bounds Bounds, buf Buffer) error {
	lh := h.(*localHandle)

	f, err := os.OpenFile(lh.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("local adapter: open for write: %w", err)
	}
	defer f.Close()

	return walkRows(lh.shape, lh.strides, bounds, lh.width, func(offset int64, runBytes int, srcPos int) error {
		_, err := f.WriteAt(buf.Raw[srcPos:srcPos+runBytes], offset)
		return err
	})
}

// walkRows iterates over every contiguous innermost run covered by bounds,
// invoking fn(fileByteOffset, runLengthBytes, bufferBytePosition) for each.
func walkRows(shape, strides []int, bounds Bounds, width int, fn func(offset int64, runBytes int, bufPos int) error) error {
	ndims := len(shape)
	if ndims == 0 {
		return nil
	}

	outerDims := ndims - 1
	counters := make([]int, outerDims)
	for i := range counters {
		counters[i] = bounds[i].Lo
	}

	lastLo, lastHi := bounds[ndims-1].Lo, bounds[ndims-1].Hi
	runElems := lastHi - lastLo
	runBytes := runElems * width

	outerShape := make([]int, outerDims)
	for i := 0; i < outerDims; i++ {
		outerShape[i] = bounds[i].Hi - bounds[i].Lo
	}

	bufPos := 0
	if outerDims == 0 {
		offset := int64(lastLo) * int64(width)
		return fn(offset, runBytes, 0)
	}

	total := 1
	for _, s := range outerShape {
		total *= s
	}

	for iter := 0; iter < total; iter++ {
		elemOffset := 0
		for d := 0; d < outerDims; d++ {
			elemOffset += counters[d] * strides[d]
		}
		elemOffset += lastLo * strides[ndims-1]
		byteOffset := int64(elemOffset) * int64(width)

		if err := fn(byteOffset, runBytes, bufPos); err != nil {
			return err
		}
		bufPos += runBytes

		// odometer-advance the outer counters, fastest-varying last
		for d := outerDims - 1; d >= 0; d-- {
			counters[d]++
			if counters[d] < bounds[d].Hi {
				break
			}
			counters[d] = bounds[d].Lo
		}
	}

	return nil
}

func fillBuffer(dtype string, shape []int, width int, fill float64) Buffer {
	n := 1
	for _, s := range shape {
		n *= s
	}
	raw := make([]byte, n*width)
	fillPattern := encodeFillPattern(dtype, width, fill)
	if isZeroPattern(fillPattern) {
		return Buffer{DType: dtype, Shape: shape, Raw: raw}
	}
	for i := 0; i < n; i++ {
		copy(raw[i*width:(i+1)*width], fillPattern)
	}
	return Buffer{DType: dtype, Shape: shape, Raw: raw}
}

func isZeroPattern(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}

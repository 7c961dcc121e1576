package deker

// reshapeBuffer returns a shallow copy of b with Shape replaced by newShape.
// Valid only when newShape has the same element count as b.Shape and
// differs only by the presence/absence of size-1 axes, which never affects
// a row-major buffer's flat byte layout. Used to reinterpret a
// collapsed-dimension-squeezed subset buffer as the full-rank shape a
// tile-bounds computation expects, and back again.
func reshapeBuffer(b *Buffer, newShape []int) *Buffer {
	cp := *b
	cp.Shape = append([]int(nil), newShape...)
	return &cp
}

// rowMajorStridesDeker mirrors storage.rowMajorStrides for the core's typed
// Buffer, kept as a separate copy because the two packages intentionally do
// not share code across the storage-adapter boundary (see storage/local.go).
func rowMajorStridesDeker(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

func flatToIdx(flat int, strides []int, idx []int) {
	rem := flat
	for d := range idx {
		idx[d] = rem / strides[d]
		rem %= strides[d]
	}
}

// copyElement copies the single element at src flat index sFlat into dst at
// flat index dFlat, dispatching on dst.DType (both buffers share a dtype by
// construction; callers never mix dtypes across a tile boundary).
func copyElement(dst *Buffer, dFlat int, src *Buffer, sFlat int) error {
	switch dst.DType {
	case Int8:
		dst.I8[dFlat] = src.I8[sFlat]
	case Int16:
		dst.I16[dFlat] = src.I16[sFlat]
	case Int32:
		dst.I32[dFlat] = src.I32[sFlat]
	case Int64:
		dst.I64[dFlat] = src.I64[sFlat]
	case Float16:
		dst.F16[dFlat] = src.F16[sFlat]
	case Float32:
		dst.F32[dFlat] = src.F32[sFlat]
	case Float64:
		dst.F64[dFlat] = src.F64[sFlat]
	case Float128:
		dst.F128[dFlat] = src.F128[sFlat]
	case Complex64:
		dst.C64[dFlat] = src.C64[sFlat]
	case Complex128:
		dst.C128[dFlat] = src.C128[sFlat]
	case Complex256:
		dst.C256[dFlat] = src.C256[sFlat]
	default:
		return errDtype("cannot copy element of unknown dtype", nil)
	}
	return nil
}

// copyInto copies every element of src (whose shape is dstBounds.shapeOf())
// into the region of dst described by dstBounds, both in row-major order.
// Used to gather one tile's contribution into a virtual-array subset's
// aggregated buffer.
func copyInto(dst *Buffer, src *Buffer, dstBounds Bounds) error {
	srcShape := dstBounds.shapeOf()
	dstStrides := rowMajorStridesDeker(dst.Shape)
	srcStrides := rowMajorStridesDeker(srcShape)

	n := NElements(srcShape)
	idx := make([]int, len(srcShape))
	for flat := 0; flat < n; flat++ {
		flatToIdx(flat, srcStrides, idx)
		dPos := 0
		for d := range idx {
			dPos += (dstBounds[d].Lo + idx[d]) * dstStrides[d]
		}
		if err := copyElement(dst, dPos, src, flat); err != nil {
			return err
		}
	}
	return nil
}

// extractFrom builds a new Buffer of shape outShape by copying the region of
// src described by srcBounds (srcBounds.shapeOf() == outShape). Used to carve
// out one tile's slice of a virtual-array subset's update buffer before
// scattering it to that tile's storage.
func extractFrom(src *Buffer, srcBounds Bounds, outShape []int) (*Buffer, error) {
	out := &Buffer{DType: src.DType, Shape: append([]int(nil), outShape...)}
	n := NElements(outShape)
	switch src.DType {
	case Int8:
		out.I8 = make([]int8, n)
	case Int16:
		out.I16 = make([]int16, n)
	case Int32:
		out.I32 = make([]int32, n)
	case Int64:
		out.I64 = make([]int64, n)
	case Float16:
		out.F16 = make([]float32, n)
	case Float32:
		out.F32 = make([]float32, n)
	case Float64:
		out.F64 = make([]float64, n)
	case Float128:
		out.F128 = make([]float64, n)
	case Complex64:
		out.C64 = make([]complex64, n)
	case Complex128:
		out.C128 = make([]complex128, n)
	case Complex256:
		out.C256 = make([]complex128, n)
	default:
		return nil, errDtype("cannot extract region of unknown dtype", nil)
	}

	srcStrides := rowMajorStridesDeker(src.Shape)
	outStrides := rowMajorStridesDeker(outShape)
	idx := make([]int, len(outShape))
	for flat := 0; flat < n; flat++ {
		flatToIdx(flat, outStrides, idx)
		sPos := 0
		for d := range idx {
			sPos += (srcBounds[d].Lo + idx[d]) * srcStrides[d]
		}
		if err := copyElement(out, flat, src, sPos); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Package storage defines the small adapter contract the core engine
// depends on for opening, reading, writing, truncating, and deleting a
// per-array chunked dataset, plus per-file metadata I/O.
// The concrete chunked/compressed file format is explicitly out of scope
// for the core; this package is the pluggable seam two concrete adapters
// satisfy: LocalAdapter (this package, stdlib-only) and
// storage/tiledbadapter.Adapter (TileDB-Go backed).
package storage

import "fmt"

// Bound is a half-open integer range [Lo, Hi) over one dimension.
type Bound struct {
	Lo, Hi int
}

// Bounds is one Bound per dimension, in schema order.
type Bounds []Bound

// Shape returns the per-dimension lengths of the region the Bounds covers.
func (b Bounds) Shape() []int {
	out := make([]int, len(b))
	for i, r := range b {
		out[i] = r.Hi - r.Lo
	}
	return out
}

// ChunkMode selects how a dataset's chunk shape is determined.
type ChunkMode int

const (
	ChunkNone ChunkMode = iota
	ChunkAuto
	ChunkExplicit
)

// CompressionOptions names a compression filter and level applied by the
// adapter; opaque to the core.
type CompressionOptions struct {
	Filter string // e.g. "zstd", "gzip", "lz4", "rle", "bzip2", "bitw"
	Level  int32
}

// Options carries the collection's storage options down to Open.
type Options struct {
	ChunkMode  ChunkMode
	ChunkShape []int // meaningful only when ChunkMode == ChunkExplicit; must divide Shape elementwise
	Compression *CompressionOptions
}

// Buffer is the adapter-facing raw representation of a dense typed buffer:
// a dtype code (matching deker.ElementType.String()), a shape, and the
// big-endian encoded bytes.
type Buffer struct {
	DType string
	Shape []int
	Raw   []byte
}

// Handle is an opened dataset; concrete adapters embed identity/lifecycle
// state behind it.
type Handle interface {
	Path() string
}

// Adapter is the storage-adapter contract the core depends on.
type Adapter interface {
	// Open opens or creates a chunked dataset at path with the given dtype,
	// full shape, and storage options.
	Open(path string, dtype string, shape []int, opts Options) (Handle, error)

	// Read returns a dense buffer for bounds. If the dataset body does not
	// exist on disk, the adapter synthesizes a fill
	// buffer using fill.
	Read(h Handle, bounds Bounds, fill float64) (Buffer, error)

	// Write materializes the body on first call and writes buf into bounds.
	Write(h Handle, bounds Bounds, buf Buffer) error

	// Truncate deletes the body, keeping metadata.
	Truncate(h Handle) error

	// Delete removes the file (and any chunk siblings) entirely.
	Delete(path string) error

	// ReadMeta/WriteMeta persist the raw JSON metadata record.
	ReadMeta(path string) ([]byte, error)
	WriteMeta(path string, record []byte) error

	// Close releases any resources associated with h.
	Close(h Handle) error
}

// ErrAdapterNotFound is returned by adapter discovery when no adapter
// matches the requested URI scheme.
type ErrAdapterNotFound struct {
	Scheme string
}

func (e *ErrAdapterNotFound) Error() string {
	return fmt.Sprintf("no storage adapter registered for scheme %q", e.Scheme)
}

// registry is the process-wide adapter registry, populated by adapters'
// init() functions or explicit Register calls.
var registry = map[string]Adapter{}

// Register associates an Adapter with a URI scheme (e.g. "file", "tiledb").
func Register(scheme string, a Adapter) {
	registry[scheme] = a
}

// Lookup resolves the Adapter registered for scheme, or ErrAdapterNotFound.
func Lookup(scheme string) (Adapter, error) {
	a, ok := registry[scheme]
	if !ok {
		return nil, &ErrAdapterNotFound{Scheme: scheme}
	}
	return a, nil
}

package storage

import (
	"path/filepath"
	"testing"
)

func TestLocalAdapterWriteReadRoundTrip(t *testing.T) {
	a := NewLocalAdapter()
	dir := t.TempDir()
	path := filepath.Join(dir, "arr.bin")

	h, err := a.Open(path, "float32", []int{4, 4}, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	full := Bounds{{0, 4}, {0, 4}}
	raw := make([]byte, 4*4*4)
	for i := range raw {
		raw[i] = byte(i % 251)
	}
	if err := a.Write(h, full, Buffer{DType: "float32", Shape: full.Shape(), Raw: raw}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := a.Read(h, full, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Raw) != len(raw) {
		t.Fatalf("Read length = %d, want %d", len(got.Raw), len(raw))
	}
	for i := range raw {
		if got.Raw[i] != raw[i] {
			t.Fatalf("byte %d = %d, want %d", i, got.Raw[i], raw[i])
		}
	}
}

func TestLocalAdapterReadMissingBodySynthesizesFill(t *testing.T) {
	a := NewLocalAdapter()
	dir := t.TempDir()
	path := filepath.Join(dir, "never-written.bin")

	h, err := a.Open(path, "int32", []int{2, 2}, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	buf, err := a.Read(h, Bounds{{0, 2}, {0, 2}}, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for _, b := range buf.Raw {
		if b != 0 {
			t.Fatalf("expected all-zero fill buffer, got byte %d", b)
		}
	}
}

func TestLocalAdapterReadSubregion(t *testing.T) {
	a := NewLocalAdapter()
	dir := t.TempDir()
	path := filepath.Join(dir, "arr.bin")

	h, err := a.Open(path, "int8", []int{4, 4}, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	full := Bounds{{0, 4}, {0, 4}}
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i)
	}
	if err := a.Write(h, full, Buffer{DType: "int8", Shape: full.Shape(), Raw: raw}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	sub := Bounds{{1, 3}, {1, 3}}
	got, err := a.Read(h, sub, 0)
	if err != nil {
		t.Fatalf("Read sub: %v", err)
	}
	// row 1: bytes 4..8 -> cols 1,2 = 5,6 ; row 2: bytes 8..12 -> cols 1,2 = 9,10
	want := []byte{5, 6, 9, 10}
	if len(got.Raw) != len(want) {
		t.Fatalf("got %v, want %v", got.Raw, want)
	}
	for i := range want {
		if got.Raw[i] != want[i] {
			t.Fatalf("got %v, want %v", got.Raw, want)
		}
	}
}

func TestLocalAdapterTruncateAndDelete(t *testing.T) {
	a := NewLocalAdapter()
	dir := t.TempDir()
	path := filepath.Join(dir, "arr.bin")

	h, err := a.Open(path, "int8", []int{2}, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	full := Bounds{{0, 2}}
	if err := a.Write(h, full, Buffer{DType: "int8", Shape: full.Shape(), Raw: []byte{1, 2}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := a.Truncate(h); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	buf, err := a.Read(h, full, 0)
	if err != nil {
		t.Fatalf("Read after truncate: %v", err)
	}
	if buf.Raw[0] != 0 || buf.Raw[1] != 0 {
		t.Fatalf("expected zeroed read after truncate, got %v", buf.Raw)
	}

	if err := a.Delete(path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestLocalAdapterMetaRoundTrip(t *testing.T) {
	a := NewLocalAdapter()
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")

	if err := a.WriteMeta(path, []byte(`{"k":"v"}`)); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}
	got, err := a.ReadMeta(path)
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if string(got) != `{"k":"v"}` {
		t.Fatalf("ReadMeta = %q", got)
	}
}

func TestRegistryLookup(t *testing.T) {
	a, err := Lookup("file")
	if err != nil {
		t.Fatalf("Lookup(file): %v", err)
	}
	if a == nil {
		t.Fatal("expected a registered LocalAdapter under scheme \"file\"")
	}

	if _, err := Lookup("nonexistent-scheme"); err == nil {
		t.Fatal("expected ErrAdapterNotFound for unregistered scheme")
	}
}

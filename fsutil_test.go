package deker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicCreatesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "record.json")

	if err := writeFileAtomic(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("content = %q", got)
	}

	if err := writeFileAtomic(path, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("writeFileAtomic overwrite: %v", err)
	}
	got, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("content after overwrite = %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" || e.Name()[0] == '.' && e.Name() != filepath.Base(path) {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "present")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ok, err := pathExists(existing)
	if err != nil || !ok {
		t.Fatalf("pathExists(existing) = %v, %v", ok, err)
	}

	ok, err = pathExists(filepath.Join(dir, "absent"))
	if err != nil || ok {
		t.Fatalf("pathExists(absent) = %v, %v", ok, err)
	}
}

func TestStemOfAndIsMetaFile(t *testing.T) {
	if stemOf("array.json") != "array" {
		t.Fatalf("stemOf = %q", stemOf("array.json"))
	}
	if !isMetaFile("array.json") {
		t.Fatal("expected array.json to be a meta file")
	}
	if isMetaFile("array.bin") {
		t.Fatal("expected array.bin to not be a meta file")
	}
}

package deker

import "testing"

func TestNewArrayIDIsUnique(t *testing.T) {
	a := NewArrayID()
	b := NewArrayID()
	if a == b {
		t.Fatal("expected two distinct random UUIDs")
	}
	if len(a) != 36 {
		t.Fatalf("NewArrayID() = %q, want canonical UUID string", a)
	}
}

func TestNewVArrayIDDeterministic(t *testing.T) {
	a := NewVArrayID("swath-collection", []string{"42", "north"})
	b := NewVArrayID("swath-collection", []string{"42", "north"})
	if a != b {
		t.Fatalf("expected deterministic id, got %q and %q", a, b)
	}
}

func TestNewVArrayIDDistinguishesKeys(t *testing.T) {
	a := NewVArrayID("swath-collection", []string{"42", "north"})
	b := NewVArrayID("swath-collection", []string{"43", "north"})
	if a == b {
		t.Fatal("expected different primary keys to derive different ids")
	}

	c := NewVArrayID("other-collection", []string{"42", "north"})
	if a == c {
		t.Fatal("expected different collections to derive different ids")
	}
}

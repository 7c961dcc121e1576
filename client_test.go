package deker

import (
	"runtime"
	"testing"
)

func TestNewClientRejectsMalformedURI(t *testing.T) {
	if _, err := NewClient(ClientOptions{StorageURI: "not-a-uri"}); err == nil {
		t.Fatal("expected error for storage uri missing scheme separator")
	}
}

func TestNewClientRejectsUnknownScheme(t *testing.T) {
	if _, err := NewClient(ClientOptions{StorageURI: "s3://bucket/prefix"}); err == nil {
		t.Fatal("expected error for unregistered storage scheme")
	}
}

func TestNewClientFileScheme(t *testing.T) {
	dir := t.TempDir()
	c, err := NewClient(ClientOptions{StorageURI: "file://" + dir})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	if c.root() != dir {
		t.Fatalf("root() = %q, want %q", c.root(), dir)
	}
}

func TestClientOptionsWithDefaults(t *testing.T) {
	o := ClientOptions{}.withDefaults()
	if o.WriteLockTimeout != DefaultLockTimeout {
		t.Fatalf("WriteLockTimeout = %v, want %v", o.WriteLockTimeout, DefaultLockTimeout)
	}
	if o.WriteLockCheckInterval != DefaultLockCheckInterval {
		t.Fatalf("WriteLockCheckInterval = %v, want %v", o.WriteLockCheckInterval, DefaultLockCheckInterval)
	}
	if want := runtime.NumCPU() + 4; o.Workers != want {
		t.Fatalf("Workers = %d, want %d", o.Workers, want)
	}
}

func TestClientOptionsPreservesExplicitValues(t *testing.T) {
	o := ClientOptions{Workers: 16}.withDefaults()
	if o.Workers != 16 {
		t.Fatalf("Workers = %d, want 16 (explicit value preserved)", o.Workers)
	}
}

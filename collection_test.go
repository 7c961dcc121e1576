package deker

import "testing"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	c, err := NewClient(ClientOptions{StorageURI: "file://" + dir})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCreateAndGetCollection(t *testing.T) {
	c := newTestClient(t)

	coll, err := CreateCollection(c, CreateCollectionOptions{
		Name:            "swath",
		Schema:          newTestSchema(),
		SkipMemoryCheck: true,
	})
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if coll.Name != "swath" {
		t.Fatalf("Name = %q", coll.Name)
	}

	got, err := GetCollection(c, "swath")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if got.Manifest.Schema.DType != Float32 {
		t.Fatalf("DType = %v, want Float32", got.Manifest.Schema.DType)
	}
}

func TestCreateCollectionRejectsDuplicate(t *testing.T) {
	c := newTestClient(t)
	opts := CreateCollectionOptions{Name: "swath", Schema: newTestSchema(), SkipMemoryCheck: true}

	if _, err := CreateCollection(c, opts); err != nil {
		t.Fatalf("first CreateCollection: %v", err)
	}
	if _, err := CreateCollection(c, opts); err == nil {
		t.Fatal("expected conflict error on duplicate collection name")
	}
}

func TestGetCollectionMissing(t *testing.T) {
	c := newTestClient(t)
	if _, err := GetCollection(c, "does-not-exist"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestDeleteCollection(t *testing.T) {
	c := newTestClient(t)
	opts := CreateCollectionOptions{Name: "swath", Schema: newTestSchema(), SkipMemoryCheck: true}
	if _, err := CreateCollection(c, opts); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := DeleteCollection(c, "swath"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if _, err := GetCollection(c, "swath"); err == nil {
		t.Fatal("expected collection to be gone after DeleteCollection")
	}
}

func TestListAndFilterCollections(t *testing.T) {
	c := newTestClient(t)
	for _, name := range []string{"alpha", "beta"} {
		if _, err := CreateCollection(c, CreateCollectionOptions{
			Name: name, Schema: newTestSchema(), SkipMemoryCheck: true,
		}); err != nil {
			t.Fatalf("CreateCollection(%s): %v", name, err)
		}
	}

	names, err := ListCollectionNames(c)
	if err != nil {
		t.Fatalf("ListCollectionNames: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2: %v", len(names), names)
	}

	filtered, err := FilterCollections(c, func(m CollectionManifest) bool { return m.Name == "alpha" })
	if err != nil {
		t.Fatalf("FilterCollections: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "alpha" {
		t.Fatalf("FilterCollections = %+v", filtered)
	}
}

func TestCreateVirtualCollectionRequiresDividingVGrid(t *testing.T) {
	c := newTestClient(t)
	_, err := CreateCollection(c, CreateCollectionOptions{
		Name:            "vswath",
		Schema:          newTestSchema(),
		Virtual:         true,
		VGrid:           []int{3, 20}, // 3 does not divide 100
		SkipMemoryCheck: true,
	})
	if err == nil {
		t.Fatal("expected validation error for non-dividing vgrid")
	}
}

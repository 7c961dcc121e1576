package deker

import "testing"

func newArrayTestCollection(t *testing.T) *Collection {
	t.Helper()
	c := newTestClient(t)
	schema := ArraySchema{
		Dimensions: []Dimension{
			NewPlainDimension("row", 4),
			NewPlainDimension("col", 4),
		},
		Attributes: []Attribute{
			{Name: "id", Kind: AttrInt, Primary: true},
		},
		DType: Float32,
	}
	coll, err := CreateCollection(c, CreateCollectionOptions{
		Name: "grid", Schema: schema, SkipMemoryCheck: true,
	})
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	return coll
}

func TestCreateArrayAndGetByID(t *testing.T) {
	coll := newArrayTestCollection(t)

	arr, err := CreateArray(coll, CreateArrayOptions{
		Primary: map[string]AttrValue{"id": IntAttr(1)},
	})
	if err != nil {
		t.Fatalf("CreateArray: %v", err)
	}

	got, err := GetArrayByID(coll, arr.ID)
	if err != nil {
		t.Fatalf("GetArrayByID: %v", err)
	}
	if got.ID != arr.ID {
		t.Fatalf("ID = %q, want %q", got.ID, arr.ID)
	}
}

func TestCreateArrayRejectsMissingPrimary(t *testing.T) {
	coll := newArrayTestCollection(t)
	if _, err := CreateArray(coll, CreateArrayOptions{}); err == nil {
		t.Fatal("expected error for missing primary attribute")
	}
}

func TestCreateArrayRejectsOnVirtualCollection(t *testing.T) {
	c := newTestClient(t)
	coll, err := CreateCollection(c, CreateCollectionOptions{
		Name: "vgrid", Schema: newTestSchema(), Virtual: true, VGrid: []int{10, 20}, SkipMemoryCheck: true,
	})
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if _, err := CreateArray(coll, CreateArrayOptions{}); err == nil {
		t.Fatal("expected error creating a plain Array in a virtual collection")
	}
}

func TestArraySubsetWriteReadClear(t *testing.T) {
	coll := newArrayTestCollection(t)
	arr, err := CreateArray(coll, CreateArrayOptions{Primary: map[string]AttrValue{"id": IntAttr(1)}})
	if err != nil {
		t.Fatalf("CreateArray: %v", err)
	}

	full, err := arr.Subset(Full(), Full())
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}

	buf := NewFilledBuffer(Float32, []int{4, 4}, 7.0)
	if err := full.Update(buf); err != nil {
		t.Fatalf("Update: %v", err)
	}

	readBack, err := full.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for _, v := range readBack.F32 {
		if v != 7.0 {
			t.Fatalf("read back value = %v, want 7.0", v)
		}
	}

	sub, err := arr.Subset(IdxRange(0, 2), Full())
	if err != nil {
		t.Fatalf("Subset(sub): %v", err)
	}
	subBuf := NewFilledBuffer(Float32, []int{2, 4}, 3.0)
	if err := sub.Update(subBuf); err != nil {
		t.Fatalf("Update(sub): %v", err)
	}

	fullAfter, err := full.Read()
	if err != nil {
		t.Fatalf("Read after partial update: %v", err)
	}
	if fullAfter.F32[0] != 3.0 {
		t.Fatalf("fullAfter.F32[0] = %v, want 3.0", fullAfter.F32[0])
	}
	if fullAfter.F32[len(fullAfter.F32)-1] != 7.0 {
		t.Fatalf("fullAfter.F32[last] = %v, want 7.0", fullAfter.F32[len(fullAfter.F32)-1])
	}

	if err := full.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	cleared, err := full.Read()
	if err != nil {
		t.Fatalf("Read after clear: %v", err)
	}
	for _, v := range cleared.F32 {
		if v != 0 {
			t.Fatalf("cleared value = %v, want 0 (schema default fill)", v)
		}
	}
}

func TestArraySubsetUpdateRejectsShapeMismatch(t *testing.T) {
	coll := newArrayTestCollection(t)
	arr, err := CreateArray(coll, CreateArrayOptions{Primary: map[string]AttrValue{"id": IntAttr(1)}})
	if err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	sub, err := arr.Subset(Full(), Full())
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	badBuf := NewFilledBuffer(Float32, []int{2, 2}, 1.0)
	if err := sub.Update(badBuf); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestArrayDelete(t *testing.T) {
	coll := newArrayTestCollection(t)
	arr, err := CreateArray(coll, CreateArrayOptions{Primary: map[string]AttrValue{"id": IntAttr(1)}})
	if err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	if err := arr.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := GetArrayByID(coll, arr.ID); err == nil {
		t.Fatal("expected array metadata to be gone after Delete")
	}
}

func TestArrayUpdateCustomAttributes(t *testing.T) {
	coll := newArrayTestCollection(t)
	arr, err := CreateArray(coll, CreateArrayOptions{Primary: map[string]AttrValue{"id": IntAttr(1)}})
	if err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	if err := arr.UpdateCustomAttributes(map[string]AttrValue{"note": StringAttr("hello")}); err != nil {
		t.Fatalf("UpdateCustomAttributes: %v", err)
	}
	got, err := GetArrayByID(coll, arr.ID)
	if err != nil {
		t.Fatalf("GetArrayByID: %v", err)
	}
	if v, ok := got.Meta.Custom["note"]; !ok || v.S != "hello" {
		t.Fatalf("Custom[note] = %+v", got.Meta.Custom["note"])
	}
}

package deker

import (
	"os"
	"time"

	"github.com/deker-engine/deker-go/storage"
)

// Array is a bound handle to one plain (non-tiled) array within a
// Collection: its identity, attribute values, and the storage path its
// body lives at.
type Array struct {
	coll *Collection
	ID   string
	Meta ArrayMetadata
}

func (a *Array) bodyPath() string {
	return ArrayBodyPath(a.coll.root, a.ID, "")
}

func (a *Array) metaPath() string {
	return ArrayMetaPath(a.coll.root, a.ID)
}

func (a *Array) lockResource() string {
	return a.bodyPath()
}

// CreateArrayOptions bundles the inputs to CreateArray.
type CreateArrayOptions struct {
	Primary map[string]AttrValue
	Custom  map[string]AttrValue
}

// CreateArray allocates a new Array within coll: validates the supplied
// primary-attribute tuple against the schema, assigns it a random UUIDv4
// id, places a symlink at its primary-attribute path, and writes its
// initial metadata record. No data body is materialized until the first
// write.
func CreateArray(coll *Collection, opts CreateArrayOptions) (*Array, error) {
	if coll.Manifest.Virtual {
		return nil, errValidation("collection "+coll.Name+" is virtual; use CreateVArray", nil)
	}
	if err := validateAttributeValues(coll.Manifest.Schema, opts.Primary, opts.Custom); err != nil {
		return nil, err
	}

	segs, err := PrimaryKeyPathSegments(coll.Manifest.Schema, opts.Primary)
	if err != nil {
		return nil, err
	}

	id := NewArrayID()
	now := time.Now().UTC()
	meta := ArrayMetadata{
		ID: id, Collection: coll.Name, Virtual: false,
		Primary: opts.Primary, Custom: opts.Custom,
		SchemaVersion: coll.Manifest.Version,
		CreatedAt:     now, UpdatedAt: now,
	}

	a := &Array{coll: coll, ID: id, Meta: meta}

	err = withWriteLock(coll.client.registry, coll.root, coll.client.opts.WriteLockTimeout, coll.client.opts.WriteLockCheckInterval, func() error {
		buf, err := MarshalArrayMetadata(meta, coll.Manifest.Schema)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(a.metaPath(), buf); err != nil {
			return errIO("failed to write array metadata", err)
		}
		link := SymlinkPath(coll.symlinksRoot(), segs, id)
		if err := mustMkdirAll(parentDir(link)); err != nil {
			return errIO("failed to scaffold symlink directory", err)
		}
		target, err := relTarget(link, a.metaPath())
		if err != nil {
			return errIO("failed to compute symlink target", err)
		}
		if err := os.Symlink(target, link); err != nil && !os.IsExist(err) {
			return errIO("failed to create primary-attribute symlink", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetArrayByID loads an existing Array's metadata by id.
func GetArrayByID(coll *Collection, id string) (*Array, error) {
	raw, err := os.ReadFile(ArrayMetaPath(coll.root, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNotFound("array "+id+" does not exist in collection "+coll.Name, nil)
		}
		return nil, errIO("failed to read array metadata", err)
	}
	meta, err := UnmarshalArrayMetadata(raw)
	if err != nil {
		return nil, err
	}
	return &Array{coll: coll, ID: id, Meta: meta}, nil
}

// FilterArrays scans every array in coll and returns those whose metadata
// satisfies pred.
func FilterArrays(coll *Collection, pred func(ArrayMetadata) bool) ([]*Array, error) {
	entries, err := os.ReadDir(coll.dataDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errIO("failed to list array data directory", err)
	}
	var out []*Array
	for _, e := range entries {
		if e.IsDir() || !isMetaFile(e.Name()) {
			continue
		}
		id := stemOf(e.Name())
		arr, err := GetArrayByID(coll, id)
		if err != nil {
			continue
		}
		if pred == nil || pred(arr.Meta) {
			out = append(out, arr)
		}
	}
	return out, nil
}

// UpdateCustomAttributes merges delta into the array's custom attributes
// and persists the updated metadata record under the array's write lock.
func (a *Array) UpdateCustomAttributes(delta map[string]AttrValue) error {
	return withWriteLock(a.coll.client.registry, a.lockResource(), a.coll.client.opts.WriteLockTimeout, a.coll.client.opts.WriteLockCheckInterval, func() error {
		a.Meta.ApplyCustomAttributeDelta(delta)
		a.Meta.UpdatedAt = time.Now().UTC()
		buf, err := MarshalArrayMetadata(a.Meta, a.coll.Manifest.Schema)
		if err != nil {
			return err
		}
		return writeFileAtomic(a.metaPath(), buf)
	})
}

// Delete removes the array's body and metadata file.
func (a *Array) Delete() error {
	return withWriteLock(a.coll.client.registry, a.lockResource(), a.coll.client.opts.WriteLockTimeout, a.coll.client.opts.WriteLockCheckInterval, func() error {
		if err := a.coll.client.adapter.Delete(a.bodyPath()); err != nil {
			return errIO("failed to delete array body", err)
		}
		if err := os.Remove(a.metaPath()); err != nil && !os.IsNotExist(err) {
			return errIO("failed to delete array metadata", err)
		}
		return nil
	})
}

func validateAttributeValues(schema ArraySchema, primary, custom map[string]AttrValue) error {
	for _, attr := range schema.PrimaryAttributes() {
		v, ok := primary[attr.Name]
		if !ok {
			return errValidation("missing required primary attribute "+attr.Name, nil)
		}
		if v.Kind != attr.Kind {
			return errValidation("primary attribute "+attr.Name+" has wrong kind", nil)
		}
		if v.IsNull {
			return errValidation("primary attribute "+attr.Name+" may not be null", nil)
		}
	}
	for _, attr := range schema.CustomAttributes() {
		if v, ok := custom[attr.Name]; ok && v.Kind != attr.Kind {
			return errValidation("custom attribute "+attr.Name+" has wrong kind", nil)
		}
	}
	return nil
}

func (a *Array) openHandle() (storage.Handle, error) {
	opts := a.coll.Manifest.StorageOptions.toAdapterOptions()
	return a.coll.client.adapter.Open(a.bodyPath(), a.coll.Manifest.Schema.DType.String(), a.coll.Manifest.Schema.Shape(), opts)
}

package deker

import (
	"os"
	"time"
)

// VArray is a bound handle to one virtual (tiled) array within a virtual
// collection: identity, attribute values, and the vgrid/tile-shape derived
// from the owning collection's VArraySchema.
type VArray struct {
	coll *Collection
	ID   string
	Meta ArrayMetadata
}

func (v *VArray) dir() string {
	return VArrayDataDir(v.coll.root, v.ID)
}

func (v *VArray) metaPath() string {
	return VArrayMetaPath(v.coll.root, v.ID)
}

func (v *VArray) lockResource() string {
	return v.dir()
}

func (v *VArray) schema() VArraySchema {
	return VArraySchema{ArraySchema: v.coll.Manifest.Schema, VGrid: v.coll.Manifest.VGrid}
}

func (v *VArray) tileBodyPath(tileIndex []int) string {
	return TileBodyPath(v.coll.root, v.ID, tileIndex, "")
}

func (v *VArray) tileLockResource(tileIndex []int) string {
	return TileLockResource(v.coll.root, v.ID, tileIndex)
}

// CreateVArray allocates a new virtual array the same way CreateArray
// allocates a plain one, except its id is the deterministic UUIDv5 derived
// from the collection name and primary-attribute tuple, making re-creation after a crash idempotent: re-issuing the
// same primary key returns the existing virtual array rather than
// colliding.
func CreateVArray(coll *Collection, opts CreateArrayOptions) (*VArray, error) {
	if !coll.Manifest.Virtual {
		return nil, errValidation("collection "+coll.Name+" is not virtual; use CreateArray", nil)
	}
	if err := validateAttributeValues(coll.Manifest.Schema, opts.Primary, opts.Custom); err != nil {
		return nil, err
	}

	segs, err := PrimaryKeyPathSegments(coll.Manifest.Schema, opts.Primary)
	if err != nil {
		return nil, err
	}

	id := NewVArrayID(coll.Name, segs)

	if existing, err := GetVArrayByID(coll, id); err == nil {
		return existing, nil
	}

	now := time.Now().UTC()
	meta := ArrayMetadata{
		ID: id, Collection: coll.Name, Virtual: true,
		Primary: opts.Primary, Custom: opts.Custom,
		SchemaVersion: coll.Manifest.Version,
		CreatedAt:     now, UpdatedAt: now,
	}
	v := &VArray{coll: coll, ID: id, Meta: meta}

	err = withWriteLock(coll.client.registry, coll.root, coll.client.opts.WriteLockTimeout, coll.client.opts.WriteLockCheckInterval, func() error {
		if err := mustMkdirAll(TileDataDir(coll.root, id)); err != nil {
			return errIO("failed to scaffold virtual array tile directory", err)
		}
		buf, err := MarshalArrayMetadata(meta, coll.Manifest.Schema)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(v.metaPath(), buf); err != nil {
			return errIO("failed to write virtual array metadata", err)
		}
		link := SymlinkPath(coll.symlinksRoot(), segs, id)
		if err := mustMkdirAll(parentDir(link)); err != nil {
			return errIO("failed to scaffold symlink directory", err)
		}
		target, err := relTarget(link, v.metaPath())
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
	return v, nil
}

// GetVArrayByID loads an existing virtual array's metadata by id.
func GetVArrayByID(coll *Collection, id string) (*VArray, error) {
	raw, err := os.ReadFile(VArrayMetaPath(coll.root, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNotFound("virtual array "+id+" does not exist in collection "+coll.Name, nil)
		}
		return nil, errIO("failed to read virtual array metadata", err)
	}
	meta, err := UnmarshalArrayMetadata(raw)
	if err != nil {
		return nil, err
	}
	return &VArray{coll: coll, ID: id, Meta: meta}, nil
}

// FilterVArrays scans every virtual array in coll and returns those whose
// metadata satisfies pred.
func FilterVArrays(coll *Collection, pred func(ArrayMetadata) bool) ([]*VArray, error) {
	root := coll.dataDir()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errIO("failed to list virtual array directory", err)
	}
	var out []*VArray
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := GetVArrayByID(coll, e.Name())
		if err != nil {
			continue
		}
		if pred == nil || pred(v.Meta) {
			out = append(out, v)
		}
	}
	return out, nil
}

// UpdateCustomAttributes merges delta into the virtual array's custom
// attributes and persists the updated metadata record.
func (v *VArray) UpdateCustomAttributes(delta map[string]AttrValue) error {
	return withWriteLock(v.coll.client.registry, v.lockResource(), v.coll.client.opts.WriteLockTimeout, v.coll.client.opts.WriteLockCheckInterval, func() error {
		v.Meta.ApplyCustomAttributeDelta(delta)
		v.Meta.UpdatedAt = time.Now().UTC()
		buf, err := MarshalArrayMetadata(v.Meta, v.coll.Manifest.Schema)
		if err != nil {
			return err
		}
		return writeFileAtomic(v.metaPath(), buf)
	})
}

// Delete removes the virtual array's entire tile-data subtree and its
// metadata file.
func (v *VArray) Delete() error {
	return withWriteLock(v.coll.client.registry, v.lockResource(), v.coll.client.opts.WriteLockTimeout, v.coll.client.opts.WriteLockCheckInterval, func() error {
		if err := os.RemoveAll(v.dir()); err != nil {
			return errIO("failed to remove virtual array directory", err)
		}
		return nil
	})
}

// timeRefResolver mirrors Array.timeRefResolver for virtual arrays.
func (v *VArray) timeRefResolver() TimeRefResolver {
	return func(attrName string) (time.Time, error) {
		name := attrName
		if len(name) > 0 && name[0] == '$' {
			name = name[1:]
		}
		if val, ok := v.Meta.Primary[name]; ok && val.Kind == AttrDatetime {
			return time.Unix(0, val.DT).UTC(), nil
		}
		if val, ok := v.Meta.Custom[name]; ok && val.Kind == AttrDatetime {
			return time.Unix(0, val.DT).UTC(), nil
		}
		return time.Time{}, errValidation("time dimension reference "+attrName+" does not resolve to a datetime attribute on this virtual array", nil)
	}
}

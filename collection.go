package deker

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/samber/lo"
)

// Collection is a bound handle to one collection's manifest and data roots.
// Every Array/VArray operation goes through a Collection, which owns the
// schema used to normalize indexers and the storage options handed down to
// the adapter.
type Collection struct {
	client   *Client
	Name     string
	Manifest CollectionManifest
	root     string
}

func (c *Collection) dataDir() string {
	if c.Manifest.Virtual {
		return filepath.Join(c.root, varrayDataDirName)
	}
	return ArrayDataDir(c.root)
}

func (c *Collection) symlinksRoot() string {
	if c.Manifest.Virtual {
		return VArraySymlinksRoot(c.root)
	}
	return ArraySymlinksRoot(c.root)
}

// CreateCollectionOptions bundles the inputs to CreateCollection.
type CreateCollectionOptions struct {
	Name    string
	Schema  ArraySchema
	Virtual bool
	VGrid   []int // required when Virtual
	Storage StorageOptions

	// SkipMemoryCheck bypasses the admission gate for this call only; the gate otherwise applies
	// to collection creation because a collection's shape is already known
	// at that point.
	SkipMemoryCheck bool
}

// CreateCollection validates the schema, performs the memory admission
// check against the full collection shape (unless skipped), scaffolds the
// collection's directory tree, and writes its manifest.
func CreateCollection(client *Client, opts CreateCollectionOptions) (*Collection, error) {
	var manifestSchema ArraySchema = opts.Schema
	var vgrid []int

	if opts.Virtual {
		vschema := NewVArraySchemaFromGrid(opts.Schema, opts.VGrid)
		if err := vschema.Validate(); err != nil {
			return nil, err
		}
		vgrid = opts.VGrid
	} else if err := opts.Schema.Validate(); err != nil {
		return nil, err
	}

	if !opts.SkipMemoryCheck && !client.opts.SkipCollectionCreateMemoryCheck {
		req := requestedBytes(manifestSchema.Shape(), manifestSchema.DType)
		if err := checkMemoryAdmission(req, client.opts.MemoryLimitBytes); err != nil {
			return nil, err
		}
	}

	root := CollectionRoot(client.root(), opts.Name)
	if exists, err := pathExists(ManifestPath(root, opts.Name)); err != nil {
		return nil, errIO("failed to probe for existing collection manifest", err)
	} else if exists {
		return nil, errConflict("collection "+opts.Name+" already exists", nil)
	}

	manifest := CollectionManifest{
		Name:           opts.Name,
		Version:        manifestVersion,
		Virtual:        opts.Virtual,
		Schema:         manifestSchema,
		VGrid:          vgrid,
		StorageOptions: opts.Storage,
	}

	coll := &Collection{client: client, Name: opts.Name, Manifest: manifest, root: root}

	err := withWriteLock(client.registry, root, client.opts.WriteLockTimeout, client.opts.WriteLockCheckInterval, func() error {
		if err := mustMkdirAll(coll.dataDir()); err != nil {
			return errIO("failed to scaffold collection data directory", err)
		}
		if err := mustMkdirAll(coll.symlinksRoot()); err != nil {
			return errIO("failed to scaffold collection symlinks directory", err)
		}
		buf, err := MarshalManifest(manifest)
		if err != nil {
			return err
		}
		return writeFileAtomic(ManifestPath(root, opts.Name), buf)
	})
	if err != nil {
		return nil, err
	}

	client.logf(LogInfo, "created collection %q (virtual=%v)", opts.Name, opts.Virtual)
	return coll, nil
}

// GetCollection reads and validates an existing collection's manifest.
func GetCollection(client *Client, name string) (*Collection, error) {
	root := CollectionRoot(client.root(), name)
	raw, err := os.ReadFile(ManifestPath(root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNotFound("collection "+name+" does not exist", nil)
		}
		return nil, errIO("failed to read collection manifest", err)
	}
	manifest, err := UnmarshalManifest(raw)
	if err != nil {
		return nil, err
	}
	return &Collection{client: client, Name: name, Manifest: manifest, root: root}, nil
}

// DeleteCollection removes a collection's manifest and entire data tree.
// Callers are responsible for ensuring no concurrent operation is in
// flight; DeleteCollection itself only serializes against other collection-
// level lock holders.
func DeleteCollection(client *Client, name string) error {
	root := CollectionRoot(client.root(), name)
	return withWriteLock(client.registry, root, client.opts.WriteLockTimeout, client.opts.WriteLockCheckInterval, func() error {
		if err := os.RemoveAll(root); err != nil {
			return errIO("failed to remove collection directory", err)
		}
		return nil
	})
}

// ListCollectionNames enumerates every collection under the client's
// storage root by listing the subdirectories of its collections directory.
func ListCollectionNames(client *Client) ([]string, error) {
	collectionsRoot := filepath.Join(client.root(), "collections")
	entries, err := os.ReadDir(collectionsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errIO("failed to list collections directory", err)
	}
	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), e.IsDir()
	})
	return names, nil
}

// FilterCollections returns every collection satisfying pred, built on top
// of ListCollectionNames + GetCollection.
func FilterCollections(client *Client, pred func(CollectionManifest) bool) ([]*Collection, error) {
	names, err := ListCollectionNames(client)
	if err != nil {
		return nil, err
	}
	var out []*Collection
	for _, name := range names {
		coll, err := GetCollection(client, name)
		if err != nil {
			continue
		}
		if pred == nil || pred(coll.Manifest) {
			out = append(out, coll)
		}
	}
	return out, nil
}

// describeJSON is a compact JSON projection of a collection's manifest:
// name, virtual flag, dtype and shape.
type describeJSON struct {
	Name    string `json:"name"`
	Virtual bool   `json:"virtual"`
	DType   string `json:"dtype"`
	Shape   []int  `json:"shape"`
}

func (c *Collection) describeJSON() ([]byte, error) {
	dj := describeJSON{
		Name:    c.Name,
		Virtual: c.Manifest.Virtual,
		DType:   c.Manifest.Schema.DType.String(),
		Shape:   c.Manifest.Schema.Shape(),
	}
	return json.MarshalIndent(dj, "", "  ")
}

package deker

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Directory layout constants.
const (
	manifestExt       = ".json"
	arrayDataDirName  = "array_data"
	arraySymlinksDir  = "array_symlinks"
	varrayDataDirName = "varray_data"
	varraySymlinksDir = "varray_symlinks"
	defaultBodyExt    = "bin"
	tupleSeparator    = "+"
)

// CollectionRoot returns <storage>/collections/<collection>/.
func CollectionRoot(storageRoot, collection string) string {
	return filepath.Join(storageRoot, "collections", collection)
}

// ManifestPath returns <collroot>/<name>.json.
func ManifestPath(collRoot, collection string) string {
	return filepath.Join(collRoot, collection+manifestExt)
}

// ArrayDataDir returns <collroot>/array_data/.
func ArrayDataDir(collRoot string) string {
	return filepath.Join(collRoot, arrayDataDirName)
}

// ArraySymlinksRoot returns <collroot>/array_symlinks/.
func ArraySymlinksRoot(collRoot string) string {
	return filepath.Join(collRoot, arraySymlinksDir)
}

// VArrayDataDir returns <collroot>/varray_data/<vid>/, the virtual
// array's own directory, holding its metadata and an array_data/ subtree
// of per-tile files.
func VArrayDataDir(collRoot, vid string) string {
	return filepath.Join(collRoot, varrayDataDirName, vid)
}

// VArraySymlinksRoot returns <collroot>/varray_symlinks/.
func VArraySymlinksRoot(collRoot string) string {
	return filepath.Join(collRoot, varraySymlinksDir)
}

// ArrayBodyPath returns the path to a plain array's data file.
func ArrayBodyPath(collRoot, id, ext string) string {
	if ext == "" {
		ext = defaultBodyExt
	}
	return filepath.Join(ArrayDataDir(collRoot), id+"."+ext)
}

// ArrayMetaPath returns the path to a plain array's metadata record.
func ArrayMetaPath(collRoot, id string) string {
	return filepath.Join(ArrayDataDir(collRoot), id+manifestExt)
}

// VArrayMetaPath returns the path to a virtual array's metadata record.
func VArrayMetaPath(collRoot, vid string) string {
	return filepath.Join(VArrayDataDir(collRoot, vid), vid+manifestExt)
}

// TileDataDir returns the array_data/ subtree under a virtual array's
// directory, holding one file per tile.
func TileDataDir(collRoot, vid string) string {
	return filepath.Join(VArrayDataDir(collRoot, vid), arrayDataDirName)
}

// TileID renders a tile's index tuple into its filename stem, e.g.
// tile index [2,0,1] -> "t2-0-1".
func TileID(tileIndex []int) string {
	parts := make([]string, len(tileIndex))
	for i, v := range tileIndex {
		parts[i] = strconv.Itoa(v)
	}
	return "t" + strings.Join(parts, "-")
}

// TileBodyPath returns the path to one tile's data file.
func TileBodyPath(collRoot, vid string, tileIndex []int, ext string) string {
	if ext == "" {
		ext = defaultBodyExt
	}
	return filepath.Join(TileDataDir(collRoot, vid), TileID(tileIndex)+"."+ext)
}

// TileLockResource returns the canonical lock-registry/on-disk path used to
// guard one tile's writer lock.
func TileLockResource(collRoot, vid string, tileIndex []int) string {
	return filepath.Join(TileDataDir(collRoot, vid), TileID(tileIndex))
}

// encodeAttrValue renders a single attribute value into one filesystem-safe
// path segment. Strings and datetimes are percent-escaped; tuples join
// their recursively-encoded components with a reserved separator that is
// itself guaranteed not to appear unescaped in any component, since any
// separator character left by the percent-encoding pass (e.g. the "+" of a
// float exponent) is rewritten to "%2B" before joining.
func encodeAttrValue(v AttrValue) (string, error) {
	switch v.Kind {
	case AttrInt:
		return strconv.FormatInt(v.I, 10), nil
	case AttrFloat:
		return url.PathEscape(strconv.FormatFloat(v.F, 'g', -1, 64)), nil
	case AttrComplex:
		return url.PathEscape(fmt.Sprintf("%g%+gj", v.Cr, v.Ci)), nil
	case AttrString:
		return url.PathEscape(v.S), nil
	case AttrDatetime:
		t := time.Unix(0, v.DT).UTC()
		return url.PathEscape(t.Format(time.RFC3339Nano)), nil
	case AttrTuple:
		parts := make([]string, len(v.T))
		for i, e := range v.T {
			enc, err := encodeAttrValue(e)
			if err != nil {
				return "", err
			}
			parts[i] = strings.ReplaceAll(enc, tupleSeparator, "%2B")
		}
		return strings.Join(parts, tupleSeparator), nil
	default:
		return "", errValidation("cannot encode attribute value of unknown kind", nil)
	}
}

// PrimaryKeyPathSegments serializes primary-attribute values in declared
// order into one filesystem-safe path segment per attribute, for symlink
// tree placement.
func PrimaryKeyPathSegments(schema ArraySchema, values map[string]AttrValue) ([]string, error) {
	primaries := schema.PrimaryAttributes()
	segs := make([]string, 0, len(primaries))
	for _, attr := range primaries {
		v, ok := values[attr.Name]
		if !ok {
			return nil, errValidation(fmt.Sprintf("missing value for primary attribute %q", attr.Name), nil)
		}
		enc, err := encodeAttrValue(v)
		if err != nil {
			return nil, err
		}
		segs = append(segs, enc)
	}
	return segs, nil
}

// SymlinkPath returns the full leaf path (under the appropriate symlinks
// root) for an array/virtual-array's primary-attribute tuple.
func SymlinkPath(symlinksRoot string, segs []string, id string) string {
	parts := append(append([]string(nil), segs...), id)
	return filepath.Join(append([]string{symlinksRoot}, parts...)...)
}

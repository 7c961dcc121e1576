package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	deker "github.com/deker-engine/deker-go"
)

func newClient(cCtx *cli.Context) (*deker.Client, error) {
	return deker.NewClient(deker.ClientOptions{
		StorageURI: cCtx.String("root"),
		Workers:    cCtx.Int("workers"),
		LogLevel:   deker.LogInfo,
	})
}

func collectionCreate(cCtx *cli.Context) error {
	raw, err := os.ReadFile(cCtx.String("manifest"))
	if err != nil {
		return err
	}
	manifest, err := deker.UnmarshalManifest(raw)
	if err != nil {
		return err
	}

	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	_, err = deker.CreateCollection(client, deker.CreateCollectionOptions{
		Name:            manifest.Name,
		Schema:          manifest.Schema,
		Virtual:         manifest.Virtual,
		VGrid:           manifest.VGrid,
		Storage:         manifest.StorageOptions,
		SkipMemoryCheck: cCtx.Bool("skip-memory-check"),
	})
	return err
}

func collectionList(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	names, err := deker.ListCollectionNames(client)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func collectionDescribe(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	coll, err := deker.GetCollection(client, cCtx.String("name"))
	if err != nil {
		return err
	}
	buf, err := json.MarshalIndent(coll.Manifest, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func collectionDelete(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()
	return deker.DeleteCollection(client, cCtx.String("name"))
}

// parseAttrsFile reads a JSON file of the form {"attr_name": <json scalar>}
// and converts each value to an AttrValue using the collection's declared
// attribute kind, so the CLI never has to guess a type from bare JSON.
func parseAttrsFile(path string, schema map[string]deker.AttributeKind) (map[string]deker.AttrValue, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	out := make(map[string]deker.AttrValue, len(fields))
	for name, msg := range fields {
		kind, ok := schema[name]
		if !ok {
			return nil, fmt.Errorf("unknown attribute %q", name)
		}
		switch kind {
		case deker.AttrInt:
			var v int64
			if err := json.Unmarshal(msg, &v); err != nil {
				return nil, err
			}
			out[name] = deker.IntAttr(v)
		case deker.AttrFloat:
			var v float64
			if err := json.Unmarshal(msg, &v); err != nil {
				return nil, err
			}
			out[name] = deker.FloatAttr(v)
		case deker.AttrString:
			var v string
			if err := json.Unmarshal(msg, &v); err != nil {
				return nil, err
			}
			out[name] = deker.StringAttr(v)
		case deker.AttrDatetime:
			var v string
			if err := json.Unmarshal(msg, &v); err != nil {
				return nil, err
			}
			t, err := deker.ParseRFC3339NanoUTC(v)
			if err != nil {
				return nil, err
			}
			out[name] = deker.DatetimeAttrUnixNano(t.UnixNano())
		default:
			return nil, fmt.Errorf("attribute %q: unsupported kind for CLI input", name)
		}
	}
	return out, nil
}

func attrKindsOf(schema deker.ArraySchema) map[string]deker.AttributeKind {
	out := make(map[string]deker.AttributeKind, len(schema.Attributes))
	for _, a := range schema.Attributes {
		out[a.Name] = a.Kind
	}
	return out
}

func arrayCreate(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	coll, err := deker.GetCollection(client, cCtx.String("collection"))
	if err != nil {
		return err
	}
	kinds := attrKindsOf(coll.Manifest.Schema)
	primary, err := parseAttrsFile(cCtx.String("primary-uri"), kinds)
	if err != nil {
		return err
	}
	custom, err := parseAttrsFile(cCtx.String("custom-uri"), kinds)
	if err != nil {
		return err
	}

	opts := deker.CreateArrayOptions{Primary: primary, Custom: custom}
	var id string
	if coll.Manifest.Virtual {
		v, err := deker.CreateVArray(coll, opts)
		if err != nil {
			return err
		}
		id = v.ID
	} else {
		a, err := deker.CreateArray(coll, opts)
		if err != nil {
			return err
		}
		id = a.ID
	}
	fmt.Println(id)
	return nil
}

// parseIndexer converts one "--index" flag value into an Indexer. Accepted
// forms: "*" (Full), "N" (exact int), "lo:hi" (half-open int range).
func parseIndexer(s string) (deker.Indexer, error) {
	if s == "*" {
		return deker.Full(), nil
	}
	if lo, hi, ok := strings.Cut(s, ":"); ok {
		loN, err := strconv.Atoi(lo)
		if err != nil {
			return deker.Indexer{}, fmt.Errorf("malformed index range %q: %w", s, err)
		}
		hiN, err := strconv.Atoi(hi)
		if err != nil {
			return deker.Indexer{}, fmt.Errorf("malformed index range %q: %w", s, err)
		}
		return deker.IdxRange(loN, hiN), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return deker.Indexer{}, fmt.Errorf("malformed index %q: %w", s, err)
	}
	return deker.Idx(n), nil
}

func parseIndexers(values []string) ([]deker.Indexer, error) {
	out := make([]deker.Indexer, len(values))
	for i, v := range values {
		idx, err := parseIndexer(v)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// canonicalSliceTimeLayout matches the backtick-quoted datetime rendering
// ArraySchema.SliceString produces, so a --slice value round-trips through
// what "array read"/"subset describe" would print.
const canonicalSliceTimeLayout = "2006-01-02T15:04:05"

// parseSliceString parses the bracketed, comma-separated form SliceString
// renders (e.g. "[0:5, `2023-01-01T00:00:00`:`2023-02-01T00:00:00`]") back
// into one Indexer per component. Labeled-dimension components are not
// accepted: a back-quoted component is always parsed as a datetime.
func parseSliceString(s string) ([]deker.Indexer, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ", ")
	out := make([]deker.Indexer, len(parts))
	for i, part := range parts {
		idx, err := parseSliceComponent(part)
		if err != nil {
			return nil, fmt.Errorf("slice component %d (%q): %w", i, part, err)
		}
		out[i] = idx
	}
	return out, nil
}

func parseSliceComponent(part string) (deker.Indexer, error) {
	if strings.Contains(part, "`") {
		lo, hi, isRange := strings.Cut(part, ":")
		loT, err := time.Parse(canonicalSliceTimeLayout, strings.Trim(lo, "`"))
		if err != nil {
			return deker.Indexer{}, err
		}
		if !isRange {
			return deker.IdxTime(loT), nil
		}
		hiT, err := time.Parse(canonicalSliceTimeLayout, strings.Trim(hi, "`"))
		if err != nil {
			return deker.Indexer{}, err
		}
		return deker.IdxTimeRange(loT, hiT), nil
	}
	if strings.ContainsAny(part, ".eE") && !strings.Contains(part, ":") {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return deker.Indexer{}, err
		}
		return deker.IdxF(v), nil
	}
	if lo, hi, ok := strings.Cut(part, ":"); ok {
		if strings.ContainsAny(part, ".eE") {
			loF, err := strconv.ParseFloat(lo, 64)
			if err != nil {
				return deker.Indexer{}, err
			}
			hiF, err := strconv.ParseFloat(hi, 64)
			if err != nil {
				return deker.Indexer{}, err
			}
			return deker.IdxFRange(loF, hiF), nil
		}
		return parseIndexer(part)
	}
	return parseIndexer(part)
}

// jsonBuffer is the on-disk shape of the --data file array read/write
// consume: a flat row-major value list alongside its shape, decoded against
// the target array's declared dtype.
type jsonBuffer struct {
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

func decodeJSONBuffer(raw []byte, dtype deker.ElementType) (*deker.Buffer, error) {
	var jb jsonBuffer
	if err := json.Unmarshal(raw, &jb); err != nil {
		return nil, err
	}
	buf := deker.NewFilledBuffer(dtype, jb.Shape, 0)
	for i, v := range jb.Values {
		switch dtype {
		case deker.Int8:
			buf.I8[i] = int8(v)
		case deker.Int16:
			buf.I16[i] = int16(v)
		case deker.Int32:
			buf.I32[i] = int32(v)
		case deker.Int64:
			buf.I64[i] = int64(v)
		case deker.Float16:
			buf.F16[i] = float32(v)
		case deker.Float32:
			buf.F32[i] = float32(v)
		case deker.Float64:
			buf.F64[i] = v
		case deker.Float128:
			buf.F128[i] = v
		case deker.Complex64:
			buf.C64[i] = complex(float32(v), 0)
		case deker.Complex128:
			buf.C128[i] = complex(v, 0)
		case deker.Complex256:
			buf.C256[i] = complex(v, 0)
		}
	}
	return buf, nil
}

func encodeJSONBuffer(buf *deker.Buffer) ([]byte, error) {
	jb := jsonBuffer{Shape: buf.Shape, Values: make([]float64, buf.Len())}
	switch buf.DType {
	case deker.Int8:
		for i, v := range buf.I8 {
			jb.Values[i] = float64(v)
		}
	case deker.Int16:
		for i, v := range buf.I16 {
			jb.Values[i] = float64(v)
		}
	case deker.Int32:
		for i, v := range buf.I32 {
			jb.Values[i] = float64(v)
		}
	case deker.Int64:
		for i, v := range buf.I64 {
			jb.Values[i] = float64(v)
		}
	case deker.Float16:
		for i, v := range buf.F16 {
			jb.Values[i] = float64(v)
		}
	case deker.Float32:
		for i, v := range buf.F32 {
			jb.Values[i] = float64(v)
		}
	case deker.Float64:
		copy(jb.Values, buf.F64)
	case deker.Float128:
		copy(jb.Values, buf.F128)
	case deker.Complex64:
		for i, v := range buf.C64 {
			jb.Values[i] = float64(real(v))
		}
	case deker.Complex128:
		for i, v := range buf.C128 {
			jb.Values[i] = real(v)
		}
	case deker.Complex256:
		for i, v := range buf.C256 {
			jb.Values[i] = real(v)
		}
	}
	return json.MarshalIndent(jb, "", "  ")
}

func openSubset(coll *deker.Collection, id string, indexers []deker.Indexer) (interface {
	Read() (*deker.Buffer, error)
	Update(*deker.Buffer) error
}, error) {
	if coll.Manifest.Virtual {
		v, err := deker.GetVArrayByID(coll, id)
		if err != nil {
			return nil, err
		}
		return v.Subset(indexers...)
	}
	a, err := deker.GetArrayByID(coll, id)
	if err != nil {
		return nil, err
	}
	return a.Subset(indexers...)
}

func arrayRead(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	coll, err := deker.GetCollection(client, cCtx.String("collection"))
	if err != nil {
		return err
	}
	indexers, err := parseSliceString(cCtx.String("slice"))
	if err != nil {
		return err
	}
	sub, err := openSubset(coll, cCtx.String("id"), indexers)
	if err != nil {
		return err
	}
	buf, err := sub.Read()
	if err != nil {
		return err
	}
	out, err := encodeJSONBuffer(buf)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func arrayWrite(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	coll, err := deker.GetCollection(client, cCtx.String("collection"))
	if err != nil {
		return err
	}
	indexers, err := parseSliceString(cCtx.String("slice"))
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(cCtx.String("data"))
	if err != nil {
		return err
	}
	buf, err := decodeJSONBuffer(raw, coll.Manifest.Schema.DType)
	if err != nil {
		return err
	}
	sub, err := openSubset(coll, cCtx.String("id"), indexers)
	if err != nil {
		return err
	}
	return sub.Update(buf)
}

func subsetDescribe(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	coll, err := deker.GetCollection(client, cCtx.String("collection"))
	if err != nil {
		return err
	}
	indexers, err := parseIndexers(cCtx.StringSlice("index"))
	if err != nil {
		return err
	}

	var record deker.DescribeRecord
	if coll.Manifest.Virtual {
		v, err := deker.GetVArrayByID(coll, cCtx.String("id"))
		if err != nil {
			return err
		}
		sub, err := v.Subset(indexers...)
		if err != nil {
			return err
		}
		record, err = sub.Describe()
		if err != nil {
			return err
		}
	} else {
		a, err := deker.GetArrayByID(coll, cCtx.String("id"))
		if err != nil {
			return err
		}
		sub, err := a.Subset(indexers...)
		if err != nil {
			return err
		}
		record, err = sub.Describe()
		if err != nil {
			return err
		}
	}

	buf, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func locksStat(cCtx *cli.Context) error {
	client, err := newClient(cCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	resourcePath := client.Root() + "/" + strings.TrimPrefix(cCtx.String("path"), "/")
	info, err := deker.StatDiskLock(resourcePath)
	if err != nil {
		return err
	}
	buf, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func rootFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "root",
		Usage:    "Storage root URI, <scheme>://<path> (e.g. file:///data/deker).",
		Required: true,
	}
}

func main() {
	app := &cli.App{
		Name:  "dekerctl",
		Usage: "inspect and manage deker collections, arrays and virtual arrays",
		Flags: []cli.Flag{
			rootFlag(),
			&cli.IntFlag{Name: "workers", Usage: "worker pool size for scatter/gather operations", Value: 4},
		},
		Commands: []*cli.Command{
			{
				Name:  "collection",
				Usage: "manage collections",
				Subcommands: []*cli.Command{
					{
						Name:  "create",
						Usage: "create a collection from a manifest JSON file",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "manifest", Required: true, Usage: "path to a collection manifest JSON file"},
							&cli.BoolFlag{Name: "skip-memory-check", Usage: "bypass the admission gate for this call"},
						},
						Action: collectionCreate,
					},
					{
						Name:   "list",
						Usage:  "list every collection name under the storage root",
						Action: collectionList,
					},
					{
						Name:  "describe",
						Usage: "print a collection's manifest",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Required: true},
						},
						Action: collectionDescribe,
					},
					{
						Name:  "delete",
						Usage: "delete a collection and its entire data tree",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Required: true},
						},
						Action: collectionDelete,
					},
				},
			},
			{
				Name:  "array",
				Usage: "manage arrays and virtual arrays within a collection",
				Subcommands: []*cli.Command{
					{
						Name:  "create",
						Usage: "create an array (or virtual array, if the collection is virtual)",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "collection", Required: true},
							&cli.StringFlag{Name: "primary-uri", Usage: "path to a JSON file of primary attribute values"},
							&cli.StringFlag{Name: "custom-uri", Usage: "path to a JSON file of custom attribute values"},
						},
						Action: arrayCreate,
					},
					{
						Name:  "read",
						Usage: "read a subset of an array or virtual array and print it as a JSON buffer",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "collection", Required: true},
							&cli.StringFlag{Name: "id", Required: true, Usage: "array or virtual array id"},
							&cli.StringFlag{Name: "slice", Required: true, Usage: "canonical slice string, e.g. [0:5, 0:200]"},
						},
						Action: arrayRead,
					},
					{
						Name:  "write",
						Usage: "write a JSON buffer into a subset of an array or virtual array",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "collection", Required: true},
							&cli.StringFlag{Name: "id", Required: true, Usage: "array or virtual array id"},
							&cli.StringFlag{Name: "slice", Required: true, Usage: "canonical slice string, e.g. [0:5, 0:200]"},
							&cli.StringFlag{Name: "data", Required: true, Usage: "path to a JSON buffer file ({\"shape\":[...],\"values\":[...]})"},
						},
						Action: arrayWrite,
					},
				},
			},
			{
				Name:  "subset",
				Usage: "inspect a subset of an array or virtual array",
				Subcommands: []*cli.Command{
					{
						Name:  "describe",
						Usage: "print a subset's per-dimension description",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "collection", Required: true},
							&cli.StringFlag{Name: "id", Required: true, Usage: "array or virtual array id"},
							&cli.StringSliceFlag{Name: "index", Usage: `one indexer per dimension: "*", "N", or "lo:hi"`},
						},
						Action: subsetDescribe,
					},
				},
			},
			{
				Name:  "locks",
				Usage: "inspect on-disk write locks",
				Subcommands: []*cli.Command{
					{
						Name:  "stat",
						Usage: "print the current state of a resource's on-disk lock sentinel",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "path", Required: true, Usage: "canonical resource path, relative to --root"},
						},
						Action: locksStat,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

package deker

import (
	"encoding/json"
	"fmt"

	"github.com/deker-engine/deker-go/storage"
)

// StorageOptions carries a collection's chunking/compression configuration
// down to the storage adapter. The core never interprets these values; they
// are opaque and adapter-specific (a LocalAdapter ignores them entirely).
type StorageOptions struct {
	ChunkMode   storage.ChunkMode
	ChunkShape  []int
	Compression *storage.CompressionOptions
}

func (o StorageOptions) toAdapterOptions() storage.Options {
	return storage.Options{
		ChunkMode:   o.ChunkMode,
		ChunkShape:  append([]int(nil), o.ChunkShape...),
		Compression: o.Compression,
	}
}

// CollectionManifest is the top-level, collection-scoped metadata record
// persisted alongside a collection's data directories: its name, array type
// (plain or virtual), schema, and storage options.
type CollectionManifest struct {
	Name           string
	Version        int
	Virtual        bool
	Schema         ArraySchema
	VGrid          []int // populated only when Virtual
	StorageOptions StorageOptions
}

func (m CollectionManifest) varraySchema() VArraySchema {
	return VArraySchema{ArraySchema: m.Schema, VGrid: m.VGrid}
}

type labelJSON struct {
	Str *string  `json:"str,omitempty"`
	Num *float64 `json:"num,omitempty"`
}

type dimensionJSON struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	Kind string `json:"kind"`

	ScaleStart *float64 `json:"scale_start,omitempty"`
	ScaleStep  *float64 `json:"scale_step,omitempty"`
	ScaleName  *string  `json:"scale_name,omitempty"`

	Labels []labelJSON `json:"labels,omitempty"`

	TimeStart     *string `json:"time_start,omitempty"`      // RFC3339Nano, UTC
	TimeStartAttr *string `json:"time_start_attr,omitempty"`  // "$attrName"
	TimeStepNanos *int64  `json:"time_step_nanos,omitempty"`
}

type attributeJSON struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Primary bool   `json:"primary"`
}

type compressionJSON struct {
	Filter string `json:"filter"`
	Level  int32  `json:"level"`
}

type storageOptionsJSON struct {
	ChunkMode   string           `json:"chunk_mode"`
	ChunkShape  []int            `json:"chunk_shape,omitempty"`
	Compression *compressionJSON `json:"compression,omitempty"`
}

type manifestJSON struct {
	Name           string              `json:"name"`
	Type           string              `json:"type"` // "array" | "varray"
	DType          string              `json:"dtype"`
	FillValue      json.RawMessage     `json:"fill_value,omitempty"`
	Dimensions     []dimensionJSON     `json:"dimensions"`
	Attributes     []attributeJSON     `json:"attributes"`
	VGrid          []int               `json:"vgrid,omitempty"`
	StorageOptions storageOptionsJSON  `json:"storage_options"`
	Version        int                 `json:"version"`
}

const manifestVersion = 1

func chunkModeJSON(m storage.ChunkMode) string {
	switch m {
	case storage.ChunkAuto:
		return "auto"
	case storage.ChunkExplicit:
		return "explicit"
	default:
		return "none"
	}
}

func parseChunkModeJSON(s string) (storage.ChunkMode, error) {
	switch s {
	case "", "none":
		return storage.ChunkNone, nil
	case "auto":
		return storage.ChunkAuto, nil
	case "explicit":
		return storage.ChunkExplicit, nil
	default:
		return storage.ChunkNone, errIntegrity(fmt.Sprintf("unknown chunk_mode %q", s), nil)
	}
}

// MarshalManifest renders a CollectionManifest to its canonical JSON form.
func MarshalManifest(m CollectionManifest) ([]byte, error) {
	dims := make([]dimensionJSON, len(m.Schema.Dimensions))
	for i, d := range m.Schema.Dimensions {
		dj := dimensionJSON{Name: d.Name, Size: d.Size, Kind: d.Kind.String()}
		switch d.Kind {
		case DimScaled:
			dj.ScaleStart = &d.ScaleStart
			dj.ScaleStep = &d.ScaleStep
			if d.ScaleName != "" {
				dj.ScaleName = &d.ScaleName
			}
		case DimLabeled:
			dj.Labels = make([]labelJSON, len(d.Labels))
			for j, l := range d.Labels {
				if l.IsText {
					s := l.Str
					dj.Labels[j] = labelJSON{Str: &s}
				} else {
					n := l.Num
					dj.Labels[j] = labelJSON{Num: &n}
				}
			}
		case DimTime:
			step := int64(d.TimeStep)
			dj.TimeStepNanos = &step
			if d.TimeStartAttr != "" {
				attr := d.TimeStartAttr
				dj.TimeStartAttr = &attr
			} else {
				ts := d.TimeStart.UTC().Format(rfc3339NanoUTC)
				dj.TimeStart = &ts
			}
		}
		dims[i] = dj
	}

	attrs := make([]attributeJSON, len(m.Schema.Attributes))
	for i, a := range m.Schema.Attributes {
		attrs[i] = attributeJSON{Name: a.Name, Kind: a.Kind.String(), Primary: a.Primary}
	}

	var fillRaw json.RawMessage
	if m.Schema.FillValue != nil {
		raw, err := encodeFloatJSON(*m.Schema.FillValue)
		if err != nil {
			return nil, err
		}
		fillRaw = raw
	}

	var comp *compressionJSON
	if m.StorageOptions.Compression != nil {
		comp = &compressionJSON{Filter: m.StorageOptions.Compression.Filter, Level: m.StorageOptions.Compression.Level}
	}

	typ := "array"
	var vgrid []int
	if m.Virtual {
		typ = "varray"
		vgrid = m.VGrid
	}

	mj := manifestJSON{
		Name:       m.Name,
		Type:       typ,
		DType:      m.Schema.DType.String(),
		FillValue:  fillRaw,
		Dimensions: dims,
		Attributes: attrs,
		VGrid:      vgrid,
		StorageOptions: storageOptionsJSON{
			ChunkMode:   chunkModeJSON(m.StorageOptions.ChunkMode),
			ChunkShape:  m.StorageOptions.ChunkShape,
			Compression: comp,
		},
		Version: manifestVersion,
	}

	buf, err := json.MarshalIndent(mj, "", "  ")
	if err != nil {
		return nil, errIntegrity("failed to marshal collection manifest", err)
	}
	return buf, nil
}

// UnmarshalManifest parses a canonical manifest record back into a
// CollectionManifest, validating it along the way.
func UnmarshalManifest(raw []byte) (CollectionManifest, error) {
	var mj manifestJSON
	if err := json.Unmarshal(raw, &mj); err != nil {
		return CollectionManifest{}, errIntegrity("malformed collection manifest", err)
	}

	dtype, err := ParseElementType(mj.DType)
	if err != nil {
		return CollectionManifest{}, err
	}

	dims := make([]Dimension, len(mj.Dimensions))
	for i, dj := range mj.Dimensions {
		d := Dimension{Name: dj.Name, Size: dj.Size}
		switch dj.Kind {
		case "plain":
			d.Kind = DimPlain
		case "scaled":
			d.Kind = DimScaled
			if dj.ScaleStart != nil {
				d.ScaleStart = *dj.ScaleStart
			}
			if dj.ScaleStep != nil {
				d.ScaleStep = *dj.ScaleStep
			}
			if dj.ScaleName != nil {
				d.ScaleName = *dj.ScaleName
			}
		case "labeled":
			d.Kind = DimLabeled
			d.Labels = make([]Label, len(dj.Labels))
			for j, lj := range dj.Labels {
				if lj.Str != nil {
					d.Labels[j] = StrLabel(*lj.Str)
				} else if lj.Num != nil {
					d.Labels[j] = NumLabel(*lj.Num)
				}
			}
		case "time":
			d.Kind = DimTime
			if dj.TimeStepNanos != nil {
				d.TimeStep = timeDurationFromNanos(*dj.TimeStepNanos)
			}
			if dj.TimeStartAttr != nil {
				d.TimeStartAttr = *dj.TimeStartAttr
			} else if dj.TimeStart != nil {
				t, err := parseRFC3339NanoUTC(*dj.TimeStart)
				if err != nil {
					return CollectionManifest{}, errIntegrity(fmt.Sprintf("malformed time_start for dimension %q", dj.Name), err)
				}
				d.TimeStart = t
			}
		default:
			return CollectionManifest{}, errIntegrity(fmt.Sprintf("unknown dimension kind %q", dj.Kind), nil)
		}
		dims[i] = d
	}

	attrs := make([]Attribute, len(mj.Attributes))
	for i, aj := range mj.Attributes {
		kind, err := ParseAttributeKind(aj.Kind)
		if err != nil {
			return CollectionManifest{}, err
		}
		attrs[i] = Attribute{Name: aj.Name, Kind: kind, Primary: aj.Primary}
	}

	var fillValue *float64
	if len(mj.FillValue) > 0 {
		f, err := decodeFloatJSON(mj.FillValue)
		if err != nil {
			return CollectionManifest{}, err
		}
		fillValue = &f
	}

	chunkMode, err := parseChunkModeJSON(mj.StorageOptions.ChunkMode)
	if err != nil {
		return CollectionManifest{}, err
	}
	var comp *storage.CompressionOptions
	if mj.StorageOptions.Compression != nil {
		comp = &storage.CompressionOptions{
			Filter: mj.StorageOptions.Compression.Filter,
			Level:  mj.StorageOptions.Compression.Level,
		}
	}

	schema := ArraySchema{Dimensions: dims, Attributes: attrs, DType: dtype, FillValue: fillValue}

	m := CollectionManifest{
		Name:    mj.Name,
		Version: mj.Version,
		Virtual: mj.Type == "varray",
		Schema:  schema,
		VGrid:   mj.VGrid,
		StorageOptions: StorageOptions{
			ChunkMode:   chunkMode,
			ChunkShape:  mj.StorageOptions.ChunkShape,
			Compression: comp,
		},
	}

	if m.Virtual {
		if err := m.varraySchema().Validate(); err != nil {
			return CollectionManifest{}, err
		}
	} else if err := schema.Validate(); err != nil {
		return CollectionManifest{}, err
	}

	return m, nil
}

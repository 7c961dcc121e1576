package deker

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// ArrayMetadata is the per-array (or per-virtual-array) metadata record: its
// identity, owning collection, primary and custom attribute values, and
// lifecycle timestamps. It is the JSON body stored at ArrayMetaPath /
// VArrayMetaPath and is what Describe/Filter operations read back.
type ArrayMetadata struct {
	ID         string
	Collection string
	Virtual    bool

	Primary map[string]AttrValue
	Custom  map[string]AttrValue

	// SchemaVersion is the owning collection manifest's version at the time
	// this record was written, carried so a reader can detect metadata that
	// predates a manifest migration.
	SchemaVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

type attrValueJSON struct {
	Kind   string          `json:"kind"`
	IsNull bool             `json:"null,omitempty"`
	I      *int64           `json:"i,omitempty"`
	F      *float64         `json:"f,omitempty"`
	Cr     *float64         `json:"cr,omitempty"`
	Ci     *float64         `json:"ci,omitempty"`
	S      *string          `json:"s,omitempty"`
	T      []attrValueJSON  `json:"t,omitempty"`
	DT     *string          `json:"dt,omitempty"` // RFC3339Nano UTC
}

func encodeAttrValueJSON(v AttrValue) (attrValueJSON, error) {
	out := attrValueJSON{Kind: v.Kind.String(), IsNull: v.IsNull}
	if v.IsNull {
		return out, nil
	}
	switch v.Kind {
	case AttrInt:
		i := v.I
		out.I = &i
	case AttrFloat:
		f := v.F
		out.F = &f
	case AttrComplex:
		cr, ci := v.Cr, v.Ci
		out.Cr, out.Ci = &cr, &ci
	case AttrString:
		s := v.S
		out.S = &s
	case AttrDatetime:
		s := time.Unix(0, v.DT).UTC().Format(rfc3339NanoUTC)
		out.DT = &s
	case AttrTuple:
		out.T = make([]attrValueJSON, len(v.T))
		for i, e := range v.T {
			ej, err := encodeAttrValueJSON(e)
			if err != nil {
				return attrValueJSON{}, err
			}
			out.T[i] = ej
		}
	}
	return out, nil
}

func decodeAttrValueJSON(j attrValueJSON) (AttrValue, error) {
	kind, err := ParseAttributeKind(j.Kind)
	if err != nil {
		return AttrValue{}, err
	}
	if j.IsNull {
		return NullAttr(kind), nil
	}
	switch kind {
	case AttrInt:
		if j.I == nil {
			return AttrValue{}, errIntegrity("missing int attribute value", nil)
		}
		return IntAttr(*j.I), nil
	case AttrFloat:
		if j.F == nil {
			return AttrValue{}, errIntegrity("missing float attribute value", nil)
		}
		return FloatAttr(*j.F), nil
	case AttrComplex:
		if j.Cr == nil || j.Ci == nil {
			return AttrValue{}, errIntegrity("missing complex attribute components", nil)
		}
		return ComplexAttr(*j.Cr, *j.Ci), nil
	case AttrString:
		if j.S == nil {
			return AttrValue{}, errIntegrity("missing string attribute value", nil)
		}
		return StringAttr(*j.S), nil
	case AttrDatetime:
		if j.DT == nil {
			return AttrValue{}, errIntegrity("missing datetime attribute value", nil)
		}
		t, err := parseRFC3339NanoUTC(*j.DT)
		if err != nil {
			return AttrValue{}, errIntegrity("malformed datetime attribute value", err)
		}
		return DatetimeAttrUnixNano(t.UnixNano()), nil
	case AttrTuple:
		elems := make([]AttrValue, len(j.T))
		for i, ej := range j.T {
			e, err := decodeAttrValueJSON(ej)
			if err != nil {
				return AttrValue{}, err
			}
			elems[i] = e
		}
		return TupleAttr(elems...), nil
	default:
		return AttrValue{}, errIntegrity("unknown attribute kind in metadata record", nil)
	}
}

// orderedAttrJSON is one name/value pair of an attribute object. Marshaling
// a slice of these by hand (rather than a map[string]attrValueJSON) is what
// lets primary_attributes/custom_attributes preserve the schema's declared
// attribute order instead of encoding/json's alphabetical map-key order.
type orderedAttrJSON struct {
	Name  string
	Value attrValueJSON
}

type orderedAttrsJSON []orderedAttrJSON

func (o orderedAttrsJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pair := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pair.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedAttrsJSON) UnmarshalJSON(data []byte) error {
	var raw map[string]attrValueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make(orderedAttrsJSON, 0, len(raw))
	for _, n := range names {
		out = append(out, orderedAttrJSON{Name: n, Value: raw[n]})
	}
	*o = out
	return nil
}

type arrayMetadataJSON struct {
	ID                string           `json:"id"`
	Collection        string           `json:"collection"`
	Type              string           `json:"type"` // "array" | "varray"
	PrimaryAttributes orderedAttrsJSON `json:"primary_attributes"`
	CustomAttributes  orderedAttrsJSON `json:"custom_attributes"`
	SchemaVersion     int              `json:"schema_version"`
	CreatedAt         string           `json:"created_at"`
	UpdatedAt         string           `json:"updated_at"`
}

// MarshalArrayMetadata renders an ArrayMetadata record to canonical JSON.
// schema supplies the declared attribute order for primary_attributes and
// custom_attributes; any key present in m.Primary/m.Custom but absent from
// schema (there shouldn't be one) is appended afterwards in sorted order so
// no value is ever silently dropped.
func MarshalArrayMetadata(m ArrayMetadata, schema ArraySchema) ([]byte, error) {
	typ := "array"
	if m.Virtual {
		typ = "varray"
	}

	primary, err := orderAttrs(m.Primary, schema.PrimaryAttributes())
	if err != nil {
		return nil, err
	}
	custom, err := orderAttrs(m.Custom, schema.CustomAttributes())
	if err != nil {
		return nil, err
	}

	mj := arrayMetadataJSON{
		ID:                m.ID,
		Collection:        m.Collection,
		Type:              typ,
		PrimaryAttributes: primary,
		CustomAttributes:  custom,
		SchemaVersion:     m.SchemaVersion,
		CreatedAt:         m.CreatedAt.UTC().Format(rfc3339NanoUTC),
		UpdatedAt:         m.UpdatedAt.UTC().Format(rfc3339NanoUTC),
	}

	buf, err := json.MarshalIndent(mj, "", "  ")
	if err != nil {
		return nil, errIntegrity("failed to marshal array metadata", err)
	}
	return buf, nil
}

// orderAttrs emits values first in declared's order, then any remaining
// values keyed alone in vals in sorted order.
func orderAttrs(vals map[string]AttrValue, declared []Attribute) (orderedAttrsJSON, error) {
	out := make(orderedAttrsJSON, 0, len(vals))
	seen := make(map[string]bool, len(declared))
	for _, attr := range declared {
		v, ok := vals[attr.Name]
		if !ok {
			continue
		}
		ej, err := encodeAttrValueJSON(v)
		if err != nil {
			return nil, err
		}
		out = append(out, orderedAttrJSON{Name: attr.Name, Value: ej})
		seen[attr.Name] = true
	}
	rest := make([]string, 0, len(vals))
	for k := range vals {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		ej, err := encodeAttrValueJSON(vals[k])
		if err != nil {
			return nil, err
		}
		out = append(out, orderedAttrJSON{Name: k, Value: ej})
	}
	return out, nil
}

// UnmarshalArrayMetadata parses a metadata record written by
// MarshalArrayMetadata.
func UnmarshalArrayMetadata(raw []byte) (ArrayMetadata, error) {
	var mj arrayMetadataJSON
	if err := json.Unmarshal(raw, &mj); err != nil {
		return ArrayMetadata{}, errIntegrity("malformed array metadata record", err)
	}

	createdAt, err := parseRFC3339NanoUTC(mj.CreatedAt)
	if err != nil {
		return ArrayMetadata{}, errIntegrity("malformed created_at", err)
	}
	updatedAt, err := parseRFC3339NanoUTC(mj.UpdatedAt)
	if err != nil {
		return ArrayMetadata{}, errIntegrity("malformed updated_at", err)
	}

	primary := make(map[string]AttrValue, len(mj.PrimaryAttributes))
	for _, pair := range mj.PrimaryAttributes {
		v, err := decodeAttrValueJSON(pair.Value)
		if err != nil {
			return ArrayMetadata{}, err
		}
		primary[pair.Name] = v
	}
	custom := make(map[string]AttrValue, len(mj.CustomAttributes))
	for _, pair := range mj.CustomAttributes {
		v, err := decodeAttrValueJSON(pair.Value)
		if err != nil {
			return ArrayMetadata{}, err
		}
		custom[pair.Name] = v
	}

	return ArrayMetadata{
		ID:            mj.ID,
		Collection:    mj.Collection,
		Virtual:       mj.Type == "varray",
		Primary:       primary,
		Custom:        custom,
		SchemaVersion: mj.SchemaVersion,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

// ApplyCustomAttributeDelta merges delta into m.Custom: a present key
// updates or inserts that attribute, an explicit AttrValue with IsNull set
// clears it to null without removing the key. Keys absent from delta are
// left as they are.
func (m *ArrayMetadata) ApplyCustomAttributeDelta(delta map[string]AttrValue) {
	if m.Custom == nil {
		m.Custom = make(map[string]AttrValue, len(delta))
	}
	for k, v := range delta {
		m.Custom[k] = v
	}
}

// sortedKeys returns a map's keys in sorted order, for deterministic
// iteration over a metadata record's attribute maps.
func sortedKeys(m map[string]AttrValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

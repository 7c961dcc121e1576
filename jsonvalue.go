package deker

import (
	"encoding/json"
	"math"
)

// encodeFloatJSON renders f as a JSON number, or as one of the reserved
// string sentinels "NaN" / "Infinity" / "-Infinity" when f is not
// representable in strict JSON.
func encodeFloatJSON(f float64) (json.RawMessage, error) {
	switch {
	case math.IsNaN(f):
		return json.Marshal("NaN")
	case math.IsInf(f, 1):
		return json.Marshal("Infinity")
	case math.IsInf(f, -1):
		return json.Marshal("-Infinity")
	default:
		return json.Marshal(f)
	}
}

// decodeFloatJSON is the inverse of encodeFloatJSON.
func decodeFloatJSON(raw json.RawMessage) (float64, error) {
	var asStr string
	if err := json.Unmarshal(raw, &asStr); err == nil {
		switch asStr {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		default:
			return 0, errIntegrity("unrecognized float sentinel "+asStr, nil)
		}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errIntegrity("malformed float value", err)
	}
	return f, nil
}

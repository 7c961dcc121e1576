package deker

import "time"

// rfc3339NanoUTC is the datetime wire format used throughout manifest and
// metadata records: RFC3339 with nanosecond precision, always UTC, always
// carrying an explicit "+00:00" offset rather than a bare "Z" so every
// serialized instant is unambiguous to readers that don't special-case Z.
const rfc3339NanoUTC = "2006-01-02T15:04:05.999999999+00:00"

func formatRFC3339NanoUTC(t time.Time) string {
	return t.UTC().Format(rfc3339NanoUTC)
}

func parseRFC3339NanoUTC(s string) (time.Time, error) {
	if t, err := time.Parse(rfc3339NanoUTC, s); err == nil {
		return t.UTC(), nil
	}
	// tolerate a bare "Z" suffix on input, in case of hand-edited records
	return time.Parse(time.RFC3339Nano, s)
}

func timeDurationFromNanos(ns int64) time.Duration {
	return time.Duration(ns)
}

// ParseRFC3339NanoUTC parses a datetime attribute value in the wire format
// manifest and metadata records use, for callers outside the package (e.g.
// the dekerctl CLI converting a CLI-supplied datetime string to UnixNano).
func ParseRFC3339NanoUTC(s string) (time.Time, error) {
	return parseRFC3339NanoUTC(s)
}

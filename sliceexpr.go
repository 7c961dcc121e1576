package deker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SliceString renders the canonical textual form of a Bounds vector used
// for logging and cross-process references, e.g.
//
//	[`2023-01-01T00:00:00`:`2023-02-01T00:00:00`, 0.1:0.9]
//
// Integers and floats are unquoted; datetimes and strings are back-tick
// quoted; components are comma-separated and bracketed. Each dimension's
// component is rendered from its *domain* representation where one exists
// (scale value, label, or datetime), falling back to raw integers for Plain
// dimensions.
func (s ArraySchema) SliceString(bounds Bounds, resolve TimeRefResolver) (string, error) {
	parts := make([]string, len(s.Dimensions))

	for i, dim := range s.Dimensions {
		b := bounds[i]
		var lo, hi string

		switch dim.Kind {
		case DimPlain:
			lo = strconv.Itoa(b.Lo)
			hi = strconv.Itoa(b.Hi)
		case DimScaled:
			lo = formatFloat(dim.scaleValueAt(b.Lo))
			hi = formatFloat(dim.scaleValueAt(b.Hi))
		case DimLabeled:
			lo = backtick(dim.Labels[b.Lo].String())
			if b.Hi < len(dim.Labels) {
				hi = backtick(dim.Labels[b.Hi].String())
			} else {
				hi = backtick("")
			}
		case DimTime:
			start, err := resolveTimeStart(dim, resolve)
			if err != nil {
				return "", err
			}
			lo = backtick(dim.timeValueAt(start, b.Lo).Format("2006-01-02T15:04:05"))
			hi = backtick(dim.timeValueAt(start, b.Hi).Format("2006-01-02T15:04:05"))
		default:
			lo = strconv.Itoa(b.Lo)
			hi = strconv.Itoa(b.Hi)
		}

		if b.Len() == 1 {
			parts[i] = lo
		} else {
			parts[i] = fmt.Sprintf("%s:%s", lo, hi)
		}
	}

	return "[" + strings.Join(parts, ", ") + "]", nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func backtick(s string) string {
	return "`" + s + "`"
}

// parseDatetimeLiteral is a small helper for decoding the back-tick-quoted datetime components of a canonical slice
// string back into a time.Time.
func parseDatetimeLiteral(lit string) (time.Time, error) {
	lit = strings.Trim(lit, "`")
	t, err := time.Parse("2006-01-02T15:04:05", lit)
	if err != nil {
		return time.Time{}, errIndex("invalid canonical datetime literal", err)
	}
	return t.UTC(), nil
}

package instrument

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFunc converts one trimmed reply line into a numeric value.
type ParseFunc func(reply string) (float64, error)

// ParseScalar interprets a scalar reply. Units answer either with a
// bare number ("23.25") or a labeled form ("t: 23.25 C"); the label
// through the first ':' and anything after the number are discarded.
func ParseScalar(reply string) (float64, error) {
	s := strings.TrimSpace(reply)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: no value in reply %q", ErrParse, reply)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrParse, fields[0])
	}
	return v, nil
}

// splitStructured splits a structured reply into trimmed fields. A
// blank reply yields none.
func splitStructured(reply string) []string {
	if strings.TrimSpace(reply) == "" {
		return nil
	}
	fields := strings.Split(reply, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// fillMeasurement applies the reply arity policy, kept from the
// instrument family: four or more fields feed all four channels in
// order, two or three feed only temperature1 and humidity, fewer than
// two feed nothing. Channels fill left to right; the first conversion
// failure stops the fill and the remaining channels stay nil.
func fillMeasurement(m *Measurement, fields []string) error {
	var n int
	switch {
	case len(fields) >= 4:
		n = 4
	case len(fields) >= 2:
		n = 2
	default:
		return fmt.Errorf("%w: structured reply has %d field(s), need at least 2", ErrParse, len(fields))
	}

	dst := m.channels()
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return fmt.Errorf("%w: field %d %q is not numeric", ErrParse, i+1, fields[i])
		}
		*dst[i] = &v
	}
	return nil
}

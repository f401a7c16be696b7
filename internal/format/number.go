package format

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is an optional numeric cell value. The zero value is Missing.
type Number struct {
	Value float64
	Valid bool
}

// Missing is the absent value, rendered as the placeholder.
var Missing = Number{}

func Some(v float64) Number {
	return Number{Value: v, Valid: true}
}

// ParseNumber converts a header value into a Number. Blank or non-numeric
// input yields Missing.
func ParseNumber(raw string) Number {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Missing
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	return Some(v)
}

// Div returns n divided by d, keeping Missing as Missing.
func (n Number) Div(d float64) Number {
	if !n.Valid || d == 0 {
		return Missing
	}
	return Some(n.Value / d)
}

// Floor rounds n down to an integer.
func (n Number) Floor() Number {
	if !n.Valid {
		return Missing
	}
	return Some(math.Floor(n.Value))
}

// String returns the shortest decimal form of n, or "" when missing.
func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// Raw renders n without grouping, falling back to the placeholder.
func (n Number) Raw() string {
	if !n.Valid {
		return Placeholder
	}
	return n.String()
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts a JSON number, a numeric string or null.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = Missing
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

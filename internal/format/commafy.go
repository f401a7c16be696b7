// Package format renders profiler numbers for the panel table.
package format

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Placeholder is rendered for every absent value.
const Placeholder = "-"

// Commafy groups the integer part of n with commas once it has four or more
// digits, and the fractional part with spaces every three digits once it has
// four or more digits.
func Commafy(n Number) string {
	if !n.Valid {
		return Placeholder
	}
	return CommafyText(n.String())
}

// CommafyText applies the Commafy grouping to an already formatted number.
// An empty string renders as the placeholder.
func CommafyText(s string) string {
	if s == "" {
		return Placeholder
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if digitCount(intPart) >= 4 {
		intPart = groupInteger(intPart)
	}
	if hasFrac && len(fracPart) >= 4 {
		fracPart = groupFraction(fracPart)
	}

	if !hasFrac {
		return intPart
	}
	return intPart + "." + fracPart
}

func digitCount(s string) int {
	return len(strings.TrimLeft(s, "+-"))
}

func groupInteger(s string) string {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return humanize.Comma(v)
	}

	// Out of int64 range, or not a plain integer: group the trailing digit run.
	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

func groupFraction(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := min(i+3, len(s))
		b.WriteString(s[i:end])
	}
	return b.String()
}

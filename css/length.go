package css

import (
	"strconv"
	"strings"
	"unicode"
)

// Length is a number with optional unit as written in CSS ("55px", "70%").
type Length struct {
	Value float64
	Unit  string
}

// IsPercent reports percentage length.
func (l Length) IsPercent() bool {
	return l.Unit == "%"
}

// Pixels converts absolute length to CSS pixels. Bare numbers are pixels,
// relative units are not convertible.
func (l Length) Pixels() (float64, bool) {
	switch l.Unit {
	case "", "px":
		return l.Value, true
	case "pt":
		return l.Value * 4 / 3, true
	case "mm":
		return l.Value * 96 / 25.4, true
	case "cm":
		return l.Value * 96 / 2.54, true
	case "in":
		return l.Value * 96, true
	default:
		return 0, false
	}
}

// Twips converts absolute length to twentieths of a point.
func (l Length) Twips() (int, bool) {
	px, ok := l.Pixels()
	if !ok {
		return 0, false
	}
	return int(px*15 + 0.5), true
}

// ParseLength reads leading number of the value and treats the rest as unit.
// Only first component of shorthand values is considered.
func ParseLength(value string) (Length, bool) {
	v := strings.TrimSpace(value)
	if first, _, found := strings.Cut(v, " "); found {
		v = first
	}
	num, unit := parseDimension(v)
	if num == "" {
		return Length{}, false
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: strings.ToLower(unit)}, true
}

// parseDimension splits dimension token into number and unit.
func parseDimension(s string) (string, string) {
	end := 0
	seenDot := false
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			return s[:end], s[end:]
		}
		end = i + 1
	}
	return s[:end], s[end:]
}

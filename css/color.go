package css

import (
	"fmt"
	"strconv"
	"strings"
)

var namedColors = map[string]string{
	"white":       "FFFFFF",
	"black":       "000000",
	"red":         "FF0000",
	"green":       "00FF00",
	"blue":        "0000FF",
	"yellow":      "FFFF00",
	"orange":      "FFA500",
	"purple":      "800080",
	"pink":        "FFC0CB",
	"gray":        "808080",
	"grey":        "808080",
	"lightgray":   "D3D3D3",
	"lightgrey":   "D3D3D3",
	"darkgray":    "A9A9A9",
	"darkgrey":    "A9A9A9",
	"silver":      "C0C0C0",
	"navy":        "000080",
	"teal":        "008080",
	"aqua":        "00FFFF",
	"cyan":        "00FFFF",
	"magenta":     "FF00FF",
	"maroon":      "800000",
	"olive":       "808000",
	"lime":        "00FF00",
	"transparent": "FFFFFF",
}

// ColorToHex converts CSS color value to six upper-case hex digits without
// leading '#'. Second value is false when color is not recognized.
func ColorToHex(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", false
	}
	if strings.Contains(v, "linear-gradient(") {
		return firstHexColor(v)
	}
	if strings.HasPrefix(v, "#") {
		return expandHex(v[1:])
	}
	if hex, ok := namedColors[v]; ok {
		return hex, true
	}
	if strings.HasPrefix(v, "rgb") {
		return rgbToHex(v)
	}
	return "", false
}

// IsTransparent reports values which mean "no color" for backgrounds.
func IsTransparent(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "transparent", "none", "initial", "inherit":
		return true
	}
	return false
}

// FindColor looks for the first color in a shorthand value, for example
// "1px solid #ddd" or "2px dashed rgb(0, 0, 0)".
func FindColor(value string) (string, bool) {
	for _, part := range splitOutsideParens(value) {
		if hex, ok := ColorToHex(part); ok {
			return hex, true
		}
	}
	return "", false
}

func expandHex(hex string) (string, bool) {
	for _, r := range hex {
		if !isHexDigit(r) {
			return "", false
		}
	}
	switch len(hex) {
	case 3, 4:
		var sb strings.Builder
		for _, r := range hex[:3] {
			sb.WriteRune(r)
			sb.WriteRune(r)
		}
		return strings.ToUpper(sb.String()), true
	case 6, 8:
		return strings.ToUpper(hex[:6]), true
	default:
		return "", false
	}
}

func firstHexColor(v string) (string, bool) {
	for i := 0; i < len(v); i++ {
		if v[i] != '#' {
			continue
		}
		j := i + 1
		for j < len(v) && isHexDigit(rune(v[j])) {
			j++
		}
		if hex, ok := expandHex(v[i+1 : j]); ok {
			return hex, true
		}
	}
	return "", false
}

func rgbToHex(v string) (string, bool) {
	open, closing := strings.IndexByte(v, '('), strings.LastIndexByte(v, ')')
	if open < 0 || closing < open {
		return "", false
	}
	name := strings.TrimSpace(v[:open])
	if name != "rgb" && name != "rgba" {
		return "", false
	}
	args := strings.FieldsFunc(v[open+1:closing], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(args) < 3 {
		return "", false
	}
	var channels [3]int
	for i := range channels {
		c, ok := parseChannel(args[i])
		if !ok {
			return "", false
		}
		channels[i] = c
	}
	return fmt.Sprintf("%02X%02X%02X", channels[0], channels[1], channels[2]), true
}

func parseChannel(s string) (int, bool) {
	percent := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, false
	}
	if percent {
		f = f * 255 / 100
	}
	return int(min(max(f, 0), 255)), true
}

func isHexDigit(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// splitOutsideParens splits value on whitespace which is not inside
// parentheses.
func splitOutsideParens(value string) []string {
	var (
		parts []string
		depth int
		start = -1
	)
	for i, r := range value {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth = max(depth-1, 0)
		case depth == 0 && (r == ' ' || r == '\t' || r == '\n'):
			if start >= 0 {
				parts = append(parts, value[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		parts = append(parts, value[start:])
	}
	return parts
}

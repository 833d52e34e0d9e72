package config

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Longest file name we produce, in bytes.
const maxFileNameLen = 200

// CleanFileName removes characters not allowed in file names on current
// platform, leading dots and surrounding spaces, and limits name length.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if isReservedRune(sym) || unicode.IsControl(sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimSpace(strings.TrimLeft(out, "."))
	for len(out) > maxFileNameLen {
		_, size := utf8.DecodeLastRuneInString(out)
		out = out[:len(out)-size]
	}
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}

// Package debug renders indented plain text trees for diagnostic dumps.
package debug

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TreeWriter accumulates an indented tree, two spaces per level.
type TreeWriter struct {
	w *strings.Builder
	// MaxText limits quoted text length in runes, 0 means unlimited.
	MaxText int
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes quoted value under a label.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(tw.encodeText(value))
	tw.w.WriteByte('\n')
}

// Node writes a label followed by key=value attributes. Attributes with empty
// values are skipped. Odd trailing key is ignored.
func (tw *TreeWriter) Node(depth int, label string, kv ...string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		tw.w.WriteByte(' ')
		tw.w.WriteString(kv[i])
		tw.w.WriteByte('=')
		tw.w.WriteString(kv[i+1])
	}
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	if tw.MaxText > 0 && utf8.RuneCountInString(raw) > tw.MaxText {
		runes := []rune(raw)
		return strconv.Quote(string(runes[:tw.MaxText])) + "..."
	}
	return strconv.Quote(raw)
}

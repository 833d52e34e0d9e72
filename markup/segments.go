// Package markup walks HTML fragments of document templates: splits them into
// table and non-table segments, parses table structure, extracts text and
// images. Fragments are never full documents and are often malformed, so
// everything here degrades instead of failing.
package markup

import (
	"iter"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SegmentKind tells segment type.
type SegmentKind int

const (
	// TextSegment is markup between top level tables.
	TextSegment SegmentKind = iota
	// TableSegment is complete top level <table>...</table> region.
	TableSegment
)

func (k SegmentKind) String() string {
	if k == TableSegment {
		return "table"
	}
	return "text"
}

// Segment is a piece of fragment in source order.
type Segment struct {
	Kind   SegmentKind
	Text   string
	Offset int // byte offset of Text in fragment
}

// Segments returns lazy sequence of fragment pieces: text gaps and top level
// tables, alternating in source order. Empty gaps are not produced. Table
// without closing tag is not a table, it stays in its text segment.
func Segments(fragment string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		c := cursor{z: html.NewTokenizer(strings.NewReader(fragment))}

		gapStart, tableStart, depth := 0, 0, 0
		for {
			tt, start, end := c.next()
			if tt == html.ErrorToken {
				break
			}
			switch tt {
			case html.StartTagToken:
				if c.atom() != atom.Table {
					continue
				}
				if depth == 0 {
					tableStart = start
				}
				depth++
			case html.EndTagToken:
				if c.atom() != atom.Table || depth == 0 {
					continue
				}
				depth--
				if depth > 0 {
					continue
				}
				if tableStart > gapStart {
					if !yield(Segment{Kind: TextSegment, Text: fragment[gapStart:tableStart], Offset: gapStart}) {
						return
					}
				}
				if !yield(Segment{Kind: TableSegment, Text: fragment[tableStart:end], Offset: tableStart}) {
					return
				}
				gapStart = end
			}
		}
		if gapStart < len(fragment) {
			yield(Segment{Kind: TextSegment, Text: fragment[gapStart:], Offset: gapStart})
		}
	}
}

// cursor tracks byte offsets of tokens, tokenizer itself only hands out raw
// token bytes. Tag tokens are read once and kept, tag name and attributes
// cannot be requested from tokenizer twice.
type cursor struct {
	z   *html.Tokenizer
	pos int
	tok html.Token
}

func (c *cursor) next() (html.TokenType, int, int) {
	tt := c.z.Next()
	start := c.pos
	c.pos += len(c.z.Raw())
	switch tt {
	case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
		c.tok = c.z.Token()
	default:
		c.tok = html.Token{Type: tt}
	}
	return tt, start, c.pos
}

func (c *cursor) atom() atom.Atom {
	return c.tok.DataAtom
}

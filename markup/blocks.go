package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextBlock is text between two block boundaries of a fragment.
type TextBlock struct {
	// Tag is the innermost open block element, empty for text outside of
	// any block.
	Tag string
	// Styles are raw style attributes of open blocks, outermost first.
	Styles []string
	Text   string
}

// HeadingLevel returns 1..6 for h1..h6 blocks and 0 otherwise.
func (b TextBlock) HeadingLevel() int {
	if len(b.Tag) == 2 && b.Tag[0] == 'h' && b.Tag[1] >= '1' && b.Tag[1] <= '6' {
		return int(b.Tag[1] - '0')
	}
	return 0
}

type openBlock struct {
	tag   atom.Atom
	style string
}

// TextBlocks splits fragment into text blocks. Headings, p, div and li are
// blocks, span is a block only when nothing else is open, inside of a block it
// is inline. Every block start and end is a boundary. Text is stripped of tags,
// entities are decoded and whitespace collapses; blocks without text are not
// returned.
func TextBlocks(fragment string) []TextBlock {
	var (
		out   []TextBlock
		open  []openBlock
		text  strings.Builder
		spans int // inline spans currently open
		skip  int
	)
	flush := func() {
		s := collapse(text.String())
		text.Reset()
		if s == "" {
			return
		}
		tb := TextBlock{Text: s}
		if len(open) > 0 {
			tb.Tag = open[len(open)-1].tag.String()
			tb.Styles = make([]string, 0, len(open))
			for _, o := range open {
				tb.Styles = append(tb.Styles, o.style)
			}
		}
		out = append(out, tb)
	}

	c := cursor{z: html.NewTokenizer(strings.NewReader(fragment))}
	for {
		tt, _, _ := c.next()
		switch tt {
		case html.ErrorToken:
			flush()
			return out
		case html.TextToken:
			if skip == 0 {
				text.Write(c.z.Text())
			}
		case html.StartTagToken:
			a := c.atom()
			switch {
			case a == atom.Script || a == atom.Style:
				skip++
			case a == atom.Span:
				if len(open) > 0 {
					spans++
					continue
				}
				fallthrough
			case isBlock(a):
				flush()
				open = append(open, openBlock{tag: a, style: attrsOf(c.tok).Get("style")})
			case a == atom.Br:
				text.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			if c.atom() == atom.Br {
				text.WriteByte(' ')
			}
		case html.EndTagToken:
			a := c.atom()
			switch {
			case a == atom.Script || a == atom.Style:
				if skip > 0 {
					skip--
				}
			case a == atom.Span && spans > 0:
				spans--
			case a == atom.Span || isBlock(a):
				i := lastOpen(open, a)
				if i < 0 {
					continue
				}
				flush()
				open = open[:i]
			}
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func lastOpen(open []openBlock, a atom.Atom) int {
	for i := len(open) - 1; i >= 0; i-- {
		if open[i].tag == a {
			return i
		}
	}
	return -1
}

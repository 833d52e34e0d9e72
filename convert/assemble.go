package convert

import (
	"strings"
	"unicode/utf8"

	"docgen/css"
	"docgen/docx"
	"docgen/markup"
)

// assembler turns markup of one document section into blocks.
type assembler struct {
	section Section
	base    float64 // font size, pt
	font    string
	warn    *warnings
}

// assemble walks top level tables and the text between them in source order.
// Text gaps give standalone images first and then paragraphs, tables which
// cannot be parsed degrade to paragraphs.
func (a *assembler) assemble(fragment string) []docx.Block {
	var blocks []docx.Block
	for seg := range markup.Segments(fragment) {
		switch seg.Kind {
		case markup.TableSegment:
			if t, ok := a.parseTable(seg.Text); ok {
				blocks = append(blocks, t)
				continue
			}
			a.warn.add(WarnTableFallback, a.section, excerpt(seg.Text))
			blocks = appendParagraphs(blocks, a.parseBlocks(seg.Text))
		default:
			for _, img := range markup.StandaloneImages(seg.Text) {
				s := a.style(img.Style())
				blocks = append(blocks, a.imageParagraph(img, s, standaloneAlignment(s)))
			}
			blocks = appendParagraphs(blocks, a.parseBlocks(markup.StripImages(seg.Text)))
		}
	}
	if len(blocks) == 0 && strings.TrimSpace(fragment) != "" {
		blocks = appendParagraphs(blocks, a.parseBlocks(fragment))
	}
	return blocks
}

func appendParagraphs(blocks []docx.Block, paras []*docx.Paragraph) []docx.Block {
	for _, p := range paras {
		blocks = append(blocks, p)
	}
	return blocks
}

// style parses inline declarations reporting the broken ones.
func (a *assembler) style(raw string) css.Style {
	s, skipped := css.ParseDeclarations(raw)
	for _, d := range skipped {
		if d != "" {
			a.warn.add(WarnBadStyle, a.section, d)
		}
	}
	return s
}

// color converts CSS color to hex, unknown colors are reported and ignored.
func (a *assembler) color(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	hex, ok := css.ColorToHex(value)
	if !ok {
		a.warn.add(WarnUnknownColor, a.section, value)
		return ""
	}
	return hex
}

const (
	defaultImageWidth  = 100
	defaultImageHeight = 50
)

// imageParagraph makes paragraph with pending image. Display box comes from
// image style and attributes.
func (a *assembler) imageParagraph(img markup.Image, s css.Style, align docx.Alignment) *docx.Paragraph {
	w := firstPixels(defaultImageWidth, s.Get("width"), s.Get("maxWidth"), img.Attrs.Get("width"))
	h := firstPixels(defaultImageHeight, s.Get("height"), s.Get("maxHeight"), img.Attrs.Get("height"))
	return &docx.Paragraph{
		Alignment: align,
		Image:     &docx.Image{Source: img.Src, Width: w, Height: h},
	}
}

// firstPixels returns first of values which is a positive absolute length.
func firstPixels(def int, values ...string) int {
	for _, v := range values {
		l, ok := css.ParseLength(v)
		if !ok {
			continue
		}
		px, ok := l.Pixels()
		if ok && px >= 1 {
			return int(px + 0.5)
		}
	}
	return def
}

func standaloneAlignment(s css.Style) docx.Alignment {
	switch {
	case s.Keyword("textAlign") == "center",
		strings.Contains(s.Keyword("margin"), "auto"),
		strings.Contains(s.Keyword("marginLeft"), "auto"):
		return docx.AlignCenter
	case s.Keyword("textAlign") == "right":
		return docx.AlignRight
	default:
		return docx.AlignLeft
	}
}

// excerpt shortens markup for diagnostics.
func excerpt(fragment string) string {
	const limit = 60
	s := markup.PlainText(fragment)
	if s == "" {
		s = strings.Join(strings.Fields(fragment), " ")
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

package convert

import (
	"cmp"
	"math"

	"docgen/css"
	"docgen/docx"
	"docgen/markup"
)

// Header and footer text never exceeds this size, pt.
const maxMarginalFontSize = 8

// parseBlocks makes one paragraph per non-empty text block of fragment.
func (a *assembler) parseBlocks(fragment string) []*docx.Paragraph {
	var out []*docx.Paragraph
	for _, tb := range markup.TextBlocks(fragment) {
		var style css.Style
		for _, raw := range tb.Styles {
			style = a.style(raw).Inherit(style)
		}
		out = append(out, a.blockParagraph(tb, style))
	}
	return out
}

func (a *assembler) blockParagraph(tb markup.TextBlock, s css.Style) *docx.Paragraph {
	level := tb.HeadingLevel()

	size := a.base
	if v, ok := s.FontSizePt(a.base); ok {
		size = v
	}
	if level > 0 {
		size = a.base * (2.5 - float64(level)*0.2)
	}
	if a.section != SectionBody {
		size = min(size, maxMarginalFontSize)
	}

	after := 100
	if level > 0 {
		after = 200
	}

	return &docx.Paragraph{
		Runs: []docx.Run{{
			Text:           tb.Text,
			SizeHalfPoints: halfPoints(size),
			Bold:           level > 0 || s.IsBold(),
			Italic:         s.IsItalic(),
			Color:          a.color(s.Get("color")),
			Font:           cmp.Or(s.FontFamily(), a.font),
		}},
		Alignment:    blockAlignment(s),
		Spacing:      &docx.Spacing{After: after, Line: 276},
		HeadingLevel: level,
	}
}

func halfPoints(pt float64) int {
	return int(math.Round(pt * 2))
}

func blockAlignment(s css.Style) docx.Alignment {
	switch s.Keyword("textAlign") {
	case "center":
		return docx.AlignCenter
	case "right":
		return docx.AlignRight
	case "justify":
		return docx.AlignBoth
	default:
		return docx.AlignLeft
	}
}

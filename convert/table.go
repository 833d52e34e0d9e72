package convert

import (
	"cmp"
	"strings"

	"docgen/css"
	"docgen/docx"
	"docgen/markup"
)

const (
	defaultBorderColor = "E2E8F0"
	borderSize         = 4 // eighths of a point
	cellMargins        = 80
)

// parseTable converts top level table markup. Returns false when the table
// has no rows with cells.
func (a *assembler) parseTable(tableMarkup string) (*docx.Table, bool) {
	mt, ok := markup.ParseTable(tableMarkup)
	if !ok {
		return nil, false
	}

	ts := a.style(mt.Attrs.Get("style"))
	collapse := ts.Keyword("borderCollapse") == "collapse"
	layout := noBorder(ts.Get("border")) || strings.TrimSpace(mt.Attrs.Get("border")) == "0"

	t := &docx.Table{
		Width:       docx.Width{Value: 100, Type: docx.WidthPct},
		LayoutFixed: true,
		LayoutTable: layout,
	}
	// pixel widths render unreliably, only layout tables may be narrower
	if layout {
		if l, ok := css.ParseLength(ts.Get("width")); ok && l.IsPercent() && l.Value > 0 {
			t.Width.Value = min(l.Value, 100)
		}
	}
	if !layout && !collapse && ts.Has("border") {
		color, ok := css.ColorToHex(ts.Get("borderColor"))
		if !ok {
			color, ok = css.FindColor(ts.Get("border"))
		}
		if !ok {
			color = defaultBorderColor
		}
		t.Borders = uniformBorders(color)
	}

	for _, mr := range mt.Rows {
		if len(mr.Cells) == 0 {
			continue
		}
		rs := a.style(mr.Attrs.Get("style"))
		row := &docx.Row{Cells: make([]*docx.Cell, 0, len(mr.Cells))}
		for _, mc := range mr.Cells {
			row.Cells = append(row.Cells, a.tableCell(mc, rs, collapse, layout))
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return nil, false
	}
	return t, true
}

func (a *assembler) tableCell(mc markup.Cell, rowStyle css.Style, collapse, layout bool) *docx.Cell {
	s := a.style(mc.Attrs.Get("style"))
	content := markup.Flatten(mc.Inner)
	align := cellAlignment(s)

	cell := &docx.Cell{
		Width:   cellWidth(s),
		VAlign:  verticalAlignment(s),
		Margins: cellMargins,
		Shading: a.shading(s, rowStyle),
	}

	if img, ok := markup.FirstImage(content); ok {
		cell.Blocks = append(cell.Blocks, a.imageParagraph(img, a.style(img.Style()), align))
	}

	size := a.base
	if v, ok := s.FontSizePt(a.base); ok {
		size = v
	}
	// emphasis anywhere in the original cell applies to all of its text
	run := docx.Run{
		SizeHalfPoints: halfPoints(size),
		Bold:           mc.Header || s.IsBold() || markup.HasBold(mc.Inner),
		Italic:         s.IsItalic() || markup.HasItalic(mc.Inner),
		Color:          a.color(s.Get("color")),
		Font:           cmp.Or(s.FontFamily(), a.font),
	}
	for _, line := range markup.Lines(markup.StripImages(content)) {
		r := run
		r.Text = line
		cell.Blocks = append(cell.Blocks, &docx.Paragraph{Alignment: align, Runs: []docx.Run{r}})
	}
	cell.EnsureContent()

	if !layout && (collapse || hasCellBorder(s)) {
		cell.Borders = cellBorders(s)
	}
	return cell
}

var borderEdges = []string{"borderTop", "borderRight", "borderBottom", "borderLeft"}

func hasCellBorder(s css.Style) bool {
	if s.Has("border") && !noBorder(s.Get("border")) {
		return true
	}
	for _, edge := range borderEdges {
		if s.Has(edge) && !noBorder(s.Get(edge)) {
			return true
		}
	}
	return false
}

// cellBorders draws all four edges, each edge takes its own color, then the
// border shorthand color.
func cellBorders(s css.Style) *docx.Borders {
	shared, ok := css.FindColor(s.Get("border"))
	if !ok {
		shared = defaultBorderColor
	}
	edge := func(prop string) *docx.Border {
		color, ok := css.FindColor(s.Get(prop))
		if !ok {
			color = shared
		}
		return &docx.Border{Style: "single", Color: color, Size: borderSize}
	}
	return &docx.Borders{
		Top:    edge("borderTop"),
		Right:  edge("borderRight"),
		Bottom: edge("borderBottom"),
		Left:   edge("borderLeft"),
	}
}

func uniformBorders(color string) *docx.Borders {
	b := &docx.Border{Style: "single", Color: color, Size: borderSize}
	return &docx.Borders{Top: b, Right: b, Bottom: b, Left: b}
}

func noBorder(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "none", "0px":
		return true
	}
	return false
}

// shading takes cell background, else the row's. Gradients give their first
// color.
func (a *assembler) shading(cell, row css.Style) string {
	bg := cmp.Or(cell.Get("backgroundColor"), cell.Get("background"), row.Get("backgroundColor"), row.Get("background"))
	if bg == "" || css.IsTransparent(bg) {
		return ""
	}
	if hex, ok := css.ColorToHex(bg); ok {
		return hex
	}
	// background shorthand, "#fff url(...) no-repeat"
	if hex, ok := css.FindColor(bg); ok {
		return hex
	}
	a.warn.add(WarnUnknownColor, a.section, bg)
	return ""
}

func cellWidth(s css.Style) *docx.Width {
	l, ok := css.ParseLength(s.Get("width"))
	if !ok || l.Value <= 0 {
		return nil
	}
	if l.IsPercent() {
		return docx.Pct(min(l.Value, 100))
	}
	tw, ok := l.Twips()
	if !ok {
		return nil
	}
	return docx.Dxa(tw)
}

func cellAlignment(s css.Style) docx.Alignment {
	switch s.Keyword("textAlign") {
	case "center":
		return docx.AlignCenter
	case "right":
		return docx.AlignRight
	default:
		return docx.AlignLeft
	}
}

func verticalAlignment(s css.Style) docx.VAlign {
	switch s.Keyword("verticalAlign") {
	case "middle", "center":
		return docx.VAlignCenter
	case "bottom":
		return docx.VAlignBottom
	default:
		return docx.VAlignTop
	}
}

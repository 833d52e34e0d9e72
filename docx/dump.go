package docx

import (
	"strconv"

	"docgen/utils/debug"
)

// Dump renders document model as indented tree, used by debug output.
func (d *Document) Dump(maxText int) string {
	tw := debug.NewTreeWriter()
	tw.MaxText = maxText

	tw.Node(0, "document",
		"page", strconv.Itoa(d.Page.Width)+"x"+strconv.Itoa(d.Page.Height),
		"margins", strconv.Itoa(d.Page.Margins.Top)+","+strconv.Itoa(d.Page.Margins.Right)+","+
			strconv.Itoa(d.Page.Margins.Bottom)+","+strconv.Itoa(d.Page.Margins.Left),
		"font", d.DefaultFont,
		"size", sizeString(d.DefaultSize))
	for _, s := range d.Sections() {
		tw.Node(1, s.Name, "blocks", strconv.Itoa(len(s.Blocks)))
		dumpBlocks(tw, 2, s.Blocks)
	}
	return tw.String()
}

func dumpBlocks(tw *debug.TreeWriter, depth int, blocks []Block) {
	for _, b := range blocks {
		switch v := b.(type) {
		case *Paragraph:
			dumpParagraph(tw, depth, v)
		case *Table:
			tw.Node(depth, "table",
				"rows", strconv.Itoa(len(v.Rows)),
				"columns", strconv.Itoa(v.Columns()),
				"width", v.Width.String(),
				"layout", boolString(v.LayoutTable),
				"fixed", boolString(v.LayoutFixed))
			for i, r := range v.Rows {
				tw.Node(depth+1, "row", "index", strconv.Itoa(i))
				for _, c := range r.Cells {
					width := ""
					if c.Width != nil {
						width = c.Width.String()
					}
					tw.Node(depth+2, "cell",
						"width", width,
						"valign", c.VAlign.String(),
						"shading", c.Shading,
						"borders", boolString(c.Borders != nil))
					for _, p := range c.Blocks {
						dumpParagraph(tw, depth+3, p)
					}
				}
			}
		}
	}
}

func dumpParagraph(tw *debug.TreeWriter, depth int, p *Paragraph) {
	align := ""
	if p.Alignment != AlignLeft {
		align = p.Alignment.String()
	}
	heading := ""
	if p.HeadingLevel > 0 {
		heading = strconv.Itoa(p.HeadingLevel)
	}
	if p.Image != nil {
		tw.Node(depth, "image",
			"align", align,
			"format", p.Image.Format,
			"size", strconv.Itoa(p.Image.Width)+"x"+strconv.Itoa(p.Image.Height),
			"pending", boolString(p.Image.Pending()))
		return
	}
	tw.Node(depth, "paragraph", "align", align, "heading", heading)
	for _, r := range p.Runs {
		var flags string
		if r.Bold {
			flags += "b"
		}
		if r.Italic {
			flags += "i"
		}
		tw.Node(depth+1, "run", "size", sizeString(r.SizeHalfPoints), "style", flags, "color", r.Color, "font", r.Font)
		tw.TextBlock(depth+2, "text", r.Text)
	}
}

// String formats width as in dumps, "50%" or "2400tw".
func (w Width) String() string {
	if w.Type == WidthDxa {
		return strconv.Itoa(int(w.Value)) + "tw"
	}
	return strconv.FormatFloat(w.Value, 'f', -1, 64) + "%"
}

func sizeString(halfPoints int) string {
	if halfPoints == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(halfPoints)/2, 'f', -1, 64) + "pt"
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

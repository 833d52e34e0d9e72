package docx

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsCT  = "http://schemas.openxmlformats.org/package/2006/content-types"

	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relExtendedProps  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
	relStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relSettings       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	relFontTable      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/fontTable"
	relHeader         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	relFooter         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	relImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	ctRels      = "application/vnd.openxmlformats-package.relationships+xml"
	ctXML       = "application/xml"
	ctDocument  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctStyles    = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	ctSettings  = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"
	ctFontTable = "application/vnd.openxmlformats-officedocument.wordprocessingml.fontTable+xml"
	ctHeader    = "application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"
	ctFooter    = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	ctCore      = "application/vnd.openxmlformats-package.core-properties+xml"
	ctApp       = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
)

// emuPerPixel converts CSS pixels (96 dpi) to English Metric Units.
const emuPerPixel = 9525

func newXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

// wordRoot creates root element of a part holding blocks with namespaces
// drawing needs.
func wordRoot(doc *etree.Document, tag string) *etree.Element {
	root := doc.CreateElement(tag)
	root.CreateAttr("xmlns:w", nsW)
	root.CreateAttr("xmlns:r", nsR)
	root.CreateAttr("xmlns:wp", nsWP)
	root.CreateAttr("xmlns:a", nsA)
	root.CreateAttr("xmlns:pic", nsPic)
	return root
}

// relationships collects relationship entries of a single part.
type relationships struct {
	items []relationship
}

type relationship struct {
	id, typ, target string
}

func (r *relationships) add(typ, target string) string {
	id := "rId" + strconv.Itoa(len(r.items)+1)
	r.items = append(r.items, relationship{id: id, typ: typ, target: target})
	return id
}

func (r *relationships) document() *etree.Document {
	doc := newXMLDocument()
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsRel)
	for _, it := range r.items {
		el := root.CreateElement("Relationship")
		el.CreateAttr("Id", it.id)
		el.CreateAttr("Type", it.typ)
		el.CreateAttr("Target", it.target)
	}
	return doc
}

// blockWriter renders blocks of one part. Media and drawing ids are shared
// by all parts of the package.
type blockWriter struct {
	p    *packer
	rels *relationships
}

func (bw *blockWriter) blocks(parent *etree.Element, blocks []Block) error {
	for _, b := range blocks {
		switch v := b.(type) {
		case *Paragraph:
			if err := bw.paragraph(parent, v); err != nil {
				return err
			}
		case *Table:
			if err := bw.table(parent, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected block type %T", b)
		}
	}
	return nil
}

func (bw *blockWriter) paragraph(parent *etree.Element, para *Paragraph) error {
	p := parent.CreateElement("w:p")

	if para.HeadingLevel > 0 || para.Spacing != nil || para.Alignment != AlignLeft {
		ppr := p.CreateElement("w:pPr")
		if para.HeadingLevel > 0 {
			ppr.CreateElement("w:pStyle").CreateAttr("w:val", "Heading"+strconv.Itoa(min(para.HeadingLevel, 6)))
		}
		if para.Spacing != nil {
			sp := ppr.CreateElement("w:spacing")
			sp.CreateAttr("w:after", strconv.Itoa(para.Spacing.After))
			if para.Spacing.Line > 0 {
				sp.CreateAttr("w:line", strconv.Itoa(para.Spacing.Line))
				sp.CreateAttr("w:lineRule", "auto")
			}
		}
		if para.Alignment != AlignLeft {
			ppr.CreateElement("w:jc").CreateAttr("w:val", para.Alignment.String())
		}
	}

	if para.Image != nil {
		return bw.drawing(p, para.Image)
	}
	for i := range para.Runs {
		bw.run(p, &para.Runs[i])
	}
	return nil
}

func (bw *blockWriter) run(parent *etree.Element, run *Run) {
	r := parent.CreateElement("w:r")
	if run.Font != "" || run.Bold || run.Italic || run.Color != "" || run.SizeHalfPoints > 0 {
		rpr := r.CreateElement("w:rPr")
		if run.Font != "" {
			fonts := rpr.CreateElement("w:rFonts")
			for _, a := range []string{"w:ascii", "w:hAnsi", "w:cs", "w:eastAsia"} {
				fonts.CreateAttr(a, run.Font)
			}
			bw.p.useFont(run.Font)
		}
		if run.Bold {
			rpr.CreateElement("w:b")
			rpr.CreateElement("w:bCs")
		}
		if run.Italic {
			rpr.CreateElement("w:i")
			rpr.CreateElement("w:iCs")
		}
		if run.Color != "" {
			rpr.CreateElement("w:color").CreateAttr("w:val", run.Color)
		}
		if run.SizeHalfPoints > 0 {
			rpr.CreateElement("w:sz").CreateAttr("w:val", strconv.Itoa(run.SizeHalfPoints))
			rpr.CreateElement("w:szCs").CreateAttr("w:val", strconv.Itoa(run.SizeHalfPoints))
		}
	}
	for i, line := range strings.Split(xmlText(run.Text), "\n") {
		if i > 0 {
			r.CreateElement("w:br")
		}
		t := r.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(line)
	}
}

func (bw *blockWriter) drawing(parent *etree.Element, img *Image) error {
	if img.Pending() {
		return fmt.Errorf("image %q is not resolved", img.Source)
	}
	name := bw.p.addMedia(img)
	rid := bw.rels.add(relImage, "media/"+name)
	id := strconv.Itoa(bw.p.nextDrawingID())
	cx := strconv.Itoa(max(img.Width, 1) * emuPerPixel)
	cy := strconv.Itoa(max(img.Height, 1) * emuPerPixel)

	inline := parent.CreateElement("w:r").CreateElement("w:drawing").CreateElement("wp:inline")
	for _, a := range []string{"distT", "distB", "distL", "distR"} {
		inline.CreateAttr(a, "0")
	}
	extent := inline.CreateElement("wp:extent")
	extent.CreateAttr("cx", cx)
	extent.CreateAttr("cy", cy)
	effect := inline.CreateElement("wp:effectExtent")
	for _, a := range []string{"l", "t", "r", "b"} {
		effect.CreateAttr(a, "0")
	}
	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("id", id)
	docPr.CreateAttr("name", "Picture "+id)
	inline.CreateElement("wp:cNvGraphicFramePr").CreateElement("a:graphicFrameLocks").CreateAttr("noChangeAspect", "1")

	data := inline.CreateElement("a:graphic").CreateElement("a:graphicData")
	data.CreateAttr("uri", nsPic)
	pic := data.CreateElement("pic:pic")

	nv := pic.CreateElement("pic:nvPicPr")
	cnv := nv.CreateElement("pic:cNvPr")
	cnv.CreateAttr("id", id)
	cnv.CreateAttr("name", name)
	nv.CreateElement("pic:cNvPicPr")

	fill := pic.CreateElement("pic:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", rid)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")

	sp := pic.CreateElement("pic:spPr")
	xfrm := sp.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", cx)
	ext.CreateAttr("cy", cy)
	geom := sp.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
	return nil
}

func (bw *blockWriter) table(parent *etree.Element, t *Table) error {
	tbl := parent.CreateElement("w:tbl")

	tpr := tbl.CreateElement("w:tblPr")
	widthElement(tpr, "w:tblW", &t.Width)
	if t.Borders != nil && !t.LayoutTable {
		bordersElement(tpr, "w:tblBorders", t.Borders)
	}
	if t.LayoutFixed {
		tpr.CreateElement("w:tblLayout").CreateAttr("w:type", "fixed")
	}

	grid := tbl.CreateElement("w:tblGrid")
	for _, w := range bw.p.gridColumns(t) {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", strconv.Itoa(w))
	}

	for _, row := range t.Rows {
		tr := tbl.CreateElement("w:tr")
		for _, cell := range row.Cells {
			tc := tr.CreateElement("w:tc")
			cellProperties(tc, cell, t.LayoutTable)
			cell.EnsureContent()
			for _, para := range cell.Blocks {
				if err := bw.paragraph(tc, para); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func cellProperties(tc *etree.Element, cell *Cell, layout bool) {
	tcpr := tc.CreateElement("w:tcPr")
	if cell.Width != nil {
		widthElement(tcpr, "w:tcW", cell.Width)
	}
	if cell.Borders != nil && !layout {
		bordersElement(tcpr, "w:tcBorders", cell.Borders)
	}
	if cell.Shading != "" {
		shd := tcpr.CreateElement("w:shd")
		shd.CreateAttr("w:val", "clear")
		shd.CreateAttr("w:color", "auto")
		shd.CreateAttr("w:fill", cell.Shading)
	}
	if cell.Margins > 0 {
		mar := tcpr.CreateElement("w:tcMar")
		for _, side := range []string{"w:top", "w:left", "w:bottom", "w:right"} {
			m := mar.CreateElement(side)
			m.CreateAttr("w:w", strconv.Itoa(cell.Margins))
			m.CreateAttr("w:type", "dxa")
		}
	}
	tcpr.CreateElement("w:vAlign").CreateAttr("w:val", cell.VAlign.String())
}

func widthElement(parent *etree.Element, tag string, w *Width) {
	el := parent.CreateElement(tag)
	switch w.Type {
	case WidthPct:
		// fiftieths of a percent
		el.CreateAttr("w:w", strconv.Itoa(int(w.Value*50+0.5)))
		el.CreateAttr("w:type", "pct")
	default:
		el.CreateAttr("w:w", strconv.Itoa(int(w.Value)))
		el.CreateAttr("w:type", "dxa")
	}
}

func bordersElement(parent *etree.Element, tag string, b *Borders) {
	el := parent.CreateElement(tag)
	edges := []struct {
		name string
		b    *Border
	}{
		{"w:top", b.Top},
		{"w:left", b.Left},
		{"w:bottom", b.Bottom},
		{"w:right", b.Right},
	}
	for _, e := range edges {
		edge := el.CreateElement(e.name)
		if e.b == nil {
			edge.CreateAttr("w:val", "nil")
			continue
		}
		edge.CreateAttr("w:val", cmp.Or(e.b.Style, "single"))
		edge.CreateAttr("w:sz", strconv.Itoa(max(e.b.Size, 2)))
		edge.CreateAttr("w:space", "0")
		edge.CreateAttr("w:color", cmp.Or(e.b.Color, "auto"))
	}
}

// gridColumns computes column widths in twips: explicit cell widths of the
// first row declaring them, the rest shares what is left.
func (p *packer) gridColumns(t *Table) []int {
	n := t.Columns()
	if n == 0 {
		return nil
	}

	total := p.doc.Page.ContentWidth()
	if t.Width.Type == WidthDxa {
		total = int(t.Width.Value)
	} else if t.Width.Value > 0 {
		total = int(float64(total) * t.Width.Value / 100)
	}

	cols := make([]int, n)
	for i := range n {
		for _, r := range t.Rows {
			if i >= len(r.Cells) || r.Cells[i].Width == nil {
				continue
			}
			w := r.Cells[i].Width
			if w.Type == WidthPct {
				cols[i] = int(float64(total) * w.Value / 100)
			} else {
				cols[i] = int(w.Value)
			}
			break
		}
	}

	used, free := 0, 0
	for _, w := range cols {
		used += w
		if w == 0 {
			free++
		}
	}
	if free > 0 {
		share := max((total-used)/free, 1)
		for i := range cols {
			if cols[i] == 0 {
				cols[i] = share
			}
		}
	}
	return cols
}

// xmlText drops characters XML 1.0 cannot carry.
func xmlText(s string) string {
	if !strings.ContainsFunc(s, invalidXMLRune) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if invalidXMLRune(r) {
			return -1
		}
		return r
	}, s)
}

func invalidXMLRune(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20:
		return true
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return true
	}
	return false
}

func stylesPart(doc *Document) *etree.Document {
	x := newXMLDocument()
	root := x.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", nsW)

	rpr := root.CreateElement("w:docDefaults").CreateElement("w:rPrDefault").CreateElement("w:rPr")
	if doc.DefaultFont != "" {
		fonts := rpr.CreateElement("w:rFonts")
		for _, a := range []string{"w:ascii", "w:hAnsi", "w:cs", "w:eastAsia"} {
			fonts.CreateAttr(a, doc.DefaultFont)
		}
	}
	if doc.DefaultSize > 0 {
		rpr.CreateElement("w:sz").CreateAttr("w:val", strconv.Itoa(doc.DefaultSize))
		rpr.CreateElement("w:szCs").CreateAttr("w:val", strconv.Itoa(doc.DefaultSize))
	}
	if doc.Properties.Language != "" {
		rpr.CreateElement("w:lang").CreateAttr("w:val", doc.Properties.Language)
	}

	normal := root.CreateElement("w:style")
	normal.CreateAttr("w:type", "paragraph")
	normal.CreateAttr("w:default", "1")
	normal.CreateAttr("w:styleId", "Normal")
	normal.CreateElement("w:name").CreateAttr("w:val", "Normal")
	normal.CreateElement("w:qFormat")

	for level := 1; level <= 6; level++ {
		id := "Heading" + strconv.Itoa(level)
		st := root.CreateElement("w:style")
		st.CreateAttr("w:type", "paragraph")
		st.CreateAttr("w:styleId", id)
		st.CreateElement("w:name").CreateAttr("w:val", "heading "+strconv.Itoa(level))
		st.CreateElement("w:basedOn").CreateAttr("w:val", "Normal")
		st.CreateElement("w:next").CreateAttr("w:val", "Normal")
		st.CreateElement("w:qFormat")
		ppr := st.CreateElement("w:pPr")
		ppr.CreateElement("w:keepNext")
		ppr.CreateElement("w:outlineLvl").CreateAttr("w:val", strconv.Itoa(level-1))
		rpr := st.CreateElement("w:rPr")
		rpr.CreateElement("w:b")
		rpr.CreateElement("w:bCs")
	}
	return x
}

func settingsPart() *etree.Document {
	x := newXMLDocument()
	root := x.CreateElement("w:settings")
	root.CreateAttr("xmlns:w", nsW)
	root.CreateElement("w:defaultTabStop").CreateAttr("w:val", "708")
	root.CreateElement("w:characterSpacingControl").CreateAttr("w:val", "doNotCompress")
	cs := root.CreateElement("w:compat").CreateElement("w:compatSetting")
	cs.CreateAttr("w:name", "compatibilityMode")
	cs.CreateAttr("w:uri", "http://schemas.microsoft.com/office/word")
	cs.CreateAttr("w:val", "15")
	return x
}

func fontTablePart(fonts []string) *etree.Document {
	x := newXMLDocument()
	root := x.CreateElement("w:fonts")
	root.CreateAttr("xmlns:w", nsW)
	for _, f := range fonts {
		root.CreateElement("w:font").CreateAttr("w:name", f)
	}
	return x
}

func sectionProperties(body *etree.Element, page Page, headerID, footerID string) {
	sect := body.CreateElement("w:sectPr")
	hr := sect.CreateElement("w:headerReference")
	hr.CreateAttr("w:type", "default")
	hr.CreateAttr("r:id", headerID)
	fr := sect.CreateElement("w:footerReference")
	fr.CreateAttr("w:type", "default")
	fr.CreateAttr("r:id", footerID)

	sz := sect.CreateElement("w:pgSz")
	sz.CreateAttr("w:w", strconv.Itoa(page.Width))
	sz.CreateAttr("w:h", strconv.Itoa(page.Height))
	if page.Width > page.Height {
		sz.CreateAttr("w:orient", "landscape")
	}

	mar := sect.CreateElement("w:pgMar")
	mar.CreateAttr("w:top", strconv.Itoa(page.Margins.Top))
	mar.CreateAttr("w:right", strconv.Itoa(page.Margins.Right))
	mar.CreateAttr("w:bottom", strconv.Itoa(page.Margins.Bottom))
	mar.CreateAttr("w:left", strconv.Itoa(page.Margins.Left))
	mar.CreateAttr("w:header", strconv.Itoa(HeaderFooterDistance))
	mar.CreateAttr("w:footer", strconv.Itoa(HeaderFooterDistance))
	mar.CreateAttr("w:gutter", "0")
}

func contentTypesPart(overrides [][2]string, media []mediaFile) *etree.Document {
	x := newXMLDocument()
	root := x.CreateElement("Types")
	root.CreateAttr("xmlns", nsCT)

	defaults := map[string]string{"rels": ctRels, "xml": ctXML}
	for _, m := range media {
		defaults[m.ext] = m.contentType
	}
	exts := make([]string, 0, len(defaults))
	for ext := range defaults {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	for _, ext := range exts {
		d := root.CreateElement("Default")
		d.CreateAttr("Extension", ext)
		d.CreateAttr("ContentType", defaults[ext])
	}
	for _, o := range overrides {
		el := root.CreateElement("Override")
		el.CreateAttr("PartName", "/"+o[0])
		el.CreateAttr("ContentType", o[1])
	}
	return x
}

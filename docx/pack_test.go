package docx

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
)

func a4() Page {
	m := MMToTwips(20)
	return Page{Width: 11906, Height: 16838, Margins: Margins{Top: m, Right: m, Bottom: m, Left: m}}
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type archive map[string][]byte

func openArchive(t *testing.T, data []byte) (archive, []*zip.File) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unable to open archive: %v", err)
	}
	out := make(archive)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		out[f.Name] = b
	}
	return out, zr.File
}

func (a archive) xml(t *testing.T, name string) *etree.Document {
	t.Helper()
	data, ok := a[name]
	if !ok {
		t.Fatalf("archive has no %s", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("unable to parse %s: %v", name, err)
	}
	return doc
}

func pack(t *testing.T, doc *Document, opts PackOptions) []byte {
	t.Helper()
	data, err := doc.Bytes(opts)
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	return data
}

func sampleDocument(t *testing.T) *Document {
	return &Document{
		Page:        a4(),
		DefaultFont: "Arial",
		DefaultSize: 20,
		Properties:  Properties{Title: "Attestation", Language: "fr-FR"},
		Header: []Block{
			&Paragraph{Alignment: AlignRight, Image: &Image{Data: pngData(t, 4, 2), Format: "png", Width: 110, Height: 55}},
		},
		Body: []Block{
			&Paragraph{HeadingLevel: 1, Alignment: AlignCenter, Runs: []Run{{Text: "ATTESTATION", Bold: true, SizeHalfPoints: 32}}},
			&Paragraph{Runs: []Run{{Text: "Line one\nLine two", Italic: true, Color: "FF0000", Font: "Georgia"}}},
			&Table{
				Width: *Pct(100),
				Rows: []*Row{{Cells: []*Cell{
					{Width: Pct(50), Shading: "EEEEEE", Borders: &Borders{Top: &Border{Color: "000000", Size: 4}}},
					{VAlign: VAlignCenter, Blocks: []*Paragraph{{Runs: []Run{{Text: "B"}}}}},
				}}},
			},
		},
	}
}

func TestPack_Parts(t *testing.T) {
	files, _ := openArchive(t, pack(t, sampleDocument(t), PackOptions{}))

	for _, name := range []string{
		"[Content_Types].xml", "_rels/.rels", "docProps/core.xml", "docProps/app.xml",
		"word/document.xml", "word/styles.xml", "word/settings.xml", "word/fontTable.xml",
		"word/header1.xml", "word/footer1.xml", "word/_rels/document.xml.rels",
		"word/_rels/header1.xml.rels", "word/_rels/footer1.xml.rels", "word/media/image1.png",
	} {
		if _, ok := files[name]; !ok {
			t.Errorf("archive has no %s", name)
		}
	}

	doc := files.xml(t, "word/document.xml")
	body := doc.FindElement("/w:document/w:body")
	if body == nil {
		t.Fatal("no body")
	}

	if got := body.FindElement("w:p/w:pPr/w:pStyle"); got == nil || got.SelectAttrValue("w:val", "") != "Heading1" {
		t.Error("heading style missing")
	}
	if got := body.FindElement("w:p/w:pPr/w:jc"); got == nil || got.SelectAttrValue("w:val", "") != "center" {
		t.Error("alignment missing")
	}
	if got := body.FindElement("w:p/w:r/w:rPr/w:sz"); got == nil || got.SelectAttrValue("w:val", "") != "32" {
		t.Error("run size missing")
	}
	if n := len(body.FindElements("w:p[2]/w:r/w:br")); n != 1 {
		t.Errorf("line breaks = %d, want 1", n)
	}

	sect := body.ChildElements()[len(body.ChildElements())-1]
	if sect.Tag != "sectPr" {
		t.Fatalf("last body element = %s, want sectPr", sect.Tag)
	}
	mar := sect.FindElement("w:pgMar")
	if mar.SelectAttrValue("w:top", "") != "1133" || mar.SelectAttrValue("w:header", "") != "708" {
		t.Errorf("page margins = %v", mar.Attr)
	}

	tbl := body.FindElement("w:tbl")
	if tbl == nil {
		t.Fatal("no table")
	}
	if w := tbl.FindElement("w:tblPr/w:tblW"); w.SelectAttrValue("w:w", "") != "5000" || w.SelectAttrValue("w:type", "") != "pct" {
		t.Errorf("table width = %v", w.Attr)
	}
	cells := tbl.FindElements("w:tr/w:tc")
	if len(cells) != 2 {
		t.Fatalf("cells = %d, want 2", len(cells))
	}
	if w := cells[0].FindElement("w:tcPr/w:tcW"); w == nil || w.SelectAttrValue("w:w", "") != "2500" {
		t.Error("cell width missing")
	}
	if left := cells[0].FindElement("w:tcPr/w:tcBorders/w:left"); left == nil || left.SelectAttrValue("w:val", "") != "nil" {
		t.Error("undeclared border edge is not nil")
	}
	if len(cells[0].FindElements("w:p")) != 1 {
		t.Error("empty cell has no paragraph")
	}
	var order []string
	for _, el := range cells[0].FindElement("w:tcPr").ChildElements() {
		order = append(order, el.Tag)
	}
	if got := strings.Join(order, ","); got != "tcW,tcBorders,shd,vAlign" {
		t.Errorf("cell property order = %s", got)
	}

	header := files.xml(t, "word/header1.xml")
	blip := header.FindElement("//a:blip")
	if blip == nil {
		t.Fatal("header has no picture")
	}
	rels := files.xml(t, "word/_rels/header1.xml.rels")
	rel := rels.FindElement("//Relationship[@Id='" + blip.SelectAttrValue("r:embed", "") + "']")
	if rel == nil || rel.SelectAttrValue("Target", "") != "media/image1.png" {
		t.Error("picture relationship does not point to media")
	}
	if ext := header.FindElement("//wp:extent"); ext.SelectAttrValue("cx", "") != "1047750" {
		t.Errorf("extent cx = %s", ext.SelectAttrValue("cx", ""))
	}

	footer := files.xml(t, "word/footer1.xml")
	if n := len(footer.FindElements("/w:ftr/w:p")); n != 1 {
		t.Errorf("empty footer paragraphs = %d, want 1", n)
	}

	ct := files.xml(t, "[Content_Types].xml")
	if d := ct.FindElement("//Default[@Extension='png']"); d == nil || d.SelectAttrValue("ContentType", "") != "image/png" {
		t.Error("png content type missing")
	}

	fonts := files.xml(t, "word/fontTable.xml")
	var names []string
	for _, f := range fonts.FindElements("//w:font") {
		names = append(names, f.SelectAttrValue("w:name", ""))
	}
	if got := strings.Join(names, ","); got != "Arial,Georgia" {
		t.Errorf("fonts = %s", got)
	}

	core := files.xml(t, "docProps/core.xml")
	if id := core.FindElement("//dc:identifier"); id == nil || !strings.HasPrefix(id.Text(), "urn:uuid:") {
		t.Error("identifier missing")
	}
	if core.FindElement("//dcterms:created") != nil {
		t.Error("created written without timestamp")
	}
}

func TestPack_Deterministic(t *testing.T) {
	first := pack(t, sampleDocument(t), PackOptions{})
	second := pack(t, sampleDocument(t), PackOptions{})
	if !bytes.Equal(first, second) {
		t.Error("identical documents produced different archives")
	}

	other := sampleDocument(t)
	other.Body = other.Body[:1]
	a, _ := openArchive(t, first)
	b, _ := openArchive(t, pack(t, other, PackOptions{}))
	ida := a.xml(t, "docProps/core.xml").FindElement("//dc:identifier").Text()
	idb := b.xml(t, "docProps/core.xml").FindElement("//dc:identifier").Text()
	if ida == idb {
		t.Error("different documents share identifier")
	}
}

func TestPack_Created(t *testing.T) {
	created := time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)
	files, _ := openArchive(t, pack(t, sampleDocument(t), PackOptions{Created: created}))
	el := files.xml(t, "docProps/core.xml").FindElement("//dcterms:created")
	if el == nil || el.Text() != "2025-03-04T10:30:00Z" {
		t.Errorf("created = %v", el)
	}
}

func TestPack_FixZip(t *testing.T) {
	data := pack(t, sampleDocument(t), PackOptions{FixZip: true})
	files, entries := openArchive(t, data)
	for _, f := range entries {
		if f.Flags&0x8 != 0 {
			t.Errorf("%s still has data descriptor flag", f.Name)
		}
	}
	plain, _ := openArchive(t, pack(t, sampleDocument(t), PackOptions{}))
	for name, content := range plain {
		if !bytes.Equal(files[name], content) {
			t.Errorf("%s differs after rewrite", name)
		}
	}
}

func TestPack_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
	}{
		{"nil", nil},
		{"no page", &Document{}},
		{"pending image", &Document{Page: a4(), Body: []Block{&Paragraph{Image: &Image{Source: "https://example.com/a.png"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Pack(io.Discard, tt.doc, PackOptions{}); err == nil {
				t.Error("Pack() expected error")
			}
		})
	}
}

func TestPack_LayoutTable(t *testing.T) {
	doc := &Document{
		Page: a4(),
		Body: []Block{&Table{
			LayoutTable: true,
			Borders:     &Borders{Top: &Border{}},
			Rows: []*Row{{Cells: []*Cell{
				{Borders: &Borders{Top: &Border{}}, Blocks: []*Paragraph{{Runs: []Run{{Text: "x"}}}}},
			}}},
		}},
	}
	files, _ := openArchive(t, pack(t, doc, PackOptions{}))
	body := files.xml(t, "word/document.xml")
	if body.FindElement("//w:tblBorders") != nil || body.FindElement("//w:tcBorders") != nil {
		t.Error("layout table has borders")
	}
	cols := body.FindElements("//w:gridCol")
	if len(cols) != 1 || cols[0].SelectAttrValue("w:w", "") != "9640" {
		t.Errorf("grid = %d columns", len(cols))
	}
}

func TestXMLText(t *testing.T) {
	if got := xmlText("a\x00b\x1fc\td"); got != "abc\td" {
		t.Errorf("xmlText() = %q", got)
	}
}

func TestMMToTwips(t *testing.T) {
	tests := []struct {
		mm   float64
		want int
	}{
		{0, 0},
		{20, 1133},
		{25.4, 1440},
		{15, 850},
	}
	for _, tt := range tests {
		if got := MMToTwips(tt.mm); got != tt.want {
			t.Errorf("MMToTwips(%v) = %d, want %d", tt.mm, got, tt.want)
		}
	}
}

func TestGridColumns(t *testing.T) {
	p := &packer{doc: &Document{Page: a4()}}
	tbl := &Table{
		Width: *Pct(100),
		Rows: []*Row{
			{Cells: []*Cell{{}, {Width: Pct(50)}, {}}},
			{Cells: []*Cell{{Width: Dxa(1000)}}},
		},
	}
	got := p.gridColumns(tbl)
	want := []int{1000, 4820, 3820}
	if len(got) != len(want) {
		t.Fatalf("gridColumns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("gridColumns() = %v, want %v", got, want)
			break
		}
	}
}

func TestDocument_Dump(t *testing.T) {
	out := sampleDocument(t).Dump(5)
	for _, want := range []string{
		"document page=11906x16838",
		"  header blocks=1\n    image align=right format=png size=110x55\n",
		"paragraph align=center heading=1",
		`text: "ATTES"...`,
		"table rows=1 columns=2 width=100%",
		"cell width=50% valign=top shading=EEEEEE borders=yes",
		"  footer blocks=0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() missing %q in:\n%s", want, out)
		}
	}
}

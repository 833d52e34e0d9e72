// Package docx holds word processing document model and writes it as
// WordprocessingML package (.docx).
package docx

import (
	"math"
	"strings"
)

// Alignment is paragraph justification.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignBoth
)

// String returns w:jc value.
func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignBoth:
		return "both"
	default:
		return "left"
	}
}

// VAlign is vertical alignment of cell content.
type VAlign int

const (
	VAlignTop VAlign = iota
	VAlignCenter
	VAlignBottom
)

// String returns w:vAlign value.
func (v VAlign) String() string {
	switch v {
	case VAlignCenter:
		return "center"
	case VAlignBottom:
		return "bottom"
	default:
		return "top"
	}
}

// Block is either *Paragraph or *Table.
type Block interface {
	block()
}

// Paragraph is a run sequence, or a single image when Image is set.
type Paragraph struct {
	Runs         []Run
	Alignment    Alignment
	Spacing      *Spacing
	HeadingLevel int // 0 for regular paragraphs, 1..6 for headings
	Image        *Image
}

func (*Paragraph) block() {}

// Text returns concatenated text of the runs.
func (p *Paragraph) Text() string {
	if len(p.Runs) == 1 {
		return p.Runs[0].Text
	}
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Spacing is paragraph spacing in twips, Line in 240ths of a line.
type Spacing struct {
	After int
	Line  int
}

// Run is a piece of text with uniform formatting.
type Run struct {
	Text           string
	SizeHalfPoints int // 0 means document default
	Bold           bool
	Italic         bool
	Color          string // hex without '#', empty for automatic
	Font           string // empty for document default
}

// Image is a picture shown inline. Until Data is set the image is a pending
// reference to Source.
type Image struct {
	Source string
	Data   []byte
	Format string // png, jpeg or gif
	Width  int    // display pixels
	Height int
}

// Pending reports image which has not been resolved yet.
func (i *Image) Pending() bool {
	return len(i.Data) == 0
}

// Ext returns media file extension.
func (i *Image) Ext() string {
	if i.Format == "jpeg" {
		return "jpg"
	}
	return i.Format
}

// WidthType tells how width value is measured.
type WidthType int

const (
	WidthPct WidthType = iota // percent
	WidthDxa                  // twips
)

// Width is table or cell width.
type Width struct {
	Value float64
	Type  WidthType
}

// Pct makes percentage width.
func Pct(v float64) *Width {
	return &Width{Value: v, Type: WidthPct}
}

// Dxa makes width in twips.
func Dxa(v int) *Width {
	return &Width{Value: float64(v), Type: WidthDxa}
}

// Border is a single edge line.
type Border struct {
	Style string // w:val, "single"
	Color string // hex without '#'
	Size  int    // eighths of a point
}

// Borders are the four edges of a cell or table. Nil edge is not drawn.
type Borders struct {
	Top, Right, Bottom, Left *Border
}

// Table is a grid of cells.
type Table struct {
	Rows        []*Row
	Width       Width
	LayoutFixed bool
	Borders     *Borders
	LayoutTable bool // positioning table, never bordered
}

func (*Table) block() {}

// Columns returns the largest cell count of the rows.
func (t *Table) Columns() int {
	n := 0
	for _, r := range t.Rows {
		n = max(n, len(r.Cells))
	}
	return n
}

// Row is a table row.
type Row struct {
	Cells []*Cell
}

// Cell is a table cell. Cell must hold at least one paragraph.
type Cell struct {
	Blocks  []*Paragraph
	Width   *Width
	VAlign  VAlign
	Borders *Borders
	Shading string // fill hex, empty for none
	Margins int    // twips, all sides
}

// EnsureContent adds an empty paragraph to a cell without blocks.
func (c *Cell) EnsureContent() {
	if len(c.Blocks) == 0 {
		c.Blocks = append(c.Blocks, &Paragraph{})
	}
}

// Margins are page margins in twips.
type Margins struct {
	Top, Right, Bottom, Left int
}

// Page is page geometry in twips.
type Page struct {
	Width   int
	Height  int
	Margins Margins
}

// ContentWidth returns width between left and right margins.
func (p Page) ContentWidth() int {
	return max(p.Width-p.Margins.Left-p.Margins.Right, 0)
}

// HeaderFooterDistance is distance of header and footer from page edge in
// twips.
const HeaderFooterDistance = 708

// MMToTwips converts millimeters to twips rounding down.
func MMToTwips(mm float64) int {
	return int(math.Floor(mm / 25.4 * 1440))
}

// Properties are package metadata.
type Properties struct {
	Title       string
	Language    string // BCP 47 tag, for example "fr-FR"
	Creator     string
	Application string
}

// Document is assembled document ready to be packed.
type Document struct {
	Header []Block
	Body   []Block
	Footer []Block
	Page   Page

	DefaultFont string
	DefaultSize int // half points

	Properties Properties
}

// Sections returns header, body and footer block lists with their names, in
// the order media is numbered.
func (d *Document) Sections() []Section {
	return []Section{
		{Name: "header", Blocks: d.Header},
		{Name: "body", Blocks: d.Body},
		{Name: "footer", Blocks: d.Footer},
	}
}

// Section is named block list of a document.
type Section struct {
	Name   string
	Blocks []Block
}

// Images returns every image paragraph of blocks in document order, including
// the ones inside table cells.
func Images(blocks []Block) []*Paragraph {
	var out []*Paragraph
	for _, b := range blocks {
		switch v := b.(type) {
		case *Paragraph:
			if v.Image != nil {
				out = append(out, v)
			}
		case *Table:
			for _, r := range v.Rows {
				for _, c := range r.Cells {
					for _, p := range c.Blocks {
						if p.Image != nil {
							out = append(out, p)
						}
					}
				}
			}
		}
	}
	return out
}

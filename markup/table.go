package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attrs holds element attributes with lower-cased names.
type Attrs map[string]string

// Get returns attribute value or empty string.
func (a Attrs) Get(name string) string {
	return a[name]
}

func attrsOf(t html.Token) Attrs {
	a := make(Attrs, len(t.Attr))
	for _, at := range t.Attr {
		if _, ok := a[at.Key]; !ok {
			a[at.Key] = at.Val
		}
	}
	return a
}

// Table is row and cell structure of a single table element. Nested tables
// are not interpreted, they stay in the markup of their cell.
type Table struct {
	Attrs Attrs
	Rows  []Row
}

// Row is <tr> which belongs to the table directly or through thead, tbody or
// tfoot.
type Row struct {
	Attrs Attrs
	Cells []Cell
}

// Cell is <td> or <th> of a row.
type Cell struct {
	Header bool
	Attrs  Attrs
	Inner  string // raw markup between cell tags
}

// ParseTable reads table structure from markup starting with <table> tag (as
// produced by Segments). Cells outside of rows are ignored, missing closing
// tags of cells and rows are implied by the next opening tag. Returns false
// when markup does not start with a table.
func ParseTable(markup string) (*Table, bool) {
	c := cursor{z: html.NewTokenizer(strings.NewReader(markup))}

	var (
		t     *Table
		row   *Row
		cell  *Cell
		inner strings.Builder
		depth int
	)

	closeCell := func() {
		if cell == nil {
			return
		}
		cell.Inner = inner.String()
		row.Cells = append(row.Cells, *cell)
		cell = nil
		inner.Reset()
	}
	closeRow := func() {
		closeCell()
		if row == nil {
			return
		}
		t.Rows = append(t.Rows, *row)
		row = nil
	}

	for {
		tt, start, end := c.next()
		if tt == html.ErrorToken {
			break
		}
		raw := markup[start:end]

		if t == nil {
			switch tt {
			case html.StartTagToken:
				if c.atom() != atom.Table {
					return nil, false
				}
				t = &Table{Attrs: attrsOf(c.tok)}
				depth = 1
			case html.TextToken, html.CommentToken:
				if tt == html.TextToken && strings.TrimSpace(raw) != "" {
					return nil, false
				}
			default:
				return nil, false
			}
			continue
		}

		if depth > 1 {
			switch tt {
			case html.StartTagToken:
				if c.atom() == atom.Table {
					depth++
				}
			case html.EndTagToken:
				if c.atom() == atom.Table {
					depth--
				}
			}
			if cell != nil {
				inner.WriteString(raw)
			}
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch a := c.atom(); a {
			case atom.Tr:
				closeRow()
				row = &Row{Attrs: attrsOf(c.tok)}
				continue
			case atom.Td, atom.Th:
				closeCell()
				if row == nil {
					continue
				}
				cell = &Cell{Header: a == atom.Th, Attrs: attrsOf(c.tok)}
				continue
			case atom.Thead, atom.Tbody, atom.Tfoot:
				closeRow()
				continue
			case atom.Table:
				if tt == html.StartTagToken {
					depth++
				}
			}
		case html.EndTagToken:
			switch c.atom() {
			case atom.Td, atom.Th:
				closeCell()
				continue
			case atom.Tr, atom.Thead, atom.Tbody, atom.Tfoot:
				closeRow()
				continue
			case atom.Table:
				closeRow()
				return t, true
			}
		}
		if cell != nil {
			inner.WriteString(raw)
		}
	}
	if t == nil {
		return nil, false
	}
	closeRow()
	return t, true
}

// Flatten replaces every table of markup with its text: cells of a row are
// joined with " | ", rows are separated with <br>. Other markup, including
// markup inside of table cells, is kept. Tables nested deeper are flattened
// first.
func Flatten(markup string) string {
	if !containsTable(markup) {
		return markup
	}
	var sb strings.Builder
	for seg := range Segments(markup) {
		if seg.Kind == TextSegment {
			sb.WriteString(seg.Text)
			continue
		}
		t, ok := ParseTable(seg.Text)
		if !ok {
			sb.WriteString(seg.Text)
			continue
		}
		sb.WriteString(flattenTable(t))
	}
	return sb.String()
}

func flattenTable(t *Table) string {
	rows := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := make([]string, 0, len(r.Cells))
		for _, c := range r.Cells {
			cells = append(cells, strings.TrimSpace(Flatten(c.Inner)))
		}
		// drop trailing empty cells so rows do not end with separator
		for len(cells) > 0 && PlainText(cells[len(cells)-1]) == "" && !HasImage(cells[len(cells)-1]) {
			cells = cells[:len(cells)-1]
		}
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.Join(rows, "<br>")
}

func containsTable(markup string) bool {
	return strings.Contains(strings.ToLower(markup), "<table")
}

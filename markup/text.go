package markup

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText strips tags, decodes entities and collapses whitespace. Content
// of script and style elements is dropped.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapse(sb.String())
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			if isSkipped(z) {
				skip++
			}
		case html.EndTagToken:
			if isSkipped(z) && skip > 0 {
				skip--
			}
		}
	}
}

func isSkipped(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	}
	return false
}

// Lines extracts text of fragment as lines: <br> and closing tags of p, div,
// li and headings end a line, <hr> becomes a "---" line. Whitespace inside a
// line collapses (source line breaks included), blank lines are dropped.
func Lines(fragment string) []string {
	var (
		lines []string
		cur   strings.Builder
	)
	flush := func() {
		if s := collapse(cur.String()); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			flush()
			return lines
		case html.TextToken:
			if skip == 0 {
				cur.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Script || a == atom.Style:
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			case a == atom.Br:
				flush()
			case a == atom.Hr && tt != html.EndTagToken:
				flush()
				lines = append(lines, "---")
			case tt == html.EndTagToken && endsLine(a):
				flush()
			}
		}
	}
}

func endsLine(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

// collapse turns whitespace runs into single space and trims result.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	boldSel   = cascadia.MustCompile("strong, b")
	italicSel = cascadia.MustCompile("em, i")
)

// HasBold reports <strong> or <b> anywhere in fragment.
func HasBold(fragment string) bool {
	return matches(fragment, boldSel)
}

// HasItalic reports <em> or <i> anywhere in fragment.
func HasItalic(fragment string) bool {
	return matches(fragment, italicSel)
}

func matches(fragment string, sel cascadia.Matcher) bool {
	root := parseFragment(fragment)
	if root == nil {
		return false
	}
	return cascadia.Query(root, sel) != nil
}

// parseFragment parses markup in body context and returns container node
// holding the result. Nil when parser fails.
func parseFragment(fragment string) *html.Node {
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil
	}
	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container
}

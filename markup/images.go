package markup

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Image is an <img> element of markup.
type Image struct {
	Src   string
	Attrs Attrs
}

// Style returns raw value of style attribute.
func (i Image) Style() string {
	return i.Attrs.Get("style")
}

var imgSel = cascadia.MustCompile("img")

// FirstImage returns first <img> of fragment in document order.
func FirstImage(fragment string) (Image, bool) {
	if !HasImage(fragment) {
		return Image{}, false
	}
	root := parseFragment(fragment)
	if root == nil {
		return Image{}, false
	}
	n := cascadia.Query(root, imgSel)
	if n == nil {
		return Image{}, false
	}
	return imageOf(n), true
}

func imageOf(n *html.Node) Image {
	img := Image{Attrs: make(Attrs, len(n.Attr))}
	for _, a := range n.Attr {
		if _, ok := img.Attrs[a.Key]; !ok {
			img.Attrs[a.Key] = a.Val
		}
	}
	img.Src = strings.TrimSpace(img.Attrs.Get("src"))
	return img
}

// HasImage reports whether fragment has an <img> tag.
func HasImage(fragment string) bool {
	return strings.Contains(strings.ToLower(fragment), "<img")
}

// StandaloneImages returns <img> elements of fragment which are not inside a
// table. Image after an unclosed <table> counts as being inside.
func StandaloneImages(fragment string) []Image {
	if !HasImage(fragment) {
		return nil
	}
	var (
		out   []Image
		depth int
	)
	c := cursor{z: html.NewTokenizer(strings.NewReader(fragment))}
	for {
		tt, _, _ := c.next()
		switch tt {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			switch c.atom() {
			case atom.Table:
				if tt == html.StartTagToken {
					depth++
				}
			case atom.Img:
				if depth == 0 {
					a := attrsOf(c.tok)
					out = append(out, Image{Src: strings.TrimSpace(a.Get("src")), Attrs: a})
				}
			}
		case html.EndTagToken:
			if c.atom() == atom.Table && depth > 0 {
				depth--
			}
		}
	}
}

// StripImages removes every <img> tag from fragment leaving the rest of the
// markup untouched.
func StripImages(fragment string) string {
	if !HasImage(fragment) {
		return fragment
	}
	var sb strings.Builder
	sb.Grow(len(fragment))
	c := cursor{z: html.NewTokenizer(strings.NewReader(fragment))}
	for {
		tt, start, end := c.next()
		if tt == html.ErrorToken {
			return sb.String()
		}
		if (tt == html.StartTagToken || tt == html.SelfClosingTagToken) && c.atom() == atom.Img {
			continue
		}
		sb.WriteString(fragment[start:end])
	}
}

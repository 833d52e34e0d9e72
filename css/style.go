// Package css resolves inline style declarations of markup fragments: property
// map, colors and lengths. Only the small subset of CSS which maps onto word
// processing documents is interpreted, everything else is carried as raw text.
package css

import (
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Style maps camel-cased CSS property names to raw values of a single tag's
// style attribute.
type Style map[string]string

// ParseStyle parses inline declarations, broken declarations are skipped.
func ParseStyle(raw string) Style {
	s, _ := ParseDeclarations(raw)
	return s
}

// ParseDeclarations parses inline declarations (content of style attribute)
// and additionally returns text of declarations which could not be parsed.
// Result is never nil.
func ParseDeclarations(raw string) (Style, []string) {
	style := make(Style)
	if strings.TrimSpace(raw) == "" {
		return style, nil
	}

	var skipped []string
	p := css.NewParser(parse.NewInputString(raw), true)

	// each call consumes at least one token, bound protects against parser
	// not advancing on garbage
	for range len(raw) + 1 {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(p.Err(), io.EOF) {
				return style, skipped
			}
			skipped = append(skipped, strings.TrimSpace(string(data)+tokensText(p.Values())))
		case css.DeclarationGrammar:
			name := strings.ToLower(strings.TrimSpace(string(data)))
			value := valueText(p.Values())
			if name == "" || value == "" {
				skipped = append(skipped, name)
				continue
			}
			style[camelCase(name)] = value
		case css.CustomPropertyGrammar:
			// variables are not supported
		default:
			skipped = append(skipped, strings.TrimSpace(string(data)+tokensText(p.Values())))
		}
	}
	return style, skipped
}

// Get returns trimmed value of the property or empty string.
func (s Style) Get(prop string) string {
	return strings.TrimSpace(s[prop])
}

// Has reports whether property is present with non empty value.
func (s Style) Has(prop string) bool {
	return s.Get(prop) != ""
}

// Keyword returns lower-cased value, suitable for comparing with CSS
// keywords.
func (s Style) Keyword(prop string) string {
	return strings.ToLower(s.Get(prop))
}

// Inherit returns new style with inheritable properties of parent which are
// not set in s.
func (s Style) Inherit(parent Style) Style {
	out := make(Style, len(s)+len(inheritable))
	for _, prop := range inheritable {
		if v, ok := parent[prop]; ok {
			out[prop] = v
		}
	}
	for k, v := range s {
		out[k] = v
	}
	return out
}

var inheritable = []string{"textAlign", "color", "fontFamily", "fontSize", "fontWeight", "fontStyle"}

// IsBold reports font-weight bold, bolder or numeric weight of 600 and up.
func (s Style) IsBold() bool {
	switch w := s.Keyword("fontWeight"); w {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	default:
		return false
	}
}

// IsItalic reports font-style italic or oblique.
func (s Style) IsItalic() bool {
	switch s.Keyword("fontStyle") {
	case "italic", "oblique":
		return true
	default:
		return false
	}
}

// FontFamily returns first family name of the font-family list without
// quotes.
func (s Style) FontFamily() string {
	v := s.Get("fontFamily")
	if v == "" {
		return ""
	}
	first, _, _ := strings.Cut(v, ",")
	return unquote(first)
}

// FontSizePt resolves font-size to points relative to base size. Bare numbers
// are taken as points.
func (s Style) FontSizePt(base float64) (float64, bool) {
	l, ok := ParseLength(s.Get("fontSize"))
	if !ok || l.Value <= 0 {
		return 0, false
	}
	switch l.Unit {
	case "", "pt":
		return l.Value, true
	case "px":
		return l.Value * 0.75, true
	case "em", "rem":
		return l.Value * base, true
	case "%":
		return l.Value * base / 100, true
	case "mm":
		return l.Value * 72 / 25.4, true
	case "cm":
		return l.Value * 72 / 2.54, true
	case "in":
		return l.Value * 72, true
	default:
		return 0, false
	}
}

// valueText builds normalized raw value from declaration tokens: runs of
// whitespace become single space, "!important" is dropped.
func valueText(tokens []css.Token) string {
	v := strings.TrimSpace(tokensText(tokens))
	if i := strings.LastIndex(v, "!"); i >= 0 && strings.EqualFold(strings.TrimSpace(v[i+1:]), "important") {
		v = strings.TrimSpace(v[:i])
	}
	return v
}

func tokensText(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.Write(t.Data)
	}
	return sb.String()
}

// camelCase converts "background-color" to "backgroundColor", vendor prefix
// "-webkit-x" becomes "WebkitX".
func camelCase(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(name))
	upper := false
	for _, r := range name {
		if r == '-' {
			upper = true
			continue
		}
		if upper && 'a' <= r && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

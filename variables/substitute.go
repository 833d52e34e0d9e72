package variables

import (
	"html"
	"regexp"
	"strings"
)

// LogoKeys are placeholder names which, when holding URL value, become inline
// image tags instead of plain text.
var LogoKeys = []string{
	"ecole_logo",
	"organization_logo",
	"organisation_logo",
	"logo",
	"company_logo",
	"school_logo",
}

const logoStyle = "max-height: 55px; max-width: 140px; object-fit: contain;"

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// IsLogoKey reports whether name is one of LogoKeys.
func IsLogoKey(name string) bool {
	for _, k := range LogoKeys {
		if k == name {
			return true
		}
	}
	return false
}

// LogoTag returns img tag used for logo placeholders.
func LogoTag(src string) string {
	return `<img src="` + html.EscapeString(src) + `" alt="Logo" style="` + logoStyle + `" />`
}

// Substitute replaces every {name} placeholder of markup. Logo keys holding
// URL values become image tags, or the escaped URL when the placeholder sits
// inside a tag (as in <img src="{logo}">). Other known names are replaced with
// their value, unknown names are removed. Replacement text is never
// substituted into, so result does not depend on map order. Placeholders left
// in the result (brought in by values or formed by removal, as in "{a{b}}")
// are stripped as well. Second value lists distinct names which were removed,
// in order of first occurrence.
func Substitute(markup string, vars Variables) (string, []string) {
	var (
		u    unresolved
		sb   strings.Builder
		last int
	)
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(markup, -1) {
		sb.WriteString(markup[last:m[0]])
		last = m[1]

		name := markup[m[2]:m[3]]
		v, ok := vars[name]
		switch {
		case ok && IsLogoKey(name) && v.IsURL():
			if insideTag(markup[:m[0]]) {
				sb.WriteString(html.EscapeString(v.String()))
			} else {
				sb.WriteString(LogoTag(v.String()))
			}
		case ok && !IsLogoKey(name):
			sb.WriteString(v.String())
		default:
			u.add(name)
		}
	}
	sb.WriteString(markup[last:])
	out := sb.String()

	// every pass shortens the string
	for placeholderRe.MatchString(out) {
		out = placeholderRe.ReplaceAllStringFunc(out, func(m string) string {
			u.add(m[1 : len(m)-1])
			return ""
		})
	}
	return out, u.names
}

// insideTag reports whether markup ends in the middle of a start tag. A '<'
// not followed by a letter is text.
func insideTag(before string) bool {
	lt := strings.LastIndexByte(before, '<')
	if lt < 0 || lt < strings.LastIndexByte(before, '>') || lt+1 >= len(before) {
		return false
	}
	c := before[lt+1] | 0x20
	return c >= 'a' && c <= 'z'
}

type unresolved struct {
	names []string
	seen  map[string]bool
}

func (u *unresolved) add(name string) {
	if u.seen[name] {
		return
	}
	if u.seen == nil {
		u.seen = make(map[string]bool)
	}
	u.seen[name] = true
	u.names = append(u.names, name)
}

// Placeholders returns distinct placeholder names of markup in order of first
// occurrence.
func Placeholders(markup string) []string {
	var u unresolved
	for _, m := range placeholderRe.FindAllStringSubmatch(markup, -1) {
		u.add(m[1])
	}
	return u.names
}

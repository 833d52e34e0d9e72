// Package variables resolves {name} placeholders of markup fragments.
package variables

import (
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tells how substitution treats a value.
type Kind int

const (
	KindText Kind = iota
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindURL:
		return "url"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a tagged placeholder value, either plain text or URL.
type Value struct {
	kind Kind
	s    string
}

// Text makes plain text value.
func Text(s string) Value {
	return Value{kind: KindText, s: s}
}

// URL makes URL value. Only URL values of logo keys are promoted to images.
func URL(s string) Value {
	return Value{kind: KindURL, s: s}
}

// Kind returns value kind.
func (v Value) Kind() Kind {
	return v.kind
}

// String returns value as it is substituted.
func (v Value) String() string {
	return v.s
}

// IsURL reports URL kind.
func (v Value) IsURL() bool {
	return v.kind == KindURL
}

// Classify makes URL value when s is absolute http(s) URL and text value
// otherwise.
func Classify(s string) Value {
	if isHTTPURL(s) {
		return URL(s)
	}
	return Text(s)
}

func isHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// UnmarshalYAML accepts scalar (classified as text or URL) or mapping with a
// single "url" or "text" key forcing the kind.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*v = Text("")
			return nil
		}
		*v = Classify(node.Value)
		return nil
	case yaml.MappingNode:
		var forced struct {
			URL  *string `yaml:"url"`
			Text *string `yaml:"text"`
		}
		if err := node.Decode(&forced); err != nil {
			return err
		}
		switch {
		case forced.URL != nil && forced.Text != nil:
			return fmt.Errorf("line %d: value must have either url or text, not both", node.Line)
		case forced.URL != nil:
			*v = URL(*forced.URL)
		case forced.Text != nil:
			*v = Text(*forced.Text)
		default:
			return fmt.Errorf("line %d: value mapping must have url or text key", node.Line)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unexpected value node kind %d", node.Line, node.Kind)
	}
}

// MarshalYAML writes URL values in forced form so they survive round trip
// even when not looking like http(s) URL.
func (v Value) MarshalYAML() (any, error) {
	if v.kind == KindURL && !isHTTPURL(v.s) {
		return map[string]string{"url": v.s}, nil
	}
	if v.kind == KindText && isHTTPURL(v.s) {
		return map[string]string{"text": v.s}, nil
	}
	return v.s, nil
}

// Variables maps placeholder names to values.
type Variables map[string]Value

// FromStrings classifies every plain string value with Classify.
func FromStrings(m map[string]string) Variables {
	vars := make(Variables, len(m))
	for k, s := range m {
		vars[k] = Classify(s)
	}
	return vars
}

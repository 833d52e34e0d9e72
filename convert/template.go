package convert

import (
	"embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rupor-github/gencfg"

	"docgen/config"
)

// ErrInvalidTemplate is returned for templates which cannot be used at all.
var ErrInvalidTemplate = errors.New("invalid template")

// Template is a document layout: header, body and footer markup with
// {placeholders} and inline styles, base font size and page margins.
type Template struct {
	// Type names a built-in document type, its default markup is used for
	// fragments left empty.
	Type     string                `yaml:"type,omitempty"`
	Title    string                `yaml:"title,omitempty"`
	Header   string                `yaml:"header"`
	Body     string                `yaml:"body"`
	Footer   string                `yaml:"footer"`
	FontSize float64               `yaml:"font_size,omitempty" validate:"gte=0,lte=200"`
	Margins  *config.MarginsConfig `yaml:"margins,omitempty"`
}

//go:embed defaults/*.html
var defaultsFS embed.FS

type builtinTemplate struct {
	title string
	body  string
}

var builtinTemplates = map[string]builtinTemplate{
	"convocation":           {title: "Convocation", body: "defaults/convocation.html"},
	"attestation_assiduite": {title: "Attestation d'assiduité", body: "defaults/attestation_assiduite.html"},
}

// TemplateTypes returns names of built-in document types.
func TemplateTypes() []string {
	names := make([]string, 0, len(builtinTemplates))
	for name := range builtinTemplates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (t *Template) validate() error {
	if err := gencfg.Validate(t); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	if t.Type != "" {
		if _, ok := builtinTemplates[t.Type]; !ok {
			return fmt.Errorf("%w: unknown document type %q, try [%s]", ErrInvalidTemplate, t.Type, strings.Join(TemplateTypes(), ", "))
		}
	}
	return nil
}

// withDefaults returns copy of the template with empty fragments filled from
// the built-in document type. Template without type is returned as is.
func (t Template) withDefaults() (Template, error) {
	def, ok := builtinTemplates[t.Type]
	if !ok {
		return t, nil
	}
	fill := func(dst *string, name string) error {
		if strings.TrimSpace(*dst) != "" {
			return nil
		}
		data, err := defaultsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("unable to read default template %s: %w", name, err)
		}
		*dst = string(data)
		return nil
	}
	if err := fill(&t.Header, "defaults/header.html"); err != nil {
		return t, err
	}
	if err := fill(&t.Body, def.body); err != nil {
		return t, err
	}
	if err := fill(&t.Footer, "defaults/footer.html"); err != nil {
		return t, err
	}
	if t.Title == "" {
		t.Title = def.title
	}
	return t, nil
}

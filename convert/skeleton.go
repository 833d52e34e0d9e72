package convert

import (
	"bytes"
	"fmt"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"docgen/variables"
)

// Skeleton returns job file for built-in document type with markup filled
// from defaults and an empty variable for every placeholder found in it.
func Skeleton(typ string) ([]byte, error) {
	tpl := Template{Type: typ}
	if err := tpl.validate(); err != nil {
		return nil, err
	}
	if typ == "" {
		return nil, fmt.Errorf("%w: document type is required, try [%s]", ErrInvalidTemplate, strings.Join(TemplateTypes(), ", "))
	}
	tpl, err := tpl.withDefaults()
	if err != nil {
		return nil, err
	}

	j := Job{Name: typ, Template: tpl, Variables: variables.Variables{}}
	for _, fragment := range []string{tpl.Header, tpl.Body, tpl.Footer} {
		for _, name := range variables.Placeholders(fragment) {
			j.Variables[name] = variables.Text("")
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&j); err != nil {
		return nil, fmt.Errorf("unable to encode job: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

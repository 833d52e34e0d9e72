package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"docgen/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Name       string
	Type       string
	Title      string
	SourceFile string
	Variables  map[string]string
}

func buildValues(name config.TemplateFieldName, j *Job, src string) Values {
	vars := make(map[string]string, len(j.Variables))
	for k, v := range j.Variables {
		vars[k] = v.String()
	}
	return Values{
		Context:    string(name),
		Name:       j.Name,
		Type:       j.Template.Type,
		Title:      j.Template.Title,
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Variables:  vars,
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Option("missingkey=zero").Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

package convert

import (
	"strings"
	"testing"

	"docgen/docx"
	"docgen/variables"
)

func TestDump(t *testing.T) {
	j := &Job{Name: "dupont", Template: Template{Type: "convocation"}}
	vars := variables.Variables{
		"item10": variables.Text("ten"),
		"item2":  variables.Text("two"),
		"logo":   variables.URL("https://example.com/l.png"),
	}

	t.Run("without result", func(t *testing.T) {
		out := dump(j, vars, nil)
		if !strings.HasPrefix(out, "job name=dupont type=convocation\n") {
			t.Errorf("dump() header = %q", out)
		}
		i2, i10 := strings.Index(out, "item2"), strings.Index(out, "item10")
		if i2 < 0 || i10 < 0 || i2 > i10 {
			t.Errorf("variables should be in natural order:\n%s", out)
		}
		if !strings.Contains(out, "logo (url)") {
			t.Errorf("dump() should show value kind:\n%s", out)
		}
	})

	t.Run("with result", func(t *testing.T) {
		res := &Result{
			Warnings: []Warning{{WarnUnresolvedPlaceholder, SectionBody, "nom"}},
			Document: &docx.Document{
				Page: docx.Page{Width: 11906, Height: 16838},
				Body: []docx.Block{&docx.Paragraph{Runs: []docx.Run{{Text: "Bonjour"}}}},
			},
		}
		out := dump(j, vars, res)
		for _, want := range []string{"Warnings: 1", "body: unresolved-placeholder: nom", "document page=11906x16838", "Bonjour"} {
			if !strings.Contains(out, want) {
				t.Errorf("dump() has no %q:\n%s", want, out)
			}
		}
	})
}

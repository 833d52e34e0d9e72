package convert

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"docgen/utils/debug"
	"docgen/variables"
)

// maxDumpText limits text shown for a single run or variable.
const maxDumpText = 80

// dump returns readable tree of job input and generation result. It exists
// solely for manual inspection of reports.
func dump(j *Job, vars variables.Variables, res *Result) string {
	tw := debug.NewTreeWriter()
	tw.MaxText = maxDumpText

	tw.Node(0, "job", "name", j.Name, "type", j.Template.Type, "title", j.Template.Title)
	if len(vars) > 0 {
		tw.Line(1, "Variables: %d", len(vars))
		keys := slices.Collect(maps.Keys(vars))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			v := vars[k]
			tw.TextBlock(2, k+" ("+v.Kind().String()+")", v.String())
		}
	}
	if res == nil {
		return tw.String()
	}

	if len(res.Warnings) > 0 {
		tw.Line(1, "Warnings: %d", len(res.Warnings))
		for _, w := range res.Warnings {
			tw.Line(2, "%s", w)
		}
	}
	out := tw.String()
	if res.Document != nil {
		out += "\n" + res.Document.Dump(maxDumpText)
	}
	return out
}

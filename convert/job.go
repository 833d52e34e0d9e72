package convert

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"docgen/variables"
)

// Job is a single document to generate: template and variables to fill it
// with. Job files are YAML, one file may hold several jobs as separate
// documents.
type Job struct {
	// Name is used for output file name, source file name when empty.
	Name      string              `yaml:"name"`
	Template  Template            `yaml:"template"`
	Variables variables.Variables `yaml:"variables"`
}

// isJobFile checks file name extension only, content is validated when
// decoded.
func isJobFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// decodeJobs reads every YAML document from r. Unknown keys are errors, they
// are usually misspelled template fields.
func decodeJobs(r io.Reader) ([]Job, error) {
	dec := yaml.NewDecoder(selectReader(r))
	dec.KnownFields(true)

	var jobs []Job
	for i := 0; ; i++ {
		var j Job
		err := dec.Decode(&j)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs = append(jobs, j)
	}
	if len(jobs) == 0 {
		return nil, errors.New("no jobs found")
	}
	return jobs, nil
}

// override returns job variables with extra values replacing existing ones.
func (j *Job) override(extra variables.Variables) variables.Variables {
	if len(extra) == 0 {
		return j.Variables
	}
	vars := make(variables.Variables, len(j.Variables)+len(extra))
	for k, v := range j.Variables {
		vars[k] = v
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

// Package jobconfig loads a declarative YAML file of scheduler job
// definitions, the Go-native replacement for the Tcl scripts that used
// to create jobs at startup.
package jobconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// JobDef is one entry in the bootstrap file.
type JobDef struct {
	Name       string   `yaml:"name"`
	Interval   Duration `yaml:"interval"`
	Iterations int      `yaml:"iterations"`
	Tags       []string `yaml:"tags"`
	Hook       string   `yaml:"hook"`
}

// Duration lets the YAML file use "30s"-style strings instead of raw
// nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("jobconfig: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// File is the root of the bootstrap document.
type File struct {
	Jobs []JobDef `yaml:"jobs"`
}

// Load reads and parses a job bootstrap file. An empty path is not an
// error; it yields an empty File so callers can treat bootstrap jobs
// as optional.
func Load(path string) (File, error) {
	if path == "" {
		return File{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("jobconfig: read %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("jobconfig: parse %q: %w", path, err)
	}

	for i, j := range f.Jobs {
		if j.Name == "" {
			return File{}, fmt.Errorf("jobconfig: job at index %d missing name", i)
		}
		if j.Hook == "" {
			return File{}, fmt.Errorf("jobconfig: job %q missing hook", j.Name)
		}
	}

	return f, nil
}

// Package settings holds the optional CLI-level build settings file. Unlike
// pyproject.toml, which belongs to the project being packaged, this file
// configures the invocation: where artifacts go, which targets to build and
// overrides that do not belong in the project configuration.
package settings

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Settings is the root of the settings file.
type Settings struct {
	// Directory receives the built artifacts. Relative paths resolve
	// against the project root.
	Directory string `json:"directory,omitempty"`

	// Targets selects what to build: "standard", "editable" or both.
	Targets []string `json:"targets,omitempty"`

	// Reproducible overrides the project's reproducible option when set.
	Reproducible *bool `json:"reproducible,omitempty"`

	// PythonVersion pins the CPython version assumed for inferred tags.
	PythonVersion string `json:"python-version,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

func Default() *Settings {
	return &Settings{
		Directory: "dist",
		Targets:   []string{"standard"},
	}
}

func ParseFile(filename string) (*Settings, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", filename, err)
	}
	return Parse(bs)
}

func Parse(bs []byte) (*Settings, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}

	s := Default()
	if err := yaml.Unmarshal(bs, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if len(s.Targets) == 0 {
		s.Targets = []string{"standard"}
	}
	for _, target := range s.Targets {
		if target != "standard" && target != "editable" {
			return nil, fmt.Errorf("unknown build target %q", target)
		}
	}
	return s, nil
}

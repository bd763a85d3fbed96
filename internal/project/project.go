package project

import (
	"fmt"
	"regexp"
	"strings"
)

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// Metadata carries the project table fields the wheel builder consumes. The
// raw name is preserved for diagnostics and non-strict naming; Name holds the
// normalized form.
type Metadata struct {
	RawName        string
	Name           string
	Version        string
	RequiresPython string
	Dependencies   []string
	Scripts        map[string]string
	GUIScripts     map[string]string
	EntryPoints    map[string]map[string]string

	constraint *Constraint
}

func NewMetadata(rawName, version string) (*Metadata, error) {
	if rawName == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if version == "" {
		return nil, fmt.Errorf("project %q has no version", rawName)
	}

	return &Metadata{
		RawName: rawName,
		Name:    NormalizeName(rawName),
		Version: version,
	}, nil
}

// SetRequiresPython parses and stores the requires-python constraint.
func (m *Metadata) SetRequiresPython(constraint string) error {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return fmt.Errorf("field `project.requires-python` is invalid: %w", err)
	}
	m.RequiresPython = constraint
	m.constraint = c
	return nil
}

// PythonConstraint returns the parsed requires-python constraint. An empty
// constraint matches every version.
func (m *Metadata) PythonConstraint() *Constraint {
	if m.constraint == nil {
		return &Constraint{}
	}
	return m.constraint
}

// ID returns the {name}-{version} identifier used for the archive filename
// and the metadata directory, with filename-safe separators.
func (m *Metadata) ID() string {
	return fmt.Sprintf("%s-%s", strings.ReplaceAll(m.Name, "-", "_"), m.Version)
}

// RawID is the identifier variant used when strict naming is disabled.
func (m *Metadata) RawID() string {
	return fmt.Sprintf("%s-%s", nameSeparators.ReplaceAllString(m.RawName, "_"), m.Version)
}

// NormalizeName lowercases the project name and collapses runs of separator
// characters, following the PyPI name normalization rules.
func NormalizeName(name string) string {
	return strings.ToLower(nameSeparators.ReplaceAllString(name, "-"))
}

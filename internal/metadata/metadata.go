// Package metadata renders the METADATA member of a wheel for each
// supported core metadata version.
package metadata

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/project"
)

// DefaultVersion is the core metadata version used when none is configured.
const DefaultVersion = "2.4"

// Constructor renders a complete core metadata document.
type Constructor func(m *project.Metadata, dependencies []string) string

var constructors = map[string]Constructor{
	"2.1": render("2.1"),
	"2.2": render("2.2"),
	"2.3": render("2.3"),
	"2.4": render("2.4"),
}

// Versions returns the supported metadata versions in ascending order.
func Versions() []string {
	return slices.Sorted(maps.Keys(constructors))
}

// Render produces the metadata document for the given version. The field
// argument names the configuration option in the unknown-version error.
func Render(version, field string, m *project.Metadata, dependencies []string) (string, error) {
	constructor, ok := constructors[version]
	if !ok {
		return "", fmt.Errorf("unknown metadata version `%s` for field `%s`. Available: %s",
			version, field, strings.Join(Versions(), ", "))
	}
	return constructor(m, dependencies), nil
}

func render(version string) Constructor {
	return func(m *project.Metadata, dependencies []string) string {
		var b strings.Builder
		fmt.Fprintf(&b, "Metadata-Version: %s\n", version)
		fmt.Fprintf(&b, "Name: %s\n", m.RawName)
		fmt.Fprintf(&b, "Version: %s\n", m.Version)
		if m.RequiresPython != "" {
			fmt.Fprintf(&b, "Requires-Python: %s\n", m.RequiresPython)
		}
		for _, dep := range dedupe(dependencies) {
			fmt.Fprintf(&b, "Requires-Dist: %s\n", dep)
		}
		return b.String()
	}
}

func dedupe(dependencies []string) []string {
	out := slices.Clone(dependencies)
	slices.Sort(out)
	return slices.Compact(out)
}

package wheel

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/build"
	"github.com/wheelsmith/wheelsmith/internal/fs"
	"github.com/wheelsmith/wheelsmith/internal/project"
)

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// LayoutErr is raised when no explicit file selection is configured and none
// of the project layout heuristics matched.
type LayoutErr struct {
	RawName        string
	NormalizedName string
}

func (err *LayoutErr) Error() string {
	return fmt.Sprintf(
		"unable to determine which files to ship inside the wheel using the following heuristics: "+
			"https://hatch.pypa.io/latest/plugins/builder/wheel/#default-file-selection\n\n"+
			"The most likely cause of this is that there is no directory that matches the name of your "+
			"project (%s or %s).\n\n"+
			"At least one file selection option must be defined in the `tool.hatch.build.targets.wheel` "+
			"table, see: https://hatch.pypa.io/latest/config/build/\n\n"+
			"As an example, if you intend to ship a directory named `foo` that resides within a `src` "+
			"directory located at the root of your project, you can define the following:\n\n"+
			"[tool.hatch.build.targets.wheel]\npackages = [\"src/foo\"]",
		err.RawName, err.NormalizedName)
}

// Selection is the resolved file selection for one build.
type Selection struct {
	Include      *fs.Filter
	Exclude      *fs.Filter
	Artifacts    *fs.Filter
	Packages     []string
	OnlyInclude  []string
	OnlyPackages bool

	// Defaulted records whether the packages/only-include values came from
	// layout detection rather than explicit configuration.
	Defaulted bool
}

// ResolveSelection combines explicit configuration with the layout
// heuristics. Any explicit selection option, including hook-provided
// artifacts or force-include entries, suppresses the heuristics entirely;
// so does bypass-selection.
func (c *Config) ResolveSelection(m *project.Metadata, data *build.Data) (*Selection, error) {
	include, exclude, artifacts, err := c.Filters()
	if err != nil {
		return nil, err
	}

	packages, err := c.Packages()
	if err != nil {
		return nil, err
	}
	onlyInclude, err := c.OnlyInclude()
	if err != nil {
		return nil, err
	}
	forceInclude, err := c.ForceInclude()
	if err != nil {
		return nil, err
	}
	bypass, err := c.BypassSelection()
	if err != nil {
		return nil, err
	}
	onlyPackages, err := c.OnlyPackages()
	if err != nil {
		return nil, err
	}

	sel := &Selection{
		Include:      include,
		Exclude:      exclude,
		Artifacts:    artifacts,
		Packages:     packages,
		OnlyInclude:  onlyInclude,
		OnlyPackages: onlyPackages,
	}

	explicit := include.Len() > 0 || artifacts.Len() > 0 ||
		len(packages) > 0 || len(onlyInclude) > 0 ||
		forceInclude.Len() > 0 || len(data.Artifacts) > 0 || data.ForceInclude.Len() > 0

	if bypass || explicit {
		return sel, nil
	}

	defaultPackages, defaultOnlyInclude, err := detectLayout(c.build.Root, m)
	if err != nil {
		return nil, err
	}
	sel.Packages = defaultPackages
	sel.OnlyInclude = defaultOnlyInclude
	sel.Defaulted = true
	return sel, nil
}

// detectLayout probes the documented project layouts in order: a package
// directory named after the project at the root (flat), the same under src/
// (src layout), a single top-level module file, and finally a lone namespace
// directory containing a package named after the project.
func detectLayout(root string, m *project.Metadata) (packages, onlyInclude []string, err error) {
	for _, name := range candidateNames(m) {
		if fs.FileExists(filepath.Join(root, name, "__init__.py")) {
			return []string{name}, nil, nil
		}
		if fs.FileExists(filepath.Join(root, "src", name, "__init__.py")) {
			return []string{"src/" + name}, nil, nil
		}
		if fs.FileExists(filepath.Join(root, name+".py")) {
			return nil, []string{name + ".py"}, nil
		}

		dirs, err := fs.Subdirectories(root)
		if err != nil {
			return nil, nil, err
		}
		var namespaces []string
		for _, dir := range dirs {
			if fs.FileExists(filepath.Join(root, dir, name, "__init__.py")) {
				namespaces = append(namespaces, dir)
			}
		}
		if len(namespaces) == 1 {
			return []string{namespaces[0]}, nil, nil
		}
	}

	return nil, nil, &LayoutErr{RawName: m.RawName, NormalizedName: m.Name}
}

// candidateNames returns the directory/module names probed for the project,
// normalized first and the raw spelling second when it differs.
func candidateNames(m *project.Metadata) []string {
	normalized := strings.ReplaceAll(m.Name, "-", "_")
	raw := nameSeparators.ReplaceAllString(m.RawName, "_")
	if raw == normalized {
		return []string{normalized}
	}
	return []string{normalized, raw}
}

// Selects reports whether the root-relative path belongs in the wheel,
// before force-include and artifact overrides are applied.
func (s *Selection) Selects(relpath string) bool {
	if s.Exclude.Match(relpath) {
		return s.Artifacts.Match(relpath)
	}

	if len(s.OnlyInclude) > 0 {
		for _, prefix := range s.OnlyInclude {
			if relpath == prefix || strings.HasPrefix(relpath, prefix+"/") {
				return true
			}
		}
		return s.Artifacts.Match(relpath)
	}

	if s.underPackage(relpath) {
		return true
	}
	if s.OnlyPackages {
		return s.Artifacts.Match(relpath)
	}
	if s.Include.Match(relpath) || s.Artifacts.Match(relpath) {
		return true
	}

	// With no selection options at all, only the detected layout ships.
	return false
}

func (s *Selection) underPackage(relpath string) bool {
	for _, pkg := range s.Packages {
		pkg = strings.Trim(pkg, "/")
		if relpath == pkg || strings.HasPrefix(relpath, pkg+"/") {
			return true
		}
	}
	return false
}

package wheel

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/archive"
	"github.com/wheelsmith/wheelsmith/internal/build"
	"github.com/wheelsmith/wheelsmith/internal/config"
)

// editablesDependency is added to editable wheels built in exact mode, whose
// redirection module relies on it at import time.
const editablesDependency = "editables~=0.5"

// ErrSourcesRewriteEditable rejects editable builds whose `sources` option
// renames a path prefix. Import redirection can drop a prefix but has no way
// to express a rename.
var ErrSourcesRewriteEditable = fmt.Errorf(
	"dev mode installations are unsupported when any path rewrite in the `sources` option " +
		"changes a prefix rather than removes it, see: https://github.com/pfmoore/editables/issues/20")

// writeEditableContents emits the redirection members of an editable wheel:
// either a pth file extending the import path with source directories, or,
// in exact mode, a per-module redirection table. Forced inclusions are
// copied verbatim, hook entries beating same-target static ones.
func (b *Builder) writeEditableContents(w *archive.Writer, data *build.Data, id string) error {
	sel, err := b.config.ResolveSelection(b.metadata, data)
	if err != nil {
		return err
	}
	rewrites, err := b.config.Sources(sel.Packages)
	if err != nil {
		return err
	}
	for _, r := range rewrites {
		if r.Replacement != "" {
			return ErrSourcesRewriteEditable
		}
	}

	moduleName := strings.ReplaceAll(b.metadata.Name, "-", "_")

	devModeDirs, err := b.config.DevModeDirs()
	if err != nil {
		return err
	}
	exact, err := b.config.DevModeExact()
	if err != nil {
		return err
	}

	switch {
	case len(devModeDirs) > 0:
		content := directoryListing(b.config.Root(), devModeDirs)
		if err := w.WriteData("_"+moduleName+".pth", 0o644, []byte(content)); err != nil {
			return err
		}
	case exact:
		data.Dependencies = append(data.Dependencies, editablesDependency)
		impl := "_editable_impl_" + moduleName
		if err := w.WriteData(impl+".py", 0o644, []byte(b.redirectionModule(sel))); err != nil {
			return err
		}
		if err := w.WriteData("_"+moduleName+".pth", 0o644, []byte("import "+impl+"\n")); err != nil {
			return err
		}
	default:
		content := directoryListing(b.config.Root(), packageParents(sel.Packages))
		if err := w.WriteData("_"+moduleName+".pth", 0o644, []byte(content)); err != nil {
			return err
		}
	}

	static, err := b.config.ForceInclude()
	if err != nil {
		return err
	}
	forced, err := build.MergeForceInclude(static, data.ForceIncludeEditable)
	if err != nil {
		return err
	}
	mapping := config.NewPathMap()
	if err := b.appendForced(mapping, forced); err != nil {
		return err
	}
	var failed error
	mapping.Items(func(target, source string) bool {
		failed = w.WriteFile(target, source)
		return failed == nil
	})
	return failed
}

// packageParents returns the unique parent directories of the selected
// packages, relative to the project root. With no packages the root itself
// is the import path entry.
func packageParents(packages []string) []string {
	if len(packages) == 0 {
		return []string{"."}
	}
	var parents []string
	for _, pkg := range packages {
		parent := filepath.ToSlash(filepath.Dir(strings.Trim(pkg, "/")))
		if !slices.Contains(parents, parent) {
			parents = append(parents, parent)
		}
	}
	slices.Sort(parents)
	return parents
}

// directoryListing renders pth content: one absolute directory per line.
func directoryListing(root string, dirs []string) string {
	var sb strings.Builder
	for _, dir := range dirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		sb.WriteString(filepath.Clean(dir))
		sb.WriteString("\n")
	}
	return sb.String()
}

// redirectionModule renders the exact-mode redirection table mapping each
// top-level module or package to its real source path.
func (b *Builder) redirectionModule(sel *Selection) string {
	type entry struct{ module, path string }
	var entries []entry

	for _, pkg := range sel.Packages {
		pkg = strings.Trim(pkg, "/")
		module := pkg[strings.LastIndex(pkg, "/")+1:]
		entries = append(entries, entry{
			module: module,
			path:   filepath.Join(b.config.Root(), filepath.FromSlash(pkg), "__init__.py"),
		})
	}
	for _, only := range sel.OnlyInclude {
		if strings.HasSuffix(only, ".py") && !strings.Contains(only, "/") {
			entries = append(entries, entry{
				module: strings.TrimSuffix(only, ".py"),
				path:   filepath.Join(b.config.Root(), only),
			})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.module, b.module) })

	var sb strings.Builder
	sb.WriteString("from editables.redirector import RedirectingFinder as F\n")
	sb.WriteString("F.install()\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "F.map_module(%q, %q)\n", e.module, e.path)
	}
	return sb.String()
}

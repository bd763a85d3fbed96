package wheel

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/config"
	"github.com/wheelsmith/wheelsmith/internal/fs"
	"github.com/wheelsmith/wheelsmith/internal/metadata"
)

// Config resolves wheel target options lazily so that a type error surfaces
// on first access of the dependent option, naming its exact field path.
type Config struct {
	build *config.Build
}

func NewConfig(build *config.Build) *Config {
	return &Config{build: build}
}

func (c *Config) Root() string {
	return c.build.Root
}

func (c *Config) Include() ([]string, error) {
	return c.build.StringList("include", "Pattern")
}

func (c *Config) Exclude() ([]string, error) {
	return c.build.StringList("exclude", "Pattern")
}

func (c *Config) Packages() ([]string, error) {
	return c.build.StringList("packages", "Package")
}

func (c *Config) OnlyInclude() ([]string, error) {
	paths, err := c.build.StringList("only-include", "Path")
	if err != nil {
		return nil, err
	}
	for i, p := range paths {
		paths[i] = strings.Trim(p, "/")
	}
	return paths, nil
}

func (c *Config) Artifacts() ([]string, error) {
	return c.build.StringList("artifacts", "Pattern")
}

func (c *Config) Dependencies() ([]string, error) {
	return c.build.StringList("dependencies", "Dependency")
}

func (c *Config) ForceInclude() (*config.PathMap, error) {
	return c.build.PathMapOption("force-include")
}

func (c *Config) BypassSelection() (bool, error) {
	return c.build.TargetBool("bypass-selection", false)
}

func (c *Config) OnlyPackages() (bool, error) {
	return c.build.Bool("only-packages", false)
}

func (c *Config) Reproducible() (bool, error) {
	return c.build.Bool("reproducible", true)
}

func (c *Config) StrictNaming() (bool, error) {
	return c.build.Bool("strict-naming", true)
}

func (c *Config) MacOSMaxCompat() (bool, error) {
	return c.build.TargetBool("macos-max-compat", true)
}

func (c *Config) DevModeExact() (bool, error) {
	return c.build.TargetBool("dev-mode-exact", false)
}

func (c *Config) DevModeDirs() ([]string, error) {
	value, path, ok := c.build.TargetLookup("dev-mode-dirs")
	if !ok {
		return nil, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("field `%s` must be an array of strings", path)
	}
	dirs := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("directory #%d in field `%s` must be a string", i+1, path)
		}
		if s == "" {
			return nil, fmt.Errorf("directory #%d in field `%s` cannot be an empty string", i+1, path)
		}
		dirs = append(dirs, s)
	}
	return dirs, nil
}

func (c *Config) CoreMetadataVersion() (string, error) {
	value, path, ok := c.build.TargetLookup("core-metadata-version")
	if !ok {
		return metadata.DefaultVersion, nil
	}
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field `%s` must be a string", path)
	}
	return v, nil
}

// RequireRuntimeDependencies controls whether project dependencies land in
// the METADATA Requires-Dist list.
func (c *Config) RequireRuntimeDependencies() (bool, error) {
	return c.build.Bool("require-runtime-dependencies", true)
}

// BuildNumber is the optional wheel build tag; it becomes an extra filename
// segment and a Build line in the WHEEL descriptor.
func (c *Config) BuildNumber() (string, error) {
	value, path, ok := c.build.TargetLookup("build-number")
	if !ok {
		return "", nil
	}
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field `%s` must be a string", path)
	}
	return v, nil
}

// PythonVersion optionally pins the CPython version used for inferred tags.
func (c *Config) PythonVersion() (string, error) {
	return c.build.String("python-version", "")
}

func (c *Config) SharedData() (*config.PathMap, error) {
	m, err := c.build.PathMapOption("shared-data")
	if err != nil {
		return nil, err
	}
	return c.normalizeShared(m), nil
}

func (c *Config) SharedScripts() (*config.PathMap, error) {
	m, err := c.build.PathMapOption("shared-scripts")
	if err != nil {
		return nil, err
	}
	return c.normalizeShared(m), nil
}

func (c *Config) ExtraMetadata() (*config.PathMap, error) {
	m, err := c.build.PathMapOption("extra-metadata")
	if err != nil {
		return nil, err
	}
	return c.normalizeShared(m), nil
}

// normalizeShared resolves relative sources against the project root, strips
// separators off targets, and orders entries by target so archive members
// are deterministic regardless of declaration order.
func (c *Config) normalizeShared(m *config.PathMap) *config.PathMap {
	type entry struct{ source, target string }
	var entries []entry
	m.Items(func(source, target string) bool {
		if !filepath.IsAbs(source) {
			source = filepath.Join(c.build.Root, source)
		}
		entries = append(entries, entry{source: source, target: strings.Trim(target, "/")})
		return true
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].target < entries[j].target })

	out := config.NewPathMap()
	for _, e := range entries {
		out.Set(e.source, e.target)
	}
	return out
}

// Rewrite strips or replaces a path prefix when computing a file's location
// inside the archive.
type Rewrite struct {
	Prefix      string
	Replacement string
}

// Sources returns the path rewrite rules: explicit `sources` entries (map or
// list form) followed by the implicit parent-stripping rules derived from
// the packages option.
func (c *Config) Sources(packages []string) ([]Rewrite, error) {
	var rewrites []Rewrite

	if value, path, ok := c.build.Lookup("sources"); ok {
		switch v := value.(type) {
		case map[string]any:
			// An empty replacement is meaningful here (strip the prefix), so
			// the option cannot reuse the shared path map decoding.
			for i, source := range slices.Sorted(maps.Keys(v)) {
				if source == "" {
					return nil, fmt.Errorf("source #%d in field `%s` cannot be an empty string", i+1, path)
				}
				target, ok := v[source].(string)
				if !ok {
					return nil, fmt.Errorf("path for source `%s` in field `%s` must be a string", source, path)
				}
				rewrites = append(rewrites, Rewrite{
					Prefix:      strings.Trim(source, "/"),
					Replacement: strings.Trim(target, "/"),
				})
			}
		case []any:
			for i, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("source #%d in field `%s` must be a string", i+1, path)
				}
				if s == "" {
					return nil, fmt.Errorf("source #%d in field `%s` cannot be an empty string", i+1, path)
				}
				rewrites = append(rewrites, Rewrite{Prefix: strings.Trim(s, "/")})
			}
		default:
			return nil, fmt.Errorf("field `%s` must be a mapping or array of strings", path)
		}
	}

	for _, pkg := range packages {
		if parent := strings.Trim(filepath.ToSlash(filepath.Dir(pkg)), "./"); parent != "" {
			rewrites = append(rewrites, Rewrite{Prefix: parent})
		}
	}
	return rewrites, nil
}

// ApplyRewrites maps a root-relative path to its archive location using the
// first matching rewrite rule.
func ApplyRewrites(rewrites []Rewrite, relpath string) string {
	for _, r := range rewrites {
		if relpath == r.Prefix || strings.HasPrefix(relpath, r.Prefix+"/") {
			rest := strings.TrimPrefix(strings.TrimPrefix(relpath, r.Prefix), "/")
			if r.Replacement == "" {
				return rest
			}
			if rest == "" {
				return r.Replacement
			}
			return r.Replacement + "/" + rest
		}
	}
	return relpath
}

// Filters compiles the include, exclude and artifact pattern sets.
func (c *Config) Filters() (include, exclude, artifacts *fs.Filter, err error) {
	includePatterns, err := c.Include()
	if err != nil {
		return nil, nil, nil, err
	}
	excludePatterns, err := c.Exclude()
	if err != nil {
		return nil, nil, nil, err
	}
	artifactPatterns, err := c.Artifacts()
	if err != nil {
		return nil, nil, nil, err
	}

	include, err = fs.NewFilter(includePatterns, config.TargetFieldPrefix+".include")
	if err != nil {
		return nil, nil, nil, err
	}
	exclude, err = fs.NewFilter(excludePatterns, config.TargetFieldPrefix+".exclude")
	if err != nil {
		return nil, nil, nil, err
	}
	artifacts, err = fs.NewFilter(artifactPatterns, config.TargetFieldPrefix+".artifacts")
	if err != nil {
		return nil, nil, nil, err
	}
	return include, exclude, artifacts, nil
}

package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/wheelsmith/wheelsmith/internal/project"
)

const (
	// TargetFieldPrefix is the fully qualified path of wheel target options,
	// used verbatim in configuration error messages.
	TargetFieldPrefix = "tool.hatch.build.targets.wheel"

	// GlobalFieldPrefix is the path of the shared build options that target
	// options fall back to.
	GlobalFieldPrefix = "tool.hatch.build"
)

// Build is the parsed, untyped configuration for one wheel build. Typed
// option access happens lazily through the accessors below so that type
// errors name the exact field path of the offending option.
type Build struct {
	Root     string
	Metadata *project.Metadata

	global map[string]any
	target map[string]any
}

type rawProject struct {
	Name           string                       `mapstructure:"name"`
	Version        string                       `mapstructure:"version"`
	RequiresPython string                       `mapstructure:"requires-python"`
	Dependencies   []string                     `mapstructure:"dependencies"`
	Scripts        map[string]string            `mapstructure:"scripts"`
	GUIScripts     map[string]string            `mapstructure:"gui-scripts"`
	EntryPoints    map[string]map[string]string `mapstructure:"entry-points"`
}

// Load reads pyproject.toml from the project root. When a hatch.toml file
// exists next to it, its content is merged over the `tool.hatch` table, the
// dedicated file winning on conflicts.
func Load(root string) (*Build, error) {
	bs, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read project configuration: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(bs, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse pyproject.toml: %w", err)
	}

	hatch := table(table(raw, "tool"), "hatch")

	if bs, err := os.ReadFile(filepath.Join(root, "hatch.toml")); err == nil {
		var overlay map[string]any
		if err := toml.Unmarshal(bs, &overlay); err != nil {
			return nil, fmt.Errorf("failed to parse hatch.toml: %w", err)
		}
		hatch = Merge([]map[string]any{hatch, overlay})
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return New(root, raw, hatch)
}

// New assembles a Build from already-decoded tables. The hatch argument is
// the `tool.hatch` table after any hatch.toml overlay.
func New(root string, pyproject, hatch map[string]any) (*Build, error) {
	metadata, err := decodeProject(table(pyproject, "project"))
	if err != nil {
		return nil, err
	}

	global := table(hatch, "build")

	return &Build{
		Root:     root,
		Metadata: metadata,
		global:   global,
		target:   table(table(global, "targets"), "wheel"),
	}, nil
}

func decodeProject(tbl map[string]any) (*project.Metadata, error) {
	var raw rawProject
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &raw})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(tbl); err != nil {
		return nil, fmt.Errorf("failed to decode `project` table: %w", err)
	}

	metadata, err := project.NewMetadata(raw.Name, raw.Version)
	if err != nil {
		return nil, err
	}
	if raw.RequiresPython != "" {
		if err := metadata.SetRequiresPython(raw.RequiresPython); err != nil {
			return nil, err
		}
	}
	metadata.Dependencies = raw.Dependencies
	metadata.Scripts = raw.Scripts
	metadata.GUIScripts = raw.GUIScripts
	metadata.EntryPoints = raw.EntryPoints
	return metadata, nil
}

func table(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if t, ok := m[key].(map[string]any); ok {
		return t
	}
	return nil
}

// Lookup resolves an option by key, the wheel target table winning over the
// shared build table. The returned path is the fully qualified field path of
// the level that supplied the value.
func (b *Build) Lookup(key string) (value any, path string, ok bool) {
	if v, ok := b.target[key]; ok {
		return v, TargetFieldPrefix + "." + key, true
	}
	if v, ok := b.global[key]; ok {
		return v, GlobalFieldPrefix + "." + key, true
	}
	return nil, TargetFieldPrefix + "." + key, false
}

// TargetLookup resolves an option defined on the wheel target only.
func (b *Build) TargetLookup(key string) (value any, path string, ok bool) {
	v, ok := b.target[key]
	return v, TargetFieldPrefix + "." + key, ok
}

func (b *Build) Bool(key string, fallback bool) (bool, error) {
	value, path, ok := b.Lookup(key)
	if !ok {
		return fallback, nil
	}
	return decodeBool(value, path)
}

// TargetBool resolves a boolean defined on the wheel target only.
func (b *Build) TargetBool(key string, fallback bool) (bool, error) {
	value, path, ok := b.TargetLookup(key)
	if !ok {
		return fallback, nil
	}
	return decodeBool(value, path)
}

func decodeBool(value any, path string) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("field `%s` must be a boolean", path)
	}
	return v, nil
}

func (b *Build) String(key, fallback string) (string, error) {
	value, path, ok := b.Lookup(key)
	if !ok {
		return fallback, nil
	}
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field `%s` must be a string", path)
	}
	return v, nil
}

// StringList decodes an option that must be an array of strings. The noun
// names the items in error messages ("Pattern", "Package", "Source").
func (b *Build) StringList(key, noun string) ([]string, error) {
	value, path, ok := b.Lookup(key)
	if !ok {
		return nil, nil
	}
	return decodeStringList(value, path, noun)
}

func decodeStringList(value any, path, noun string) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("field `%s` must be an array of strings", path)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s #%d in field `%s` must be a string", noun, i+1, path)
		}
		if s == "" {
			return nil, fmt.Errorf("%s #%d in field `%s` cannot be an empty string", noun, i+1, path)
		}
		out = append(out, s)
	}
	return out, nil
}

// PathMapOption decodes a source to target mapping option. TOML tables do
// not preserve declaration order, so sources are iterated in sorted order to
// keep occurrence indices in error messages deterministic.
func (b *Build) PathMapOption(key string) (*PathMap, error) {
	value, path, ok := b.Lookup(key)
	if !ok {
		return NewPathMap(), nil
	}
	return decodePathMap(value, path)
}

func decodePathMap(value any, path string) (*PathMap, error) {
	tbl, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field `%s` must be a mapping", path)
	}

	m := NewPathMap()
	for i, source := range slices.Sorted(maps.Keys(tbl)) {
		if source == "" {
			return nil, fmt.Errorf("source #%d in field `%s` cannot be an empty string", i+1, path)
		}
		target, ok := tbl[source].(string)
		if !ok {
			return nil, fmt.Errorf("path for source `%s` in field `%s` must be a string", source, path)
		}
		if target == "" {
			return nil, fmt.Errorf("path for source `%s` in field `%s` cannot be an empty string", source, path)
		}
		m.Set(source, target)
	}
	return m, nil
}

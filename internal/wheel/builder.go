// Package wheel assembles Python wheel archives from a project source tree
// under declarative configuration.
package wheel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/archive"
	"github.com/wheelsmith/wheelsmith/internal/build"
	"github.com/wheelsmith/wheelsmith/internal/config"
	"github.com/wheelsmith/wheelsmith/internal/fs"
	"github.com/wheelsmith/wheelsmith/internal/logging"
	"github.com/wheelsmith/wheelsmith/internal/metadata"
	"github.com/wheelsmith/wheelsmith/internal/project"
	"github.com/wheelsmith/wheelsmith/internal/tags"
	"github.com/wheelsmith/wheelsmith/internal/version"
)

// Builder produces one wheel per Build invocation. Configure it with the
// fluent With* methods before building.
type Builder struct {
	config       *Config
	metadata     *project.Metadata
	env          tags.Environment
	hooks        []build.NamedHook
	log          *logging.Logger
	reproducible *bool
}

func NewBuilder(c *Config, m *project.Metadata) *Builder {
	return &Builder{
		config:   c,
		metadata: m,
		env:      tags.ReadEnvironment(),
		log:      logging.NewLogger(logging.Config{}),
	}
}

func (b *Builder) WithHooks(hooks []build.NamedHook) *Builder {
	b.hooks = hooks
	return b
}

func (b *Builder) WithEnvironment(env tags.Environment) *Builder {
	b.env = env
	return b
}

func (b *Builder) WithLogger(log *logging.Logger) *Builder {
	b.log = log
	return b
}

// WithReproducible overrides the project's reproducible option for this
// invocation.
func (b *Builder) WithReproducible(reproducible *bool) *Builder {
	b.reproducible = reproducible
	return b
}

// Build writes a standard wheel into the given directory and returns the
// artifact path.
func (b *Builder) Build(directory string) (string, error) {
	data := build.NewData()
	if err := build.NewPipeline(b.hooks, b.log).Run(b.metadata.Version, data); err != nil {
		return "", err
	}
	return b.write(directory, data, false)
}

// BuildEditable writes an editable wheel redirecting imports into the source
// tree instead of copying package files.
func (b *Builder) BuildEditable(directory string) (string, error) {
	data := build.NewData()
	if err := build.NewPipeline(b.hooks, b.log).Run(b.metadata.Version, data); err != nil {
		return "", err
	}
	return b.write(directory, data, true)
}

func (b *Builder) write(directory string, data *build.Data, editable bool) (string, error) {
	tag, err := b.resolveTag(data)
	if err != nil {
		return "", err
	}

	id, err := b.distributionID()
	if err != nil {
		return "", err
	}
	filename, err := b.filename(id, tag)
	if err != nil {
		return "", err
	}

	reproducible, err := b.config.Reproducible()
	if err != nil {
		return "", err
	}
	if b.reproducible != nil {
		reproducible = *b.reproducible
	}
	ts, err := archive.Timestamp(b.env.SourceDateEpoch, reproducible)
	if err != nil {
		return "", err
	}

	w, err := archive.NewWriter(directory, filename, ts)
	if err != nil {
		return "", err
	}
	if editable {
		err = b.writeEditableContents(w, data, id)
	} else {
		err = b.writeStandardContents(w, data, directory)
	}
	if err == nil {
		err = b.writeDistInfo(w, data, id, tag)
	}
	if err != nil {
		w.Abort()
		return "", err
	}

	path, err := w.Finalize()
	if err != nil {
		return "", err
	}
	b.log.Infof("built %s", path)
	return path, nil
}

func (b *Builder) writeStandardContents(w *archive.Writer, data *build.Data, directory string) error {
	mapping, err := b.resolveFileMapping(data, directory)
	if err != nil {
		return err
	}

	var failed error
	mapping.Items(func(target, source string) bool {
		if err := w.WriteFile(target, source); err != nil {
			failed = err
			return false
		}
		return true
	})
	return failed
}

// resolveFileMapping computes the ordered target to source mapping for a
// standard build: selected files in walk order, then force-include entries.
// Force-include wins target collisions, hook entries beating static ones.
// The output directory is excluded from the walk so the in-progress archive
// and previously built ones never select themselves.
func (b *Builder) resolveFileMapping(data *build.Data, directory string) (*config.PathMap, error) {
	sel, err := b.config.ResolveSelection(b.metadata, data)
	if err != nil {
		return nil, err
	}
	hookArtifacts, err := fs.NewFilter(data.Artifacts, config.TargetFieldPrefix+".artifacts")
	if err != nil {
		return nil, err
	}

	rewrites, err := b.config.Sources(sel.Packages)
	if err != nil {
		return nil, err
	}

	// Keyed by archive target; last writer for a target wins while the
	// first position is kept, matching force-include precedence.
	skip := outputPrefix(b.config.Root(), directory)
	mapping := config.NewPathMap()
	err = fs.WalkFiles(b.config.Root(), func(relpath, abspath string, _ os.FileInfo) error {
		if skip != "" && (relpath == skip || strings.HasPrefix(relpath, skip+"/")) {
			return nil
		}
		if sel.Selects(relpath) || hookArtifacts.Match(relpath) {
			mapping.Set(ApplyRewrites(rewrites, relpath), abspath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	static, err := b.config.ForceInclude()
	if err != nil {
		return nil, err
	}
	forced, err := build.MergeForceInclude(static, data.ForceInclude)
	if err != nil {
		return nil, err
	}
	if err := b.appendForced(mapping, forced); err != nil {
		return nil, err
	}
	return mapping, nil
}

// appendForced expands force-include entries into the mapping. A source
// directory contributes its whole tree under the target prefix.
func (b *Builder) appendForced(mapping, forced *config.PathMap) error {
	var failed error
	forced.Items(func(source, target string) bool {
		abspath := source
		if !filepath.IsAbs(abspath) {
			abspath = filepath.Join(b.config.Root(), source)
		}
		target = strings.Trim(target, "/")

		if fs.DirExists(abspath) {
			failed = fs.WalkFiles(abspath, func(relpath, sub string, _ os.FileInfo) error {
				name := relpath
				if target != "" {
					name = target + "/" + relpath
				}
				mapping.Set(name, sub)
				return nil
			})
		} else if fs.FileExists(abspath) {
			mapping.Set(target, abspath)
		} else {
			failed = fmt.Errorf("forced inclusion source %q does not exist", source)
		}
		return failed == nil
	})
	return failed
}

// outputPrefix returns the output directory as a root-relative slash path
// when it lives inside the project tree, empty otherwise.
func outputPrefix(root, directory string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ""
	}
	absDir, err := filepath.Abs(directory)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (b *Builder) resolveTag(data *build.Data) (string, error) {
	if data.Tag != "" {
		return data.Tag, nil
	}
	if data.InferTag {
		maxCompat, err := b.config.MacOSMaxCompat()
		if err != nil {
			return "", err
		}
		pythonVersion, err := b.config.PythonVersion()
		if err != nil {
			return "", err
		}
		return b.env.WithPythonVersion(pythonVersion).SysTag(maxCompat)
	}
	return tags.PureTag(b.metadata.PythonConstraint()), nil
}

func (b *Builder) distributionID() (string, error) {
	strict, err := b.config.StrictNaming()
	if err != nil {
		return "", err
	}
	if strict {
		return b.metadata.ID(), nil
	}
	return b.metadata.RawID(), nil
}

func (b *Builder) filename(id, tag string) (string, error) {
	buildNumber, err := b.config.BuildNumber()
	if err != nil {
		return "", err
	}
	if buildNumber != "" {
		return fmt.Sprintf("%s-%s-%s.whl", id, buildNumber, tag), nil
	}
	return fmt.Sprintf("%s-%s.whl", id, tag), nil
}

// writeDistInfo appends the shared data/scripts members, the dist-info
// metadata members and finally RECORD.
func (b *Builder) writeDistInfo(w *archive.Writer, data *build.Data, id, tag string) error {
	if err := b.writeShared(w, data, id); err != nil {
		return err
	}

	distInfo := id + ".dist-info"

	wheelFile, err := b.wheelDescriptor(data, tag)
	if err != nil {
		return err
	}
	if err := w.WriteData(distInfo+"/WHEEL", 0o644, []byte(wheelFile)); err != nil {
		return err
	}

	if entryPoints := EntryPointsFile(b.metadata); entryPoints != "" {
		if err := w.WriteData(distInfo+"/entry_points.txt", 0o644, []byte(entryPoints)); err != nil {
			return err
		}
	}

	metadataFile, err := b.coreMetadata(data)
	if err != nil {
		return err
	}
	if err := w.WriteData(distInfo+"/METADATA", 0o644, []byte(metadataFile)); err != nil {
		return err
	}

	extra, err := b.config.ExtraMetadata()
	if err != nil {
		return err
	}
	extra.Update(data.ExtraMetadata)
	if err := b.writeMapped(w, extra, distInfo+"/extra_metadata"); err != nil {
		return err
	}

	return w.WriteData(distInfo+"/RECORD", 0o644, []byte(recordFile(w.Records(), distInfo)))
}

func (b *Builder) writeShared(w *archive.Writer, data *build.Data, id string) error {
	sharedData, err := b.config.SharedData()
	if err != nil {
		return err
	}
	sharedData.Update(data.SharedData)
	if err := b.writeMapped(w, sharedData, id+".data/data"); err != nil {
		return err
	}

	sharedScripts, err := b.config.SharedScripts()
	if err != nil {
		return err
	}
	sharedScripts.Update(data.SharedScripts)
	return b.writeMapped(w, sharedScripts, id+".data/scripts")
}

// writeMapped copies a shared path map into the archive under prefix,
// expanding directory sources recursively. Entries are deduplicated by
// target first so each target yields exactly one member, the last declared
// source winning while the first declaration keeps its position.
func (b *Builder) writeMapped(w *archive.Writer, m *config.PathMap, prefix string) error {
	byTarget := config.NewPathMap()
	m.Items(func(source, target string) bool {
		byTarget.Set(strings.Trim(target, "/"), source)
		return true
	})

	var failed error
	byTarget.Items(func(target, source string) bool {
		abspath := source
		if !filepath.IsAbs(abspath) {
			abspath = filepath.Join(b.config.Root(), source)
		}
		// A target of "/" places the source at the prefix itself.
		dest := prefix
		if target != "" {
			dest = prefix + "/" + target
		}

		if fs.DirExists(abspath) {
			failed = fs.WalkFiles(abspath, func(relpath, sub string, _ os.FileInfo) error {
				return w.WriteFile(dest+"/"+relpath, sub)
			})
		} else {
			failed = w.WriteFile(dest, abspath)
		}
		return failed == nil
	})
	return failed
}

func (b *Builder) wheelDescriptor(data *build.Data, tag string) (string, error) {
	buildNumber, err := b.config.BuildNumber()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Wheel-Version: 1.0\n")
	fmt.Fprintf(&sb, "Generator: wheelsmith %s\n", version.Version)
	fmt.Fprintf(&sb, "Root-Is-Purelib: %t\n", data.PurePython)
	for _, expanded := range expandTag(tag) {
		fmt.Fprintf(&sb, "Tag: %s\n", expanded)
	}
	if buildNumber != "" {
		fmt.Fprintf(&sb, "Build: %s\n", buildNumber)
	}
	return sb.String(), nil
}

// expandTag splits a compressed tag like py2.py3-none-any into its concrete
// combinations, one Tag line each.
func expandTag(tag string) []string {
	parts := strings.SplitN(tag, "-", 3)
	if len(parts) != 3 {
		return []string{tag}
	}
	var out []string
	for _, python := range strings.Split(parts[0], ".") {
		for _, abi := range strings.Split(parts[1], ".") {
			for _, platform := range strings.Split(parts[2], ".") {
				out = append(out, fmt.Sprintf("%s-%s-%s", python, abi, platform))
			}
		}
	}
	return out
}

func (b *Builder) coreMetadata(data *build.Data) (string, error) {
	metadataVersion, err := b.config.CoreMetadataVersion()
	if err != nil {
		return "", err
	}

	var dependencies []string
	includeRuntime, err := b.config.RequireRuntimeDependencies()
	if err != nil {
		return "", err
	}
	if includeRuntime {
		dependencies = append(dependencies, b.metadata.Dependencies...)
	}
	extra, err := b.config.Dependencies()
	if err != nil {
		return "", err
	}
	dependencies = append(dependencies, extra...)
	dependencies = append(dependencies, data.Dependencies...)

	return metadata.Render(metadataVersion, config.TargetFieldPrefix+".core-metadata-version",
		b.metadata, dependencies)
}

// recordFile renders the RECORD manifest: one line per member in write
// order, RECORD itself last with empty digest and size.
func recordFile(records []archive.Record, distInfo string) string {
	var sb strings.Builder
	for _, r := range records {
		fmt.Fprintf(&sb, "%s,sha256=%s,%d\n", r.Path, r.Digest, r.Size)
	}
	fmt.Fprintf(&sb, "%s/RECORD,,\n", distInfo)
	return sb.String()
}

// Package build defines the mutable record threaded through the build hook
// pipeline and the pipeline itself.
package build

import (
	"fmt"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/config"
	"github.com/wheelsmith/wheelsmith/internal/logging"
)

// Data is created fresh per build invocation and passed by reference to
// every hook. Hooks may mutate any field; the archive writer and tag
// resolver consume the result after the pipeline completes.
type Data struct {
	Artifacts            []string
	ForceInclude         *config.PathMap
	ForceIncludeEditable *config.PathMap
	SharedData           *config.PathMap
	SharedScripts        *config.PathMap
	ExtraMetadata        *config.PathMap
	Dependencies         []string
	PurePython           bool
	InferTag             bool
	Tag                  string

	// BuildHooks lists the names of the hooks that have already run. Later
	// hooks may read it but must not modify it.
	BuildHooks []string
}

func NewData() *Data {
	return &Data{
		ForceInclude:         config.NewPathMap(),
		ForceIncludeEditable: config.NewPathMap(),
		SharedData:           config.NewPathMap(),
		SharedScripts:        config.NewPathMap(),
		ExtraMetadata:        config.NewPathMap(),
		PurePython:           true,
	}
}

// Hook is the narrow contract build hooks implement. Initialize receives the
// resolved project version and the shared Data record and may mutate it.
type Hook interface {
	Initialize(version string, data *Data) error
}

// NamedHook pairs a hook with its configured name for diagnostics and for
// the Data.BuildHooks record.
type NamedHook struct {
	Name string
	Hook Hook
}

// Pipeline runs hooks sequentially in configuration order. Any hook error
// aborts the build; the caller guarantees no partial artifact survives.
type Pipeline struct {
	hooks []NamedHook
	log   *logging.Logger
}

func NewPipeline(hooks []NamedHook, log *logging.Logger) *Pipeline {
	return &Pipeline{hooks: hooks, log: log}
}

func (p *Pipeline) Run(version string, data *Data) error {
	for _, h := range p.hooks {
		p.log.Debugf("running build hook %q", h.Name)
		if err := h.Hook.Initialize(version, data); err != nil {
			return fmt.Errorf("build hook %q failed: %w", h.Name, err)
		}
		data.BuildHooks = append(data.BuildHooks, h.Name)
	}
	return nil
}

// OverlappingTargetErr reports a force-include collision where a statically
// configured target and a hook-provided target are nested inside each other
// rather than equal, leaving no defined precedence.
type OverlappingTargetErr struct {
	Static string
	Hook   string
}

func (err *OverlappingTargetErr) Error() string {
	return fmt.Sprintf(
		"force-include target %q overlaps hook-provided target %q; make the targets equal or disjoint",
		err.Static, err.Hook)
}

// MergeForceInclude overlays hook-provided force-include entries onto the
// static configuration. A target present in both resolves to the hook value.
// Targets that overlap as parent and child directories are rejected.
func MergeForceInclude(static, hook *config.PathMap) (*config.PathMap, error) {
	staticTargets := map[string]string{} // target -> source
	static.Items(func(source, target string) bool {
		staticTargets[target] = source
		return true
	})

	var overlap *OverlappingTargetErr
	hook.Items(func(_, hookTarget string) bool {
		for staticTarget := range staticTargets {
			if staticTarget == hookTarget {
				continue
			}
			if nested(staticTarget, hookTarget) {
				overlap = &OverlappingTargetErr{Static: staticTarget, Hook: hookTarget}
				return false
			}
		}
		return true
	})
	if overlap != nil {
		return nil, overlap
	}

	merged := config.NewPathMap()
	static.Items(func(source, target string) bool {
		if _, replaced := hookTargetSource(hook, target); !replaced {
			merged.Set(source, target)
		}
		return true
	})
	hook.Items(func(source, target string) bool {
		merged.Set(source, target)
		return true
	})
	return merged, nil
}

func hookTargetSource(m *config.PathMap, target string) (string, bool) {
	var source string
	var found bool
	m.Items(func(s, t string) bool {
		if t == target {
			source, found = s, true
			return false
		}
		return true
	})
	return source, found
}

func nested(a, b string) bool {
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

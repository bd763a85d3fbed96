package fs

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// Filter matches slash-separated, root-relative paths against a set of
// VCS-ignore style patterns. Patterns containing a separator anchor at the
// project root; bare patterns match any path component. A pattern that
// matches a directory matches everything beneath it.
type Filter struct {
	patterns []pattern
}

type pattern struct {
	raw    string
	g      glob.Glob
	rooted bool
}

// NewFilter pre-compiles the given patterns. The field argument names the
// configuration option in compile error messages.
func NewFilter(patterns []string, field string) (*Filter, error) {
	f := &Filter{}
	for _, raw := range patterns {
		p := pattern{raw: raw}
		text := strings.TrimSuffix(raw, "/")
		if strings.Contains(text, "/") {
			p.rooted = true
			text = strings.TrimPrefix(text, "/")
		}
		g, err := glob.Compile(text, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q in field `%s`: %w", raw, field, err)
		}
		p.g = g
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.patterns)
}

// Match reports whether the relative path, or any directory containing it,
// matches one of the patterns.
func (f *Filter) Match(relpath string) bool {
	if f == nil {
		return false
	}
	for _, p := range f.patterns {
		if p.matches(relpath) {
			return true
		}
	}
	return false
}

func (p pattern) matches(relpath string) bool {
	if p.rooted {
		for sub := relpath; sub != "."; sub = path.Dir(sub) {
			if p.g.Match(sub) {
				return true
			}
		}
		return false
	}
	for _, component := range strings.Split(relpath, "/") {
		if p.g.Match(component) {
			return true
		}
	}
	return false
}

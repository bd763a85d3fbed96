package project

import (
	"fmt"
	"strconv"
	"strings"
)

// Constraint is a parsed version specifier set ("<4,>=3.8", "==3.11.4", ...).
// Only release segments are understood, which is all the builder ever probes
// with. The zero value matches every version.
type Constraint struct {
	specs []specifier
}

type specifier struct {
	op       string
	version  []int
	wildcard bool // trailing .* on == or !=
	raw      string
}

// ParseConstraint parses a comma-separated specifier set.
func ParseConstraint(s string) (*Constraint, error) {
	c := &Constraint{}
	s = strings.TrimSpace(s)
	if s == "" {
		return c, nil
	}

	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		var op string
		for _, candidate := range []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"} {
			if strings.HasPrefix(clause, candidate) {
				op = candidate
				break
			}
		}
		if op == "" {
			return nil, fmt.Errorf("missing operator in version specifier %q", clause)
		}

		spec := specifier{op: op, raw: strings.TrimSpace(strings.TrimPrefix(clause, op))}
		if spec.raw == "" {
			return nil, fmt.Errorf("missing version in specifier %q", clause)
		}

		text := spec.raw
		if strings.HasSuffix(text, ".*") {
			if op != "==" && op != "!=" {
				return nil, fmt.Errorf("wildcard is only allowed with == or != in specifier %q", clause)
			}
			spec.wildcard = true
			text = strings.TrimSuffix(text, ".*")
		}

		if op != "===" {
			release, err := parseRelease(text)
			if err != nil {
				return nil, fmt.Errorf("invalid version in specifier %q: %w", clause, err)
			}
			spec.version = release
		}

		c.specs = append(c.specs, spec)
	}

	return c, nil
}

// Contains reports whether the given version satisfies every specifier.
func (c *Constraint) Contains(version string) bool {
	release, err := parseRelease(version)
	if err != nil {
		return false
	}

	for _, spec := range c.specs {
		if !spec.matches(release, version) {
			return false
		}
	}
	return true
}

func (s specifier) matches(release []int, raw string) bool {
	switch s.op {
	case "===":
		return raw == s.raw
	case "==":
		if s.wildcard {
			return hasReleasePrefix(release, s.version)
		}
		return compareRelease(release, s.version) == 0
	case "!=":
		if s.wildcard {
			return !hasReleasePrefix(release, s.version)
		}
		return compareRelease(release, s.version) != 0
	case "<":
		return compareRelease(release, s.version) < 0
	case "<=":
		return compareRelease(release, s.version) <= 0
	case ">":
		return compareRelease(release, s.version) > 0
	case ">=":
		return compareRelease(release, s.version) >= 0
	case "~=":
		// Compatible release: >= V and == V' where V' drops the final component.
		if compareRelease(release, s.version) < 0 {
			return false
		}
		if len(s.version) < 2 {
			return true
		}
		return hasReleasePrefix(release, s.version[:len(s.version)-1])
	}
	return false
}

func parseRelease(s string) ([]int, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	release := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid release segment %q", part)
		}
		release = append(release, n)
	}
	return release, nil
}

// compareRelease compares two release tuples, zero-padding the shorter one.
func compareRelease(a, b []int) int {
	for i := range max(len(a), len(b)) {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func hasReleasePrefix(release, prefix []int) bool {
	for i, n := range prefix {
		var x int
		if i < len(release) {
			x = release[i]
		}
		if x != n {
			return false
		}
	}
	return true
}

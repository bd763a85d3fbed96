// Package tags computes the interpreter/ABI/platform compatibility segment
// of a wheel filename.
package tags

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/project"
)

// DefaultPythonVersion is the CPython version assumed for inferred tags when
// none is configured.
const DefaultPythonVersion = "3.12"

// knownMajors are the Python major versions a pure tag may advertise.
var knownMajors = []int{2, 3}

// Environment captures the inputs the tag resolver and archive writer read
// from the process environment, read once per build and immutable afterward.
type Environment struct {
	OS              string
	Arch            string
	PythonVersion   string
	ArchFlags       string
	MacOSVersion    string
	SourceDateEpoch string
}

// ReadEnvironment snapshots the running platform and the relevant
// environment variables.
func ReadEnvironment() Environment {
	macos := os.Getenv("MACOSX_DEPLOYMENT_TARGET")
	if macos == "" {
		macos = "11.0"
	}
	return Environment{
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
		PythonVersion:   DefaultPythonVersion,
		ArchFlags:       os.Getenv("ARCHFLAGS"),
		MacOSVersion:    macos,
		SourceDateEpoch: os.Getenv("SOURCE_DATE_EPOCH"),
	}
}

// WithPythonVersion returns a copy targeting the given CPython version.
func (e Environment) WithPythonVersion(version string) Environment {
	if version != "" {
		e.PythonVersion = version
	}
	return e
}

// PythonTags returns the py{major} tags for every known major version the
// requires-python constraint admits. Each major is probed with two-component
// versions first, then three-component ones so exact pins like ==3.11.4
// still register their major version.
func PythonTags(c *project.Constraint) []string {
	var tags []string
	for _, major := range knownMajors {
		if supportsMajor(c, major) {
			tags = append(tags, fmt.Sprintf("py%d", major))
		}
	}
	return tags
}

func supportsMajor(c *project.Constraint, major int) bool {
	for minor := range 100 {
		if c.Contains(fmt.Sprintf("%d.%d", major, minor)) {
			return true
		}
	}
	for minor := range 100 {
		for patch := range 100 {
			if c.Contains(fmt.Sprintf("%d.%d.%d", major, minor, patch)) {
				return true
			}
		}
	}
	return false
}

// PureTag renders the default tag for pure-Python wheels, e.g.
// "py2.py3-none-any".
func PureTag(c *project.Constraint) string {
	pythonTags := PythonTags(c)
	if len(pythonTags) == 0 {
		pythonTags = []string{"py3"}
	}
	return strings.Join(pythonTags, ".") + "-none-any"
}

// SysTag returns the best-matching {interpreter}-{abi}-{platform} tag for
// the build environment. When maxCompat is set, macOS deployment targets of
// 11 or newer are rewritten to 10_16 for broad installer compatibility.
func (e Environment) SysTag(maxCompat bool) (string, error) {
	major, minor, err := splitVersion(e.PythonVersion)
	if err != nil {
		return "", fmt.Errorf("invalid python version %q: %w", e.PythonVersion, err)
	}
	interpreter := fmt.Sprintf("cp%d%d", major, minor)

	platform, err := e.platformTag(maxCompat)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", interpreter, interpreter, platform), nil
}

func (e Environment) platformTag(maxCompat bool) (string, error) {
	switch e.OS {
	case "linux":
		arch, err := linuxArch(e.Arch)
		if err != nil {
			return "", err
		}
		return "linux_" + arch, nil
	case "windows":
		switch e.Arch {
		case "amd64":
			return "win_amd64", nil
		case "arm64":
			return "win_arm64", nil
		case "386":
			return "win32", nil
		}
		return "", fmt.Errorf("unsupported windows architecture %q", e.Arch)
	case "darwin":
		return e.macOSPlatformTag(maxCompat)
	}
	return "", fmt.Errorf("unsupported platform %q", e.OS)
}

func linuxArch(arch string) (string, error) {
	switch arch {
	case "amd64":
		return "x86_64", nil
	case "arm64":
		return "aarch64", nil
	case "386":
		return "i686", nil
	case "arm":
		return "armv7l", nil
	case "ppc64le", "s390x", "riscv64":
		return arch, nil
	}
	return "", fmt.Errorf("unsupported linux architecture %q", arch)
}

func (e Environment) macOSPlatformTag(maxCompat bool) (string, error) {
	arch := "x86_64"
	if e.Arch == "arm64" {
		arch = "arm64"
	}

	// ARCHFLAGS overrides the native architecture. One recognized arch
	// substitutes; both together target the universal2 fat binary format.
	if archs := parseArchFlags(e.ArchFlags); len(archs) == 1 {
		arch = archs[0]
	} else if len(archs) == 2 {
		arch = "universal2"
	}

	major, minor, err := splitVersion(e.MacOSVersion)
	if err != nil {
		return "", fmt.Errorf("invalid macos deployment target %q: %w", e.MacOSVersion, err)
	}
	if major >= 11 {
		// Single-digit minor releases within a macOS major are equivalent
		// for tagging purposes.
		minor = 0
		if maxCompat {
			// The rewrite happens exactly once; 10_16 is the legacy alias
			// installers predating Big Sur understand.
			major, minor = 10, 16
		}
	}
	return fmt.Sprintf("macosx_%d_%d_%s", major, minor, arch), nil
}

func parseArchFlags(flags string) []string {
	fields := strings.Fields(flags)
	seen := map[string]bool{}
	var archs []string
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] != "-arch" {
			continue
		}
		arch := fields[i+1]
		if (arch == "x86_64" || arch == "arm64") && !seen[arch] {
			seen[arch] = true
			archs = append(archs, arch)
		}
	}
	return archs
}

func splitVersion(v string) (major, minor int, err error) {
	parts := strings.SplitN(v, ".", 3)
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	if len(parts) > 1 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, err
		}
	}
	return major, minor, nil
}

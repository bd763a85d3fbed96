package tags_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wheelsmith/wheelsmith/internal/project"
	"github.com/wheelsmith/wheelsmith/internal/tags"
)

func constraint(t *testing.T, s string) *project.Constraint {
	t.Helper()
	c, err := project.ParseConstraint(s)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPythonTags(t *testing.T) {
	cases := []struct {
		note       string
		constraint string
		exp        []string
	}{
		{note: "unconstrained", constraint: "", exp: []string{"py2", "py3"}},
		{note: "greater than three", constraint: ">3", exp: []string{"py3"}},
		{note: "minimum bound", constraint: ">=3.8", exp: []string{"py3"}},
		{note: "legacy only", constraint: "<3", exp: []string{"py2"}},
		{note: "three component pin", constraint: "==3.11.4", exp: []string{"py3"}},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			got := tags.PythonTags(constraint(t, tc.constraint))
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Fatalf("unexpected tags (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPureTag(t *testing.T) {
	cases := []struct {
		note       string
		constraint string
		exp        string
	}{
		{note: "unconstrained", constraint: "", exp: "py2.py3-none-any"},
		{note: "modern only", constraint: ">=3.8", exp: "py3-none-any"},
		{note: "exact three component pin", constraint: "==3.11.4", exp: "py3-none-any"},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			if got := tags.PureTag(constraint(t, tc.constraint)); got != tc.exp {
				t.Fatalf("expected %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestSysTag(t *testing.T) {
	cases := []struct {
		note      string
		env       tags.Environment
		maxCompat bool
		exp       string
	}{
		{
			note: "linux amd64",
			env:  tags.Environment{OS: "linux", Arch: "amd64", PythonVersion: "3.12"},
			exp:  "cp312-cp312-linux_x86_64",
		},
		{
			note: "linux arm64",
			env:  tags.Environment{OS: "linux", Arch: "arm64", PythonVersion: "3.11"},
			exp:  "cp311-cp311-linux_aarch64",
		},
		{
			note: "windows amd64",
			env:  tags.Environment{OS: "windows", Arch: "amd64", PythonVersion: "3.12"},
			exp:  "cp312-cp312-win_amd64",
		},
		{
			note:      "macos max compat downgrade",
			env:       tags.Environment{OS: "darwin", Arch: "arm64", PythonVersion: "3.12", MacOSVersion: "14.2"},
			maxCompat: true,
			exp:       "cp312-cp312-macosx_10_16_arm64",
		},
		{
			note: "macos without max compat",
			env:  tags.Environment{OS: "darwin", Arch: "arm64", PythonVersion: "3.12", MacOSVersion: "14.2"},
			exp:  "cp312-cp312-macosx_14_0_arm64",
		},
		{
			note: "macos pre big sur unchanged",
			env:  tags.Environment{OS: "darwin", Arch: "amd64", PythonVersion: "3.9", MacOSVersion: "10.15"},
			exp:  "cp39-cp39-macosx_10_15_x86_64",
		},
		{
			note: "archflags single arch substitution",
			env: tags.Environment{
				OS: "darwin", Arch: "arm64", PythonVersion: "3.12",
				MacOSVersion: "12.0", ArchFlags: "-arch x86_64",
			},
			exp: "cp312-cp312-macosx_12_0_x86_64",
		},
		{
			note: "archflags universal2",
			env: tags.Environment{
				OS: "darwin", Arch: "arm64", PythonVersion: "3.12",
				MacOSVersion: "12.0", ArchFlags: "-arch arm64 -arch x86_64",
			},
			exp: "cp312-cp312-macosx_12_0_universal2",
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			got, err := tc.env.SysTag(tc.maxCompat)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.exp {
				t.Fatalf("expected %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestSysTagErrors(t *testing.T) {
	if _, err := (tags.Environment{OS: "plan9", Arch: "amd64", PythonVersion: "3.12"}).SysTag(false); err == nil {
		t.Fatal("expected error for unsupported platform")
	}
	if _, err := (tags.Environment{OS: "linux", Arch: "amd64", PythonVersion: "three"}).SysTag(false); err == nil {
		t.Fatal("expected error for invalid python version")
	}
}

func TestWithPythonVersion(t *testing.T) {
	env := tags.Environment{OS: "linux", Arch: "amd64", PythonVersion: "3.12"}
	if got := env.WithPythonVersion("3.10").PythonVersion; got != "3.10" {
		t.Fatalf("expected override, got %q", got)
	}
	if got := env.WithPythonVersion("").PythonVersion; got != "3.12" {
		t.Fatalf("expected empty override to keep value, got %q", got)
	}
}

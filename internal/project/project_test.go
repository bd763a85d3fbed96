package project

import (
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		note string
		name string
		exp  string
	}{
		{note: "already normalized", name: "my-app", exp: "my-app"},
		{note: "uppercase", name: "MyApp", exp: "myapp"},
		{note: "dots and underscores", name: "My.App_Extra", exp: "my-app-extra"},
		{note: "separator runs collapse", name: "my__really--odd..name", exp: "my-really-odd-name"},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			if got := NormalizeName(tc.name); got != tc.exp {
				t.Fatalf("expected %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestMetadataIDs(t *testing.T) {
	m, err := NewMetadata("My.App", "0.1.0")
	if err != nil {
		t.Fatal(err)
	}
	if exp := "my_app-0.1.0"; m.ID() != exp {
		t.Fatalf("expected id %q, got %q", exp, m.ID())
	}
	if exp := "My_App-0.1.0"; m.RawID() != exp {
		t.Fatalf("expected raw id %q, got %q", exp, m.RawID())
	}
}

func TestNewMetadataErrors(t *testing.T) {
	if _, err := NewMetadata("", "1.0"); err == nil {
		t.Fatal("expected error for missing name")
	}
	if _, err := NewMetadata("foo", ""); err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestConstraintContains(t *testing.T) {
	cases := []struct {
		note       string
		constraint string
		version    string
		exp        bool
	}{
		{note: "empty matches everything", constraint: "", version: "2.7", exp: true},
		{note: "greater than excludes equal", constraint: ">3", version: "3.0", exp: false},
		{note: "greater than", constraint: ">3", version: "3.1", exp: true},
		{note: "minimum bound", constraint: ">=3.8", version: "3.8", exp: true},
		{note: "minimum bound below", constraint: ">=3.8", version: "3.7", exp: false},
		{note: "combined clauses", constraint: ">=3.8,<4", version: "3.12", exp: true},
		{note: "combined clauses upper", constraint: ">=3.8,<4", version: "4.0", exp: false},
		{note: "exact pin", constraint: "==3.11.4", version: "3.11.4", exp: true},
		{note: "exact pin two components", constraint: "==3.11.4", version: "3.11", exp: false},
		{note: "wildcard equal", constraint: "==3.11.*", version: "3.11.9", exp: true},
		{note: "wildcard equal other minor", constraint: "==3.11.*", version: "3.12.0", exp: false},
		{note: "not equal", constraint: "!=3.9", version: "3.9", exp: false},
		{note: "not equal wildcard", constraint: "!=3.9.*", version: "3.9.1", exp: false},
		{note: "compatible release", constraint: "~=3.8", version: "3.11", exp: true},
		{note: "compatible release below", constraint: "~=3.8", version: "3.7", exp: false},
		{note: "compatible release minor", constraint: "~=3.8.1", version: "3.8.5", exp: true},
		{note: "compatible release minor other", constraint: "~=3.8.1", version: "3.9.0", exp: false},
		{note: "arbitrary equality", constraint: "===3.8", version: "3.8", exp: true},
		{note: "arbitrary equality mismatch", constraint: "===3.8", version: "3.8.0", exp: false},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			c, err := ParseConstraint(tc.constraint)
			if err != nil {
				t.Fatal(err)
			}
			if got := c.Contains(tc.version); got != tc.exp {
				t.Fatalf("%q contains %q: expected %v, got %v", tc.constraint, tc.version, tc.exp, got)
			}
		})
	}
}

func TestParseConstraintErrors(t *testing.T) {
	cases := []struct {
		note       string
		constraint string
	}{
		{note: "missing operator", constraint: "3.8"},
		{note: "missing version", constraint: ">="},
		{note: "wildcard with ordered operator", constraint: ">=3.8.*"},
		{note: "non numeric segment", constraint: ">=3.x"},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			if _, err := ParseConstraint(tc.constraint); err == nil {
				t.Fatalf("expected error for %q", tc.constraint)
			}
		})
	}
}

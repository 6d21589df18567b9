package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pybun/pybun/internal/index"
)

func mustIndex(t *testing.T, doc string) *index.MemoryIndex {
	t.Helper()
	idx, err := index.LoadMemoryIndex(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadMemoryIndex: %v", err)
	}
	return idx
}

func rootRequirement(name string) Requirement {
	return ParseRequirement(name, []string{name})
}

// E1: app -> lib-a, lib-b; lib-a -> lib-c. Resolves to exactly 4 packages.
func TestResolve_SimpleTree(t *testing.T) {
	doc := `{
		"app": [{"version": "1.0.0", "deps": ["lib-a", "lib-b"], "url": "u", "sha256": "a1"}],
		"lib-a": [{"version": "1.0.0", "deps": ["lib-c"], "url": "u", "sha256": "a2"}],
		"lib-b": [{"version": "1.0.0", "deps": [], "url": "u", "sha256": "a3"}],
		"lib-c": [{"version": "1.0.0", "deps": [], "url": "u", "sha256": "a4"}]
	}`
	idx := mustIndex(t, doc)

	res, err := Resolve(context.Background(), []Requirement{rootRequirement("app")}, idx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Packages) != 4 {
		t.Fatalf("expected 4 packages, got %d: %v", len(res.Packages), res.Packages)
	}
	for _, name := range []string{"app", "lib-a", "lib-b", "lib-c"} {
		if _, ok := res.Packages[name]; !ok {
			t.Errorf("missing package %q in resolution", name)
		}
	}
}

// E2: missing package -> Missing{name, available_versions: []}.
func TestResolve_MissingPackage(t *testing.T) {
	doc := `{"app": [{"version": "1.0.0", "deps": ["missing"], "url": "u", "sha256": "a1"}]}`
	idx := mustIndex(t, doc)

	_, err := Resolve(context.Background(), []Requirement{rootRequirement("app")}, idx)
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) || resolveErr.Missing == nil {
		t.Fatalf("expected Missing error, got %v", err)
	}
	if resolveErr.Missing.Name != "missing" {
		t.Errorf("Name = %q, want %q", resolveErr.Missing.Name, "missing")
	}
	if len(resolveErr.Missing.AvailableVersions) != 0 {
		t.Errorf("AvailableVersions = %v, want empty", resolveErr.Missing.AvailableVersions)
	}
}

// E3: root -> lib==1.0.0, lib==2.0.0 -> Conflict{name:"lib", existing:"1.0.0", requested:"2.0.0"}.
func TestResolve_Conflict(t *testing.T) {
	doc := `{"lib": [
		{"version": "1.0.0", "deps": [], "url": "u", "sha256": "a1"},
		{"version": "2.0.0", "deps": [], "url": "u", "sha256": "a2"}
	]}`
	idx := mustIndex(t, doc)

	roots := []Requirement{
		ParseRequirement("lib==1.0.0", []string{"root"}),
		ParseRequirement("lib==2.0.0", []string{"root"}),
	}

	_, err := Resolve(context.Background(), roots, idx)
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) || resolveErr.Conflict == nil {
		t.Fatalf("expected Conflict error, got %v", err)
	}
	if resolveErr.Conflict.Name != "lib" {
		t.Errorf("Name = %q, want %q", resolveErr.Conflict.Name, "lib")
	}
	if resolveErr.Conflict.Existing != "1.0.0" || resolveErr.Conflict.Requested != "2.0.0" {
		t.Errorf("Existing/Requested = %q/%q, want 1.0.0/2.0.0",
			resolveErr.Conflict.Existing, resolveErr.Conflict.Requested)
	}
}

// E4: lib>=1.0.0 with candidates 1.0.0/1.5.0/2.0.0 picks 2.0.0.
func TestResolve_HighestSatisfying(t *testing.T) {
	doc := `{"lib": [
		{"version": "1.0.0", "deps": [], "url": "u", "sha256": "a1"},
		{"version": "1.5.0", "deps": [], "url": "u", "sha256": "a2"},
		{"version": "2.0.0", "deps": [], "url": "u", "sha256": "a3"}
	]}`
	idx := mustIndex(t, doc)

	root := ParseRequirement("lib>=1.0.0", []string{"root"})
	res, err := Resolve(context.Background(), []Requirement{root}, idx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Packages["lib"].Version != "2.0.0" {
		t.Errorf("Version = %q, want %q", res.Packages["lib"].Version, "2.0.0")
	}
}

// E5: no version meets the minimum -> Missing.
func TestResolve_NoVersionMeetsMinimum(t *testing.T) {
	doc := `{"lib": [{"version": "1.0.0", "deps": [], "url": "u", "sha256": "a1"}]}`
	idx := mustIndex(t, doc)

	root := ParseRequirement("lib>=2.0.0", []string{"root"})
	_, err := Resolve(context.Background(), []Requirement{root}, idx)
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) || resolveErr.Missing == nil {
		t.Fatalf("expected Missing error, got %v", err)
	}
}

func TestResolve_MalformedDependencySurfacesAsMissingWithEmptyAvailable(t *testing.T) {
	doc := `{"lib": [{"version": "1.0.0", "deps": [], "url": "u", "sha256": "a1"}]}`
	idx := mustIndex(t, doc)

	root := ParseRequirement("lib~=1.0.0", []string{"root"})
	_, err := Resolve(context.Background(), []Requirement{root}, idx)
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) || resolveErr.Missing == nil {
		t.Fatalf("expected Missing error for malformed dependency, got %v", err)
	}
	if len(resolveErr.Missing.AvailableVersions) != 0 {
		t.Errorf("AvailableVersions = %v, want empty for malformed dependency", resolveErr.Missing.AvailableVersions)
	}
}

func TestResolve_SecondRequirementSatisfiedByExistingPickIsNoOp(t *testing.T) {
	doc := `{
		"app": [{"version": "1.0.0", "deps": ["lib==1.0.0", "lib>=1.0.0"], "url": "u", "sha256": "a1"}],
		"lib": [{"version": "1.0.0", "deps": [], "url": "u", "sha256": "a2"}]
	}`
	idx := mustIndex(t, doc)

	res, err := Resolve(context.Background(), []Requirement{rootRequirement("app")}, idx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Packages["lib"].Version != "1.0.0" {
		t.Errorf("Version = %q, want %q", res.Packages["lib"].Version, "1.0.0")
	}
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		dep      string
		wantName string
		wantOp   Operator
		wantVer  string
	}{
		{"lib", "lib", OpAny, ""},
		{"LIB", "lib", OpAny, ""},
		{"lib==1.0.0", "lib", OpEq, "1.0.0"},
		{"lib == 1.0.0", "lib", OpEq, "1.0.0"},
		{"lib>=1.0.0", "lib", OpGeq, "1.0.0"},
		{"lib >= 1.0.0", "lib", OpGeq, "1.0.0"},
	}
	for _, tt := range tests {
		got := ParseRequirement(tt.dep, nil)
		if got.Name != tt.wantName || got.Constraint.Operator != tt.wantOp || got.Constraint.Version != tt.wantVer {
			t.Errorf("ParseRequirement(%q) = %+v, want name=%q op=%q ver=%q",
				tt.dep, got, tt.wantName, tt.wantOp, tt.wantVer)
		}
	}
}

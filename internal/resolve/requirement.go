package resolve

import (
	"strings"

	"github.com/pybun/pybun/internal/index"
)

func compareVersions(a, b string) int {
	return index.Compare(a, b)
}

// Operator is a dependency-string constraint operator.
type Operator string

const (
	OpAny Operator = "" // no constraint ("*")
	OpEq  Operator = "=="
	OpGeq Operator = ">="
)

// Constraint restricts which versions of a package satisfy a requirement.
type Constraint struct {
	Operator Operator
	Version  string // empty when Operator is OpAny
}

// Matches reports whether version satisfies c.
func (c Constraint) Matches(version string) bool {
	switch c.Operator {
	case OpAny:
		return true
	case OpEq:
		return version == c.Version
	case OpGeq:
		return compareVersions(version, c.Version) >= 0
	default:
		return false
	}
}

func (c Constraint) String() string {
	if c.Operator == OpAny {
		return "*"
	}
	return string(c.Operator) + c.Version
}

// Requirement is one edge in the dependency walk: a name, the constraint it
// must satisfy, and the chain of package names that led to it (the root
// itself is chain[0]).
type Requirement struct {
	Name        string
	Constraint  Constraint
	RequestedBy []string
}

// OpMalformed marks a dependency string whose operator this grammar doesn't
// recognize. Per the resolution algorithm, a malformed dependency surfaces
// as a Missing error with no available versions, since it can never be
// satisfied by any candidate.
const OpMalformed Operator = "?"

var malformedConstraint = Constraint{Operator: OpMalformed, Version: ""}

// ParseRequirement parses a dependency string of the form NAME, NAME==VER,
// or NAME>=VER into a Requirement, attaching chain as its RequestedBy.
// Whitespace around the operator is ignored. Any other operator parses to
// a requirement whose constraint never matches, so the caller's walk fails
// it with an empty candidate list.
func ParseRequirement(dep string, chain []string) Requirement {
	dep = strings.TrimSpace(dep)

	if idx := strings.Index(dep, "=="); idx >= 0 {
		return Requirement{
			Name:        strings.ToLower(strings.TrimSpace(dep[:idx])),
			Constraint:  Constraint{Operator: OpEq, Version: strings.TrimSpace(dep[idx+2:])},
			RequestedBy: chain,
		}
	}
	if idx := strings.Index(dep, ">="); idx >= 0 {
		return Requirement{
			Name:        strings.ToLower(strings.TrimSpace(dep[:idx])),
			Constraint:  Constraint{Operator: OpGeq, Version: strings.TrimSpace(dep[idx+2:])},
			RequestedBy: chain,
		}
	}

	// Look for any other comparison-like operator so it's rejected as
	// malformed rather than silently parsed as a bare name.
	for _, op := range []string{"<=", "!=", "~=", "<", ">"} {
		if strings.Contains(dep, op) {
			name := strings.ToLower(strings.TrimSpace(strings.SplitN(dep, op, 2)[0]))
			return Requirement{Name: name, Constraint: malformedConstraint, RequestedBy: chain}
		}
	}

	return Requirement{
		Name:        strings.ToLower(dep),
		Constraint:  Constraint{Operator: OpAny},
		RequestedBy: chain,
	}
}

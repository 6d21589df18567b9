// Package index looks up available package versions and their metadata,
// from either an in-memory document or a remote "simple" HTTP endpoint.
package index

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Metadata when name or version has no entry.
var ErrNotFound = errors.New("index: not found")

// Metadata describes one published version of a package.
type Metadata struct {
	Name              string
	Version           string
	DependencyStrings []string
	ArtifactURL       string
	ArtifactDigest    string // hex-encoded sha256, no "sha256:" prefix
}

// Index looks up the versions a package has published, and the metadata
// for one specific version. Implementations must canonicalize package
// names (lowercase) on both insert and lookup, and must return versions in
// ascending order.
type Index interface {
	// Versions returns all known version strings for name, ascending.
	// Returns an empty slice (not an error) if name is unknown.
	Versions(ctx context.Context, name string) ([]string, error)

	// Metadata returns the metadata for name at version. Returns
	// ErrNotFound if either is unknown.
	Metadata(ctx context.Context, name, version string) (*Metadata, error)
}

// canonicalName lowercases a package name for case-insensitive lookup,
// matching the canonicalization the resolver assumes on Requirement.Name.
func canonicalName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func notFoundError(name, version string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, name, version)
}

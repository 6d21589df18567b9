// Package resolve walks a set of root requirements against a package index
// to a deterministic set of resolved versions.
//
// The algorithm is an intentionally simple fixed-point breadth-first walk,
// not a backtracking or SAT-style solver: the first version picked for a
// package is final, later requirements on that package either accept it or
// fail outright. This trades completeness (it can report a Conflict where
// a smarter solver could have found a satisfying assignment) for a result
// that is a pure function of root requirement order.
package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/pybun/pybun/internal/index"
)

// SourceKind distinguishes where a resolved package's artifact comes from.
type SourceKind string

const (
	SourceRegistry SourceKind = "registry"
	SourceURL      SourceKind = "url"
)

// Source identifies the origin of a resolved package's artifact.
type Source struct {
	Kind      SourceKind
	IndexName string // set when Kind == SourceRegistry
	URL       string
}

// ResolvedPackage is one entry of a Resolution.
type ResolvedPackage struct {
	Name             string
	Version          string
	Source           Source
	ArtifactFilename string
	ArtifactDigest   string // "sha256:" + hex digest
	Dependencies     []string
}

// Resolution is the result of a successful resolve, keyed by canonical
// (lowercased) package name.
type Resolution struct {
	Packages map[string]ResolvedPackage
}

// pendingRequirement is a queue entry: tracking it separately from
// Requirement keeps the queue FIFO semantics explicit.
type pendingRequirement struct {
	req Requirement
}

// Resolve walks roots against idx using the deterministic fixed-point FIFO
// algorithm: a work queue seeded with roots, draining one requirement at a
// time, each dependency of a newly picked package enqueued at the back.
// Iteration order (and therefore the result) is a function of root order
// only.
func Resolve(ctx context.Context, roots []Requirement, idx index.Index) (*Resolution, error) {
	queue := make([]pendingRequirement, 0, len(roots))
	for _, r := range roots {
		queue = append(queue, pendingRequirement{req: r})
	}

	type pick struct {
		version string
		chain   []string
	}
	picked := make(map[string]pick)
	resolved := make(map[string]ResolvedPackage)

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		r := queue[0].req
		queue = queue[1:]

		if r.Constraint.Operator == OpMalformed {
			return nil, &ResolveError{Missing: &Missing{
				Name:              r.Name,
				Constraint:        r.Constraint,
				RequestedBy:       r.RequestedBy,
				AvailableVersions: nil,
			}}
		}

		available, err := idx.Versions(ctx, r.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve: listing versions for %s: %w", r.Name, err)
		}

		candidates := filterSatisfying(available, r.Constraint)
		if len(candidates) == 0 {
			return nil, &ResolveError{Missing: &Missing{
				Name:              r.Name,
				Constraint:        r.Constraint,
				RequestedBy:       r.RequestedBy,
				AvailableVersions: available,
			}}
		}

		chosen := candidates[len(candidates)-1] // highest, since available is ascending

		existing, alreadyPicked := picked[r.Name]
		if !alreadyPicked {
			picked[r.Name] = pick{version: chosen, chain: r.RequestedBy}

			md, err := idx.Metadata(ctx, r.Name, chosen)
			if err != nil {
				return nil, fmt.Errorf("resolve: fetching metadata for %s %s: %w", r.Name, chosen, err)
			}

			resolved[r.Name] = ResolvedPackage{
				Name:             r.Name,
				Version:          chosen,
				Source:           Source{Kind: SourceRegistry, IndexName: "default", URL: md.ArtifactURL},
				ArtifactFilename: artifactFilename(r.Name, chosen, md.ArtifactURL),
				ArtifactDigest:   "sha256:" + md.ArtifactDigest,
				Dependencies:     md.DependencyStrings,
			}

			childChain := append(append([]string{}, r.RequestedBy...), r.Name)
			for _, depStr := range md.DependencyStrings {
				queue = append(queue, pendingRequirement{req: ParseRequirement(depStr, childChain)})
			}
			continue
		}

		if r.Constraint.Matches(existing.version) {
			continue
		}
		if chosen == existing.version {
			continue
		}

		return nil, &ResolveError{Conflict: &Conflict{
			Name:           r.Name,
			Existing:       existing.version,
			Requested:      chosen,
			ExistingChain:  existing.chain,
			RequestedChain: r.RequestedBy,
		}}
	}

	return &Resolution{Packages: resolved}, nil
}

// filterSatisfying returns the subset of versions (assumed ascending) that
// satisfy c, preserving order.
func filterSatisfying(versions []string, c Constraint) []string {
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		if c.Matches(v) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return compareVersions(out[i], out[j]) < 0 })
	return out
}

func artifactFilename(name, version, artifactURL string) string {
	if artifactURL == "" {
		return fmt.Sprintf("%s-%s", name, version)
	}
	for i := len(artifactURL) - 1; i >= 0; i-- {
		if artifactURL[i] == '/' {
			return artifactURL[i+1:]
		}
	}
	return artifactURL
}

// Package install composes the index, resolver, lockfile, downloader, and
// unpacker into the end-to-end install pipeline: resolve roots to a
// Resolution, persist it as a Lockfile, fetch every resolved artifact into
// a content-addressed cache, and unpack each into the site directory.
package install

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pybun/pybun/internal/config"
	"github.com/pybun/pybun/internal/download"
	"github.com/pybun/pybun/internal/index"
	"github.com/pybun/pybun/internal/lockfile"
	"github.com/pybun/pybun/internal/log"
	"github.com/pybun/pybun/internal/oncemap"
	"github.com/pybun/pybun/internal/platform"
	"github.com/pybun/pybun/internal/resolve"
	"github.com/pybun/pybun/internal/unpack"
)

// Installer runs the resolve -> lockfile -> download -> unpack pipeline.
// A single Installer's OnceMap is shared across Execute calls, so
// overlapping installs that happen to need the same artifact digest
// download it only once.
type Installer struct {
	cfg *config.Config
	dl  *download.Downloader

	logger              log.Logger
	downloadConcurrency int

	once *oncemap.OnceMap[string, string] // digest -> local cache path
}

// New returns an Installer backed by cfg and dl.
func New(cfg *config.Config, dl *download.Downloader, opts ...Option) *Installer {
	i := &Installer{
		cfg:    cfg,
		dl:     dl,
		logger: log.Default(),
		once:   oncemap.New[string, string](),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Plan resolves roots against idx, builds a Lockfile recording the
// resolution for the running platform, and persists it to cfg.LockfilePath.
func (i *Installer) Plan(ctx context.Context, idx index.Index, roots []resolve.Requirement, pythonVersions []string) (*lockfile.Lockfile, error) {
	res, err := resolve.Resolve(ctx, roots, idx)
	if err != nil {
		return nil, fmt.Errorf("install: resolve: %w", err)
	}

	lf := lockfile.New(pythonVersions, []string{platform.Tag()})
	for _, pkg := range res.Packages {
		lf.AddPackage(lockfile.Package{
			Name:             pkg.Name,
			Version:          pkg.Version,
			SourceKind:       string(pkg.Source.Kind),
			IndexName:        pkg.Source.IndexName,
			URL:              pkg.Source.URL,
			ArtifactFilename: pkg.ArtifactFilename,
			ArtifactDigest:   pkg.ArtifactDigest,
			Dependencies:     pkg.Dependencies,
		})
	}

	if err := lf.Save(i.cfg.LockfilePath); err != nil {
		return nil, fmt.Errorf("install: saving lockfile: %w", err)
	}

	// Round-trip verification per the roundtrip law: what was saved reads
	// back identically.
	loaded, err := lockfile.Load(i.cfg.LockfilePath)
	if err != nil {
		return nil, fmt.Errorf("install: lockfile round-trip verification failed: %w", err)
	}
	if !bytes.Equal(loaded.ToBytes(), lf.ToBytes()) {
		return nil, fmt.Errorf("install: lockfile round-trip verification failed: reloaded lockfile differs from the one written")
	}

	i.logger.Info("wrote lockfile", "path", i.cfg.LockfilePath, "packages", len(lf.Packages()))
	return lf, nil
}

// downloadResult pairs a package with the outcome of fetching its artifact.
type downloadResult struct {
	pkg  lockfile.Package
	path string
	err  error
}

// Execute fetches every package in lf into the content-addressed download
// cache (deduping overlapping installs via the Installer's OnceMap) and
// unpacks each into cfg.SiteDir. If any download fails, Execute returns an
// error after letting in-flight downloads finish; already-cached artifacts
// are retained regardless of the overall outcome.
func (i *Installer) Execute(ctx context.Context, lf *lockfile.Lockfile) error {
	packages := lf.Packages()
	concurrency := i.downloadConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]downloadResult, len(packages))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for idx, pkg := range packages {
		idx, pkg := idx, pkg
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			path, err := i.fetch(ctx, pkg)
			results[idx] = downloadResult{pkg: pkg, path: path, err: err}
		}()
	}
	wg.Wait()

	var failed []string
	for _, r := range results {
		if r.err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", r.pkg.Name, r.err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("install: %d package(s) failed to download: %s", len(failed), strings.Join(failed, "; "))
	}

	for _, r := range results {
		dest := i.siteDir(r.pkg)
		if err := unpack.Extract(r.path, dest); err != nil {
			return fmt.Errorf("install: unpacking %s %s: %w", r.pkg.Name, r.pkg.Version, err)
		}
		i.logger.Info("installed package", "name", r.pkg.Name, "version", r.pkg.Version, "dest", dest)
	}

	return nil
}

// fetch downloads pkg's artifact into the content-addressed cache, deduping
// concurrent/overlapping requests for the same digest via the Installer's
// OnceMap. Returns the local cache path.
func (i *Installer) fetch(ctx context.Context, pkg lockfile.Package) (string, error) {
	return i.once.GetOrTryInit(pkg.ArtifactDigest, func() (string, error) {
		dest := i.cfg.ArtifactCachePath(pkg.ArtifactDigest)

		if info, err := os.Stat(dest); err == nil && !info.IsDir() {
			i.logger.Debug("artifact already cached", "name", pkg.Name, "digest", pkg.ArtifactDigest)
			return dest, nil
		}

		req := download.DownloadRequest{
			URL:              pkg.URL,
			Destination:      dest,
			ExpectedChecksum: strings.TrimPrefix(pkg.ArtifactDigest, "sha256:"),
		}
		return i.dl.DownloadFile(ctx, req)
	})
}

// siteDir returns where pkg's artifact is unpacked to.
func (i *Installer) siteDir(pkg lockfile.Package) string {
	return filepath.Join(i.cfg.SiteDir, fmt.Sprintf("%s-%s", pkg.Name, pkg.Version))
}

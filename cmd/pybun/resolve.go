package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pybun/pybun/internal/config"
	"github.com/pybun/pybun/internal/errmsg"
	"github.com/pybun/pybun/internal/httputil"
	"github.com/pybun/pybun/internal/index"
	"github.com/pybun/pybun/internal/resolve"
)

var (
	resolveIndexURL  string
	resolveIndexFile string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [package...]",
	Short: "Resolve dependencies against an index without installing them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveIndexURL, "index-url", "", "Base URL of a PyPI-simple-shaped package index")
	resolveCmd.Flags().StringVar(&resolveIndexFile, "index-file", "", "Path to a local JSON index document")
}

// openIndex builds the Index a resolve/install invocation reads from,
// wrapping a remote index in the on-disk TTL cache.
func openIndex(cfg *config.Config, indexURL, indexFile string) (index.Index, error) {
	switch {
	case indexFile != "":
		return index.LoadMemoryIndexFile(indexFile)
	case indexURL != "":
		remote := index.NewRemoteIndex(indexURL, httputil.DefaultOptions())
		return index.NewCachedIndex(remote, cfg.IndexCacheDir, config.GetIndexCacheTTL()), nil
	default:
		return nil, fmt.Errorf("one of --index-url or --index-file is required")
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	idx, err := openIndex(cfg, resolveIndexURL, resolveIndexFile)
	if err != nil {
		return err
	}

	roots := make([]resolve.Requirement, 0, len(args))
	for _, dep := range args {
		roots = append(roots, resolve.ParseRequirement(dep, nil))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), config.GetAPITimeout())
	defer cancel()

	res, err := resolve.Resolve(ctx, roots, idx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errmsg.Format(err, nil))
		exitWithCode(ExitResolveFailed)
		return nil
	}

	names := make([]string, 0, len(res.Packages))
	for name := range res.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pkg := res.Packages[name]
		fmt.Fprintf(cmd.OutOrStdout(), "%s==%s\n", pkg.Name, pkg.Version)
	}

	return nil
}

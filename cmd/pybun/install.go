package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pybun/pybun/internal/config"
	"github.com/pybun/pybun/internal/download"
	"github.com/pybun/pybun/internal/errmsg"
	"github.com/pybun/pybun/internal/install"
	"github.com/pybun/pybun/internal/resolve"
)

var (
	installIndexURL      string
	installIndexFile     string
	installPythonVersion string
)

var installCmd = &cobra.Command{
	Use:   "install [package...]",
	Short: "Resolve, lock, download, and unpack a project's dependencies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installIndexURL, "index-url", "", "Base URL of a PyPI-simple-shaped package index")
	installCmd.Flags().StringVar(&installIndexFile, "index-file", "", "Path to a local JSON index document")
	installCmd.Flags().StringVar(&installPythonVersion, "python-version", "3.12", "Python version this install targets")
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	idx, err := openIndex(cfg, installIndexURL, installIndexFile)
	if err != nil {
		return err
	}

	roots := make([]resolve.Requirement, 0, len(args))
	for _, dep := range args {
		roots = append(roots, resolve.ParseRequirement(dep, nil))
	}

	dl := download.New(download.Config{
		MaxConcurrency: config.GetMaxConcurrency(),
		ConnectTimeout: config.GetAPITimeout(),
		ReadTimeout:    config.GetAPITimeout(),
		Retries:        download.DefaultConfig().Retries,
	})
	installer := install.New(cfg, dl)

	ctx := cmd.Context()

	lf, err := installer.Plan(ctx, idx, roots, []string{installPythonVersion})
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errmsg.Format(err, nil))
		exitWithCode(ExitResolveFailed)
		return nil
	}

	if err := installer.Execute(ctx, lf); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errmsg.Format(err, nil))
		exitWithCode(ExitInstallFailed)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "installed %d package(s) into %s\n", len(lf.Packages()), cfg.SiteDir)
	return nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcvm-launcher/mcvm-sub000/src/addon"
	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgeval"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgformat"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgregistry"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgresolve"
)

var (
	pkgVersionFlag string
	pkgSideFlag    string
	pkgRepoDirFlag string
)

var PkgInstallCmd = &cobra.Command{
	Use:   "pkg-install <instance-id> <package-id...>",
	Short: "Resolve and install packages into an instance",
	Long: `Resolves the requested packages against the configured
repositories, evaluates every dependency/conflict/extension, and
installs the addons the winning resolution requires.

Examples:
  mcvm pkg-install myworld fabric-api sodium --version 1.20.1`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPkgInstall(args[0], args[1:])
	},
	SilenceUsage: true,
}

func init() {
	PkgInstallCmd.Flags().StringVar(&pkgVersionFlag, "version", "latest", "version pattern the packages resolve against")
	PkgInstallCmd.Flags().StringVar(&pkgSideFlag, "side", "client", "client or server")
	PkgInstallCmd.Flags().StringVar(&pkgRepoDirFlag, "repo-dir", "", "local repository directory searched before any remote repository")
}

func runPkgInstall(instanceID string, ids []string) error {
	e, err := newEnv("mcvm-pkg")
	if err != nil {
		return err
	}
	defer e.Close()

	for _, id := range ids {
		if !config.ValidPackageID(id) {
			return fmt.Errorf("invalid package id %q", id)
		}
	}

	side := config.Client
	if pkgSideFlag == "server" {
		side = config.Server
	}

	registry := &pkgregistry.Registry{Client: e.client}
	if pkgRepoDirFlag != "" {
		registry.Repositories = append(registry.Repositories, pkgregistry.LocalRepository{Dir: pkgRepoDirFlag})
	}
	registry.Repositories = append(registry.Repositories, pkgregistry.RemoteRepository{
		BaseURL: "https://api.mcvm.dev/packages",
		Client:  e.client,
	})

	seeds := make([]pkgresolve.Seed, len(ids))
	for i, id := range ids {
		seeds[i] = pkgresolve.Seed{ID: id, Params: pkgeval.Params{Side: string(side)}}
	}

	constants := pkgeval.Constants{Version: pkgVersionFlag}
	ctx := context.Background()
	result, err := pkgresolve.Resolve(ctx, constants, pkgformat.StabilityStable, seeds, pkgresolve.MakeEvaluator(registry))
	if err != nil {
		return fmt.Errorf("resolving packages for %s: %w", instanceID, err)
	}

	inst := config.Instance{ID: instanceID, Side: side, Version: pkgVersionFlag}

	for _, r := range result.Resolved {
		addons := make([]addon.Addon, 0, len(r.Data.AddonReqs))
		for _, req := range r.Data.AddonReqs {
			addons = append(addons, addon.Addon{
				Kind:     config.AddonKind(req.Kind),
				ID:       req.ID,
				FileName: req.FileName,
				PkgID:    r.ID,
				Version:  req.Version,
				URL:      req.URL,
				SHA256:   req.SHA256,
				SHA512:   req.SHA512,
			})
		}
		if len(addons) == 0 {
			continue
		}
		if _, err := addon.Install(ctx, e.client, e.out, e.paths, e.lock, inst, r.ID, addons, nil, nil, nil); err != nil {
			return fmt.Errorf("installing package %s into %s: %w", r.ID, instanceID, err)
		}
		fmt.Printf("installed %s (%d addon(s)) into %s\n", r.ID, len(addons), instanceID)
	}

	if len(result.Recommendations) > 0 {
		fmt.Printf("recommended packages not installed: %v\n", result.Recommendations)
	}

	return nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/instance"
	"github.com/mcvm-launcher/mcvm-sub000/src/java"
	"github.com/mcvm-launcher/mcvm-sub000/src/plugin"
	"github.com/mcvm-launcher/mcvm-sub000/src/update"
)

var (
	updateVersionFlag string
	updateSideFlag    string
	updateForceJava   bool
	updateOffline     bool
)

var UpdateCmd = &cobra.Command{
	Use:   "update <instance-id>",
	Short: "Fetch everything an instance needs to launch",
	Long: `Resolves the instance's version, fetches its client metadata,
game assets, libraries, and Java runtime, and reconciles its plugin
modification identity.

Examples:
  mcvm update myworld --version 1.20.1
  mcvm update myserver --version 1.20.1 --side server`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(args[0])
	},
}

func init() {
	UpdateCmd.Flags().StringVar(&updateVersionFlag, "version", "latest", "version pattern to resolve (exact, before:, after:, range, or \"latest\")")
	UpdateCmd.Flags().StringVar(&updateSideFlag, "side", "client", "client or server")
	UpdateCmd.Flags().BoolVar(&updateForceJava, "force-java", false, "refetch the Java runtime even if one is already registered")
	UpdateCmd.Flags().BoolVar(&updateOffline, "offline", false, "reuse cached files instead of hitting the network")
	UpdateCmd.SilenceUsage = true
}

func runUpdate(instanceID string) error {
	e, err := newEnv("mcvm-update")
	if err != nil {
		return err
	}
	defer e.Close()

	side := config.Client
	if updateSideFlag == "server" {
		side = config.Server
	}
	inst := config.Instance{ID: instanceID, Side: side, Version: updateVersionFlag}

	ctx := context.Background()
	mgr := update.NewManager(e.log, e.client, e.paths, e.javaReg, e.cache)
	mgr.Require(update.ReqClientMeta, "")
	mgr.Require(update.ReqGameAssets, "")
	mgr.Require(update.ReqGameLibraries, "")
	mgr.Require(update.ReqGameJar, "")
	mgr.Require(update.ReqJava, java.Auto)

	if err := mgr.FulfillRequirements(ctx, e.out, updateVersionFlag, 0, updateOffline, updateForceJava); err != nil {
		return fmt.Errorf("updating instance %s: %w", instanceID, err)
	}
	inst.Version = mgr.Version

	gameJarSrc := update.GameJarPath(e.paths, mgr.Version, update.Side(inst.Side))
	host := plugin.NewHost()
	if _, err := instance.Setup(ctx, e.paths, e.lock, host, inst, 0, gameJarSrc); err != nil {
		return fmt.Errorf("reconciling instance %s: %w", instanceID, err)
	}

	fmt.Printf("instance %s is up to date at version %s (java: %s)\n", instanceID, mgr.Version, mgr.JavaInstallation.Home)
	return nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcvm-launcher/mcvm-sub000/src/clientmeta"
	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/java"
	"github.com/mcvm-launcher/mcvm-sub000/src/launch"
	"github.com/mcvm-launcher/mcvm-sub000/src/libraries"
	"github.com/mcvm-launcher/mcvm-sub000/src/running"
	"github.com/mcvm-launcher/mcvm-sub000/src/update"
	"github.com/mcvm-launcher/mcvm-sub000/src/versionmanifest"
)

var (
	launchVersionFlag  string
	launchPlayerFlag   string
	launchOfflineFlag  bool
)

var LaunchCmd = &cobra.Command{
	Use:   "launch <instance-id>",
	Short: "Launch an already-updated instance",
	Long: `Builds the JVM/game command line from the instance's cached
client metadata and Java installation, starts the process, and records
it in the running-instance registry.

An instance must have been updated at least once (see "mcvm update")
before it can be launched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLaunch(args[0])
	},
}

func init() {
	LaunchCmd.Flags().StringVar(&launchVersionFlag, "version", "", "version to launch (must already be cached by \"mcvm update\")")
	LaunchCmd.Flags().StringVar(&launchPlayerFlag, "player", "Player", "offline player name")
	LaunchCmd.Flags().BoolVar(&launchOfflineFlag, "offline", true, "reuse cached client metadata instead of refetching")
	LaunchCmd.MarkFlagRequired("version")
	LaunchCmd.SilenceUsage = true
}

func runLaunch(instanceID string) error {
	e, err := newEnv("mcvm-launch")
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	ml, err := versionmanifest.Fetch(ctx, e.client, e.paths.Internal, launchOfflineFlag, false, e.cache)
	if err != nil {
		return fmt.Errorf("resolving version manifest: %w", err)
	}
	entry, ok := ml.Entry(launchVersionFlag)
	if !ok {
		return fmt.Errorf("unknown version %q", launchVersionFlag)
	}
	meta, err := clientmeta.Fetch(ctx, e.client, e.paths.VersionsDir(), launchVersionFlag, entry.URL, launchOfflineFlag, e.cache)
	if err != nil {
		return fmt.Errorf("loading cached client metadata for %s: %w", launchVersionFlag, err)
	}

	// Looks up the Adoptium registration specifically: "mcvm update"
	// runs java.Auto, which may have resolved to System instead on a
	// machine with a matching local JVM already on PATH.
	javaEntry, ok := e.javaReg.Get(string(java.Adoptium), meta.JavaMajorVersion())
	if !ok {
		return fmt.Errorf("no cached java %d install; run \"mcvm update %s --version %s\" first", meta.JavaMajorVersion(), instanceID, launchVersionFlag)
	}
	javaInstall := java.Installation{Flavor: java.Adoptium, Home: javaEntry.Path}

	natives := e.paths.NativesDir(launchVersionFlag)
	// Library jar paths were already resolved and downloaded by
	// "mcvm update"; an embedder with a real instance store keeps that
	// classpath around rather than reconstructing it here.
	classpath := libraries.Classpath(nil, update.GameJarPath(e.paths, launchVersionFlag, update.SideClient))

	inst := config.Instance{ID: instanceID, Side: config.Client, Version: launchVersionFlag}
	gameDir := fmt.Sprintf("%s/%s", e.paths.InstanceDir(instanceID), inst.GameDir())

	opts := launch.Options{
		Instance:    inst,
		NativesDir:  natives,
		Classpath:   classpath,
		AssetsRoot:  e.paths.Assets,
		VersionName: launchVersionFlag,
		VersionType: meta.Type,
		GameDir:     gameDir,
		LauncherName: "mcvm",
		LauncherVersion: "0.1.0",
		Auth:        launch.Auth{PlayerName: launchPlayerFlag, UserType: "legacy"},
		VersionList: ml.List,
	}

	cmdArgs := launch.BuildCommand(meta, opts)
	env := launch.EnvFor(inst, ml.List, launchVersionFlag)
	reg, err := running.Open(fmt.Sprintf("%s/running_instances.json", e.paths.Internal))
	if err != nil {
		return fmt.Errorf("opening running instance registry: %w", err)
	}

	proc, err := launch.Launch(javaInstall.BinPath(), cmdArgs, env, gameDir, inst.LaunchOptions.Wrapper, reg, instanceID)
	if err != nil {
		return err
	}
	fmt.Printf("launched %s (pid %d)\n", instanceID, proc.Pid)
	return nil
}

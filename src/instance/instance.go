// Package instance implements setup and teardown: detecting an
// identity change against the lockfile, running teardown on the old
// modification identity before any file work, invoking the plugin
// host's OnInstanceSetup on the new identity, and recording the
// reconciled identity back to the lockfile.
package instance

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/lockfile"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
	"github.com/mcvm-launcher/mcvm-sub000/src/plugin"
)

// Identity is the reconciliation key tracked in the lockfile.
type Identity struct {
	Version    string
	ClientType string
	ServerType string
}

func identityOf(inst config.Instance) Identity {
	return Identity{Version: inst.Version, ClientType: inst.Modification.ClientType, ServerType: inst.Modification.ServerType}
}

// changed reports whether the version or modification kind differs
// between the lockfile-recorded identity and the new one.
func changed(recorded lockfile.Instance, want Identity) bool {
	return recorded.Version != want.Version ||
		recorded.ClientType != want.ClientType ||
		recorded.ServerType != want.ServerType
}

// Result is the reconciled ModificationData after plugin hooks run.
type Result struct {
	MainClassOverride  string
	JarPathOverride    string
	ClasspathExtension []string
}

// Setup runs the full setup/teardown sequence for inst ahead of
// requirement fulfillment and addon installation. gameJarSrc, when
// non-empty, is the update manager's shared, version-keyed game jar
// for inst's side; it is materialized into the instance's own
// directory so that a later identity change can tear it down without
// touching the shared cache other instances still read from.
func Setup(ctx context.Context, p *paths.Paths, lf *lockfile.Lockfile, host *plugin.Host, inst config.Instance, updateDepth int, gameJarSrc string) (Result, error) {
	if err := inst.Validate(); err != nil {
		return Result{}, err
	}

	instDir := p.InstanceDir(inst.ID)
	gameDir := filepath.Join(instDir, inst.GameDir())
	want := identityOf(inst)

	recorded, existed := lf.GetInstance(inst.ID)
	if existed && changed(recorded, want) {
		if err := teardown(ctx, instDir, gameDir, lf, host, inst, recorded); err != nil {
			return Result{}, err
		}
	}

	if err := materializeGameJar(instDir, gameDir, inst.Side, gameJarSrc); err != nil {
		return Result{}, err
	}

	setupRes, err := host.Setup(ctx, plugin.SetupInput{
		InstanceID:            inst.ID,
		Side:                  string(inst.Side),
		GameDir:               gameDir,
		Version:               inst.Version,
		ClientType:            inst.Modification.ClientType,
		ServerType:            inst.Modification.ServerType,
		CurrentGameModVersion: recorded.GameModificationVersion,
		DesiredGameModVersion: inst.ModificationVersion,
		CustomConfig:          inst.PluginConfig,
		InternalDir:           p.Internal,
		UpdateDepth:           updateDepth,
	})
	if err != nil {
		return Result{}, err
	}

	lf.SetInstance(inst.ID, lockfile.Instance{
		Version:                 want.Version,
		GameModificationVersion: setupRes.GameModificationVersion,
		ClientType:              want.ClientType,
		ServerType:              want.ServerType,
	})

	return Result{
		MainClassOverride:  setupRes.MainClassOverride,
		JarPathOverride:    setupRes.JarPathOverride,
		ClasspathExtension: setupRes.ClasspathExtension,
	}, nil
}

// materializeGameJar hardlinks (falling back to a copy across
// filesystems) the shared-cache jar at src into inst's own directory,
// so the instance has a file of its own that teardown can safely
// remove without affecting any other instance pinned to the same
// version. A missing or empty src means no ReqGameJar was fulfilled
// for this pass, so there is nothing to materialize.
func materializeGameJar(instDir, gameDir string, side config.Side, src string) error {
	if src == "" {
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		return nil
	}

	name, dir := "client.jar", instDir
	if side == config.Server {
		name, dir = "server.jar", gameDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(dir, name)
	_ = os.Remove(dest)
	if err := os.Link(src, dest); err != nil {
		return copyFile(src, dest)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func teardown(ctx context.Context, instDir, gameDir string, lf *lockfile.Lockfile, host *plugin.Host, inst config.Instance, recorded lockfile.Instance) error {
	_ = os.Remove(filepath.Join(instDir, "client.jar"))
	_ = os.Remove(filepath.Join(gameDir, "server.jar"))

	if err := host.RemoveGameModification(ctx, plugin.SetupInput{
		InstanceID: inst.ID,
		Side:       string(inst.Side),
		GameDir:    gameDir,
		Version:    recorded.Version,
		ClientType: recorded.ClientType,
		ServerType: recorded.ServerType,
	}); err != nil {
		return err
	}

	lf.ClearGameModificationVersion(inst.ID)
	return nil
}

package instance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/lockfile"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
	"github.com/mcvm-launcher/mcvm-sub000/src/plugin"
)

// fabricPlugin simulates a Fabric loader plugin: on setup it writes a
// library link file and records its own modification version, and on
// teardown it removes that link file.
func fabricPlugin(t *testing.T, libLink string) plugin.Plugin {
	t.Helper()
	return plugin.Plugin{
		Manifest: plugin.Manifest{ID: "fabric"},
		Hooks: plugin.Hooks{
			OnInstanceSetup: func(_ context.Context, in plugin.SetupInput) (plugin.SetupResult, error) {
				if in.ClientType != "fabric" {
					return plugin.SetupResult{}, nil
				}
				require.NoError(t, os.MkdirAll(filepath.Dir(libLink), 0o755))
				require.NoError(t, os.WriteFile(libLink, []byte("fabric-loader"), 0o644))
				return plugin.SetupResult{GameModificationVersion: "0.15.0"}, nil
			},
			RemoveGameModification: func(_ context.Context, in plugin.SetupInput) error {
				if in.ClientType != "fabric" {
					return nil
				}
				return os.Remove(libLink)
			},
		},
	}
}

func TestSetupTeardownSwitchLeavesNoOldIdentityFiles(t *testing.T) {
	ctx := context.Background()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	lf, err := lockfile.Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	libLink := filepath.Join(p.InstanceDir("demo"), ".minecraft", "mods", "fabric-loader.jar")
	host := plugin.NewHost()
	host.Register(fabricPlugin(t, libLink))

	// First install: 1.19.2 fabric-client.
	fabricInst := config.Instance{ID: "demo", Side: config.Client, Version: "1.19.2", Modification: config.Modification{ClientType: "fabric"}}
	_, err = Setup(ctx, p, lf, host, fabricInst, 0, "")
	require.NoError(t, err)

	clientJar := filepath.Join(p.InstanceDir("demo"), "client.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(clientJar), 0o755))
	require.NoError(t, os.WriteFile(clientJar, []byte("old jar"), 0o644))

	_, err = os.Stat(libLink)
	require.NoError(t, err, "fabric setup must have written its library link")

	// Switch to 1.20.1 vanilla-client: teardown must remove both the
	// old client.jar and any fabric library links before the new
	// identity is recorded.
	vanillaInst := config.Instance{ID: "demo", Side: config.Client, Version: "1.20.1"}
	_, err = Setup(ctx, p, lf, host, vanillaInst, 0, "")
	require.NoError(t, err)

	_, err = os.Stat(clientJar)
	assert.True(t, os.IsNotExist(err), "teardown must remove the old client.jar")

	_, err = os.Stat(libLink)
	assert.True(t, os.IsNotExist(err), "teardown must remove Fabric library links owned by the old identity")

	recorded, ok := lf.GetInstance("demo")
	require.True(t, ok)
	assert.Equal(t, "1.20.1", recorded.Version)
	assert.Empty(t, recorded.ClientType, "the new identity is vanilla")
	assert.Empty(t, recorded.GameModificationVersion, "no plugin set a modification version for the vanilla identity")
}

func TestSetupSkipsTeardownWhenIdentityUnchanged(t *testing.T) {
	ctx := context.Background()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	lf, err := lockfile.Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	teardownCalls := 0
	host := plugin.NewHost()
	host.Register(plugin.Plugin{
		Manifest: plugin.Manifest{ID: "counter"},
		Hooks: plugin.Hooks{
			RemoveGameModification: func(_ context.Context, _ plugin.SetupInput) error {
				teardownCalls++
				return nil
			},
		},
	})

	inst := config.Instance{ID: "demo", Side: config.Client, Version: "1.20.1"}
	_, err = Setup(ctx, p, lf, host, inst, 0, "")
	require.NoError(t, err)
	_, err = Setup(ctx, p, lf, host, inst, 0, "")
	require.NoError(t, err)

	assert.Equal(t, 0, teardownCalls, "re-running Setup with the same identity must not invoke teardown")
}

func TestSetupRejectsInvalidInstance(t *testing.T) {
	ctx := context.Background()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	lf, err := lockfile.Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	_, err = Setup(ctx, p, lf, plugin.NewHost(), config.Instance{}, 0, "")
	assert.Error(t, err)
}

func TestSetupMaterializesGameJarFromSharedCacheAndTeardownRemovesOnlyTheInstanceCopy(t *testing.T) {
	ctx := context.Background()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	lf, err := lockfile.Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)
	host := plugin.NewHost()

	sharedJar := filepath.Join(p.Jars, "1.20.1_client.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(sharedJar), 0o755))
	require.NoError(t, os.WriteFile(sharedJar, []byte("resolved jar bytes"), 0o644))

	clientInst := config.Instance{ID: "demo", Side: config.Client, Version: "1.20.1"}
	_, err = Setup(ctx, p, lf, host, clientInst, 0, sharedJar)
	require.NoError(t, err)

	instanceJar := filepath.Join(p.InstanceDir("demo"), "client.jar")
	data, err := os.ReadFile(instanceJar)
	require.NoError(t, err, "setup must materialize the shared-cache jar into the instance directory")
	assert.Equal(t, "resolved jar bytes", string(data))

	// A second instance pinned to the same version shares the same
	// cache entry but gets its own materialized copy.
	otherInst := config.Instance{ID: "other", Side: config.Client, Version: "1.20.1"}
	_, err = Setup(ctx, p, lf, host, otherInst, 0, sharedJar)
	require.NoError(t, err)
	otherJar := filepath.Join(p.InstanceDir("other"), "client.jar")
	_, err = os.Stat(otherJar)
	require.NoError(t, err)

	// Switching "demo" to a new version tears down its own copy only;
	// the shared cache and the other instance's copy survive.
	newInst := config.Instance{ID: "demo", Side: config.Client, Version: "1.20.4"}
	_, err = Setup(ctx, p, lf, host, newInst, 0, "")
	require.NoError(t, err)

	_, err = os.Stat(instanceJar)
	assert.True(t, os.IsNotExist(err), "teardown must remove the instance's own client.jar")

	_, err = os.Stat(sharedJar)
	assert.NoError(t, err, "teardown must not touch the shared version-keyed cache")

	_, err = os.Stat(otherJar)
	assert.NoError(t, err, "teardown of one instance must not affect another instance's materialized jar")
}

package lockfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcvm-launcher/mcvm-sub000/src/logging"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcoutput"
)

func testOutput() mcoutput.Output {
	return mcoutput.NewLogOutput(logging.New("lockfile-test"))
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lock.json")

	lf, err := Open(path)
	require.NoError(t, err)

	addons := []Addon{{ID: "a", Files: []string{"mods/a.jar"}, Kind: "mod"}}
	_, err = lf.UpdatePackage(ctx, testOutput(), "demo", "pkg-a", addons)
	require.NoError(t, err)
	require.NoError(t, lf.Finish())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, addons, reopened.GetPackage("demo", "pkg-a"))
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	lf, err := Open(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Nil(t, lf.GetPackage("demo", "pkg-a"))
	_, ok := lf.GetInstance("demo")
	assert.False(t, ok)
}

func TestUpdatePackageReportsRemovedFiles(t *testing.T) {
	ctx := context.Background()
	lf, err := Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	_, err = lf.UpdatePackage(ctx, testOutput(), "demo", "pkg-a", []Addon{
		{ID: "a", Files: []string{"mods/a.jar"}},
		{ID: "b", Files: []string{"mods/b.jar"}},
	})
	require.NoError(t, err)

	removed, err := lf.UpdatePackage(ctx, testOutput(), "demo", "pkg-a", []Addon{
		{ID: "a", Files: []string{"mods/a.jar"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mods/b.jar"}, removed)
}

func TestInstanceIdentityAndTeardownClear(t *testing.T) {
	lf, err := Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	lf.SetInstance("demo", Instance{Version: "1.19.2", GameModificationVersion: "1.0.0", ClientType: "fabric"})
	inst, ok := lf.GetInstance("demo")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", inst.GameModificationVersion)

	lf.ClearGameModificationVersion("demo")
	inst, ok = lf.GetInstance("demo")
	require.True(t, ok)
	assert.Empty(t, inst.GameModificationVersion)
	assert.Equal(t, "1.19.2", inst.Version, "clearing the modification version must not disturb the game version")
}

func TestFirstUpdateTracking(t *testing.T) {
	lf, err := Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	assert.False(t, lf.HasDoneFirstUpdate("demo"))
	lf.MarkFirstUpdateDone("demo")
	assert.True(t, lf.HasDoneFirstUpdate("demo"))
}

func TestRemoveUnusedPackages(t *testing.T) {
	ctx := context.Background()
	lf, err := Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	_, err = lf.UpdatePackage(ctx, testOutput(), "demo", "kept", []Addon{{ID: "a", Files: []string{"mods/a.jar"}}})
	require.NoError(t, err)
	_, err = lf.UpdatePackage(ctx, testOutput(), "demo", "dropped", []Addon{{ID: "b", Files: []string{"mods/b.jar"}}})
	require.NoError(t, err)

	removed := lf.RemoveUnusedPackages("demo", []string{"kept"})
	assert.Equal(t, []string{"mods/b.jar"}, removed)
	assert.Equal(t, []Addon{{ID: "a", Files: []string{"mods/a.jar"}}}, lf.GetPackage("demo", "kept"))
	assert.Nil(t, lf.GetPackage("demo", "dropped"))
}

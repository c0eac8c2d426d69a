package snapshot

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

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCreateExcludesAddonOwnedDirectories(t *testing.T) {
	ctx := context.Background()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)

	inst := config.Instance{ID: "demo", Side: config.Client}
	gameDir := filepath.Join(p.InstanceDir(inst.ID), inst.GameDir())

	writeFile(t, filepath.Join(gameDir, "options.txt"), "fov:90")
	writeFile(t, filepath.Join(gameDir, "saves", "world", "level.dat"), "world data")
	writeFile(t, filepath.Join(gameDir, "mods", "sodium.jar"), "mod bytes")

	entry, err := Create(ctx, p, inst, "before switch")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Greater(t, entry.SizeBytes, int64(0))

	entries, err := List(p, inst.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestCreateRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	lf, err := lockfile.Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	inst := config.Instance{ID: "demo", Side: config.Client}
	gameDir := filepath.Join(p.InstanceDir(inst.ID), inst.GameDir())
	writeFile(t, filepath.Join(gameDir, "options.txt"), "fov:90")
	writeFile(t, filepath.Join(gameDir, "saves", "world", "level.dat"), "world data")

	entry, err := Create(ctx, p, inst, "")
	require.NoError(t, err)

	// Mutate the game directory after the snapshot, then restore it.
	require.NoError(t, os.WriteFile(filepath.Join(gameDir, "options.txt"), []byte("fov:30"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(gameDir, "saves", "world", "level.dat"), []byte("corrupted"), 0o644))

	host := plugin.NewHost()
	require.NoError(t, Restore(ctx, p, lf, host, inst, entry.ID))

	data, err := os.ReadFile(filepath.Join(gameDir, "options.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fov:90", string(data))

	data, err = os.ReadFile(filepath.Join(gameDir, "saves", "world", "level.dat"))
	require.NoError(t, err)
	assert.Equal(t, "world data", string(data))
}

func TestRestoreUnknownSnapshotErrors(t *testing.T) {
	ctx := context.Background()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	lf, err := lockfile.Open(filepath.Join(t.TempDir(), "lock.json"))
	require.NoError(t, err)

	inst := config.Instance{ID: "demo", Side: config.Client}
	err = Restore(ctx, p, lf, plugin.NewHost(), inst, "does-not-exist")
	assert.Error(t, err)
}

func TestListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	inst := config.Instance{ID: "demo", Side: config.Client}
	writeFile(t, filepath.Join(p.InstanceDir(inst.ID), inst.GameDir(), "options.txt"), "x")

	first, err := Create(ctx, p, inst, "first")
	require.NoError(t, err)
	second, err := Create(ctx, p, inst, "second")
	require.NoError(t, err)

	entries, err := List(p, inst.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{second.ID, first.ID}, []string{entries[0].ID, entries[1].ID})
}

package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifestFromFlatFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fabric-quilt.json"), []byte(`{"id":"fabric-quilt","name":"Fabric/Quilt","version":"1.0.0"}`), 0o644))

	m, err := LoadManifest(dir, "fabric-quilt")
	require.NoError(t, err)
	assert.Equal(t, "fabric-quilt", m.ID)
	assert.Equal(t, "1.0.0", m.Version)
}

func TestLoadManifestFromNestedDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "optifine"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "optifine", "plugin.json"), []byte(`{"id":"optifine","name":"OptiFine","version":"2.0.0"}`), 0o644))

	m, err := LoadManifest(dir, "optifine")
	require.NoError(t, err)
	assert.Equal(t, "optifine", m.ID)
}

func TestLoadManifestMissingReturnsError(t *testing.T) {
	_, err := LoadManifest(t.TempDir(), "nonexistent")
	assert.Error(t, err)
}

func hookPlugin(id string, res SetupResult, err error) Plugin {
	return Plugin{
		Manifest: Manifest{ID: id},
		Hooks: Hooks{
			OnInstanceSetup: func(ctx context.Context, in SetupInput) (SetupResult, error) {
				return res, err
			},
		},
	}
}

func TestSetupMergesNonConflictingResultsFromMultiplePlugins(t *testing.T) {
	h := NewHost()
	h.Register(hookPlugin("fabric", SetupResult{MainClassOverride: "net.fabricmc.loader.impl.launch.knot.KnotClient"}, nil))
	h.Register(hookPlugin("optifine", SetupResult{ClasspathExtension: []string{"optifine.jar"}}, nil))

	merged, err := h.Setup(context.Background(), SetupInput{})
	require.NoError(t, err)
	assert.Equal(t, "net.fabricmc.loader.impl.launch.knot.KnotClient", merged.MainClassOverride)
	assert.Equal(t, []string{"optifine.jar"}, merged.ClasspathExtension)
}

func TestSetupRejectsTwoPluginsSettingSameField(t *testing.T) {
	h := NewHost()
	h.Register(hookPlugin("fabric", SetupResult{MainClassOverride: "a.Main"}, nil))
	h.Register(hookPlugin("quilt", SetupResult{MainClassOverride: "b.Main"}, nil))

	_, err := h.Setup(context.Background(), SetupInput{})
	require.Error(t, err)
}

func TestSetupPropagatesHookError(t *testing.T) {
	h := NewHost()
	boom := assertErr("boom")
	h.Register(hookPlugin("broken", SetupResult{}, boom))

	_, err := h.Setup(context.Background(), SetupInput{})
	assert.Error(t, err)
}

func TestSetupSkipsPluginsWithoutTheHook(t *testing.T) {
	h := NewHost()
	h.Register(Plugin{Manifest: Manifest{ID: "passive"}})
	merged, err := h.Setup(context.Background(), SetupInput{})
	require.NoError(t, err)
	assert.Equal(t, SetupResult{}, merged)
}

func TestRemoveGameModificationInvokesEveryImplementingPlugin(t *testing.T) {
	h := NewHost()
	var calledA, calledB bool
	h.Register(Plugin{Manifest: Manifest{ID: "a"}, Hooks: Hooks{RemoveGameModification: func(ctx context.Context, in SetupInput) error {
		calledA = true
		return nil
	}}})
	h.Register(Plugin{Manifest: Manifest{ID: "b"}, Hooks: Hooks{RemoveGameModification: func(ctx context.Context, in SetupInput) error {
		calledB = true
		return nil
	}}})
	require.NoError(t, h.RemoveGameModification(context.Background(), SetupInput{}))
	assert.True(t, calledA)
	assert.True(t, calledB)
}

func TestCustomInstructionDispatchesToFirstHandlingPlugin(t *testing.T) {
	h := NewHost()
	h.Register(Plugin{Manifest: Manifest{ID: "uninterested"}, Hooks: Hooks{CustomPackageInstruction: func(ctx context.Context, pkgID, command string, args []string) (CustomResult, bool, error) {
		return CustomResult{}, false, nil
	}}})
	h.Register(Plugin{Manifest: Manifest{ID: "handler"}, Hooks: Hooks{CustomPackageInstruction: func(ctx context.Context, pkgID, command string, args []string) (CustomResult, bool, error) {
		return CustomResult{Notices: []string{"handled"}}, true, nil
	}}})

	res, err := h.CustomInstruction(context.Background(), "some-pkg", "do-thing", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"handled"}, res.Notices)
}

func TestCustomInstructionUnhandledReturnsError(t *testing.T) {
	h := NewHost()
	_, err := h.CustomInstruction(context.Background(), "some-pkg", "do-thing", nil)
	assert.Error(t, err)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

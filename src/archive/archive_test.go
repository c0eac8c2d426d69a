package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestExtractZipDetectsSingleRootDirectory(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "a.zip")
	writeZip(t, zipPath, map[string]string{
		"adoptium-17/bin/java":    "x",
		"adoptium-17/lib/jvm.so":  "y",
	})

	dest := filepath.Join(dir, "out")
	res, err := ExtractZip(zipPath, dest)
	require.NoError(t, err)
	assert.Equal(t, "adoptium-17", res.RootDirName)

	data, err := os.ReadFile(filepath.Join(dest, "adoptium-17", "bin", "java"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestExtractZipRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "../../etc/passwd"})
	require.NoError(t, err)
	_, _ = w.Write([]byte("pwned"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ExtractZip(zipPath, filepath.Join(dir, "out"))
	assert.Error(t, err)
}

func TestExtractZipRejectsAbsolutePathEntry(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "/etc/passwd"})
	require.NoError(t, err)
	_, _ = w.Write([]byte("pwned"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ExtractZip(zipPath, filepath.Join(dir, "out"))
	assert.Error(t, err)
}

func TestExtractZipRejectsDuplicateEntryCollision(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "dup.zip")

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for i := 0; i < 2; i++ {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: "same.txt"})
		require.NoError(t, err)
		_, _ = w.Write([]byte("x"))
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ExtractZip(zipPath, filepath.Join(dir, "out"))
	assert.Error(t, err)
}

func TestNativeLibraryMatchesKnownExtensionsOnly(t *testing.T) {
	assert.True(t, NativeLibrary("lwjgl/liblwjgl.so", nil))
	assert.True(t, NativeLibrary("lwjgl/lwjgl.dylib", nil))
	assert.True(t, NativeLibrary("lwjgl/lwjgl.dll", nil))
	assert.False(t, NativeLibrary("lwjgl/README.txt", nil))
}

func TestNativeLibraryHonorsExcludePrefix(t *testing.T) {
	assert.False(t, NativeLibrary("META-INF/liblwjgl.so", []string{"META-INF/"}))
	assert.True(t, NativeLibrary("liblwjgl.so", []string{"META-INF/"}))
}

func TestExtractNativesFlattensToFileNameAndSkipsExcluded(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "natives.zip")
	writeZip(t, zipPath, map[string]string{
		"META-INF/MANIFEST.MF":        "manifest",
		"org/lwjgl/natives/liblwjgl.so": "nativebytes",
	})

	dest := filepath.Join(dir, "natives")
	err := ExtractNatives(zipPath, dest, []string{"META-INF/"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "liblwjgl.so"))
	require.NoError(t, err)
	assert.Equal(t, "nativebytes", string(data))

	_, err = os.Stat(filepath.Join(dest, "MANIFEST.MF"))
	assert.True(t, os.IsNotExist(err))
}

// Package paths defines the canonical directory layout mcvm persists
// its state under, matching the on-disk layout documented for the
// system: config, internal caches, assets, libraries, jars, java
// installs, plugins, snapshots, and per-instance roots.
package paths

import (
	"os"
	"path/filepath"
)

// Paths is the canonical set of directories mcvm reads from and writes
// to. All fields are absolute paths rooted under a single data
// directory so that an embedder can redirect the entire tree (tests,
// portable installs) by constructing a different root.
type Paths struct {
	Root      string
	Config    string
	Internal  string
	Assets    string
	Libraries string
	Jars      string
	Java      string
	Plugins   string
	Snapshots string
	Instances string
	Addons    string
}

// New builds a Paths rooted at root, ensuring every directory exists.
func New(root string) (*Paths, error) {
	p := &Paths{
		Root:      root,
		Config:    filepath.Join(root, "config"),
		Internal:  filepath.Join(root, "internal"),
		Assets:    filepath.Join(root, "assets"),
		Libraries: filepath.Join(root, "internal", "libraries"),
		Jars:      filepath.Join(root, "internal", "jars"),
		Java:      filepath.Join(root, "java"),
		Plugins:   filepath.Join(root, "plugins"),
		Snapshots: filepath.Join(root, "snapshots"),
		Instances: filepath.Join(root, "instances"),
		Addons:    filepath.Join(root, "addons"),
	}
	for _, dir := range []string{p.Root, p.Config, p.Internal, p.Assets, p.Libraries, p.Jars, p.Java, p.Plugins, p.Snapshots, p.Instances, p.Addons} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Default resolves a platform-appropriate data root: $MCVM_DATA_DIR if
// set, else the user's OS config directory joined with "mcvm".
func Default() (*Paths, error) {
	if dir := os.Getenv("MCVM_DATA_DIR"); dir != "" {
		return New(dir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return New(filepath.Join(base, "mcvm"))
}

// InstanceDir returns the root directory for an instance.
func (p *Paths) InstanceDir(instanceID string) string {
	return filepath.Join(p.Instances, instanceID)
}

// VersionsDir returns the internal/versions directory (manifest cache,
// per-version client meta, extracted natives).
func (p *Paths) VersionsDir() string {
	return filepath.Join(p.Internal, "versions")
}

// VersionDir returns internal/versions/<version>.
func (p *Paths) VersionDir(version string) string {
	return filepath.Join(p.VersionsDir(), version)
}

// NativesDir returns internal/versions/<version>/natives.
func (p *Paths) NativesDir(version string) string {
	return filepath.Join(p.VersionDir(version), "natives")
}

// ProfileKeysDir returns instances/<id>/profilekeys.
func (p *Paths) ProfileKeysDir(instanceID string) string {
	return filepath.Join(p.InstanceDir(instanceID), "profilekeys")
}

// Package addon implements the content-addressed addon store, the
// per-kind/version-era target path rules, and the install workflow
// that fetches, verifies, and materializes addons into an instance's
// game directory.
package addon

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/lockfile"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcoutput"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
)

// Addon is a single downloadable file belonging to a package.
type Addon struct {
	Kind     config.AddonKind
	ID       string
	FileName string
	PkgID    string
	Version  string // empty means "unknown" — mutable, refetched every update
	URL      string
	SHA256   string
	SHA512   string
}

// StorePath returns the content-addressed path an addon's bytes are
// stored at: version-qualified and immutable when Version is set,
// else instance-qualified and mutable.
func StorePath(p *paths.Paths, a Addon, instanceID string) string {
	base := filepath.Join(p.Addons, a.Kind.Plural(), a.PkgID, a.ID)
	if a.Version != "" {
		return filepath.Join(base, a.Version)
	}
	return base + "_" + instanceID
}

// TargetPaths computes every materialized path for addon a within
// instance inst, per the addon's kind and the instance's version era. worlds is
// the list of saved world directory names already present on disk,
// needed for Datapack fan-out.
func TargetPaths(p *paths.Paths, inst config.Instance, a Addon, versionList []string, requestedWorlds []string, worlds []string) ([]string, error) {
	gameDir := filepath.Join(p.InstanceDir(inst.ID), inst.GameDir())
	switch a.Kind {
	case config.KindResourcePack:
		dir := "resourcepacks"
		if idx, ref := indexOf(versionList, "13w24a"), indexOf(versionList, inst.Version); ref >= 0 && idx >= 0 && ref < idx {
			dir = "texturepacks"
		}
		return []string{filepath.Join(gameDir, dir, a.FileName)}, nil

	case config.KindMod:
		return []string{filepath.Join(gameDir, "mods", a.FileName)}, nil

	case config.KindPlugin:
		return []string{filepath.Join(gameDir, "plugins", a.FileName)}, nil

	case config.KindShader:
		return []string{filepath.Join(gameDir, "shaderpacks", a.FileName)}, nil

	case config.KindDatapack:
		if inst.DatapackFolderOverride != "" {
			return []string{filepath.Join(inst.DatapackFolderOverride, a.FileName)}, nil
		}
		if inst.Side == config.Server {
			world := "world"
			if len(worlds) > 0 {
				world = worlds[0]
			}
			return []string{filepath.Join(gameDir, world, "datapacks", a.FileName)}, nil
		}
		selected := worlds
		if len(requestedWorlds) > 0 {
			selected = intersect(worlds, requestedWorlds)
		}
		paths := make([]string, 0, len(selected))
		for _, w := range selected {
			paths = append(paths, filepath.Join(gameDir, "saves", w, "datapacks", a.FileName))
		}
		return paths, nil

	default:
		return nil, fmt.Errorf("unknown addon kind %q", a.Kind)
	}
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func intersect(have, want []string) []string {
	wantSet := make(map[string]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	var out []string
	for _, h := range have {
		if wantSet[h] {
			out = append(out, h)
		}
	}
	return out
}

func verifyHashes(path string, a Addon) error {
	if a.SHA256 == "" && a.SHA512 == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if a.SHA256 != "" {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != a.SHA256 {
			return &mcerrors.ChecksumError{Path: path, Expected: a.SHA256, Actual: hex.EncodeToString(sum[:])}
		}
	}
	if a.SHA512 != "" {
		sum := sha512.Sum512(data)
		if hex.EncodeToString(sum[:]) != a.SHA512 {
			return &mcerrors.ChecksumError{Path: path, Expected: a.SHA512, Actual: hex.EncodeToString(sum[:])}
		}
	}
	return nil
}

// Install fetches every addon not already present in the store,
// reconciles the lockfile's record of this package's materialized
// paths, and links/copies each addon into its target paths. It
// deletes the now-unused paths (those not owned by any addon in the
// new set) and returns their list.
func Install(ctx context.Context, client *download.Client, out mcoutput.Output, p *paths.Paths, lf *lockfile.Lockfile, inst config.Instance, pkgID string, addons []Addon, versionList []string, requestedWorlds, worlds []string) ([]string, error) {
	type materialized struct {
		addon   Addon
		storePath string
		targets []string
	}
	plan := make([]materialized, 0, len(addons))
	seen := map[string]bool{}

	for _, a := range addons {
		targets, err := TargetPaths(p, inst, a, versionList, requestedWorlds, worlds)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			if seen[t] {
				return nil, fmt.Errorf("addon filename collision: %q is targeted by more than one addon", t)
			}
			seen[t] = true
		}
		plan = append(plan, materialized{addon: a, storePath: StorePath(p, a, inst.ID), targets: targets})
	}

	lockAddons := make([]lockfile.Addon, 0, len(plan))
	for _, m := range plan {
		lockAddons = append(lockAddons, lockfile.Addon{
			ID: m.addon.ID, FileName: m.addon.FileName, Files: m.targets,
			Kind: string(m.addon.Kind), Version: m.addon.Version,
			SHA256: m.addon.SHA256, SHA512: m.addon.SHA512,
		})
	}

	var jobs []download.Job
	var completed int64
	var pendingCount int
	for _, m := range plan {
		if _, err := os.Stat(m.storePath); err != nil {
			pendingCount++
		}
	}
	for _, m := range plan {
		if _, err := os.Stat(m.storePath); err == nil {
			continue
		}
		m := m
		jobs = append(jobs, download.Job{Run: func(ctx context.Context) error {
			if err := client.ToFile(ctx, "addon", m.addon.URL, m.storePath, nil); err != nil {
				return err
			}
			if err := verifyHashes(m.storePath, m.addon); err != nil {
				os.Remove(m.storePath)
				return err
			}
			n := int(atomic.AddInt64(&completed, 1))
			out.Progress(ctx, mcoutput.Progress{Stage: "addons", Current: n, Total: pendingCount})
			return nil
		}})
	}
	if err := download.RunBatch(ctx, jobs); err != nil {
		return nil, err
	}

	toRemove, err := lf.UpdatePackage(ctx, out, inst.ID, pkgID, lockAddons)
	if err != nil {
		return nil, err
	}

	for _, m := range plan {
		for _, target := range m.targets {
			if err := materializeOne(m.storePath, target); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(toRemove)
	for _, path := range toRemove {
		if _, err := os.Stat(path); err == nil {
			_ = os.Remove(path)
		}
	}

	return toRemove, nil
}

func materializeOne(src, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	_ = os.Remove(target)
	if err := os.Link(src, target); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

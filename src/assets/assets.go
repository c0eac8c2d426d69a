// Package assets implements the asset index fetch and the
// content-addressed asset store: hash-path construction, the
// virtual-directory layout required by client versions before
// 13w48b, should_update_file gating, and a bounded-concurrency
// download pass ordered largest-first so the slowest transfers start
// immediately.
package assets

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/mcvm-launcher/mcvm-sub000/src/cache"
	"github.com/mcvm-launcher/mcvm-sub000/src/clientmeta"
	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcoutput"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
)

// legacyCutoff is the first client version that no longer uses the flat
// "virtual/legacy" asset layout; every version before it does.
const legacyCutoff = "13w48b"

// Object is one entry in an asset index: the asset's logical path
// within the game's assets/ tree, its sha1 hash, and its size.
type Object struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// Index is the parsed asset index document.
type Index struct {
	Objects map[string]Object `json:"objects"`
	Virtual bool               `json:"virtual,omitempty"`
	MapToResources bool        `json:"map_to_resources,omitempty"`
}

func indexPath(p *paths.Paths, indexID string) string {
	return filepath.Join(p.Internal, "assets", "indexes", indexID+".json")
}

// ObjectPath returns the content-addressed store path for a hash:
// objects/<hash[0:2]>/<hash>.
func ObjectPath(p *paths.Paths, hash string) string {
	if len(hash) < 2 {
		return filepath.Join(p.Assets, "objects", hash)
	}
	return filepath.Join(p.Assets, "objects", hash[:2], hash)
}

func virtualPath(p *paths.Paths, assetPath string) string {
	return filepath.Join(p.Assets, "virtual", "legacy", assetPath)
}

// FetchIndex downloads (or reuses a cached copy of) the asset index
// named by meta.AssetIndex.
func FetchIndex(ctx context.Context, client *download.Client, p *paths.Paths, meta *clientmeta.ClientMeta, allowOffline bool, backend cache.Backend) (*Index, error) {
	if backend == nil {
		backend = cache.FileBackend{}
	}
	path := indexPath(p, meta.AssetIndex.ID)

	if allowOffline {
		if raw, ok, err := backend.Get(ctx, path); err == nil && ok {
			var idx Index
			if jerr := json.Unmarshal(raw, &idx); jerr == nil {
				return &idx, nil
			}
		}
	}

	raw, err := client.Bytes(ctx, "asset_index", meta.AssetIndex.URL)
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, &mcerrors.ParseError{Source: meta.AssetIndex.URL, Err: err}
	}
	_ = backend.Put(ctx, path, raw)
	return &idx, nil
}

func shouldUpdateFile(path string, want Object) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Size() != want.Size
}

// pendingAsset is one object that needs fetching, paired with its
// logical path for the legacy virtual-directory hardlink step.
type pendingAsset struct {
	logicalPath string
	hash        string
	size        int64
}

// Get fetches every missing or size-mismatched object referenced by
// idx into the content-addressed store, largest objects first so the
// longest transfers are in flight for the whole batch, then — for
// client versions before legacyCutoff — hardlinks each object
// into assets/virtual/legacy/<logical path> so the game's flat-layout
// expectations are satisfied without doubling disk usage.
func Get(ctx context.Context, client *download.Client, out mcoutput.Output, p *paths.Paths, meta *clientmeta.ClientMeta, idx *Index, isLegacy bool) error {
	pending := make([]pendingAsset, 0, len(idx.Objects))
	for logical, obj := range idx.Objects {
		dest := ObjectPath(p, obj.Hash)
		if shouldUpdateFile(dest, obj) {
			pending = append(pending, pendingAsset{logicalPath: logical, hash: obj.Hash, size: obj.Size})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].size > pending[j].size })

	var completed int64
	total := len(pending)
	jobs := make([]download.Job, 0, len(pending))
	for _, a := range pending {
		a := a
		jobs = append(jobs, download.Job{Run: func(ctx context.Context) error {
			url := "https://resources.download.minecraft.net/" + a.hash[:2] + "/" + a.hash
			dest := ObjectPath(p, a.hash)
			if err := client.ToFile(ctx, "asset", url, dest, nil); err != nil {
				return err
			}
			n := int(atomic.AddInt64(&completed, 1))
			out.Progress(ctx, mcoutput.Progress{Stage: "assets", Current: n, Total: total})
			return nil
		}})
	}
	if err := download.RunBatch(ctx, jobs); err != nil {
		return err
	}

	if isLegacy || idx.Virtual {
		for _, a := range pending {
			if err := linkVirtual(p, a); err != nil {
				return err
			}
		}
		// Objects already present before this run also need their
		// legacy link if it's missing (e.g. a prior run fetched the
		// object but was interrupted before linking).
		for logical, obj := range idx.Objects {
			vp := virtualPath(p, logical)
			if _, err := os.Stat(vp); err == nil {
				continue
			}
			if err := linkVirtual(p, pendingAsset{logicalPath: logical, hash: obj.Hash}); err != nil {
				return err
			}
		}
	}
	return nil
}

func linkVirtual(p *paths.Paths, a pendingAsset) error {
	vp := virtualPath(p, a.logicalPath)
	if err := os.MkdirAll(filepath.Dir(vp), 0o755); err != nil {
		return err
	}
	src := ObjectPath(p, a.hash)
	_ = os.Remove(vp)
	if err := os.Link(src, vp); err != nil {
		// Cross-device or unsupported hardlink: fall back to a copy.
		data, rerr := os.ReadFile(src)
		if rerr != nil {
			return rerr
		}
		return os.WriteFile(vp, data, 0o644)
	}
	return nil
}

// IsLegacy reports whether the given client version predates the
// content-addressed asset layout and therefore needs virtual linking.
func IsLegacy(versionList []string, version string) bool {
	vi, ci := indexOf(versionList, version), indexOf(versionList, legacyCutoff)
	if vi < 0 || ci < 0 {
		return false
	}
	return vi < ci
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

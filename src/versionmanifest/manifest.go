// Package versionmanifest fetches and caches Mojang's version manifest,
// and implements the version pattern matching over its ordered version
// list (Single/Before/After/Range/Latest) from the data model.
package versionmanifest

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub000/src/cache"
	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
)

const manifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// VersionType is the kind of a version entry.
type VersionType string

const (
	TypeRelease  VersionType = "release"
	TypeSnapshot VersionType = "snapshot"
	TypeOldAlpha VersionType = "old_alpha"
	TypeOldBeta  VersionType = "old_beta"
)

// Entry is one version in the manifest, as published by Mojang.
type Entry struct {
	ID  string      `json:"id"`
	Typ VersionType `json:"type"`
	URL string      `json:"url"`
}

// Manifest is the raw, newest-first manifest document.
type Manifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []Entry `json:"versions"`
}

// ManifestAndList pairs the manifest with an oldest-to-newest ordered
// id list used for pattern matching.
type ManifestAndList struct {
	Manifest Manifest
	List     []string // oldest -> newest
	byID     map[string]Entry
}

// NewManifestAndList builds the oldest->newest list from a freshly
// parsed manifest (which is published newest-first).
func NewManifestAndList(m Manifest) *ManifestAndList {
	list := make([]string, len(m.Versions))
	byID := make(map[string]Entry, len(m.Versions))
	for i, e := range m.Versions {
		list[len(m.Versions)-1-i] = e.ID
		byID[e.ID] = e
	}
	return &ManifestAndList{Manifest: m, List: list, byID: byID}
}

// Entry looks up a version's manifest entry by id.
func (ml *ManifestAndList) Entry(id string) (Entry, bool) {
	e, ok := ml.byID[id]
	return e, ok
}

// Index returns the position of id in the oldest->newest list, or -1.
func (ml *ManifestAndList) Index(id string) int {
	for i, v := range ml.List {
		if v == id {
			return i
		}
	}
	return -1
}

func manifestPath(internalDir string) string {
	return filepath.Join(internalDir, "versions", "manifest.json")
}

// Fetch implements the cache-then-network algorithm: read the cached
// manifest.json if allowOffline and present, else download, write,
// and parse; on a parse failure of a previously cached copy, retry
// exactly once with a forced network fetch. backend stores the cached
// bytes; a nil backend uses the plain on-disk layout (cache.FileBackend),
// which is what a solo embedder wants. A fleet sharing one cache across
// build machines passes a cache.Chain wrapping a cache.RedisBackend in
// front of it instead.
func Fetch(ctx context.Context, client *download.Client, internalDir string, allowOffline, force bool, backend cache.Backend) (*ManifestAndList, error) {
	if backend == nil {
		backend = cache.FileBackend{}
	}
	path := manifestPath(internalDir)

	if allowOffline && !force {
		if raw, ok, err := backend.Get(ctx, path); err == nil && ok {
			var m Manifest
			if jerr := json.Unmarshal(raw, &m); jerr == nil {
				return NewManifestAndList(m), nil
			}
			// Cached copy is corrupt; fall through to a forced refetch.
		}
	}

	raw, err := client.Bytes(ctx, "version_manifest", manifestURL)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &mcerrors.ParseError{Source: manifestURL, Err: err}
	}
	_ = backend.Put(ctx, path, raw)
	return NewManifestAndList(m), nil
}

// Pattern is a version identifier as described in the data model:
// Single/Before/After/Range/Latest, matched against the known ordered
// version list.
type Pattern struct {
	Kind  PatternKind
	A, B  string // Single/Before/After use A; Range uses A and B
}

type PatternKind int

const (
	PatternSingle PatternKind = iota
	PatternBefore
	PatternAfter
	PatternRange
	PatternLatest
)

// ParsePattern parses the textual forms used in instance configs:
// "1.19.2", "<=1.19.2", ">=1.19.2", "1.18.2..1.19.2", "latest".
func ParsePattern(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "latest" || s == "":
		return Pattern{Kind: PatternLatest}, nil
	case strings.HasPrefix(s, "<="):
		return Pattern{Kind: PatternBefore, A: strings.TrimPrefix(s, "<=")}, nil
	case strings.HasPrefix(s, ">="):
		return Pattern{Kind: PatternAfter, A: strings.TrimPrefix(s, ">=")}, nil
	case strings.Contains(s, ".."):
		parts := strings.SplitN(s, "..", 2)
		if len(parts) != 2 {
			return Pattern{}, fmt.Errorf("invalid version range %q", s)
		}
		return Pattern{Kind: PatternRange, A: parts[0], B: parts[1]}, nil
	default:
		return Pattern{Kind: PatternSingle, A: s}, nil
	}
}

// Matches reports whether version w satisfies the pattern against the
// ordered oldest->newest list. Unknown versions never match.
func (p Pattern) Matches(list []string, w string) bool {
	idx := indexOf(list, w)
	if idx < 0 {
		return false
	}
	switch p.Kind {
	case PatternLatest:
		return idx == len(list)-1
	case PatternSingle:
		return w == p.A
	case PatternBefore:
		ai := indexOf(list, p.A)
		return ai >= 0 && idx <= ai
	case PatternAfter:
		ai := indexOf(list, p.A)
		return ai >= 0 && idx >= ai
	case PatternRange:
		ai, bi := indexOf(list, p.A), indexOf(list, p.B)
		return ai >= 0 && bi >= 0 && idx >= ai && idx <= bi
	default:
		return false
	}
}

// Resolve finds the concrete version that the pattern refers to: for
// Latest, the newest entry in list; for Single, that version if known;
// for Before/After/Range, the newest matching version (consistent with
// a user requesting "as new as possible" within the bound).
func (p Pattern) Resolve(list []string) (string, error) {
	switch p.Kind {
	case PatternLatest:
		if len(list) == 0 {
			return "", fmt.Errorf("version list is empty")
		}
		return list[len(list)-1], nil
	case PatternSingle:
		if indexOf(list, p.A) < 0 {
			return "", fmt.Errorf("unknown version %q", p.A)
		}
		return p.A, nil
	case PatternBefore:
		if indexOf(list, p.A) < 0 {
			return "", fmt.Errorf("unknown version %q", p.A)
		}
		return p.A, nil
	case PatternAfter:
		if len(list) == 0 {
			return "", fmt.Errorf("version list is empty")
		}
		return list[len(list)-1], nil
	case PatternRange:
		if indexOf(list, p.B) < 0 {
			return "", fmt.Errorf("unknown version %q", p.B)
		}
		return p.B, nil
	default:
		return "", fmt.Errorf("unrecognised version pattern")
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

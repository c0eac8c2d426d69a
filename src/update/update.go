// Package update implements the Update Manager: accumulates
// requirements across a batch of instances, fulfills them in
// dependency order, and threads should_update_file gating through the
// whole pass.
package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcvm-launcher/mcvm-sub000/src/assets"
	"github.com/mcvm-launcher/mcvm-sub000/src/cache"
	"github.com/mcvm-launcher/mcvm-sub000/src/clientmeta"
	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/java"
	"github.com/mcvm-launcher/mcvm-sub000/src/javareg"
	"github.com/mcvm-launcher/mcvm-sub000/src/libraries"
	"github.com/mcvm-launcher/mcvm-sub000/src/logging"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcoutput"
	"github.com/mcvm-launcher/mcvm-sub000/src/modloader"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
	"github.com/mcvm-launcher/mcvm-sub000/src/versionmanifest"

	"go.opentelemetry.io/otel"
)

// tracer instruments each update stage with a span. With no SDK
// configured (the default for an embedding application), it's the
// global no-op tracer, so this costs nothing unless the embedder wires
// a real exporter via the otel SDK.
var tracer = otel.Tracer("github.com/mcvm-launcher/mcvm-sub000/src/update")

// Requirement is one prerequisite the update engine must fulfill
// before instance setup.
type Requirement int

const (
	ReqClientMeta Requirement = iota
	ReqGameAssets
	ReqGameLibraries
	ReqJava
	ReqGameJar
	ReqClientLoggingConfig
	ReqFabricQuilt
)

// Side names which game jar / loader libraries a requirement targets.
type Side string

const (
	SideClient Side = "client"
	SideServer Side = "server"
)

// GameJarPath is the shared, version-keyed cache location a fulfilled
// ReqGameJar requirement writes to. Every instance on the same version
// and side reads from this same file; callers that need a
// per-instance copy (for example so that tearing down one instance's
// identity doesn't touch files another instance still depends on)
// must materialize it themselves.
func GameJarPath(p *paths.Paths, version string, side Side) string {
	return filepath.Join(p.Jars, fmt.Sprintf("%s_%s.jar", version, side))
}

// Manager accumulates requirements for a batch and fulfills them,
// caching shared results (version info, client meta) across instances
// in the same batch.
type Manager struct {
	log    logging.Logger
	client *download.Client
	paths  *paths.Paths
	javaReg *javareg.Registry
	cache   cache.Backend

	requested map[Requirement]bool
	javaFlavors map[java.Flavor]bool

	VersionInfo *versionmanifest.ManifestAndList
	Version     string
	Meta        *clientmeta.ClientMeta
	ClientLibraryPaths []string
	JavaInstallation   java.Installation
	ModloaderResult    *modloader.Result
	UpdatedFiles       []string
}

// NewManager constructs an empty requirement set for one batch. backend
// is the shared cache the manifest/meta/asset-index fetches read and
// write through; pass nil to use the plain on-disk layout.
func NewManager(log logging.Logger, client *download.Client, p *paths.Paths, reg *javareg.Registry, backend cache.Backend) *Manager {
	return &Manager{
		log: log, client: client, paths: p, javaReg: reg, cache: backend,
		requested:   map[Requirement]bool{},
		javaFlavors: map[java.Flavor]bool{},
	}
}

// Require records that requirement r (for the given java flavor, when
// r is ReqJava) is needed by this batch.
func (m *Manager) Require(r Requirement, flavor java.Flavor) {
	m.requested[r] = true
	if r == ReqJava {
		m.javaFlavors[flavor] = true
	}
}

// ShouldUpdateFile reports whether path needs a fresh fetch: in force
// mode, a file is stale unless it was already updated this run and
// still exists; otherwise a file is stale only if missing.
func (m *Manager) ShouldUpdateFile(path string, force bool) bool {
	if !force {
		_, err := os.Stat(path)
		return err != nil
	}
	for _, u := range m.UpdatedFiles {
		if u == path {
			if _, err := os.Stat(path); err == nil {
				return false
			}
		}
	}
	return true
}

// FulfillRequirements resolves every accumulated requirement, pulling
// in client meta automatically whenever a requirement needs it.
func (m *Manager) FulfillRequirements(ctx context.Context, out mcoutput.Output, versionPattern string, javaMajor int, allowOffline, forceJava bool) error {
	if m.VersionInfo == nil {
		spanCtx, span := tracer.Start(ctx, "update.version_manifest")
		ml, err := versionmanifest.Fetch(spanCtx, m.client, m.paths.Internal, allowOffline, false, m.cache)
		if err != nil {
			span.End()
			return fmt.Errorf("fulfilling version_manifest requirement: %w", err)
		}
		m.VersionInfo = ml

		pattern, err := versionmanifest.ParsePattern(versionPattern)
		if err != nil {
			span.End()
			return fmt.Errorf("parsing version pattern %q: %w", versionPattern, err)
		}
		version, err := pattern.Resolve(ml.List)
		span.End()
		if err != nil {
			return fmt.Errorf("resolving version pattern %q: %w", versionPattern, err)
		}
		m.Version = version
	}

	needsMeta := m.requested[ReqJava] || m.requested[ReqGameJar] || m.requested[ReqGameAssets] || m.requested[ReqGameLibraries]
	if needsMeta || m.requested[ReqClientMeta] {
		m.requested[ReqClientMeta] = true
	}

	if m.requested[ReqClientMeta] && m.Meta == nil {
		spanCtx, span := tracer.Start(ctx, "update.client_meta")
		entry, ok := m.VersionInfo.Entry(m.Version)
		if !ok {
			span.End()
			return fmt.Errorf("fulfilling client_meta requirement: unknown version %q", m.Version)
		}
		meta, err := clientmeta.Fetch(spanCtx, m.client, m.paths.VersionsDir(), m.Version, entry.URL, allowOffline, m.cache)
		span.End()
		if err != nil {
			return fmt.Errorf("fulfilling client_meta requirement: %w", err)
		}
		m.Meta = meta
	}

	if m.requested[ReqGameAssets] {
		spanCtx, span := tracer.Start(ctx, "update.assets")
		idx, err := assets.FetchIndex(spanCtx, m.client, m.paths, m.Meta, allowOffline, m.cache)
		if err != nil {
			span.End()
			return fmt.Errorf("fulfilling assets requirement: %w", err)
		}
		isLegacy := assets.IsLegacy(m.VersionInfo.List, m.Version)
		err = assets.Get(spanCtx, m.client, out, m.paths, m.Meta, idx, isLegacy)
		span.End()
		if err != nil {
			return fmt.Errorf("fulfilling assets requirement: %w", err)
		}
	}

	if m.requested[ReqGameLibraries] {
		spanCtx, span := tracer.Start(ctx, "update.libraries")
		natives := m.paths.NativesDir(m.Version)
		paths, err := libraries.Get(spanCtx, m.client, out, m.paths, m.Meta, natives)
		span.End()
		if err != nil {
			return fmt.Errorf("fulfilling libraries requirement: %w", err)
		}
		m.ClientLibraryPaths = paths
	}

	if m.requested[ReqJava] {
		spanCtx, span := tracer.Start(ctx, "update.java")
		for flavor := range m.javaFlavors {
			major := javaMajor
			if major == 0 {
				major = m.Meta.JavaMajorVersion()
			}
			inst, err := java.Install(spanCtx, m.client, m.log, m.javaReg, m.paths, flavor, major, allowOffline && !forceJava)
			if err != nil {
				span.End()
				return fmt.Errorf("fulfilling java requirement for flavor %s: %w", flavor, err)
			}
			m.JavaInstallation = inst
		}
		span.End()
	}

	if m.requested[ReqGameJar] {
		for _, side := range []Side{SideClient, SideServer} {
			var dl *clientmeta.Download
			if side == SideClient {
				dl = &m.Meta.Downloads.Client
			} else {
				dl = &m.Meta.Downloads.Server
			}
			if dl.URL == "" {
				continue
			}
			dest := GameJarPath(m.paths, m.Version, side)
			if !m.ShouldUpdateFile(dest, false) {
				continue
			}
			if err := m.client.ToFile(ctx, "game_jar", dl.URL, dest, nil); err != nil {
				return fmt.Errorf("fulfilling game_jar requirement for %s: %w", side, err)
			}
			m.UpdatedFiles = append(m.UpdatedFiles, dest)
		}
	}

	if m.requested[ReqClientLoggingConfig] && m.Meta.Logging.Client.File.URL != "" {
		dest := filepath.Join(m.paths.VersionDir(m.Version), "log4j.xml")
		if m.ShouldUpdateFile(dest, false) {
			if err := m.client.ToFile(ctx, "logging_config", m.Meta.Logging.Client.File.URL, dest, nil); err != nil {
				return fmt.Errorf("fulfilling logging config requirement: %w", err)
			}
			m.UpdatedFiles = append(m.UpdatedFiles, dest)
		}
	}

	return nil
}

// FulfillFabricQuilt resolves the Fabric/Quilt requirement for a
// specific instance — separate from the shared batch state because
// the loader and side are per-instance.
func (m *Manager) FulfillFabricQuilt(ctx context.Context, loader modloader.Loader, isClient bool) error {
	res, err := modloader.Fetch(ctx, m.client, m.paths, loader, m.Version, isClient)
	if err != nil {
		return fmt.Errorf("fulfilling fabric/quilt requirement: %w", err)
	}
	m.ModloaderResult = res
	return nil
}

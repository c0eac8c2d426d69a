package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/mcvm-launcher/mcvm-sub000/src/cache"
	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/javareg"
	"github.com/mcvm-launcher/mcvm-sub000/src/lockfile"
	"github.com/mcvm-launcher/mcvm-sub000/src/logging"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcoutput"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
)

// env bundles the collaborators every subcommand needs, built fresh
// per invocation the way a short-lived CLI process should — an
// embedder holding these across many calls would construct them once
// and reuse them instead.
type env struct {
	paths   *paths.Paths
	client  *download.Client
	log     logging.Logger
	out     mcoutput.Output
	javaReg *javareg.Registry
	lock    *lockfile.Lockfile
	cache   cache.Backend
}

func newEnv(component string) (*env, error) {
	p, err := paths.Default()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	log := logging.New(component)
	reg, err := javareg.Open(fmt.Sprintf("%s/java_registry.json", p.Java))
	if err != nil {
		return nil, fmt.Errorf("opening java registry: %w", err)
	}
	lock, err := lockfile.Open(fmt.Sprintf("%s/lock.json", p.Internal))
	if err != nil {
		return nil, fmt.Errorf("opening lockfile: %w", err)
	}
	return &env{
		paths:   p,
		client:  download.NewClient(),
		log:     log,
		out:     mcoutput.NewLogOutput(log),
		javaReg: reg,
		lock:    lock,
		cache:   sharedCache(),
	}, nil
}

// sharedCache builds the manifest/meta/asset-index cache chain. When
// MCVM_CACHE_REDIS_ADDR is set, a Redis tier fronts the plain on-disk
// layout so a fleet of build machines shares one cache instead of each
// re-hitting Mojang; otherwise nil falls back to file-only caching.
func sharedCache() cache.Backend {
	addr := os.Getenv("MCVM_CACHE_REDIS_ADDR")
	if addr == "" {
		return nil
	}
	redisBackend, err := cache.NewRedisBackend(addr, "mcvm:", time.Hour)
	if err != nil {
		return nil
	}
	return cache.Chain{Fast: redisBackend, Slow: cache.FileBackend{}}
}

func (e *env) Close() error {
	return e.lock.Finish()
}

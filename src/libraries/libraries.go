// Package libraries implements the Libraries Engine: rule-filtered
// selection of a version's library list, download of both base
// artifacts and per-platform native classifier jars, classpath
// composition, and native extraction into an instance's natives
// directory.
package libraries

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/mcvm-launcher/mcvm-sub000/src/archive"
	"github.com/mcvm-launcher/mcvm-sub000/src/clientmeta"
	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcoutput"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
)

// osName maps Go's GOOS to the name Mojang's rule engine uses.
func osName() string {
	switch runtime.GOOS {
	case "darwin":
		return "osx"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// archName maps Go's GOARCH to the placeholder Mojang's natives
// classifier keys substitute in as ${arch}.
func archName() string {
	switch runtime.GOARCH {
	case "amd64":
		return "64"
	case "386":
		return "32"
	case "arm64":
		return "64" // arm64 natives use the 64-bit suffix where they exist at all
	default:
		return "64"
	}
}

// GetList filters meta.Libraries down to the ones allowed on this
// host, applying rules the way clientmeta.Allowed evaluates them.
func GetList(meta *clientmeta.ClientMeta) []clientmeta.Library {
	host, arch := osName(), archName()
	out := make([]clientmeta.Library, 0, len(meta.Libraries))
	for _, lib := range meta.Libraries {
		if !clientmeta.Allowed(lib.Rules, host, arch, nil) {
			continue
		}
		out = append(out, lib)
	}
	return out
}

// nativesClassifierKey resolves the "natives-<os>" (or legacy "<os>")
// classifier key for a library, substituting ${arch} with the host's
// arch suffix, or returns "" if this library has no native classifier
// for the host.
func nativesClassifierKey(lib clientmeta.Library) string {
	if lib.Natives == nil {
		return ""
	}
	host := osName()
	key, ok := lib.Natives[host]
	if !ok {
		return ""
	}
	return strings.ReplaceAll(key, "${arch}", archName())
}

func libraryPath(p *paths.Paths, lib clientmeta.Library) string {
	if lib.Downloads.Artifact != nil && lib.Downloads.Artifact.Path != "" {
		return filepath.Join(p.Libraries, lib.Downloads.Artifact.Path)
	}
	return filepath.Join(p.Libraries, strings.ReplaceAll(lib.Name, ":", "/")+".jar")
}

// Get downloads every allowed library's base artifact and, where the
// host has a matching classifier, its natives jar, then extracts the
// natives jars into natives.
func Get(ctx context.Context, client *download.Client, out mcoutput.Output, p *paths.Paths, meta *clientmeta.ClientMeta, nativesDir string) ([]string, error) {
	list := GetList(meta)
	classpath := make([]string, 0, len(list))

	var jobs []download.Job
	var completed int64
	total := len(list)

	for _, lib := range list {
		lib := lib
		if lib.Downloads.Artifact != nil {
			dest := libraryPath(p, lib)
			classpath = append(classpath, dest)
			jobs = append(jobs, download.Job{Run: func(ctx context.Context) error {
				if err := client.ToFile(ctx, "library", lib.Downloads.Artifact.URL, dest, nil); err != nil {
					return err
				}
				n := int(atomic.AddInt64(&completed, 1))
				out.Progress(ctx, mcoutput.Progress{Stage: "libraries", Current: n, Total: total})
				return nil
			}})
		}

		if key := nativesClassifierKey(lib); key != "" {
			if native, ok := lib.Downloads.NativeClassifiers[key]; ok {
				dest := filepath.Join(p.Libraries, "natives", lib.Name+"-"+key+".jar")
				jobs = append(jobs, download.Job{Run: func(ctx context.Context) error {
					return client.ToFile(ctx, "library_natives", native.URL, dest, nil)
				}})
			}
		}
	}

	if err := download.RunBatch(ctx, jobs); err != nil {
		return nil, err
	}

	for _, lib := range list {
		if key := nativesClassifierKey(lib); key != "" {
			dest := filepath.Join(p.Libraries, "natives", lib.Name+"-"+key+".jar")
			if err := archive.ExtractNatives(dest, nativesDir, lib.Extract.Exclude); err != nil {
				return nil, err
			}
		}
	}

	return classpath, nil
}

// Classpath builds the classpath string (platform path-list separated)
// for the given library jar paths plus the client jar itself.
func Classpath(libraryJars []string, clientJar string) string {
	sep := ":"
	if runtime.GOOS == "windows" {
		sep = ";"
	}
	all := append(append([]string{}, libraryJars...), clientJar)
	return strings.Join(all, sep)
}

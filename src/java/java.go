// Package java implements the Java Engine: flavor resolution (Auto
// falling through System, Adoptium, GraalVM, Zulu), the persistent
// per-(flavor,major) install registry, and JVM binary verification.
// Each remote collaborator gets its own small typed client, the same
// shape used throughout this codebase for external API access.
package java

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mcvm-launcher/mcvm-sub000/src/archive"
	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/javareg"
	"github.com/mcvm-launcher/mcvm-sub000/src/logging"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
)

// Flavor names a Java distribution source.
type Flavor string

const (
	Auto      Flavor = "auto"
	System    Flavor = "system"
	Adoptium  Flavor = "adoptium"
	GraalVM   Flavor = "graalvm"
	Zulu      Flavor = "zulu"
	Custom    Flavor = "custom"
)

// Installation is a resolved Java install: the flavor that produced
// it and the path to its home directory (containing bin/java).
type Installation struct {
	Flavor Flavor
	Home   string
}

// BinPath returns the path to the java executable within this
// installation.
func (i Installation) BinPath() string {
	name := "java"
	if runtime.GOOS == "windows" {
		name = "java.exe"
	}
	return filepath.Join(i.Home, "bin", name)
}

// Verify reports whether the JVM binary exists and, on Unix, carries
// an executable bit.
func (i Installation) Verify() bool {
	info, err := os.Stat(i.BinPath())
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}

// Install resolves flavor for major, consulting the persistent
// registry first, and returns the installation handle.
func Install(ctx context.Context, client *download.Client, log logging.Logger, reg *javareg.Registry, p *paths.Paths, flavor Flavor, major int, allowOffline bool) (Installation, error) {
	if flavor == Auto {
		for _, f := range []Flavor{System, Adoptium, GraalVM, Zulu} {
			inst, err := Install(ctx, client, log, reg, p, f, major, allowOffline)
			if err == nil {
				return inst, nil
			}
			log.Debug(ctx, "java flavor unavailable, falling through", logging.F("flavor", string(f)), logging.F("error", err.Error()))
		}
		return Installation{}, fmt.Errorf("no available java flavor satisfied major version %d", major)
	}

	if flavor == System {
		return findSystemJava(major)
	}

	if entry, ok := reg.Get(string(flavor), major); ok && allowOffline {
		if _, err := os.Stat(entry.Path); err == nil {
			return Installation{Flavor: flavor, Home: entry.Path}, nil
		}
	}

	meta, err := fetchRemoteMeta(ctx, client, flavor, major)
	if err != nil {
		return Installation{}, err
	}

	if entry, ok := reg.Get(string(flavor), major); ok {
		if entry.BuildName == meta.buildName {
			if _, serr := os.Stat(entry.Path); serr == nil {
				return Installation{Flavor: flavor, Home: entry.Path}, nil
			}
		}
	}

	destDir := filepath.Join(p.Java, string(flavor))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Installation{}, err
	}
	archivePath := filepath.Join(destDir, "download"+meta.archiveExt)
	if err := client.ToFile(ctx, "java_install", meta.url, archivePath, nil); err != nil {
		return Installation{}, err
	}

	var result *archive.Result
	if meta.archiveExt == ".zip" {
		result, err = archive.ExtractZip(archivePath, destDir)
	} else {
		result, err = archive.ExtractTarGz(archivePath, destDir)
	}
	if err != nil {
		return Installation{}, err
	}
	_ = os.Remove(archivePath)

	home := destDir
	if result.RootDirName != "" {
		home = filepath.Join(destDir, result.RootDirName)
	}

	if err := reg.Set(string(flavor), major, javareg.Entry{BuildName: meta.buildName, Path: home}); err != nil {
		return Installation{}, err
	}
	return Installation{Flavor: flavor, Home: home}, nil
}

type remoteMeta struct {
	buildName string
	url       string
	archiveExt string
}

func hostOSArch() (string, string) {
	osName := runtime.GOOS
	switch osName {
	case "darwin":
		osName = "mac"
	}
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x64"
	case "arm64":
		arch = "aarch64"
	}
	return osName, arch
}

func archiveExtFor(os string) string {
	if os == "windows" {
		return ".zip"
	}
	return ".tar.gz"
}

func fetchRemoteMeta(ctx context.Context, client *download.Client, flavor Flavor, major int) (remoteMeta, error) {
	osName, arch := hostOSArch()
	ext := archiveExtFor(runtime.GOOS)

	switch flavor {
	case Adoptium:
		url := fmt.Sprintf("https://api.adoptium.net/v3/assets/latest/%d/hotspot?image_type=jre&vendor=eclipse&architecture=%s&os=%s", major, arch, osName)
		var resp []struct {
			Binary struct {
				Package struct {
					Link string `json:"link"`
				} `json:"package"`
			} `json:"binary"`
			Release struct {
				Name string `json:"release_name"`
			} `json:"version"`
		}
		if err := client.JSON(ctx, "adoptium_meta", url, &resp); err != nil {
			return remoteMeta{}, err
		}
		if len(resp) == 0 {
			return remoteMeta{}, fmt.Errorf("adoptium has no build for java %d on %s/%s", major, osName, arch)
		}
		return remoteMeta{buildName: resp[0].Release.Name, url: resp[0].Binary.Package.Link, archiveExt: ext}, nil

	case Zulu:
		url := fmt.Sprintf("https://api.azul.com/metadata/v1/zulu/packages/?java_version=%d&os=%s&arch=%s&archive_type=%s&java_package_type=jre&latest=true",
			major, osName, arch, ext[1:])
		var resp []struct {
			Name        string `json:"name"`
			DownloadURL string `json:"download_url"`
		}
		if err := client.JSON(ctx, "zulu_meta", url, &resp); err != nil {
			return remoteMeta{}, err
		}
		if len(resp) == 0 {
			return remoteMeta{}, fmt.Errorf("zulu has no build for java %d on %s/%s", major, osName, arch)
		}
		return remoteMeta{buildName: resp[0].Name, url: resp[0].DownloadURL, archiveExt: ext}, nil

	case GraalVM:
		version := fmt.Sprintf("graalvm-community-jdk-%d", major)
		url := fmt.Sprintf("https://github.com/graalvm/graalvm-ce-builds/releases/latest/download/%s_%s-%s%s", version, osName, arch, ext)
		return remoteMeta{buildName: version, url: url, archiveExt: ext}, nil

	default:
		return remoteMeta{}, fmt.Errorf("flavor %q has no remote metadata source", flavor)
	}
}

func findSystemJava(major int) (Installation, error) {
	var candidates []string
	switch runtime.GOOS {
	case "windows":
		matches, _ := filepath.Glob(fmt.Sprintf(`C:/Program Files/Java/jdk-%d*`, major))
		candidates = matches
	case "darwin":
		matches, _ := filepath.Glob("/Library/Java/JavaVirtualMachines/*jdk*/Contents/Home")
		candidates = matches
	default:
		matches, _ := filepath.Glob(fmt.Sprintf("/usr/lib/jvm/java-%d-*", major))
		candidates = matches
	}
	for _, c := range candidates {
		inst := Installation{Flavor: System, Home: c}
		if inst.Verify() {
			return inst, nil
		}
	}
	return Installation{}, fmt.Errorf("no system java installation found for major version %d", major)
}

// Package modloader implements the Modloader Engine: Fabric/Quilt
// loader + library resolution, and the Paper/Folia/Sponge build
// lookup-and-cache flow.
package modloader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
)

// Loader identifies a Fabric-family modloader.
type Loader string

const (
	Fabric Loader = "fabric"
	Quilt  Loader = "quilt"
)

func loaderMetaHost(l Loader) string {
	if l == Quilt {
		return "https://meta.quiltmc.org"
	}
	return "https://meta.fabricmc.net"
}

type fabricLibrary struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type fabricLoaderVersion struct {
	MainClass struct {
		Client string `json:"client"`
		Server string `json:"server"`
	} `json:"mainClass"`
	Libraries struct {
		Common []fabricLibrary `json:"common"`
		Client []fabricLibrary `json:"client"`
		Server []fabricLibrary `json:"server"`
	} `json:"libraries"`
}

// Result is the fully-resolved Fabric/Quilt loader info for a version
// and side: the library jars to add to the classpath and the main
// class override, if any.
type Result struct {
	LibraryPaths []string
	MainClass    string
}

// mavenCoordToPath expands "group.id:artifact:version" into the
// standard Maven repository layout path.
func mavenCoordToPath(coord string) (string, error) {
	parts := strings.Split(coord, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed maven coordinate %q", coord)
	}
	group, artifact, version := parts[0], parts[1], parts[2]
	groupPath := strings.ReplaceAll(group, ".", "/")
	return fmt.Sprintf("%s/%s/%s/%s-%s.jar", groupPath, artifact, version, artifact, version), nil
}

// Fetch resolves the newest Fabric/Quilt loader for minecraftVersion,
// downloads the common and side-specific libraries into the shared
// libraries tree, and returns the classpath additions and main class
// override.
func Fetch(ctx context.Context, client *download.Client, p *paths.Paths, loader Loader, minecraftVersion string, isClient bool) (*Result, error) {
	url := fmt.Sprintf("%s/v2/versions/loader/%s", loaderMetaHost(loader), minecraftVersion)
	var versions []fabricLoaderVersion
	if err := client.JSON(ctx, "modloader_meta", url, &versions); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%s has no loader builds for minecraft %s", loader, minecraftVersion)
	}
	chosen := versions[0]

	libs := append([]fabricLibrary{}, chosen.Libraries.Common...)
	if isClient {
		libs = append(libs, chosen.Libraries.Client...)
	} else {
		libs = append(libs, chosen.Libraries.Server...)
	}

	result := &Result{}
	var jobs []download.Job
	for _, lib := range libs {
		relPath, err := mavenCoordToPath(lib.Name)
		if err != nil {
			return nil, err
		}
		dest := filepath.Join(p.Libraries, relPath)
		result.LibraryPaths = append(result.LibraryPaths, dest)
		url := strings.TrimSuffix(lib.URL, "/") + "/" + relPath
		jobs = append(jobs, download.Job{Run: func(ctx context.Context) error {
			return client.ToFile(ctx, "modloader_library", url, dest, nil)
		}})
	}
	if err := download.RunBatch(ctx, jobs); err != nil {
		return nil, err
	}

	if isClient {
		result.MainClass = chosen.MainClass.Client
	} else {
		result.MainClass = chosen.MainClass.Server
	}
	return result, nil
}

// BukkitFamily identifies a Paper-API server mode fetched through the
// PaperMC build API.
type BukkitFamily string

const (
	Paper BukkitFamily = "paper"
	Folia BukkitFamily = "folia"
)

// FetchPaperLike resolves the newest build of mode for minecraftVersion
// via the PaperMC API, downloads it into the shared jars directory
// (caching by mode/version/build so a repeat call is a no-op), and
// returns the jar path to use as the instance's jar override.
func FetchPaperLike(ctx context.Context, client *download.Client, p *paths.Paths, mode BukkitFamily, minecraftVersion string) (string, error) {
	versionURL := fmt.Sprintf("https://api.papermc.io/v2/projects/%s/versions/%s", mode, minecraftVersion)
	var versionInfo struct {
		Builds []int `json:"builds"`
	}
	if err := client.JSON(ctx, "paper_versions", versionURL, &versionInfo); err != nil {
		return "", err
	}
	if len(versionInfo.Builds) == 0 {
		return "", fmt.Errorf("%s has no builds for minecraft %s", mode, minecraftVersion)
	}
	build := versionInfo.Builds[len(versionInfo.Builds)-1]

	buildURL := fmt.Sprintf("%s/builds/%d", versionURL, build)
	var buildInfo struct {
		Downloads struct {
			Application struct {
				Name string `json:"name"`
			} `json:"application"`
		} `json:"downloads"`
	}
	if err := client.JSON(ctx, "paper_build", buildURL, &buildInfo); err != nil {
		return "", err
	}

	dest := filepath.Join(p.Jars, fmt.Sprintf("%s_%s_%d_%s", mode, minecraftVersion, build, buildInfo.Downloads.Application.Name))
	downloadURL := fmt.Sprintf("%s/downloads/%s", buildURL, buildInfo.Downloads.Application.Name)
	if err := client.ToFile(ctx, "paper_jar", downloadURL, dest, nil); err != nil {
		return "", err
	}
	return dest, nil
}

// FetchSponge resolves and downloads the newest Sponge server jar for
// minecraftVersion, caching by (minecraftVersion, version).
func FetchSponge(ctx context.Context, client *download.Client, p *paths.Paths, minecraftVersion string) (string, error) {
	url := fmt.Sprintf("https://dl-api.spongepowered.org/v2/groups/org.spongepowered/artifacts/spongevanilla/versions?tags=minecraft:%s", minecraftVersion)
	var resp struct {
		Artifacts map[string]struct {
			Assets []struct {
				DownloadURL string `json:"downloadUrl"`
				Extension   string `json:"extension"`
			} `json:"assets"`
		} `json:"artifacts"`
	}
	if err := client.JSON(ctx, "sponge_versions", url, &resp); err != nil {
		return "", err
	}
	for version, artifact := range resp.Artifacts {
		for _, asset := range artifact.Assets {
			if asset.Extension != "jar" {
				continue
			}
			dest := filepath.Join(p.Jars, fmt.Sprintf("sponge_%s_%s.jar", minecraftVersion, version))
			if err := client.ToFile(ctx, "sponge_jar", asset.DownloadURL, dest, nil); err != nil {
				return "", err
			}
			return dest, nil
		}
	}
	return "", fmt.Errorf("sponge has no builds for minecraft %s", minecraftVersion)
}

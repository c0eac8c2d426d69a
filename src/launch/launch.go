// Package launch assembles the JVM/game command line from client
// meta's argument schema (new or old format), substitutes the
// documented placeholders, composes QuickPlay arguments, applies a
// configured wrapper command, writes the server EULA file, and
// records the launched process in the running-instance registry.

package launch

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub000/src/clientmeta"
	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/running"
)

// cutoffQuickPlay is the version at which the old --server/--port
// quick-join arguments were replaced by --quickPlayPath.
const cutoffQuickPlay = "23w14a"

// Auth carries the (possibly empty/unauthenticated) user identity
// substituted into auth placeholders.
type Auth struct {
	PlayerName string
	UUID       string
	AccessToken string
	XUID       string
	UserType   string
	ClientID   string
}

func (a Auth) playerName() string {
	if a.PlayerName == "" {
		return "UnknownUser"
	}
	return a.PlayerName
}

// QuickPlay selects the post-join target, if any.
type QuickPlay struct {
	Kind        string // "singleplayer" | "multiplayer" | "realms" | "" | legacy server/port
	Arg         string
	ServerHost  string
	ServerPort  string
}

// Options bundles the inputs to BuildCommand beyond client meta.
type Options struct {
	Instance       config.Instance
	NativesDir     string
	Classpath      string
	AssetsRoot     string
	VersionName    string
	VersionType    string
	GameDir        string
	LauncherName   string
	LauncherVersion string
	Auth           Auth
	QuickPlay      QuickPlay
	VersionList    []string
	MainClassOverride string
	ClasspathExtension []string
}

func placeholders(o Options) map[string]string {
	width := strconv.Itoa(o.Instance.LaunchOptions.ResolutionWidth)
	height := strconv.Itoa(o.Instance.LaunchOptions.ResolutionHeight)
	if o.Instance.LaunchOptions.ResolutionWidth == 0 {
		width = ""
	}
	if o.Instance.LaunchOptions.ResolutionHeight == 0 {
		height = ""
	}
	return map[string]string{
		"launcher_name":     o.LauncherName,
		"launcher_version":  o.LauncherVersion,
		"classpath":         o.Classpath,
		"natives_directory": o.NativesDir,
		"version_name":      o.VersionName,
		"version_type":      o.VersionType,
		"game_directory":    o.GameDir,
		"assets_root":       o.AssetsRoot,
		"assets_index_name": o.VersionName,
		"user_type":         o.Auth.UserType,
		"clientid":          o.Auth.ClientID,
		"user_properties":   "{}",
		"auth_player_name":  o.Auth.playerName(),
		"auth_uuid":         o.Auth.UUID,
		"auth_access_token": o.Auth.AccessToken,
		"auth_xuid":         o.Auth.XUID,
		"resolution_width":  width,
		"resolution_height": height,
	}
}

func substitute(s string, ph map[string]string) string {
	for k, v := range ph {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	return s
}

func features(o Options) map[string]bool {
	return map[string]bool{
		"has_custom_resolution":        o.Instance.LaunchOptions.ResolutionWidth != 0,
		"is_demo_user":                 o.Auth.UUID == "",
		"has_quick_play_support":       o.QuickPlay.Kind != "" && o.QuickPlay.Kind != "legacy",
		"is_quick_play_singleplayer":   o.QuickPlay.Kind == "singleplayer",
		"is_quick_play_multiplayer":    o.QuickPlay.Kind == "multiplayer",
		"is_quick_play_realms":         o.QuickPlay.Kind == "realms",
	}
}

func evalArguments(values []clientmeta.ArgumentValue, ph map[string]string, feats map[string]bool, hostOS, hostArch string) []string {
	var out []string
	for _, v := range values {
		if v.Plain != "" {
			out = append(out, substitute(v.Plain, ph))
			continue
		}
		if !clientmeta.Allowed(v.Rules, hostOS, hostArch, feats) {
			continue
		}
		for _, raw := range v.ValueList {
			out = append(out, substitute(raw, ph))
		}
	}
	return out
}

func hostOSName() string {
	switch runtime.GOOS {
	case "darwin":
		return "osx"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

func quickPlayArgs(o Options) []string {
	isNew := indexOf(o.VersionList, o.VersionName) >= indexOf(o.VersionList, cutoffQuickPlay)
	switch {
	case o.QuickPlay.Kind == "":
		return nil
	case !isNew:
		if o.QuickPlay.ServerHost == "" {
			return nil
		}
		return []string{"--server", o.QuickPlay.ServerHost, "--port", o.QuickPlay.ServerPort}
	default:
		args := []string{"--quickPlayPath", "quickPlay/log.json"}
		switch o.QuickPlay.Kind {
		case "singleplayer":
			args = append(args, "--quickPlaySingleplayer", o.QuickPlay.Arg)
		case "multiplayer":
			args = append(args, "--quickPlayMultiplayer", o.QuickPlay.Arg)
		case "realms":
			args = append(args, "--quickPlayRealms", o.QuickPlay.Arg)
		}
		return args
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

// BuildCommand assembles the full JVM + main class + game argument
// list, honoring whichever argument schema meta declares.
func BuildCommand(meta *clientmeta.ClientMeta, o Options) []string {
	ph := placeholders(o)
	feats := features(o)
	host, arch := hostOSName(), archSuffix()

	mainClass := meta.MainClass
	if o.MainClassOverride != "" {
		mainClass = o.MainClassOverride
	}

	var jvmArgs, gameArgs []string

	if meta.Arguments != nil {
		jvmArgs = evalArguments(meta.Arguments.JVM, ph, feats, host, arch)
		gameArgs = evalArguments(meta.Arguments.Game, ph, feats, host, arch)
	} else {
		jvmArgs = []string{"-Djava.library.path=" + o.NativesDir, "-cp", o.Classpath}
		for _, tok := range strings.Fields(meta.MinecraftArguments) {
			gameArgs = append(gameArgs, substitute(tok, ph))
		}
	}

	jvmArgs = append(jvmArgs, o.Instance.LaunchOptions.JVMArgs...)
	gameArgs = append(gameArgs, o.Instance.LaunchOptions.GameArgs...)
	gameArgs = append(gameArgs, quickPlayArgs(o)...)

	if len(o.ClasspathExtension) > 0 && meta.Arguments != nil {
		// New-format classpath already came from the ${classpath}
		// placeholder baked into o.Classpath by the caller; nothing
		// further to splice here.
		_ = o.ClasspathExtension
	}

	cmd := append([]string{}, jvmArgs...)
	cmd = append(cmd, mainClass)
	cmd = append(cmd, gameArgs...)
	return cmd
}

func archSuffix() string {
	switch runtime.GOARCH {
	case "amd64":
		return "64"
	case "386":
		return "32"
	default:
		return "64"
	}
}

// EnvFor returns the merged environment variables for this instance's
// process, including platform-specific compatibility defaults.
func EnvFor(inst config.Instance, versionList []string, version string) []string {
	env := os.Environ()
	for k, v := range inst.LaunchOptions.Env {
		env = append(env, k+"="+v)
	}
	if runtime.GOOS == "linux" && indexOf(versionList, version) <= indexOf(versionList, "1.8.9") {
		env = append(env, "__GL_THREADED_OPTIMIZATIONS=0")
	}
	return env
}

// WriteEULA writes the EULA acceptance file for a server instance.
func WriteEULA(gameDir string) error {
	return os.WriteFile(filepath.Join(gameDir, "eula.txt"), []byte("eula = true\n"), 0o644)
}

// Launch starts the process, honoring a configured wrapper, and
// records it in the running-instance registry.
func Launch(javaBin string, args []string, env []string, workDir string, wrapper *config.Wrapper, reg *running.Registry, instanceID string) (*os.Process, error) {
	name := javaBin
	fullArgs := args
	if wrapper != nil {
		name = wrapper.Command
		fullArgs = append(append([]string{}, wrapper.Args...), append([]string{javaBin}, args...)...)
	}

	cmd := exec.Command(name, fullArgs...)
	cmd.Dir = workDir
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launching instance %s: %w", instanceID, err)
	}
	reg.Record(instanceID, cmd.Process.Pid, os.Getpid())
	return cmd.Process, nil
}

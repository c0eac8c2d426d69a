// Package clientmeta fetches and models the per-version client.json
// metadata: argument lists (new and old schema), the asset index
// pointer, download URLs, the library list, the required Java major
// version, and the logging configuration.
package clientmeta

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/mcvm-launcher/mcvm-sub000/src/cache"
	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
)

// Download is a single downloadable artifact: URL, sha1, size, and
// (for libraries) the relative Maven path to store it at.
type Download struct {
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	Path string `json:"path,omitempty"`
}

// OSRule narrows a Rule to a specific OS name/arch/version regex.
type OSRule struct {
	Name    string `json:"name,omitempty"`
	Arch    string `json:"arch,omitempty"`
	Version string `json:"version,omitempty"`
}

// Rule is one allow/disallow rule, optionally scoped to an OS or a
// feature flag (new-format argument rules use Features).
type Rule struct {
	Action   string         `json:"action"` // "allow" | "disallow"
	OS       *OSRule        `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

// Allowed evaluates a rule list against the host and feature set the
// way the launcher's rule engine does: rules are applied in order and
// the last matching rule's action wins; absent rules means allowed.
func Allowed(rules []Rule, hostOS, hostArch string, features map[string]bool) bool {
	if len(rules) == 0 {
		return true
	}
	verdict := false
	for _, r := range rules {
		matches := true
		if r.OS != nil {
			if r.OS.Name != "" && r.OS.Name != hostOS {
				matches = false
			}
			if r.OS.Arch != "" && r.OS.Arch != hostArch {
				matches = false
			}
		}
		for feature, want := range r.Features {
			if features[feature] != want {
				matches = false
			}
		}
		if matches {
			verdict = r.Action == "allow"
		}
	}
	return verdict
}

// ExtractionRules lists archive entry paths to skip when extracting a
// native classifier jar.
type ExtractionRules struct {
	Exclude []string `json:"exclude,omitempty"`
}

// Library is one client-meta library entry.
type Library struct {
	Name    string `json:"name"`
	Rules   []Rule `json:"rules,omitempty"`
	Natives map[string]string `json:"natives,omitempty"`
	Extract ExtractionRules    `json:"extract,omitempty"`
	Downloads struct {
		Artifact         *Download          `json:"artifact,omitempty"`
		NativeClassifiers map[string]Download `json:"classifiers,omitempty"`
	} `json:"downloads"`
}

// ArgumentValue is one entry of the new-format argument list: either a
// bare string or a conditional {rules, value} object.
type ArgumentValue struct {
	Plain     string
	Rules     []Rule
	Features  map[string]bool
	ValueList []string
}

// UnmarshalJSON accepts either a JSON string or an object with
// rules/value.
func (a *ArgumentValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Plain = s
		return nil
	}
	var obj struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Rules = obj.Rules
	var single string
	if err := json.Unmarshal(obj.Value, &single); err == nil {
		a.ValueList = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(obj.Value, &list); err != nil {
		return err
	}
	a.ValueList = list
	return nil
}

// Arguments holds the new-format (1.13+) argument lists.
type Arguments struct {
	Game [] ArgumentValue `json:"game,omitempty"`
	JVM  []ArgumentValue  `json:"jvm,omitempty"`
}

// LoggingConfig names the log4j config client meta optionally ships.
type LoggingConfig struct {
	Client struct {
		Argument string `json:"argument"`
		File     struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"file"`
		Type string `json:"type"`
	} `json:"client"`
}

// ClientMeta is the parsed per-version client.json.
type ClientMeta struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	MinecraftArguments string `json:"minecraftArguments,omitempty"` // old format
	Arguments       *Arguments `json:"arguments,omitempty"`          // new format
	AssetIndex      struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"assetIndex"`
	Downloads struct {
		Client Download `json:"client"`
		Server Download `json:"server"`
	} `json:"downloads"`
	Libraries       []Library `json:"libraries"`
	MainClass       string    `json:"mainClass"`
	JavaVersion     struct {
		MajorVersion int `json:"majorVersion"`
	} `json:"javaVersion"`
	Logging LoggingConfig `json:"logging"`
}

func metaPath(versionsDir, version string) string {
	return filepath.Join(versionsDir, version, version+".json")
}

// Fetch is an offline-capable read that falls back to the network
// whenever the cached copy is absent or fails to parse.
func Fetch(ctx context.Context, client *download.Client, versionsDir, version, url string, allowOffline bool, backend cache.Backend) (*ClientMeta, error) {
	if backend == nil {
		backend = cache.FileBackend{}
	}
	path := metaPath(versionsDir, version)

	if allowOffline {
		if raw, ok, err := backend.Get(ctx, path); err == nil && ok {
			var meta ClientMeta
			if jerr := json.Unmarshal(raw, &meta); jerr == nil {
				return &meta, nil
			}
		}
	}

	raw, err := client.Bytes(ctx, "client_meta", url)
	if err != nil {
		return nil, err
	}
	var meta ClientMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, &mcerrors.ParseError{Source: url, Err: err}
	}
	_ = backend.Put(ctx, path, raw)
	return &meta, nil
}

// JavaMajorVersion returns the declared required Java major version,
// defaulting to 8 for versions that predate the field.
func (m *ClientMeta) JavaMajorVersion() int {
	if m.JavaVersion.MajorVersion == 0 {
		return 8
	}
	return m.JavaVersion.MajorVersion
}

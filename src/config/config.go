// Package config defines the instance and package-request data model:
// instance identity and side, the modification-set compatibility
// invariant, package request sourcing and priority, and addon kind
// metadata. Validated with the same validator-tagged struct convention
// used throughout the rest of the codebase.
package config

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Side is where an instance runs.
type Side string

const (
	Client Side = "client"
	Server Side = "server"
)

// Modification is the (modloader, client_type, server_type) triple
// that alters how an instance is launched.
type Modification struct {
	Modloader  string `json:"modloader,omitempty"`
	ClientType string `json:"client_type,omitempty"`
	ServerType string `json:"server_type,omitempty"`
}

// vanilla is the identity element of the modification-set invariant:
// Vanilla + any server type, or any modloader + Vanilla server type,
// are compatible; any other cross is rejected.
const vanilla = "vanilla"

// Validate enforces the modification-set compatibility invariant.
func (m Modification) Validate() error {
	modIsVanilla := m.ClientType == vanilla || m.ClientType == ""
	serverIsVanilla := m.ServerType == vanilla || m.ServerType == ""
	if modIsVanilla || serverIsVanilla {
		return nil
	}
	return fmt.Errorf("incompatible modification set: client_type=%q and server_type=%q cannot both be non-vanilla", m.ClientType, m.ServerType)
}

// Instance is the persisted configuration and computed state for one
// instance.
type Instance struct {
	ID                     string       `json:"id" validate:"required"`
	Side                   Side         `json:"side" validate:"required,oneof=client server"`
	Version                string       `json:"version" validate:"required"`
	Modification           Modification `json:"modification"`
	ModificationVersion    string       `json:"modification_version,omitempty"`
	LaunchOptions          LaunchOptions `json:"launch_options"`
	DatapackFolderOverride string       `json:"datapack_folder_override,omitempty"`
	Packages               []string     `json:"packages,omitempty"`
	PluginConfig           map[string]interface{} `json:"plugin_config,omitempty"`
}

// LaunchOptions configures the JVM/game process.
type LaunchOptions struct {
	JVMArgs            []string          `json:"jvm_args,omitempty"`
	GameArgs           []string          `json:"game_args,omitempty"`
	Env                map[string]string `json:"env,omitempty"`
	Wrapper            *Wrapper          `json:"wrapper,omitempty"`
	MemoryMinMB        int               `json:"memory_min_mb,omitempty"`
	MemoryMaxMB        int               `json:"memory_max_mb,omitempty"`
	ResolutionWidth    int               `json:"resolution_width,omitempty"`
	ResolutionHeight   int               `json:"resolution_height,omitempty"`
}

// Wrapper wraps the real launch command behind another executable
// (e.g. a crash reporter, a sandboxing shim).
type Wrapper struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Validate runs struct-tag validation over the instance's required
// fields and side enum, then the modification-set compatibility
// invariant. Callers that merge a profile default and a per-instance
// override should do so before calling Validate.
func (i Instance) Validate() error {
	if err := structValidator.Struct(i); err != nil {
		return fmt.Errorf("invalid instance %q: %w", i.ID, err)
	}
	return i.Modification.Validate()
}

// InstDir returns the instance's root directory name (joined with the
// data root's instances directory by the caller).
func (i Instance) InstDir() string { return i.ID }

// GameDir returns the relative game directory within the instance
// root: ".minecraft" for clients, "." for servers.
func (i Instance) GameDir() string {
	if i.Side == Client {
		return ".minecraft"
	}
	return "."
}

// Source is where a package requirement originated, used for
// dedup/priority when the same package is reached multiple ways.
type Source int

const (
	SourceUserRequire Source = iota
	SourceBundled
	SourceDependency
	SourceRefused
	SourceRepository
)

// Priority returns the source's tie-break rank; lower wins.
func (s Source) Priority() int { return int(s) }

var pkgIDPattern = regexp.MustCompile(`^[a-z-]{1,32}$`)

// ValidPackageID reports whether id satisfies the package id grammar:
// lowercase identifier characters and hyphens, at most 32 characters.
func ValidPackageID(id string) bool {
	return pkgIDPattern.MatchString(id)
}

// PkgRequest identifies a requested package and the chain of parents
// that pulled it in, used for conflict/cycle diagnostics. Equality and
// hashing (via ID) deliberately ignore ParentChain so deduplication
// works; ParentChain is carried for cycle detection and diagnostics.
type PkgRequest struct {
	ID          string
	Source      Source
	ParentChain []string
}

// WithParent returns a new request for id sourced as a child of r,
// appending r's id onto the chain for cycle detection.
func (r PkgRequest) WithParent(id string, source Source) PkgRequest {
	chain := make([]string, len(r.ParentChain)+1)
	copy(chain, r.ParentChain)
	chain[len(r.ParentChain)] = r.ID
	return PkgRequest{ID: id, Source: source, ParentChain: chain}
}

// InChain reports whether id already appears in the request's parent
// chain (a dependency cycle).
func (r PkgRequest) InChain(id string) bool {
	for _, p := range r.ParentChain {
		if p == id {
			return true
		}
	}
	return false
}

// AddonKind is the category of a single installable addon file.
type AddonKind string

const (
	KindMod          AddonKind = "mod"
	KindResourcePack AddonKind = "resource_pack"
	KindPlugin       AddonKind = "plugin"
	KindShader       AddonKind = "shader"
	KindDatapack     AddonKind = "datapack"
)

// Plural returns the directory-name plural used in content-addressed
// addon storage paths.
func (k AddonKind) Plural() string {
	switch k {
	case KindMod:
		return "mods"
	case KindResourcePack:
		return "resource_packs"
	case KindPlugin:
		return "plugins"
	case KindShader:
		return "shaders"
	case KindDatapack:
		return "datapacks"
	default:
		return string(k) + "s"
	}
}

// AcceptedExtensions lists the file extensions valid for this addon
// kind, used by addon validation.
func (k AddonKind) AcceptedExtensions() []string {
	switch k {
	case KindMod:
		return []string{".jar"}
	case KindResourcePack:
		return []string{".zip"}
	case KindPlugin:
		return []string{".jar"}
	case KindShader:
		return []string{".zip"}
	case KindDatapack:
		return []string{".zip"}
	default:
		return nil
	}
}

// Package plugin implements the plugin host: manifest loading from
// plugins/<id>.json or plugins/<id>/plugin.json, and typed hook
// invocation with result merging that rejects two plugins setting the
// same single-setter field.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
)

// Manifest is a plugin's static declaration.
type Manifest struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Version string                 `json:"version"`
	Config  map[string]interface{} `json:"config,omitempty"`
}

// Hooks is the set of typed callbacks a plugin may implement. A
// missing field means the plugin does not handle that hook.
type Hooks struct {
	OnInstanceSetup        func(ctx context.Context, in SetupInput) (SetupResult, error)
	RemoveGameModification func(ctx context.Context, in SetupInput) error
	OnInstanceLaunch       func(ctx context.Context, instanceID string) error
	OnInstanceStop         func(ctx context.Context, instanceID string) error
	CustomPackageInstruction func(ctx context.Context, pkgID, command string, args []string) (CustomResult, bool, error)
}

// Plugin pairs a manifest with its registered hooks.
type Plugin struct {
	Manifest Manifest
	Hooks    Hooks
}

// SetupInput is the argument bundle for OnInstanceSetup and
// RemoveGameModification.
type SetupInput struct {
	InstanceID             string
	Side                   string
	GameDir                string
	Version                string
	ClientType             string
	ServerType             string
	CurrentGameModVersion  string
	DesiredGameModVersion  string
	CustomConfig           map[string]interface{}
	InternalDir            string
	UpdateDepth            int
}

// SetupResult is the partial ModificationData a plugin's
// OnInstanceSetup hook may contribute.
type SetupResult struct {
	MainClassOverride      string
	JarPathOverride        string
	ClasspathExtension     []string
	GameModificationVersion string
}

// CustomResult is the partial EvalData a CustomPackageInstruction hook
// may contribute.
type CustomResult struct {
	Addons        []string
	Deps          [][]string
	Conflicts     []string
	Bundled       []string
	Compats       [][2]string
	Extensions    []string
	Notices       []string
	Recommendations []string
}

// Host loads manifests and dispatches hooks across every registered
// plugin, merging results per the at-most-one-setter rules.
type Host struct {
	plugins []Plugin
}

// NewHost constructs an empty host; plugins are added with Register.
func NewHost() *Host { return &Host{} }

// Register adds a plugin to the host.
func (h *Host) Register(p Plugin) { h.plugins = append(h.plugins, p) }

// LoadManifest reads a plugin manifest from plugins/<id>.json or
// plugins/<id>/plugin.json.
func LoadManifest(pluginsDir, id string) (Manifest, error) {
	candidates := []string{
		filepath.Join(pluginsDir, id+".json"),
		filepath.Join(pluginsDir, id, "plugin.json"),
	}
	var lastErr error
	for _, c := range candidates {
		raw, err := os.ReadFile(c)
		if err != nil {
			lastErr = err
			continue
		}
		var m Manifest
		if err := json.Unmarshal(raw, &m); err != nil {
			return Manifest{}, &mcerrors.ParseError{Source: c, Err: err}
		}
		return m, nil
	}
	return Manifest{}, fmt.Errorf("no manifest found for plugin %q: %w", id, lastErr)
}

// Setup invokes OnInstanceSetup on every plugin that implements it and
// merges the results, failing if more than one plugin sets the same
// single-setter field.
func (h *Host) Setup(ctx context.Context, in SetupInput) (SetupResult, error) {
	var merged SetupResult
	var mainClassSetter, jarPathSetter, gameModSetter string

	for _, p := range h.plugins {
		if p.Hooks.OnInstanceSetup == nil {
			continue
		}
		res, err := p.Hooks.OnInstanceSetup(ctx, in)
		if err != nil {
			return SetupResult{}, fmt.Errorf("plugin %s OnInstanceSetup: %w", p.Manifest.ID, err)
		}
		if res.MainClassOverride != "" {
			if mainClassSetter != "" {
				return SetupResult{}, &mcerrors.PluginResultConflictError{Field: "main_class_override", PluginA: mainClassSetter, PluginB: p.Manifest.ID}
			}
			mainClassSetter = p.Manifest.ID
			merged.MainClassOverride = res.MainClassOverride
		}
		if res.JarPathOverride != "" {
			if jarPathSetter != "" {
				return SetupResult{}, &mcerrors.PluginResultConflictError{Field: "jar_path_override", PluginA: jarPathSetter, PluginB: p.Manifest.ID}
			}
			jarPathSetter = p.Manifest.ID
			merged.JarPathOverride = res.JarPathOverride
		}
		merged.ClasspathExtension = append(merged.ClasspathExtension, res.ClasspathExtension...)
		if res.GameModificationVersion != "" {
			if gameModSetter != "" {
				return SetupResult{}, &mcerrors.PluginResultConflictError{Field: "game_modification_version", PluginA: gameModSetter, PluginB: p.Manifest.ID}
			}
			gameModSetter = p.Manifest.ID
			merged.GameModificationVersion = res.GameModificationVersion
		}
	}
	return merged, nil
}

// RemoveGameModification invokes the teardown hook on every plugin
// that implements it, for the previous modification identity.
func (h *Host) RemoveGameModification(ctx context.Context, in SetupInput) error {
	for _, p := range h.plugins {
		if p.Hooks.RemoveGameModification == nil {
			continue
		}
		if err := p.Hooks.RemoveGameModification(ctx, in); err != nil {
			return fmt.Errorf("plugin %s RemoveGameModification: %w", p.Manifest.ID, err)
		}
	}
	return nil
}

// CustomInstruction dispatches a package's `custom` instruction to the
// first plugin that claims to handle it.
func (h *Host) CustomInstruction(ctx context.Context, pkgID, command string, args []string) (CustomResult, error) {
	for _, p := range h.plugins {
		if p.Hooks.CustomPackageInstruction == nil {
			continue
		}
		res, handled, err := p.Hooks.CustomPackageInstruction(ctx, pkgID, command, args)
		if err != nil {
			return CustomResult{}, fmt.Errorf("plugin %s CustomPackageInstruction: %w", p.Manifest.ID, err)
		}
		if handled {
			return res, nil
		}
	}
	return CustomResult{}, fmt.Errorf("no plugin handled custom instruction %q", command)
}

// Package pkgeval implements the Package Evaluator: the properties
// gate, the script interpreter, the declarative schema evaluator, and
// addon validation.
package pkgeval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgformat"
)

const (
	maxNotices     = 10
	maxNoticeChars = 128
)

// Permission is the elevated-action grant a caller extends to a
// package evaluation.
type Permission string

const (
	PermissionStandard Permission = "standard"
	PermissionElevated Permission = "elevated"
)

// Constants mirrors EvalInput.constants.
type Constants struct {
	Version          string
	VersionList      []string
	Modloader        string
	ClientType       string
	ServerType       string
	Language         string
	ProfileStability pkgformat.Stability
}

// Params mirrors EvalInput.params.
type Params struct {
	Side         string
	ConfigSource string
	Features     []string
	Permission   Permission
	Stability    pkgformat.Stability
	Worlds       []string
}

// Input is the evaluator's full input.
type Input struct {
	Constants Constants
	Params    Params
}

// Data is the evaluator's output, EvalData.
type Data struct {
	AddonReqs        []pkgformat.AddonRequest
	Deps             []pkgformat.DepGroup
	Conflicts        []string
	Recommendations  []string
	Bundled          []string
	Compats          [][2]string
	Extensions       []string
	Notices          []string
	Commands         [][]string
	UsesCustomInstructions bool
}

func matchesProperties(p pkgformat.Properties, in Input) (bool, error) {
	if len(p.SupportedVersions) > 0 && !contains(p.SupportedVersions, in.Constants.Version) {
		return false, fmt.Errorf("version %q not supported", in.Constants.Version)
	}
	if len(p.SupportedModloaders) > 0 && !contains(p.SupportedModloaders, in.Constants.Modloader) {
		return false, fmt.Errorf("modloader %q not supported", in.Constants.Modloader)
	}
	if len(p.SupportedOS) > 0 && !contains(p.SupportedOS, hostOS()) {
		return false, fmt.Errorf("operating system %q not supported", hostOS())
	}
	if len(p.SupportedArch) > 0 && !contains(p.SupportedArch, hostArch()) {
		return false, fmt.Errorf("architecture %q not supported", hostArch())
	}
	if len(p.SupportedSides) > 0 && !contains(p.SupportedSides, in.Params.Side) {
		return false, nil // side mismatch: empty-but-successful, handled by caller
	}
	return true, nil
}

// CheckProperties runs the properties gate: a side mismatch yields
// (false, nil) meaning "empty but successful"; any other mismatch
// yields an error.
func CheckProperties(p pkgformat.Properties, in Input) (applies bool, err error) {
	return matchesProperties(p, in)
}

func validateFeatures(declared []string, requested []string) ([]string, error) {
	declaredSet := make(map[string]bool, len(declared))
	for _, f := range declared {
		declaredSet[f] = true
	}
	for _, f := range requested {
		if !declaredSet[f] {
			return nil, fmt.Errorf("feature %q is not declared by this package", f)
		}
	}
	requestedSet := make(map[string]bool, len(requested))
	for _, f := range requested {
		requestedSet[f] = true
	}
	filled := append([]string{}, requested...)
	for _, f := range declared {
		if !requestedSet[f] {
			filled = append(filled, f) // default-enabled unless explicitly absent; callers that track opt-out should pre-filter declared
		}
	}
	return filled, nil
}

// EvaluateDeclarative runs a declarative package's addon selection and
// conditional rules against in.
func EvaluateDeclarative(pkg pkgformat.DeclarativePackage, in Input) (Data, error) {
	applies, err := CheckProperties(pkg.Properties, in)
	if err != nil {
		return Data{}, &mcerrors.EvaluationError{Package: pkg.ID, Reason: err.Error()}
	}
	if !applies {
		return Data{}, nil
	}
	if _, err := validateFeatures(pkg.Features, in.Params.Features); err != nil {
		return Data{}, &mcerrors.EvaluationError{Package: pkg.ID, Reason: err.Error()}
	}

	var data Data
	for _, addon := range pkg.Addons {
		chosen := false
		for _, v := range addon.Versions {
			if !conditionMatches(v.Condition, in) {
				continue
			}
			req := v.Request
			req.ID = addon.ID
			if err := validateAddonRequest(pkg.ID, &req, in.Params.Permission); err != nil {
				return Data{}, err
			}
			data.AddonReqs = append(data.AddonReqs, req)
			applyRelations(&data, v.Relations)
			data.Notices = append(data.Notices, v.Notices...)
			chosen = true
			break
		}
		if !chosen && !addon.Optional {
			return Data{}, &mcerrors.EvaluationError{Package: pkg.ID, Reason: fmt.Sprintf("no matching version for required addon %q", addon.ID)}
		}
	}

	for _, rule := range pkg.ConditionalRules {
		if conditionMatches(rule.Condition, in) {
			applyRelations(&data, rule.Relations)
			data.Notices = append(data.Notices, rule.Notices...)
		}
	}

	if err := boundNotices(&data); err != nil {
		return Data{}, &mcerrors.EvaluationError{Package: pkg.ID, Reason: err.Error()}
	}
	return data, nil
}

func conditionMatches(c pkgformat.DeclarativeCondition, in Input) bool {
	if c.Stability != "" && c.Stability != in.Params.Stability {
		return false
	}
	if c.Side != "" && c.Side != in.Params.Side {
		return false
	}
	if len(c.MinecraftVersions) > 0 && !contains(c.MinecraftVersions, in.Constants.Version) {
		return false
	}
	if len(c.Modloaders) > 0 && !contains(c.Modloaders, in.Constants.Modloader) {
		return false
	}
	if len(c.OperatingSystems) > 0 && !contains(c.OperatingSystems, hostOS()) {
		return false
	}
	if len(c.Architectures) > 0 && !contains(c.Architectures, hostArch()) {
		return false
	}
	if len(c.Languages) > 0 && !contains(c.Languages, in.Constants.Language) {
		return false
	}
	for _, f := range c.Features {
		if !contains(in.Params.Features, f) {
			return false
		}
	}
	return true
}

func applyRelations(data *Data, relations []pkgformat.Relation) {
	for _, r := range relations {
		switch r.Kind {
		case pkgformat.RelRequire:
			if len(r.Group) > 0 {
				data.Deps = append(data.Deps, r.Group)
			} else {
				data.Deps = append(data.Deps, pkgformat.DepGroup{r.Target})
			}
		case pkgformat.RelRefuse:
			data.Conflicts = append(data.Conflicts, r.Target)
		case pkgformat.RelRecommend:
			data.Recommendations = append(data.Recommendations, r.Target)
		case pkgformat.RelBundle:
			data.Bundled = append(data.Bundled, r.Target)
		case pkgformat.RelCompat:
			data.Compats = append(data.Compats, [2]string{r.Target, r.Other})
		case pkgformat.RelExtend:
			data.Extensions = append(data.Extensions, r.Target)
		}
	}
}

func boundNotices(data *Data) error {
	if len(data.Notices) > maxNotices {
		return fmt.Errorf("package emitted %d notices, exceeding the limit of %d", len(data.Notices), maxNotices)
	}
	for _, n := range data.Notices {
		if len(n) > maxNoticeChars {
			return fmt.Errorf("notice exceeds %d characters", maxNoticeChars)
		}
	}
	return nil
}

func validateAddonRequest(pkgID string, req *pkgformat.AddonRequest, perm Permission) error {
	if !isValidIdentifier(req.ID) {
		return &mcerrors.AddonValidationError{Package: pkgID, Reason: fmt.Sprintf("invalid addon id %q", req.ID)}
	}
	if !pkgformat.AddonKinds[req.Kind] {
		return &mcerrors.AddonValidationError{Package: pkgID, Reason: fmt.Sprintf("unknown addon kind %q", req.Kind)}
	}
	if req.URL == "" && req.Path == "" {
		return &mcerrors.AddonValidationError{Package: pkgID, Reason: "addon must supply exactly one of url or path"}
	}
	if req.URL != "" && req.Path != "" {
		return &mcerrors.AddonValidationError{Package: pkgID, Reason: "addon must supply exactly one of url or path, not both"}
	}
	if req.Path != "" {
		if perm != PermissionElevated {
			return &mcerrors.PermissionError{Package: pkgID, Permission: "elevated"}
		}
		if strings.HasPrefix(req.Path, "~") {
			req.Path = expandTilde(req.Path)
		}
	}
	if req.FileName == "" {
		ext := defaultExtension(req.Kind)
		req.FileName = fmt.Sprintf("mcvm_%s_%s%s", pkgID, req.ID, ext)
	}
	if err := validateHash(req.SHA256, 32); err != nil {
		return &mcerrors.AddonValidationError{Package: pkgID, Reason: err.Error()}
	}
	if err := validateHash(req.SHA512, 64); err != nil {
		return &mcerrors.AddonValidationError{Package: pkgID, Reason: err.Error()}
	}
	return nil
}

func validateHash(hash string, digestLen int) error {
	if hash == "" {
		return nil
	}
	if len(hash) > digestLen*2 {
		return fmt.Errorf("hash %q exceeds expected digest length", hash)
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return fmt.Errorf("hash %q is not valid hex", hash)
		}
	}
	return nil
}

func defaultExtension(kind string) string {
	switch kind {
	case "mod", "plugin":
		return ".jar"
	default:
		return ".zip"
	}
}

func expandTilde(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func isValidIdentifier(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

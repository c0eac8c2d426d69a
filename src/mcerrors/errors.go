// Package mcerrors defines the error taxonomy from the design's error
// handling section as typed, wrappable errors so callers can distinguish
// failure kinds with errors.As instead of string matching.
package mcerrors

import "fmt"

// NetworkError wraps a failed network operation with the URL and the
// higher-level operation that was attempting it.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s for %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError wraps a failed JSON/archive/pattern parse with the source.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ChecksumError reports a verified-file hash mismatch. The offending
// file has already been deleted by the time this is returned.
type ChecksumError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// ResolverConflictError reports two packages in mutual conflict, with
// the source chain leading to each.
type ResolverConflictError struct {
	PackageA, ChainA string
	PackageB, ChainB string
}

func (e *ResolverConflictError) Error() string {
	return fmt.Sprintf("package conflict: %s (via %s) conflicts with %s (via %s)", e.PackageA, e.ChainA, e.PackageB, e.ChainB)
}

// ResolverUnfulfilledError reports a dependency/extension group where no
// candidate could be resolved.
type ResolverUnfulfilledError struct {
	Kind   string // "dependency" or "extension"
	Parent string
	Chain  string
	Group  []string
}

func (e *ResolverUnfulfilledError) Error() string {
	return fmt.Sprintf("unfulfilled %s of %s (via %s): none of %v could be resolved", e.Kind, e.Parent, e.Chain, e.Group)
}

// ResolverCycleError reports a dependency cycle, with the full cycle path.
type ResolverCycleError struct {
	Cycle []string
}

func (e *ResolverCycleError) Error() string {
	return fmt.Sprintf("circular dependency: %v", e.Cycle)
}

// PermissionError reports a package instruction requiring a permission
// the caller's EvalParameters did not grant.
type PermissionError struct {
	Package    string
	Permission string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("package %s requires permission %s which was not granted", e.Package, e.Permission)
}

// AddonValidationError reports a malformed addon emitted by a package.
type AddonValidationError struct {
	Package string
	Reason  string
}

func (e *AddonValidationError) Error() string {
	return fmt.Sprintf("invalid addon in package %s: %s", e.Package, e.Reason)
}

// EvaluationError reports an explicit `fail` instruction or unmet
// property check during package evaluation.
type EvaluationError struct {
	Package string
	Reason  string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("package %s failed evaluation: %s", e.Package, e.Reason)
}

// LockfileError wraps a lockfile I/O failure.
type LockfileError struct {
	Op  string
	Err error
}

func (e *LockfileError) Error() string {
	return fmt.Sprintf("lockfile %s failed: %v", e.Op, e.Err)
}

func (e *LockfileError) Unwrap() error { return e.Err }

// PluginResultConflictError reports two plugins setting the same
// single-setter ModificationData field.
type PluginResultConflictError struct {
	Field    string
	PluginA  string
	PluginB  string
}

func (e *PluginResultConflictError) Error() string {
	return fmt.Sprintf("plugins %s and %s both set %s", e.PluginA, e.PluginB, e.Field)
}

// NotFoundError reports an unknown id at an API boundary (instance,
// package, user, ...).
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ArchiveCollisionError reports two archive entries extracting to the
// same destination path.
type ArchiveCollisionError struct {
	Path string
}

func (e *ArchiveCollisionError) Error() string {
	return fmt.Sprintf("archive extraction collision at %s", e.Path)
}

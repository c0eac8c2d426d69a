// Package lockfile implements the persistent record of installed addons
// per (instance, package), instance version/modification identity, and
// first-install tracking described by the system's external interfaces.
// It is the reconciliation ledger the update engine and addon installer
// diff against: whole-file JSON, atomic replace-on-write, addon diffing
// keyed by id.
package lockfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcoutput"
)

// Addon is the lockfile's record of one installed addon file, including
// every path it was materialised to in the instance's game directory.
type Addon struct {
	ID              string            `json:"id"`
	FileName        string            `json:"file_name,omitempty"`
	Files           []string          `json:"files"`
	Kind            string            `json:"kind"`
	Version         string            `json:"version,omitempty"`
	SHA256          string            `json:"sha256,omitempty"`
	SHA512          string            `json:"sha512,omitempty"`
}

type pkgEntry struct {
	Addons []Addon `json:"addons"`
}

// Instance is the lockfile's record of an instance's last-reconciled
// identity.
type Instance struct {
	Version                 string `json:"version"`
	GameModificationVersion string `json:"game_modification_version,omitempty"`
	ClientType              string `json:"client_type,omitempty"`
	ServerType              string `json:"server_type,omitempty"`
}

type contents struct {
	Packages         map[string]map[string]pkgEntry `json:"packages"`
	Instances        map[string]Instance             `json:"instances"`
	CreatedInstances map[string]bool                 `json:"created_instances"`
}

func emptyContents() contents {
	return contents{
		Packages:         map[string]map[string]pkgEntry{},
		Instances:        map[string]Instance{},
		CreatedInstances: map[string]bool{},
	}
}

// Lockfile is opened once per update batch, mutated in memory, and
// flushed to disk at Finish() checkpoints (end of each package, end of
// the batch), so a cancelled update never corrupts previously-committed
// state.
type Lockfile struct {
	path string
	data contents
}

// Open reads the lockfile at path, or starts from an empty one if it
// does not exist yet.
func Open(path string) (*Lockfile, error) {
	lf := &Lockfile{path: path, data: emptyContents()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lf, nil
	}
	if err != nil {
		return nil, &mcerrors.LockfileError{Op: "open", Err: err}
	}

	var onDisk struct {
		Packages         map[string]map[string]pkgEntry `json:"packages"`
		Instances        map[string]Instance             `json:"instances"`
		CreatedInstances []string                         `json:"created_instances"`
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return nil, &mcerrors.LockfileError{Op: "parse", Err: err}
	}
	if onDisk.Packages != nil {
		lf.data.Packages = onDisk.Packages
	}
	if onDisk.Instances != nil {
		lf.data.Instances = onDisk.Instances
	}
	for _, id := range onDisk.CreatedInstances {
		lf.data.CreatedInstances[id] = true
	}
	return lf, nil
}

// Finish writes the lockfile to disk via a temporary file + rename so
// the write is atomic on the same filesystem.
func (lf *Lockfile) Finish() error {
	out := struct {
		Packages         map[string]map[string]pkgEntry `json:"packages"`
		Instances        map[string]Instance             `json:"instances"`
		CreatedInstances []string                         `json:"created_instances"`
	}{
		Packages:  lf.data.Packages,
		Instances: lf.data.Instances,
	}
	for id := range lf.data.CreatedInstances {
		out.CreatedInstances = append(out.CreatedInstances, id)
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return &mcerrors.LockfileError{Op: "marshal", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(lf.path), 0o755); err != nil {
		return &mcerrors.LockfileError{Op: "write", Err: err}
	}
	tmp := lf.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return &mcerrors.LockfileError{Op: "write", Err: err}
	}
	if err := os.Rename(tmp, lf.path); err != nil {
		return &mcerrors.LockfileError{Op: "rename", Err: err}
	}
	return nil
}

// GetPackage returns the currently recorded addons for (instance, pkg).
func (lf *Lockfile) GetPackage(instanceID, pkgID string) []Addon {
	inst, ok := lf.data.Packages[instanceID]
	if !ok {
		return nil
	}
	return inst[pkgID].Addons
}

// UpdatePackage replaces the recorded addon set for (instance, pkg)
// with addons, returning the list of materialised file paths that are
// no longer owned by any addon in the new set and should be deleted.
// Before committing, any newly-introduced path that already exists on
// disk and wasn't already owned by this package's previous entry is
// confirmed through the output collaborator; a refusal aborts with no
// mutation.
func (lf *Lockfile) UpdatePackage(ctx context.Context, out mcoutput.Output, instanceID, pkgID string, addons []Addon) ([]string, error) {
	if lf.data.Packages[instanceID] == nil {
		lf.data.Packages[instanceID] = map[string]pkgEntry{}
	}
	inst := lf.data.Packages[instanceID]
	current, existed := inst[pkgID]

	var filesToRemove []string
	var newFiles []string

	if existed {
		keep := make(map[string]bool, len(addons))
		for _, a := range addons {
			keep[a.ID] = true
		}
		for _, cur := range current.Addons {
			if !keep[cur.ID] {
				filesToRemove = append(filesToRemove, cur.Files...)
			}
		}
		curByID := make(map[string]Addon, len(current.Addons))
		for _, cur := range current.Addons {
			curByID[cur.ID] = cur
		}
		for _, req := range addons {
			cur, had := curByID[req.ID]
			if !had {
				newFiles = append(newFiles, req.Files...)
				continue
			}
			curSet := toSet(cur.Files)
			reqSet := toSet(req.Files)
			for _, f := range cur.Files {
				if !reqSet[f] {
					filesToRemove = append(filesToRemove, f)
				}
			}
			for _, f := range req.Files {
				if !curSet[f] {
					newFiles = append(newFiles, f)
				}
			}
		}
	} else {
		for _, a := range addons {
			newFiles = append(newFiles, a.Files...)
		}
	}

	for _, f := range newFiles {
		if _, err := os.Stat(f); err == nil {
			allow, perr := out.PromptYesNo(ctx, false, "file "+f+" would be overwritten by an addon, continue?")
			if perr != nil {
				return nil, &mcerrors.LockfileError{Op: "prompt", Err: perr}
			}
			if !allow {
				return nil, &mcerrors.LockfileError{Op: "update_package", Err: errOverwriteRefused(f)}
			}
		}
	}

	inst[pkgID] = pkgEntry{Addons: addons}
	lf.data.Packages[instanceID] = inst
	return filesToRemove, nil
}

type overwriteRefusedError struct{ path string }

func (e *overwriteRefusedError) Error() string {
	return "file '" + e.path + "' would be overwritten by an addon and the overwrite was refused"
}

func errOverwriteRefused(path string) error { return &overwriteRefusedError{path: path} }

func toSet(files []string) map[string]bool {
	m := make(map[string]bool, len(files))
	for _, f := range files {
		m[f] = true
	}
	return m
}

// RemoveUnusedPackages drops every package entry for instanceID not
// present in usedPackages, returning the materialised file paths that
// belonged to the removed packages.
func (lf *Lockfile) RemoveUnusedPackages(instanceID string, usedPackages []string) []string {
	inst, ok := lf.data.Packages[instanceID]
	if !ok {
		return nil
	}
	used := toSet(usedPackages)
	var removed []string
	for pkgID, entry := range inst {
		if used[pkgID] {
			continue
		}
		for _, a := range entry.Addons {
			removed = append(removed, a.Files...)
		}
		delete(inst, pkgID)
	}
	return removed
}

// GetInstance returns the recorded identity for instanceID, if any.
func (lf *Lockfile) GetInstance(instanceID string) (Instance, bool) {
	inst, ok := lf.data.Instances[instanceID]
	return inst, ok
}

// SetInstance records the instance's identity.
func (lf *Lockfile) SetInstance(instanceID string, inst Instance) {
	lf.data.Instances[instanceID] = inst
}

// HasDoneFirstUpdate reports whether instanceID has completed at least
// one update.
func (lf *Lockfile) HasDoneFirstUpdate(instanceID string) bool {
	return lf.data.CreatedInstances[instanceID]
}

// MarkFirstUpdateDone records that instanceID has completed an update.
func (lf *Lockfile) MarkFirstUpdateDone(instanceID string) {
	lf.data.CreatedInstances[instanceID] = true
}

// ClearGameModificationVersion clears the recorded modification version
// for instanceID, used during teardown.
func (lf *Lockfile) ClearGameModificationVersion(instanceID string) {
	inst, ok := lf.data.Instances[instanceID]
	if !ok {
		return
	}
	inst.GameModificationVersion = ""
	lf.data.Instances[instanceID] = inst
}

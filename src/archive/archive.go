// Package archive extracts zip and tar+gzip archives, detecting a
// common leading directory name the way modloader/Java distribution
// archives typically wrap their contents.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
)

// Result describes the outcome of an extraction.
type Result struct {
	// RootDirName is the name of the single top-level directory every
	// entry was nested under, if there was exactly one, detected from
	// the first entry's path. The other entries are not checked, so it
	// is set even when they are not all nested under that directory.
	RootDirName string
}

// ExtractZip extracts a zip archive at src into destDir. Entries whose
// resolved path would land outside destDir are rejected (zip-slip
// guard); entries that would collide with an already-written file in
// this extraction are rejected as ArchiveCollisionError.
func ExtractZip(src, destDir string) (*Result, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, &mcerrors.ParseError{Source: src, Err: err}
	}
	defer r.Close()

	written := make(map[string]bool)
	result := &Result{}
	first := true

	for _, f := range r.File {
		target, root, err := resolveEntry(destDir, f.Name, first)
		if err != nil {
			return nil, err
		}
		if first {
			result.RootDirName = root
			first = false
		}
		if written[target] {
			return nil, &mcerrors.ArchiveCollisionError{Path: target}
		}
		written[target] = true

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		if err := writeFile(target, rc, f.Mode()); err != nil {
			rc.Close()
			return nil, err
		}
		rc.Close()
	}
	return result, nil
}

// ExtractTarGz extracts a tar+gzip archive at src into destDir, with
// the same zip-slip and collision guards as ExtractZip.
func ExtractTarGz(src, destDir string) (*Result, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, &mcerrors.ParseError{Source: src, Err: err}
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	written := make(map[string]bool)
	result := &Result{}
	first := true

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &mcerrors.ParseError{Source: src, Err: err}
		}

		target, root, err := resolveEntry(destDir, hdr.Name, first)
		if err != nil {
			return nil, err
		}
		if first {
			result.RootDirName = root
			first = false
		}
		if written[target] {
			return nil, &mcerrors.ArchiveCollisionError{Path: target}
		}
		written[target] = true

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, err
			}
			if err := writeFile(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return nil, err
			}
		case tar.TypeSymlink:
			// Symlinks inside extracted archives (native libs, java
			// installs) are recreated verbatim.
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func resolveEntry(destDir, name string, first bool) (target string, rootDirName string, err error) {
	clean := filepath.Clean(name)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	if first {
		parts := strings.SplitN(filepath.ToSlash(clean), "/", 2)
		if len(parts) == 2 {
			rootDirName = parts[0]
		}
	}
	return filepath.Join(destDir, clean), rootDirName, nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}

// NativeLibrary reports whether a relative archive entry path names a
// native shared object (.so, .dylib, .dll) that should be extracted
// into a version's natives directory, honoring an exclude list matched
// on the relative path string.
func NativeLibrary(relPath string, exclude []string) bool {
	lower := strings.ToLower(relPath)
	if !(strings.HasSuffix(lower, ".so") || strings.HasSuffix(lower, ".dylib") || strings.HasSuffix(lower, ".dll")) {
		return false
	}
	for _, ex := range exclude {
		if strings.HasPrefix(relPath, ex) {
			return false
		}
	}
	return true
}

// ExtractNatives extracts only the native shared objects from a zip
// archive (a library's native classifier jar) into destDir, flattening
// to file name, honoring the exclude list from the library's
// extract.exclude rule.
func ExtractNatives(src, destDir string, exclude []string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return &mcerrors.ParseError{Source: src, Err: err}
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !NativeLibrary(f.Name, exclude) {
			continue
		}
		target := filepath.Join(destDir, filepath.Base(f.Name))
		rc, err := f.Open()
		if err != nil {
			return err
		}
		if err := writeFile(target, rc, f.Mode()); err != nil {
			rc.Close()
			return err
		}
		rc.Close()
	}
	return nil
}

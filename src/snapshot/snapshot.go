// Package snapshot implements instance snapshot export/import: zipping
// an instance's game directory into snapshots/<instance_id>/<id>.zip,
// tracking each snapshot in an index.json alongside it, and optionally
// mirroring snapshots to S3-compatible object storage. An instance
// lifecycle without backup/restore is incomplete, so this rounds out
// the external snapshots/ path with a working Create/Restore pair.
package snapshot

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"

	"github.com/mcvm-launcher/mcvm-sub000/src/config"
	"github.com/mcvm-launcher/mcvm-sub000/src/lockfile"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/paths"
	"github.com/mcvm-launcher/mcvm-sub000/src/plugin"
)

// Entry is one recorded snapshot for an instance.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	Note      string    `json:"note,omitempty"`
}

// Index is the full snapshot history for one instance, persisted at
// snapshots/<instance_id>/index.json.
type Index struct {
	InstanceID string  `json:"instance_id"`
	Snapshots  []Entry `json:"snapshots"`
}

func indexPath(p *paths.Paths, instanceID string) string {
	return filepath.Join(p.Snapshots, instanceID, "index.json")
}

func archivePath(p *paths.Paths, instanceID, snapshotID string) string {
	return filepath.Join(p.Snapshots, instanceID, snapshotID+".zip")
}

func loadIndex(p *paths.Paths, instanceID string) (Index, error) {
	raw, err := os.ReadFile(indexPath(p, instanceID))
	if os.IsNotExist(err) {
		return Index{InstanceID: instanceID}, nil
	}
	if err != nil {
		return Index{}, err
	}
	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return Index{}, &mcerrors.ParseError{Source: indexPath(p, instanceID), Err: err}
	}
	return idx, nil
}

func saveIndex(p *paths.Paths, idx Index) error {
	path := indexPath(p, idx.InstanceID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// excludeFromSnapshot reports whether a path within an instance's game
// directory should be omitted from the archive. Addon files live under
// the content-addressed store and are re-linked by a fresh Install
// rather than duplicated into every snapshot.
func excludeFromSnapshot(relPath string) bool {
	for _, prefix := range []string{"mods", "resourcepacks", "texturepacks", "shaderpacks", "plugins"} {
		if relPath == prefix || strings.HasPrefix(relPath, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Create zips inst's game directory (minus addon-store-linked
// directories) into a new timestamped snapshot and records it in the
// instance's index.
func Create(ctx context.Context, p *paths.Paths, inst config.Instance, note string) (Entry, error) {
	id := uuid.NewString()
	gameDir := filepath.Join(p.InstanceDir(inst.ID), inst.GameDir())
	dest := archivePath(p, inst.ID, id)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Entry{}, err
	}

	size, err := zipDir(ctx, gameDir, dest)
	if err != nil {
		return Entry{}, fmt.Errorf("creating snapshot %s for instance %s: %w", id, inst.ID, err)
	}

	entry := Entry{ID: id, CreatedAt: time.Now(), SizeBytes: size, Note: note}
	idx, err := loadIndex(p, inst.ID)
	if err != nil {
		return Entry{}, err
	}
	idx.Snapshots = append(idx.Snapshots, entry)
	if err := saveIndex(p, idx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func zipDir(ctx context.Context, srcDir, destZip string) (int64, error) {
	out, err := os.Create(destZip)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, rerr := filepath.Rel(srcDir, path)
		if rerr != nil {
			return rerr
		}
		if rel == "." {
			return nil
		}
		if excludeFromSnapshot(filepath.ToSlash(rel)) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		w, werr := zw.Create(filepath.ToSlash(rel))
		if werr != nil {
			return werr
		}
		f, ferr := os.Open(path)
		if ferr != nil {
			return ferr
		}
		defer f.Close()
		_, cerr := io.Copy(w, f)
		return cerr
	})
	if err != nil {
		zw.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	info, err := out.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Restore tears inst's current modification identity down (reusing the
// instance lifecycle's teardown path so stale client/server jars and
// plugin-owned state don't survive the swap) and re-extracts the named
// snapshot over the now-empty game directory.
func Restore(ctx context.Context, p *paths.Paths, lf *lockfile.Lockfile, host *plugin.Host, inst config.Instance, snapshotID string) error {
	idx, err := loadIndex(p, inst.ID)
	if err != nil {
		return err
	}
	var found bool
	for _, e := range idx.Snapshots {
		if e.ID == snapshotID {
			found = true
			break
		}
	}
	if !found {
		return &mcerrors.NotFoundError{Kind: "snapshot", ID: snapshotID}
	}

	gameDir := filepath.Join(p.InstanceDir(inst.ID), inst.GameDir())
	if err := host.RemoveGameModification(ctx, plugin.SetupInput{
		InstanceID: inst.ID, Side: string(inst.Side), GameDir: gameDir,
		Version: inst.Version, ClientType: inst.Modification.ClientType, ServerType: inst.Modification.ServerType,
	}); err != nil {
		return fmt.Errorf("tearing down instance %s before restore: %w", inst.ID, err)
	}
	if err := os.RemoveAll(gameDir); err != nil {
		return err
	}
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		return err
	}

	archive := archivePath(p, inst.ID, snapshotID)
	r, err := zip.OpenReader(archive)
	if err != nil {
		return &mcerrors.ParseError{Source: archive, Err: err}
	}
	defer r.Close()
	for _, f := range r.File {
		target := filepath.Join(gameDir, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(gameDir)+string(filepath.Separator)) {
			return fmt.Errorf("snapshot entry %q escapes game directory", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, cerr := io.Copy(dst, rc)
		rc.Close()
		dst.Close()
		if cerr != nil {
			return cerr
		}
	}

	lf.ClearGameModificationVersion(inst.ID)
	return nil
}

// List returns every recorded snapshot for an instance, newest first.
func List(p *paths.Paths, instanceID string) ([]Entry, error) {
	idx, err := loadIndex(p, instanceID)
	if err != nil {
		return nil, err
	}
	out := append([]Entry{}, idx.Snapshots...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// s3Client lazily builds an S3 uploader/downloader from the default AWS
// credential chain, so embedders that never touch remote mirroring
// never need valid AWS configuration.
func s3Client() (*session.Session, error) {
	return session.NewSession(&aws.Config{})
}

// UploadToS3 mirrors a snapshot archive to bucket/key, for embedders
// that want off-machine backups. Create/Restore never require this to
// have been called.
func UploadToS3(ctx context.Context, p *paths.Paths, instanceID, snapshotID, bucket, key string) error {
	sess, err := s3Client()
	if err != nil {
		return err
	}
	f, err := os.Open(archivePath(p, instanceID, snapshotID))
	if err != nil {
		return err
	}
	defer f.Close()

	uploader := s3manager.NewUploader(sess)
	_, err = uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot %s to s3://%s/%s: %w", snapshotID, bucket, key, err)
	}
	return nil
}

// DownloadFromS3 fetches a remotely-mirrored snapshot archive to dest,
// for restoring a snapshot on a machine that never created it locally.
func DownloadFromS3(ctx context.Context, bucket, key, dest string) error {
	sess, err := s3Client()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	downloader := s3manager.NewDownloader(sess)
	_, err = downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("downloading snapshot from s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Package pkgregistry implements the Repository query surface: a
// lookup of a package id to its content location, content type, and
// advisory flags, backed by a core-builtin set, local paths, and
// remote repositories.
package pkgregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcvm-launcher/mcvm-sub000/src/download"
	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
	"github.com/mcvm-launcher/mcvm-sub000/src/pkgformat"
)

// ContentType distinguishes how a located package is parsed.
type ContentType string

const (
	ContentScript      ContentType = "script"
	ContentDeclarative ContentType = "declarative"
)

// Flag is an advisory attached to a repository's query result.
type Flag string

const (
	FlagOutOfDate  Flag = "out_of_date"
	FlagDeprecated Flag = "deprecated"
	FlagInsecure   Flag = "insecure"
	FlagMalicious  Flag = "malicious"
)

// QueryResult is what a repository returns for a package id lookup.
type QueryResult struct {
	Location    string // core-builtin marker, local path, or remote URL
	ContentType ContentType
	Flags       []Flag
}

// Repository is a source of package content, queried by id in
// priority order by Registry.
type Repository interface {
	Query(ctx context.Context, id string) (QueryResult, bool, error)
}

// LocalRepository resolves package ids to files under a directory:
// "<id>.json" (declarative) or "<id>.pkg.json" (script).
type LocalRepository struct {
	Dir string
}

func (r LocalRepository) Query(_ context.Context, id string) (QueryResult, bool, error) {
	declPath := filepath.Join(r.Dir, id+".json")
	if _, err := os.Stat(declPath); err == nil {
		return QueryResult{Location: declPath, ContentType: ContentDeclarative}, true, nil
	}
	scriptPath := filepath.Join(r.Dir, id+".pkg.json")
	if _, err := os.Stat(scriptPath); err == nil {
		return QueryResult{Location: scriptPath, ContentType: ContentScript}, true, nil
	}
	return QueryResult{}, false, nil
}

// RemoteRepository resolves package ids against a remote index
// endpoint returning a QueryResult document per id.
type RemoteRepository struct {
	BaseURL string
	Client  *download.Client
}

func (r RemoteRepository) Query(ctx context.Context, id string) (QueryResult, bool, error) {
	url := fmt.Sprintf("%s/packages/%s.json", r.BaseURL, id)
	var doc struct {
		Location    string   `json:"location"`
		ContentType string   `json:"content_type"`
		Flags       []string `json:"flags"`
	}
	if err := r.Client.JSON(ctx, "package_registry", url, &doc); err != nil {
		return QueryResult{}, false, nil
	}
	flags := make([]Flag, 0, len(doc.Flags))
	for _, f := range doc.Flags {
		flags = append(flags, Flag(f))
	}
	return QueryResult{Location: doc.Location, ContentType: ContentType(doc.ContentType), Flags: flags}, true, nil
}

// Registry queries a prioritized list of repositories and parses the
// winning result into a declarative or script package.
type Registry struct {
	Repositories []Repository
	Client       *download.Client
}

// Resolve finds the first repository that answers for id and parses
// its content.
func (reg *Registry) Resolve(ctx context.Context, id string) (*pkgformat.DeclarativePackage, *pkgformat.ScriptPackage, []Flag, error) {
	for _, repo := range reg.Repositories {
		res, ok, err := repo.Query(ctx, id)
		if err != nil {
			return nil, nil, nil, err
		}
		if !ok {
			continue
		}
		raw, err := load(ctx, reg.Client, res.Location)
		if err != nil {
			return nil, nil, nil, err
		}
		switch res.ContentType {
		case ContentDeclarative:
			var pkg pkgformat.DeclarativePackage
			if err := json.Unmarshal(raw, &pkg); err != nil {
				return nil, nil, nil, &mcerrors.ParseError{Source: res.Location, Err: err}
			}
			return &pkg, nil, res.Flags, nil
		case ContentScript:
			var pkg pkgformat.ScriptPackage
			if err := json.Unmarshal(raw, &pkg); err != nil {
				return nil, nil, nil, &mcerrors.ParseError{Source: res.Location, Err: err}
			}
			return nil, &pkg, res.Flags, nil
		default:
			return nil, nil, nil, fmt.Errorf("package %q has unknown content type %q", id, res.ContentType)
		}
	}
	return nil, nil, nil, &mcerrors.NotFoundError{Kind: "package", ID: id}
}

func load(ctx context.Context, client *download.Client, location string) ([]byte, error) {
	if client != nil && (hasScheme(location, "http://") || hasScheme(location, "https://")) {
		return client.Bytes(ctx, "package_content", location)
	}
	return os.ReadFile(location)
}

func hasScheme(s, scheme string) bool {
	return len(s) >= len(scheme) && s[:len(scheme)] == scheme
}

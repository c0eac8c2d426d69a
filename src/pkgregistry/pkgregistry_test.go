package pkgregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcvm-launcher/mcvm-sub000/src/download"
)

func writeDecl(t *testing.T, dir, id string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(`{"id":"`+id+`","properties":{},"addons":[]}`), 0o644))
}

func writeScript(t *testing.T, dir, id string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".pkg.json"), []byte(`{"id":"`+id+`","properties":{},"routines":{}}`), 0o644))
}

func TestLocalRepositoryPrefersDeclarativeOverScript(t *testing.T) {
	dir := t.TempDir()
	writeDecl(t, dir, "sodium")
	writeScript(t, dir, "sodium")

	repo := LocalRepository{Dir: dir}
	res, ok, err := repo.Query(context.Background(), "sodium")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ContentDeclarative, res.ContentType)
}

func TestLocalRepositoryFallsBackToScriptFile(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "fabric-api")

	repo := LocalRepository{Dir: dir}
	res, ok, err := repo.Query(context.Background(), "fabric-api")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ContentScript, res.ContentType)
}

func TestLocalRepositoryMissingReturnsNotFoundWithoutError(t *testing.T) {
	repo := LocalRepository{Dir: t.TempDir()}
	_, ok, err := repo.Query(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistryResolveUsesFirstRepositoryThatAnswers(t *testing.T) {
	dir := t.TempDir()
	writeDecl(t, dir, "sodium")

	reg := &Registry{Repositories: []Repository{
		LocalRepository{Dir: t.TempDir()}, // empty, falls through
		LocalRepository{Dir: dir},
	}}

	decl, script, _, err := reg.Resolve(context.Background(), "sodium")
	require.NoError(t, err)
	require.NotNil(t, decl)
	assert.Nil(t, script)
	assert.Equal(t, "sodium", decl.ID)
}

func TestRegistryResolveReturnsNotFoundWhenNoRepositoryAnswers(t *testing.T) {
	reg := &Registry{Repositories: []Repository{LocalRepository{Dir: t.TempDir()}}}
	_, _, _, err := reg.Resolve(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRemoteRepositoryQueryParsesFlagsAndLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"location":"https://example.com/sodium.json","content_type":"declarative","flags":["out_of_date"]}`))
	}))
	defer srv.Close()

	repo := RemoteRepository{BaseURL: srv.URL, Client: download.NewClient()}
	res, ok, err := repo.Query(context.Background(), "sodium")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ContentDeclarative, res.ContentType)
	assert.Equal(t, []Flag{FlagOutOfDate}, res.Flags)
}

func TestRemoteRepositoryQueryMissingIsNotFoundWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	repo := RemoteRepository{BaseURL: srv.URL, Client: download.NewClient()}
	_, ok, err := repo.Query(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistryResolveFetchesRemoteContentOverHTTP(t *testing.T) {
	var contentSrv *httptest.Server
	contentSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fabric-api","properties":{},"addons":[]}`))
	}))
	defer contentSrv.Close()

	indexSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"location":"` + contentSrv.URL + `/fabric-api.json","content_type":"declarative","flags":[]}`))
	}))
	defer indexSrv.Close()

	client := download.NewClient()
	reg := &Registry{Repositories: []Repository{RemoteRepository{BaseURL: indexSrv.URL, Client: client}}, Client: client}

	decl, _, _, err := reg.Resolve(context.Background(), "fabric-api")
	require.NoError(t, err)
	require.NotNil(t, decl)
	assert.Equal(t, "fabric-api", decl.ID)
}

func TestHasScheme(t *testing.T) {
	assert.True(t, hasScheme("https://example.com", "https://"))
	assert.False(t, hasScheme("/local/path", "https://"))
}

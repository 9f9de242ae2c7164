package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/config"
	"github.com/streamdex/streamdex/internal/diskcache"
	"github.com/streamdex/streamdex/internal/favorites"
	"github.com/streamdex/streamdex/internal/jobs"
	"github.com/streamdex/streamdex/internal/playlist"
	"github.com/streamdex/streamdex/internal/providers"
	"github.com/streamdex/streamdex/internal/xtream"
	"github.com/stretchr/testify/require"
)

const testPlaylist = "#EXTM3U\n" +
	`#EXTINF:-1 tvg-name="News 1" group-title="News",News 1` + "\n" +
	"http://stream/news1\n"

type fixture struct {
	server   *Server
	registry *providers.Registry
	router   http.Handler
	dataDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:   dir,
		CacheDir:  dir,
		UserAgent: "TestAgent/1.0",
	}
	registry := providers.NewRegistry()
	runner := jobs.NewRunner(
		diskcache.New(dir, 0),
		playlist.NewFetcher(dir, nil, cfg.UserAgent, ""),
		xtream.Options{},
		registry,
	)
	favStore := favorites.NewStore(filepath.Join(dir, "favorites"), dir)
	srv := NewServer(cfg, registry, runner, favStore)
	return &fixture{
		server:   srv,
		registry: registry,
		router:   srv.Router(),
		dataDir:  dir,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) addLocalProvider(t *testing.T, name, slug string) *catalog.Provider {
	t.Helper()
	path := filepath.Join(f.dataDir, slug+"-source.m3u")
	require.NoError(t, os.WriteFile(path, []byte(testPlaylist), 0o644))
	p := &catalog.Provider{Name: name, Kind: catalog.KindM3ULocal, URL: path, Slug: slug}
	f.registry.Set(append(f.registry.List(), p))
	return p
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListProviders(t *testing.T) {
	f := newFixture(t)
	f.addLocalProvider(t, "Acme", "acme")

	rec := f.do(t, http.MethodGet, "/api/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []providerSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "acme", got[0].Slug)
	require.Equal(t, "local", got[0].Kind)
	require.Nil(t, got[0].LastRun, "no refresh has run yet")
}

func TestGetProvider(t *testing.T) {
	f := newFixture(t)
	f.addLocalProvider(t, "Acme", "acme")

	rec := f.do(t, http.MethodGet, "/api/providers/acme", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got providerDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Acme", got.Provider.Name)
	require.Equal(t, "TestAgent/1.0", got.Playback.UserAgent)

	rec = f.do(t, http.MethodGet, "/api/providers/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshProvider(t *testing.T) {
	f := newFixture(t)
	f.addLocalProvider(t, "Acme", "acme")

	rec := f.do(t, http.MethodPost, "/api/providers/acme/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status jobs.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, 1, status.Channels)
	require.Empty(t, status.Error)

	// the refreshed catalog is visible in the list view
	rec = f.do(t, http.MethodGet, "/api/providers", "")
	var got []providerSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 1, got[0].Channels)
	require.NotNil(t, got[0].LastRun)
}

func TestRefreshProviderFailure(t *testing.T) {
	f := newFixture(t)
	p := &catalog.Provider{Name: "Down", Kind: catalog.KindM3UURL, URL: "http://127.0.0.1:1/x", Slug: "down"}
	f.registry.Set([]*catalog.Provider{p})

	rec := f.do(t, http.MethodPost, "/api/providers/down/refresh", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var status jobs.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.NotEmpty(t, status.Error)
}

func TestRefreshUnknownProvider(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/providers/nope/refresh", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFavoritesRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())

	payload := `[{"name": "News 1", "url": "http://stream/news1", "group_title": "News"}]`
	rec = f.do(t, http.MethodPut, "/api/favorites", payload)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []*catalog.Channel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "News 1", got[0].Name)
	require.Equal(t, "http://stream/news1", got[0].URL)
}

func TestPutFavoritesRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/api/favorites", `{"not": "a list"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRateLimit(t *testing.T) {
	f := newFixture(t)
	f.addLocalProvider(t, "Acme", "acme")

	var limited bool
	for i := 0; i < refreshRateLimit+1; i++ {
		rec := f.do(t, http.MethodPost, "/api/providers/acme/refresh", "")
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	require.True(t, limited, "refresh endpoint must rate-limit")
}

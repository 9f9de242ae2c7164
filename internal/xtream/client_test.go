package xtream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/diskcache"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const authPayload = `{
	"user_info": {"username": "EffUser", "password": "EffPass"},
	"server_info": {"url": "acme.example", "port": "8080", "https_port": 443}
}`

// mockAPI serves canned player_api responses and counts calls per action.
type mockAPI struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		responses: map[string]string{
			"": authPayload,
			"get_live_categories": `[
				{"category_id": 1, "category_name": "News"},
				{"category_id": "2", "category_name": "Arts"}
			]`,
			"get_live_streams": `[
				{"stream_id": 10, "name": "CNN", "stream_icon": "http://x/cnn.png", "category_id": 1, "stream_type": "created_live", "is_adult": 0},
				{"stream_id": 11, "name": "", "category_id": 1},
				{"stream_id": 12, "name": "Late Night", "category_id": "1", "is_adult": "1"},
				{"stream_id": 13, "name": "Mystery", "category_id": null}
			]`,
			"get_vod_categories": `[]`,
			"get_vod_streams": `[
				{"stream_id": 20, "name": "Big Movie", "container_extension": "mkv", "category_id": 5, "stream_type": "movie"}
			]`,
			"get_series_categories": `[
				{"category_id": 7, "category_name": "Drama"}
			]`,
			"get_series": `[
				{"series_id": "30", "name": "The Show", "cover": "http://x/show.png", "category_id": 7}
			]`,
			"get_series_info": `{
				"seasons": [{"name": "Season 1", "season_number": 1}],
				"episodes": {"1": [
					{"id": 100, "title": "Pilot", "container_extension": "mp4"},
					{"id": 101, "title": "Second", "container_extension": "mp4"}
				]},
				"info": {"cover": "http://x/show.png"}
			}`,
		},
		calls: map[string]int{},
	}
}

func (m *mockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	m.mu.Lock()
	m.calls[action]++
	body, ok := m.responses[action]
	m.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (m *mockAPI) callCount(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[action]
}

func (m *mockAPI) set(action, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[action] = body
}

func testOptions() Options {
	return Options{
		HideAdult:  true,
		AuthDelay:  time.Millisecond,
		FetchDelay: time.Millisecond,
		Limiter:    rate.NewLimiter(rate.Inf, 0),
	}
}

func newTestClient(t *testing.T, serverURL string) (*Client, *catalog.Provider, *diskcache.Cache) {
	t.Helper()
	p := &catalog.Provider{
		Name: "Acme", Kind: catalog.KindXtream,
		URL: serverURL, Username: "user", Password: "pass", Slug: "acme",
	}
	cache := diskcache.New(t.TempDir(), 0)
	return New(p, cache, testOptions()), p, cache
}

func TestAuthenticate(t *testing.T) {
	api := newMockAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL)
	require.NoError(t, c.Authenticate(context.Background()))
	require.Equal(t, StateAuthenticated, c.State())
	// effective credentials come from user_info, not the configured record
	require.Equal(t, "EffUser", c.authUser)
	require.Equal(t, "EffPass", c.authPass)
	require.Equal(t, "https://acme.example:443", c.SecureBase())
}

func TestAuthenticateNonSuccessIsTerminal(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL)
	err := c.Authenticate(context.Background())
	require.ErrorIs(t, err, ErrAuthFailed)
	require.Equal(t, 1, calls, "non-2xx must not be retried")
	require.Equal(t, StateUnauthenticated, c.State())
}

func TestAuthenticateRetriesConnectionFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c, _, _ := newTestClient(t, srv.URL)
	c.opts.AuthAttempts = 3
	err := c.Authenticate(context.Background())
	require.ErrorIs(t, err, ErrAuthFailed)
	require.Equal(t, StateUnauthenticated, c.State())
}

func TestLoadIPTV(t *testing.T) {
	api := newMockAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, p, cache := newTestClient(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))
	require.NoError(t, c.LoadIPTV(ctx))
	require.Equal(t, StateLoaded, c.State())

	// empty-name and adult-flagged entries are skipped
	require.Len(t, p.Channels, 2)
	require.Equal(t, "CNN", p.Channels[0].Name)
	require.Equal(t, "Mystery", p.Channels[1].Name)

	// created_live normalizes to live; effective credentials in the path
	require.Equal(t, srv.URL+"/live/EffUser/EffPass/10.ts", p.Channels[0].URL)

	// null category id falls back to the catch-all group
	require.Equal(t, catchAllName, p.Channels[1].GroupTitle)

	require.Len(t, p.Movies, 1)
	require.Equal(t, srv.URL+"/movie/EffUser/EffPass/20.mkv", p.Movies[0].URL)
	// unresolved category id 5 lands in the VOD catch-all
	require.Equal(t, catchAllName, p.Movies[0].GroupTitle)

	require.Len(t, p.Series, 1)
	require.Equal(t, "The Show", p.Series[0].Name)
	require.Equal(t, "30", p.Series[0].ID)
	require.Empty(t, p.Series[0].Seasons, "series stay unexpanded until detail is requested")

	// per class: live News/Arts/catch-all, vod catch-all, series Drama/catch-all
	require.Len(t, p.Groups, 6)
	require.Equal(t, []string{"Arts", "News", catchAllName},
		[]string{p.Groups[0].Name, p.Groups[1].Name, p.Groups[2].Name},
		"groups sorted by name, catch-all included")

	drama, ok := p.Group("Drama")
	require.True(t, ok)
	require.Equal(t, catalog.GroupSeries, drama.Kind)
	require.Len(t, drama.Series, 1)
	require.Empty(t, drama.Channels, "series are not double-listed as channels")

	// both skipped entries are archived
	data, err := os.ReadFile(filepath.Join(cache.Dir(), "acme-skipped_streams.json"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	var entry struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "empty_name", entry.Reason)
}

func TestLoadIPTVTwiceIsNoOp(t *testing.T) {
	api := newMockAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, p, _ := newTestClient(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))
	require.NoError(t, c.LoadIPTV(ctx))

	channels, movies, series := len(p.Channels), len(p.Movies), len(p.Series)
	require.NoError(t, c.LoadIPTV(ctx))
	require.Equal(t, channels, len(p.Channels))
	require.Equal(t, movies, len(p.Movies))
	require.Equal(t, series, len(p.Series))
	require.Equal(t, 1, api.callCount("get_live_streams"))
}

func TestLoadIPTVUnauthenticatedIsNoOp(t *testing.T) {
	api := newMockAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, p, _ := newTestClient(t, srv.URL)
	require.NoError(t, c.LoadIPTV(context.Background()))
	require.Empty(t, p.Channels)
	require.Equal(t, StateUnauthenticated, c.State())
	require.Zero(t, api.callCount("get_live_streams"))
}

func TestLoadIPTVUsesCacheAcrossClients(t *testing.T) {
	api := newMockAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	cacheDir := t.TempDir()
	ctx := context.Background()

	load := func() *catalog.Provider {
		p := &catalog.Provider{
			Name: "Acme", Kind: catalog.KindXtream,
			URL: srv.URL, Username: "user", Password: "pass", Slug: "acme",
		}
		c := New(p, diskcache.New(cacheDir, 0), testOptions())
		require.NoError(t, c.Authenticate(ctx))
		require.NoError(t, c.LoadIPTV(ctx))
		return p
	}

	first := load()
	second := load()
	require.Equal(t, len(first.Channels), len(second.Channels))
	// a fresh client instance reuses the cached responses
	require.Equal(t, 1, api.callCount("get_live_streams"))
	require.Equal(t, 1, api.callCount("get_series"))
}

func TestLoadIPTVPartialOnStreamFailure(t *testing.T) {
	api := newMockAPI()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") == "get_live_streams" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		api.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c, p, _ := newTestClient(t, srv.URL)
	c.opts.FetchAttempts = 2
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))
	require.NoError(t, c.LoadIPTV(ctx))

	// live class omitted, the rest of the catalog still assembles
	require.Empty(t, p.Channels)
	require.Len(t, p.Movies, 1)
	require.Len(t, p.Series, 1)
	require.Equal(t, StateLoaded, c.State())
}

func TestGetSeriesInfo(t *testing.T) {
	api := newMockAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, p, _ := newTestClient(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))
	require.NoError(t, c.LoadIPTV(ctx))

	serie := p.Series[0]
	require.NoError(t, c.GetSeriesInfo(ctx, serie))
	require.Len(t, serie.Seasons, 1)

	season, ok := serie.Season("Season 1")
	require.True(t, ok)
	require.Len(t, season.Episodes, 2)
	pilot, ok := season.Episode("Pilot")
	require.True(t, ok)
	require.Equal(t, srv.URL+"/series/EffUser/EffPass/100.mp4", pilot.URL)

	// a re-fetch with changed upstream titles must not leave stale episodes
	api.set("get_series_info", `{
		"seasons": [{"name": "Season 1", "season_number": 1}],
		"episodes": {"1": [{"id": 100, "title": "Pilot (remastered)", "container_extension": "mp4"}]},
		"info": {}
	}`)
	require.NoError(t, c.GetSeriesInfo(ctx, serie))
	season, ok = serie.Season("Season 1")
	require.True(t, ok)
	require.Len(t, season.Episodes, 1)
	_, ok = season.Episode("Pilot")
	require.False(t, ok)
}

func TestGetSeriesInfoSynthesizesDefaultSeason(t *testing.T) {
	api := newMockAPI()
	api.set("get_series_info", `{
		"seasons": [],
		"episodes": {"1": [{"id": 200, "title": "Only One", "container_extension": "avi"}]},
		"info": {"cover": "http://x/cover.png"}
	}`)
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))

	serie := &catalog.Serie{ID: "30", Name: "Bare", Logo: "http://x/bare.png"}
	require.NoError(t, c.GetSeriesInfo(ctx, serie))
	require.Len(t, serie.Seasons, 1)
	require.Equal(t, "Season 1", serie.Seasons[0].Name)
	ep, ok := serie.Seasons[0].Episode("Only One")
	require.True(t, ok)
	require.Equal(t, "http://x/cover.png", ep.Logo)
}

func TestGetSeriesInfoRequiresAuth(t *testing.T) {
	c, _, _ := newTestClient(t, "http://127.0.0.1:0")
	err := c.GetSeriesInfo(context.Background(), &catalog.Serie{ID: "1"})
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestFlexDecoding(t *testing.T) {
	var s stream
	require.NoError(t, json.Unmarshal([]byte(
		`{"stream_id": 42, "name": "N", "category_id": "7", "is_adult": "1"}`), &s))
	require.Equal(t, FlexString("42"), s.ID)
	require.Equal(t, FlexString("7"), s.CategoryID)
	require.True(t, s.IsAdult.Bool())

	require.NoError(t, json.Unmarshal([]byte(
		`{"stream_id": "x9", "category_id": null, "is_adult": false}`), &s))
	require.Equal(t, FlexString("x9"), s.ID)
	require.Equal(t, FlexString(""), s.CategoryID)
	require.False(t, s.IsAdult.Bool())
}

func TestValidStreamURL(t *testing.T) {
	require.True(t, validStreamURL("http://host/live/u/p/1.ts"))
	require.True(t, validStreamURL("https://host:8080/movie/u/p/2.mkv"))
	require.True(t, validStreamURL("ftp://host/file"))
	require.False(t, validStreamURL("rtp://host/stream"))
	require.False(t, validStreamURL("/relative/path"))
	require.False(t, validStreamURL("http://"))
}

// SPDX-License-Identifier: MIT

// Package xtream implements the Xtream-Codes player_api client. A client
// moves through unauthenticated, authenticated and loaded states, in that
// order only; reloading a provider means constructing a fresh client.
package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/diskcache"
	xlog "github.com/streamdex/streamdex/internal/log"
	"github.com/streamdex/streamdex/internal/metrics"
	"github.com/streamdex/streamdex/internal/slug"
)

// StreamClass is one of the three top-level content kinds an Xtream provider
// segments its catalog into.
type StreamClass string

const (
	ClassLive   StreamClass = "Live"
	ClassVOD    StreamClass = "VOD"
	ClassSeries StreamClass = "Series"
)

// classes is the fixed load order.
var classes = [3]StreamClass{ClassLive, ClassVOD, ClassSeries}

// State tracks the client lifecycle. Transitions are monotonic.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateLoaded
)

const (
	catchAllID   = "9999"
	catchAllName = "xEverythingElse"

	connectTimeout = 2 * time.Second
	requestTimeout = 15 * time.Second

	maxResponseSize = 256 << 20

	skippedFileName = "skipped_streams.json"
)

// Options tunes retry and politeness behavior. Zero values pick the defaults.
type Options struct {
	// HideAdult drops adult-flagged live streams from the catalog.
	HideAdult bool
	// AuthAttempts bounds login retries on connection failures (default 30).
	AuthAttempts int
	// AuthDelay is the pause between login attempts (default 1s).
	AuthDelay time.Duration
	// FetchAttempts bounds category/stream fetch retries (default 3).
	FetchAttempts int
	// FetchDelay is the pause between fetch attempts (default 500ms).
	FetchDelay time.Duration
	// Limiter paces player_api calls. Nil picks a default of one call per
	// 200ms.
	Limiter *rate.Limiter
	// HTTPClient overrides the default client (2s connect, 15s request).
	HTTPClient *http.Client
}

func (o *Options) applyDefaults() {
	if o.AuthAttempts <= 0 {
		o.AuthAttempts = 30
	}
	if o.AuthDelay <= 0 {
		o.AuthDelay = time.Second
	}
	if o.FetchAttempts <= 0 {
		o.FetchAttempts = 3
	}
	if o.FetchDelay <= 0 {
		o.FetchDelay = 500 * time.Millisecond
	}
	if o.Limiter == nil {
		o.Limiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		}
	}
}

// Client loads one provider's catalog over the player_api protocol.
type Client struct {
	provider *catalog.Provider
	cache    *diskcache.Cache
	base     string
	opts     Options
	logger   zerolog.Logger

	state      State
	authUser   string
	authPass   string
	secureBase string
}

// New returns an unauthenticated client for the given provider. The cache
// backs the category and stream responses; series detail is never cached.
func New(p *catalog.Provider, cache *diskcache.Cache, opts Options) *Client {
	opts.applyDefaults()
	return &Client{
		provider: p,
		cache:    cache,
		base:     strings.TrimRight(p.URL, "/"),
		opts:     opts,
		logger: xlog.WithComponent("xtream").With().
			Str(xlog.FieldProvider, p.Slug).Logger(),
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State { return c.state }

// SecureBase returns the HTTPS base URL advertised during authentication, or
// empty when the server did not advertise one. The primary base stays
// whatever the provider record configured.
func (c *Client) SecureBase() string { return c.secureBase }

// Authenticate logs in against player_api.php. Connection-level failures are
// retried up to AuthAttempts times; a non-2xx response is terminal and not
// retried. On success the effective credentials from user_info replace the
// configured ones for all subsequent URLs.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.state != StateUnauthenticated {
		c.logger.Warn().
			Str("event", "xtream.auth_skipped").
			Msg("authenticate called on already authenticated client")
		return nil
	}

	authURL := fmt.Sprintf("%s/player_api.php?username=%s&password=%s",
		c.base, url.QueryEscape(c.provider.Username), url.QueryEscape(c.provider.Password))

	var lastErr error
	for attempt := 1; attempt <= c.opts.AuthAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.opts.AuthDelay); err != nil {
				return &Error{Sentinel: ErrAuthFailed, Operation: "authenticate", Err: err}
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
		if err != nil {
			return &Error{Sentinel: ErrAuthFailed, Operation: "authenticate", Err: err}
		}
		resp, err := c.opts.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Debug().
				Err(err).
				Str("event", "xtream.auth_retry").
				Int("attempt", attempt).
				Msg("authentication attempt failed, retrying")
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &Error{Sentinel: ErrAuthFailed, Operation: "authenticate", Status: resp.StatusCode}
		}

		var auth authResponse
		if err := json.Unmarshal(body, &auth); err != nil {
			return &Error{Sentinel: ErrBadResponse, Operation: "authenticate", Err: err}
		}
		c.authUser = auth.UserInfo.Username
		c.authPass = auth.UserInfo.Password
		if auth.ServerInfo.HTTPSPort != "" && auth.ServerInfo.URL != "" {
			c.secureBase = fmt.Sprintf("https://%s:%s", auth.ServerInfo.URL, auth.ServerInfo.HTTPSPort)
		}
		c.state = StateAuthenticated
		c.logger.Info().
			Str("event", "xtream.authenticated").
			Str(xlog.FieldBaseURL, c.base).
			Bool("secure_base", c.secureBase != "").
			Msg("provider authenticated")
		return nil
	}
	return &Error{Sentinel: ErrAuthFailed, Operation: "authenticate", Err: lastErr}
}

// LoadIPTV assembles the full catalog: for each stream class in fixed order,
// categories then streams, cache-or-fetch. A class whose streams cannot be
// fetched after retries is omitted and the load continues; partial catalogs
// are an accepted outcome. Calling before authentication or after a completed
// load is a warned no-op.
func (c *Client) LoadIPTV(ctx context.Context) error {
	if c.state != StateAuthenticated {
		c.logger.Warn().
			Str("event", "xtream.load_skipped").
			Int("state", int(c.state)).
			Msg("load requested in wrong state")
		return nil
	}
	for _, class := range classes {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.loadClass(ctx, class)
	}
	c.state = StateLoaded
	c.logger.Info().
		Str("event", "xtream.loaded").
		Int(xlog.FieldChannels, len(c.provider.Channels)).
		Int(xlog.FieldMovies, len(c.provider.Movies)).
		Int(xlog.FieldSeries, len(c.provider.Series)).
		Msg("catalog loaded")
	return nil
}

// loadClass loads categories and streams for one class into the provider.
func (c *Client) loadClass(ctx context.Context, class StreamClass) {
	logger := c.logger.With().Str(xlog.FieldStreamClass, string(class)).Logger()

	groups, byID := c.loadGroups(ctx, class, logger)
	for _, g := range groups {
		c.provider.AddGroup(g)
	}
	catchAll := byID[catchAllID]

	raw, ok := c.cachedOrFetched(ctx, "all_stream_"+string(class)+".json", c.streamsAction(class), nil, logger)
	if !ok {
		logger.Warn().
			Str("event", "xtream.streams_unavailable").
			Msg("stream list unavailable, class omitted")
		return
	}
	var streams []stream
	if err := json.Unmarshal(raw, &streams); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "xtream.streams_malformed").
			Msg("stream list did not decode, class omitted")
		return
	}

	for _, s := range streams {
		if s.Name == "" {
			c.archiveSkipped(class, "empty_name", s, logger)
			continue
		}
		if class == ClassLive && s.IsAdult.Bool() && c.opts.HideAdult {
			c.archiveSkipped(class, "adult_hidden", s, logger)
			continue
		}

		catID := string(s.CategoryID)
		if catID == "" {
			catID = catchAllID
		}
		group, found := byID[catID]
		if !found {
			group = catchAll
		}

		if class == ClassSeries {
			serie := c.buildSerie(s)
			c.provider.AddSerie(serie)
			if !group.HasSerie(serie) {
				group.Series = append(group.Series, serie)
			}
			continue
		}
		ch := c.buildChannel(class, s, group.Name, logger)
		c.provider.Place(group, ch)
	}
}

// loadGroups returns the class's groups sorted by name, catch-all included,
// plus the category-id index. A failed categories fetch degrades to the
// catch-all group alone so streams still have a home.
func (c *Client) loadGroups(ctx context.Context, class StreamClass, logger zerolog.Logger) ([]*catalog.Group, map[string]*catalog.Group) {
	catchAll := newCatchAllGroup(class)
	groups := []*catalog.Group{catchAll}
	byID := map[string]*catalog.Group{catchAllID: catchAll}

	raw, ok := c.cachedOrFetched(ctx, "all_groups_"+string(class)+".json", c.categoriesAction(class), nil, logger)
	if !ok {
		logger.Warn().
			Str("event", "xtream.categories_unavailable").
			Msg("categories unavailable, using catch-all group only")
		return groups, byID
	}
	var cats []category
	if err := json.Unmarshal(raw, &cats); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "xtream.categories_malformed").
			Msg("categories did not decode, using catch-all group only")
		return groups, byID
	}
	for _, cat := range cats {
		g := &catalog.Group{ID: string(cat.ID), Name: cat.Name, Kind: classKind(class)}
		groups = append(groups, g)
		if _, dup := byID[g.ID]; !dup {
			byID[g.ID] = g
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, byID
}

// GetSeriesInfo fetches season and episode detail for one serie. The call is
// never cached and always hits the provider. Prior seasons are cleared before
// repopulating so upstream title changes cannot leave stale entries behind.
// A response without seasons synthesizes a single "Season 1" carrying the
// serie's own cover.
func (c *Client) GetSeriesInfo(ctx context.Context, serie *catalog.Serie) error {
	if c.state == StateUnauthenticated {
		return &Error{Sentinel: ErrNotAuthenticated, Operation: "get_series_info"}
	}

	raw, err := c.fetchJSON(ctx, "get_series_info", url.Values{"series_id": {serie.ID}})
	if err != nil {
		return err
	}
	var info seriesInfoResponse
	if err := json.Unmarshal(raw, &info); err != nil {
		return &Error{Sentinel: ErrBadResponse, Operation: "get_series_info", Err: err}
	}

	seasons := info.Seasons
	if len(seasons) == 0 {
		cover := info.Info.Cover
		if cover == "" {
			cover = serie.Logo
		}
		seasons = []seasonInfo{{Name: "Season 1", SeasonNumber: "1", Cover: cover}}
	}

	serie.ClearSeasons()
	for _, si := range seasons {
		season := serie.EnsureSeason(si.displayName())
		for _, ep := range info.Episodes[string(si.SeasonNumber)] {
			season.PutEpisode(ep.Title, c.buildEpisode(serie, si, ep))
		}
	}
	c.logger.Info().
		Str("event", "xtream.series_info_loaded").
		Str(xlog.FieldSeries, serie.Name).
		Int("seasons", len(serie.Seasons)).
		Msg("series detail loaded")
	return nil
}

func (c *Client) buildSerie(s stream) *catalog.Serie {
	id := string(s.SeriesID)
	if id == "" {
		id = string(s.ID)
	}
	cover := s.Cover
	if cover == "" {
		cover = s.Icon
	}
	return &catalog.Serie{
		ID:       id,
		Name:     s.Name,
		Logo:     cover,
		LogoPath: slug.LogoPath(c.cache.Dir(), c.provider.Name, s.Name, cover),
	}
}

func (c *Client) buildChannel(class StreamClass, s stream, groupName string, logger zerolog.Logger) *catalog.Channel {
	streamType := s.StreamType
	// providers report the odd "created_live" type for live streams
	if streamType == "created_live" {
		streamType = "live"
	}
	if streamType == "" {
		if class == ClassLive {
			streamType = "live"
		} else {
			streamType = "movie"
		}
	}
	ext := "ts"
	if class == ClassVOD {
		ext = s.ContainerExtension
	}
	streamURL := fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		c.base, streamType, c.authUser, c.authPass, string(s.ID), ext)
	if !validStreamURL(streamURL) {
		logger.Warn().
			Str("event", "xtream.invalid_stream_url").
			Str("stream", s.Name).
			Msg("constructed stream URL failed syntax check, keeping it")
	}
	return &catalog.Channel{
		ID:         string(s.ID),
		Name:       s.Name,
		Logo:       s.Icon,
		LogoPath:   slug.LogoPath(c.cache.Dir(), c.provider.Name, s.Name, s.Icon),
		GroupTitle: groupName,
		URL:        streamURL,
		IsAdult:    s.IsAdult.Bool(),
	}
}

func (c *Client) buildEpisode(serie *catalog.Serie, si seasonInfo, ep episodeInfo) *catalog.Channel {
	logo := ep.Info.MovieImage
	if logo == "" {
		logo = si.Cover
	}
	if logo == "" {
		logo = serie.Logo
	}
	return &catalog.Channel{
		ID:         string(ep.ID),
		Name:       ep.Title,
		Logo:       logo,
		LogoPath:   slug.LogoPath(c.cache.Dir(), c.provider.Name, ep.Title, logo),
		GroupTitle: serie.Name,
		URL: fmt.Sprintf("%s/series/%s/%s/%s.%s",
			c.base, c.authUser, c.authPass, string(ep.ID), ep.ContainerExtension),
	}
}

// cachedOrFetched resolves a player_api response through the disk cache: a
// fresh cached blob wins, otherwise the endpoint is fetched and the result
// persisted. ok=false means both paths failed.
func (c *Client) cachedOrFetched(ctx context.Context, logical, action string, params url.Values, logger zerolog.Logger) ([]byte, bool) {
	if data, ok := c.cache.Load(c.provider.Slug, logical); ok {
		metrics.IncCacheResult("hit")
		logger.Debug().
			Str("event", "xtream.cache_hit").
			Str(xlog.FieldPath, logical).
			Msg("using cached response")
		return data, true
	}
	metrics.IncCacheResult("miss")
	data, err := c.fetchJSON(ctx, action, params)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("event", "xtream.fetch_failed").
			Str("action", action).
			Msg("fetch failed after retries")
		return nil, false
	}
	if err := c.cache.Save(c.provider.Slug, logical, data); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "xtream.cache_write_failed").
			Str(xlog.FieldPath, logical).
			Msg("could not persist response")
	}
	return data, true
}

// fetchJSON GETs one player_api action with bounded retries and rate pacing.
func (c *Client) fetchJSON(ctx context.Context, action string, params url.Values) ([]byte, error) {
	reqURL := c.apiURL(action, params)
	var lastErr error
	for attempt := 1; attempt <= c.opts.FetchAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.opts.FetchDelay); err != nil {
				return nil, &Error{Sentinel: ErrUnavailable, Operation: action, Err: err}
			}
		}
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return nil, &Error{Sentinel: ErrUnavailable, Operation: action, Err: err}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, &Error{Sentinel: ErrUnavailable, Operation: action, Err: err}
		}
		resp, err := c.opts.HTTPClient.Do(req)
		if err != nil {
			lastErr = &Error{Sentinel: ErrUnavailable, Operation: action, Err: err}
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if err != nil {
			lastErr = &Error{Sentinel: ErrUnavailable, Operation: action, Err: err}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &Error{Sentinel: ErrUnavailable, Operation: action, Status: resp.StatusCode}
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

// apiURL builds a player_api call with the effective credentials.
func (c *Client) apiURL(action string, params url.Values) string {
	u := fmt.Sprintf("%s/player_api.php?username=%s&password=%s&action=%s",
		c.base, url.QueryEscape(c.authUser), url.QueryEscape(c.authPass), action)
	for key, vals := range params {
		for _, v := range vals {
			u += "&" + key + "=" + url.QueryEscape(v)
		}
	}
	return u
}

func (c *Client) categoriesAction(class StreamClass) string {
	switch class {
	case ClassVOD:
		return "get_vod_categories"
	case ClassSeries:
		return "get_series_categories"
	default:
		return "get_live_categories"
	}
}

func (c *Client) streamsAction(class StreamClass) string {
	switch class {
	case ClassVOD:
		return "get_vod_streams"
	case ClassSeries:
		return "get_series"
	default:
		return "get_live_streams"
	}
}

// archiveSkipped appends the dropped raw record to the per-provider skipped
// stream log so filtered entries stay diagnosable.
func (c *Client) archiveSkipped(class StreamClass, reason string, s stream, logger zerolog.Logger) {
	metrics.IncSkippedStream(c.provider.Slug, reason)
	logger.Debug().
		Str("event", "xtream.stream_skipped").
		Str("reason", reason).
		Str("stream_id", string(s.ID)).
		Msg("stream skipped")

	entry, err := json.Marshal(struct {
		Class    string `json:"class"`
		Reason   string `json:"reason"`
		StreamID string `json:"stream_id"`
		Name     string `json:"name"`
	}{string(class), reason, string(s.ID), s.Name})
	if err != nil {
		return
	}
	path := filepath.Join(c.cache.Dir(), c.provider.Slug+"-"+skippedFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("event", "xtream.skipped_archive_failed").
			Msg("could not append to skipped stream log")
		return
	}
	defer f.Close()
	_, _ = f.Write(append(entry, '\n'))
}

// newCatchAllGroup builds a fresh catch-all group per client and class so no
// mutable group state is shared across instances.
func newCatchAllGroup(class StreamClass) *catalog.Group {
	return &catalog.Group{ID: catchAllID, Name: catchAllName, Kind: classKind(class)}
}

func classKind(class StreamClass) catalog.GroupKind {
	switch class {
	case ClassVOD:
		return catalog.GroupMovies
	case ClassSeries:
		return catalog.GroupSeries
	default:
		return catalog.GroupTV
	}
}

// validStreamURL is a syntax-only check: absolute URL, http/https/ftp scheme,
// non-empty host. Failures are logged, never fatal.
func validStreamURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp":
	default:
		return false
	}
	return u.Host != ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package jobs orchestrates provider catalog refreshes. A refresh rebuilds
// one provider's catalog from scratch into a fresh graph and publishes it in
// one swap; concurrent refresh requests for the same provider collapse into a
// single run via a per-slug single-flight group, which also upholds the disk
// cache's one-load-per-slug precondition.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/diskcache"
	xlog "github.com/streamdex/streamdex/internal/log"
	"github.com/streamdex/streamdex/internal/m3u"
	"github.com/streamdex/streamdex/internal/metrics"
	"github.com/streamdex/streamdex/internal/playlist"
	"github.com/streamdex/streamdex/internal/xtream"
)

// maxConcurrentRefreshes bounds parallelism during a refresh-all pass.
const maxConcurrentRefreshes = 4

// Status records the outcome of a provider's most recent refresh.
type Status struct {
	JobID      string    `json:"job_id"`
	Provider   string    `json:"provider"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Channels   int       `json:"channels"`
	Movies     int       `json:"movies"`
	Series     int       `json:"series"`
	Groups     int       `json:"groups"`
	Error      string    `json:"error,omitempty"`
}

// Publisher accepts a completed provider graph for publication. The swap into
// the served set happens behind this interface; a refresh never mutates a
// graph that readers already hold.
type Publisher interface {
	Publish(*catalog.Provider)
}

// Runner executes refreshes against a shared disk cache and playlist fetcher.
type Runner struct {
	cache      *diskcache.Cache
	fetcher    *playlist.Fetcher
	xtreamOpts xtream.Options
	publisher  Publisher

	group singleflight.Group

	mu       sync.RWMutex
	statuses map[string]*Status
}

// NewRunner wires a runner. xtreamOpts zero values pick the client defaults.
func NewRunner(cache *diskcache.Cache, fetcher *playlist.Fetcher, xtreamOpts xtream.Options, publisher Publisher) *Runner {
	return &Runner{
		cache:      cache,
		fetcher:    fetcher,
		xtreamOpts: xtreamOpts,
		publisher:  publisher,
		statuses:   make(map[string]*Status),
	}
}

// Refresh rebuilds one provider's catalog into a fresh graph and, on success,
// publishes it as the new current one. Concurrent calls for the same slug
// share a single execution and all receive its status. The returned error is
// reload-terminal (source unreachable, authentication failed); partial
// catalogs from per-class fetch failures do not error. On failure the
// previously published graph keeps serving.
func (r *Runner) Refresh(ctx context.Context, p *catalog.Provider) (*Status, error) {
	v, err, _ := r.group.Do(p.Slug, func() (any, error) {
		return r.refresh(ctx, p)
	})
	status, _ := v.(*Status)
	return status, err
}

// refresh does the actual work; always records a status, even on failure.
func (r *Runner) refresh(ctx context.Context, cfg *catalog.Provider) (*Status, error) {
	jobID := uuid.NewString()
	ctx = xlog.ContextWithJobID(ctx, jobID)
	ctx = xlog.ContextWithProvider(ctx, cfg.Slug)
	logger := xlog.WithComponentFromContext(ctx, "jobs")

	status := &Status{JobID: jobID, Provider: cfg.Slug, StartedAt: time.Now()}
	logger.Info().
		Str("event", "refresh.start").
		Str("kind", string(cfg.Kind)).
		Msg("starting provider refresh")

	// assemble into a private graph; the published one stays untouched
	// until the swap below
	p := cfg.CloneConfig()
	var err error
	switch p.Kind {
	case catalog.KindXtream:
		err = r.refreshXtream(ctx, p)
	case catalog.KindM3UURL, catalog.KindM3ULocal:
		err = r.refreshM3U(ctx, p)
	default:
		err = fmt.Errorf("unknown provider kind %q", p.Kind)
	}

	status.FinishedAt = time.Now()
	status.Channels = len(p.Channels)
	status.Movies = len(p.Movies)
	status.Series = len(p.Series)
	status.Groups = len(p.Groups)

	elapsed := status.FinishedAt.Sub(status.StartedAt).Seconds()
	metrics.ObserveRefreshDuration(p.Slug, elapsed)

	if err != nil {
		status.Error = err.Error()
		r.record(status)
		metrics.IncRefresh(p.Slug, "failure")
		logger.Error().
			Err(err).
			Str("event", "refresh.failed").
			Msg("provider refresh failed")
		return status, err
	}

	r.publisher.Publish(p)
	r.record(status)
	metrics.IncRefresh(p.Slug, "success")
	metrics.RecordCatalogCounts(p.Slug, status.Channels, status.Movies, status.Series, status.Groups)
	logger.Info().
		Str("event", "refresh.success").
		Int(xlog.FieldChannels, status.Channels).
		Int(xlog.FieldMovies, status.Movies).
		Int(xlog.FieldSeries, status.Series).
		Msg("provider refresh completed")
	return status, nil
}

func (r *Runner) refreshM3U(ctx context.Context, p *catalog.Provider) error {
	path, err := r.fetcher.Fetch(ctx, p)
	if err != nil {
		return fmt.Errorf("fetch playlist: %w", err)
	}
	if err := m3u.Load(p, path, r.cache.Dir()); err != nil {
		return fmt.Errorf("load playlist: %w", err)
	}
	return nil
}

func (r *Runner) refreshXtream(ctx context.Context, p *catalog.Provider) error {
	// a fresh client per refresh, the state machine is monotonic
	client := xtream.New(p, r.cache, r.xtreamOpts)
	if err := client.Authenticate(ctx); err != nil {
		metrics.IncAuthFailure(p.Slug)
		return err
	}
	return client.LoadIPTV(ctx)
}

// RefreshAll refreshes every provider with bounded parallelism. Individual
// failures are recorded in each provider's status and do not abort the pass.
func (r *Runner) RefreshAll(ctx context.Context, providers []*catalog.Provider) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRefreshes)
	for _, p := range providers {
		g.Go(func() error {
			_, _ = r.Refresh(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) record(s *Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[s.Provider] = s
}

// Status returns the last recorded refresh status for a provider slug.
func (r *Runner) Status(slug string) (*Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[slug]
	return s, ok
}

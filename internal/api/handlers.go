package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/jobs"
	xlog "github.com/streamdex/streamdex/internal/log"
	"github.com/streamdex/streamdex/internal/metrics"
)

const maxFavoritesBody = 10 << 20

// providerSummary is the list-view projection of a provider.
type providerSummary struct {
	Slug     string       `json:"slug"`
	Name     string       `json:"name"`
	Kind     string       `json:"kind"`
	EPGURL   string       `json:"epg_url,omitempty"`
	Channels int          `json:"channels"`
	Movies   int          `json:"movies"`
	Series   int          `json:"series"`
	Groups   int          `json:"groups"`
	LastRun  *jobs.Status `json:"last_run,omitempty"`
}

// playbackHints carries the optional headers a player should send alongside
// the resolved stream URLs.
type playbackHints struct {
	UserAgent string `json:"user_agent,omitempty"`
	Referer   string `json:"referer,omitempty"`
}

type providerDetail struct {
	Provider *catalog.Provider `json:"provider"`
	Playback playbackHints     `json:"playback"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	list := s.registry.List()
	out := make([]providerSummary, 0, len(list))
	for _, p := range list {
		sum := providerSummary{
			Slug:     p.Slug,
			Name:     p.Name,
			Kind:     string(p.Kind),
			EPGURL:   p.EPGURL,
			Channels: len(p.Channels),
			Movies:   len(p.Movies),
			Series:   len(p.Series),
			Groups:   len(p.Groups),
		}
		if status, ok := s.runner.Status(p.Slug); ok {
			sum.LastRun = status
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	p, ok := s.registry.BySlug(chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}
	writeJSON(w, http.StatusOK, providerDetail{
		Provider: p,
		Playback: playbackHints{UserAgent: s.cfg.UserAgent, Referer: s.cfg.Referer},
	})
}

func (s *Server) handleRefreshProvider(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, ok := s.registry.BySlug(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}
	ctx := xlog.ContextWithProvider(r.Context(), slug)
	status, err := s.runner.Refresh(ctx, p)
	if err != nil {
		// status carries the recorded error; the published catalog is unchanged
		writeJSON(w, http.StatusBadGateway, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	channels, err := s.favorites.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read favorites")
		return
	}
	metrics.RecordFavoritesCount(len(channels))
	if channels == nil {
		channels = []*catalog.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handlePutFavorites(w http.ResponseWriter, r *http.Request) {
	var channels []*catalog.Channel
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFavoritesBody))
	if err := dec.Decode(&channels); err != nil {
		writeError(w, http.StatusBadRequest, "invalid favorites payload")
		return
	}
	if err := s.favorites.Save(channels); err != nil {
		writeError(w, http.StatusInternalServerError, "could not write favorites")
		return
	}
	metrics.RecordFavoritesCount(len(channels))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l := xlog.WithComponent("api")
		l.Error().
			Err(err).
			Str("event", "http.encode_failed").
			Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

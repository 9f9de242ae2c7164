// Package playlist retrieves an M3U source into a local file and
// sanity-checks its content before the loader parses it.
package playlist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/streamdex/streamdex/internal/catalog"
	xlog "github.com/streamdex/streamdex/internal/log"
)

var (
	// ErrUnavailable marks a source that could not be fetched at all.
	ErrUnavailable = errors.New("playlist: source unavailable")
	// ErrNotAPlaylist marks fetched content that does not look like M3U.
	ErrNotAPlaylist = errors.New("playlist: content is not an M3U playlist")
)

const fetchTimeout = 10 * time.Second

// maxPlaylistSize caps a fetched playlist at 256 MiB.
const maxPlaylistSize = 256 << 20

// Fetcher downloads or copies provider playlists into a local directory.
type Fetcher struct {
	dir       string
	client    *http.Client
	userAgent string
	referer   string
}

// NewFetcher returns a fetcher writing into dir. A nil client gets a default
// with a bounded timeout. userAgent and referer are optional request headers
// some providers insist on.
func NewFetcher(dir string, client *http.Client, userAgent, referer string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{dir: dir, client: client, userAgent: userAgent, referer: referer}
}

// Fetch materializes the provider's playlist as a local file and returns its
// path. Remote sources are downloaded, local sources copied; either way the
// content is validated before it lands at the final path.
func (f *Fetcher) Fetch(ctx context.Context, p *catalog.Provider) (string, error) {
	logger := xlog.WithComponentFromContext(ctx, "playlist")

	var (
		data []byte
		err  error
	)
	switch p.Kind {
	case catalog.KindM3ULocal:
		data, err = os.ReadFile(p.URL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	default:
		data, err = f.download(ctx, p.URL)
		if err != nil {
			return "", err
		}
	}

	if err := Validate(data); err != nil {
		return "", err
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create playlist dir: %w", err)
	}
	path := filepath.Join(f.dir, p.Slug+".m3u")
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write playlist: %w", err)
	}

	logger.Info().
		Str("event", "playlist.fetched").
		Str(xlog.FieldProvider, p.Slug).
		Str(xlog.FieldPath, path).
		Int("bytes", len(data)).
		Msg("playlist fetched")
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.referer != "" {
		req.Header.Set("Referer", f.referer)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Validate checks that content looks like an M3U playlist: it must carry the
// header marker and at least one entry.
func Validate(data []byte) error {
	if !bytes.Contains(data, []byte("#EXTM3U")) || !bytes.Contains(data, []byte("#EXTINF")) {
		return ErrNotAPlaylist
	}
	return nil
}

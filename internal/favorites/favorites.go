// Package favorites round-trips the flat persisted favorites list. Each line
// is `<EXTINF-info>:::<stream-url>`; decoding reconstructs an ad-hoc channel
// with no provider behind it.
package favorites

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/m3u"
)

// Owner is the provider-slug stand-in favorites use for logo cache paths.
const Owner = "favorites"

const delimiter = ":::"

// Store reads and writes the favorites file.
type Store struct {
	path     string
	cacheDir string
}

// NewStore returns a store over the favorites file at path. cacheDir feeds
// the logo path derivation of decoded channels.
func NewStore(path, cacheDir string) *Store {
	return &Store{path: path, cacheDir: cacheDir}
}

// Load decodes the favorites file into channels. A missing file is an empty
// list. Lines without the delimiter are dropped, never an error. The codec
// does not dedup; callers check membership before appending.
func (s *Store) Load() ([]*catalog.Channel, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read favorites: %w", err)
	}

	var out []*catalog.Channel
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		info, url, ok := strings.Cut(line, delimiter)
		if !ok {
			continue
		}
		ch := m3u.ParseEXTINF(info, s.cacheDir, Owner)
		ch.URL = url
		out = append(out, ch)
	}
	return out, nil
}

// Save encodes and writes the full list, overwriting the file atomically.
// Channels parsed from a playlist keep their original EXTINF line; ad-hoc
// channels are serialized from their fields.
func (s *Store) Save(channels []*catalog.Channel) error {
	var b strings.Builder
	for _, ch := range channels {
		info := ch.Info
		if info == "" {
			info = m3u.FormatEXTINF(ch)
		}
		b.WriteString(info + delimiter + ch.URL + "\n")
	}
	if err := renameio.WriteFile(s.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	return nil
}

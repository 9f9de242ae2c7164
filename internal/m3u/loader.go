package m3u

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/streamdex/streamdex/internal/catalog"
	xlog "github.com/streamdex/streamdex/internal/log"
	"github.com/streamdex/streamdex/internal/series"
)

// maxLineSize bounds a single playlist line. Real-world playlists carry very
// long EXTINF lines but anything past this is adversarial.
const maxLineSize = 1 << 20

// redactionMarker marks placeholder names some providers inject; entries
// carrying it never enter the catalog.
const redactionMarker = "***"

// Load streams the playlist at path line by line and assembles the provider's
// catalog. Only a file open or read failure is fatal; malformed individual
// entries are dropped silently per the grammar rules.
func Load(p *catalog.Provider, path, cacheDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open playlist: %w", err)
	}
	defer f.Close()
	if err := loadFrom(p, f, cacheDir); err != nil {
		return fmt.Errorf("read playlist: %w", err)
	}
	return nil
}

func loadFrom(p *catalog.Provider, r io.Reader, cacheDir string) error {
	logger := xlog.WithComponent("m3u").With().Str(xlog.FieldProvider, p.Slug).Logger()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var pending *catalog.Channel
	dropped := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "#EXTM3U"):
			// header marker
		case strings.HasPrefix(line, "#EXTINF"):
			// an unfinished pending channel is simply discarded
			if pending != nil && pending.URL == "" {
				dropped++
			}
			pending = ParseEXTINF(line, cacheDir, p.Name)
		case strings.Contains(line, "://") && !strings.HasPrefix(line, "#"):
			if pending == nil || pending.URL != "" {
				continue
			}
			if pending.Name == "" || strings.Contains(pending.Name, redactionMarker) {
				dropped++
				continue
			}
			pending.URL = line
			route(p, pending)
		default:
			// comments, blank lines, unrecognized directives
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if dropped > 0 {
		logger.Debug().
			Str("event", "m3u.entries_dropped").
			Int("count", dropped).
			Msg("dropped incomplete or redacted entries")
	}
	return nil
}

// route places a completed channel into the provider's collections.
func route(p *catalog.Provider, ch *catalog.Channel) {
	var serie *catalog.Serie
	if info, ok := series.Detect(ch.Name); ok {
		_, existed := p.Serie(info.Series)
		serie = p.EnsureSerie(info.Series)
		if !existed {
			// first sighting carries the episode's artwork
			serie.Logo = ch.Logo
			serie.LogoPath = ch.LogoPath
		}
		serie.EnsureSeason(info.Season).PutEpisode(info.Episode, ch)
		serie.Episodes = append(serie.Episodes, ch)
	}

	if ch.GroupTitle == "" {
		// ungrouped channels are plain TV channels
		p.Channels = append(p.Channels, ch)
		return
	}

	g := p.EnsureGroup(ch.GroupTitle, catalog.ClassifyGroupTitle(ch.GroupTitle))
	if serie != nil && !g.HasSerie(serie) {
		g.Series = append(g.Series, serie)
	}
	p.Place(g, ch)
}

// SPDX-License-Identifier: MIT

// Package catalog holds the normalized in-memory content model shared by all
// source kinds: a Provider owning Groups, Channels, Movies and Series.
//
// The model maintains its grouping invariants on insert and keeps insertion
// order for groups, series and seasons. It does not sort; presentation layers
// sort separately. A reload always builds a fresh Provider graph, there is no
// incremental merge.
package catalog

import "strings"

// ProviderKind identifies how a provider's catalog is acquired.
type ProviderKind string

const (
	// KindM3UURL is a remote M3U playlist fetched over HTTP.
	KindM3UURL ProviderKind = "url"
	// KindM3ULocal is an M3U playlist read from a local file.
	KindM3ULocal ProviderKind = "local"
	// KindXtream is an Xtream-Codes player_api provider.
	KindXtream ProviderKind = "xtream"
)

// GroupKind classifies a group into one of the three top-level content kinds.
type GroupKind string

const (
	GroupTV     GroupKind = "tv"
	GroupMovies GroupKind = "movies"
	GroupSeries GroupKind = "series"
)

// ClassifyGroupTitle derives the kind of an M3U group from tokens in its
// title: a "VOD" token marks movies, a "SERIES"/"Series" token marks series,
// anything else is live TV. Xtream groups carry their class explicitly and do
// not go through this.
func ClassifyGroupTitle(title string) GroupKind {
	for _, tok := range strings.Fields(title) {
		switch tok {
		case "VOD":
			return GroupMovies
		case "SERIES", "Series":
			return GroupSeries
		}
	}
	return GroupTV
}

// Channel is one playable leaf entry.
type Channel struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Logo       string `json:"logo,omitempty"`
	LogoPath   string `json:"logo_path,omitempty"`
	GroupTitle string `json:"group_title,omitempty"`
	URL        string `json:"url"`
	// Info is the raw EXTINF source line, kept for the favorites round-trip.
	Info    string `json:"-"`
	IsAdult bool   `json:"is_adult,omitempty"`
}

// Group is a named bucket of channels and/or series.
type Group struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name"`
	Kind     GroupKind  `json:"kind"`
	Channels []*Channel `json:"channels,omitempty"`
	Series   []*Serie   `json:"series,omitempty"`
}

// HasSerie reports whether s is already linked to the group.
func (g *Group) HasSerie(s *Serie) bool {
	for _, have := range g.Series {
		if have == s {
			return true
		}
	}
	return false
}

// Season maps episode names to their channels, in insertion order.
type Season struct {
	Name     string     `json:"name"`
	Episodes []*Channel `json:"episodes"`

	index map[string]int
}

// NewSeason returns an empty season with the given raw season token as name.
func NewSeason(name string) *Season {
	return &Season{Name: name, index: make(map[string]int)}
}

// PutEpisode records a channel under the given episode name. An existing entry
// with the same name is replaced in place, keeping its position.
func (s *Season) PutEpisode(name string, ch *Channel) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[name]; ok {
		s.Episodes[i] = ch
		return
	}
	s.index[name] = len(s.Episodes)
	s.Episodes = append(s.Episodes, ch)
}

// Episode returns the channel stored under the given episode name.
func (s *Season) Episode(name string) (*Channel, bool) {
	if s.index == nil {
		return nil, false
	}
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.Episodes[i], true
}

// Serie is a show: seasons in insertion order plus, for M3U sources, a flat
// list of all constituent episode channels. Xtream series stay unexpanded
// until their detail is requested.
type Serie struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name"`
	Logo     string     `json:"logo,omitempty"`
	LogoPath string     `json:"logo_path,omitempty"`
	Seasons  []*Season  `json:"seasons,omitempty"`
	Episodes []*Channel `json:"episodes,omitempty"`

	seasonIndex map[string]int
}

// Season returns the named season if present.
func (s *Serie) Season(name string) (*Season, bool) {
	if s.seasonIndex == nil {
		return nil, false
	}
	i, ok := s.seasonIndex[name]
	if !ok {
		return nil, false
	}
	return s.Seasons[i], true
}

// EnsureSeason returns the named season, creating it on first sighting.
func (s *Serie) EnsureSeason(name string) *Season {
	if found, ok := s.Season(name); ok {
		return found
	}
	if s.seasonIndex == nil {
		s.seasonIndex = make(map[string]int)
	}
	season := NewSeason(name)
	s.seasonIndex[name] = len(s.Seasons)
	s.Seasons = append(s.Seasons, season)
	return season
}

// ClearSeasons drops all season/episode detail. Used before repopulating from
// a fresh series-info fetch so stale episode titles cannot accumulate.
func (s *Serie) ClearSeasons() {
	s.Seasons = nil
	s.seasonIndex = nil
}

// Provider is a configured content source together with its assembled catalog.
type Provider struct {
	Name     string       `json:"name"`
	Kind     ProviderKind `json:"kind"`
	URL      string       `json:"url"`
	Username string       `json:"username,omitempty"`
	Password string       `json:"password,omitempty"`
	EPGURL   string       `json:"epg_url,omitempty"`
	// Slug is the derived cache identity; also the local playlist path stem.
	Slug string `json:"slug"`

	Channels []*Channel `json:"channels,omitempty"`
	Movies   []*Channel `json:"movies,omitempty"`
	Series   []*Serie   `json:"series,omitempty"`
	Groups   []*Group   `json:"groups,omitempty"`

	groupIndex map[string]*Group
	serieIndex map[string]*Serie
}

// Group returns the group with the given exact title, if present. Group
// identity is the literal title string; titles differing only in whitespace
// are distinct groups.
func (p *Provider) Group(title string) (*Group, bool) {
	g, ok := p.groupIndex[title]
	return g, ok
}

// EnsureGroup returns the group with the given title, creating and appending
// it with the given kind on first sighting.
func (p *Provider) EnsureGroup(title string, kind GroupKind) *Group {
	if g, ok := p.Group(title); ok {
		return g
	}
	if p.groupIndex == nil {
		p.groupIndex = make(map[string]*Group)
	}
	g := &Group{Name: title, Kind: kind}
	p.groupIndex[title] = g
	p.Groups = append(p.Groups, g)
	return g
}

// AddGroup appends a pre-built group (Xtream categories carry IDs and an
// explicit kind). Later lookups by title resolve to the first group added
// under that title.
func (p *Provider) AddGroup(g *Group) {
	if p.groupIndex == nil {
		p.groupIndex = make(map[string]*Group)
	}
	if _, ok := p.groupIndex[g.Name]; !ok {
		p.groupIndex[g.Name] = g
	}
	p.Groups = append(p.Groups, g)
}

// Serie returns the serie with the given name, if present.
func (p *Provider) Serie(name string) (*Serie, bool) {
	s, ok := p.serieIndex[name]
	return s, ok
}

// EnsureSerie returns the serie keyed by name, creating and appending it on
// first sighting. A serie is appended to the provider's series list exactly
// once; subsequent episodes of the same series reuse the existing entry.
func (p *Provider) EnsureSerie(name string) *Serie {
	if s, ok := p.Serie(name); ok {
		return s
	}
	if p.serieIndex == nil {
		p.serieIndex = make(map[string]*Serie)
	}
	s := &Serie{Name: name}
	p.serieIndex[name] = s
	p.Series = append(p.Series, s)
	return s
}

// AddSerie appends a pre-built serie (Xtream) and indexes it by name.
func (p *Provider) AddSerie(s *Serie) {
	if p.serieIndex == nil {
		p.serieIndex = make(map[string]*Serie)
	}
	if _, ok := p.serieIndex[s.Name]; !ok {
		p.serieIndex[s.Name] = s
	}
	p.Series = append(p.Series, s)
}

// Place routes a completed channel into a group and the matching provider
// list. TV groups feed the flat channel list, movie groups the movie list;
// series groups hold only the Serie/Season structure, the channel itself is
// not double-listed.
func (p *Provider) Place(g *Group, ch *Channel) {
	g.Channels = append(g.Channels, ch)
	switch g.Kind {
	case GroupMovies:
		p.Movies = append(p.Movies, ch)
	case GroupSeries:
		// canonical location is the Serie/Season tree
	default:
		p.Channels = append(p.Channels, ch)
	}
}

// CloneConfig returns a new Provider carrying only the configuration fields,
// with empty collections. A reload assembles its catalog into such a clone and
// publishes the finished graph in a single swap, so readers of the current
// graph never observe a partial rebuild.
func (p *Provider) CloneConfig() *Provider {
	return &Provider{
		Name:     p.Name,
		Kind:     p.Kind,
		URL:      p.URL,
		Username: p.Username,
		Password: p.Password,
		EPGURL:   p.EPGURL,
		Slug:     p.Slug,
	}
}

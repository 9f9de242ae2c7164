// SPDX-License-Identifier: MIT

// Package m3u parses and writes M3U playlists: one #EXTINF metadata line per
// entry followed by a URL line.
package m3u

import (
	"regexp"
	"strings"

	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/slug"
)

// The whole EXTINF line is matched with a single anchored pattern capturing
// duration, the parameter blob and the trailing title. The greedy blob pushes
// the split to the last comma, so titles may themselves contain commas.
var (
	extinfRe = regexp.MustCompile(`^#EXTINF:(-?\d+) ?(.*),(.*)$`)
	paramRe  = regexp.MustCompile(`(\S+)="(.*?)"`)
)

// ParseEXTINF parses one #EXTINF line into a channel record. The raw line is
// always kept on the record so favorites can round-trip it. A line that does
// not match the grammar at all yields a record with only the raw line set; it
// is not an error, the loader's own checks reject it later.
//
// owner names the provider the entry belongs to ("favorites" for the
// favorites list); it feeds the logo cache path together with cacheDir.
func ParseEXTINF(line, cacheDir, owner string) *catalog.Channel {
	ch := &catalog.Channel{Info: line}
	m := extinfRe.FindStringSubmatch(line)
	if m == nil {
		return ch
	}
	params, title := m[2], m[3]
	for _, kv := range paramRe.FindAllStringSubmatch(params, -1) {
		key, value := kv[1], kv[2]
		switch key {
		case "tvg-name":
			if v := strings.TrimSpace(value); v != "" {
				ch.Name = v
			}
		case "tvg-logo":
			if v := strings.TrimSpace(value); v != "" {
				ch.Logo = v
			}
		case "group-title":
			if v := strings.TrimSpace(value); v != "" {
				// Semicolon-separated group lists collapse into one title.
				// One pass only: the double spaces introduced by the
				// substitution are collapsed, pre-existing runs are kept.
				v = strings.ReplaceAll(v, ";", " ")
				v = strings.ReplaceAll(v, "  ", " ")
				ch.GroupTitle = v
			}
		}
	}
	if ch.Name == "" {
		ch.Name = strings.TrimSpace(title)
	}
	if ch.Logo != "" {
		ch.LogoPath = slug.LogoPath(cacheDir, owner, ch.Name, ch.Logo)
	}
	return ch
}

// FormatEXTINF renders a channel back into an EXTINF-shaped line. Attribute
// values cannot carry double quotes, so any are stripped; everything else the
// parser recognizes survives a format/re-parse round trip unchanged.
func FormatEXTINF(ch *catalog.Channel) string {
	name := stripQuotes(ch.Name)
	var b strings.Builder
	b.WriteString("#EXTINF:-1")
	if name != "" {
		b.WriteString(` tvg-name="` + name + `"`)
	}
	if ch.Logo != "" {
		b.WriteString(` tvg-logo="` + stripQuotes(ch.Logo) + `"`)
	}
	if ch.GroupTitle != "" {
		b.WriteString(` group-title="` + stripQuotes(ch.GroupTitle) + `"`)
	}
	b.WriteString("," + name)
	return b.String()
}

func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

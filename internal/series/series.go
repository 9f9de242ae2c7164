// Package series detects season/episode markers in channel display names.
package series

import (
	"regexp"
	"strings"
)

// Channel names like "Foo Show S01E02 The Pilot" mark episode entries inside
// otherwise flat playlists. The season token is the 1-2 digits right after a
// literal S, the episode token runs from the digits after the nearest
// subsequent E to the end of the string. Non-greedy prefixes make the
// left-most plausible S/E pair win.
var pattern = regexp.MustCompile(`(?i)^(.*?)S(\d{1,2}).*?E(\d+.*)$`)

// Info is the result of a successful episode detection.
type Info struct {
	Series  string // trimmed name before the season token
	Season  string // raw season token, e.g. "01"
	Episode string // episode digits plus any trailing text
}

// Detect applies the season/episode grammar to a display name. A name that
// does not match is not a series episode and stays a standalone channel.
func Detect(name string) (Info, bool) {
	m := pattern.FindStringSubmatch(name)
	if m == nil {
		return Info{}, false
	}
	series := strings.TrimSpace(m[1])
	if series == "" {
		return Info{}, false
	}
	return Info{Series: series, Season: m[2], Episode: m[3]}, true
}

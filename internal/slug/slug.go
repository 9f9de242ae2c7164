// Package slug derives filesystem-safe names used for cache keys and logo paths.
package slug

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Make normalizes a name into a filesystem-safe slug: every non-alphanumeric
// rune is removed and the remainder is lower-cased. Two distinct names may
// slugify identically; callers accept that collision (documented limitation).
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// knownLogoExts is the fixed set of logo file extensions we cache locally.
// Anything else is left to the remote URL only.
var knownLogoExts = map[string]string{
	".png":  ".png",
	".jpg":  ".jpg",
	".gif":  ".gif",
	".jpeg": ".jpg", // normalized
}

const fileScheme = "file://"

// LogoPath derives the local cache path for a channel logo.
//
// A file:// URL is already local: the scheme prefix is stripped and the rest
// used verbatim. Otherwise the URL must end in a known image extension; the
// returned path is <cacheDir>/<slug(owner)>-<slug(name)><ext>. An empty string
// means the logo has no cacheable local path and the download is skipped
// downstream.
func LogoPath(cacheDir, owner, name, logoURL string) string {
	if logoURL == "" {
		return ""
	}
	if strings.HasPrefix(logoURL, fileScheme) {
		return strings.TrimPrefix(logoURL, fileScheme)
	}
	ext, ok := knownLogoExts[strings.ToLower(filepath.Ext(logoURL))]
	if !ok {
		return ""
	}
	return filepath.Join(cacheDir, Make(owner)+"-"+Make(name)+ext)
}

// Package providers persists the configured content sources. One line per
// provider, positional fields joined by a triple-colon delimiter:
//
//	name:::type:::url:::username:::password:::epg
//
// The delimiter must not appear inside a field value; that is an accepted
// limitation of the format.
package providers

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/streamdex/streamdex/internal/catalog"
	xlog "github.com/streamdex/streamdex/internal/log"
	"github.com/streamdex/streamdex/internal/slug"
)

const (
	delimiter = ":::"
	numFields = 6
)

// ErrInvalidRecord marks a line that does not split into the expected fields.
var ErrInvalidRecord = errors.New("providers: invalid record")

// Parse decodes a single record line into a provider configuration.
func Parse(line string) (*catalog.Provider, error) {
	fields := strings.Split(line, delimiter)
	if len(fields) != numFields {
		return nil, fmt.Errorf("%w: %d fields, want %d", ErrInvalidRecord, len(fields), numFields)
	}
	name := strings.TrimSpace(fields[0])
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidRecord)
	}
	kind := catalog.ProviderKind(fields[1])
	switch kind {
	case catalog.KindM3UURL, catalog.KindM3ULocal, catalog.KindXtream:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, fields[1])
	}
	return &catalog.Provider{
		Name:     name,
		Kind:     kind,
		URL:      fields[2],
		Username: fields[3],
		Password: fields[4],
		EPGURL:   fields[5],
		Slug:     slug.Make(name),
	}, nil
}

// Format encodes a provider configuration back into its record line.
func Format(p *catalog.Provider) string {
	return strings.Join([]string{
		p.Name, string(p.Kind), p.URL, p.Username, p.Password, p.EPGURL,
	}, delimiter)
}

// Load reads all provider records from path. Invalid records are skipped for
// this pass but stay untouched in the file so they remain editable; the
// number of skipped lines is returned alongside. A missing file is an empty
// list.
func Load(path string) ([]*catalog.Provider, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read providers: %w", err)
	}

	logger := xlog.WithComponent("providers")
	var out []*catalog.Provider
	skipped := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p, err := Parse(line)
		if err != nil {
			skipped++
			logger.Warn().
				Err(err).
				Str("event", "providers.record_skipped").
				Msg("skipping invalid provider record")
			continue
		}
		out = append(out, p)
	}
	return out, skipped, nil
}

// Save writes the full provider list back to path, atomically.
func Save(path string, list []*catalog.Provider) error {
	var b strings.Builder
	for _, p := range list {
		b.WriteString(Format(p) + "\n")
	}
	if err := renameio.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write providers: %w", err)
	}
	return nil
}

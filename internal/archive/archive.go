// Package archive optionally keeps the raw text of scraped pages, on
// the local filesystem or in a GCS bucket. Archive failures never
// affect a run; callers log and move on.
package archive

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Store persists one scraped page text per key.
type Store interface {
	Put(ctx context.Context, key string, text string) error
}

// Config selects and parameterizes the backend.
type Config struct {
	Provider string
	Dir      string
	Bucket   string
	Prefix   string
}

// New builds the configured Store. An empty provider returns (nil, nil)
// meaning archiving is disabled.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "local":
		return NewLocal(cfg.Dir, cfg.Prefix)
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Provider)
	}
}

// Key derives the archive object key for one scraped page within a run.
func Key(runID, rawURL string) string {
	return fmt.Sprintf("%s/%s.txt", runID, slug(rawURL))
}

// slug flattens a URL into a filesystem- and object-safe name.
func slug(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = u.Host + u.Path
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('+')
		}
	}
	s := strings.Trim(b.String(), "+")
	if s == "" {
		return "page"
	}
	const maxSlug = 120
	if len(s) > maxSlug {
		s = s[:maxSlug]
	}
	return s
}

package collectors

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

// PageContext decomposes the target URL into its addressable parts. Purely
// local; it never touches the network.
func (s *Set) PageContext(ctx context.Context, rawURL, title string) (*domain.PageContext, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", domain.ErrInvalidInput, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidInput, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: url has no host", domain.ErrInvalidInput)
	}
	return &domain.PageContext{
		URL:        rawURL,
		Scheme:     parsed.Scheme,
		Host:       parsed.Host,
		Path:       parsed.Path,
		Query:      parsed.RawQuery,
		Title:      title,
		CapturedAt: time.Now().UTC(),
	}, nil
}

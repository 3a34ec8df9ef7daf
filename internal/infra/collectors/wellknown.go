package collectors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

// maxWellKnownBytes caps how much of a policy file lands in the record.
const maxWellKnownBytes = 64 * 1024

// RobotsTxt fetches the site's /robots.txt.
func (s *Set) RobotsTxt(ctx context.Context, rawURL string) (*domain.WellKnownFile, error) {
	return s.fetchWellKnown(ctx, rawURL, "/robots.txt")
}

// SecurityTxt fetches the site's /.well-known/security.txt.
func (s *Set) SecurityTxt(ctx context.Context, rawURL string) (*domain.WellKnownFile, error) {
	return s.fetchWellKnown(ctx, rawURL, "/.well-known/security.txt")
}

// fetchWellKnown retrieves a fixed-path policy file from the target's
// origin. A 404 is a valid finding, not an error; only transport failures
// error out.
func (s *Set) fetchWellKnown(ctx context.Context, rawURL, path string) (*domain.WellKnownFile, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("%w: target url %q", domain.ErrInvalidInput, rawURL)
	}
	target := parsed.Scheme + "://" + parsed.Host + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrInvalidInput, err)
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	file := &domain.WellKnownFile{
		URL:        target,
		StatusCode: resp.StatusCode,
		Found:      resp.StatusCode == http.StatusOK,
	}
	if !file.Found {
		return file, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWellKnownBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(body) > maxWellKnownBytes {
		body = body[:maxWellKnownBytes]
		file.Truncated = true
	}
	file.Content = string(body)
	return file, nil
}

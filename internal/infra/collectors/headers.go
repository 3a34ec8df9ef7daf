package collectors

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

// redactedHeaders never make it into the evidence record.
var redactedHeaders = map[string]bool{
	"set-cookie":         true,
	"authorization":      true,
	"www-authenticate":   true,
	"proxy-authenticate": true,
}

// Headers fetches the response headers of the target URL. Redirects are
// followed and the final URL is recorded; sensitive headers are redacted.
func (s *Set) Headers(ctx context.Context, rawURL string) (*domain.HTTPHeaders, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrInvalidInput, err)
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headers: %w", err)
	}
	defer resp.Body.Close()

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if redactedHeaders[strings.ToLower(name)] {
			continue
		}
		headers[name] = strings.Join(values, ", ")
	}
	return &domain.HTTPHeaders{
		StatusCode:  resp.StatusCode,
		Headers:     headers,
		Server:      resp.Header.Get("Server"),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

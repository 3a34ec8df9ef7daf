package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

type ipwhoResponse struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	IP        string  `json:"ip"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geolocation resolves coordinates for ip. Opt-in; the orchestration layer
// only calls this when consent was granted.
func (s *Set) Geolocation(ctx context.Context, ip string) (*domain.Geolocation, error) {
	endpoint := fmt.Sprintf("%s/%s", s.geoEndpoint(), ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation lookup returned %d", resp.StatusCode)
	}

	var decoded ipwhoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode geolocation: %w", err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("geolocation failed for %s: %s", ip, decoded.Message)
	}
	return &domain.Geolocation{
		IP:        decoded.IP,
		Latitude:  decoded.Latitude,
		Longitude: decoded.Longitude,
		Accuracy:  "city",
		Source:    s.geoEndpoint(),
	}, nil
}

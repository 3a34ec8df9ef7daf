package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Query   string  `json:"query"`
	Country string  `json:"country"`
	Region  string  `json:"regionName"`
	City    string  `json:"city"`
	ISP     string  `json:"isp"`
	Org     string  `json:"org"`
	AS      string  `json:"as"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// IPInfo looks up ownership and network details for ip.
func (s *Set) IPInfo(ctx context.Context, ip string) (*domain.IPInfo, error) {
	endpoint := fmt.Sprintf("%s/%s", s.ipInfoEndpoint(), ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("ip lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip lookup returned %d", resp.StatusCode)
	}

	var decoded ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode ip lookup: %w", err)
	}
	if decoded.Status != "success" {
		return nil, fmt.Errorf("ip lookup failed for %s: %s", ip, decoded.Message)
	}
	return &domain.IPInfo{
		IP:        decoded.Query,
		Country:   decoded.Country,
		Region:    decoded.Region,
		City:      decoded.City,
		ISP:       decoded.ISP,
		Org:       decoded.Org,
		ASN:       decoded.AS,
		Latitude:  decoded.Lat,
		Longitude: decoded.Lon,
	}, nil
}

package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

type waybackResponse struct {
	ArchivedSnapshots struct {
		Closest struct {
			Available bool   `json:"available"`
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// ArchiveSnapshot checks whether a public archive already holds a snapshot
// of the target URL. Opt-in: the lookup discloses the URL to a third party.
func (s *Set) ArchiveSnapshot(ctx context.Context, rawURL string) (*domain.ArchiveSnapshot, error) {
	endpoint := fmt.Sprintf("%s?url=%s", s.archiveEndpoint(), url.QueryEscape(rawURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive lookup returned %d", resp.StatusCode)
	}

	var decoded waybackResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode archive lookup: %w", err)
	}
	closest := decoded.ArchivedSnapshots.Closest
	return &domain.ArchiveSnapshot{
		Available:   closest.Available,
		SnapshotURL: closest.URL,
		Timestamp:   closest.Timestamp,
	}, nil
}

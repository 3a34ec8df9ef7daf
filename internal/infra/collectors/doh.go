package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"

	"github.com/miekg/dns"
)

// dohResponse is the google/cloudflare JSON resolution format.
type dohResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Name string `json:"name"`
		Type int    `json:"type"`
		Data string `json:"data"`
	} `json:"Answer"`
}

// DNSOverHTTPS resolves the host through the configured DoH JSON endpoint.
// It is the fallback provider when the direct resolver is unreachable, for
// example behind networks that block outbound port 53.
func (s *Set) DNSOverHTTPS(ctx context.Context, host string) (*domain.DNSRecords, error) {
	out := &domain.DNSRecords{Provider: "doh:" + s.dohEndpoint()}

	queries := []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeMX, dns.TypeNS, dns.TypeTXT}
	var lastErr error
	answered := false
	for _, qtype := range queries {
		if err := s.dohQuery(ctx, host, qtype, out); err != nil {
			lastErr = err
			continue
		}
		answered = true
	}
	if !answered {
		return nil, fmt.Errorf("doh query %s: %w", host, lastErr)
	}
	return out, nil
}

func (s *Set) dohQuery(ctx context.Context, host string, qtype uint16, out *domain.DNSRecords) error {
	endpoint := fmt.Sprintf("%s?name=%s&type=%d", s.dohEndpoint(), url.QueryEscape(host), qtype)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("doh endpoint returned %d", resp.StatusCode)
	}

	var decoded dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode doh response: %w", err)
	}
	for _, answer := range decoded.Answer {
		if uint16(answer.Type) != qtype {
			continue
		}
		data := strings.TrimSuffix(answer.Data, "\"")
		data = strings.TrimPrefix(data, "\"")
		switch qtype {
		case dns.TypeA:
			out.A = append(out.A, data)
		case dns.TypeAAAA:
			out.AAAA = append(out.AAAA, data)
		case dns.TypeMX:
			out.MX = append(out.MX, data)
		case dns.TypeNS:
			out.NS = append(out.NS, data)
		case dns.TypeTXT:
			out.TXT = append(out.TXT, data)
		}
	}
	return nil
}

package collectors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

const maxWhoisResponse = 256 << 10

// Whois queries the configured whois server for host, following a single
// registry referral when the first response names a more specific server.
func (s *Set) Whois(ctx context.Context, host string) (*domain.WhoisInfo, error) {
	domainName := registrableName(host)

	server := s.whoisServer()
	raw, err := s.whoisQuery(ctx, server, domainName)
	if err != nil {
		return nil, err
	}
	if referred := referralServer(raw); referred != "" && referred != server {
		if refRaw, refErr := s.whoisQuery(ctx, referred, domainName); refErr == nil {
			server, raw = referred, refRaw
		}
	}

	info := &domain.WhoisInfo{
		Server: server,
		Raw:    raw,
	}
	for _, line := range strings.Split(raw, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "registrar":
			if info.Registrar == "" {
				info.Registrar = value
			}
		case "creation date", "created", "registered on":
			if info.Created == "" {
				info.Created = value
			}
		case "registry expiry date", "expiry date", "expires":
			if info.Expires == "" {
				info.Expires = value
			}
		}
	}
	return info, nil
}

func (s *Set) whoisQuery(ctx context.Context, server, query string) (string, error) {
	if !strings.Contains(server, ":") {
		server += ":43"
	}
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return "", fmt.Errorf("dial whois %s: %w", server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if _, err := fmt.Fprintf(conn, "%s\r\n", query); err != nil {
		return "", fmt.Errorf("send whois query: %w", err)
	}
	raw, err := io.ReadAll(io.LimitReader(conn, maxWhoisResponse))
	if err != nil {
		return "", fmt.Errorf("read whois response: %w", err)
	}
	return string(raw), nil
}

// referralServer extracts the "refer:" or "whois:" server a registry points
// at, if any.
func referralServer(raw string) string {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)
		for _, prefix := range []string{"refer:", "whois:", "registrar whois server:"} {
			if strings.HasPrefix(lower, prefix) {
				server := strings.TrimSpace(line[len(prefix):])
				if server != "" {
					return server
				}
			}
		}
	}
	return ""
}

// registrableName trims the host down to its registrable suffix for whois
// purposes: "a.b.example.com" becomes "example.com". Two-label hosts pass
// through unchanged.
func registrableName(host string) string {
	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

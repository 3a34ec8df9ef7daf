package collectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"

	"github.com/miekg/dns"
)

// DNSRecords queries the configured resolver directly for the host's A,
// AAAA, MX, NS and TXT records.
func (s *Set) DNSRecords(ctx context.Context, host string) (*domain.DNSRecords, error) {
	client := &dns.Client{}
	fqdn := dns.Fqdn(host)
	out := &domain.DNSRecords{Provider: "resolver:" + s.resolver()}

	queries := []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeMX, dns.TypeNS, dns.TypeTXT}
	var lastErr error
	answered := false
	for _, qtype := range queries {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		reply, _, err := client.ExchangeContext(ctx, msg, s.resolver())
		if err != nil {
			lastErr = err
			continue
		}
		answered = true
		for _, rr := range reply.Answer {
			appendRecord(out, rr)
		}
	}
	if !answered {
		return nil, fmt.Errorf("query %s via %s: %w", host, s.resolver(), lastErr)
	}
	return out, nil
}

// ReverseDNS resolves the PTR names of ip through the configured resolver.
func (s *Set) ReverseDNS(ctx context.Context, ip string) ([]string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("%w: reverse address for %s: %v", domain.ErrInvalidInput, ip, err)
	}

	client := &dns.Client{}
	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	reply, _, err := client.ExchangeContext(ctx, msg, s.resolver())
	if err != nil {
		return nil, fmt.Errorf("ptr query for %s: %w", ip, err)
	}
	var names []string
	for _, rr := range reply.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, ptr.Ptr)
		}
	}
	return names, nil
}

func appendRecord(out *domain.DNSRecords, rr dns.RR) {
	switch v := rr.(type) {
	case *dns.A:
		out.A = append(out.A, v.A.String())
	case *dns.AAAA:
		out.AAAA = append(out.AAAA, v.AAAA.String())
	case *dns.MX:
		out.MX = append(out.MX, fmt.Sprintf("%d %s", v.Preference, v.Mx))
	case *dns.NS:
		out.NS = append(out.NS, v.Ns)
	case *dns.TXT:
		out.TXT = append(out.TXT, strings.Join(v.Txt, ""))
	}
}

package collectors

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

// Certificate records the TLS leaf certificate presented by host on :443.
// Verification is deliberately skipped: an invalid or expired certificate is
// itself evidence and must be recorded, not rejected.
func (s *Set) Certificate(ctx context.Context, host string) (*domain.CertificateInfo, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", host, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, fmt.Errorf("no certificate presented by %s", host)
	}
	leaf := state.PeerCertificates[0]
	sum := sha256.Sum256(leaf.Raw)

	return &domain.CertificateInfo{
		Subject:           leaf.Subject.String(),
		Issuer:            leaf.Issuer.String(),
		SerialNumber:      leaf.SerialNumber.String(),
		NotBefore:         leaf.NotBefore,
		NotAfter:          leaf.NotAfter,
		DNSNames:          leaf.DNSNames,
		FingerprintSHA256: hex.EncodeToString(sum[:]),
		ChainLength:       len(state.PeerCertificates),
		TLSVersion:        tls.VersionName(state.Version),
	}, nil
}

// Package collectors implements the individual forensic data-gathering
// tasks. Every collector takes the context it must respect and returns a
// typed result; the orchestration above decides concurrency, budgets and
// error policy.
package collectors

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Defaults for the external endpoints. All of them are overridable through
// configuration.
const (
	DefaultResolver        = "8.8.8.8:53"
	DefaultDoHEndpoint     = "https://dns.google/resolve"
	DefaultIPInfoEndpoint  = "http://ip-api.com/json"
	DefaultGeoEndpoint     = "https://ipwho.is"
	DefaultArchiveEndpoint = "https://archive.org/wayback/available"
	DefaultWhoisServer     = "whois.iana.org:43"
)

// Set bundles every collector behind one value. Zero-value fields fall back
// to the package defaults.
type Set struct {
	HTTPClient      *http.Client
	Resolver        string
	DoHEndpoint     string
	IPInfoEndpoint  string
	GeoEndpoint     string
	ArchiveEndpoint string
	WhoisServer     string
	ServiceTag      string
	Logger          *zap.Logger
}

// New returns a Set with sane defaults applied.
func New(logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{
		HTTPClient:      &http.Client{Timeout: 10 * time.Second},
		Resolver:        DefaultResolver,
		DoHEndpoint:     DefaultDoHEndpoint,
		IPInfoEndpoint:  DefaultIPInfoEndpoint,
		GeoEndpoint:     DefaultGeoEndpoint,
		ArchiveEndpoint: DefaultArchiveEndpoint,
		WhoisServer:     DefaultWhoisServer,
		Logger:          logger,
	}
}

func (s *Set) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

func (s *Set) resolver() string {
	if s.Resolver != "" {
		return s.Resolver
	}
	return DefaultResolver
}

func (s *Set) dohEndpoint() string {
	if s.DoHEndpoint != "" {
		return s.DoHEndpoint
	}
	return DefaultDoHEndpoint
}

func (s *Set) ipInfoEndpoint() string {
	if s.IPInfoEndpoint != "" {
		return s.IPInfoEndpoint
	}
	return DefaultIPInfoEndpoint
}

func (s *Set) geoEndpoint() string {
	if s.GeoEndpoint != "" {
		return s.GeoEndpoint
	}
	return DefaultGeoEndpoint
}

func (s *Set) archiveEndpoint() string {
	if s.ArchiveEndpoint != "" {
		return s.ArchiveEndpoint
	}
	return DefaultArchiveEndpoint
}

func (s *Set) whoisServer() string {
	if s.WhoisServer != "" {
		return s.WhoisServer
	}
	return DefaultWhoisServer
}

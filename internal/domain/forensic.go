package domain

import "time"

// Collector task names. These are the keys used in consent decisions,
// collection error maps and metrics labels.
const (
	CollectorPageContext        = "page_context"
	CollectorCaptureEnvironment = "capture_environment"
	CollectorHTTPHeaders        = "http_headers"
	CollectorSSLCertificate     = "ssl_certificate"
	CollectorDNSRecords         = "dns_records"
	CollectorDNSOverHTTPS       = "dns_over_https"
	CollectorWhois              = "whois"
	CollectorIPInfo             = "ip_info"
	CollectorReverseDNS         = "reverse_dns"
	CollectorGeolocation        = "geolocation"
	CollectorArchiveSnapshot    = "archive_snapshot"
	CollectorBrowserEnvironment = "browser_environment"
	CollectorRobotsTxt          = "robots_txt"
	CollectorSecurityTxt        = "security_txt"
)

// ConsentConfig gates which optional collector tasks may run. Always-on
// fields are forced true by Normalized and are not user-configurable;
// opt-in fields default to false.
type ConsentConfig struct {
	// Always-on.
	PageContext        bool `json:"page_context"`
	CaptureEnvironment bool `json:"capture_environment"`
	HTTPHeaders        bool `json:"http_headers"`
	SSLCertificate     bool `json:"ssl_certificate"`
	DNSRecords         bool `json:"dns_records"`
	Whois              bool `json:"whois"`
	IPInfo             bool `json:"ip_info"`
	ReverseDNS         bool `json:"reverse_dns"`

	// Opt-in.
	Geolocation        bool `json:"geolocation"`
	ArchiveSnapshot    bool `json:"archive_snapshot"`
	BrowserEnvironment bool `json:"browser_environment"`
}

// Normalized returns a copy with every always-on flag forced true. Opt-in
// flags are preserved as supplied.
func (c ConsentConfig) Normalized() ConsentConfig {
	c.PageContext = true
	c.CaptureEnvironment = true
	c.HTTPHeaders = true
	c.SSLCertificate = true
	c.DNSRecords = true
	c.Whois = true
	c.IPInfo = true
	c.ReverseDNS = true
	return c
}

// OptInAllows reports whether the named opt-in collector is enabled. Names
// that are not opt-in collectors return false.
func (c ConsentConfig) OptInAllows(name string) bool {
	switch name {
	case CollectorGeolocation:
		return c.Geolocation
	case CollectorArchiveSnapshot:
		return c.ArchiveSnapshot
	case CollectorBrowserEnvironment:
		return c.BrowserEnvironment
	}
	return false
}

type PageContext struct {
	URL        string    `json:"url"`
	Scheme     string    `json:"scheme"`
	Host       string    `json:"host"`
	Path       string    `json:"path"`
	Query      string    `json:"query,omitempty"`
	Title      string    `json:"title,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

type CaptureEnvironment struct {
	Hostname   string `json:"hostname"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	Runtime    string `json:"runtime"`
	NumCPU     int    `json:"num_cpu"`
	Timezone   string `json:"timezone"`
	ServiceTag string `json:"service_tag,omitempty"`
}

type BrowserEnvironment struct {
	UserAgent      string `json:"user_agent,omitempty"`
	Language       string `json:"language,omitempty"`
	Platform       string `json:"platform,omitempty"`
	ScreenWidth    int    `json:"screen_width,omitempty"`
	ScreenHeight   int    `json:"screen_height,omitempty"`
	TimezoneOffset int    `json:"timezone_offset,omitempty"`
}

type HTTPHeaders struct {
	StatusCode  int               `json:"status_code"`
	Headers     map[string]string `json:"headers"`
	Server      string            `json:"server,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	FinalURL    string            `json:"final_url,omitempty"`
}

type CertificateInfo struct {
	Subject           string    `json:"subject"`
	Issuer            string    `json:"issuer"`
	SerialNumber      string    `json:"serial_number"`
	NotBefore         time.Time `json:"not_before"`
	NotAfter          time.Time `json:"not_after"`
	DNSNames          []string  `json:"dns_names,omitempty"`
	FingerprintSHA256 string    `json:"fingerprint_sha256"`
	ChainLength       int       `json:"chain_length"`
	TLSVersion        string    `json:"tls_version,omitempty"`
}

type DNSRecords struct {
	Provider string   `json:"provider"`
	A        []string `json:"a,omitempty"`
	AAAA     []string `json:"aaaa,omitempty"`
	MX       []string `json:"mx,omitempty"`
	NS       []string `json:"ns,omitempty"`
	TXT      []string `json:"txt,omitempty"`
}

// Empty reports whether the lookup produced no records at all.
func (d *DNSRecords) Empty() bool {
	if d == nil {
		return true
	}
	return len(d.A) == 0 && len(d.AAAA) == 0 && len(d.MX) == 0 && len(d.NS) == 0 && len(d.TXT) == 0
}

type WhoisInfo struct {
	Server    string `json:"server"`
	Raw       string `json:"raw"`
	Registrar string `json:"registrar,omitempty"`
	Created   string `json:"created,omitempty"`
	Expires   string `json:"expires,omitempty"`
}

type IPInfo struct {
	IP       string  `json:"ip"`
	Country  string  `json:"country,omitempty"`
	Region   string  `json:"region,omitempty"`
	City     string  `json:"city,omitempty"`
	ISP      string  `json:"isp,omitempty"`
	Org      string  `json:"org,omitempty"`
	ASN      string  `json:"asn,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

type Geolocation struct {
	IP        string  `json:"ip"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  string  `json:"accuracy,omitempty"`
	Source    string  `json:"source"`
}

// WellKnownFile is a site policy file fetched from a fixed path, such as
// /robots.txt or /.well-known/security.txt. Content is truncated at the
// collector's cap.
type WellKnownFile struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Found      bool   `json:"found"`
	Content    string `json:"content,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

type ArchiveSnapshot struct {
	Available   bool   `json:"available"`
	SnapshotURL string `json:"snapshot_url,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// ForensicRecord is the aggregate of every collector's output for one
// evidence item. Fields are absent when their task failed, was skipped by
// consent, or produced nothing; failures are listed in CollectionErrors
// under the task name. The record is immutable after assembly.
type ForensicRecord struct {
	Page        *PageContext        `json:"page_context,omitempty"`
	Environment *CaptureEnvironment `json:"capture_environment,omitempty"`
	Browser     *BrowserEnvironment `json:"browser_environment,omitempty"`
	Headers     *HTTPHeaders        `json:"http_headers,omitempty"`
	Certificate *CertificateInfo    `json:"ssl_certificate,omitempty"`
	DNS         *DNSRecords         `json:"dns_records,omitempty"`
	Whois       *WhoisInfo          `json:"whois,omitempty"`
	IP          *IPInfo             `json:"ip_info,omitempty"`
	ReverseDNS  []string            `json:"reverse_dns,omitempty"`
	Geolocation *Geolocation        `json:"geolocation,omitempty"`
	Archive     *ArchiveSnapshot    `json:"archive_snapshot,omitempty"`
	Robots      *WellKnownFile      `json:"robots_txt,omitempty"`
	Security    *WellKnownFile      `json:"security_txt,omitempty"`

	CollectionErrors map[string]string `json:"collection_errors"`
	TaskDurationsMs  map[string]int64  `json:"task_durations_ms,omitempty"`
	Consent          ConsentConfig     `json:"consent"`
	CollectedAt      time.Time         `json:"collected_at"`
}

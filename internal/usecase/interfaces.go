package usecase

import (
	"context"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

// ProgressStore is the durable key-value collaborator behind the progress
// tracker. Implementations persist the whole evidence-id map wholesale
// under a fixed namespace key.
type ProgressStore interface {
	Load(ctx context.Context) (map[string]domain.PipelineProgress, error)
	Save(ctx context.Context, entries map[string]domain.PipelineProgress) error
	Remove(ctx context.Context) error
}

// EvidenceRepository persists completed evidence records.
type EvidenceRepository interface {
	Save(ctx context.Context, record domain.EvidenceRecord) error
	FindByID(ctx context.Context, id string) (domain.EvidenceRecord, error)
}

// ConsentPolicy decides the set of collector task names allowed to run for
// a given consent configuration.
type ConsentPolicy interface {
	AllowedCollectors(ctx context.Context, consent domain.ConsentConfig) ([]string, error)
}

// CollectorServices bundles the individual data-gathering tasks the
// orchestrator fans out to. Each method is one collector; each must be safe
// to call concurrently with the others.
type CollectorServices interface {
	PageContext(ctx context.Context, rawURL, title string) (*domain.PageContext, error)
	CaptureEnvironment(ctx context.Context) (*domain.CaptureEnvironment, error)
	Headers(ctx context.Context, rawURL string) (*domain.HTTPHeaders, error)
	Certificate(ctx context.Context, host string) (*domain.CertificateInfo, error)
	DNSRecords(ctx context.Context, host string) (*domain.DNSRecords, error)
	DNSOverHTTPS(ctx context.Context, host string) (*domain.DNSRecords, error)
	Whois(ctx context.Context, host string) (*domain.WhoisInfo, error)
	IPInfo(ctx context.Context, ip string) (*domain.IPInfo, error)
	ReverseDNS(ctx context.Context, ip string) ([]string, error)
	Geolocation(ctx context.Context, ip string) (*domain.Geolocation, error)
	ArchiveSnapshot(ctx context.Context, rawURL string) (*domain.ArchiveSnapshot, error)
	RobotsTxt(ctx context.Context, rawURL string) (*domain.WellKnownFile, error)
	SecurityTxt(ctx context.Context, rawURL string) (*domain.WellKnownFile, error)
}

// Timestamper, Uploader, Previewer, Anchorer and Certifier are the external
// phase collaborators. The pipeline only sequences them; nil collaborators
// complete their phase immediately with a synthetic reference.
type Timestamper interface {
	Timestamp(ctx context.Context, rootDigest string) (string, error)
}

type Uploader interface {
	Upload(ctx context.Context, record domain.EvidenceRecord, onProgress func(percent int)) error
}

type Previewer interface {
	GeneratePreview(ctx context.Context, record domain.EvidenceRecord) error
}

type Anchorer interface {
	Anchor(ctx context.Context, rootDigest string) (string, error)
}

type Certifier interface {
	IssueCertificate(ctx context.Context, record domain.EvidenceRecord) (string, error)
}

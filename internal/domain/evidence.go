package domain

import "time"

// ArtifactKind distinguishes how an artifact's bytes are digested.
type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactVideo ArtifactKind = "video"
)

// Artifact is one captured byte sequence handed to the pipeline by the
// capture collaborator. Video artifacts arrive pre-chunked; each chunk is
// digested as its own integrity-tree leaf.
type Artifact struct {
	Name   string
	Kind   ArtifactKind
	Bytes  []byte
	Chunks [][]byte
}

// EvidenceRecord is the durable result of a completed (or failed) pipeline
// run: the integrity commitment plus the forensic aggregate.
type EvidenceRecord struct {
	ID             string
	TargetURL      string
	PageTitle      string
	Status         EvidenceStatus
	RootDigest     string
	LeafDigests    []string
	Forensic       *ForensicRecord
	ForensicDigest string
	TimestampToken string
	AnchorRef      string
	CertificateRef string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

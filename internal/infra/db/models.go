package db

import "time"

type EvidenceModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	TargetURL      string `gorm:"not null"`
	PageTitle      string
	Status         string `gorm:"index;not null"`
	RootDigest     string `gorm:"index;not null"`
	LeafDigests    []byte `gorm:"type:jsonb;not null"`
	ForensicJSON   []byte `gorm:"type:jsonb"`
	ForensicDigest string
	TimestampToken string
	AnchorRef      string `gorm:"index"`
	CertificateRef string
	CreatedAt      time.Time `gorm:"not null"`
	CompletedAt    *time.Time
}

func (EvidenceModel) TableName() string {
	return "evidence_records"
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EvidenceRepo stores evidence records. With no database configured every
// method is a no-op (writes) or a not-found (reads).
type EvidenceRepo struct {
	store *Store
}

func NewEvidenceRepo(store *Store) *EvidenceRepo {
	return &EvidenceRepo{store: store}
}

func (r *EvidenceRepo) Save(ctx context.Context, record domain.EvidenceRecord) error {
	if !r.store.Enabled() {
		return nil
	}
	model, err := toModel(record)
	if err != nil {
		return err
	}
	err = r.store.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("%w: save evidence %s: %v", domain.ErrPersistence, record.ID, err)
	}
	return nil
}

func (r *EvidenceRepo) FindByID(ctx context.Context, id string) (domain.EvidenceRecord, error) {
	if !r.store.Enabled() {
		return domain.EvidenceRecord{}, domain.ErrNotFound
	}
	var model EvidenceModel
	err := r.store.DB.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.EvidenceRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.EvidenceRecord{}, fmt.Errorf("%w: find evidence %s: %v", domain.ErrPersistence, id, err)
	}
	return fromModel(model)
}

func toModel(record domain.EvidenceRecord) (EvidenceModel, error) {
	leaves, err := json.Marshal(record.LeafDigests)
	if err != nil {
		return EvidenceModel{}, fmt.Errorf("encode leaf digests: %w", err)
	}
	var forensic []byte
	if record.Forensic != nil {
		if forensic, err = json.Marshal(record.Forensic); err != nil {
			return EvidenceModel{}, fmt.Errorf("encode forensic record: %w", err)
		}
	}
	return EvidenceModel{
		ID:             record.ID,
		TargetURL:      record.TargetURL,
		PageTitle:      record.PageTitle,
		Status:         string(record.Status),
		RootDigest:     record.RootDigest,
		LeafDigests:    leaves,
		ForensicJSON:   forensic,
		ForensicDigest: record.ForensicDigest,
		TimestampToken: record.TimestampToken,
		AnchorRef:      record.AnchorRef,
		CertificateRef: record.CertificateRef,
		CreatedAt:      record.CreatedAt,
		CompletedAt:    record.CompletedAt,
	}, nil
}

func fromModel(model EvidenceModel) (domain.EvidenceRecord, error) {
	var leaves []string
	if len(model.LeafDigests) > 0 {
		if err := json.Unmarshal(model.LeafDigests, &leaves); err != nil {
			return domain.EvidenceRecord{}, fmt.Errorf("decode leaf digests: %w", err)
		}
	}
	var forensic *domain.ForensicRecord
	if len(model.ForensicJSON) > 0 {
		forensic = &domain.ForensicRecord{}
		if err := json.Unmarshal(model.ForensicJSON, forensic); err != nil {
			return domain.EvidenceRecord{}, fmt.Errorf("decode forensic record: %w", err)
		}
	}
	return domain.EvidenceRecord{
		ID:             model.ID,
		TargetURL:      model.TargetURL,
		PageTitle:      model.PageTitle,
		Status:         domain.EvidenceStatus(model.Status),
		RootDigest:     model.RootDigest,
		LeafDigests:    leaves,
		Forensic:       forensic,
		ForensicDigest: model.ForensicDigest,
		TimestampToken: model.TimestampToken,
		AnchorRef:      model.AnchorRef,
		CertificateRef: model.CertificateRef,
		CreatedAt:      model.CreatedAt,
		CompletedAt:    model.CompletedAt,
	}, nil
}

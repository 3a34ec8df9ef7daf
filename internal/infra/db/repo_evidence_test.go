package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

func TestModelRoundTrip(t *testing.T) {
	completed := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	record := domain.EvidenceRecord{
		ID:         "8d5c0c6a-3f6e-4c62-9a44-000000000001",
		TargetURL:  "https://www.example.com/page",
		PageTitle:  "Example",
		Status:     domain.StatusCertificateIssued,
		RootDigest: "ab12",
		LeafDigests: []string{
			"aaaa", "bbbb",
		},
		Forensic: &domain.ForensicRecord{
			ReverseDNS:       []string{"host.example.com."},
			CollectionErrors: map[string]string{"whois": "timed out"},
			CollectedAt:      completed,
		},
		ForensicDigest: "bbbb",
		TimestampToken: "tsa:ab12",
		AnchorRef:      "chain:tx-1",
		CertificateRef: "cert:ab12",
		CreatedAt:      completed.Add(-time.Minute),
		CompletedAt:    &completed,
	}

	model, err := toModel(record)
	if err != nil {
		t.Fatalf("toModel: %v", err)
	}
	if model.Status != "certificate_issued" {
		t.Fatalf("model status = %q", model.Status)
	}

	got, err := fromModel(model)
	if err != nil {
		t.Fatalf("fromModel: %v", err)
	}
	if got.Status != record.Status || got.RootDigest != record.RootDigest {
		t.Fatalf("round trip changed record: %+v", got)
	}
	if len(got.LeafDigests) != 2 || got.LeafDigests[1] != "bbbb" {
		t.Fatalf("leaf digests = %v", got.LeafDigests)
	}
	if got.Forensic == nil || got.Forensic.CollectionErrors["whois"] != "timed out" {
		t.Fatalf("forensic aggregate = %+v", got.Forensic)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Fatalf("completed-at = %v", got.CompletedAt)
	}
}

func TestNoDatabaseMode(t *testing.T) {
	store, err := NewStore("", false)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.Enabled() {
		t.Fatal("empty DSN reported an enabled store")
	}

	repo := NewEvidenceRepo(store)
	if err := repo.Save(context.Background(), domain.EvidenceRecord{ID: "x"}); err != nil {
		t.Fatalf("Save in no-db mode: %v", err)
	}
	if _, err := repo.FindByID(context.Background(), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("FindByID in no-db mode = %v, want ErrNotFound", err)
	}
}

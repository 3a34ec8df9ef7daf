package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/crypto"
)

type fakeRepo struct {
	mu      sync.Mutex
	records map[string]domain.EvidenceRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]domain.EvidenceRecord)}
}

func (r *fakeRepo) Save(ctx context.Context, record domain.EvidenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (domain.EvidenceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return domain.EvidenceRecord{}, domain.ErrNotFound
	}
	return record, nil
}

type fakeTimestamper struct{ err error }

func (f fakeTimestamper) Timestamp(ctx context.Context, rootDigest string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "tsa:" + rootDigest[:8], nil
}

type fakeUploader struct {
	err   error
	block chan struct{}
}

func (f fakeUploader) Upload(ctx context.Context, record domain.EvidenceRecord, onProgress func(int)) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
	if f.err != nil {
		return f.err
	}
	for _, pct := range []int{25, 50, 75, 100} {
		onProgress(pct)
	}
	return nil
}

type fakeAnchorer struct{}

func (fakeAnchorer) Anchor(ctx context.Context, rootDigest string) (string, error) {
	return "chain:tx-" + rootDigest[:8], nil
}

func newTestPipeline(repo *fakeRepo) *EvidencePipeline {
	return &EvidencePipeline{
		Repo:      repo,
		Tracker:   NewProgressTracker(nil, nil),
		Forensics: newCollection(newFakeCollectors()),
		Timestamp: fakeTimestamper{},
		Upload:    fakeUploader{},
		Anchor:    fakeAnchorer{},
	}
}

func submitParams() SubmitParams {
	return SubmitParams{
		TargetURL: "https://www.example.com/page",
		PageTitle: "Example",
		Artifacts: []domain.Artifact{
			{Name: "capture.png", Kind: domain.ArtifactImage, Bytes: []byte("png bytes")},
		},
	}
}

func waitForStatus(t *testing.T, tr *ProgressTracker, id string, want domain.EvidenceStatus) domain.PipelineProgress {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if got, ok := tr.Get(id); ok && got.Status == want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := tr.Get(id)
	t.Fatalf("status = %q, never reached %q", got.Status, want)
	return domain.PipelineProgress{}
}

func TestPipelineCompletesAllPhases(t *testing.T) {
	repo := newFakeRepo()
	p := newTestPipeline(repo)

	id, err := p.Submit(submitParams())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForStatus(t, p.Tracker, id, domain.StatusCertificateIssued)
	if final.Percent != 100 {
		t.Fatalf("final percent = %d, want 100", final.Percent)
	}

	record, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if record.Status != domain.StatusCertificateIssued {
		t.Fatalf("record status = %q", record.Status)
	}
	if record.RootDigest == "" || record.TimestampToken == "" || record.AnchorRef == "" || record.CertificateRef == "" {
		t.Fatalf("record missing references: %+v", record)
	}
	if record.CompletedAt == nil {
		t.Fatal("completed-at not set")
	}
	if record.Forensic == nil || record.ForensicDigest == "" {
		t.Fatal("forensic aggregate missing")
	}

	// The artifact digest and the forensic digest are both tree leaves.
	wantArtifact := crypto.SumHex([]byte("png bytes"))
	if len(record.LeafDigests) != 2 {
		t.Fatalf("leaf count = %d, want 2", len(record.LeafDigests))
	}
	if record.LeafDigests[0] != wantArtifact {
		t.Fatalf("leaf[0] = %s, want artifact digest %s", record.LeafDigests[0], wantArtifact)
	}
	if record.LeafDigests[1] != record.ForensicDigest {
		t.Fatal("forensic digest is not the final leaf")
	}
}

func TestPipelineVideoChunksBecomeLeaves(t *testing.T) {
	repo := newFakeRepo()
	p := newTestPipeline(repo)

	params := submitParams()
	params.Artifacts = []domain.Artifact{
		{
			Name:   "capture.webm",
			Kind:   domain.ArtifactVideo,
			Chunks: [][]byte{[]byte("chunk-0"), []byte("chunk-1"), []byte("chunk-2")},
		},
	}
	id, err := p.Submit(params)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, p.Tracker, id, domain.StatusCertificateIssued)

	record, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(record.LeafDigests) != 4 {
		t.Fatalf("leaf count = %d, want 3 chunks + forensic digest", len(record.LeafDigests))
	}
	if record.LeafDigests[1] != crypto.SumHex([]byte("chunk-1")) {
		t.Fatal("chunk leaves out of order")
	}
}

func TestPipelinePhaseFailureIsTerminal(t *testing.T) {
	repo := newFakeRepo()
	p := newTestPipeline(repo)
	p.Timestamp = fakeTimestamper{err: errors.New("tsa unreachable")}

	id, err := p.Submit(submitParams())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForStatus(t, p.Tracker, id, domain.StatusTimestampFailed)
	if !final.Status.IsFailure() {
		t.Fatalf("status = %q, want terminal failure", final.Status)
	}

	record, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if record.Status != domain.StatusTimestampFailed {
		t.Fatalf("record status = %q, want timestamp_failed", record.Status)
	}
	if record.TimestampToken != "" || record.AnchorRef != "" {
		t.Fatal("later-phase references set on a failed run")
	}
	// The capture phase completed, so the integrity tree survives.
	if record.RootDigest == "" {
		t.Fatal("root digest lost on downstream failure")
	}
}

func TestPipelineCancelAbortsRun(t *testing.T) {
	repo := newFakeRepo()
	p := newTestPipeline(repo)
	block := make(chan struct{})
	defer close(block)
	p.Upload = fakeUploader{block: block}

	id, err := p.Submit(submitParams())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, p.Tracker, id, domain.StatusUploading)

	if !p.Cancel(id) {
		t.Fatal("Cancel reported unknown id for a running pipeline")
	}
	final := waitForStatus(t, p.Tracker, id, domain.StatusUploadFailed)
	if final.Message == "" {
		t.Fatal("no failure message after cancel")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := p.Watchdogs(id); !ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := p.Watchdogs(id); ok {
		t.Fatal("run still registered after cancel")
	}
	if p.Cancel(id) {
		t.Fatal("Cancel succeeded for a finished run")
	}
}

func TestPipelineUploadProgressIsMonotonic(t *testing.T) {
	repo := newFakeRepo()
	p := newTestPipeline(repo)

	var mu sync.Mutex
	var percents []int
	p.Tracker.Subscribe(func(progress domain.PipelineProgress) {
		mu.Lock()
		percents = append(percents, progress.Percent)
		mu.Unlock()
	})

	id, err := p.Submit(submitParams())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, p.Tracker, id, domain.StatusCertificateIssued)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("percent regressed: %v", percents)
		}
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Fatalf("final notified percent = %v, want 100", percents)
	}
}

func TestSubmitValidation(t *testing.T) {
	p := newTestPipeline(newFakeRepo())

	if _, err := p.Submit(SubmitParams{Artifacts: []domain.Artifact{{Bytes: []byte("x")}}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing url error = %v, want ErrInvalidInput", err)
	}
	if _, err := p.Submit(SubmitParams{TargetURL: "https://example.com"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing artifacts error = %v, want ErrInvalidInput", err)
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/crypto"
	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/merkle"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitParams is the input for one evidence pipeline run.
type SubmitParams struct {
	TargetURL string
	PageTitle string
	Artifacts []domain.Artifact
	Browser   *domain.BrowserEnvironment
	Consent   domain.ConsentConfig
}

// EvidencePipeline sequences the six phases of an evidence run: capture,
// timestamp, upload, preview, blockchain and certificate. Each phase is
// bracketed by its own watchdog; a fired watchdog or a phase error moves
// the item to that phase's terminal failure status and ends the run.
type EvidencePipeline struct {
	Repo      EvidenceRepository
	Tracker   *ProgressTracker
	Forensics *ForensicCollection
	Timestamp Timestamper
	Upload    Uploader
	Preview   Previewer
	Anchor    Anchorer
	Certify   Certifier
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func() string

	mu   sync.Mutex
	runs map[string]*pipelineRun
}

type pipelineRun struct {
	cancel   context.CancelCauseFunc
	timeouts *TimeoutManager
}

// Submit starts a pipeline run in the background and returns the new
// evidence id immediately. Progress is observable through the tracker.
func (p *EvidencePipeline) Submit(params SubmitParams) (string, error) {
	if params.TargetURL == "" {
		return "", fmt.Errorf("%w: target url is required", domain.ErrInvalidInput)
	}
	if len(params.Artifacts) == 0 {
		return "", fmt.Errorf("%w: at least one artifact is required", domain.ErrInvalidInput)
	}

	id := p.newID()
	ctx, cancel := context.WithCancelCause(context.Background())
	run := &pipelineRun{
		cancel:   cancel,
		timeouts: NewTimeoutManager(nil, p.logger()),
	}

	p.mu.Lock()
	if p.runs == nil {
		p.runs = make(map[string]*pipelineRun)
	}
	p.runs[id] = run
	p.mu.Unlock()

	p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusInitializing)})

	go func() {
		defer p.finish(id, run)
		p.execute(ctx, run, id, params)
	}()
	return id, nil
}

// Cancel aborts the named run. Every armed watchdog is disarmed and the run
// context is canceled with a cancellation (not timeout) cause. Unknown ids
// are a no-op.
func (p *EvidencePipeline) Cancel(id string) bool {
	p.mu.Lock()
	run, ok := p.runs[id]
	p.mu.Unlock()
	if !ok {
		return false
	}
	run.timeouts.ClearAll()
	run.cancel(domain.ErrCollectionCanceled)
	return true
}

// Watchdogs returns diagnostics for the named run's armed watchdogs.
func (p *EvidencePipeline) Watchdogs(id string) ([]TimeoutSnapshot, bool) {
	p.mu.Lock()
	run, ok := p.runs[id]
	p.mu.Unlock()
	if !ok {
		return nil, false
	}
	return run.timeouts.Snapshot(), true
}

func (p *EvidencePipeline) execute(ctx context.Context, run *pipelineRun, id string, params SubmitParams) {
	record := domain.EvidenceRecord{
		ID:        id,
		TargetURL: params.TargetURL,
		PageTitle: params.PageTitle,
		CreatedAt: p.clock()(),
	}

	steps := []struct {
		phase domain.Phase
		fn    func(ctx context.Context, record *domain.EvidenceRecord) error
	}{
		{domain.PhaseCapture, func(ctx context.Context, r *domain.EvidenceRecord) error {
			return p.runCapture(ctx, id, params, r)
		}},
		{domain.PhaseTimestamp, p.runTimestamp(id)},
		{domain.PhaseUpload, p.runUpload(id)},
		{domain.PhasePreview, p.runPreview(id)},
		{domain.PhaseBlockchain, p.runAnchor(id)},
		{domain.PhaseCertificate, p.runCertificate(id)},
	}

	for _, step := range steps {
		if err := p.runPhase(ctx, run, id, step.phase, &record, step.fn); err != nil {
			p.fail(ctx, id, step.phase, &record, err)
			return
		}
	}

	completed := p.clock()()
	record.Status = domain.StatusCertificateIssued
	record.CompletedAt = &completed
	p.saveRecord(ctx, &record)
	p.logger().Info("evidence pipeline completed",
		zap.String("evidence_id", id),
		zap.String("root_digest", record.RootDigest))
}

// runPhase brackets one phase body with its watchdog. The body receives a
// context that ends when the run is canceled or the watchdog fires,
// whichever comes first.
func (p *EvidencePipeline) runPhase(ctx context.Context, run *pipelineRun, id string, phase domain.Phase, record *domain.EvidenceRecord, fn func(ctx context.Context, record *domain.EvidenceRecord) error) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}

	token, cleanup := run.timeouts.Register(phase.Name(), func() {
		p.logger().Warn("phase exceeded its budget",
			zap.String("evidence_id", id),
			zap.String("phase", phase.Name()))
	}, 0)
	defer cleanup()

	phaseCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		select {
		case <-token.Done():
			cancel(context.Cause(token))
		case <-phaseCtx.Done():
		}
	}()

	if err := fn(phaseCtx, record); err != nil {
		if cause := context.Cause(phaseCtx); cause != nil && cause != context.Canceled {
			return cause
		}
		return err
	}
	return nil
}

// runCapture assembles the forensic aggregate and the integrity tree. The
// digest of the canonical forensic JSON becomes the final tree leaf, so the
// root commits to the collected context as well as the captured bytes.
func (p *EvidencePipeline) runCapture(ctx context.Context, id string, params SubmitParams, record *domain.EvidenceRecord) error {
	record.Status = domain.StatusCapturing
	p.Tracker.Update(ctx, id, ProgressUpdate{
		Status:  statusPtr(domain.StatusCapturing),
		Message: strPtr("collecting forensic context"),
	})

	forensic, err := p.Forensics.Collect(ctx, CollectParams{
		URL:     params.TargetURL,
		Title:   params.PageTitle,
		Browser: params.Browser,
		Consent: params.Consent,
	})
	if err != nil {
		return err
	}
	record.Forensic = forensic

	canonical, err := json.Marshal(forensic)
	if err != nil {
		return fmt.Errorf("encode forensic record: %w", err)
	}
	record.ForensicDigest = crypto.SumHex(canonical)

	leaves := make([]string, 0, len(params.Artifacts)+1)
	for _, artifact := range params.Artifacts {
		if artifact.Kind == domain.ArtifactVideo && len(artifact.Chunks) > 0 {
			for _, chunk := range artifact.Chunks {
				leaves = append(leaves, crypto.SumHex(chunk))
			}
			continue
		}
		leaves = append(leaves, crypto.SumHex(artifact.Bytes))
	}
	leaves = append(leaves, record.ForensicDigest)

	tree, err := merkle.Build(leaves)
	if err != nil {
		return err
	}
	root, err := tree.RootDigest()
	if err != nil {
		return err
	}
	record.RootDigest = root
	record.LeafDigests = tree.LeafDigests()
	record.Status = domain.StatusCaptured

	p.Tracker.Update(ctx, id, ProgressUpdate{
		Status:  statusPtr(domain.StatusCaptured),
		Message: strPtr("integrity tree sealed"),
		Details: map[string]any{"root_digest": root, "leaf_count": len(leaves)},
	})
	return nil
}

func (p *EvidencePipeline) runTimestamp(id string) func(ctx context.Context, record *domain.EvidenceRecord) error {
	return func(ctx context.Context, record *domain.EvidenceRecord) error {
		record.Status = domain.StatusTimestamping
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusTimestamping)})

		token := "local:" + shortDigest(record.RootDigest)
		if p.Timestamp != nil {
			var err error
			if token, err = p.Timestamp.Timestamp(ctx, record.RootDigest); err != nil {
				return err
			}
		}
		record.TimestampToken = token
		record.Status = domain.StatusTimestamped
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusTimestamped)})
		return nil
	}
}

func (p *EvidencePipeline) runUpload(id string) func(ctx context.Context, record *domain.EvidenceRecord) error {
	return func(ctx context.Context, record *domain.EvidenceRecord) error {
		record.Status = domain.StatusUploading
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusUploading)})

		if p.Upload != nil {
			// The uploader reports absolute percent; the tracker wants deltas.
			reported := 0
			err := p.Upload.Upload(ctx, *record, func(percent int) {
				if percent <= reported {
					return
				}
				p.Tracker.IncrementProgress(ctx, id, percent-reported, 0, "uploading artifacts")
				reported = percent
			})
			if err != nil {
				return err
			}
		}
		record.Status = domain.StatusUploaded
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusUploaded)})
		return nil
	}
}

func (p *EvidencePipeline) runPreview(id string) func(ctx context.Context, record *domain.EvidenceRecord) error {
	return func(ctx context.Context, record *domain.EvidenceRecord) error {
		record.Status = domain.StatusPreviewPending
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusPreviewPending)})

		if p.Preview != nil {
			if err := p.Preview.GeneratePreview(ctx, *record); err != nil {
				return err
			}
		}
		record.Status = domain.StatusPreviewReady
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusPreviewReady)})
		return nil
	}
}

func (p *EvidencePipeline) runAnchor(id string) func(ctx context.Context, record *domain.EvidenceRecord) error {
	return func(ctx context.Context, record *domain.EvidenceRecord) error {
		record.Status = domain.StatusBlockchainPending
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusBlockchainPending)})
		record.Status = domain.StatusBlockchainAnchoring
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusBlockchainAnchoring)})

		ref := "local:" + shortDigest(record.RootDigest)
		if p.Anchor != nil {
			var err error
			if ref, err = p.Anchor.Anchor(ctx, record.RootDigest); err != nil {
				return err
			}
		}
		record.AnchorRef = ref
		record.Status = domain.StatusBlockchainConfirmed
		p.Tracker.Update(ctx, id, ProgressUpdate{
			Status:  statusPtr(domain.StatusBlockchainConfirmed),
			Details: map[string]any{"anchor_ref": ref},
		})
		return nil
	}
}

func (p *EvidencePipeline) runCertificate(id string) func(ctx context.Context, record *domain.EvidenceRecord) error {
	return func(ctx context.Context, record *domain.EvidenceRecord) error {
		record.Status = domain.StatusCertificateGenerating
		p.Tracker.Update(ctx, id, ProgressUpdate{Status: statusPtr(domain.StatusCertificateGenerating)})

		ref := "cert:" + shortDigest(record.RootDigest)
		if p.Certify != nil {
			var err error
			if ref, err = p.Certify.IssueCertificate(ctx, *record); err != nil {
				return err
			}
		}
		record.CertificateRef = ref
		record.Status = domain.StatusCertificateIssued
		p.Tracker.Update(ctx, id, ProgressUpdate{
			Status:  statusPtr(domain.StatusCertificateIssued),
			Message: strPtr("certificate issued"),
			Details: map[string]any{"certificate_ref": ref},
		})
		return nil
	}
}

func (p *EvidencePipeline) fail(ctx context.Context, id string, phase domain.Phase, record *domain.EvidenceRecord, cause error) {
	status := domain.FailureStatusFor(phase)
	record.Status = status
	p.Tracker.Update(ctx, id, ProgressUpdate{
		Status:  statusPtr(status),
		Message: strPtr(cause.Error()),
	})
	p.saveRecord(ctx, record)
	p.logger().Error("evidence pipeline failed",
		zap.String("evidence_id", id),
		zap.String("phase", phase.Name()),
		zap.Error(cause))
}

func (p *EvidencePipeline) saveRecord(ctx context.Context, record *domain.EvidenceRecord) {
	if p.Repo == nil {
		return
	}
	if err := p.Repo.Save(context.WithoutCancel(ctx), *record); err != nil {
		p.logger().Error("persist evidence record",
			zap.String("evidence_id", record.ID),
			zap.Error(err))
	}
}

func (p *EvidencePipeline) finish(id string, run *pipelineRun) {
	run.timeouts.ClearAll()
	run.cancel(nil)
	p.mu.Lock()
	delete(p.runs, id)
	p.mu.Unlock()
}

func (p *EvidencePipeline) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

func (p *EvidencePipeline) clock() func() time.Time {
	if p.Now != nil {
		return p.Now
	}
	return time.Now
}

func (p *EvidencePipeline) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}

func shortDigest(digest string) string {
	if len(digest) > 16 {
		return digest[:16]
	}
	return digest
}

func statusPtr(s domain.EvidenceStatus) *domain.EvidenceStatus { return &s }

func strPtr(s string) *string { return &s }

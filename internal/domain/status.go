package domain

// EvidenceStatus is one of the fixed sub-statuses an evidence item moves
// through. Every status belongs to exactly one of the six ordered phases.
type EvidenceStatus string

const (
	StatusInitializing  EvidenceStatus = "initializing"
	StatusCapturing     EvidenceStatus = "capturing"
	StatusCaptured      EvidenceStatus = "captured"
	StatusCaptureFailed EvidenceStatus = "capture_failed"

	StatusTimestamping    EvidenceStatus = "timestamping"
	StatusTimestamped     EvidenceStatus = "timestamped"
	StatusTimestampFailed EvidenceStatus = "timestamp_failed"

	StatusUploading    EvidenceStatus = "uploading"
	StatusUploaded     EvidenceStatus = "uploaded"
	StatusUploadFailed EvidenceStatus = "upload_failed"

	StatusPreviewPending EvidenceStatus = "preview_pending"
	StatusPreviewReady   EvidenceStatus = "preview_ready"
	StatusPreviewFailed  EvidenceStatus = "preview_failed"

	StatusBlockchainPending   EvidenceStatus = "blockchain_pending"
	StatusBlockchainAnchoring EvidenceStatus = "blockchain_anchoring"
	StatusBlockchainConfirmed EvidenceStatus = "blockchain_confirmed"
	StatusBlockchainFailed    EvidenceStatus = "blockchain_failed"

	StatusCertificateGenerating EvidenceStatus = "certificate_generating"
	StatusCertificateIssued     EvidenceStatus = "certificate_issued"
	StatusCertificateFailed     EvidenceStatus = "certificate_failed"
)

// Phase identifies one of the six ordered pipeline stages.
type Phase int

const (
	PhaseCapture     Phase = 1
	PhaseTimestamp   Phase = 2
	PhaseUpload      Phase = 3
	PhasePreview     Phase = 4
	PhaseBlockchain  Phase = 5
	PhaseCertificate Phase = 6
)

var phaseNames = map[Phase]string{
	PhaseCapture:     "capture",
	PhaseTimestamp:   "timestamp",
	PhaseUpload:      "upload",
	PhasePreview:     "preview",
	PhaseBlockchain:  "blockchain",
	PhaseCertificate: "certificate",
}

func (p Phase) Name() string {
	return phaseNames[p]
}

var statusPhase = map[EvidenceStatus]Phase{
	StatusInitializing:  PhaseCapture,
	StatusCapturing:     PhaseCapture,
	StatusCaptured:      PhaseCapture,
	StatusCaptureFailed: PhaseCapture,

	StatusTimestamping:    PhaseTimestamp,
	StatusTimestamped:     PhaseTimestamp,
	StatusTimestampFailed: PhaseTimestamp,

	StatusUploading:    PhaseUpload,
	StatusUploaded:     PhaseUpload,
	StatusUploadFailed: PhaseUpload,

	StatusPreviewPending: PhasePreview,
	StatusPreviewReady:   PhasePreview,
	StatusPreviewFailed:  PhasePreview,

	StatusBlockchainPending:   PhaseBlockchain,
	StatusBlockchainAnchoring: PhaseBlockchain,
	StatusBlockchainConfirmed: PhaseBlockchain,
	StatusBlockchainFailed:    PhaseBlockchain,

	StatusCertificateGenerating: PhaseCertificate,
	StatusCertificateIssued:     PhaseCertificate,
	StatusCertificateFailed:     PhaseCertificate,
}

// statusTargetPercent maps a status to the percent the pipeline should be
// converging toward while that status is current. Failed statuses carry no
// target; progress freezes where it was.
var statusTargetPercent = map[EvidenceStatus]int{
	StatusInitializing: 0,
	StatusCapturing:    15,
	StatusCaptured:     30,

	StatusTimestamping: 35,
	StatusTimestamped:  40,

	StatusUploading: 60,
	StatusUploaded:  85,

	StatusPreviewPending: 88,
	StatusPreviewReady:   95,

	StatusBlockchainPending:   96,
	StatusBlockchainAnchoring: 97,
	StatusBlockchainConfirmed: 98,

	StatusCertificateGenerating: 99,
	StatusCertificateIssued:     100,
}

// phaseCeiling bounds how far dynamic progress may advance while a phase is
// still active, so a busy phase never visually overtakes the next one.
var phaseCeiling = map[Phase]int{
	PhaseCapture:     30,
	PhaseTimestamp:   40,
	PhaseUpload:      85,
	PhasePreview:     95,
	PhaseBlockchain:  100,
	PhaseCertificate: 100,
}

// activeStatuses are statuses under which updates arrive at high frequency;
// smoothing uses a tighter step bound for them.
var activeStatuses = map[EvidenceStatus]bool{
	StatusCapturing:             true,
	StatusUploading:             true,
	StatusBlockchainAnchoring:   true,
	StatusCertificateGenerating: true,
}

// PhaseOf returns the phase a status belongs to, or false for an unknown
// status.
func PhaseOf(status EvidenceStatus) (Phase, bool) {
	p, ok := statusPhase[status]
	return p, ok
}

// TargetPercent returns the default percent associated with a status. For
// terminal failure statuses there is no target and ok is false.
func TargetPercent(status EvidenceStatus) (int, bool) {
	v, ok := statusTargetPercent[status]
	return v, ok
}

// PhaseCeilingOf returns the maximum percent reachable while status is
// active. Unknown statuses get the full range.
func PhaseCeilingOf(status EvidenceStatus) int {
	p, ok := statusPhase[status]
	if !ok {
		return 100
	}
	return phaseCeiling[p]
}

// IsActive reports whether status is an actively-progressing status.
func (s EvidenceStatus) IsActive() bool {
	return activeStatuses[s]
}

// IsFailure reports whether status is a terminal *_failed status.
func (s EvidenceStatus) IsFailure() bool {
	switch s {
	case StatusCaptureFailed, StatusTimestampFailed, StatusUploadFailed,
		StatusPreviewFailed, StatusBlockchainFailed, StatusCertificateFailed:
		return true
	}
	return false
}

// FailureStatusFor returns the terminal failure status of the given phase.
func FailureStatusFor(phase Phase) EvidenceStatus {
	switch phase {
	case PhaseCapture:
		return StatusCaptureFailed
	case PhaseTimestamp:
		return StatusTimestampFailed
	case PhaseUpload:
		return StatusUploadFailed
	case PhasePreview:
		return StatusPreviewFailed
	case PhaseBlockchain:
		return StatusBlockchainFailed
	default:
		return StatusCertificateFailed
	}
}

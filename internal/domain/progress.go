package domain

import "time"

// PipelineProgress is the live progress record for one evidence item.
// Percent is monotonically non-decreasing for the lifetime of the item.
type PipelineProgress struct {
	EvidenceID string         `json:"evidence_id"`
	Status     EvidenceStatus `json:"status"`
	Phase      Phase          `json:"phase"`
	PhaseName  string         `json:"phase_name"`
	Percent    int            `json:"percent"`
	Message    string         `json:"message,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Details    map[string]any `json:"details,omitempty"`
}

// NewPipelineProgress returns the initial record for a freshly seen
// evidence id.
func NewPipelineProgress(evidenceID string, now time.Time) PipelineProgress {
	return PipelineProgress{
		EvidenceID: evidenceID,
		Status:     StatusInitializing,
		Phase:      PhaseCapture,
		PhaseName:  PhaseCapture.Name(),
		Percent:    0,
		UpdatedAt:  now,
	}
}

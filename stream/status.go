package stream

import "time"

// EyeStatus summarizes one capture pipeline for the API.
type EyeStatus struct {
	Running     bool      `json:"running"`
	Captures    uint64    `json:"captures"`
	Failures    uint64    `json:"failures"`
	Consecutive uint32    `json:"consecutive_failures"`
	FrameAgeMs  float64   `json:"frame_age_ms"`
	LastCapture time.Time `json:"last_capture"`
	AvgGrabMs   float64   `json:"avg_grab_ms"`
}

// Status is the JSON snapshot served at /api/status. The driver refreshes
// it once per display cycle.
type Status struct {
	Zoom             float64   `json:"zoom"`
	ConvergenceBase  int       `json:"convergence_offset"`
	EffectiveOffset  float64   `json:"effective_offset"`
	AutoAdjust       bool      `json:"auto_adjust"`
	AlignmentOffset  float64   `json:"alignment_offset"`
	AlignmentEnabled bool      `json:"alignment_enabled"`
	CalibrationPhase string    `json:"calibration_phase"`
	Markers          int       `json:"markers"`
	Left             EyeStatus `json:"left"`
	Right            EyeStatus `json:"right"`
	UpdatedAt        time.Time `json:"updated_at"`
}

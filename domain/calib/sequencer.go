// Package calib implements the guided fusion check shown when the operator
// requests a calibration pass. The sequence is advanced by the display loop
// with elapsed wall time; the package keeps no timers of its own, so a
// stalled pipeline freezes the sequence instead of letting it run ahead of
// what the operator actually saw.
package calib

import (
	"log/slog"
	"time"

	"github.com/soocke/stereo-view-go/config"
)

// Phase identifies one step of the calibration sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCrosshair
	PhaseBlinkLeft
	PhaseBlinkRight
	PhaseFuse
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCrosshair:
		return "crosshair"
	case PhaseBlinkLeft:
		return "blink_left"
	case PhaseBlinkRight:
		return "blink_right"
	case PhaseFuse:
		return "fuse"
	default:
		return "unknown"
	}
}

// next maps each phase to its successor. The sequence is strictly linear
// and always returns to idle.
var next = map[Phase]Phase{
	PhaseCrosshair:  PhaseBlinkLeft,
	PhaseBlinkLeft:  PhaseBlinkRight,
	PhaseBlinkRight: PhaseFuse,
	PhaseFuse:       PhaseIdle,
}

// Sequencer is the calibration state machine. All methods must be called
// from the driver goroutine; it is not safe for concurrent use.
type Sequencer struct {
	cfg     config.CalibrationConfig
	logger  *slog.Logger
	phase   Phase
	elapsed time.Duration
}

func NewSequencer(cfg config.CalibrationConfig, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{cfg: cfg, logger: logger, phase: PhaseIdle}
}

// Start begins a new sequence. Starting while one is already running
// restarts from the crosshair phase.
func (s *Sequencer) Start() {
	s.phase = PhaseCrosshair
	s.elapsed = 0
	s.logger.Info("calibration: sequence started")
}

// Cancel aborts the sequence immediately, whatever phase it is in.
func (s *Sequencer) Cancel() {
	if s.phase == PhaseIdle {
		return
	}
	s.logger.Info("calibration: sequence cancelled", slog.String("phase", s.phase.String()))
	s.phase = PhaseIdle
	s.elapsed = 0
}

// Active reports whether a sequence is in progress.
func (s *Sequencer) Active() bool { return s.phase != PhaseIdle }

// Phase returns the current phase.
func (s *Sequencer) Phase() Phase { return s.phase }

// Elapsed returns the time spent in the current phase so far.
func (s *Sequencer) Elapsed() time.Duration { return s.elapsed }

// Advance accumulates elapsed display time and steps through phases whose
// duration has been met. A single large delta can cross several phase
// boundaries; the leftover time carries into the next phase.
func (s *Sequencer) Advance(dt time.Duration) {
	if s.phase == PhaseIdle || dt < 0 {
		return
	}
	s.elapsed += dt
	for s.phase != PhaseIdle {
		d := s.phaseDuration(s.phase)
		if s.elapsed < d {
			return
		}
		s.elapsed -= d
		s.phase = next[s.phase]
		if s.phase == PhaseIdle {
			s.elapsed = 0
			s.logger.Info("calibration: sequence complete")
			return
		}
		s.logger.Debug("calibration: phase advanced", slog.String("phase", s.phase.String()))
	}
}

func (s *Sequencer) phaseDuration(p Phase) time.Duration {
	var secs float64
	switch p {
	case PhaseCrosshair:
		secs = s.cfg.CrosshairSeconds
	case PhaseBlinkLeft, PhaseBlinkRight:
		secs = s.cfg.BlinkSeconds
	case PhaseFuse:
		secs = s.cfg.FuseSeconds
	}
	return time.Duration(secs * float64(time.Second))
}

package stereo

import (
	"errors"
	"image"

	"github.com/soocke/stereo-view-go/config"
)

var (
	// ErrInvalidState reports a non-positive zoom reaching the processor.
	// Upstream clamping should make this unreachable.
	ErrInvalidState = errors.New("stereo: zoom must be strictly positive")
	// ErrGeometry reports a crop that degenerates to zero size after
	// clamping, i.e. zoom too extreme for the frame dimensions.
	ErrGeometry = errors.New("stereo: crop rectangle degenerate for frame size")
)

// State tracks the current zoom level and convergence offset. It is mutated
// only by input events on the driver goroutine and read each cycle by the
// processor; zoom is clamped into [Min, Max] at every mutation so it can
// never reach zero.
type State struct {
	cfg    config.StereoConfig
	zoom   float64
	offset int
}

// NewState starts at minimum zoom and the configured base offset.
func NewState(cfg config.StereoConfig) *State {
	return &State{cfg: cfg, zoom: cfg.Zoom.Min, offset: cfg.Convergence.BaseOffset}
}

func (s *State) ZoomIn()  { s.zoom = min(s.zoom+s.cfg.Zoom.Step, s.cfg.Zoom.Max) }
func (s *State) ZoomOut() { s.zoom = max(s.zoom-s.cfg.Zoom.Step, s.cfg.Zoom.Min) }

func (s *State) ConvergeIn()  { s.offset += s.cfg.Convergence.Step }
func (s *State) ConvergeOut() { s.offset -= s.cfg.Convergence.Step }

// Reset restores minimum zoom and the configured base offset.
func (s *State) Reset() {
	s.zoom = s.cfg.Zoom.Min
	s.offset = s.cfg.Convergence.BaseOffset
}

// Clamp forces zoom back into range. Used by the driver after a geometry
// failure to recover a valid state.
func (s *State) Clamp() {
	s.zoom = min(max(s.zoom, s.cfg.Zoom.Min), s.cfg.Zoom.Max)
}

func (s *State) Zoom() float64    { return s.zoom }
func (s *State) Offset() int      { return s.offset }
func (s *State) AutoAdjust() bool { return s.cfg.Convergence.AutoAdjust }

// EffectiveOffset is the convergence shift actually applied to the crops.
// With auto-adjust the base offset scales inversely with zoom so the
// convergence plane stays at the same real-world distance as magnification
// changes.
func (s *State) EffectiveOffset() (float64, error) {
	if !s.cfg.Convergence.AutoAdjust {
		return float64(s.offset), nil
	}
	if s.zoom <= 0 {
		return 0, ErrInvalidState
	}
	return float64(s.offset) / s.zoom, nil
}

// SBSFrame is one composed side-by-side output frame. The left and right
// halves are disjoint regions of a single buffer, so the two eyes can never
// overlap by construction.
type SBSFrame struct {
	img  *image.RGBA
	eyeW int
	eyeH int
}

// Image returns the full composed buffer (width = 2 × eye width).
func (f *SBSFrame) Image() *image.RGBA { return f.img }

// Left returns the left half as a shared sub-image (a pure read view).
func (f *SBSFrame) Left() *image.RGBA {
	return f.img.SubImage(image.Rect(0, 0, f.eyeW, f.eyeH)).(*image.RGBA)
}

// Right returns the right half as a shared sub-image.
func (f *SBSFrame) Right() *image.RGBA {
	return f.img.SubImage(image.Rect(f.eyeW, 0, 2*f.eyeW, f.eyeH)).(*image.RGBA)
}

// EyeSize reports the per-eye output dimensions.
func (f *SBSFrame) EyeSize() (int, int) { return f.eyeW, f.eyeH }

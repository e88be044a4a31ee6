package calib

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/soocke/stereo-view-go/domain/stereo"
)

var (
	black     = color.RGBA{A: 255}
	crossFull = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

// Apply draws the current calibration phase over a composed frame. The
// frame is modified in place, which is safe because the driver owns the
// composition buffer until it publishes a copy.
func (s *Sequencer) Apply(frame *stereo.SBSFrame) {
	if s.phase == PhaseIdle {
		return
	}
	left := frame.Left()
	right := frame.Right()

	switch s.phase {
	case PhaseCrosshair:
		s.drawCrosshair(left, crossFull)
		s.drawCrosshair(right, crossFull)
	case PhaseBlinkLeft:
		blank(right)
		s.drawCrosshair(left, crossFull)
	case PhaseBlinkRight:
		blank(left)
		s.drawCrosshair(right, crossFull)
	case PhaseFuse:
		// Pulse brightness over the fuse window so the operator can
		// tell the sequence is still live while holding fusion.
		t := s.elapsed.Seconds()
		v := uint8(128 + 127*math.Abs(math.Sin(t*math.Pi)))
		s.drawCrosshair(left, color.RGBA{G: v, A: 255})
		s.drawCrosshair(right, color.RGBA{G: v, A: 255})
	}
}

func blank(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)
}

func (s *Sequencer) drawCrosshair(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	cx := b.Min.X + b.Dx()/2
	cy := b.Min.Y + b.Dy()/2
	size := s.cfg.CrosshairSize
	thick := max(s.cfg.CrosshairThickness, 1)

	for t := -thick / 2; t <= thick/2; t++ {
		for x := cx - size; x <= cx+size; x++ {
			setClamped(img, x, cy+t, c)
		}
		for y := cy - size; y <= cy+size; y++ {
			setClamped(img, cx+t, y, c)
		}
	}
}

func setClamped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// Package align estimates and corrects residual vertical misalignment
// between the two camera feeds. Vertical disparity cannot be fused by the
// eyes and quickly causes strain, so the corrector periodically measures
// the row offset between the eye images with normalized cross-correlation
// and applies half of it to each eye in opposite directions.
package align

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"time"

	"github.com/soocke/stereo-view-go/config"
)

// Corrector holds the smoothed vertical correction. All methods run on the
// driver goroutine; it is not safe for concurrent use.
type Corrector struct {
	cfg     config.AlignmentConfig
	logger  *slog.Logger
	enabled bool
	dy      float64
	last    time.Time

	// reusable shift buffers, sized lazily to the eye frames
	shiftL *image.RGBA
	shiftR *image.RGBA
}

func NewCorrector(cfg config.AlignmentConfig, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{cfg: cfg, logger: logger, enabled: cfg.Enabled}
}

// Enabled reports whether correction is active.
func (c *Corrector) Enabled() bool { return c.enabled }

// SetEnabled toggles correction. Disabling also zeroes the current offset
// so stale corrections never reappear on re-enable.
func (c *Corrector) SetEnabled(on bool) {
	c.enabled = on
	if !on {
		c.dy = 0
	}
}

// Offset returns the current smoothed vertical correction in pixels.
// Positive means the right image sits lower than the left.
func (c *Corrector) Offset() float64 { return c.dy }

// Reset zeroes the correction and the update clock.
func (c *Corrector) Reset() {
	c.dy = 0
	c.last = time.Time{}
}

// NeedsUpdate reports whether the measurement interval has elapsed.
func (c *Corrector) NeedsUpdate(now time.Time) bool {
	if !c.enabled {
		return false
	}
	interval := time.Duration(c.cfg.IntervalSec * float64(time.Second))
	return c.last.IsZero() || now.Sub(c.last) >= interval
}

// Update measures the vertical offset between the two frames and folds it
// into the smoothed correction. Call ForceUpdate to bypass the smoothing,
// e.g. right after a calibration pass.
func (c *Corrector) Update(left, right *image.RGBA, now time.Time) {
	c.update(left, right, now, false)
}

// ForceUpdate measures and adopts the raw offset immediately.
func (c *Corrector) ForceUpdate(left, right *image.RGBA, now time.Time) {
	c.update(left, right, now, true)
}

func (c *Corrector) update(left, right *image.RGBA, now time.Time, force bool) {
	c.last = now
	raw, score, ok := measureVerticalOffset(left, right, c.cfg.SearchRangePx)
	if !ok {
		c.logger.Debug("align: measurement rejected, keeping previous offset",
			slog.Float64("score", score))
		return
	}

	if force {
		c.dy = raw
	} else {
		a := c.cfg.Smoothing
		c.dy = a*c.dy + (1-a)*raw
	}
	limit := float64(c.cfg.MaxCorrectionPx)
	c.dy = math.Max(-limit, math.Min(limit, c.dy))
	c.logger.Debug("align: offset updated",
		slog.Float64("raw", raw),
		slog.Float64("smoothed", c.dy),
		slog.Float64("score", score))
}

// Apply returns the two frames with the correction split between them:
// each eye is shifted by half the offset in opposite directions. With a
// zero correction the inputs are returned untouched.
func (c *Corrector) Apply(left, right *image.RGBA) (*image.RGBA, *image.RGBA) {
	if !c.enabled {
		return left, right
	}
	half := int(math.Round(c.dy / 2))
	if half == 0 {
		return left, right
	}
	c.shiftL = shiftVertical(c.shiftL, left, half)
	c.shiftR = shiftVertical(c.shiftR, right, -half)
	return c.shiftL, c.shiftR
}

// shiftVertical copies src into dst displaced by dy rows (positive moves
// the content down). Rows exposed by the shift are filled black. dst is
// reallocated when its size no longer matches src.
func shiftVertical(dst, src *image.RGBA, dy int) *image.RGBA {
	b := src.Bounds()
	if dst == nil || dst.Bounds() != b {
		dst = image.NewRGBA(b)
	}
	draw.Draw(dst, b, image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)
	draw.Draw(dst, b.Add(image.Pt(0, dy)), src, b.Min, draw.Src)
	return dst
}

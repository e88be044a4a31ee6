package stereo

import (
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/soocke/stereo-view-go/domain/source"
)

// Processor composes two eye frames into one side-by-side buffer sized for
// the display. The output buffer is allocated once and reused across calls;
// the caller owns the returned frame until the next Process call.
type Processor struct {
	eyeW, eyeH int
	out        *SBSFrame
}

// NewProcessor sizes the per-eye output as half the display width by the
// full display height.
func NewProcessor(displayW, displayH int) *Processor {
	eyeW, eyeH := displayW/2, displayH
	return &Processor{
		eyeW: eyeW,
		eyeH: eyeH,
		out: &SBSFrame{
			img:  image.NewRGBA(image.Rect(0, 0, 2*eyeW, eyeH)),
			eyeW: eyeW,
			eyeH: eyeH,
		},
	}
}

// Process crops both eyes per the current state and composes them into the
// side-by-side buffer. Both crop rectangles are validated before any pixel
// is written, so on error the buffer still holds the previous composition
// and the caller can keep displaying it.
func (p *Processor) Process(left, right *image.RGBA, st *State) (*SBSFrame, error) {
	if st.Zoom() <= 0 {
		return nil, ErrInvalidState
	}
	off, err := st.EffectiveOffset()
	if err != nil {
		return nil, err
	}

	lRect, err := eyeCrop(left.Bounds(), st.Zoom(), off, source.EyeLeft)
	if err != nil {
		return nil, err
	}
	rRect, err := eyeCrop(right.Bounds(), st.Zoom(), off, source.EyeRight)
	if err != nil {
		return nil, err
	}

	p.blit(left, lRect, image.Rect(0, 0, p.eyeW, p.eyeH))
	p.blit(right, rRect, image.Rect(p.eyeW, 0, 2*p.eyeW, p.eyeH))
	return p.out, nil
}

// blit copies the crop into the destination half, resizing only when the
// crop size differs from the eye output size.
func (p *Processor) blit(src *image.RGBA, crop, dst image.Rectangle) {
	sub := src.SubImage(crop)
	if crop.Dx() == p.eyeW && crop.Dy() == p.eyeH {
		draw.Draw(p.out.img, dst, sub, crop.Min, draw.Src)
		return
	}
	scaled := imaging.Resize(sub, p.eyeW, p.eyeH, imaging.Linear)
	draw.Draw(p.out.img, dst, scaled, image.Point{}, draw.Src)
}

// eyeCrop computes the centered crop for one eye. The crop is W/zoom by
// H/zoom, centered on the frame midpoint shifted by the effective offset
// (left eye towards +x, right eye towards -x), then clamped so it lies
// fully inside the frame. Clamping shifts the window rather than shrinking
// it, so a valid crop always keeps its full size.
func eyeCrop(bounds image.Rectangle, zoom, offset float64, eye source.Eye) (image.Rectangle, error) {
	w, h := bounds.Dx(), bounds.Dy()
	roiW := int(float64(w) / zoom)
	roiH := int(float64(h) / zoom)
	if roiW < 1 || roiH < 1 {
		return image.Rectangle{}, ErrGeometry
	}

	shift := int(math.Round(offset))
	cx, cy := w/2, h/2
	if eye == source.EyeLeft {
		cx += shift
	} else {
		cx -= shift
	}

	x1 := max(cx-roiW/2, 0)
	y1 := max(cy-roiH/2, 0)
	x2 := min(x1+roiW, w)
	y2 := min(y1+roiH, h)
	x1 = max(x2-roiW, 0)
	y1 = max(y2-roiH, 0)
	if x2 <= x1 || y2 <= y1 {
		return image.Rectangle{}, ErrGeometry
	}
	return image.Rect(x1, y1, x2, y2).Add(bounds.Min), nil
}

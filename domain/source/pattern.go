package source

import (
	"image"
	"image/color"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TestPattern is a synthetic frame source with real depth cues, so display
// and zoom logic can be exercised without physical cameras. Objects carry
// different horizontal disparities: zero disparity sits at screen depth,
// positive (left shifts right, right shifts left) floats in front, negative
// sits behind.
type TestPattern struct {
	name     string
	base     *image.RGBA
	interval time.Duration
	next     time.Time
}

// NewTestPattern renders the static pattern once for the given eye.
func NewTestPattern(eye Eye, width, height, fps int) *TestPattern {
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	if fps <= 0 {
		fps = 60
	}
	return &TestPattern{
		name:     "pattern-" + eye.String(),
		base:     renderPattern(eye, width, height),
		interval: time.Second / time.Duration(fps),
	}
}

func (p *TestPattern) Name() string { return p.name }

// Grab returns a copy so downstream stages may treat every frame as theirs.
// It blocks to the configured frame rate, matching how a camera read
// behaves, so the capture loop paces itself the same way on all backends.
func (p *TestPattern) Grab() (*image.RGBA, error) {
	now := time.Now()
	if wait := p.next.Sub(now); wait > 0 {
		time.Sleep(wait)
	}
	p.next = time.Now().Add(p.interval)

	out := image.NewRGBA(p.base.Rect)
	copy(out.Pix, p.base.Pix)
	return out, nil
}

func (p *TestPattern) Close() error { return nil }

func renderPattern(eye Eye, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cx, cy := w/2, h/2

	// Background checkerboard: zero disparity, screen depth.
	const block = 60
	dark := color.RGBA{40, 40, 40, 255}
	light := color.RGBA{80, 80, 80, 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := dark
			if ((x/block)+(y/block))%2 != 0 {
				c = light
			}
			img.SetRGBA(x, y, c)
		}
	}

	sign := 1
	if eye == EyeRight {
		sign = -1
	}

	gray := color.RGBA{110, 110, 110, 255}
	drawCircle(img, cx, cy, 250, 2, gray)
	drawLabel(img, cx-24, cy+270, "screen", gray)

	// Behind the screen: negative disparity.
	farCol := color.RGBA{0, 180, 255, 255}
	farX := cx + sign*-20
	drawCircle(img, farX, cy-150, 60, 3, farCol)
	drawLabel(img, farX-11, cy-146, "FAR", farCol)

	// At screen depth.
	midCol := color.RGBA{120, 255, 0, 255}
	drawCircle(img, cx, cy, 80, 3, midCol)
	drawLabel(img, cx-11, cy+4, "MID", midCol)

	// In front of the screen: positive disparity.
	nearCol := color.RGBA{255, 100, 0, 255}
	nearX := cx + sign*25
	drawCircle(img, nearX, cy+160, 50, 4, nearCol)
	drawLabel(img, nearX-16, cy+164, "NEAR", nearCol)

	// Centre crosshair, zero disparity.
	green := color.RGBA{0, 255, 0, 255}
	drawHLine(img, cx-30, cx+30, cy, 1, green)
	drawVLine(img, cx, cy-30, cy+30, 1, green)

	label := "L"
	labelCol := color.RGBA{255, 200, 100, 255}
	if eye == EyeRight {
		label = "R"
		labelCol = color.RGBA{100, 200, 255, 255}
	}
	drawLabel(img, 20, 50, label, labelCol)

	return img
}

func drawHLine(img *image.RGBA, x0, x1, y, thick int, c color.RGBA) {
	for t := 0; t < thick; t++ {
		for x := x0; x <= x1; x++ {
			setClamped(img, x, y+t, c)
		}
	}
}

func drawVLine(img *image.RGBA, x, y0, y1, thick int, c color.RGBA) {
	for t := 0; t < thick; t++ {
		for y := y0; y <= y1; y++ {
			setClamped(img, x+t, y, c)
		}
	}
}

// drawCircle draws an outline ring using the midpoint rule on squared radii.
func drawCircle(img *image.RGBA, cx, cy, r, thick int, c color.RGBA) {
	outer := (r + thick) * (r + thick)
	inner := r * r
	for dy := -r - thick; dy <= r+thick; dy++ {
		for dx := -r - thick; dx <= r+thick; dx++ {
			d := dx*dx + dy*dy
			if d >= inner && d <= outer {
				setClamped(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func setClamped(img *image.RGBA, x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= img.Rect.Dx() || y >= img.Rect.Dy() {
		return
	}
	img.SetRGBA(x, y, c)
}

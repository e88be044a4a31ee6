package align

import (
	"image"
	"math"
)

// minScore is the weakest normalized cross-correlation accepted as a real
// measurement. Below it the scene is assumed featureless (lens cap, smoke,
// saturated white) and the previous correction is kept.
const minScore = 0.5

// measureVerticalOffset estimates how many rows the right frame must move
// to line up with the left one. Both frames are collapsed to per-row mean
// luma over a center strip, then the 1-D profiles are compared with
// normalized cross-correlation at every candidate shift in
// [-searchRange, +searchRange]. Horizontal disparity cancels out in the
// row means, which is what makes the 1-D reduction valid for stereo pairs.
func measureVerticalOffset(left, right *image.RGBA, searchRange int) (offset, score float64, ok bool) {
	if left == nil || right == nil || searchRange <= 0 {
		return 0, 0, false
	}
	if left.Bounds().Size() != right.Bounds().Size() {
		return 0, 0, false
	}

	lp := rowProfile(left)
	rp := rowProfile(right)
	h := len(lp)
	// Need enough overlap left after the largest shift.
	if h <= 4*searchRange {
		return 0, 0, false
	}

	bestShift, bestScore := 0, -1.0
	for d := -searchRange; d <= searchRange; d++ {
		s := nccShift(lp, rp, d, searchRange)
		if s > bestScore {
			bestScore, bestShift = s, d
		}
	}
	if bestScore < minScore {
		return 0, bestScore, false
	}
	return float64(bestShift), bestScore, true
}

// rowProfile reduces a frame to per-row mean luma over the middle half of
// its width. The margins are skipped to keep vignetting and the surgical
// field edge out of the measurement.
func rowProfile(img *image.RGBA) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	x0 := b.Min.X + w/4
	x1 := b.Min.X + 3*w/4
	n := float64(x1 - x0)

	profile := make([]float64, h)
	for y := 0; y < h; y++ {
		var sum float64
		row := img.PixOffset(x0, b.Min.Y+y)
		for x := x0; x < x1; x++ {
			r := float64(img.Pix[row])
			g := float64(img.Pix[row+1])
			bb := float64(img.Pix[row+2])
			sum += 0.2126*r + 0.7152*g + 0.0722*bb
			row += 4
		}
		profile[y] = sum / n
	}
	return profile
}

// nccShift computes the normalized cross-correlation between the left
// profile and the right profile displaced by d rows, over the window that
// stays valid for every candidate shift so all scores are comparable.
func nccShift(lp, rp []float64, d, margin int) float64 {
	h := len(lp)
	y0, y1 := margin, h-margin
	n := float64(y1 - y0)

	var sumL, sumR, sumL2, sumR2, sumLR float64
	for y := y0; y < y1; y++ {
		l := lp[y]
		r := rp[y+d]
		sumL += l
		sumR += r
		sumL2 += l * l
		sumR2 += r * r
		sumLR += l * r
	}
	meanL := sumL / n
	meanR := sumR / n
	varL := sumL2/n - meanL*meanL
	varR := sumR2/n - meanR*meanR
	if varL <= 1e-9 || varR <= 1e-9 {
		return -1
	}
	return (sumLR/n - meanL*meanR) / math.Sqrt(varL*varR)
}

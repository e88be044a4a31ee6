package capture

import (
	"image"
	"sync"
)

// Reusable frame pool for the copy-on-publish step. Every published frame is
// a copy of the source's grab result, so the slot never exposes a buffer the
// device driver may still be writing. Copies at camera rate would otherwise
// retain many large backing slices; the pool bounds that churn.
//
// Recycling is voluntary: a consumer that knows a frame is displaced and no
// longer referenced may hand it back with RecycleFrame. If nobody recycles,
// behaviour degrades gracefully to plain allocation.

var framePool sync.Pool // stores *image.RGBA

// acquireFrame returns a reusable RGBA image sized to rect. The returned Pix
// length exactly matches rect area * 4, and Stride is width*4.
func acquireFrame(rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return &image.RGBA{Rect: rect}
	}
	needed := w * h * 4
	var img *image.RGBA
	if v := framePool.Get(); v != nil {
		img = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		img = &image.RGBA{Pix: make([]byte, needed), Stride: w * 4, Rect: rect}
	} else {
		img.Stride = w * 4
		img.Rect = rect
		img.Pix = img.Pix[:needed]
	}
	return img
}

// RecycleFrame returns the image to the pool for potential reuse. The caller
// must not access the image afterwards.
func RecycleFrame(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	framePool.Put(img)
}

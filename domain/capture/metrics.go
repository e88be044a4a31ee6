package capture

import (
	"image"
	"time"

	"github.com/soocke/stereo-view-go/domain/source"
)

// Frame carries one published camera frame and its metadata. The image is
// owned by the capture loop until published; after publication it is
// immutable (copy-on-publish) and may be read until voluntarily recycled.
type Frame struct {
	Image      *image.RGBA
	Eye        source.Eye
	CapturedAt time.Time
	Sequence   uint64
}

// Stats summarises capture loop behaviour for instrumentation.
type Stats struct {
	Captures            uint64
	Failures            uint64
	ConsecutiveFailures uint32
	AvgGrab             time.Duration
	LastCapture         time.Time
	LatestFrameAge      time.Duration
	Sequence            uint64
}

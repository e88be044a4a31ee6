package source

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/soocke/stereo-view-go/config"
)

// Eye identifies which side of the stereo rig a frame belongs to.
type Eye int

const (
	EyeLeft Eye = iota
	EyeRight
)

func (e Eye) String() string {
	switch e {
	case EyeLeft:
		return "left"
	case EyeRight:
		return "right"
	default:
		return "unknown"
	}
}

// Source produces one frame on demand. Implementations own their device
// handle; Grab may block until the device delivers a frame and is only
// called from a single goroutine. Close releases the device.
type Source interface {
	Grab() (*image.RGBA, error)
	Close() error
	Name() string
}

// Open constructs the Source selected by cfg.Backend for the given eye.
// Backends are chosen at construction time, never by runtime type checks.
func Open(backend string, eye Eye, cam config.CameraConfig, logger *slog.Logger) (Source, error) {
	switch backend {
	case "uvc":
		return openUVC(eye, cam, logger)
	case "csi":
		return openCSI(eye, cam, logger)
	case "screen":
		return openScreen(eye, cam, logger)
	case "pattern":
		return NewTestPattern(eye, cam.Width, cam.Height, cam.FPS), nil
	default:
		return nil, fmt.Errorf("source: unknown backend %q", backend)
	}
}

package source

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/vova616/screenshot"

	"github.com/soocke/stereo-view-go/config"
)

// screenSource grabs a fixed desktop region. Useful when the camera feeds
// are already visible on screen (e.g. a capture-card preview window): the
// left eye reads tile 0, the right eye tile 1, laid out side by side at
// x = Index * Width.
type screenSource struct {
	name string
	rect image.Rectangle
}

func openScreen(eye Eye, cam config.CameraConfig, logger *slog.Logger) (Source, error) {
	if cam.Width <= 0 || cam.Height <= 0 {
		return nil, fmt.Errorf("source: screen region needs explicit width/height")
	}
	x0 := cam.Index * cam.Width
	rect := image.Rect(x0, 0, x0+cam.Width, cam.Height)
	name := fmt.Sprintf("screen-%s", eye)
	if logger != nil {
		logger.Info("source: screen region mapped", "name", name, "rect", rect.String())
	}
	return &screenSource{name: name, rect: rect}, nil
}

func (s *screenSource) Name() string { return s.name }

func (s *screenSource) Grab() (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(s.rect)
	if err != nil {
		return nil, fmt.Errorf("source: screen grab: %w", err)
	}
	if img == nil {
		return nil, ErrNoFrame
	}
	return img, nil
}

func (s *screenSource) Close() error { return nil }

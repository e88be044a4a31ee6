package source

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/soocke/stereo-view-go/config"
)

// ErrNoFrame is returned when the device delivers no usable frame.
var ErrNoFrame = errors.New("source: no frame from device")

// uvcSource reads a native USB camera through OpenCV.
type uvcSource struct {
	name   string
	cam    *gocv.VideoCapture
	mat    gocv.Mat // reusable decode target
	logger *slog.Logger
}

// openUVC opens the device and negotiates resolution, FPS and MJPG before
// the first read. Resolution and FPS are set before the fourcc: some drivers
// reset the pixel format when properties change afterwards.
func openUVC(eye Eye, cam config.CameraConfig, logger *slog.Logger) (Source, error) {
	vc, err := gocv.VideoCaptureDevice(cam.Index)
	if err != nil {
		return nil, fmt.Errorf("source: cannot open camera %d: %w", cam.Index, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cam.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cam.Height))
	if cam.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cam.FPS))
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)
	// MJPG decodes in hardware on the usual capture modules, giving full
	// frame rate at 1080p where YUY2 tops out at a few fps.
	vc.Set(gocv.VideoCaptureFOURCC, vc.ToCodec("MJPG"))

	actualW := int(vc.Get(gocv.VideoCaptureFrameWidth))
	actualH := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if actualW == 0 || actualH == 0 {
		vc.Close()
		return nil, fmt.Errorf("source: camera %d rejected %dx%d", cam.Index, cam.Width, cam.Height)
	}

	name := fmt.Sprintf("uvc-%s-%d", eye, cam.Index)
	if logger != nil {
		logger.Info("source: camera opened",
			"name", name,
			"width", actualW,
			"height", actualH,
			"fps", vc.Get(gocv.VideoCaptureFPS),
		)
	}
	return &uvcSource{name: name, cam: vc, mat: gocv.NewMat(), logger: logger}, nil
}

func (s *uvcSource) Name() string { return s.name }

func (s *uvcSource) Grab() (*image.RGBA, error) {
	if ok := s.cam.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, ErrNoFrame
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("source: decode failed: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}

func (s *uvcSource) Close() error {
	s.mat.Close()
	return s.cam.Close()
}

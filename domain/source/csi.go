package source

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/soocke/stereo-view-go/config"
)

// csiSource reads an embedded CSI camera through a GStreamer appsink.
// The appsink keeps only the newest buffer (max-buffers=1, drop=true) so a
// slow Grab caller never accumulates pipeline latency.
type csiSource struct {
	name     string
	pipeline *gst.Pipeline
	sink     *app.Sink
	width    int
	height   int
	logger   *slog.Logger
}

func openCSI(eye Eye, cam config.CameraConfig, logger *slog.Logger) (Source, error) {
	gst.Init(nil)

	src := "libcamerasrc"
	if cam.Device != "" {
		src = fmt.Sprintf("libcamerasrc camera-name=%q", cam.Device)
	}
	fps := cam.FPS
	if fps <= 0 {
		fps = 30
	}
	desc := fmt.Sprintf(
		"%s ! videoconvert ! videoscale ! "+
			"video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/1 ! "+
			"appsink name=sink sync=false max-buffers=1 drop=true",
		src, cam.Width, cam.Height, fps,
	)

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("source: cannot build csi pipeline: %w", err)
	}
	el, err := pipeline.GetElementByName("sink")
	if err != nil {
		return nil, fmt.Errorf("source: appsink not found: %w", err)
	}
	sink := app.SinkFromElement(el)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("source: cannot start csi pipeline: %w", err)
	}

	name := fmt.Sprintf("csi-%s", eye)
	if logger != nil {
		logger.Info("source: csi pipeline started",
			"name", name,
			"width", cam.Width,
			"height", cam.Height,
			"fps", fps,
		)
	}
	return &csiSource{
		name:     name,
		pipeline: pipeline,
		sink:     sink,
		width:    cam.Width,
		height:   cam.Height,
		logger:   logger,
	}, nil
}

func (s *csiSource) Name() string { return s.name }

func (s *csiSource) Grab() (*image.RGBA, error) {
	sample := s.sink.PullSample()
	if sample == nil {
		return nil, ErrNoFrame
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, ErrNoFrame
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) < s.width*s.height*4 {
		buffer.Unmap()
		return nil, fmt.Errorf("source: short csi buffer: %d bytes", len(data))
	}
	out := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	copy(out.Pix, data[:len(out.Pix)])
	buffer.Unmap()
	return out, nil
}

func (s *csiSource) Close() error {
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("source: csi pipeline teardown: %w", err)
	}
	return nil
}

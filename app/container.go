package app

import (
	"fmt"
	"log/slog"

	"github.com/soocke/stereo-view-go/config"
	"github.com/soocke/stereo-view-go/domain/align"
	"github.com/soocke/stereo-view-go/domain/annotate"
	"github.com/soocke/stereo-view-go/domain/calib"
	"github.com/soocke/stereo-view-go/domain/capture"
	"github.com/soocke/stereo-view-go/domain/source"
	"github.com/soocke/stereo-view-go/domain/stereo"
	"github.com/soocke/stereo-view-go/stream"
)

// Container assembles the capture pipelines, the stereo pipeline and the
// stream server from configuration.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	LeftSrc  source.Source
	RightSrc source.Source
	Left     capture.Service
	Right    capture.Service

	State     *stereo.State
	Processor *stereo.Processor
	Sequencer *calib.Sequencer
	Corrector *align.Corrector
	Markers   *annotate.Store
	Stream    *stream.Server
}

// BuildContainer constructs all components. Side effects are limited to
// opening the two capture devices; nothing starts running yet.
func BuildContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{Config: cfg, Logger: logger}

	var err error
	c.LeftSrc, err = source.Open(cfg.Cameras.Backend, source.EyeLeft, cfg.Cameras.Left, logger)
	if err != nil {
		return nil, fmt.Errorf("open left source: %w", err)
	}
	c.RightSrc, err = source.Open(cfg.Cameras.Backend, source.EyeRight, cfg.Cameras.Right, logger)
	if err != nil {
		c.LeftSrc.Close()
		return nil, fmt.Errorf("open right source: %w", err)
	}

	c.Left = capture.NewService(c.LeftSrc, source.EyeLeft, logger)
	c.Right = capture.NewService(c.RightSrc, source.EyeRight, logger)

	c.State = stereo.NewState(cfg.Stereo)
	c.Processor = stereo.NewProcessor(cfg.Display.Width, cfg.Display.Height)
	c.Sequencer = calib.NewSequencer(cfg.Calibration, logger)
	c.Corrector = align.NewCorrector(cfg.Alignment, logger)
	c.Markers = annotate.NewStore()
	if cfg.Stream.Enabled {
		c.Stream = stream.NewServer(cfg.Stream, c.Markers, logger)
	}
	return c, nil
}

// Close releases the capture devices. Capture services must be stopped
// before calling this.
func (c *Container) Close() {
	if c.LeftSrc != nil {
		if err := c.LeftSrc.Close(); err != nil {
			c.Logger.Warn("container: closing left source", slog.String("error", err.Error()))
		}
	}
	if c.RightSrc != nil {
		if err := c.RightSrc.Close(); err != nil {
			c.Logger.Warn("container: closing right source", slog.String("error", err.Error()))
		}
	}
}

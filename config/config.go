package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the stereo viewer. Fields may be
// loaded from a YAML file; missing keys silently keep their defaults.
type Config struct {
	Debug bool `yaml:"debug"`

	Display     DisplayConfig     `yaml:"display"`
	Cameras     CamerasConfig     `yaml:"cameras"`
	Stereo      StereoConfig      `yaml:"stereo"`
	Alignment   AlignmentConfig   `yaml:"alignment"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Stream      StreamConfig      `yaml:"stream"`
}

// DisplayConfig describes the composed output surface (the HMD side).
type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// CameraConfig describes a single capture device.
type CameraConfig struct {
	Index  int    `yaml:"index"`
	Device string `yaml:"device"` // path form, used by the csi backend
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// CamerasConfig selects the capture backend and per-eye devices.
// Recognized backends: uvc, csi, screen, pattern.
type CamerasConfig struct {
	Backend string       `yaml:"backend"`
	Left    CameraConfig `yaml:"left"`
	Right   CameraConfig `yaml:"right"`
}

// ZoomConfig bounds the magnification range. Min must stay strictly positive;
// every mutation of the live zoom value clamps into [Min, Max].
type ZoomConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// ConvergenceConfig controls the horizontal per-eye crop shift.
type ConvergenceConfig struct {
	BaseOffset int  `yaml:"base_offset"`
	Step       int  `yaml:"step"`
	AutoAdjust bool `yaml:"auto_adjust"`
}

// StereoConfig groups the stereo processing parameters.
type StereoConfig struct {
	Zoom        ZoomConfig        `yaml:"zoom"`
	Convergence ConvergenceConfig `yaml:"convergence"`
}

// AlignmentConfig controls the periodic vertical auto-alignment.
type AlignmentConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalSec     float64 `yaml:"interval_sec"`
	MaxCorrectionPx int     `yaml:"max_correction_px"`
	SearchRangePx   int     `yaml:"search_range_px"`
	Smoothing       float64 `yaml:"smoothing"`
}

// CalibrationConfig drives the timed calibration sequence.
type CalibrationConfig struct {
	CrosshairSize      int     `yaml:"crosshair_size"`
	CrosshairThickness int     `yaml:"crosshair_thickness"`
	CrosshairSeconds   float64 `yaml:"crosshair_seconds"`
	BlinkSeconds       float64 `yaml:"blink_seconds"`
	FuseSeconds        float64 `yaml:"fuse_seconds"`
}

// StreamConfig configures the HTTP viewer server.
type StreamConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	MaxFPS      int    `yaml:"max_fps"`
}

// Default returns a Config populated with standard defaults
// (1080p SBS output, two 1080p UVC cameras).
func Default() *Config {
	return &Config{
		Debug: false,
		Display: DisplayConfig{
			Width:  1920,
			Height: 1080,
			FPS:    60,
		},
		Cameras: CamerasConfig{
			Backend: "uvc",
			Left:    CameraConfig{Index: 0, Width: 1920, Height: 1080, FPS: 30},
			Right:   CameraConfig{Index: 1, Width: 1920, Height: 1080, FPS: 30},
		},
		Stereo: StereoConfig{
			Zoom:        ZoomConfig{Min: 1.0, Max: 5.0, Step: 0.02},
			Convergence: ConvergenceConfig{BaseOffset: 0, Step: 1, AutoAdjust: true},
		},
		Alignment: AlignmentConfig{
			Enabled:         true,
			IntervalSec:     2.0,
			MaxCorrectionPx: 80,
			SearchRangePx:   40,
			Smoothing:       0.25,
		},
		Calibration: CalibrationConfig{
			CrosshairSize:      40,
			CrosshairThickness: 2,
			CrosshairSeconds:   2.0,
			BlinkSeconds:       3.0,
			FuseSeconds:        3.0,
		},
		Stream: StreamConfig{
			Enabled:     true,
			Addr:        ":8080",
			JPEGQuality: 80,
			MaxFPS:      30,
		},
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		c.Display.Width, c.Display.Height = 1920, 1080
	}
	if c.Display.Width%2 != 0 {
		c.Display.Width--
	}
	if c.Display.FPS <= 0 {
		c.Display.FPS = 60
	}
	if c.Cameras.Backend == "" {
		c.Cameras.Backend = "uvc"
	}
	if c.Stereo.Zoom.Min <= 0 {
		c.Stereo.Zoom.Min = 1.0
	}
	if c.Stereo.Zoom.Max < c.Stereo.Zoom.Min {
		c.Stereo.Zoom.Max = c.Stereo.Zoom.Min
	}
	if c.Stereo.Zoom.Step <= 0 {
		c.Stereo.Zoom.Step = 0.02
	}
	if c.Stereo.Convergence.Step <= 0 {
		c.Stereo.Convergence.Step = 1
	}
	if c.Alignment.IntervalSec <= 0 {
		c.Alignment.IntervalSec = 2.0
	}
	if c.Alignment.MaxCorrectionPx <= 0 {
		c.Alignment.MaxCorrectionPx = 80
	}
	if c.Alignment.SearchRangePx <= 0 {
		c.Alignment.SearchRangePx = 40
	}
	if c.Alignment.Smoothing <= 0 || c.Alignment.Smoothing > 1 {
		c.Alignment.Smoothing = 0.25
	}
	if c.Calibration.CrosshairSize <= 0 {
		c.Calibration.CrosshairSize = 40
	}
	if c.Calibration.CrosshairThickness <= 0 {
		c.Calibration.CrosshairThickness = 2
	}
	if c.Calibration.CrosshairSeconds <= 0 {
		c.Calibration.CrosshairSeconds = 2.0
	}
	if c.Calibration.BlinkSeconds <= 0 {
		c.Calibration.BlinkSeconds = 3.0
	}
	if c.Calibration.FuseSeconds <= 0 {
		c.Calibration.FuseSeconds = 3.0
	}
	if c.Stream.JPEGQuality <= 0 || c.Stream.JPEGQuality > 100 {
		c.Stream.JPEGQuality = 80
	}
	if c.Stream.Addr == "" {
		c.Stream.Addr = ":8080"
	}
	if c.Stream.MaxFPS <= 0 {
		c.Stream.MaxFPS = 30
	}
	if c.Stream.MaxFPS > c.Display.FPS {
		c.Stream.MaxFPS = c.Display.FPS
	}
	return nil
}

// Load attempts to read configuration from the given YAML file path. If the
// file does not exist it returns Default(). On YAML error it returns defaults
// with the error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in YAML format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

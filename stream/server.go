// Package stream serves the composed video over HTTP so an assistant can
// watch the procedure on a browser or tablet without touching the headset
// path. It also exposes a small JSON API used by external control surfaces
// (foot pedals, touch panels) to inject viewer actions.
package stream

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soocke/stereo-view-go/config"
	"github.com/soocke/stereo-view-go/domain/annotate"
	"github.com/soocke/stereo-view-go/domain/stereo"
)

// commandQueueSize bounds pending remote actions. A full queue drops new
// commands rather than stalling an HTTP handler.
const commandQueueSize = 16

// view selects which portion of the composed frame a stream endpoint sends.
type view int

const (
	viewFull view = iota
	viewLeft
	viewRight
)

// frameSet is one published frame plus lazily encoded JPEG variants. Each
// variant is encoded at most once no matter how many clients pull it.
type frameSet struct {
	img     *image.RGBA
	eyeW    int
	quality int
	once    [3]sync.Once
	jpg     [3][]byte
}

func (f *frameSet) encoded(v view) []byte {
	f.once[v].Do(func() {
		var src image.Image = f.img
		b := f.img.Bounds()
		switch v {
		case viewLeft:
			src = f.img.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Min.X+f.eyeW, b.Max.Y))
		case viewRight:
			src = f.img.SubImage(image.Rect(b.Min.X+f.eyeW, b.Min.Y, b.Max.X, b.Max.Y))
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: f.quality}); err != nil {
			return
		}
		f.jpg[v] = buf.Bytes()
	})
	return f.jpg[v]
}

// Server publishes frames and status to HTTP clients. Publish and
// UpdateStatus are called from the driver goroutine; everything else runs
// on HTTP handler goroutines.
type Server struct {
	cfg           config.StreamConfig
	logger        *slog.Logger
	markers       *annotate.Store
	frameInterval time.Duration
	latest        atomic.Pointer[frameSet]
	status        atomic.Pointer[Status]
	commands      chan string
	httpSrv       *http.Server
}

// NewServer wires the HTTP surface to the shared marker store. Markers are
// written through the store's own mutex, so placements from handlers and
// reads by the display loop need no extra coordination.
func NewServer(cfg config.StreamConfig, markers *annotate.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if markers == nil {
		markers = annotate.NewStore()
	}
	fps := cfg.MaxFPS
	if fps <= 0 {
		fps = 30
	}
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		markers:       markers,
		frameInterval: time.Second / time.Duration(fps),
		commands:      make(chan string, commandQueueSize),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Publish makes a frame available to stream clients. The pixels are copied
// so the driver is free to reuse its composition buffer immediately.
func (s *Server) Publish(frame *stereo.SBSFrame) {
	src := frame.Image()
	cp := image.NewRGBA(src.Bounds())
	draw.Draw(cp, cp.Bounds(), src, src.Bounds().Min, draw.Src)
	eyeW, _ := frame.EyeSize()
	s.latest.Store(&frameSet{img: cp, eyeW: eyeW, quality: s.cfg.JPEGQuality})
}

// UpdateStatus replaces the status snapshot served by the API.
func (s *Server) UpdateStatus(st Status) {
	s.status.Store(&st)
}

// Commands returns the channel of remote action names. The driver drains
// it once per display cycle.
func (s *Server) Commands() <-chan string { return s.commands }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stream: listening", slog.String("addr", s.cfg.Addr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

package capture

import (
	"image"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/soocke/stereo-view-go/domain/source"
)

const (
	statsLogInterval = 5 * time.Second

	// Grab failure backoff: exponential from retryBase, capped at retryMax.
	retryBase = 100 * time.Millisecond
	retryMax  = 2 * time.Second

	// After this many consecutive failures the loop warns once; the slot
	// keeps its last good frame so the consumer degrades to a stale but
	// valid picture instead of losing it.
	failureWarnThreshold = 5

	// Bound on how long Stop waits for the grab loop to exit before
	// abandoning it. A wedged device read must not deadlock shutdown.
	stopTimeout = 2 * time.Second
)

// Service continuously pulls frames from one camera in a dedicated goroutine
// and exposes only the most recent one. There is intentionally no queue: a
// consumer polling slower than the camera misses intermediate frames, which
// bounds both memory and staleness. Use NewService to construct an instance.
type Service interface {
	Start()
	Stop()
	LatestFrame() *Frame
	Running() bool
	Stats() Stats
}

type captureService struct {
	src    source.Source
	eye    source.Eye
	logger *slog.Logger

	running atomic.Bool
	latest  atomic.Pointer[Frame]
	done    chan struct{}

	captures    atomic.Uint64
	failures    atomic.Uint64
	consecutive atomic.Uint32
	grabNanos   atomic.Uint64
	sequence    atomic.Uint64
}

// NewService wraps src in a latest-frame capture loop for the given eye.
func NewService(src source.Source, eye source.Eye, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &captureService{src: src, eye: eye, logger: logger}
}

// LatestFrame is a non-blocking read of the slot. It returns nil only before
// the first successful capture and is safe against concurrent loop writes.
func (s *captureService) LatestFrame() *Frame {
	return s.latest.Load()
}

func (s *captureService) Running() bool { return s.running.Load() }

func (s *captureService) Stats() Stats {
	captures := s.captures.Load()
	total := s.grabNanos.Load()
	var avg time.Duration
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
	}
	st := Stats{
		Captures:            captures,
		Failures:            s.failures.Load(),
		ConsecutiveFailures: s.consecutive.Load(),
		AvgGrab:             avg,
	}
	if f := s.latest.Load(); f != nil {
		st.LastCapture = f.CapturedAt
		st.LatestFrameAge = time.Since(f.CapturedAt)
		st.Sequence = f.Sequence
	}
	return st
}

// Start launches the grab loop. Idempotent if already started. After a
// timed-out Stop the abandoned loop may still hold the device; restarting
// then would give the slot two writers, so Start refuses until the old
// loop has actually exited.
func (s *captureService) Start() {
	if s.running.Load() {
		return
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			s.logger.Warn("capture: previous grab loop still running, refusing restart",
				"source", s.src.Name(),
			)
			return
		}
	}
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.done = make(chan struct{})
	go s.loop()
}

// Stop signals the loop and waits up to stopTimeout for it to exit. After
// Stop returns no further slot writes occur (the abandoned-loop case re-checks
// the running flag before every publish).
func (s *captureService) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	select {
	case <-s.done:
	case <-time.After(stopTimeout):
		if s.logger != nil {
			s.logger.Warn("capture: grab loop did not exit in time, abandoning",
				"source", s.src.Name(),
				"timeout", stopTimeout,
			)
		}
	}
}

func (s *captureService) loop() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.running.Store(false)
			if s.logger != nil {
				s.logger.Error("capture: grab loop panic",
					"source", s.src.Name(),
					"error", r,
					"stack", string(debug.Stack()),
				)
			}
		}
	}()

	logTicker := time.NewTicker(statsLogInterval)
	defer logTicker.Stop()

	for s.running.Load() {
		start := time.Now()
		img, err := s.src.Grab()
		if err != nil || img == nil {
			n := s.consecutive.Add(1)
			s.failures.Add(1)
			if n == failureWarnThreshold && s.logger != nil {
				s.logger.Warn("capture: repeated grab failures, serving last good frame",
					"source", s.src.Name(),
					"consecutive", n,
					"error", err,
				)
			}
			s.sleepRunning(backoffDelay(n))
			continue
		}
		s.consecutive.Store(0)

		elapsed := time.Since(start)
		s.grabNanos.Add(uint64(elapsed.Nanoseconds()))
		s.captures.Add(1)
		seq := s.sequence.Add(1)

		if !s.running.Load() {
			return
		}
		s.latest.Store(&Frame{
			Image:      copyOnPublish(img),
			Eye:        s.eye,
			CapturedAt: time.Now(),
			Sequence:   seq,
		})

		select {
		case <-logTicker.C:
			s.logStats()
		default:
		}
	}
}

// copyOnPublish snapshots the grab result into a pooled buffer so the slot
// never holds memory the backend may reuse for the next decode.
func copyOnPublish(img *image.RGBA) *image.RGBA {
	out := acquireFrame(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	if img.Stride == out.Stride {
		copy(out.Pix, img.Pix)
		return out
	}
	w := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], img.Pix[y*img.Stride:y*img.Stride+w])
	}
	return out
}

// backoffDelay returns the exponential delay for the n-th consecutive
// failure: retryBase * 2^(n-1), capped at retryMax.
func backoffDelay(n uint32) time.Duration {
	if n == 0 {
		return retryBase
	}
	if n > 16 {
		return retryMax
	}
	d := retryBase * time.Duration(1<<(n-1))
	if d > retryMax {
		d = retryMax
	}
	return d
}

// sleepRunning sleeps for d in short slices so Stop stays responsive.
func (s *captureService) sleepRunning(d time.Duration) {
	const slice = 25 * time.Millisecond
	deadline := time.Now().Add(d)
	for s.running.Load() && time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		if remaining > slice {
			remaining = slice
		}
		time.Sleep(remaining)
	}
}

func (s *captureService) logStats() {
	if s.logger == nil {
		return
	}
	st := s.Stats()
	s.logger.Debug("capture: stats",
		"source", s.src.Name(),
		"captures", st.Captures,
		"failures", st.Failures,
		"avg_grab", st.AvgGrab,
		"age", st.LatestFrameAge,
	)
}

package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/soocke/stereo-view-go/domain/calib"
	"github.com/soocke/stereo-view-go/domain/capture"
	"github.com/soocke/stereo-view-go/domain/source"
	"github.com/soocke/stereo-view-go/domain/stereo"
	"github.com/soocke/stereo-view-go/stream"
)

// App drives the display pipeline. Everything frame-related runs on the
// single Run goroutine; the capture services and the stream server have
// their own goroutines and communicate only through atomic slots and the
// command channel.
type App struct {
	c      *Container
	logger *slog.Logger

	prev      *stereo.SBSFrame
	lastLeft  *capture.Frame
	lastRight *capture.Frame
}

func New(c *Container) *App {
	return &App{c: c, logger: c.Logger}
}

// Run starts the capture services and the stream server, then loops at the
// display rate until ctx is cancelled or a quit action arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.c.Left.Start()
	a.c.Right.Start()
	defer a.c.Left.Stop()
	defer a.c.Right.Stop()

	streamErr := make(chan error, 1)
	if a.c.Stream != nil {
		go func() { streamErr <- a.c.Stream.Run(ctx) }()
	}

	fps := a.c.Config.Display.FPS
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	a.logger.Info("app: pipeline running",
		slog.Int("fps", fps),
		slog.String("backend", a.c.Config.Cameras.Backend))

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return a.drainStream(streamErr)
		case err := <-streamErr:
			if err != nil {
				return err
			}
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if !a.step(now, dt) {
				cancel()
				return a.drainStream(streamErr)
			}
		}
	}
}

func (a *App) drainStream(streamErr chan error) error {
	if a.c.Stream == nil {
		return nil
	}
	if err := <-streamErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// step runs one display cycle. It returns false when a quit action was
// processed.
func (a *App) step(now time.Time, dt time.Duration) bool {
	if !a.drainCommands() {
		return false
	}

	lf := a.c.Left.LatestFrame()
	rf := a.c.Right.LatestFrame()
	if lf == nil || rf == nil {
		// Cameras still warming up; nothing to compose yet.
		return true
	}
	a.recycleDisplaced(lf, rf)

	left, right := lf.Image, rf.Image
	if a.c.Corrector.NeedsUpdate(now) {
		a.c.Corrector.Update(left, right, now)
	}
	left, right = a.c.Corrector.Apply(left, right)

	frame, err := a.c.Processor.Process(left, right, a.c.State)
	if err != nil {
		// Keep showing the previous composition and pull the state back
		// into a producible range.
		a.logger.Warn("app: frame processing failed, reusing previous frame",
			slog.String("error", err.Error()),
			slog.Float64("zoom", a.c.State.Zoom()))
		a.c.State.Clamp()
		frame = a.prev
		if frame == nil {
			return true
		}
	} else {
		a.prev = frame
	}

	a.c.Sequencer.Advance(dt)
	a.c.Sequencer.Apply(frame)
	a.c.Markers.Render(frame.Left(), source.EyeLeft)
	a.c.Markers.Render(frame.Right(), source.EyeRight)

	if a.c.Stream != nil {
		a.c.Stream.Publish(frame)
		a.c.Stream.UpdateStatus(a.buildStatus(now))
	}
	return true
}

// recycleDisplaced returns the previous cycle's capture buffers to the frame
// pool once the slots have moved past them. The driver is the only consumer,
// so a displaced frame has no readers left.
func (a *App) recycleDisplaced(lf, rf *capture.Frame) {
	if a.lastLeft != nil && a.lastLeft != lf {
		capture.RecycleFrame(a.lastLeft.Image)
	}
	if a.lastRight != nil && a.lastRight != rf {
		capture.RecycleFrame(a.lastRight.Image)
	}
	a.lastLeft, a.lastRight = lf, rf
}

// drainCommands empties the remote command queue and applies each action.
// It returns false when a quit action was seen.
func (a *App) drainCommands() bool {
	if a.c.Stream == nil {
		return true
	}
	for {
		select {
		case name := <-a.c.Stream.Commands():
			action, err := ParseAction(name)
			if err != nil {
				a.logger.Warn("app: dropping unknown action", slog.String("action", name))
				continue
			}
			if !a.Apply(action) {
				return false
			}
		default:
			return true
		}
	}
}

// Apply executes one viewer action against the pipeline state. It returns
// false for ActionQuit.
func (a *App) Apply(action Action) bool {
	switch action {
	case ActionZoomIn:
		a.c.State.ZoomIn()
	case ActionZoomOut:
		a.c.State.ZoomOut()
	case ActionConvergeIn:
		a.c.State.ConvergeIn()
	case ActionConvergeOut:
		a.c.State.ConvergeOut()
	case ActionResetView:
		a.c.State.Reset()
		a.c.Corrector.Reset()
	case ActionCalibrate:
		a.c.Sequencer.Start()
	case ActionCancelCalibration:
		a.c.Sequencer.Cancel()
	case ActionToggleAlignment:
		a.c.Corrector.SetEnabled(!a.c.Corrector.Enabled())
		a.logger.Info("app: alignment toggled", slog.Bool("enabled", a.c.Corrector.Enabled()))
	case ActionAlignNow:
		lf, rf := a.c.Left.LatestFrame(), a.c.Right.LatestFrame()
		if lf != nil && rf != nil {
			a.c.Corrector.ForceUpdate(lf.Image, rf.Image, time.Now())
		}
	case ActionMarkerUndo:
		a.c.Markers.Undo()
	case ActionMarkerClear:
		a.c.Markers.Clear()
	case ActionMarkerDepthIn:
		a.c.Markers.AdjustDisparity(2)
	case ActionMarkerDepthOut:
		a.c.Markers.AdjustDisparity(-2)
	case ActionQuit:
		a.logger.Info("app: quit requested")
		return false
	}
	return true
}

func (a *App) buildStatus(now time.Time) stream.Status {
	eff, _ := a.c.State.EffectiveOffset()
	phase := calib.PhaseIdle
	if a.c.Sequencer.Active() {
		phase = a.c.Sequencer.Phase()
	}
	return stream.Status{
		Zoom:             a.c.State.Zoom(),
		ConvergenceBase:  a.c.State.Offset(),
		EffectiveOffset:  eff,
		AutoAdjust:       a.c.State.AutoAdjust(),
		AlignmentOffset:  a.c.Corrector.Offset(),
		AlignmentEnabled: a.c.Corrector.Enabled(),
		CalibrationPhase: phase.String(),
		Markers:          a.c.Markers.Count(),
		Left:             eyeStatus(a.c.Left),
		Right:            eyeStatus(a.c.Right),
		UpdatedAt:        now,
	}
}

func eyeStatus(svc capture.Service) stream.EyeStatus {
	st := svc.Stats()
	return stream.EyeStatus{
		Running:     svc.Running(),
		Captures:    st.Captures,
		Failures:    st.Failures,
		Consecutive: st.ConsecutiveFailures,
		FrameAgeMs:  float64(st.LatestFrameAge.Microseconds()) / 1000,
		LastCapture: st.LastCapture,
		AvgGrabMs:   float64(st.AvgGrab.Microseconds()) / 1000,
	}
}

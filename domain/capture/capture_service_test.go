package capture

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/stereo-view-go/domain/source"
)

// fakeSource serves frames from a script: a nil error grabs a fresh frame,
// anything else fails. failAfter < 0 never fails.
type fakeSource struct {
	grabs     atomic.Int64
	failAfter int64
	delay     time.Duration
}

var errFake = errors.New("device gone")

func (f *fakeSource) Grab() (*image.RGBA, error) {
	n := f.grabs.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failAfter >= 0 && n > f.failAfter {
		return nil, errFake
	}
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	img.Pix[0] = byte(n)
	return img, nil
}

func (f *fakeSource) Close() error { return nil }
func (f *fakeSource) Name() string { return "fake" }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestServicePublishesLatestFrame(t *testing.T) {
	src := &fakeSource{failAfter: -1, delay: time.Millisecond}
	svc := NewService(src, source.EyeLeft, nil)
	svc.Start()
	defer svc.Stop()

	waitFor(t, 2*time.Second, func() bool {
		f := svc.LatestFrame()
		return f != nil && f.Sequence >= 3
	})

	f := svc.LatestFrame()
	if f.Eye != source.EyeLeft {
		t.Fatalf("frame eye = %v", f.Eye)
	}
	if f.Image.Bounds().Dx() != 32 {
		t.Fatalf("frame size = %v", f.Image.Bounds())
	}
	if !svc.Running() {
		t.Fatalf("service not running")
	}
}

func TestServiceKeepsLastGoodFrameThroughFailures(t *testing.T) {
	src := &fakeSource{failAfter: 3}
	svc := NewService(src, source.EyeRight, nil)
	svc.Start()
	defer svc.Stop()

	waitFor(t, 2*time.Second, func() bool {
		f := svc.LatestFrame()
		return f != nil && f.Sequence == 3
	})
	good := svc.LatestFrame()

	waitFor(t, 2*time.Second, func() bool {
		return svc.Stats().ConsecutiveFailures >= 2
	})
	if got := svc.LatestFrame(); got != good {
		t.Fatalf("slot changed during failures: %p != %p", got, good)
	}
	if st := svc.Stats(); st.Failures == 0 || st.Captures != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestServiceStopIsBounded(t *testing.T) {
	src := &fakeSource{failAfter: -1, delay: time.Millisecond}
	svc := NewService(src, source.EyeLeft, nil)
	svc.Start()

	waitFor(t, 2*time.Second, func() bool { return svc.LatestFrame() != nil })

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout + time.Second):
		t.Fatalf("Stop did not return within its bound")
	}
	if svc.Running() {
		t.Fatalf("service still running after Stop")
	}

	// The last good frame must survive Stop.
	if svc.LatestFrame() == nil {
		t.Fatalf("slot cleared by Stop")
	}
}

func TestServiceStartStopIdempotent(t *testing.T) {
	src := &fakeSource{failAfter: -1}
	svc := NewService(src, source.EyeLeft, nil)
	svc.Start()
	svc.Start() // second start is a no-op
	svc.Stop()
	svc.Stop() // second stop is a no-op
	if svc.Running() {
		t.Fatalf("service running after stop")
	}
}

func TestStartRefusedWhileOldLoopAlive(t *testing.T) {
	svc := NewService(&fakeSource{failAfter: -1}, source.EyeLeft, nil).(*captureService)

	// State after a timed-out Stop: running already cleared, but the
	// abandoned loop has not closed done yet.
	svc.done = make(chan struct{})
	svc.Start()
	if svc.Running() {
		t.Fatalf("restart accepted while previous loop still alive")
	}

	// Once the old loop exits, restart must work again.
	close(svc.done)
	svc.Start()
	if !svc.Running() {
		t.Fatalf("restart refused after previous loop exited")
	}
	svc.Stop()
}

func TestBackoffDelay(t *testing.T) {
	cases := []struct {
		n    uint32
		want time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, 1600 * time.Millisecond},
		{6, retryMax},
		{40, retryMax},
	}
	for _, c := range cases {
		if got := backoffDelay(c.n); got != c.want {
			t.Fatalf("backoffDelay(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestCopyOnPublishDetachesPixels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	src.Pix[0] = 42
	cp := copyOnPublish(src)
	src.Pix[0] = 7
	if cp.Pix[0] != 42 {
		t.Fatalf("published frame shares backend pixels")
	}
	RecycleFrame(cp)
}

package source

import (
	"testing"

	"github.com/soocke/stereo-view-go/config"
)

func testCamera() config.CameraConfig {
	return config.CameraConfig{Index: 0, Width: 320, Height: 240, FPS: 60}
}

func TestTestPatternFrames(t *testing.T) {
	p := NewTestPattern(EyeLeft, 320, 240, 240)
	defer p.Close()

	a, err := p.Grab()
	if err != nil {
		t.Fatalf("grab: %v", err)
	}
	if a.Bounds().Dx() != 320 || a.Bounds().Dy() != 240 {
		t.Fatalf("frame size = %v", a.Bounds())
	}

	b, err := p.Grab()
	if err != nil {
		t.Fatalf("grab: %v", err)
	}
	if a == b {
		t.Fatalf("grab must return a fresh copy each call")
	}
	a.Pix[0] = ^a.Pix[0]
	if a.Pix[0] == b.Pix[0] {
		t.Fatalf("frames share pixel storage")
	}
}

func TestTestPatternEyesDiffer(t *testing.T) {
	// Disparity objects shift in opposite directions, so the two eye
	// patterns must not be pixel-identical.
	l := NewTestPattern(EyeLeft, 320, 240, 60)
	r := NewTestPattern(EyeRight, 320, 240, 60)
	lf, _ := l.Grab()
	rf, _ := r.Grab()

	same := true
	for i := range lf.Pix {
		if lf.Pix[i] != rf.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("left and right patterns are identical")
	}
}

func TestTestPatternDefaults(t *testing.T) {
	p := NewTestPattern(EyeRight, 0, 0, 0)
	f, err := p.Grab()
	if err != nil {
		t.Fatalf("grab: %v", err)
	}
	if f.Bounds().Dx() != 1920 || f.Bounds().Dy() != 1080 {
		t.Fatalf("default frame size = %v", f.Bounds())
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("telepathy", EyeLeft, testCamera(), nil); err == nil {
		t.Fatalf("unknown backend accepted")
	}
}

func TestOpenPattern(t *testing.T) {
	src, err := Open("pattern", EyeLeft, testCamera(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()
	if src.Name() != "pattern-left" {
		t.Fatalf("name = %q", src.Name())
	}
}

func TestEyeString(t *testing.T) {
	if EyeLeft.String() != "left" || EyeRight.String() != "right" {
		t.Fatalf("eye names = %q/%q", EyeLeft.String(), EyeRight.String())
	}
}

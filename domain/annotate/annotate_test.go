package annotate

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/soocke/stereo-view-go/domain/source"
)

var yellow = color.RGBA{R: 255, G: 255, A: 255}

func mustAdd(t *testing.T, s *Store, m Marker) {
	t.Helper()
	if err := s.Add(m); err != nil {
		t.Fatalf("add %+v: %v", m, err)
	}
}

func TestStoreAddUndoClear(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Marker{X: 0.1, Y: 0.1, Color: yellow})
	mustAdd(t, s, Marker{X: 0.2, Y: 0.2, Color: yellow})
	if s.Count() != 2 {
		t.Fatalf("count = %d, want 2", s.Count())
	}

	s.Undo()
	if got := s.List(); len(got) != 1 || got[0].X != 0.1 {
		t.Fatalf("after undo: %v", got)
	}
	s.Undo()
	s.Undo() // undo on empty store is a no-op
	if s.Count() != 0 {
		t.Fatalf("count after draining = %d", s.Count())
	}

	mustAdd(t, s, Marker{X: 0.5, Y: 0.5, Color: yellow})
	s.Clear()
	if s.Count() != 0 {
		t.Fatalf("count after clear = %d", s.Count())
	}
}

func TestAddRejectsOutOfRange(t *testing.T) {
	s := NewStore()
	for _, m := range []Marker{
		{X: -0.1, Y: 0.5},
		{X: 0.5, Y: 1.2},
		{X: 2, Y: 2},
	} {
		if err := s.Add(m); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("Add(%+v) err = %v, want ErrOutOfRange", m, err)
		}
	}
	if s.Count() != 0 {
		t.Fatalf("rejected markers were stored")
	}
}

func TestRenderAppliesDisparityPerEye(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Marker{X: 0.5, Y: 0.5, Color: yellow})
	s.AdjustDisparity(20)

	left := image.NewRGBA(image.Rect(0, 0, 201, 201))
	right := image.NewRGBA(image.Rect(0, 0, 201, 201))
	s.Render(left, source.EyeLeft)
	s.Render(right, source.EyeRight)

	if got := left.RGBAAt(110, 100); got != yellow {
		t.Fatalf("left marker center = %v, want %v at x=110", got, yellow)
	}
	if got := right.RGBAAt(90, 100); got != yellow {
		t.Fatalf("right marker center = %v, want %v at x=90", got, yellow)
	}
	if got := left.RGBAAt(90, 100); got == yellow {
		t.Fatalf("left marker should not render at the right eye position")
	}
}

func TestRenderClipsAtEdges(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Marker{X: 0, Y: 0, Color: yellow})
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	s.Render(img, source.EyeLeft) // must not panic on out-of-bounds pixels
	if got := img.RGBAAt(0, 0); got != yellow {
		t.Fatalf("corner marker pixel = %v, want %v", got, yellow)
	}
}

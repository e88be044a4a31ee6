// Package annotate keeps operator-placed markers and renders them into both
// eye views. Markers are drawn with a horizontal disparity so they appear at
// a chosen depth in the fused image rather than floating on the screen plane.
package annotate

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/soocke/stereo-view-go/domain/source"
)

// Marker is one placed annotation. Coordinates are normalized to [0, 1]
// within the eye view, so placements from any control surface (stream page,
// touch panel) stay valid across display resolutions.
type Marker struct {
	X, Y  float64
	Color color.RGBA
}

const markerRadius = 6

// Store holds the active markers. It is mutex guarded because markers are
// added from the command path while the display loop reads them.
type Store struct {
	mu        sync.Mutex
	markers   []Marker
	disparity int
}

func NewStore() *Store { return &Store{} }

// ErrOutOfRange reports marker coordinates outside the unit square.
var ErrOutOfRange = errors.New("annotate: marker coordinates must be in [0, 1]")

// Add places a marker. It may be called from any goroutine; the store is
// the synchronization point between control surfaces and the display loop.
func (s *Store) Add(m Marker) error {
	if m.X < 0 || m.X > 1 || m.Y < 0 || m.Y > 1 {
		return ErrOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append(s.markers, m)
	return nil
}

// Undo removes the most recent marker, if any.
func (s *Store) Undo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.markers); n > 0 {
		s.markers = s.markers[:n-1]
	}
}

// Clear removes all markers.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = s.markers[:0]
}

// Count returns the number of active markers.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// List returns a snapshot of the current markers.
func (s *Store) List() []Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Disparity returns the current depth offset in pixels.
func (s *Store) Disparity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disparity
}

// AdjustDisparity moves the marker depth plane. Positive disparity pulls
// markers in front of the screen plane, negative pushes them behind.
func (s *Store) AdjustDisparity(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disparity += delta
}

// Render draws all markers into one eye view, mapping normalized
// coordinates to the view's pixel space. The left eye shifts markers by
// +disparity/2 and the right by -disparity/2, mirroring how the stereo
// crops encode depth.
func (s *Store) Render(img *image.RGBA, eye source.Eye) {
	s.mu.Lock()
	markers := s.markers
	disparity := s.disparity
	s.mu.Unlock()

	shift := disparity / 2
	if eye == source.EyeRight {
		shift = -shift
	}
	b := img.Bounds()
	for _, m := range markers {
		x := int(m.X*float64(b.Dx()-1) + 0.5)
		y := int(m.Y*float64(b.Dy()-1) + 0.5)
		drawMarker(img, x+shift, y, m.Color)
	}
}

// drawMarker paints a filled circle with a single-pixel dark outline so it
// stays visible over bright tissue.
func drawMarker(img *image.RGBA, cx, cy int, c color.RGBA) {
	b := img.Bounds()
	outline := color.RGBA{A: 255}
	for dy := -markerRadius - 1; dy <= markerRadius+1; dy++ {
		for dx := -markerRadius - 1; dx <= markerRadius+1; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > (markerRadius+1)*(markerRadius+1) {
				continue
			}
			p := image.Pt(b.Min.X+cx+dx, b.Min.Y+cy+dy)
			if !p.In(b) {
				continue
			}
			if d2 > markerRadius*markerRadius {
				img.SetRGBA(p.X, p.Y, outline)
			} else {
				img.SetRGBA(p.X, p.Y, c)
			}
		}
	}
}

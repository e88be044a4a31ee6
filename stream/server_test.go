package stream

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/soocke/stereo-view-go/config"
	"github.com/soocke/stereo-view-go/domain/annotate"
	"github.com/soocke/stereo-view-go/domain/stereo"
)

func testServer() *Server {
	return NewServer(config.StreamConfig{
		Enabled:     true,
		Addr:        "127.0.0.1:0",
		JPEGQuality: 80,
		MaxFPS:      30,
	}, annotate.NewStore(), nil)
}

func composedFrame(t *testing.T) *stereo.SBSFrame {
	t.Helper()
	st := stereo.NewState(config.StereoConfig{
		Zoom: config.ZoomConfig{Min: 1.0, Max: 5.0, Step: 0.02},
	})
	p := stereo.NewProcessor(640, 360)
	eye := image.NewRGBA(image.Rect(0, 0, 640, 360))
	frame, err := p.Process(eye, eye, st)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return frame
}

func TestFrameIntervalFollowsConfig(t *testing.T) {
	s := NewServer(config.StreamConfig{MaxFPS: 20}, annotate.NewStore(), nil)
	if s.frameInterval != 50*time.Millisecond {
		t.Fatalf("frame interval = %v, want 50ms", s.frameInterval)
	}
	s = NewServer(config.StreamConfig{}, annotate.NewStore(), nil)
	if s.frameInterval != time.Second/30 {
		t.Fatalf("default frame interval = %v", s.frameInterval)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := testServer()
	mux := s.routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before first update: code = %d", rec.Code)
	}

	s.UpdateStatus(Status{Zoom: 2.5, CalibrationPhase: "idle", UpdatedAt: time.Now()})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var got Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.Zoom != 2.5 || got.CalibrationPhase != "idle" {
		t.Fatalf("status = %+v", got)
	}
}

func TestActionEndpointQueuesCommands(t *testing.T) {
	s := testServer()
	mux := s.routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/action/zoom_in", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("action code = %d", rec.Code)
	}
	select {
	case got := <-s.Commands():
		if got != "zoom_in" {
			t.Fatalf("queued command = %q", got)
		}
	default:
		t.Fatalf("command not queued")
	}
}

func TestActionEndpointDropsWhenFull(t *testing.T) {
	s := testServer()
	mux := s.routes()

	for i := 0; i < commandQueueSize; i++ {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/action/zoom_in", nil))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("fill %d: code = %d", i, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/action/zoom_in", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("overflow code = %d, want 503", rec.Code)
	}
}

func TestActionEndpointRequiresPost(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/action/zoom_in", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET action code = %d, want 405", rec.Code)
	}
}

func TestAnnotationAddAndList(t *testing.T) {
	s := testServer()
	mux := s.routes()

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"x": 0.25, "y": 0.75, "color": "red"}`)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/annotations/add", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add code = %d, body %q", rec.Code, rec.Body.String())
	}
	if s.markers.Count() != 1 {
		t.Fatalf("marker not stored: count = %d", s.markers.Count())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/annotations", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list code = %d", rec.Code)
	}
	var got []annotationWire
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(got) != 1 || got[0].X != 0.25 || got[0].Y != 0.75 || got[0].Color != "red" {
		t.Fatalf("listed markers = %+v", got)
	}
}

func TestAnnotationAddRejectsBadRequests(t *testing.T) {
	s := testServer()
	mux := s.routes()

	for _, body := range []string{
		`{"x": 1.5, "y": 0.5}`, // outside the unit square
		`{"x": oops`,           // malformed JSON
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/annotations/add", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: code = %d, want 400", body, rec.Code)
		}
	}
	if s.markers.Count() != 0 {
		t.Fatalf("rejected annotation was stored")
	}
}

func TestAnnotationAddDefaultsColor(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"x": 0.5, "y": 0.5, "color": "plaid"}`)
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/annotations/add", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add code = %d", rec.Code)
	}
	if got := s.markers.List()[0].Color; got != markerPalette["yellow"] {
		t.Fatalf("unknown color name mapped to %v, want yellow", got)
	}
}

func TestPublishEncodesAllViews(t *testing.T) {
	s := testServer()
	s.Publish(composedFrame(t))

	fs := s.latest.Load()
	if fs == nil {
		t.Fatalf("no frame published")
	}
	wantW := map[view]int{viewFull: 640, viewLeft: 320, viewRight: 320}
	for v, w := range wantW {
		data := fs.encoded(v)
		if data == nil {
			t.Fatalf("view %d: no encoding", v)
		}
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("view %d: decode: %v", v, err)
		}
		if got := img.Bounds().Dx(); got != w {
			t.Fatalf("view %d: width = %d, want %d", v, got, w)
		}
	}
}

func TestEncodedIsStablePerFrame(t *testing.T) {
	s := testServer()
	s.Publish(composedFrame(t))
	fs := s.latest.Load()
	a := fs.encoded(viewFull)
	b := fs.encoded(viewFull)
	if &a[0] != &b[0] {
		t.Fatalf("repeated encode of the same frame should reuse the buffer")
	}
}

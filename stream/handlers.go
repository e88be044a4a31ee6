package stream

import (
	"encoding/json"
	"fmt"
	"image/color"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/stereo-view-go/assets"
	"github.com/soocke/stereo-view-go/domain/annotate"
)

const mjpegBoundary = "frame"

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /video_feed", s.handleMJPEG(viewFull))
	mux.HandleFunc("GET /video_left", s.handleMJPEG(viewLeft))
	mux.HandleFunc("GET /video_right", s.handleMJPEG(viewRight))
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/action/{name}", s.handleAction)
	mux.HandleFunc("GET /api/annotations", s.handleAnnotationList)
	mux.HandleFunc("POST /api/annotations/add", s.handleAnnotationAdd)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(assets.IndexHTML)
}

// handleMJPEG streams the selected view as multipart JPEG. Each client gets
// its own goroutine courtesy of net/http; the loop only reads the shared
// atomic frame pointer, so clients never contend with the driver.
func (s *Server) handleMJPEG(v view) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		clientID := uuid.NewString()
		s.logger.Info("stream: client connected",
			slog.String("client", clientID),
			slog.String("remote", r.RemoteAddr),
			slog.String("path", r.URL.Path))
		defer s.logger.Info("stream: client disconnected", slog.String("client", clientID))

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
		w.Header().Set("Cache-Control", "no-store")

		ticker := time.NewTicker(s.frameInterval)
		defer ticker.Stop()

		var lastSent *frameSet
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
			fs := s.latest.Load()
			if fs == nil || fs == lastSent {
				continue
			}
			data := fs.encoded(v)
			if data == nil {
				continue
			}
			if err := writePart(w, data); err != nil {
				return
			}
			flusher.Flush()
			lastSent = fs
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.status.Load()
	if st == nil {
		http.Error(w, "status not available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.logger.Warn("stream: status encode failed", slog.String("error", err.Error()))
	}
}

// markerPalette maps the color names accepted on the wire. Unknown or empty
// names fall back to yellow, the usual overlay color on tissue.
var markerPalette = map[string]color.RGBA{
	"yellow": {R: 255, G: 255, A: 255},
	"red":    {R: 255, A: 255},
	"green":  {G: 255, A: 255},
	"cyan":   {G: 255, B: 255, A: 255},
}

// annotationWire is the JSON shape of one marker at the API boundary.
// Coordinates are normalized to [0, 1] within the eye view.
type annotationWire struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color,omitempty"`
}

// handleAnnotationAdd places a marker from a control surface. The store is
// the synchronization point with the display loop, so the write happens
// directly here rather than round-tripping through the command queue.
func (s *Server) handleAnnotationAdd(w http.ResponseWriter, r *http.Request) {
	var req annotationWire
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed annotation body", http.StatusBadRequest)
		return
	}
	c, ok := markerPalette[req.Color]
	if !ok {
		c = markerPalette["yellow"]
	}
	if err := s.markers.Add(annotate.Marker{X: req.X, Y: req.Y, Color: c}); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Info("stream: annotation added",
		slog.Float64("x", req.X),
		slog.Float64("y", req.Y),
		slog.Int("count", s.markers.Count()))
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleAnnotationList(w http.ResponseWriter, r *http.Request) {
	markers := s.markers.List()
	out := make([]annotationWire, len(markers))
	for i, m := range markers {
		out[i] = annotationWire{X: m.X, Y: m.Y, Color: colorName(m.Color)}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Warn("stream: annotation list encode failed", slog.String("error", err.Error()))
	}
}

func colorName(c color.RGBA) string {
	for name, v := range markerPalette {
		if v == c {
			return name
		}
	}
	return ""
}

// handleAction enqueues a remote action by name. Validation of the name
// happens in the driver; unknown actions are logged and dropped there so
// the accepted vocabulary lives in one place.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "missing action name", http.StatusBadRequest)
		return
	}
	select {
	case s.commands <- name:
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, "queued %s\n", strconv.Quote(name))
	default:
		s.logger.Warn("stream: command queue full, dropping action", slog.String("action", name))
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
	}
}

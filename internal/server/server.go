// Package server exposes a preview session over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ivlev/frameforge/internal/captions"
	"github.com/ivlev/frameforge/internal/compositor"
	"github.com/ivlev/frameforge/internal/driver"
	"github.com/ivlev/frameforge/internal/layers"
	"github.com/ivlev/frameforge/internal/logger"
	"github.com/ivlev/frameforge/internal/metrics"
	"github.com/ivlev/frameforge/internal/project"
)

// Inspector reports what the captions layer showed in the last frame and
// the renderer counters.
type Inspector interface {
	CaptionState() layers.CaptionState
	RenderStats() compositor.RenderStats
}

type Handler struct {
	preview *driver.Preview
	proj    *project.Configuration
	inspect Inspector
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler wires the preview API. inspect and m may be nil.
func NewHandler(preview *driver.Preview, proj *project.Configuration, inspect Inspector, log *slog.Logger, m *metrics.Metrics) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{preview: preview, proj: proj, inspect: inspect, log: log, metrics: m}
}

// Router returns the chi router with logging and metrics middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(h.log))
	r.Use(metrics.RequestMiddleware(h.metrics))

	r.Post("/seek", h.Seek)
	r.Post("/play", h.Play)
	r.Post("/stop", h.Stop)
	r.Get("/frame.png", h.Frame)
	r.Get("/state", h.State)
	r.Get("/captions.{format}", h.Captions)
	r.Get("/metrics", h.metrics.Handler().ServeHTTP)
	return r
}

type seekResponse struct {
	Request  uint64  `json:"request"`
	Position float64 `json:"position"`
}

// Seek handles POST /seek?t=<seconds> or POST /seek?frame=<n>.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var seq uint64
	switch {
	case q.Has("t"):
		t, err := strconv.ParseFloat(q.Get("t"), 64)
		if err != nil || t < 0 {
			http.Error(w, "invalid t", http.StatusBadRequest)
			return
		}
		seq = h.preview.Seek(t)
	case q.Has("frame"):
		n, err := strconv.Atoi(q.Get("frame"))
		if err != nil || n < 0 {
			http.Error(w, "invalid frame", http.StatusBadRequest)
			return
		}
		seq = h.preview.SeekFrame(n)
	default:
		http.Error(w, "t or frame required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, seekResponse{Request: seq, Position: h.preview.Position()})
}

// Play handles POST /play with an optional fps query parameter.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	if s := r.URL.Query().Get("fps"); s != "" {
		fps, err := strconv.ParseFloat(s, 64)
		if err != nil || fps <= 0 {
			http.Error(w, "invalid fps", http.StatusBadRequest)
			return
		}
		h.preview.SetFPS(fps)
	}
	h.preview.Play()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.preview.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// Frame handles GET /frame.png with the latest delivered frame.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	f := h.preview.Latest()
	if f == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.Image); err != nil {
		h.log.Error("encode frame failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(f.Seq, 10))
	w.Header().Set("X-Frame-Time", strconv.FormatFloat(f.Time, 'f', 3, 64))
	w.Write(buf.Bytes())
}

type frameState struct {
	Seq  uint64  `json:"seq"`
	Time float64 `json:"time"`
	Mode string  `json:"mode"`
}

type captionState struct {
	Visible       bool   `json:"visible"`
	Text          string `json:"text,omitempty"`
	Lines         int    `json:"lines,omitempty"`
	HasBackground bool   `json:"background"`
}

type stateResponse struct {
	Position float64                 `json:"position"`
	Playing  bool                    `json:"playing"`
	FPS      float64                 `json:"fps"`
	Frame    *frameState             `json:"frame,omitempty"`
	Caption  *captionState           `json:"caption,omitempty"`
	Render   *compositor.RenderStats `json:"render,omitempty"`
}

// State handles GET /state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Position: h.preview.Position(),
		Playing:  h.preview.Playing(),
		FPS:      h.preview.FPS(),
	}
	if f := h.preview.Latest(); f != nil {
		resp.Frame = &frameState{Seq: f.Seq, Time: f.Time, Mode: string(f.Mode)}
	}
	if h.inspect != nil {
		cs := h.inspect.CaptionState()
		resp.Caption = &captionState{
			Visible:       cs.Visible,
			Text:          cs.Text,
			Lines:         cs.Lines,
			HasBackground: cs.Background != nil,
		}
		rs := h.inspect.RenderStats()
		resp.Render = &rs
	}
	writeJSON(w, http.StatusOK, resp)
}

// Captions handles GET /captions.{srt|vtt|txt}.
func (h *Handler) Captions(w http.ResponseWriter, r *http.Request) {
	format, err := captions.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var segments []project.CaptionSegment
	if h.proj != nil && h.proj.Captions != nil {
		segments = h.proj.Captions.Segments
	}

	var buf bytes.Buffer
	if err := captions.Export(&buf, segments, format); err != nil {
		if errors.Is(err, captions.ErrNoCaptions) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error("caption export failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

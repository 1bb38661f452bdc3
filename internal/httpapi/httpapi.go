// Package httpapi implements the HTTP control surface of spec.md §6
// over the Stream Manager and Image Cache.
//
// Grounded on orion-prototipe/internal/core/health.go's
// StartHealthServer: stdlib net/http + http.NewServeMux, the same
// http.Server hardening (ReadTimeout/WriteTimeout/IdleTimeout), and a
// non-blocking ListenAndServe goroutine. No third-party router (chi,
// gorilla/mux) survives anywhere in the retained pack, so this is the
// stdlib-justified exception noted in DESIGN.md.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/care/orion/internal/apperr"
	"github.com/care/orion/internal/cache"
	"github.com/care/orion/internal/engine"
	"github.com/care/orion/internal/manager"
	"github.com/care/orion/internal/types"
)

// envelope is the {code, message, data} response shape of spec.md §7,
// grounded on orion-prototipe/internal/control/handler.go's Response.
type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Server serves the §6 route table.
type Server struct {
	mgr      *manager.Manager
	eng      *engine.Engine
	imgCache *cache.Cache
	version  string
	startedAt time.Time
	httpSrv  *http.Server
}

// New builds a Server; call Start to bind and listen.
func New(addr string, mgr *manager.Manager, eng *engine.Engine, imgCache *cache.Cache, version string) *Server {
	s := &Server{mgr: mgr, eng: eng, imgCache: imgCache, version: version, startedAt: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/streams", s.handleStreamsCollection)
	mux.HandleFunc("/api/streams/", s.handleStreamsItem)
	mux.HandleFunc("/api/streams/start_all", s.handleStartAll)
	mux.HandleFunc("/api/streams/stop_all", s.handleStopAll)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/cache/image", s.handleCacheImage)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start launches ListenAndServe in a non-blocking goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// startup failure is a fatal init failure (spec.md §6 exit code 1)
			slog.Error("httpapi: listen failed", "error", err)
			os.Exit(1)
		}
	}()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	writeJSON(w, status, envelope{Code: status, Message: err.Error()})
}

// handleStreamsCollection dispatches POST /api/streams and GET /api/streams.
func (s *Server) handleStreamsCollection(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/streams" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var cfg types.StreamConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeErr(w, fmt.Errorf("invalid body: %w", apperr.ErrConfiguration))
			return
		}
		if err := s.mgr.Add(cfg); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, envelope{Code: 0, Message: "ok", Data: map[string]string{"cam_id": cfg.StreamID}})
	case http.MethodGet:
		writeJSON(w, 200, s.mgr.GetAllStatus())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStreamsItem dispatches everything under /api/streams/{id}...
func (s *Server) handleStreamsItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/streams/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case "start":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			if err := s.mgr.Start(id); err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, 200, envelope{Code: 0, Message: "ok"})
			return
		case "stop":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			if err := s.mgr.Stop(id); err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, 200, envelope{Code: 0, Message: "ok"})
			return
		default:
			http.NotFound(w, r)
			return
		}
	}

	switch r.Method {
	case http.MethodDelete:
		if err := s.mgr.Remove(id); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, envelope{Code: 0, Message: "ok", Data: map[string]string{"cam_id": id}})
	case http.MethodGet:
		status, err := s.mgr.GetStatus(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, 200, status)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStartAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mgr.StartAll()
	writeJSON(w, 200, envelope{Code: 0, Message: "ok"})
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mgr.StopAll()
	writeJSON(w, 200, envelope{Code: 0, Message: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	engStats := s.eng.Stats()
	writeJSON(w, 200, map[string]interface{}{
		"version":         s.version,
		"uptime_seconds":  time.Since(s.startedAt).Seconds(),
		"streams":         len(s.mgr.GetAllStatus()),
		"queue_size":      engStats.QueueSize,
		"queue_capacity":  engStats.QueueCapacity,
		"queue_dropped":   engStats.QueueDropped,
		"processed":       engStats.TotalProcessed,
		"published":       engStats.Published,
		"cache_memory":    s.imgCache.TotalMemoryBytes(),
		"cache_frames":    s.imgCache.TotalFrames(),
	})
}

func (s *Server) handleCacheImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	streamID := r.URL.Query().Get("stream_id")
	if streamID == "" {
		writeErr(w, fmt.Errorf("stream_id is required: %w", apperr.ErrConfiguration))
		return
	}

	var frame types.CachedFrame
	var ok bool
	if r.URL.Query().Get("latest") == "true" {
		frame, ok = s.imgCache.GetLatest(streamID)
	} else if tsStr := r.URL.Query().Get("ts"); tsStr != "" {
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			writeErr(w, fmt.Errorf("invalid ts: %w", apperr.ErrConfiguration))
			return
		}
		frame, ok = s.imgCache.GetExact(streamID, ts)
	} else {
		writeErr(w, fmt.Errorf("latest=true or ts=... is required: %w", apperr.ErrConfiguration))
		return
	}

	if !ok {
		writeErr(w, fmt.Errorf("no matching frame for stream %q: %w", streamID, apperr.ErrNotFound))
		return
	}

	w.Header().Set("X-Frame-Id", strconv.FormatUint(frame.FrameID, 10))
	w.Header().Set("X-Timestamp-Ms", strconv.FormatInt(frame.TSMS, 10))
	w.Header().Set("X-Width", strconv.Itoa(frame.Width))
	w.Header().Set("X-Height", strconv.Itoa(frame.Height))
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(200)
	_, _ = w.Write(frame.JPEG)
}

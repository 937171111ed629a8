package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/enviromon/enviromon/pkg/live"
	"github.com/enviromon/enviromon/pkg/pipeline"
	"github.com/enviromon/enviromon/pkg/storage"
)

const (
	historyLimitDefault = 50
	historyLimitMax     = 100
	alertsLimitDefault  = 10
	alertsLimitMax      = 50
)

// Server provides the sensor REST API and the live websocket endpoint.
type Server struct {
	pipeline *pipeline.Pipeline
	store    storage.Store
	hub      *live.Hub
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	logger   *slog.Logger
}

// NewServer creates an API server.
func NewServer(p *pipeline.Pipeline, store storage.Store, hub *live.Hub, logger *slog.Logger) *Server {
	s := &Server{
		pipeline: p,
		store:    store,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a different origin than the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/latest", s.handleLatest)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /api/live", s.handleLive)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// latestError is the /api/latest failure payload: the numeric fields of a
// reading, all null, plus the error string. Pipeline failures never become
// HTTP-level faults on this endpoint.
type latestError struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Light       *int64   `json:"light"`
	Distance    *int64   `json:"distance"`
	Timestamp   *string  `json:"timestamp"`
	Error       string   `json:"error"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	reading, err := s.pipeline.Process(ctx)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.logger.Warn("on-demand fetch failed", "error", err)
		json.NewEncoder(w).Encode(latestError{Error: pipeline.PublicMessage(err)})
		return
	}
	json.NewEncoder(w).Encode(reading)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := queryInt(r, "limit", historyLimitDefault, 1, historyLimitMax)
	offset := queryInt(r, "offset", 0, 0, int(^uint(0)>>1))

	readings, err := s.store.ListReadings(ctx, limit, offset)
	if err != nil {
		s.logger.Error("query history", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(readings)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := queryInt(r, "limit", alertsLimitDefault, 1, alertsLimitMax)
	offset := queryInt(r, "offset", 0, 0, int(^uint(0)>>1))

	alerts, err := s.store.ListAlerts(ctx, limit, offset)
	if err != nil {
		s.logger.Error("query alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	sub := live.NewSubscriber(s.hub, conn, s.logger)
	sub.Start()
	if reading, ok := s.pipeline.Latest(); ok {
		sub.Prime(reading)
	}
}

// queryInt parses an integer query parameter, clamping it to [min, max].
// Missing or unparsable values fall back to def.
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

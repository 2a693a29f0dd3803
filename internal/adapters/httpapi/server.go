package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andrescamacho/artifacts-go/internal/application/orderboard"
	"github.com/andrescamacho/artifacts-go/internal/application/runtime"
	"github.com/andrescamacho/artifacts-go/internal/domain/shared"
)

// Server is the daemon's control and status surface
type Server struct {
	manager  *runtime.Manager
	graceful time.Duration
	http     *http.Server
}

// NewServer builds the control server on the given address
func NewServer(addr string, manager *runtime.Manager, graceful time.Duration, gatherer prometheus.Gatherer) *Server {
	s := &Server{manager: manager, graceful: graceful}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/orders", s.handleOrders)
	r.Route("/api/control", func(r chi.Router) {
		r.Post("/reload-config", s.handleReloadConfig)
		r.Post("/restart", s.handleRestart)
		r.Post("/clear-order-board", s.handleClearOrderBoard)
		r.Post("/clear-gear-state", s.handleClearGearState)
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.http = &http.Server{Addr: addr, Handler: r}
	return s
}

// Handler exposes the routed handler, for embedding in test servers
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the server stops
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto the HTTP surface. Operation conflicts
// become 409 so callers can retry after the running operation finishes.
func writeError(w http.ResponseWriter, err error) {
	if shared.IsOperationConflict(err) {
		writeJSON(w, http.StatusConflict, errorBody{Code: "operation_conflict", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal", Message: err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.GetStatus())
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	board := s.manager.Board()
	if board == nil {
		writeJSON(w, http.StatusOK, orderboard.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, board.GetSnapshot())
}

func (s *Server) handleReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ReloadConfig(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Restart(r.Context(), s.graceful); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearOrderBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ClearOrderBoard("manual"); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearGearState(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ClearGearState(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Package server exposes the portfolio tracker over HTTP and websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"crypto-portfolio-go/internal/catalog"
	"crypto-portfolio-go/internal/config"
	"crypto-portfolio-go/internal/portfolio"
	"crypto-portfolio-go/internal/realtime"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server provides an HTTP interface for the portfolio tracker.
type Server struct {
	server   *http.Server
	tracker  *portfolio.Tracker
	catalog  catalog.Catalog
	hub      *realtime.Hub
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer creates a Server and subscribes the hub to tracker changes.
func NewServer(cfg config.Server, tracker *portfolio.Tracker, cat catalog.Catalog, hub *realtime.Hub, logger *zap.Logger) *Server {
	s := &Server{
		tracker: tracker,
		catalog: cat,
		hub:     hub,
		logger:  logger.Named("api-server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/coins", s.coinsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolio", s.portfolioHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/holdings", s.createHoldingHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/holdings/{id}", s.editHoldingHandler).Methods(http.MethodPut)
	r.HandleFunc("/api/holdings/{id}", s.deleteHoldingHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/holdings/{id}/targets/{slot}", s.targetHandler).Methods(http.MethodPut)
	r.HandleFunc("/ws", s.webSocketHandler).Methods(http.MethodGet)
	s.router = r

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tracker.OnChange(func() {
		hub.BroadcastJSON(tracker.Table())
	})

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) coinsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Search(r.URL.Query().Get("q")))
}

func (s *Server) portfolioHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Table())
}

func (s *Server) createHoldingHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CoinID   string  `json:"coin_id"`
		Quantity float64 `json:"quantity"`
		Cost     float64 `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.tracker.Add(r.Context(), s.catalog, req.CoinID, req.Quantity, req.Cost)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) editHoldingHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity string `json:"quantity"`
		Cost     string `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.tracker.Edit(r.Context(), mux.Vars(r)["id"], req.Quantity, req.Cost); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Table())
}

func (s *Server) deleteHoldingHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) targetHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slot, err := strconv.Atoi(vars["slot"])
	if err != nil {
		writeError(w, http.StatusBadRequest, portfolio.ErrInvalidTargetSlot)
		return
	}

	var req struct {
		Multiplier string `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	label, err := s.tracker.SetTarget(vars["id"], slot, req.Multiplier)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"label": label})
}

func (s *Server) webSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.AddClient(conn)

	if err := s.hub.Send(conn, s.tracker.Table()); err != nil {
		s.hub.RemoveClient(conn)
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.RemoveClient(conn)
			return
		}
	}
}

// fail maps tracker errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portfolio.ErrMissingFields),
		errors.Is(err, portfolio.ErrInvalidInput),
		errors.Is(err, portfolio.ErrInvalidTargetSlot):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, portfolio.ErrRowNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, portfolio.ErrPriceUnavailable):
		writeError(w, http.StatusConflict, err)
	default:
		s.logger.Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

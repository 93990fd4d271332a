package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"phoenix/internal/model"
	"phoenix/internal/store"

	"go.uber.org/zap"
)

// StatusReader provides read-only access to runner state.
type StatusReader interface {
	StatusJSON() ([]byte, error)
}

// Server is the read-only REST API over runner state and the intent store.
type Server struct {
	status  StatusReader
	store   *store.Store
	logger  *zap.Logger
	mux     *http.ServeMux
	srv     *http.Server
	address string
}

// NewServer creates an API server.
func NewServer(address string, status StatusReader, st *store.Store, logger *zap.Logger) *Server {
	s := &Server{
		status:  status,
		store:   st,
		logger:  logger,
		mux:     http.NewServeMux(),
		address: address,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/intents", s.handleIntents)
	s.mux.HandleFunc("/api/trades", s.handleTrades)
	s.mux.HandleFunc("/api/health", s.handleHealth)
}

// Run starts the HTTP server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    s.address,
		Handler: corsMiddleware(s.mux),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api_server_started", zap.String("address", s.address))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.APIResponse{
		Data:      map[string]string{"status": "ok"},
		Timestamp: time.Now(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	data, err := s.status.StatusJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, model.APIResponse{
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	intents, err := s.store.RecentIntents(r.Context(), queryLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, model.APIResponse{
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, model.APIResponse{
		Data:      intents,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.RecentTrades(r.Context(), queryLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, model.APIResponse{
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, model.APIResponse{
		Data:      trades,
		Timestamp: time.Now(),
	})
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

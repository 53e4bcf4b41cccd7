// Package api serves the control surface next to a running stream:
// session status, the live follow-state feed and the MJPEG preview.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Velaseriat/vp-link/internal/config"
	"github.com/Velaseriat/vp-link/internal/engine"
	"github.com/Velaseriat/vp-link/internal/logger"
	"github.com/Velaseriat/vp-link/internal/output"
)

// Server is the HTTP API around one streaming session.
type Server struct {
	router    *mux.Router
	configMgr *config.Manager
	session   *engine.Session
	preview   *output.MJPEGOutput
	upgrader  websocket.Upgrader
}

// NewServer wires the routes. preview may be nil when no MJPEG side
// channel runs; the preview routes then answer 404.
func NewServer(configMgr *config.Manager, session *engine.Session, preview *output.MJPEGOutput) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		configMgr: configMgr,
		session:   session,
		preview:   preview,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")
	api.HandleFunc("/follow/stream", s.handleFollowStream)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.preview != nil {
		s.router.HandleFunc("/preview", s.preview.ViewerHandler()).Methods("GET")
		s.router.HandleFunc("/preview/stream", s.preview.StreamHandler()).Methods("GET")
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	log := logger.WithComponent("api")

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.enableCORS(s.router),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	log.Info().Msg("API server stopped")
	return nil
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "success",
		"state":  s.session.Snapshot(),
	}
	if err := s.session.Failed(); err != nil {
		resp["status"] = "failed"
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.configMgr.Update(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Persisted settings take effect on the next session; the running
	// one keeps its geometry.
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleFollowStream streams follow-state snapshots over a websocket
// at the session's diagnostics cadence.
func (s *Server) handleFollowStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := s.session.Subscribe()
	defer s.session.Unsubscribe(updates)

	if err := conn.WriteJSON(s.session.Snapshot()); err != nil {
		return
	}
	for snap := range updates {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

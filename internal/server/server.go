// Package server provides the HTTP server for the turnstile counting service.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/turnstile/internal/app"
	"github.com/ayusman/turnstile/internal/server/api"
	"github.com/ayusman/turnstile/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir   string
	UploadDir   string
	MaxUploadMB int
	Store       *store.Store
	Manager     *app.Manager
}

// Server represents the HTTP server for the turnstile application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Manager != nil {
		jobsHandler := api.NewJobsHandler(s.config.Manager, s.config.Store, s.config.UploadDir, s.config.MaxUploadMB)
		eventsHandler := api.NewEventsHandler(s.config.Manager, s.config.Store)
		streamHandler := NewStreamHandler(s.config.Manager)
		liveHandler := NewLiveHandler(s.config.Manager)

		// Route by path suffix between the job CRUD handler and its
		// sub-resources: /api/jobs/{id}/events[.csv], /stream, /live.
		jobRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/events"), strings.HasSuffix(r.URL.Path, "/events.csv"):
				eventsHandler.ServeHTTP(w, r)
			case strings.HasSuffix(r.URL.Path, "/stream"):
				streamHandler.ServeHTTP(w, r)
			case strings.HasSuffix(r.URL.Path, "/live"):
				liveHandler.ServeHTTP(w, r)
			default:
				jobsHandler.ServeHTTP(w, r)
			}
		})

		s.mux.Handle("/api/jobs", jobRouter)
		s.mux.Handle("/api/jobs/", jobRouter)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Package server provides the HTTP REST API for the RNA-seq QC service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/jonathan/rnaseq-qc/internal/config"
	"github.com/jonathan/rnaseq-qc/internal/pipeline"
	"github.com/jonathan/rnaseq-qc/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	store      *store.Store
	runner     *pipeline.Runner
}

// New creates a new server instance: it opens the store, prepares the
// working directories, and wires up the routes.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		store:  st,
		runner: pipeline.NewRunner(cfg, st),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("GET /api/status/{job_id}", s.handleStatus)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{job_id}", s.handleGetRun)
	mux.HandleFunc("GET /api/artifact", s.handleArtifact)
	mux.HandleFunc("GET /api/qc/{job_id}/{rest...}", s.handleQCFile)

	// The browser UI is served from a different origin.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      s.withLogging(corsHandler.Handler(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // artifact downloads can be large
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests and blocks until interrupted.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("QC API listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.store.Close()
	log.Println("Server stopped")
	return nil
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// okResponse writes a payload with the ok discriminator set.
func (s *Server) okResponse(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	s.jsonResponse(w, http.StatusOK, body)
}

// errorResponse writes an {ok:false, error} JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]any{"ok": false, "error": message})
}
